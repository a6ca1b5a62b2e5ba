package library

import "time"

// Status is the availability state of a circulating item.
type Status string

const (
	StatusAvailable  Status = "Available"
	StatusCheckedOut Status = "Checked Out"
	StatusReserved   Status = "Reserved"
	StatusDamaged    Status = "Damaged"
	StatusLost       Status = "Lost"
)

var validStatuses = map[Status]bool{
	StatusAvailable:  true,
	StatusCheckedOut: true,
	StatusReserved:   true,
	StatusDamaged:    true,
	StatusLost:       true,
}

// ParseStatus validates a persisted or user supplied status string.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, validStatuses[st]
}

// Tier is a patron's membership level.
type Tier string

const (
	TierStandard Tier = "Standard"
	TierPremium  Tier = "Premium"
	TierStudent  Tier = "Student"
	TierFaculty  Tier = "Faculty"
)

var tierLimits = map[Tier]int{
	TierStandard: 5,
	TierPremium:  10,
	TierStudent:  3,
	TierFaculty:  15,
}

// MaxCheckouts is the number of items a patron of this tier may hold at once.
// Unrecognised tiers get the Standard limit.
func (t Tier) MaxCheckouts() int {
	if n, ok := tierLimits[t]; ok {
		return n
	}
	return tierLimits[TierStandard]
}

// NotificationKind classifies a notification.
type NotificationKind string

const (
	NotifyOverdue          NotificationKind = "Overdue"
	NotifyReservationReady NotificationKind = "Reservation Ready"
	NotifyFineApplied      NotificationKind = "Fine Applied"
	NotifyGeneral          NotificationKind = "General"
)

// Notification is a message addressed to a patron. Only Read ever changes.
type Notification struct {
	ID        int64            `json:"notification_id"`
	PatronID  int64            `json:"user_id"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"notification_type"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"is_read"`
}

// CheckoutEntry is one line of an item's checkout history.
type CheckoutEntry struct {
	LoanID       string    `json:"loan_id"`
	PatronID     int64     `json:"patron_id"`
	CheckoutDate time.Time `json:"checkout_date"`
	DueDate      time.Time `json:"due_date"`
	ReturnDate   time.Time `json:"return_date,omitempty"`
	Condition    string    `json:"condition,omitempty"`
}

// BorrowEntry is one line of a patron's borrowing history.
type BorrowEntry struct {
	LoanID       string    `json:"loan_id"`
	ItemID       int64     `json:"item_id"`
	Title        string    `json:"title"`
	CheckoutDate time.Time `json:"checkout_date"`
	DueDate      time.Time `json:"due_date"`
	ReturnDate   time.Time `json:"return_date,omitempty"`
}

// Returned reports whether the loan has been checked back in.
func (b BorrowEntry) Returned() bool { return !b.ReturnDate.IsZero() }

// ItemInfo is a read-only view of an item used by search results and listings.
type ItemInfo struct {
	ID               int64      `json:"item_id"`
	Title            string     `json:"title"`
	Category         string     `json:"category"`
	Type             Kind       `json:"type"`
	Attribution      string     `json:"attribution,omitempty"`
	Status           Status     `json:"status"`
	CheckoutCount    int        `json:"checkout_count"`
	CurrentPatron    int64      `json:"current_patron,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	ReservationCount int        `json:"reservation_count"`
}

// PatronInfo is a read-only view of a patron.
type PatronInfo struct {
	ID              int64   `json:"patron_id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	MembershipLevel Tier    `json:"membership_level"`
	MaxCheckouts    int     `json:"max_checkouts"`
	CheckedOut      []int64 `json:"checked_out_items"`
	Fines           float64 `json:"fines"`
	Unread          int     `json:"unread_notifications"`
}
