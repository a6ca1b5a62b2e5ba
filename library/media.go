package library

import (
	"fmt"
	"time"
)

// Kind is the discriminator persisted with every item.
type Kind string

const (
	KindBook Kind = "Book"
	KindDVD  Kind = "DVD"
	KindCD   Kind = "CD"
)

type kindPolicy struct {
	periodDays int
	finePerDay float64
}

// Loan policy per kind. A CD never falls back to the Book row.
var kindPolicies = map[Kind]kindPolicy{
	KindBook: {periodDays: 21, finePerDay: 0.25},
	KindDVD:  {periodDays: 7, finePerDay: 1.00},
	KindCD:   {periodDays: 14, finePerDay: 0.50},
}

// ParseKind validates a kind discriminator.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kindPolicies[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// CheckoutPeriodDays returns the loan length for the kind, or 0 for unknown kinds.
func (k Kind) CheckoutPeriodDays() int { return kindPolicies[k].periodDays }

// FineRate returns the per-day overdue charge for the kind.
func (k Kind) FineRate() float64 { return kindPolicies[k].finePerDay }

// CalculateFine charges daysOverdue whole days at the kind's rate.
func (k Kind) CalculateFine(daysOverdue int) float64 {
	if daysOverdue <= 0 {
		return 0
	}
	return float64(daysOverdue) * k.FineRate()
}

// Media is the kind-specific part of an item.
type Media interface {
	Kind() Kind
	CheckoutPeriod() int
	CalculateFine(daysOverdue int) float64
	DisplayInfo(title string) string
}

// Attributed is implemented by media that carry a searchable creator
// (author for books, artist for CDs).
type Attributed interface {
	Attribution() string
}

// Book is printed material.
type Book struct {
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	Edition         int    `json:"edition"`
	PageCount       int    `json:"page_count"`
	Publisher       string `json:"publisher"`
	PublicationYear int    `json:"publication_year"`
}

func (Book) Kind() Kind                     { return KindBook }
func (Book) CheckoutPeriod() int            { return KindBook.CheckoutPeriodDays() }
func (Book) CalculateFine(days int) float64 { return KindBook.CalculateFine(days) }
func (b Book) Attribution() string          { return b.Author }
func (b Book) DisplayInfo(title string) string {
	return fmt.Sprintf("Book: %s by %s (ISBN %s, edition %d)", title, b.Author, b.ISBN, b.Edition)
}

// DVD is a video disc. It has a director but no searchable attribution.
type DVD struct {
	Director    string `json:"director"`
	Runtime     int    `json:"runtime"`
	Rating      string `json:"rating"`
	ReleaseYear int    `json:"release_year"`
}

func (DVD) Kind() Kind                     { return KindDVD }
func (DVD) CheckoutPeriod() int            { return KindDVD.CheckoutPeriodDays() }
func (DVD) CalculateFine(days int) float64 { return KindDVD.CalculateFine(days) }
func (d DVD) DisplayInfo(title string) string {
	return fmt.Sprintf("DVD: %s directed by %s (%d min, rated %s)", title, d.Director, d.Runtime, d.Rating)
}

// CD is an audio disc.
type CD struct {
	Artist   string `json:"artist"`
	Tracks   int    `json:"tracks"`
	Duration int    `json:"duration"`
}

func (CD) Kind() Kind                     { return KindCD }
func (CD) CheckoutPeriod() int            { return KindCD.CheckoutPeriodDays() }
func (CD) CalculateFine(days int) float64 { return KindCD.CalculateFine(days) }
func (c CD) Attribution() string          { return c.Artist }
func (c CD) DisplayInfo(title string) string {
	return fmt.Sprintf("CD: %s by %s (%d tracks)", title, c.Artist, c.Tracks)
}

// NewBook returns book media for a first edition
// published this year.
func NewBook(author, isbn string) Book {
	return Book{Author: author, ISBN: isbn, Edition: 1, PublicationYear: time.Now().Year()}
}

// NewDVD returns DVD media with an NR rating.
func NewDVD(director string, runtime int) DVD {
	return DVD{Director: director, Runtime: runtime, Rating: "NR", ReleaseYear: time.Now().Year()}
}

// NewCD returns CD media.
func NewCD(artist string, tracks int) CD {
	return CD{Artist: artist, Tracks: tracks}
}

// DefaultCategory is used when an item is created without one.
func DefaultCategory(k Kind) string {
	switch k {
	case KindDVD:
		return "Entertainment"
	case KindCD:
		return "Music"
	default:
		return "General"
	}
}

// attributionOf returns the creator for attributed media.
func attributionOf(m Media) (string, bool) {
	a, ok := m.(Attributed)
	if !ok {
		return "", false
	}
	return a.Attribution(), true
}
