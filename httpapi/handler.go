package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-circulation/library"
)

type Handler struct {
	lm           *library.LibraryManager
	popularLimit int
}

func RegisterRoutes(r gin.IRoutes, lm *library.LibraryManager, popularLimit int) {
	if popularLimit <= 0 {
		popularLimit = library.DefaultPopularLimit
	}
	h := &Handler{lm: lm, popularLimit: popularLimit}

	// 1. Items
	r.GET("/items", h.ListItems)
	r.POST("/items", h.CreateItem)
	r.GET("/items/:id", h.GetItem)
	r.DELETE("/items/:id", h.RemoveItem)
	r.PUT("/items/:id/status", h.SetItemStatus)

	// 2. Reservations
	r.GET("/items/:id/reservations", h.ListReservations)
	r.POST("/items/:id/reservations", h.Reserve)
	r.DELETE("/items/:id/reservations/:patron_id", h.CancelReservation)

	// 3. Patrons and their inbox
	r.GET("/patrons", h.ListPatrons)
	r.POST("/patrons", h.RegisterPatron)
	r.GET("/patrons/:id", h.GetPatron)
	r.GET("/patrons/:id/notifications", h.ListNotifications)
	r.POST("/patrons/:id/notifications", h.Notify)
	r.POST("/patrons/:id/notifications/:notification_id/read", h.MarkRead)

	// 4. Circulation
	r.POST("/checkouts", h.Checkout)
	r.POST("/checkins", h.Checkin)
	r.POST("/notifications/overdue", h.NotifyOverdue)

	// 5. Reports
	r.GET("/reports/:name", h.Report)
}

// ---------- items ----------

// GET /items?q=...&by=title|author|category
func (h *Handler) ListItems(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusOK, h.lm.ListItems())
		return
	}
	by, ok := library.ParseSearchBy(c.Query("by"))
	if !ok {
		c.JSON(http.StatusBadRequest, errorBody(library.CodeInvalidArgument, "by must be one of title, author, category"))
		return
	}
	c.JSON(http.StatusOK, h.lm.Search(q, by))
}

// POST /items
func (h *Handler) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(library.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	media, err := req.media()
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	item, err := h.lm.AddItem(c.Request.Context(), req.Title, req.Category, media)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.Header("Location", "/items/"+strconv.FormatInt(item.ID(), 10))
	c.JSON(http.StatusCreated, item.Info())
}

func (h *Handler) GetItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	info, err := h.lm.GetItem(id)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) RemoveItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.lm.RemoveItem(c.Request.Context(), id); err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /items/:id/status
func (h *Handler) SetItemStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(library.CodeInvalidArgument, "invalid json"))
		return
	}
	st, valid := library.ParseStatus(req.Status)
	if !valid {
		c.JSON(http.StatusBadRequest, errorBody(library.CodeInvalidArgument, "unknown status "+strconv.Quote(req.Status)))
		return
	}
	if err := h.lm.SetItemStatus(c.Request.Context(), id, st); err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	info, _ := h.lm.GetItem(id)
	c.JSON(http.StatusOK, info)
}

// ---------- reservations ----------

func (h *Handler) ListReservations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	queue, err := h.lm.Reservations(id)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"item_id": id, "queue": queue})
}

// POST /items/:id/reservations
func (h *Handler) Reserve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(library.CodeInvalidArgument, "invalid json"))
		return
	}
	added, err := h.lm.Reserve(c.Request.Context(), id, req.PatronID)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	queue, _ := h.lm.Reservations(id)
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, ReserveResponse{ItemID: id, PatronID: req.PatronID, Added: added, Queue: queue})
}

func (h *Handler) CancelReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	patronID, ok := pathID(c, "patron_id")
	if !ok {
		return
	}
	if err := h.lm.CancelReservation(c.Request.Context(), id, patronID); err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- patrons ----------

func (h *Handler) ListPatrons(c *gin.Context) {
	c.JSON(http.StatusOK, h.lm.ListPatrons())
}

// POST /patrons
func (h *Handler) RegisterPatron(c *gin.Context) {
	var req RegisterPatronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(library.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	p, err := h.lm.RegisterPatron(c.Request.Context(), req.Name, req.Email, library.Tier(req.MembershipLevel))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.Header("Location", "/patrons/"+strconv.FormatInt(p.ID(), 10))
	c.JSON(http.StatusCreated, p.Info())
}

func (h *Handler) GetPatron(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	info, err := h.lm.GetPatron(id)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, info)
}

// GET /patrons/:id/notifications?unread=true
func (h *Handler) ListNotifications(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	unread, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	notes, err := h.lm.Notifications(id, unread)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (h *Handler) Notify(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(library.CodeInvalidArgument, "invalid json"))
		return
	}
	n, err := h.lm.Notify(c.Request.Context(), id, req.Message)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	nid, ok := pathID(c, "notification_id")
	if !ok {
		return
	}
	if err := h.lm.MarkNotificationRead(c.Request.Context(), id, nid); err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- circulation ----------

// POST /checkouts
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(library.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	entry, err := h.lm.Checkout(c.Request.Context(), req.PatronID, req.ItemID)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"loan_id":       entry.LoanID,
		"item_id":       req.ItemID,
		"patron_id":     entry.PatronID,
		"checkout_date": entry.CheckoutDate,
		"due_date":      entry.DueDate,
	})
}

// POST /checkins
func (h *Handler) Checkin(c *gin.Context) {
	var req CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(library.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.lm.Checkin(c.Request.Context(), req.ItemID, req.Condition)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /notifications/overdue
func (h *Handler) NotifyOverdue(c *gin.Context) {
	notes, err := h.lm.NotifyOverdue(c.Request.Context())
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": len(notes), "notifications": notes})
}

// ---------- reports ----------

// GET /reports/:name?limit=N
func (h *Handler) Report(c *gin.Context) {
	switch name := c.Param("name"); name {
	case library.ReportInventory:
		c.JSON(http.StatusOK, h.lm.InventoryReport())
	case library.ReportPopularItems:
		c.JSON(http.StatusOK, h.lm.PopularItemsReport(parseIntDefault(c.Query("limit"), h.popularLimit)))
	case library.ReportOverdueItems:
		c.JSON(http.StatusOK, h.lm.OverdueItemsReport())
	default:
		c.JSON(http.StatusNotFound, errorBody(library.CodeNotFound, "unknown report "+strconv.Quote(name)))
	}
}

// ---------- helpers ----------

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorBody(library.CodeInvalidArgument, name+" must be a positive integer"))
		return 0, false
	}
	return id, true
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
