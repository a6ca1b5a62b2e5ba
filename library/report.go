package library

import (
	"sort"
	"time"
)

// DefaultPopularLimit is the length of the popular items report.
const DefaultPopularLimit = 10

// Count is one bucket of an aggregation, in first-seen catalog order.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type InventoryReport struct {
	TotalItems      int     `json:"total_items"`
	AvailableItems  int     `json:"available_items"`
	CheckedOutItems int     `json:"checked_out_items"`
	ByStatus        []Count `json:"by_status"`
	ByCategory      []Count `json:"by_category"`
	ByType          []Count `json:"by_type"`
}

type PopularItem struct {
	ItemID        int64  `json:"item_id"`
	Title         string `json:"title"`
	CheckoutCount int    `json:"checkout_count"`
	Type          Kind   `json:"type"`
	Category      string `json:"category"`
}

type PopularItemsReport struct {
	PopularItems   []PopularItem `json:"popular_items"`
	TotalCheckouts int           `json:"total_checkouts"`
}

type OverdueItem struct {
	ItemID        int64     `json:"item_id"`
	Title         string    `json:"title"`
	DueDate       time.Time `json:"due_date"`
	DaysOverdue   int       `json:"days_overdue"`
	EstimatedFine float64   `json:"estimated_fine"`
	CurrentPatron int64     `json:"current_patron"`
}

type OverdueItemsReport struct {
	AsOf                time.Time     `json:"as_of"`
	OverdueItems        []OverdueItem `json:"overdue_items"`
	TotalItemsOverdue   int           `json:"total_items_overdue"`
	TotalEstimatedFines float64       `json:"total_estimated_fines"`
}

// tally accumulates counts keeping first-seen order.
type tally struct {
	index  map[string]int
	counts []Count
}

func (t *tally) add(name string) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[name]; ok {
		t.counts[i].Count++
		return
	}
	t.index[name] = len(t.counts)
	t.counts = append(t.counts, Count{Name: name, Count: 1})
}

func (t *tally) result() []Count {
	if t.counts == nil {
		return []Count{}
	}
	return t.counts
}

// InventoryReport counts items by status, category and kind.
func (c *Catalog) InventoryReport() InventoryReport {
	infos := c.snapshot()

	var byStatus, byCategory, byType tally
	rep := InventoryReport{TotalItems: len(infos)}
	for _, info := range infos {
		switch info.Status {
		case StatusAvailable:
			rep.AvailableItems++
		case StatusCheckedOut:
			rep.CheckedOutItems++
		}
		byStatus.add(string(info.Status))
		byCategory.add(info.Category)
		byType.add(string(info.Type))
	}
	rep.ByStatus = byStatus.result()
	rep.ByCategory = byCategory.result()
	rep.ByType = byType.result()
	return rep
}

// PopularItemsReport lists the limit most checked-out items. Ties keep
// catalog order.
func (c *Catalog) PopularItemsReport(limit int) PopularItemsReport {
	infos := c.snapshot()

	rep := PopularItemsReport{PopularItems: []PopularItem{}}
	for _, info := range infos {
		rep.TotalCheckouts += info.CheckoutCount
	}
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].CheckoutCount > infos[j].CheckoutCount
	})
	if limit >= 0 && len(infos) > limit {
		infos = infos[:limit]
	}
	for _, info := range infos {
		rep.PopularItems = append(rep.PopularItems, PopularItem{
			ItemID:        info.ID,
			Title:         info.Title,
			CheckoutCount: info.CheckoutCount,
			Type:          info.Type,
			Category:      info.Category,
		})
	}
	return rep
}

// OverdueItemsReport lists loans past their due date with the fine each
// would incur if returned now.
func (c *Catalog) OverdueItemsReport() OverdueItemsReport {
	now := c.clock.Now()
	rep := OverdueItemsReport{AsOf: now, OverdueItems: []OverdueItem{}}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.itemsLocked() {
		item.mu.Lock()
		days, fine, overdue := item.overdueLocked(now)
		entry := OverdueItem{
			ItemID:        item.id,
			Title:         item.title,
			DueDate:       item.due,
			DaysOverdue:   days,
			EstimatedFine: fine,
			CurrentPatron: item.holder,
		}
		item.mu.Unlock()
		if !overdue {
			continue
		}
		rep.OverdueItems = append(rep.OverdueItems, entry)
		rep.TotalEstimatedFines += fine
	}
	rep.TotalItemsOverdue = len(rep.OverdueItems)
	return rep
}

// snapshot returns an info view of every item taken under the catalog read lock.
func (c *Catalog) snapshot() []ItemInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	infos := make([]ItemInfo, 0, len(c.itemOrder))
	for _, item := range c.itemsLocked() {
		infos = append(infos, item.Info())
	}
	return infos
}

// ListItems returns an info view of every item in catalog order.
func (c *Catalog) ListItems() []ItemInfo { return c.snapshot() }
