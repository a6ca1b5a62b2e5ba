package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryReport(t *testing.T) {
	c, _ := newTestCatalog(t)
	p := c.RegisterPatron("Ada", "", TierStandard)
	b := c.CreateItem("Dune", "Fiction", NewBook("a", "b"))
	c.CreateItem("Emma", "Fiction", NewBook("a", "b"))
	d := c.CreateItem("Heat", "", NewDVD("m", 170))
	_, err := c.ProcessCheckout(p.ID(), b.ID())
	require.NoError(t, err)
	require.NoError(t, c.SetItemStatus(d.ID(), StatusDamaged))

	rep := c.InventoryReport()
	assert.Equal(t, 3, rep.TotalItems)
	assert.Equal(t, 1, rep.AvailableItems)
	assert.Equal(t, 1, rep.CheckedOutItems)
	assert.Equal(t, []Count{{"Checked Out", 1}, {"Available", 1}, {"Damaged", 1}}, rep.ByStatus)
	assert.Equal(t, []Count{{"Fiction", 2}, {"Entertainment", 1}}, rep.ByCategory)
	assert.Equal(t, []Count{{"Book", 2}, {"DVD", 1}}, rep.ByType)
}

func TestInventoryReportEmpty(t *testing.T) {
	c, _ := newTestCatalog(t)
	rep := c.InventoryReport()
	assert.Zero(t, rep.TotalItems)
	assert.NotNil(t, rep.ByStatus)
	assert.Empty(t, rep.ByStatus)
}

func TestPopularItemsReport(t *testing.T) {
	c, _ := newTestCatalog(t)
	p := c.RegisterPatron("Ada", "", TierStandard)
	once := c.CreateItem("once", "", NewBook("a", "b"))
	thrice := c.CreateItem("thrice", "", NewCD("a", 1))
	never := c.CreateItem("never", "", NewDVD("a", 1))
	alsoOnce := c.CreateItem("also once", "", NewBook("a", "b"))

	lend := func(it *Item, n int) {
		for i := 0; i < n; i++ {
			_, err := c.ProcessCheckout(p.ID(), it.ID())
			require.NoError(t, err)
			_, err = c.ProcessCheckin(it.ID(), "Good")
			require.NoError(t, err)
		}
	}
	lend(once, 1)
	lend(thrice, 3)
	lend(alsoOnce, 1)

	rep := c.PopularItemsReport(3)
	assert.Equal(t, 5, rep.TotalCheckouts)
	require.Len(t, rep.PopularItems, 3)
	assert.Equal(t, thrice.ID(), rep.PopularItems[0].ItemID)
	assert.Equal(t, 3, rep.PopularItems[0].CheckoutCount)
	// Ties keep catalog order.
	assert.Equal(t, once.ID(), rep.PopularItems[1].ItemID)
	assert.Equal(t, alsoOnce.ID(), rep.PopularItems[2].ItemID)

	all := c.PopularItemsReport(DefaultPopularLimit)
	require.Len(t, all.PopularItems, 4)
	assert.Equal(t, never.ID(), all.PopularItems[3].ItemID)
}

func TestOverdueItemsReport(t *testing.T) {
	c, clock := newTestCatalog(t)
	p := c.RegisterPatron("Ada", "", TierStandard)
	book := c.CreateItem("Dune", "", NewBook("a", "b"))
	dvd := c.CreateItem("Heat", "", NewDVD("m", 170))
	c.CreateItem("Shelf", "", NewCD("a", 1))
	for _, it := range []*Item{book, dvd} {
		_, err := c.ProcessCheckout(p.ID(), it.ID())
		require.NoError(t, err)
	}

	clock.Advance(12 * dayDur)
	rep := c.OverdueItemsReport()
	require.Equal(t, 1, rep.TotalItemsOverdue)
	assert.Equal(t, dvd.ID(), rep.OverdueItems[0].ItemID)
	assert.Equal(t, 5, rep.OverdueItems[0].DaysOverdue)
	assert.Equal(t, 5.00, rep.OverdueItems[0].EstimatedFine)
	assert.Equal(t, p.ID(), rep.OverdueItems[0].CurrentPatron)
	assert.Equal(t, clock.Now(), rep.AsOf)

	clock.Advance(14 * dayDur) // book 5 days late, DVD 19
	rep = c.OverdueItemsReport()
	assert.Equal(t, 2, rep.TotalItemsOverdue)
	assert.Equal(t, 1.25+19.00, rep.TotalEstimatedFines)
}
