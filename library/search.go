package library

import (
	"strings"

	"golang.org/x/text/cases"
)

// SearchBy selects the field a search term is matched against.
type SearchBy string

const (
	SearchAny      SearchBy = ""
	SearchTitle    SearchBy = "title"
	SearchAuthor   SearchBy = "author"
	SearchCategory SearchBy = "category"
)

// ParseSearchBy accepts "", "any", "title", "author" or "category".
func ParseSearchBy(s string) (SearchBy, bool) {
	switch by := SearchBy(strings.ToLower(strings.TrimSpace(s))); by {
	case SearchAny, SearchTitle, SearchAuthor, SearchCategory:
		return by, true
	case "any":
		return SearchAny, true
	}
	return "", false
}

// Search scans the catalog for items whose selected field contains term,
// ignoring case. Author matches only media that carry an attribution
// (books and CDs). A blank term matches nothing.
func (c *Catalog) Search(term string, by SearchBy) []ItemInfo {
	results := []ItemInfo{}
	if strings.TrimSpace(term) == "" {
		return results
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.itemsLocked() {
		if matches(item, term, by) {
			results = append(results, item.Info())
		}
	}
	return results
}

func matches(item *Item, term string, by SearchBy) bool {
	author, hasAuthor := attributionOf(item.media)
	switch by {
	case SearchTitle:
		return containsFold(item.title, term)
	case SearchCategory:
		return containsFold(item.category, term)
	case SearchAuthor:
		return hasAuthor && containsFold(author, term)
	default:
		return containsFold(item.title, term) ||
			containsFold(item.category, term) ||
			(hasAuthor && containsFold(author, term))
	}
}

// containsFold is a Unicode case-insensitive substring test.
func containsFold(s, substr string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(substr))
}
