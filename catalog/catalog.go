// Package catalog resolves item ids to their display text (titles).
//
// A miss is a recoverable condition: callers treat the item as having empty
// text, which downstream degrades to a zero item vector, instead of aborting
// the evaluation run.
package catalog

import (
	"fmt"
	"sort"
)

// Catalog resolves an item id to its title text.
type Catalog interface {
	// Title returns the display text for an item id. The second return is
	// false when the id is unknown.
	Title(itemID string) (string, bool)
	// IDs returns all known item ids in a stable sorted order. The returned
	// slice must not be modified.
	IDs() []string
}

// MapCatalog is an in-memory Catalog.
type MapCatalog struct {
	titles map[string]string
	ids    []string
}

var _ Catalog = (*MapCatalog)(nil)

// NewMapCatalog builds a catalog from an id -> title map. Empty ids are
// rejected; empty titles are allowed (they degrade to a zero item vector).
func NewMapCatalog(titles map[string]string) (*MapCatalog, error) {
	c := &MapCatalog{
		titles: make(map[string]string, len(titles)),
		ids:    make([]string, 0, len(titles)),
	}
	for id, title := range titles {
		if id == "" {
			return nil, fmt.Errorf("item id is required")
		}
		c.titles[id] = title
		c.ids = append(c.ids, id)
	}
	sort.Strings(c.ids)
	return c, nil
}

// Title implements Catalog.
func (c *MapCatalog) Title(itemID string) (string, bool) {
	t, ok := c.titles[itemID]
	return t, ok
}

// IDs implements Catalog.
func (c *MapCatalog) IDs() []string { return c.ids }

// Len returns the number of items.
func (c *MapCatalog) Len() int { return len(c.titles) }
