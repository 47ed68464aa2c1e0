// Package selection tracks the options a shopper has picked on a product page
// together with the quantity chosen for each.
package selection

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

var (
	// ErrUnknownOption is returned when an option id is not part of the catalog.
	ErrUnknownOption = errors.New("selection: unknown option")
	// ErrOutOfStock is returned when selecting an option that has no stock left.
	ErrOutOfStock = errors.New("selection: option out of stock")
	// ErrStockExceeded is returned when increasing a quantity beyond the option stock.
	ErrStockExceeded = errors.New("selection: stock exceeded")
)

// Option is a purchasable variant of a product.
type Option struct {
	ID    int64  `json:"option_id"`
	Name  string `json:"option_name"`
	Stock int    `json:"stock"`
	Price *int64 `json:"price,omitempty"`
}

// Entry is an option together with the chosen quantity.
type Entry struct {
	Option
	Quantity int `json:"quantity"`
}

// Catalog indexes the options offered for a single product.
type Catalog struct {
	options []Option
	byID    map[int64]Option
}

// NewCatalog builds a catalog. Later duplicates of an id win.
func NewCatalog(options []Option) Catalog {
	byID := make(map[int64]Option, len(options))
	for _, opt := range options {
		byID[opt.ID] = opt
	}
	return Catalog{options: slices.Clone(options), byID: byID}
}

// Options returns the options in catalog order.
func (c Catalog) Options() []Option { return slices.Clone(c.options) }

// Len reports the number of options.
func (c Catalog) Len() int { return len(c.options) }

// HasOptions reports whether the product is sold through options at all.
func (c Catalog) HasOptions() bool { return len(c.options) > 0 }

// Lookup finds an option by id.
func (c Catalog) Lookup(id int64) (Option, bool) {
	opt, ok := c.byID[id]
	return opt, ok
}

// Set is an immutable mapping from option id to entry. The zero value is an
// empty set. Every mutating operation returns a new Set and leaves the
// receiver untouched.
type Set struct {
	entries map[int64]Entry
}

// Len reports the number of selected options.
func (s Set) Len() int { return len(s.entries) }

// IsEmpty reports whether nothing is selected.
func (s Set) IsEmpty() bool { return len(s.entries) == 0 }

// Get returns the entry stored for id.
func (s Set) Get(id int64) (Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// Entries returns the entries ordered by option id.
func (s Set) Entries() []Entry {
	ids := slices.Sorted(maps.Keys(s.entries))
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.entries[id])
	}
	return out
}

// Select adds the option with quantity 1, replacing any previous entry for
// the same id.
func (s Set) Select(c Catalog, id int64) (Set, error) {
	opt, ok := c.Lookup(id)
	if !ok {
		return s, fmt.Errorf("option %d: %w", id, ErrUnknownOption)
	}
	if opt.Stock < 1 {
		return s, fmt.Errorf("option %d: %w", id, ErrOutOfStock)
	}
	return s.with(Entry{Option: opt, Quantity: 1}), nil
}

// Remove drops the entry for id. Removing an absent id is a no-op.
func (s Set) Remove(id int64) Set {
	if _, ok := s.entries[id]; !ok {
		return s
	}
	next := maps.Clone(s.entries)
	delete(next, id)
	return Set{entries: next}
}

// Increase adds one unit to the entry. At the stock limit it returns the
// receiver unchanged together with ErrStockExceeded.
func (s Set) Increase(id int64) (Set, error) {
	e, ok := s.entries[id]
	if !ok {
		return s, nil
	}
	if e.Quantity >= e.Stock {
		return s, fmt.Errorf("option %d max %d: %w", id, e.Stock, ErrStockExceeded)
	}
	e.Quantity++
	return s.with(e), nil
}

// Decrease removes one unit from the entry; the last unit removes the entry.
func (s Set) Decrease(id int64) Set {
	e, ok := s.entries[id]
	if !ok {
		return s
	}
	if e.Quantity <= 1 {
		return s.Remove(id)
	}
	e.Quantity--
	return s.with(e)
}

// Reconcile refreshes every entry from the catalog. Entries whose option is
// gone or sold out are dropped and quantities above the current stock are
// clamped. It returns the ids of the entries that were dropped or clamped.
func (s Set) Reconcile(c Catalog) (Set, []int64) {
	if len(s.entries) == 0 {
		return s, nil
	}
	var changed []int64
	next := make(map[int64]Entry, len(s.entries))
	for id, e := range s.entries {
		opt, ok := c.Lookup(id)
		if !ok || opt.Stock < 1 {
			changed = append(changed, id)
			continue
		}
		qty := min(e.Quantity, opt.Stock)
		if qty != e.Quantity {
			changed = append(changed, id)
		}
		next[id] = Entry{Option: opt, Quantity: qty}
	}
	slices.Sort(changed)
	return Set{entries: next}, changed
}

func (s Set) with(e Entry) Set {
	next := make(map[int64]Entry, len(s.entries)+1)
	maps.Copy(next, s.entries)
	next[e.ID] = e
	return Set{entries: next}
}

// MarshalJSON encodes the set as an object keyed by option id.
func (s Set) MarshalJSON() ([]byte, error) {
	raw := make(map[string]Entry, len(s.entries))
	for id, e := range s.entries {
		raw[strconv.FormatInt(id, 10)] = e
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes an object keyed by option id, dropping entries whose
// quantity falls outside [1, stock].
func (s *Set) UnmarshalJSON(data []byte) error {
	var raw map[string]Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	entries := make(map[int64]Entry, len(raw))
	for key, e := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return fmt.Errorf("selection: invalid option key %q: %w", key, err)
		}
		if e.Quantity < 1 || e.Quantity > e.Stock {
			continue
		}
		e.ID = id
		entries[id] = e
	}
	s.entries = entries
	return nil
}

// SelectedLabel is shown on the option picker: the name of the last picked
// option or a placeholder.
func SelectedLabel(c Catalog, lastSelected *int64) string {
	if lastSelected != nil {
		if opt, ok := c.Lookup(*lastSelected); ok && opt.Name != "" {
			return opt.Name
		}
	}
	return PlaceholderLabel
}

// PlaceholderLabel is shown while no option has been picked.
const PlaceholderLabel = "Select an option"
