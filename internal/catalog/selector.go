package catalog

import (
	"fmt"
	"sync/atomic"
)

type selection struct {
	assets []*Asset
	index  int
}

func (s *selection) active() *Asset {
	if s.index < 0 || s.index >= len(s.assets) {
		return nil
	}
	return s.assets[s.index]
}

// Selector holds the catalog and the active asset. Every change swaps one
// immutable selection, so the frame loop always sees a whole asset.
type Selector struct {
	cur      atomic.Pointer[selection]
	onChange func(index int, a *Asset)
}

// NewSelector creates a Selector with the first asset active.
func NewSelector(assets []*Asset) *Selector {
	s := &Selector{}
	s.cur.Store(newSelection(assets, 0))
	return s
}

func newSelection(assets []*Asset, index int) *selection {
	list := make([]*Asset, len(assets))
	copy(list, assets)
	if len(list) == 0 {
		index = -1
	}
	return &selection{assets: list, index: index}
}

// OnChange registers a callback invoked after the active asset changes.
// It must be set before the Selector is shared.
func (s *Selector) OnChange(fn func(index int, a *Asset)) {
	s.onChange = fn
}

// Active returns the active asset, or nil when the catalog is empty.
func (s *Selector) Active() *Asset {
	return s.cur.Load().active()
}

// ActiveIndex returns the active position, or -1 when the catalog is empty.
func (s *Selector) ActiveIndex() int {
	return s.cur.Load().index
}

// Assets returns the catalog in display order.
func (s *Selector) Assets() []*Asset {
	cur := s.cur.Load()
	out := make([]*Asset, len(cur.assets))
	copy(out, cur.assets)
	return out
}

// Len returns the catalog size.
func (s *Selector) Len() int {
	return len(s.cur.Load().assets)
}

// Lookup returns the asset with the given ID.
func (s *Selector) Lookup(id string) (*Asset, error) {
	for _, a := range s.cur.Load().assets {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", id, ErrUnknownAsset)
}

// SetAssets replaces the catalog. The active asset is kept when its ID is
// still present; otherwise the first asset becomes active.
func (s *Selector) SetAssets(assets []*Asset) {
	index := 0
	if prev := s.Active(); prev != nil {
		for i, a := range assets {
			if a.ID == prev.ID {
				index = i
				break
			}
		}
	}
	s.commit(newSelection(assets, index))
}

// Select makes the asset at index active.
func (s *Selector) Select(index int) (*Asset, error) {
	return s.move(func(cur *selection) (int, error) {
		if index < 0 || index >= len(cur.assets) {
			return 0, fmt.Errorf("%d of %d: %w", index, len(cur.assets), ErrOutOfRange)
		}
		return index, nil
	})
}

// SelectID makes the asset with the given ID active.
func (s *Selector) SelectID(id string) (*Asset, error) {
	return s.move(func(cur *selection) (int, error) {
		for i, a := range cur.assets {
			if a.ID == id {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%s: %w", id, ErrUnknownAsset)
	})
}

// Next advances to the following asset, wrapping after the last.
func (s *Selector) Next() (*Asset, error) {
	return s.step(1)
}

// Previous moves to the preceding asset, wrapping before the first.
func (s *Selector) Previous() (*Asset, error) {
	return s.step(-1)
}

func (s *Selector) step(delta int) (*Asset, error) {
	return s.move(func(cur *selection) (int, error) {
		n := len(cur.assets)
		return ((cur.index+delta)%n + n) % n, nil
	})
}

func (s *Selector) move(pick func(cur *selection) (int, error)) (*Asset, error) {
	for {
		cur := s.cur.Load()
		if len(cur.assets) == 0 {
			return nil, ErrNoAssets
		}

		index, err := pick(cur)
		if err != nil {
			return nil, err
		}

		next := &selection{assets: cur.assets, index: index}
		if s.cur.CompareAndSwap(cur, next) {
			s.notify(next)
			return next.active(), nil
		}
	}
}

func (s *Selector) commit(next *selection) {
	s.cur.Store(next)
	s.notify(next)
}

func (s *Selector) notify(sel *selection) {
	if s.onChange != nil {
		s.onChange(sel.index, sel.active())
	}
}
