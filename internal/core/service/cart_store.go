package service

import (
	"sync"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
)

// ApplyCommand returns the cart that results from applying cmd to cart. It
// never mutates its input and never fails: commands that do not apply leave
// the cart as it was.
func ApplyCommand(cart domain.Cart, cmd domain.Command) domain.Cart {
	switch cmd.Type {
	case domain.CommandSetCart:
		return normalize(cmd.Items)

	case domain.CommandAddItem:
		next := cart.Clone()
		if i := next.Index(cmd.ProductID); i >= 0 {
			next[i].Quantity++
			return next
		}
		return append(next, domain.LineItem{ProductID: cmd.ProductID, Quantity: 1})

	case domain.CommandRemoveItem:
		return without(cart, cmd.ProductID)

	case domain.CommandUpdateQuantity:
		if cmd.Quantity <= 0 {
			return without(cart, cmd.ProductID)
		}
		next := cart.Clone()
		if i := next.Index(cmd.ProductID); i >= 0 {
			next[i].Quantity = cmd.Quantity
		}
		return next

	case domain.CommandClearCart:
		return domain.Cart{}

	default:
		return cart.Clone()
	}
}

func without(cart domain.Cart, productID string) domain.Cart {
	next := make(domain.Cart, 0, len(cart))
	for _, it := range cart {
		if it.ProductID != productID {
			next = append(next, it)
		}
	}
	return next
}

// normalize keeps SET_CART payloads inside the cart invariants: lines with a
// non-positive quantity are dropped and repeated products fold into the
// first occurrence.
func normalize(items domain.Cart) domain.Cart {
	next := make(domain.Cart, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		if i := next.Index(it.ProductID); i >= 0 {
			next[i].Quantity += it.Quantity
			continue
		}
		next = append(next, it)
	}
	return next
}

func equalCarts(a, b domain.Cart) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CartChange is published after every dispatched command. Version only moves
// when the cart content changed.
type CartChange struct {
	Command domain.Command
	Items   domain.Cart
	Version uint64
	Changed bool
}

// CartStore owns the session cart. Dispatch is the only way to mutate it.
//
// Subscribers run synchronously on the dispatching goroutine, in dispatch
// order, and must not call Dispatch themselves.
type CartStore struct {
	dispatchMu sync.Mutex

	mu      sync.RWMutex
	items   domain.Cart
	version uint64

	subMu       sync.RWMutex
	nextSubID   int
	subscribers map[int]func(CartChange)
}

func NewCartStore() *CartStore {
	return &CartStore{
		items:       domain.Cart{},
		subscribers: make(map[int]func(CartChange)),
	}
}

func (s *CartStore) Dispatch(cmd domain.Command) CartChange {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	next := ApplyCommand(s.items, cmd)
	changed := !equalCarts(s.items, next)
	if changed {
		s.items = next
		s.version++
	}
	change := CartChange{
		Command: cmd,
		Items:   s.items.Clone(),
		Version: s.version,
		Changed: changed,
	}
	s.mu.Unlock()

	s.subMu.RLock()
	subs := make([]func(CartChange), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(change)
	}
	return change
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *CartStore) Subscribe(fn func(CartChange)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *CartStore) Items() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.Clone()
}

func (s *CartStore) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.ItemCount()
}

// Snapshot returns the cart together with the version it was read at.
func (s *CartStore) Snapshot() (domain.Cart, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.Clone(), s.version
}
