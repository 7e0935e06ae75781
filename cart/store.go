// Package cart implements the session shopping cart: a list of line items
// unique by product id, with derived count and total, persisted as a whole
// after every mutation.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"syntrad-backend/storage"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Store is the single owner of one cart. Readers get copies; all writes go
// through apply so the backend always holds the last committed state.
type Store struct {
	mu      sync.Mutex
	backend storage.Store
	key     string
	items   []LineItem
	log     logrus.FieldLogger
}

// Open loads the cart stored under key. A missing snapshot yields an empty
// cart, and so does one that cannot be decoded. Only a failing backend read
// is returned as an error.
func Open(ctx context.Context, backend storage.Store, key string, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = discardLogger()
	}
	s := &Store{
		backend: backend,
		key:     key,
		log:     log.WithField("cart", key),
	}

	data, err := backend.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", key, err)
	}

	items, err := decodeItems(data)
	if err != nil {
		s.log.WithError(err).Warn("discarding unreadable cart snapshot")
		return s, nil
	}
	s.items = items
	return s, nil
}

// Add puts quantity units of p into the cart. An existing line for the same
// product id has its quantity increased; otherwise a new line is appended.
func (s *Store) Add(ctx context.Context, p Product, quantity int) (State, error) {
	if err := p.validate(); err != nil {
		return s.Snapshot(), err
	}
	if quantity < 1 || quantity > MaxQuantity {
		return s.Snapshot(), fmt.Errorf("%w: quantity must be between 1 and %d, got %d", ErrInvalidArgument, MaxQuantity, quantity)
	}

	return s.apply(ctx, "add", func(items []LineItem) ([]LineItem, Change, error) {
		if i := indexOf(items, p.ID); i >= 0 {
			if items[i].Quantity+quantity > MaxQuantity {
				return nil, Change{}, fmt.Errorf("%w: at most %d of %s per order", ErrInvalidArgument, MaxQuantity, p.ID)
			}
			items[i].Quantity += quantity
			return items, Change{Kind: Updated, ID: p.ID, Item: items[i]}, nil
		}
		item := LineItem{Product: p, Quantity: quantity}
		return append(items, item), Change{Kind: Added, ID: p.ID, Item: item}, nil
	})
}

// Remove deletes the line for id. Removing an absent id is a no-op.
func (s *Store) Remove(ctx context.Context, id string) (State, error) {
	return s.apply(ctx, "remove", func(items []LineItem) ([]LineItem, Change, error) {
		next, change := removeItem(items, id)
		return next, change, nil
	})
}

// UpdateQuantity sets the quantity of the line for id. A quantity of zero or
// less removes the line, exactly as Remove would. Unknown ids are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) (State, error) {
	if quantity > MaxQuantity {
		return s.Snapshot(), fmt.Errorf("%w: quantity must be at most %d, got %d", ErrInvalidArgument, MaxQuantity, quantity)
	}
	return s.apply(ctx, "update_quantity", func(items []LineItem) ([]LineItem, Change, error) {
		next, change := setQuantity(items, id, quantity)
		return next, change, nil
	})
}

// Clear empties the cart unconditionally.
func (s *Store) Clear(ctx context.Context) (State, error) {
	return s.apply(ctx, "clear", func(items []LineItem) ([]LineItem, Change, error) {
		return []LineItem{}, Change{Kind: Cleared}, nil
	})
}

// Settle takes the ordered lines out of the cart once their order is placed.
// Units added while the order was in flight stay, and so do products that
// were not part of it.
func (s *Store) Settle(ctx context.Context, ordered []LineItem) (State, error) {
	return s.apply(ctx, "settle", func(items []LineItem) ([]LineItem, Change, error) {
		settled := 0
		for _, o := range ordered {
			i := indexOf(items, o.ID)
			if i < 0 {
				continue
			}
			if items[i].Quantity > o.Quantity {
				items[i].Quantity -= o.Quantity
			} else {
				items = append(items[:i], items[i+1:]...)
			}
			settled++
		}
		if settled == 0 {
			return items, Change{Kind: Unchanged}, nil
		}
		return items, Change{Kind: Settled}, nil
	})
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newState(s.items)
}

func (s *Store) Items() []LineItem {
	return s.Snapshot().Items
}

func (s *Store) Total() decimal.Decimal {
	return s.Snapshot().Total
}

func (s *Store) Count() int {
	return s.Snapshot().Count
}

// Key is the storage key this cart persists under.
func (s *Store) Key() string {
	return s.key
}

type mutation func(items []LineItem) ([]LineItem, Change, error)

func (s *Store) apply(ctx context.Context, op string, mutate mutation) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, change, err := mutate(cloneItems(s.items))
	if err != nil {
		return newState(s.items), err
	}
	entry := s.log.WithFields(logrus.Fields{
		"op":         op,
		"change":     change.Kind.String(),
		"product_id": change.ID,
	})

	if change.Kind == Unchanged {
		entry.Debug("cart unchanged")
		return newState(s.items), nil
	}

	data, err := encodeItems(next)
	if err != nil {
		return newState(s.items), fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		entry.WithError(err).Error("cart mutation rolled back")
		return newState(s.items), fmt.Errorf("%w: %v", ErrPersist, err)
	}

	s.items = next
	entry.WithField("quantity", change.Item.Quantity).Debug("cart updated")
	return newState(s.items), nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func removeItem(items []LineItem, id string) ([]LineItem, Change) {
	i := indexOf(items, id)
	if i < 0 {
		return items, Change{Kind: Unchanged, ID: id}
	}
	return append(items[:i], items[i+1:]...), Change{Kind: Removed, ID: id}
}

func setQuantity(items []LineItem, id string, quantity int) ([]LineItem, Change) {
	if quantity <= 0 {
		return removeItem(items, id)
	}
	i := indexOf(items, id)
	if i < 0 {
		return items, Change{Kind: Unchanged, ID: id}
	}
	if items[i].Quantity == quantity {
		return items, Change{Kind: Unchanged, ID: id, Item: items[i]}
	}
	items[i].Quantity = quantity
	return items, Change{Kind: Updated, ID: id, Item: items[i]}
}

func encodeItems(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(items)
}

func decodeItems(data []byte) ([]LineItem, error) {
	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceDecode, err)
	}

	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if err := it.Product.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceDecode, err)
		}
		if it.Quantity < 1 || it.Quantity > MaxQuantity {
			return nil, fmt.Errorf("%w: item %s has quantity %d", ErrPersistenceDecode, it.ID, it.Quantity)
		}
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item %s", ErrPersistenceDecode, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return items, nil
}
