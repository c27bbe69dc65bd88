package shop

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"storefront/storage"
)

// CartKey is the storage key the cart blob is persisted under
const CartKey = "cartItems"

// Entry is one product identity with its quantity. Quantity is always >= 1.
type Entry struct {
	ID       Identity `json:"id"`
	Quantity int      `json:"quantity"`
}

// Cart is the persisted mapping from product identity to quantity.
// Entries keep the order in which their identity was first added.
// Every mutation writes the whole cart through the store before returning;
// a write failure is returned but the in-memory mutation stands.
type Cart struct {
	store  storage.Store
	logger *zap.Logger

	mu      sync.RWMutex
	order   []Identity
	qty     map[Identity]int
	version uint64
}

// NewCart creates an empty cart persisted through store
func NewCart(store storage.Store, logger *zap.Logger) *Cart {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cart{store: store, logger: logger, qty: make(map[Identity]int)}
}

// LoadCart restores the cart persisted in store. A missing blob yields an
// empty cart; a corrupt one is logged and discarded.
func LoadCart(store storage.Store, logger *zap.Logger) *Cart {
	c := NewCart(store, logger)
	if store == nil {
		return c
	}

	data, err := store.Load(CartKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("⚠️ could not read persisted cart, starting empty", zap.Error(err))
		}
		return c
	}

	entries, err := decodeCart(data)
	if err != nil {
		c.logger.Warn("⚠️ persisted cart is corrupt, starting empty", zap.Error(err))
		return c
	}
	for _, e := range entries {
		id, err := NewIdentity(string(e.ID))
		if err != nil || e.Quantity < 1 {
			c.logger.Warn("⚠️ dropping invalid cart entry",
				zap.String("id", string(e.ID)), zap.Int("quantity", e.Quantity))
			continue
		}
		if _, ok := c.qty[id]; !ok {
			c.order = append(c.order, id)
		}
		c.qty[id] += e.Quantity
	}
	return c
}

// decodeCart accepts the array form [{"id":..,"quantity":..}] and the older
// object form {"<id>": <qty>}
func decodeCart(data []byte) ([]Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty cart blob")
	}

	switch trimmed[0] {
	case '[':
		var raw []struct {
			ID       json.RawMessage `json:"id"`
			Quantity int             `json:"quantity"`
		}
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("decode cart: %w", err)
		}
		entries := make([]Entry, 0, len(raw))
		for _, r := range raw {
			id, _ := identityFromJSON(r.ID)
			entries = append(entries, Entry{ID: id, Quantity: r.Quantity})
		}
		return entries, nil
	case '{':
		var m map[string]int
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, fmt.Errorf("decode cart: %w", err)
		}
		// object key order is lost; restore in a stable order
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]Entry, 0, len(m))
		for _, k := range keys {
			entries = append(entries, Entry{ID: Identity(k), Quantity: m[k]})
		}
		return entries, nil
	}
	return nil, fmt.Errorf("decode cart: unexpected %q", trimmed[0])
}

// Add increments the quantity of id by one, creating the entry at 1
func (c *Cart) Add(id Identity) error {
	if id == "" {
		return ErrInvalidIdentity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(id, c.qty[id]+1)
	return c.persistLocked()
}

// Remove decrements the quantity of id, deleting the entry when it would drop below 1.
// Removing an absent id is a no-op.
func (c *Cart) Remove(id Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.qty[id]
	if !ok {
		return nil
	}
	c.setLocked(id, q-1)
	return c.persistLocked()
}

// Delete removes the entry for id regardless of its quantity
func (c *Cart) Delete(id Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.qty[id]; !ok {
		return nil
	}
	c.setLocked(id, 0)
	return c.persistLocked()
}

// SetQuantity sets the quantity of id to exactly n; n < 1 deletes the entry
func (c *Cart) SetQuantity(id Identity, n int) error {
	if id == "" {
		return ErrInvalidIdentity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.qty[id]; !ok && n < 1 {
		return nil
	}
	c.setLocked(id, n)
	return c.persistLocked()
}

// Clear removes every entry
func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.qty = make(map[Identity]int)
	c.version++
	return c.persistLocked()
}

// ItemCount is the sum of all quantities
func (c *Cart) ItemCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, q := range c.qty {
		n += q
	}
	return n
}

// Len is the number of distinct entries
func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Quantity returns the quantity of id, 0 when absent
func (c *Cart) Quantity(id Identity) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.qty[id]
}

// Entries returns a copy of the entries in insertion order
func (c *Cart) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entriesLocked()
}

// snapshot returns the entries together with the version they were read at
func (c *Cart) snapshot() ([]Entry, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entriesLocked(), c.version
}

// Canonicalize rekeys entries held under an alias to the canonical id of the
// product they resolve to, merging quantities. Unresolvable entries are kept.
func (c *Cart) Canonicalize(r Resolver) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	order := make([]Identity, 0, len(c.order))
	qty := make(map[Identity]int, len(c.qty))
	for _, id := range c.order {
		target := id
		if p, err := r.Resolve(id); err == nil && p.ID != string(id) {
			target = Identity(p.ID)
			changed = true
		}
		if _, ok := qty[target]; !ok {
			order = append(order, target)
		}
		qty[target] += c.qty[id]
	}
	if !changed {
		return nil
	}
	c.order, c.qty = order, qty
	c.version++
	return c.persistLocked()
}

// settleOrder removes what was just ordered. When the cart has not changed
// since the snapshot at version it is cleared; otherwise only the ordered
// quantities are taken off so additions made meanwhile survive.
func (c *Cart) settleOrder(version uint64, ordered []Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version == version {
		c.order = nil
		c.qty = make(map[Identity]int)
		c.version++
		return c.persistLocked()
	}
	for _, e := range ordered {
		if q, ok := c.qty[e.ID]; ok {
			c.setLocked(e.ID, q-e.Quantity)
		}
	}
	c.version++
	return c.persistLocked()
}

func (c *Cart) setLocked(id Identity, n int) {
	c.version++
	if n < 1 {
		if _, ok := c.qty[id]; !ok {
			return
		}
		delete(c.qty, id)
		for i, o := range c.order {
			if o == id {
				c.order = append(c.order[:i:i], c.order[i+1:]...)
				break
			}
		}
		return
	}
	if _, ok := c.qty[id]; !ok {
		c.order = append(c.order, id)
	}
	c.qty[id] = n
}

func (c *Cart) entriesLocked() []Entry {
	entries := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		entries = append(entries, Entry{ID: id, Quantity: c.qty[id]})
	}
	return entries
}

func (c *Cart) persistLocked() error {
	if c.store == nil {
		return nil
	}
	data, err := json.Marshal(c.entriesLocked())
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := c.store.Save(CartKey, data); err != nil {
		c.logger.Error("❌ failed to persist cart", zap.Error(err))
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}
