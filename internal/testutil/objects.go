package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/metadeploy/internal/handler"
	"github.com/roach88/metadeploy/internal/ir"
)

// ItemType is the default type tag of Item.
const ItemType ir.Type = "item"

// Item is a minimal deployable object for tests of the generic machinery.
type Item struct {
	Kind    ir.Type `json:"-"`
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Value   string  `json:"value,omitempty"`
	Retired bool    `json:"retired,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// ObjectType returns Kind, or ItemType when Kind is empty.
func (i *Item) ObjectType() ir.Type {
	if i.Kind == "" {
		return ItemType
	}
	return i.Kind
}

func (i *Item) DisplayName() string { return i.Name }

func (i *Item) IsRetired() bool { return i.Retired }

// MemHandler is an in-memory handler.Handler over *Item.
//
// Alternate matches are by Name. Every call is appended to Calls so tests can
// assert the exact sequence the reconciler drove.
type MemHandler struct {
	mu    sync.Mutex
	items map[string]*Item
	calls []string

	// FailSave, FailFetch and FailUninstall inject errors keyed by item ID.
	FailSave      map[string]error
	FailFetch     map[string]error
	FailUninstall map[string]error
}

// NewMemHandler returns a handler preloaded with items.
func NewMemHandler(items ...*Item) *MemHandler {
	h := &MemHandler{items: make(map[string]*Item)}
	for _, it := range items {
		h.items[it.ID] = it
	}
	return h
}

// Registry returns a registry with h bound to types (ItemType when empty).
func (h *MemHandler) Registry(types ...ir.Type) *handler.Registry {
	if len(types) == 0 {
		types = []ir.Type{ItemType}
	}
	return handler.MustNewRegistry(handler.Registration{Types: types, Handler: h})
}

func (h *MemHandler) Identifier(obj ir.Object) string {
	it, ok := obj.(*Item)
	if !ok {
		return ""
	}
	return it.ID
}

func (h *MemHandler) Fetch(_ context.Context, id string) (ir.Object, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "fetch:"+id)
	if err := h.FailFetch[id]; err != nil {
		return nil, err
	}
	if it, ok := h.items[id]; ok {
		return it, nil
	}
	return nil, nil
}

func (h *MemHandler) FindAlternateMatch(_ context.Context, incoming ir.Object) (ir.Object, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	in, ok := incoming.(*Item)
	if !ok {
		return nil, fmt.Errorf("unexpected object %T", incoming)
	}
	h.calls = append(h.calls, "match:"+in.Name)
	if in.Name == "" {
		return nil, nil
	}
	for _, it := range h.sortedLocked() {
		if it.Name == in.Name {
			return it, nil
		}
	}
	return nil, nil
}

func (h *MemHandler) Overwrite(source, target ir.Object) error {
	src, ok1 := source.(*Item)
	dst, ok2 := target.(*Item)
	if !ok1 || !ok2 {
		return errors.New("overwrite: not an item")
	}
	h.mu.Lock()
	h.calls = append(h.calls, "overwrite:"+dst.ID)
	h.mu.Unlock()
	dst.Name = src.Name
	dst.Value = src.Value
	dst.Retired = false
	dst.Reason = ""
	return nil
}

func (h *MemHandler) Save(_ context.Context, obj ir.Object) (ir.Object, error) {
	it, ok := obj.(*Item)
	if !ok {
		return nil, errors.New("save: not an item")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "save:"+it.ID)
	if err := h.FailSave[it.ID]; err != nil {
		return nil, err
	}
	h.items[it.ID] = it
	return it, nil
}

func (h *MemHandler) Uninstall(_ context.Context, obj ir.Object, reason string) error {
	it, ok := obj.(*Item)
	if !ok {
		return errors.New("uninstall: not an item")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "uninstall:"+it.ID)
	if err := h.FailUninstall[it.ID]; err != nil {
		return err
	}
	it.Retired = true
	it.Reason = reason
	return nil
}

// Get returns the stored item with id, or nil.
func (h *MemHandler) Get(id string) *Item {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.items[id]
}

// Len returns the number of stored items.
func (h *MemHandler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// Calls returns a copy of the recorded call log.
func (h *MemHandler) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

// ResetCalls clears the call log.
func (h *MemHandler) ResetCalls() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = nil
}

func (h *MemHandler) sortedLocked() []*Item {
	out := make([]*Item, 0, len(h.items))
	for _, it := range h.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
