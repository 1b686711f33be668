package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/geoknoesis/wap-go/rdf"
)

// Memory is a map backed Store. Writes are staged and applied only when the
// callback succeeds.
type Memory struct {
	mu     sync.RWMutex
	graphs map[string]*rdf.Graph
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{graphs: make(map[string]*rdf.Graph)}
}

// Read runs fn under a shared lock.
func (m *Memory) Read(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memoryTx{base: m.graphs, readOnly: true})
}

// Write runs fn under the exclusive lock and commits its staged changes if
// fn returns nil.
func (m *Memory) Write(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memoryTx{base: m.graphs, staged: make(map[string]*rdf.Graph)}
	if err := fn(tx); err != nil {
		return err
	}
	for name, g := range tx.staged {
		if g == nil {
			delete(m.graphs, name)
			continue
		}
		m.graphs[name] = g
	}
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

type memoryTx struct {
	base     map[string]*rdf.Graph
	staged   map[string]*rdf.Graph // nil value marks a removal
	readOnly bool
}

func (t *memoryTx) lookup(name string) (*rdf.Graph, bool) {
	if g, ok := t.staged[name]; ok {
		return g, g != nil
	}
	g, ok := t.base[name]
	return g, ok
}

func (t *memoryTx) Graph(name string) (*rdf.Graph, error) {
	g, ok := t.lookup(name)
	if !ok {
		return nil, ErrGraphNotFound
	}
	return g.Clone(), nil
}

func (t *memoryTx) Has(name string) bool {
	_, ok := t.lookup(name)
	return ok
}

func (t *memoryTx) Put(name string, g *rdf.Graph) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.staged[name] = g.Clone()
	return nil
}

func (t *memoryTx) Remove(name string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.staged[name] = nil
	return nil
}

func (t *memoryTx) Names(prefix string) ([]string, error) {
	var names []string
	for name := range t.base {
		if _, staged := t.staged[name]; staged {
			continue
		}
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	for name, g := range t.staged {
		if g != nil && strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
