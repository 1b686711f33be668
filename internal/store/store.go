// Package store persists named graphs and hands them out under read and
// write transactions.
//
// Every object of the annotation server lives in its own named graph whose
// name is the object's IRI. Graphs handed out by a transaction are copies:
// callers mutate them freely and Put them back to persist the change.
//
// Write transactions are serialized. A write callback that returns an error
// leaves the store untouched, so existence, ETag and mutation steps composed
// inside one callback form a single atomic unit.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/geoknoesis/wap-go/rdf"
)

// ErrGraphNotFound is returned by Tx.Graph for unknown names.
var ErrGraphNotFound = errors.New("store: graph not found")

// ErrReadOnly is returned when a read transaction attempts a write.
var ErrReadOnly = errors.New("store: read-only transaction")

// Tx is the view of the store inside a transaction.
type Tx interface {
	// Graph returns a copy of the named graph.
	Graph(name string) (*rdf.Graph, error)
	// Has reports whether the named graph exists.
	Has(name string) bool
	// Put replaces the named graph.
	Put(name string, g *rdf.Graph) error
	// Remove deletes the named graph. Removing an unknown graph is a no-op.
	Remove(name string) error
	// Names lists graph names starting with prefix in sorted order.
	Names(prefix string) ([]string, error)
}

// Store runs transactions over named graphs.
type Store interface {
	Read(ctx context.Context, fn func(Tx) error) error
	Write(ctx context.Context, fn func(Tx) error) error
	Close() error
}

const graphKeyPrefix = "graph/"

func graphKey(name string) []byte {
	return []byte(graphKeyPrefix + name)
}

func nameFromKey(key []byte) string {
	return strings.TrimPrefix(string(key), graphKeyPrefix)
}

// encodeGraph stores g as N-Quads in the graph called name.
func encodeGraph(name string, g *rdf.Graph) ([]byte, error) {
	ds := rdf.NewDataset()
	target := ds.Graph(name)
	target.AddGraph(g)
	out, err := rdf.EncodeNQuads(ds)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func decodeGraph(name string, data []byte) (*rdf.Graph, error) {
	ds, err := rdf.DecodeNQuads(strings.NewReader(string(data)))
	if err != nil {
		return nil, err
	}
	g, ok := ds.Lookup(name)
	if !ok {
		return rdf.NewGraph(), nil
	}
	return g, nil
}
