package store

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoknoesis/wap-go/rdf"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	b, err := OpenBadger(Options{InMemory: true, Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return map[string]Store{"badger": b, "memory": NewMemory()}
}

func sampleGraph(subject string) *rdf.Graph {
	g := rdf.NewGraph()
	s := rdf.NewIRI(subject)
	g.Add(s, rdf.RDFType, rdf.NewIRI("http://www.w3.org/ns/oa#Annotation"))
	b := g.NewBlankNode()
	g.Add(s, rdf.NewIRI("http://www.w3.org/ns/oa#hasBody"), b)
	g.Add(b, rdf.NewIRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#value"), rdf.NewLiteral("text"))
	return g
}

func TestStorePutAndGraph(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			iri := "http://localhost:8080/wap/a1"
			require.NoError(t, s.Write(ctx, func(tx Tx) error {
				return tx.Put(iri, sampleGraph(iri))
			}))

			require.NoError(t, s.Read(ctx, func(tx Tx) error {
				assert.True(t, tx.Has(iri))
				g, err := tx.Graph(iri)
				require.NoError(t, err)
				assert.Equal(t, 3, g.Len())
				// mutating the copy must not leak into the store
				g.RemoveMatching(nil, rdf.IRI{}, nil)
				return nil
			}))

			require.NoError(t, s.Read(ctx, func(tx Tx) error {
				g, err := tx.Graph(iri)
				require.NoError(t, err)
				assert.Equal(t, 3, g.Len())
				_, err = tx.Graph(iri + "missing")
				assert.ErrorIs(t, err, ErrGraphNotFound)
				return nil
			}))
		})
	}
}

func TestStoreWriteAbortsOnError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Write(ctx, func(tx Tx) error {
				require.NoError(t, tx.Put("http://x/a", sampleGraph("http://x/a")))
				assert.True(t, tx.Has("http://x/a"))
				return boom
			})
			assert.ErrorIs(t, err, boom)
			require.NoError(t, s.Read(ctx, func(tx Tx) error {
				assert.False(t, tx.Has("http://x/a"))
				return nil
			}))
		})
	}
}

func TestStoreRemoveAndNames(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Write(ctx, func(tx Tx) error {
				for _, iri := range []string{"http://x/wap/b", "http://x/wap/a", "http://y/wap/c"} {
					if err := tx.Put(iri, sampleGraph(iri)); err != nil {
						return err
					}
				}
				return nil
			}))
			require.NoError(t, s.Write(ctx, func(tx Tx) error {
				if err := tx.Remove("http://x/wap/b"); err != nil {
					return err
				}
				names, err := tx.Names("http://x/")
				require.NoError(t, err)
				assert.Equal(t, []string{"http://x/wap/a"}, names)
				return nil
			}))
			require.NoError(t, s.Read(ctx, func(tx Tx) error {
				names, err := tx.Names("")
				require.NoError(t, err)
				assert.Equal(t, []string{"http://x/wap/a", "http://y/wap/c"}, names)
				assert.ErrorIs(t, tx.Put("http://z", rdf.NewGraph()), ErrReadOnly)
				return nil
			}))
		})
	}
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	ctx := context.Background()
	b, err := OpenBadger(Options{Path: dir, Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, b.Write(ctx, func(tx Tx) error {
		return tx.Put("http://x/a", sampleGraph("http://x/a"))
	}))
	require.NoError(t, b.Close())

	b, err = OpenBadger(Options{Path: dir, Logger: quietLogger()})
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.Read(ctx, func(tx Tx) error {
		g, err := tx.Graph("http://x/a")
		require.NoError(t, err)
		assert.Equal(t, 3, g.Len())
		return nil
	}))
}

func TestStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			called := false
			err := s.Write(ctx, func(Tx) error { called = true; return nil })
			assert.ErrorIs(t, err, context.Canceled)
			assert.False(t, called)
		})
	}
}

func TestOpenBadgerRequiresPath(t *testing.T) {
	_, err := OpenBadger(Options{Logger: quietLogger()})
	assert.Error(t, err)
}
