package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/geoknoesis/wap-go/rdf"
)

// Options configures a Badger store.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	Logger   *logrus.Logger
}

// Badger keeps every named graph as one N-Quads value in badger.
type Badger struct {
	db      *badger.DB
	writeMu sync.Mutex
	log     *logrus.Entry
}

// OpenBadger opens or creates the database described by opts.
func OpenBadger(opts Options) (*Badger, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("store: database path is empty")
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}
	log := opts.Logger.WithField("component", "store")
	log.WithFields(logrus.Fields{"path": opts.Path, "inMemory": opts.InMemory}).Info("graph store opened")
	return &Badger{db: db, log: log}, nil
}

// Read runs fn in a read-only badger view.
func (b *Badger) Read(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn, readOnly: true})
	})
}

// Write runs fn in a single badger update. Writers are serialized so the
// checks fn performs cannot interleave with another writer.
func (b *Badger) Write(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	err := b.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
	if err != nil {
		b.log.WithError(err).Debug("write transaction aborted")
	}
	return err
}

// Close closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

type badgerTx struct {
	txn      *badger.Txn
	readOnly bool
}

func (t *badgerTx) Graph(name string) (*rdf.Graph, error) {
	item, err := t.txn.Get(graphKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrGraphNotFound
	}
	if err != nil {
		return nil, err
	}
	var g *rdf.Graph
	err = item.Value(func(val []byte) error {
		decoded, err := decodeGraph(name, val)
		g = decoded
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", name, err)
	}
	return g, nil
}

func (t *badgerTx) Has(name string) bool {
	_, err := t.txn.Get(graphKey(name))
	return err == nil
}

func (t *badgerTx) Put(name string, g *rdf.Graph) error {
	if t.readOnly {
		return ErrReadOnly
	}
	data, err := encodeGraph(name, g)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", name, err)
	}
	return t.txn.Set(graphKey(name), data)
}

func (t *badgerTx) Remove(name string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	return t.txn.Delete(graphKey(name))
}

func (t *badgerTx) Names(prefix string) ([]string, error) {
	iopts := badger.DefaultIteratorOptions
	iopts.PrefetchValues = false
	it := t.txn.NewIterator(iopts)
	defer it.Close()

	var names []string
	seek := graphKey(prefix)
	for it.Seek(seek); it.ValidForPrefix(seek); it.Next() {
		names = append(names, nameFromKey(it.Item().KeyCopy(nil)))
	}
	sort.Strings(names)
	return names, nil
}
