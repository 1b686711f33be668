// Package service implements the annotation and container operations of the
// Web Annotation Protocol on top of a graph store.
//
// Every mutating operation runs inside one write transaction of the store:
// the existence check, the ETag comparison and the mutation either all
// succeed or leave the store untouched. Objects live in named graphs called
// by their IRI. A container graph also holds its two membership sequences.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/geoknoesis/wap-go/internal/config"
	"github.com/geoknoesis/wap-go/internal/format"
	"github.com/geoknoesis/wap-go/internal/model"
	"github.com/geoknoesis/wap-go/internal/store"
	"github.com/geoknoesis/wap-go/internal/vocab"
	"github.com/geoknoesis/wap-go/internal/waperr"
	"github.com/geoknoesis/wap-go/rdf"
)

// RootETag is the ETag of a freshly initialized root container.
const RootETag = "initial-root-etag"

// RootLabel is the label of the root container.
const RootLabel = "The Root Container"

// Service holds what the annotation and container services share.
type Service struct {
	cfg     *config.Config
	store   store.Store
	formats *format.Registry
	log     *logrus.Entry
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, used for created and modified timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service reading request bodies through formats and
// persisting objects in st.
func New(cfg *config.Config, st store.Store, formats *format.Registry, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		store:   st,
		formats: formats,
		log:     logger.WithField("component", "service"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Annotations returns the annotation operations.
func (s *Service) Annotations() *AnnotationService { return &AnnotationService{s} }

// Containers returns the container operations.
func (s *Service) Containers() *ContainerService { return &ContainerService{s} }

// InitRoot creates the root container unless it exists.
func (s *Service) InitRoot(ctx context.Context) error {
	root := s.cfg.RootContainerIRI()
	return s.store.Write(ctx, func(tx store.Tx) error {
		if tx.Has(root) {
			return nil
		}
		node := rdf.NewIRI(root)
		g := rdf.NewGraph()
		g.Add(node, vocab.Type, vocab.BasicContainer)
		g.Add(node, vocab.Type, vocab.OrderedCollection)
		g.Add(node, vocab.Label, rdf.NewLiteral(RootLabel))
		c, err := model.NewContainer(g, "")
		if err != nil {
			return err
		}
		now := s.now()
		c.SetCreated(now)
		model.TouchGraph(c.Graph(), node, "", now)
		c.SetETag(RootETag)
		s.log.WithField("iri", root).Info("root container created")
		return tx.Put(root, c.ToGraph())
	})
}

func objectType(iri string) string {
	if strings.HasSuffix(iri, "/") {
		return "container"
	}
	return "annotation"
}

// checkExistsAndNotDeleted returns the stored graph of iri.
func checkExistsAndNotDeleted(tx store.Tx, iri string) (*rdf.Graph, error) {
	if !tx.Has(iri) {
		return nil, waperr.New(waperr.NotExistent, "The requested %s does not exist.", objectType(iri))
	}
	g, err := tx.Graph(iri)
	if err != nil {
		if errors.Is(err, store.ErrGraphNotFound) {
			return nil, waperr.New(waperr.NotExistent, "The requested %s does not exist.", objectType(iri))
		}
		return nil, waperr.Wrap(waperr.InternalServerError, err, "cannot read %s", iri)
	}
	if model.IsDeletedIn(g, rdf.NewIRI(iri)) {
		return nil, waperr.New(waperr.ResourceDeleted, "The requested %s has already been deleted.", objectType(iri))
	}
	return g, nil
}

func (s *Service) checkEtag(g *rdf.Graph, iri, tag string) error {
	if model.StoredETag(g, rdf.NewIRI(iri)) != tag {
		s.log.WithFields(logrus.Fields{"iri": iri, "etag": tag}).Warn("etag mismatch")
		return waperr.New(waperr.EtagMismatch, "The etag given does not match the etag in the database")
	}
	return nil
}

// exists reports whether iri can be read, outside any write transaction.
// Write operations call it to fail before parsing a body.
func (s *Service) exists(ctx context.Context, iri string) error {
	return s.store.Read(ctx, func(tx store.Tx) error {
		_, err := checkExistsAndNotDeleted(tx, iri)
		return err
	})
}

// loadContainer reads a live container inside tx.
func loadContainer(tx store.Tx, iri string) (*model.Container, error) {
	g, err := checkExistsAndNotDeleted(tx, iri)
	if err != nil {
		return nil, err
	}
	return model.NewContainer(g, "")
}

// updateContainer applies edit to the container at iri, gives it a fresh
// ETag and stores it.
func (s *Service) updateContainer(tx store.Tx, iri string, edit func(*model.Container) error) (*model.Container, error) {
	c, err := loadContainer(tx, iri)
	if err != nil {
		return nil, err
	}
	if edit != nil {
		if err := edit(c); err != nil {
			return nil, err
		}
	}
	tag := c.Touch(s.now())
	if err := tx.Put(iri, c.ToGraph()); err != nil {
		return nil, storeError(iri, err)
	}
	s.log.WithFields(logrus.Fields{"iri": iri, "etag": tag}).Debug("container etag updated")
	return c, nil
}

// deleteObject flags the object as deleted and unlinks it from its parent.
func (s *Service) deleteObject(tx store.Tx, iri string, g *rdf.Graph) error {
	model.MarkDeletedIn(g, rdf.NewIRI(iri))
	if err := tx.Put(iri, g); err != nil {
		return storeError(iri, err)
	}
	parent := model.ParentIRI(iri)
	_, err := s.updateContainer(tx, parent, func(c *model.Container) error {
		removed, err := c.RemoveMember(iri)
		if err == nil && !removed {
			s.log.WithFields(logrus.Fields{"iri": iri, "parent": parent}).Warn("deleted object was not listed in its container")
		}
		return err
	})
	return err
}

// parse reads a request body. Parse failures are reported as invalid, which
// is NotAnAnnotation or NotAContainer depending on the expected object.
func (s *Service) parse(ctx context.Context, body []byte, contentType string, invalid waperr.Kind) (*rdf.Dataset, error) {
	ds, err := s.formats.Parse(ctx, body, contentType)
	if err != nil {
		if waperr.Is(err, waperr.FormatException) {
			return nil, waperr.Wrap(invalid, err, "%s", waperr.UserMessage(err))
		}
		return nil, err
	}
	return ds, nil
}

func storeError(iri string, err error) error {
	return waperr.Wrap(waperr.InternalServerError, err, "cannot write %s", iri)
}
