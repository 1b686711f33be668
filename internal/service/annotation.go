package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/geoknoesis/wap-go/internal/model"
	"github.com/geoknoesis/wap-go/internal/store"
	"github.com/geoknoesis/wap-go/internal/vocab"
	"github.com/geoknoesis/wap-go/internal/waperr"
)

// AnnotationService reads and writes annotations.
type AnnotationService struct {
	*Service
}

// Get returns the live annotation at iri.
func (s *AnnotationService) Get(ctx context.Context, iri string) (*model.Annotation, error) {
	var anno *model.Annotation
	err := s.store.Read(ctx, func(tx store.Tx) error {
		g, err := checkExistsAndNotDeleted(tx, iri)
		if err != nil {
			return err
		}
		anno, err = model.NewAnnotation(g)
		return err
	})
	if err != nil {
		return nil, err
	}
	return anno, nil
}

// Post stores every annotation of body in the container at containerIRI.
// Each annotation gets the IRI containerIRI+UUID, keeping a client supplied
// IRI as oa:via.
func (s *AnnotationService) Post(ctx context.Context, containerIRI string, body []byte, contentType string) (*model.AnnotationList, error) {
	if s.cfg.IsRootContainer(containerIRI) {
		return nil, waperr.New(waperr.MethodNotAllowed, "Post annotation to the root container not allowed")
	}
	if err := s.exists(ctx, containerIRI); err != nil {
		return nil, err
	}
	ds, err := s.parse(ctx, body, contentType, waperr.NotAnAnnotation)
	if err != nil {
		return nil, err
	}
	list, err := model.ParseAnnotations(ds)
	if err != nil {
		return nil, err
	}
	if list.Len() > 1 && !s.cfg.MultipleAnnotationPost {
		return nil, waperr.New(waperr.MethodNotAllowed, "Multiple annotation posting is disabled")
	}
	now := s.now()
	for _, a := range list.Annotations {
		if !a.HasTarget() {
			return nil, waperr.New(waperr.NotAnAnnotation, "The Annotation has no Target.")
		}
		a.SetIRI(containerIRI+uuid.NewString(), true)
		a.SetCreated(now)
	}

	err = s.store.Write(ctx, func(tx store.Tx) error {
		c, err := s.updateContainer(tx, containerIRI, func(c *model.Container) error {
			for _, a := range list.Annotations {
				if err := s.addAnnotation(tx, a); err != nil {
					return err
				}
				if err := c.AddAnnotation(a.IRIString()); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		list.ContainerIRI = containerIRI
		list.ContainerTag = c.ETag()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"container": containerIRI, "count": list.Len()}).Info("annotations created")
	return list, nil
}

func (s *AnnotationService) addAnnotation(tx store.Tx, a *model.Annotation) error {
	iri := a.IRIString()
	if tx.Has(iri) {
		g, err := tx.Graph(iri)
		if err == nil && model.IsDeletedIn(g, a.IRI()) {
			return waperr.New(waperr.ResourceDeleted,
				"The Annotation '%s' already existed and can not be recreated.", iri)
		}
		return waperr.New(waperr.ResourceExists,
			"The annotation with IRI '%s' already exists in the database. Please check an try PUT to update.", iri)
	}
	a.Touch(s.now())
	if err := tx.Put(iri, a.ToGraph()); err != nil {
		return storeError(iri, err)
	}
	return nil
}

// Put replaces the annotation at iri with the one in body. tag must match
// the stored ETag. The IRI, oa:canonical and oa:via cannot change.
func (s *AnnotationService) Put(ctx context.Context, iri string, body []byte, contentType, tag string) (*model.Annotation, error) {
	if err := s.exists(ctx, iri); err != nil {
		return nil, err
	}
	ds, err := s.parse(ctx, body, contentType, waperr.NotAnAnnotation)
	if err != nil {
		return nil, err
	}
	list, err := model.ParseAnnotations(ds)
	if err != nil {
		return nil, err
	}
	if list.Len() != 1 {
		return nil, waperr.New(waperr.NotAnAnnotation, "A PUT request must contain exactly one annotation")
	}
	updated := list.Annotations[0]

	err = s.store.Write(ctx, func(tx store.Tx) error {
		g, err := checkExistsAndNotDeleted(tx, iri)
		if err != nil {
			return err
		}
		existing, err := model.NewAnnotation(g)
		if err != nil {
			return err
		}
		if existing.ETag() != tag {
			return waperr.New(waperr.EtagMismatch,
				"ETag mismatch : provided ETag : %s , DB ETag : %s", tag, existing.QuotedETag())
		}
		if updated.IRIString() != iri {
			return waperr.New(waperr.UnallowedPropertyChange, "The IRI cannot change with a PUT requests")
		}
		if existing.HasProperty(vocab.Canonical) && !existing.SameValue(&updated.Object, vocab.Canonical) {
			return waperr.New(waperr.UnallowedPropertyChange, "canonical property cannot change")
		}
		if existing.HasProperty(vocab.Via) && !existing.SameValues(&updated.Object, vocab.Via) {
			return waperr.New(waperr.UnallowedPropertyChange, "via properties cannot change")
		}
		if !updated.HasTarget() {
			return waperr.New(waperr.NotAnAnnotation, "The Annotation has no Target.")
		}
		updated.Touch(s.now())
		if err := tx.Put(iri, updated.ToGraph()); err != nil {
			return storeError(iri, err)
		}
		_, err = s.updateContainer(tx, model.ParentIRI(iri), nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"iri": iri, "etag": updated.ETag()}).Info("annotation updated")
	return updated, nil
}

// Delete soft-deletes the annotation at iri and unlinks it from its
// container. tag must match the stored ETag.
func (s *AnnotationService) Delete(ctx context.Context, iri, tag string) error {
	if err := s.exists(ctx, iri); err != nil {
		return err
	}
	err := s.store.Write(ctx, func(tx store.Tx) error {
		g, err := checkExistsAndNotDeleted(tx, iri)
		if err != nil {
			return err
		}
		if err := s.checkEtag(g, iri, tag); err != nil {
			return err
		}
		return s.deleteObject(tx, iri, g)
	})
	if err != nil {
		return err
	}
	s.log.WithField("iri", iri).Info("annotation deleted")
	return nil
}
