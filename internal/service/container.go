package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/geoknoesis/wap-go/internal/model"
	"github.com/geoknoesis/wap-go/internal/store"
	"github.com/geoknoesis/wap-go/internal/vocab"
	"github.com/geoknoesis/wap-go/internal/waperr"
	"github.com/geoknoesis/wap-go/rdf"
)

// ContainerService reads and writes containers and their pages.
type ContainerService struct {
	*Service
}

// Get returns the client view of the container at iri. Unless a minimal
// container is preferred, the first page is embedded.
func (s *ContainerService) Get(ctx context.Context, iri string, prefs model.Preferences) (*model.OutputContainer, error) {
	var out *model.OutputContainer
	err := s.store.Read(ctx, func(tx store.Tx) error {
		c, err := loadContainer(tx, iri)
		if err != nil {
			return err
		}
		var first *model.Page
		if !prefs.MinimalContainer {
			first, err = s.page(tx, c, 0, prefs.IRIsOnly(), true)
			switch {
			case waperr.Is(err, waperr.NotExistent):
				s.log.WithField("iri", iri).Debug("container is empty, no page embedded")
			case err != nil:
				return err
			}
		}
		out, err = model.NewOutputContainer(c, prefs, s.cfg.PageSize, first)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetPage returns page number pageNr of the container at iri, listing
// annotation IRIs or full annotations.
func (s *ContainerService) GetPage(ctx context.Context, iri string, irisOnly bool, pageNr int) (*model.Page, error) {
	var page *model.Page
	err := s.store.Read(ctx, func(tx store.Tx) error {
		c, err := loadContainer(tx, iri)
		if err != nil {
			return err
		}
		page, err = s.page(tx, c, pageNr, irisOnly, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *ContainerService) page(tx store.Tx, c *model.Container, pageNr int, irisOnly, embedded bool) (*model.Page, error) {
	annos, err := c.AnnotationIRIs()
	if err != nil {
		return nil, err
	}
	spec := model.PageSpec{
		ContainerIRI: c.IRIString(),
		Number:       pageNr,
		Size:         s.cfg.PageSize,
		Total:        len(annos),
		IRIsOnly:     irisOnly,
		Embedded:     embedded,
	}
	if v, ok := c.Value(vocab.Modified); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			spec.Modified = t
		}
	}
	if label, ok := c.Label(); ok {
		spec.Label = label
	}
	page, err := model.NewPage(spec)
	if err != nil {
		return nil, err
	}
	first, last, err := model.PageBounds(spec.Total, spec.Size, pageNr)
	if err != nil {
		return nil, err
	}
	for _, iri := range annos[first-1 : last] {
		if irisOnly {
			err = page.AddAnnotationIRI(iri)
		} else {
			err = s.addDescription(tx, page, iri)
		}
		if err != nil {
			return nil, err
		}
	}
	page.Close()
	return page, nil
}

func (s *ContainerService) addDescription(tx store.Tx, page *model.Page, iri string) error {
	g, err := checkExistsAndNotDeleted(tx, iri)
	if err != nil {
		return err
	}
	anno, err := model.NewAnnotation(g)
	if err != nil {
		return err
	}
	return page.AddAnnotation(anno)
}

// Post creates a container below parentIRI. slug names it; without a slug a
// UUID is used. A soft-deleted container can only be re-created through its
// slug, which erases the old one.
func (s *ContainerService) Post(ctx context.Context, parentIRI, slug string, body []byte, contentType string) (*model.Container, error) {
	overwriteDeleted := slug != ""
	name := slug
	if name == "" {
		if s.cfg.MandatorySlugInContainerPost {
			return nil, waperr.New(waperr.InvalidRequest, "A Slug header is mandatory when posting containers")
		}
		name = uuid.NewString()
		s.log.WithField("name", name).Debug("no slug given, using generated name")
	}
	if !IsValidName(name) {
		s.log.WithField("slug", name).Warn("invalid container name")
		return nil, waperr.New(waperr.InvalidRequest, "Invalid characters in container name")
	}
	if err := s.exists(ctx, parentIRI); err != nil {
		return nil, err
	}
	ds, err := s.parse(ctx, body, contentType, waperr.NotAContainer)
	if err != nil {
		return nil, err
	}
	iri := parentIRI + name + "/"
	c, err := model.NewContainer(ds.Union(), iri)
	if err != nil {
		return nil, err
	}
	if _, ok := c.Label(); !ok {
		if s.cfg.MandatoryLabelInContainers {
			return nil, waperr.New(waperr.InvalidContainer, "label property is mandatory for containers")
		}
		c.CreateDefaultLabel()
	}

	err = s.store.Write(ctx, func(tx store.Tx) error {
		if err := s.clearSlot(tx, iri, overwriteDeleted); err != nil {
			return err
		}
		now := s.now()
		c.SetCreated(now)
		c.Touch(now)
		if err := tx.Put(iri, c.ToGraph()); err != nil {
			return storeError(iri, err)
		}
		_, err := s.updateContainer(tx, parentIRI, func(parent *model.Container) error {
			return parent.AddSubContainer(iri)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"iri": iri, "etag": c.ETag()}).Info("container created")
	return c, nil
}

// clearSlot makes sure nothing lives at iri, erasing a deleted container
// when overwriteDeleted is set.
func (s *ContainerService) clearSlot(tx store.Tx, iri string, overwriteDeleted bool) error {
	if !tx.Has(iri) {
		return nil
	}
	_, err := checkExistsAndNotDeleted(tx, iri)
	switch {
	case err == nil:
		return waperr.New(waperr.ResourceExists, "A container with that IRI already exists")
	case !waperr.Is(err, waperr.ResourceDeleted):
		return err
	case !overwriteDeleted:
		return waperr.New(waperr.ResourceDeleted,
			"A container with that IRI once existed and is now deleted. Recreation is forbidden.")
	}
	s.log.WithField("iri", iri).Info("slug re-creates deleted container, erasing old data")
	if err := tx.Remove(iri); err != nil {
		return storeError(iri, err)
	}
	return nil
}

// Delete soft-deletes the container at iri together with all of its
// annotations. Containers with sub containers cannot be deleted.
func (s *ContainerService) Delete(ctx context.Context, iri, tag string) error {
	if s.cfg.IsRootContainer(iri) {
		return waperr.New(waperr.MethodNotAllowed, "The root container cannot be deleted")
	}
	var count int
	err := s.store.Write(ctx, func(tx store.Tx) error {
		g, err := checkExistsAndNotDeleted(tx, iri)
		if err != nil {
			return err
		}
		if err := s.checkEtag(g, iri, tag); err != nil {
			return err
		}
		c, err := model.NewContainer(g.Clone(), "")
		if err != nil {
			return err
		}
		subs, err := c.SubContainers()
		if err != nil {
			return err
		}
		if len(subs) > 0 {
			s.log.WithField("iri", iri).Warn("container has sub containers, delete aborted")
			return waperr.New(waperr.ContainerNotEmpty, "The container has subcontainers and cannot be deleted")
		}
		annos, err := c.AnnotationIRIs()
		if err != nil {
			return err
		}
		for _, anno := range annos {
			ag, err := tx.Graph(anno)
			if err != nil {
				s.log.WithError(err).WithField("iri", anno).Warn("listed annotation is missing")
				continue
			}
			model.MarkDeletedIn(ag, rdf.NewIRI(anno))
			if err := tx.Put(anno, ag); err != nil {
				return storeError(anno, err)
			}
		}
		count = len(annos)
		if err := c.ClearAnnotations(); err != nil {
			return err
		}
		return s.deleteObject(tx, iri, c.ToGraph())
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"iri": iri, "annotations": count}).Info("container deleted")
	return nil
}

// IsValidName reports whether name only uses letters, digits, '-' and '_'.
func IsValidName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
