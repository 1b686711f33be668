package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/geoknoesis/wap-go/internal/model"
	"github.com/geoknoesis/wap-go/internal/vocab"
	"github.com/geoknoesis/wap-go/rdf"
)

// ErrProfileUnavailable is returned when a context can neither be served
// from the cache nor downloaded.
var ErrProfileUnavailable = errors.New("profile not available")

// documentLoader serves cached profiles to the JSON-LD processor. Unknown
// URLs are cached on first use.
type documentLoader struct {
	cache *Cache
}

// DocumentLoader returns a loader backed by the cache.
func (c *Cache) DocumentLoader() rdf.DocumentLoader {
	return documentLoader{cache: c}
}

func (l documentLoader) LoadDocument(ctx context.Context, iri string) (rdf.RemoteDocument, error) {
	data, ok := l.cache.document(iri)
	if !ok {
		if !l.cache.CacheProfile(ctx, iri) {
			return rdf.RemoteDocument{}, fmt.Errorf("%w: %s", ErrProfileUnavailable, iri)
		}
		data, _ = l.cache.document(iri)
	}
	doc, err := rdf.ReadJSON(bytes.NewReader(data))
	if err != nil {
		return rdf.RemoteDocument{}, err
	}
	return rdf.RemoteDocument{DocumentURL: iri, Document: doc}, nil
}

// Options returns JSON-LD options resolving contexts through the cache.
func (c *Cache) Options() rdf.JSONLDOptions {
	return rdf.JSONLDOptions{DocumentLoader: c.DocumentLoader()}
}

// ExpandJSONLD expands doc with contexts served from the cache.
func (c *Cache) ExpandJSONLD(ctx context.Context, doc interface{}) ([]interface{}, error) {
	return rdf.ExpandJSONLD(ctx, doc, c.Options())
}

var builtinFrameTypes = map[model.Kind]string{
	model.KindAnnotation: vocab.Annotation.Value,
	model.KindContainer:  vocab.BasicContainer.Value,
	model.KindPage:       vocab.OrderedCollectionPage.Value,
}

// Frame returns the JSON-LD frame used to render kind. A FRAME_<KIND>.jsonld
// file in the frame folder overrides the built-in frame. Every call returns
// a fresh document.
func (c *Cache) Frame(kind model.Kind) (interface{}, error) {
	path := filepath.Join(c.frameFolder, "FRAME_"+string(kind)+".jsonld")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		frame, err := rdf.ReadJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("frame %s: %w", path, err)
		}
		return frame, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read frame %s: %w", path, err)
	}

	typ, ok := builtinFrameTypes[kind]
	if !ok {
		return nil, fmt.Errorf("no frame for %s", kind)
	}
	return map[string]interface{}{
		"@type": []interface{}{typ},
	}, nil
}
