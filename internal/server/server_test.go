package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoknoesis/wap-go/internal/config"
	"github.com/geoknoesis/wap-go/internal/format"
	"github.com/geoknoesis/wap-go/internal/model"
	"github.com/geoknoesis/wap-go/internal/service"
	"github.com/geoknoesis/wap-go/internal/store"
	"github.com/geoknoesis/wap-go/internal/vocab"
	"github.com/geoknoesis/wap-go/rdf"
)

const (
	turtle   = "text/turtle"
	prefixes = `@prefix oa: <http://www.w3.org/ns/oa#> .
@prefix ldp: <http://www.w3.org/ns/ldp#> .
@prefix as: <http://www.w3.org/ns/activitystreams#> .
`
	containerBody  = prefixes + "_:c a ldp:BasicContainer, as:OrderedCollection .\n"
	annotationBody = prefixes + "<http://example.org/a> a oa:Annotation ; oa:hasTarget <http://example.org/t> .\n"
)

// inlineProfiles serves minimal anno and ldp contexts.
type inlineProfiles struct{}

var inlineContexts = map[string]string{
	vocab.AnnoContext: `{"@context": {"id": "@id", "type": "@type",
		"oa": "http://www.w3.org/ns/oa#", "as": "http://www.w3.org/ns/activitystreams#",
		"Annotation": "oa:Annotation", "target": {"@id": "oa:hasTarget", "@type": "@id"},
		"total": "as:totalItems"}}`,
	vocab.LDPContext: `{"@context": {"ldp": "http://www.w3.org/ns/ldp#", "BasicContainer": "ldp:BasicContainer"}}`,
}

func (inlineProfiles) CacheProfile(_ context.Context, url string) bool {
	_, ok := inlineContexts[url]
	return ok
}

func (p inlineProfiles) Options() rdf.JSONLDOptions {
	return rdf.JSONLDOptions{DocumentLoader: p}
}

func (inlineProfiles) LoadDocument(_ context.Context, url string) (rdf.RemoteDocument, error) {
	doc, err := rdf.ReadJSON(strings.NewReader(inlineContexts[url]))
	if err != nil {
		return rdf.RemoteDocument{}, err
	}
	return rdf.RemoteDocument{DocumentURL: url, Document: doc}, nil
}

func (inlineProfiles) Frame(kind model.Kind) (interface{}, error) {
	types := map[model.Kind]string{
		model.KindAnnotation: vocab.Annotation.Value,
		model.KindContainer:  vocab.BasicContainer.Value,
		model.KindPage:       vocab.OrderedCollectionPage.Value,
	}
	return map[string]interface{}{"@type": []interface{}{types[kind]}}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.PageSize = 2
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	formats := format.NewRegistry(cfg, inlineProfiles{}, logger)
	svc := service.New(cfg, store.NewMemory(), formats, logger)
	require.NoError(t, svc.InitRoot(context.Background()))
	return New(cfg, svc, formats, logger)
}

func do(t *testing.T, s *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func postContainer(t *testing.T, s *Server, parent, slug string) *httptest.ResponseRecorder {
	t.Helper()
	rec := do(t, s, http.MethodPost, parent, containerBody, map[string]string{
		"Content-Type": turtle,
		"Accept":       turtle,
		"Link":         LinkBasicContainer,
		"Slug":         slug,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return rec
}

func postAnnotation(t *testing.T, s *Server, container string) *httptest.ResponseRecorder {
	t.Helper()
	rec := do(t, s, http.MethodPost, container, annotationBody, map[string]string{
		"Content-Type": turtle,
		"Accept":       turtle,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return rec
}

func TestGetRootContainer(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/wap/", "", map[string]string{"Accept": turtle})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `"`+service.RootETag+`"`, rec.Header().Get("ETag"))
	assert.Equal(t, AllowRootContainer, rec.Header().Get("Allow"))
	assert.Equal(t, "Accept", rec.Header().Get("Vary"))
	assert.Equal(t, []string{LinkBasicContainer, LinkConstrainedBy}, rec.Header().Values("Link"))
	assert.Equal(t, "text/turtle;charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "ldp:BasicContainer")
	assert.Contains(t, rec.Body.String(), service.RootLabel)

	rec = do(t, s, http.MethodOptions, "/wap/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
	assert.Empty(t, rec.Body.String())

	rec = do(t, s, http.MethodHead, "/wap/", "", map[string]string{"Accept": turtle})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Body.String())
}

func TestGetRootContainerDefaultsToJSONLD(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/wap/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t,
		`application/ld+json;profile="http://www.w3.org/ns/ldp.jsonld http://www.w3.org/ns/anno.jsonld";charset=utf-8`,
		rec.Header().Get("Content-Type"))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc), rec.Body.String())
	assert.Equal(t, []interface{}{vocab.LDPContext, vocab.AnnoContext}, doc["@context"])
}

func TestAnnotationLifecycle(t *testing.T) {
	s := newTestServer(t)
	rec := postContainer(t, s, "/wap/", "notes")
	assert.Equal(t, "http://localhost:8080/wap/notes/", rec.Header().Get("Location"))
	assert.Equal(t, AllowContainer, rec.Header().Get("Allow"))

	rec = postAnnotation(t, s, "/wap/notes/")
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "http://localhost:8080/wap/notes/"), location)
	tag := rec.Header().Get("ETag")
	path := strings.TrimPrefix(location, "http://localhost:8080")

	rec = do(t, s, http.MethodGet, path, "", map[string]string{"Accept": "application/n-quads"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tag, rec.Header().Get("ETag"))
	assert.Equal(t, AllowAnnotation, rec.Header().Get("Allow"))
	assert.Equal(t, []string{LinkResource, LinkAnnotation}, rec.Header().Values("Link"))
	assert.Contains(t, rec.Body.String(), "<"+location+"> <http://www.w3.org/ns/oa#hasTarget> <http://example.org/t> .")

	update := prefixes + "<" + location + "> a oa:Annotation ; oa:via <http://example.org/a> ; oa:hasTarget <http://example.org/u> .\n"
	rec = do(t, s, http.MethodPut, path, update, map[string]string{"Content-Type": turtle})
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	rec = do(t, s, http.MethodPut, path, update, map[string]string{"Content-Type": turtle, "If-Match": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, s, http.MethodPut, path, update, map[string]string{"Content-Type": turtle, "If-Match": `"stale"`})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	rec = do(t, s, http.MethodPut, path, update, map[string]string{"Content-Type": turtle, "If-Match": tag, "Accept": turtle})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	newTag := rec.Header().Get("ETag")
	assert.NotEqual(t, tag, newTag)

	rec = do(t, s, http.MethodDelete, path, "", map[string]string{"If-Match": tag})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	rec = do(t, s, http.MethodDelete, path, "", map[string]string{"If-Match": newTag})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "RESOURCE_DELETED", body.Error)
	assert.Equal(t, "The requested annotation has already been deleted.", body.Message)
}

func TestPages(t *testing.T) {
	s := newTestServer(t)
	postContainer(t, s, "/wap/", "notes")
	for i := 0; i < 3; i++ {
		postAnnotation(t, s, "/wap/notes/")
	}

	rec := do(t, s, http.MethodGet, "/wap/notes/?iris=1&page=1", "", map[string]string{"Accept": turtle})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, AllowPage, rec.Header().Get("Allow"))
	assert.Contains(t, rec.Body.String(), "as:OrderedCollectionPage")
	assert.Contains(t, rec.Body.String(), "<http://localhost:8080/wap/notes/?iris=1&page=0>")

	rec = do(t, s, http.MethodGet, "/wap/notes/?iris=1&page=2", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for target, msg := range map[string]string{
		"/wap/notes/?iris=2&page=0":     msgIllegalPageIRI,
		"/wap/notes/?iris=1&page=-1":    msgIllegalPageIRI,
		"/wap/notes/?page=0":            msgIllegalPageIRI,
		"/wap/notes/?iris=1&page=0&x=1": msgPageParameters,
		"/wap/notes/?x=1":               msgContainerReadParams,
	} {
		rec = do(t, s, http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, msg, decodeError(t, rec).Message, target)
	}

	rec = do(t, s, http.MethodGet, "/wap/notes/?iris=1", "", map[string]string{"Accept": turtle})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<http://localhost:8080/wap/notes/?iris=1&page=1>")

	rec = do(t, s, http.MethodGet, "/wap/notes/", "", map[string]string{
		"Accept": turtle,
		"Prefer": `return=representation;include="http://www.w3.org/ns/oa#PreferContainedIRIs http://www.w3.org/ns/oa#PreferContainedDescriptions"`,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContainerDelete(t *testing.T) {
	s := newTestServer(t)
	postContainer(t, s, "/wap/", "parent")
	postContainer(t, s, "/wap/parent/", "child")

	rec := do(t, s, http.MethodGet, "/wap/parent/", "", map[string]string{"Accept": turtle})
	tag := rec.Header().Get("ETag")
	rec = do(t, s, http.MethodDelete, "/wap/parent/", "", map[string]string{"If-Match": tag})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "CONTAINER_NOT_EMPTY", decodeError(t, rec).Error)

	rec = do(t, s, http.MethodGet, "/wap/parent/child/", "", map[string]string{"Accept": turtle})
	rec = do(t, s, http.MethodDelete, "/wap/parent/child/", "", map[string]string{"If-Match": rec.Header().Get("ETag")})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodDelete, "/wap/parent/?x=1", "", map[string]string{"If-Match": tag})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgContainerWriteParams, decodeError(t, rec).Message)
}

func TestRejectedRequests(t *testing.T) {
	s := newTestServer(t)
	postContainer(t, s, "/wap/", "notes")

	tests := []struct {
		name    string
		method  string
		target  string
		headers map[string]string
		status  int
		kind    string
	}{
		{"annotation to root", http.MethodPost, "/wap/", map[string]string{"Content-Type": turtle}, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"post to annotation", http.MethodPost, "/wap/notes/x", map[string]string{"Content-Type": turtle}, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"put container", http.MethodPut, "/wap/notes/", map[string]string{"If-Match": `"x"`}, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"wrong link", http.MethodPost, "/wap/", map[string]string{"Link": LinkResource}, http.StatusBadRequest, "INVALID_CONTAINER"},
		{"empty slug", http.MethodPost, "/wap/", map[string]string{"Link": LinkBasicContainer, "Slug": " "}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad slug", http.MethodPost, "/wap/", map[string]string{"Link": LinkBasicContainer, "Slug": "a.b", "Content-Type": turtle}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"duplicate slug", http.MethodPost, "/wap/", map[string]string{"Link": LinkBasicContainer, "Slug": "notes", "Content-Type": turtle}, http.StatusConflict, "RESOURCE_EXISTS"},
		{"media type", http.MethodPost, "/wap/notes/", map[string]string{"Content-Type": "image/png"}, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
		{"missing", http.MethodGet, "/wap/missing", nil, http.StatusNotFound, "NOT_EXISTENT"},
		{"annotation params", http.MethodGet, "/wap/notes/x?a=1", nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unsupported method", http.MethodPatch, "/wap/notes/", nil, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := annotationBody
			if tt.headers["Link"] != "" {
				body = containerBody
			}
			rec := do(t, s, tt.method, tt.target, body, tt.headers)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			got := decodeError(t, rec)
			assert.Equal(t, tt.kind, got.Error)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, "application/json;charset=utf-8", rec.Header().Get("Content-Type"))
		})
	}

	rec := do(t, s, http.MethodGet, "/wap/missing", "", nil)
	assert.Equal(t, "The requested annotation does not exist.", decodeError(t, rec).Message)
	assert.Equal(t, "http://localhost:8080/wap/missing", decodeError(t, rec).IRI)
}
