package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/geoknoesis/wap-go/internal/etag"
	"github.com/geoknoesis/wap-go/internal/format"
	"github.com/geoknoesis/wap-go/internal/model"
	"github.com/geoknoesis/wap-go/internal/waperr"
)

// Allowed methods per object kind.
const (
	AllowAnnotation    = "GET,HEAD,OPTIONS,PUT,DELETE"
	AllowContainer     = "GET,HEAD,OPTIONS,POST,DELETE"
	AllowRootContainer = "GET,HEAD,OPTIONS,POST"
	AllowPage          = "GET,HEAD,OPTIONS"
)

// Link headers.
const (
	LinkBasicContainer = `<http://www.w3.org/ns/ldp#BasicContainer>; rel="type"`
	LinkConstrainedBy  = `<http://www.w3.org/TR/annotation-protocol/>; rel="http://www.w3.org/ns/ldp#constrainedBy"`
	LinkResource       = `<http://www.w3.org/ns/ldp#Resource>; rel="type"`
	LinkAnnotation     = `<http://www.w3.org/ns/oa#Annotation>; rel="type"`
)

const (
	msgIllegalPageIRI       = "Page iris must be of this form : CONTAINER_IRI?iris=[0|1]&page=[int>=0], the page parameter is optional"
	msgPageParameters       = "Only iris and page parameters allowed in page requests"
	msgContainerReadParams  = "No parameters allowed in container GET|HEAD|OPTIONS requests beside iris=[0|1]"
	msgContainerWriteParams = "No parameters allowed in container POST|DELETE requests"
	msgAnnotationParams     = "No parameters allowed in annotation requests"
	msgEmptySlug            = "Slug header was empty. To use auto name creation, do not specifiy the header at all"
	msgOnlyBasicContainer   = "Only ldp basic containers allowed for POST"
)

func isContainerPath(r *http.Request) bool {
	return strings.HasSuffix(r.URL.Path, "/")
}

func (s *Server) requestIRI(r *http.Request) string {
	return s.cfg.BaseURL() + r.URL.Path
}

// handleRead serves GET, HEAD and OPTIONS.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	var err error
	switch {
	case !isContainerPath(r):
		err = s.readAnnotation(w, r)
	case r.URL.Query().Has("page"):
		err = s.readPage(w, r)
	default:
		err = s.readContainer(w, r)
	}
	if err != nil {
		s.writeError(w, r, err)
	}
}

func (s *Server) readAnnotation(w http.ResponseWriter, r *http.Request) error {
	if len(r.URL.Query()) > 0 {
		return waperr.New(waperr.InvalidRequest, msgAnnotationParams)
	}
	a, err := s.annotations.Get(r.Context(), s.requestIRI(r))
	if err != nil {
		return err
	}
	h := w.Header()
	h.Set("Allow", AllowAnnotation)
	h.Add("Link", LinkResource)
	h.Add("Link", LinkAnnotation)
	h.Set("Vary", "Accept")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return nil
	}
	h.Set("ETag", a.QuotedETag())
	neg := s.formats.Negotiate(r.Context(), r.Header.Get("Accept"), model.KindAnnotation)
	return s.render(w, r, http.StatusOK, neg.Formatter(), a)
}

func (s *Server) readContainer(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	for key := range q {
		if key != "iris" {
			return waperr.New(waperr.InvalidRequest, msgContainerReadParams)
		}
	}
	prefs, err := model.ParsePrefer(r.Header.Get("Prefer"))
	if err != nil {
		return err
	}
	if q.Has("iris") {
		irisOnly, ok := parseIris(q.Get("iris"))
		if !ok {
			return waperr.New(waperr.InvalidRequest, msgContainerReadParams)
		}
		prefs = prefs.WithIRIs(irisOnly)
	}
	iri := s.requestIRI(r)
	out, err := s.containers.Get(r.Context(), iri, prefs)
	if err != nil {
		return err
	}
	s.containerHeaders(w, iri)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return nil
	}
	w.Header().Set("ETag", out.QuotedETag())
	neg := s.formats.Negotiate(r.Context(), r.Header.Get("Accept"), model.KindContainer)
	return s.render(w, r, http.StatusOK, neg.Formatter(), out)
}

func (s *Server) readPage(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	for key := range q {
		if key != "iris" && key != "page" {
			return waperr.New(waperr.InvalidRequest, msgPageParameters)
		}
	}
	irisOnly, ok := parseIris(q.Get("iris"))
	nr, err := strconv.Atoi(q.Get("page"))
	if !ok || err != nil || nr < 0 {
		return waperr.New(waperr.InvalidRequest, msgIllegalPageIRI)
	}
	page, err := s.containers.GetPage(r.Context(), s.requestIRI(r), irisOnly, nr)
	if err != nil {
		return err
	}
	h := w.Header()
	h.Set("Allow", AllowPage)
	h.Set("Vary", "Accept")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return nil
	}
	neg := s.formats.Negotiate(r.Context(), r.Header.Get("Accept"), model.KindPage)
	return s.render(w, r, http.StatusOK, neg.Formatter(), page)
}

func parseIris(v string) (irisOnly, ok bool) {
	switch v {
	case "1":
		return true, true
	case "0":
		return false, true
	}
	return false, false
}

func (s *Server) containerHeaders(w http.ResponseWriter, iri string) {
	h := w.Header()
	if s.cfg.IsRootContainer(iri) {
		h.Set("Allow", AllowRootContainer)
	} else {
		h.Set("Allow", AllowContainer)
	}
	h.Add("Link", LinkBasicContainer)
	h.Add("Link", LinkConstrainedBy)
	h.Set("Vary", "Accept")
}

// handlePost creates a container when the request carries a Link header,
// otherwise annotations.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	var err error
	switch {
	case !isContainerPath(r):
		err = waperr.New(waperr.MethodNotAllowed, "POST to an annotation IRI is not allowed")
	case len(r.URL.Query()) > 0:
		err = waperr.New(waperr.InvalidRequest, msgContainerWriteParams)
	case len(r.Header.Values("Link")) > 0:
		err = s.postContainer(w, r)
	default:
		err = s.postAnnotations(w, r)
	}
	if err != nil {
		s.writeError(w, r, err)
	}
}

func (s *Server) postContainer(w http.ResponseWriter, r *http.Request) error {
	if !hasBasicContainerLink(r.Header.Values("Link")) {
		return waperr.New(waperr.InvalidContainer, msgOnlyBasicContainer)
	}
	slug := strings.TrimSpace(r.Header.Get("Slug"))
	if _, present := r.Header["Slug"]; present && slug == "" {
		return waperr.New(waperr.InvalidRequest, msgEmptySlug)
	}
	body, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	c, err := s.containers.Post(r.Context(), s.requestIRI(r), slug, body, r.Header.Get("Content-Type"))
	if err != nil {
		return err
	}
	out, err := s.containers.Get(r.Context(), c.IRIString(), model.Preferences{})
	if err != nil {
		return err
	}
	s.containerHeaders(w, c.IRIString())
	w.Header().Set("Location", c.IRIString())
	w.Header().Set("ETag", out.QuotedETag())
	neg := s.formats.Negotiate(r.Context(), r.Header.Get("Accept"), model.KindContainer)
	return s.render(w, r, http.StatusCreated, neg.Formatter(), out)
}

// hasBasicContainerLink looks for the ldp:BasicContainer type link, ignoring
// whitespace.
func hasBasicContainerLink(values []string) bool {
	want := strings.Join(strings.Fields(LinkBasicContainer), "")
	for _, v := range values {
		for _, link := range strings.Split(v, ",") {
			if strings.Join(strings.Fields(link), "") == want {
				return true
			}
		}
	}
	return false
}

func (s *Server) postAnnotations(w http.ResponseWriter, r *http.Request) error {
	body, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	list, err := s.annotations.Post(r.Context(), s.requestIRI(r), body, r.Header.Get("Content-Type"))
	if err != nil {
		return err
	}
	h := w.Header()
	h.Set("Allow", AllowAnnotation)
	h.Add("Link", LinkResource)
	h.Add("Link", LinkAnnotation)
	h.Set("Vary", "Accept")
	h.Set("Location", list.IRI())
	h.Set("ETag", etag.Quote(list.ETag()))
	neg := s.formats.Negotiate(r.Context(), r.Header.Get("Accept"), model.KindAnnotation)
	return s.render(w, r, http.StatusCreated, neg.Formatter(), list)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	if err := s.putAnnotation(w, r); err != nil {
		s.writeError(w, r, err)
	}
}

func (s *Server) putAnnotation(w http.ResponseWriter, r *http.Request) error {
	if isContainerPath(r) {
		return waperr.New(waperr.MethodNotAllowed, "PUT of containers not implemented")
	}
	if len(r.URL.Query()) > 0 {
		return waperr.New(waperr.InvalidRequest, msgAnnotationParams)
	}
	tag, err := ifMatch(r)
	if err != nil {
		return err
	}
	body, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	a, err := s.annotations.Put(r.Context(), s.requestIRI(r), body, r.Header.Get("Content-Type"), tag)
	if err != nil {
		return err
	}
	h := w.Header()
	h.Set("Allow", AllowAnnotation)
	h.Add("Link", LinkResource)
	h.Add("Link", LinkAnnotation)
	h.Set("Vary", "Accept")
	h.Set("ETag", a.QuotedETag())
	neg := s.formats.Negotiate(r.Context(), r.Header.Get("Accept"), model.KindAnnotation)
	return s.render(w, r, http.StatusOK, neg.Formatter(), a)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := func() error {
		if len(r.URL.Query()) > 0 {
			if isContainerPath(r) {
				return waperr.New(waperr.InvalidRequest, msgContainerWriteParams)
			}
			return waperr.New(waperr.InvalidRequest, msgAnnotationParams)
		}
		tag, err := ifMatch(r)
		if err != nil {
			return err
		}
		if isContainerPath(r) {
			return s.containers.Delete(r.Context(), s.requestIRI(r), tag)
		}
		return s.annotations.Delete(r.Context(), s.requestIRI(r), tag)
	}()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ifMatch returns the unquoted ETag of the If-Match header.
func ifMatch(r *http.Request) (string, error) {
	header := r.Header.Get("If-Match")
	if header == "" {
		return "", waperr.New(waperr.EtagMissing, "")
	}
	tag, ok := etag.Unquote(header)
	if !ok {
		return "", waperr.New(waperr.EtagInvalid, "")
	}
	return tag, nil
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		return nil, waperr.Wrap(waperr.InvalidRequest, err, "Cannot read request body")
	}
	return body, nil
}

// render writes obj with f. HEAD responses carry the headers only.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, f format.Formatter, obj format.Formattable) error {
	body, err := f.Render(r.Context(), obj)
	if err != nil {
		return err
	}
	h := w.Header()
	h.Set("Content-Type", f.ContentType())
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = io.WriteString(w, body)
	}
	return nil
}

type errorBody struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	IRI     string `json:"iri"`
	Query   string `json:"query string,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := waperr.HTTPStatus(err)
	entry := s.log.WithError(err).WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	h := w.Header()
	h.Del("ETag")
	h.Del("Content-Length")
	h.Set("Content-Type", "application/json;charset=utf-8")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "   ")
	_ = enc.Encode(errorBody{
		Status:  status,
		Error:   string(waperr.KindOf(err)),
		Message: waperr.UserMessage(err),
		IRI:     s.requestIRI(r),
		Query:   r.URL.RawQuery,
	})
}
