package format

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/geoknoesis/wap-go/internal/model"
)

const defaultQ = 1.0

// ParsePart matches one Accept part against the registered format strings
// and returns a configured formatter and its q value. Wildcards select
// JSON-LD. A malformed q value is ignored.
func (r *Registry) ParsePart(ctx context.Context, part string, kind model.Kind) (Formatter, float64, error) {
	part = strings.TrimSpace(part)
	for _, wildcard := range []string{"*/*", "application/*"} {
		if strings.HasPrefix(part, wildcard) {
			part = JSONLD.MediaType() + part[len(wildcard):]
			break
		}
	}
	lower := strings.ToLower(part)
	for _, formatString := range r.FormatStrings() {
		if !strings.HasPrefix(lower, formatString) {
			continue
		}
		rest := strings.TrimSpace(part[len(formatString):])
		if rest != "" && !strings.HasPrefix(rest, ";") {
			// a longer media type sharing the prefix
			continue
		}
		params, q := extractQ(strings.TrimPrefix(rest, ";"))
		f, err := r.NewFormatter(formatString)
		if err != nil {
			return nil, 0, err
		}
		if err := f.SetAcceptPart(ctx, params, kind); err != nil {
			return nil, 0, err
		}
		return f, q, nil
	}
	return nil, 0, ErrUnknownFormat
}

// extractQ removes the q parameter from params and returns it. A q value
// that is not a number in [0, 1] is ignored.
func extractQ(params string) (string, float64) {
	q := defaultQ
	var kept []string
	for _, p := range strings.Split(params, ";") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if v, ok := strings.CutPrefix(p, "q="); ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 && parsed <= 1 {
				q = parsed
			}
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ";"), q
}

// Negotiator holds the formatters acceptable to a client, best first.
type Negotiator struct {
	candidates     []Formatter
	clientSelected bool
}

// Negotiate ranks the parts of accept. Parts no formatter can serve and
// parts with q=0 are dropped; equal weights keep header order. Without an
// acceptable part, or with negotiation disabled, the default JSON-LD
// formatter is used.
func (r *Registry) Negotiate(ctx context.Context, accept string, kind model.Kind) *Negotiator {
	n := &Negotiator{}
	if r.negotiation && strings.TrimSpace(accept) != "" {
		type weighted struct {
			f Formatter
			q float64
		}
		var ranked []weighted
		for _, part := range strings.Split(accept, ",") {
			f, q, err := r.ParsePart(ctx, part, kind)
			if err != nil {
				r.log.WithError(err).WithField("part", strings.TrimSpace(part)).Debug("accept part skipped")
				continue
			}
			if q <= 0 {
				continue
			}
			ranked = append(ranked, weighted{f, q})
		}
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].q > ranked[j].q })
		for _, w := range ranked {
			n.candidates = append(n.candidates, w.f)
		}
	}
	if len(n.candidates) > 0 {
		n.clientSelected = true
		return n
	}
	n.candidates = []Formatter{r.DefaultFormatter(ctx, kind)}
	return n
}

// Formatter returns the best formatter.
func (n *Negotiator) Formatter() Formatter { return n.candidates[0] }

// Candidates returns every acceptable formatter, best first.
func (n *Negotiator) Candidates() []Formatter { return append([]Formatter(nil), n.candidates...) }

// ClientSelected reports whether the formatter came from the Accept header
// rather than the default.
func (n *Negotiator) ClientSelected() bool { return n.clientSelected }
