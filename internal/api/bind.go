package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/RexQian/wcf-gateway/internal/wcf"
)

// handler is an endpoint body once its input has been bound.
type handler[P, R any] func(ctx context.Context, in P) (R, error)

// none is the input of endpoints that take no parameters.
type none struct{}

// bindNone serves an endpoint without input.
func bindNone[R any](h handler[none, R]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := h(r.Context(), none{})
		writeEnvelope(w, result, err)
	}
}

// bindPath serves an endpoint whose input is the named path segment.
func bindPath[R any](name string, h handler[string, R]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value := chi.URLParam(r, name)
		if value == "" {
			writeBadRequest(w, "missing path parameter "+name)
			return
		}
		result, err := h(r.Context(), value)
		writeEnvelope(w, result, err)
	}
}

// bindQuery serves an endpoint whose input is parsed from the query string.
func bindQuery[P, R any](parse func(q *query) P, h handler[P, R]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := parseQuery(r, parse)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		result, err := h(r.Context(), in)
		writeEnvelope(w, result, err)
	}
}

// bindJSON serves an endpoint whose input is the JSON request body.
func bindJSON[P, R any](h handler[P, R]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in P
		if err := decodeJSON(r, &in); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		result, err := h(r.Context(), in)
		writeEnvelope(w, result, err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// ─── Backend adapters ──────────────────────────────────────────────

// describe prefixes err with the operation description.
func describe(desc string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s failed: %w", desc, err)
}

// guarded0 adapts a parameterless Client method into a handler that makes
// one guarded call.
func guarded0[R any](g *wcf.Guard, op, desc string, method func(wcf.Client, context.Context) (R, error)) handler[none, R] {
	return func(ctx context.Context, _ none) (R, error) {
		result, err := wcf.Call(ctx, g, op, func(ctx context.Context, c wcf.Client) (R, error) {
			return method(c, ctx)
		})
		return result, describe(desc, err)
	}
}

// guarded adapts a one-argument Client method into a handler that makes
// one guarded call.
func guarded[P, R any](g *wcf.Guard, op, desc string, method func(wcf.Client, context.Context, P) (R, error)) handler[P, R] {
	return func(ctx context.Context, in P) (R, error) {
		result, err := wcf.Call(ctx, g, op, func(ctx context.Context, c wcf.Client) (R, error) {
			return method(c, ctx, in)
		})
		return result, describe(desc, err)
	}
}

// ─── Query strings ─────────────────────────────────────────────────

// query reads typed values from a query string, collecting every problem.
type query struct {
	values url.Values
	errs   []string
}

func parseQuery[P any](r *http.Request, parse func(q *query) P) (P, error) {
	q := &query{values: r.URL.Query()}
	in := parse(q)
	if len(q.errs) > 0 {
		var zero P
		return zero, errors.New(strings.Join(q.errs, "; "))
	}
	return in, nil
}

// lookup returns the first of names present in the query.
func (q *query) lookup(names ...string) (string, bool) {
	for _, name := range names {
		if _, ok := q.values[name]; ok {
			return q.values.Get(name), true
		}
	}
	return "", false
}

// Required returns a required string. Aliases are tried in order.
func (q *query) Required(name string, aliases ...string) string {
	v, ok := q.lookup(append([]string{name}, aliases...)...)
	if !ok {
		q.errs = append(q.errs, "missing query parameter "+name)
	}
	return v
}

// Optional returns a string or "" if absent.
func (q *query) Optional(name string) string {
	v, _ := q.lookup(name)
	return v
}

// Uint64 returns a required unsigned integer.
func (q *query) Uint64(name string) uint64 {
	return q.uint(name, 64)
}

// Uint8 returns a required unsigned integer in [0, 255].
func (q *query) Uint8(name string) uint8 {
	return uint8(q.uint(name, 8)) // #nosec G115 -- ParseUint bounded it to 8 bits
}

func (q *query) uint(name string, bits int) uint64 {
	raw, ok := q.lookup(name)
	if !ok {
		q.errs = append(q.errs, "missing query parameter "+name)
		return 0
	}
	v, err := strconv.ParseUint(raw, 10, bits)
	if err != nil {
		q.errs = append(q.errs, fmt.Sprintf("invalid query parameter %s: %q", name, raw))
		return 0
	}
	return v
}
