package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/attrhub/attrhub-go/pkg/accessor"
	"github.com/attrhub/attrhub-go/pkg/executor"
	"github.com/attrhub/attrhub-go/pkg/repository"
	"github.com/attrhub/attrhub-go/pkg/types"
)

// DefaultBulkTimeout bounds GET /api/v1/resources/{resource}.
const DefaultBulkTimeout = 5 * time.Second

// API serves attribute values over HTTP.
//
//	GET /api/v1/resources                      resource names
//	GET /api/v1/resources/{resource}           all readable values
//	GET /api/v1/resources/{resource}/{id}      one value
//	PUT /api/v1/resources/{resource}/{id}      write one value (JSON body)
type API struct {
	node        *Node
	exec        executor.Executor
	bulkTimeout time.Duration
}

// NewAPI creates the HTTP API of n. Bulk reads run on exec.
func NewAPI(n *Node, exec executor.Executor) *API {
	return &API{node: n, exec: exec, bulkTimeout: DefaultBulkTimeout}
}

// Register adds the API routes to mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/resources", a.handleResources)
	mux.HandleFunc("GET /api/v1/resources/{resource}", a.handleValues)
	mux.HandleFunc("GET /api/v1/resources/{resource}/{id}", a.handleGet)
	mux.HandleFunc("PUT /api/v1/resources/{resource}/{id}", a.handleSet)
}

func (a *API) handleResources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"node": a.node.ID(), "resources": a.node.Resources()})
}

func (a *API) handleValues(w http.ResponseWriter, r *http.Request) {
	res := a.node.Resource(r.PathValue("resource"))
	if res == nil {
		writeError(w, http.StatusNotFound, "unknown resource")
		return
	}
	values, err := res.Repository().GetValuesParallel(r.Context(), a.exec, a.bulkTimeout)
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	out := make(map[string]any, len(values))
	for id, v := range values {
		out[id] = render(v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.accessor(w, r)
	if !ok {
		return
	}
	v, err := acc.GetValue(r.Context())
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	attr := acc.Metadata()
	body := map[string]any{"id": acc.Name(), "value": render(v)}
	if attr != nil {
		body["type"] = attr.Type().String()
		if u := attr.Descriptor().Unit(); u != "" {
			body["unit"] = u
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) handleSet(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.accessor(w, r)
	if !ok {
		return
	}
	var value any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&value); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if err := acc.SetValue(r.Context(), value); err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) accessor(w http.ResponseWriter, r *http.Request) (*accessor.Accessor, bool) {
	res := a.node.Resource(r.PathValue("resource"))
	if res == nil {
		writeError(w, http.StatusNotFound, "unknown resource")
		return nil, false
	}
	acc, err := res.Accessor(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return nil, false
	}
	if acc == nil || !acc.Connected() {
		writeError(w, http.StatusNotFound, "unknown attribute")
		return nil, false
	}
	return acc, true
}

// render turns structural values into JSON-friendly shapes.
func render(v any) any {
	switch x := v.(type) {
	case *types.Record:
		out := x.Values()
		for k, fv := range out {
			out[k] = render(fv)
		}
		return out
	case types.Table:
		var rows []any
		_ = x.Each(func(row *types.Record) error {
			rows = append(rows, render(row))
			return nil
		})
		return rows
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = render(e)
		}
		return out
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	return v
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, accessor.ErrDisconnected):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidValue), errors.Is(err, accessor.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotReadable), errors.Is(err, repository.ErrNotWritable),
		errors.Is(err, accessor.ErrReadOnly):
		return http.StatusMethodNotAllowed
	case errors.Is(err, repository.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
