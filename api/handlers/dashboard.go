package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/malbeclabs/salesdash/api/metrics"
	"github.com/malbeclabs/salesdash/dashboard/pkg/chart"
	"github.com/malbeclabs/salesdash/dashboard/pkg/controller"
	"github.com/malbeclabs/salesdash/dashboard/pkg/filter"
	"github.com/malbeclabs/salesdash/ingest/pkg/merge"
)

// Dataset is the loaded sales snapshot the handlers serve.
type Dataset interface {
	controller.Rows
	ID() string
	LoadedAt() time.Time
	Len() int
	Report() merge.Report
}

// Handlers serves the dashboard API for one dataset.
type Handlers struct {
	log  *slog.Logger
	data Dataset
	ctrl *controller.Controller
}

func New(log *slog.Logger, data Dataset) (*Handlers, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if data == nil {
		return nil, errors.New("dataset is required")
	}
	ctrl, err := controller.New(data, controller.NewGraph())
	if err != nil {
		return nil, err
	}
	return &Handlers{log: log, data: data, ctrl: ctrl}, nil
}

// Query parameter names. Multi-valued selections repeat the parameter.
const (
	paramType     = "type"
	paramBrand    = "brand"
	paramProduct  = "product"
	paramStore    = "store"
	paramCustomer = "customer"
)

// ParseCriteria reads the dropdown state from query parameters. Blank values
// are ignored, so "?type=" is the same as no type.
func ParseCriteria(q url.Values) filter.Criteria {
	return filter.Criteria{
		Type:     q.Get(paramType),
		Brands:   q[paramBrand],
		Product:  q.Get(paramProduct),
		Stores:   q[paramStore],
		Customer: q.Get(paramCustomer),
	}.Normalize()
}

// EncodeCriteria is the inverse of ParseCriteria.
func EncodeCriteria(c filter.Criteria) url.Values {
	q := url.Values{}
	set := func(key, v string) {
		if v != "" {
			q.Set(key, v)
		}
	}
	set(paramType, c.Type)
	set(paramProduct, c.Product)
	set(paramCustomer, c.Customer)
	for _, b := range c.Brands {
		q.Add(paramBrand, b)
	}
	for _, s := range c.Stores {
		q.Add(paramStore, s)
	}
	return q
}

// GetDashboard returns every option list and the six charts for a state.
func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	state := ParseCriteria(r.URL.Query())
	if h.notModified(w, r, "dashboard", state) {
		return
	}
	u := h.ctrl.Full(state)
	metrics.RecordFiltered(*u.Matched)
	h.writeJSON(w, http.StatusOK, u)
}

// GetOptions returns the option lists for a state.
func (h *Handlers) GetOptions(w http.ResponseWriter, r *http.Request) {
	state := ParseCriteria(r.URL.Query())
	if h.notModified(w, r, "options", state) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.ctrl.Options(state))
}

// ChartsResponse is the body of GET /api/charts.
type ChartsResponse struct {
	Matched int        `json:"matched"`
	Charts  *chart.Set `json:"charts"`
}

// GetCharts returns the six charts for a state.
func (h *Handlers) GetCharts(w http.ResponseWriter, r *http.Request) {
	state := ParseCriteria(r.URL.Query())
	if h.notModified(w, r, "charts", state) {
		return
	}
	set, n := h.ctrl.Charts(state)
	metrics.RecordFiltered(n)
	h.writeJSON(w, http.StatusOK, ChartsResponse{Matched: n, Charts: &set})
}

// GetChart returns a single chart, named by the {chart} URL parameter.
func (h *Handlers) GetChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "chart")
	id, ok := chart.ParseID(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown chart %q", name))
		return
	}
	state := ParseCriteria(r.URL.Query())
	if h.notModified(w, r, "chart/"+id.String(), state) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.ctrl.Chart(state, id))
}

// UpdateRequest is the body of POST /api/update.
type UpdateRequest struct {
	State   filter.Criteria `json:"state"`
	Changed string          `json:"changed"`
}

// PostUpdate recomputes the outputs downstream of the changed dropdown.
func (h *Handlers) PostUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	changed, ok := filter.ParseStage(req.Changed)
	if !ok {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown dropdown %q", req.Changed))
		return
	}

	u := h.ctrl.Apply(req.State.Normalize(), changed)
	metrics.RecordUpdate(changed.String())
	if u.Matched != nil {
		metrics.RecordFiltered(*u.Matched)
	}
	h.log.Debug("handlers: update", "changed", changed, "outputs", len(u.Outputs()))
	h.writeJSON(w, http.StatusOK, u)
}

// InfoResponse describes the loaded snapshot.
type InfoResponse struct {
	ID       string       `json:"id"`
	LoadedAt time.Time    `json:"loaded_at"`
	Rows     int          `json:"rows"`
	Types    []string     `json:"types"`
	Report   merge.Report `json:"report"`
}

func (h *Handlers) GetInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, InfoResponse{
		ID:       h.data.ID(),
		LoadedAt: h.data.LoadedAt().UTC(),
		Rows:     h.data.Len(),
		Types:    h.ctrl.Types(),
		Report:   h.data.Report(),
	})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	if err := writeJSONStatus(w, status, v); err != nil {
		h.log.Error("handlers: failed to write response", "error", err)
	}
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
