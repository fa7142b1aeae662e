package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// MaxEventLimit caps the limit query parameter.
const MaxEventLimit = 1000

// EventHandler serves the gesture event log.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates a new EventHandler with the given store.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

// ServeHTTP routes /api/events, /api/events/counts and /api/events/chart.
// DELETE /api/events?before= prunes old events.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete && strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/events"), "/") == "" {
		h.prune(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, err := parseEventFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/events")
	switch strings.Trim(path, "/") {
	case "":
		h.list(w, filter)
	case "counts":
		h.counts(w, filter)
	case "chart":
		h.chart(w, filter)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type listEventsResponse struct {
	Events []*store.Event `json:"events"`
}

type pruneResponse struct {
	Deleted int64 `json:"deleted"`
}

type countsResponse struct {
	Counts map[string]int `json:"counts"`
}

// parseEventFilter reads kind, gesture, session, since and limit from the
// query string. since accepts RFC 3339 or unix milliseconds.
func parseEventFilter(r *http.Request) (store.EventFilter, error) {
	q := r.URL.Query()
	f := store.EventFilter{
		Gesture:   q.Get("gesture"),
		SessionID: q.Get("session"),
	}

	switch kind := store.EventKind(q.Get("kind")); kind {
	case "", store.EventConfirmed, store.EventFired:
		f.Kind = kind
	default:
		return f, fmt.Errorf("invalid kind %q", kind)
	}

	if f.Gesture != "" {
		if _, err := gesture.ParseLabel(f.Gesture); err != nil {
			return f, fmt.Errorf("invalid gesture %q", f.Gesture)
		}
	}

	if s := q.Get("since"); s != "" {
		t, err := parseTime(s)
		if err != nil {
			return f, fmt.Errorf("invalid since %q", s)
		}
		f.Since = t
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return f, fmt.Errorf("invalid limit %q", s)
		}
		f.Limit = min(n, MaxEventLimit)
	}

	return f, nil
}

// parseTime accepts unix milliseconds or RFC 3339.
func parseTime(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Parse(time.RFC3339, s)
}

// prune handles DELETE /api/events?before=, removing older events.
func (h *EventHandler) prune(w http.ResponseWriter, r *http.Request) {
	s := r.URL.Query().Get("before")
	if s == "" {
		writeError(w, http.StatusBadRequest, "before is required")
		return
	}
	before, err := parseTime(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid before %q", s))
		return
	}

	n, err := h.store.Events().DeleteBefore(before)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to prune events")
		return
	}
	writeJSON(w, http.StatusOK, pruneResponse{Deleted: n})
}

// list handles GET /api/events, newest first.
func (h *EventHandler) list(w http.ResponseWriter, f store.EventFilter) {
	events, err := h.store.Events().List(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if events == nil {
		events = []*store.Event{}
	}
	writeJSON(w, http.StatusOK, listEventsResponse{Events: events})
}

// counts handles GET /api/events/counts.
func (h *EventHandler) counts(w http.ResponseWriter, f store.EventFilter) {
	counts, err := h.store.Events().CountByGesture(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}
	writeJSON(w, http.StatusOK, countsResponse{Counts: counts})
}

// chart handles GET /api/events/chart: confirmed gestures and fired actions
// per gesture as an HTML bar chart.
func (h *EventHandler) chart(w http.ResponseWriter, f store.EventFilter) {
	f.Kind = store.EventConfirmed
	confirmed, err := h.store.Events().CountByGesture(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}
	f.Kind = store.EventFired
	fired, err := h.store.Events().CountByGesture(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}

	var x []string
	var confirmedBars, firedBars []opts.BarData
	for _, label := range gesture.Labels {
		if !label.Actionable() {
			continue
		}
		name := label.String()
		x = append(x, name)
		confirmedBars = append(confirmedBars, opts.BarData{Value: confirmed[name]})
		firedBars = append(firedBars, opts.BarData{Value: fired[name]})
	}

	subtitle := "all time"
	if !f.Since.IsZero() {
		subtitle = "since " + f.Since.Format(time.RFC3339)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Gesture activity", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Gesture activity", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("confirmed", confirmedBars).
		AddSeries("fired", firedBars,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
