// Package httpapi exposes the policy checks over a JSON REST API with an
// OpenAPI description and Prometheus metrics.
package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog"

	"github.com/ppiankov/promptguard/internal/model"
)

// Guard is the policy surface served over HTTP.
type Guard interface {
	CheckInput(ctx context.Context, query string) model.InputResult
	CheckOutput(ctx context.Context, response string, sources []model.Source) model.OutputResult
	Stats() model.Stats
	Events() []model.SafetyEvent
	ClearEvents()
}

// CheckInputRequest is the body of POST /check/input.
type CheckInputRequest struct {
	Query string `json:"query" description:"user query to validate"`
}

// CheckOutputRequest is the body of POST /check/output.
type CheckOutputRequest struct {
	Response string         `json:"response" description:"model response to validate"`
	Sources  []model.Source `json:"sources,omitempty" description:"sources the response should cite"`
}

// EventsResponse wraps the event listing.
type EventsResponse struct {
	Events []model.SafetyEvent `json:"events"`
}

// ClearResponse reports how many events a DELETE removed.
type ClearResponse struct {
	Cleared int `json:"cleared"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	guard   Guard
	version string
	logger  zerolog.Logger
}

func NewHandler(guard Guard, version string, logger zerolog.Logger) *Handler {
	return &Handler{guard: guard, version: version, logger: logger}
}

// POST /api/v1/check/input
func (h *Handler) CheckInput(req *restful.Request, resp *restful.Response) {
	var body CheckInputRequest
	if err := req.ReadEntity(&body); err != nil {
		h.logger.Warn().Err(err).Msg("failed to parse check input body")
		writeError(resp, http.StatusBadRequest, err)
		return
	}

	res := h.guard.CheckInput(req.Request.Context(), body.Query)
	h.logger.Debug().
		Bool("safe", res.Safe).
		Int("violations", len(res.Violations)).
		Msg("input checked")

	_ = resp.WriteHeaderAndEntity(http.StatusOK, res)
}

// POST /api/v1/check/output
func (h *Handler) CheckOutput(req *restful.Request, resp *restful.Response) {
	var body CheckOutputRequest
	if err := req.ReadEntity(&body); err != nil {
		h.logger.Warn().Err(err).Msg("failed to parse check output body")
		writeError(resp, http.StatusBadRequest, err)
		return
	}

	res := h.guard.CheckOutput(req.Request.Context(), body.Response, body.Sources)
	h.logger.Debug().
		Bool("safe", res.Safe).
		Str("action", string(res.Action)).
		Int("violations", len(res.Violations)).
		Msg("output checked")

	_ = resp.WriteHeaderAndEntity(http.StatusOK, res)
}

// GET /api/v1/stats
func (h *Handler) Stats(req *restful.Request, resp *restful.Response) {
	_ = resp.WriteHeaderAndEntity(http.StatusOK, h.guard.Stats())
}

// GET /api/v1/events?direction=input|output&limit=N
func (h *Handler) Events(req *restful.Request, resp *restful.Response) {
	dir := model.Direction(req.QueryParameter("direction"))
	if dir != "" && dir != model.DirectionInput && dir != model.DirectionOutput {
		writeError(resp, http.StatusBadRequest, errBadDirection(dir))
		return
	}

	limit := 0
	if raw := req.QueryParameter("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(resp, http.StatusBadRequest, errBadLimit(raw))
			return
		}
		limit = n
	}

	events := make([]model.SafetyEvent, 0)
	for _, ev := range h.guard.Events() {
		if dir == "" || ev.Direction == dir {
			events = append(events, ev)
		}
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}

	_ = resp.WriteHeaderAndEntity(http.StatusOK, EventsResponse{Events: events})
}

// DELETE /api/v1/events
func (h *Handler) ClearEvents(req *restful.Request, resp *restful.Response) {
	n := len(h.guard.Events())
	h.guard.ClearEvents()
	h.logger.Info().Int("cleared", n).Msg("event log cleared")
	_ = resp.WriteHeaderAndEntity(http.StatusOK, ClearResponse{Cleared: n})
}

// GET /api/v1/health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	_ = resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}
