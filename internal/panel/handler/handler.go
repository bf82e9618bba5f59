// Package handler wires panel endpoints to the panel service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"conclave/internal/panel"
	dErrors "conclave/pkg/domain-errors"
	"conclave/pkg/platform/httputil"
	"conclave/pkg/requestcontext"
)

// Service defines the panel operations the HTTP layer needs.
type Service interface {
	Run(ctx context.Context, req panel.RunRequest) (*panel.RunResult, error)
	Responders() []panel.Responder
}

// Handler exposes panel runs and the responder catalogue.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a panel handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts panel endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/panel/run", h.HandleRun)
	r.Get("/responders", h.HandleResponders)
}

// RunRequest is the wire form of a panel run request. Temperature is a
// pointer so an explicit 0 is distinguishable from the field being absent.
type RunRequest struct {
	Query         string   `json:"query"`
	Responders    []string `json:"responders,omitempty"`
	PromptVersion string   `json:"prompt_version,omitempty"`
	BypassCache   bool     `json:"bypass_cache,omitempty"`
	MaxTokens     int      `json:"max_tokens,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	TimeoutMS     int      `json:"timeout_ms,omitempty"`
}

// HandleRun handles POST /panel/run requests.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeJSON[RunRequest](w, r, h.logger)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "query is required"))
		return
	}

	if req.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	result, err := h.service.Run(ctx, panel.RunRequest{
		Query:         req.Query,
		ResponderIDs:  req.Responders,
		PromptVersion: req.PromptVersion,
		BypassCache:   req.BypassCache,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "panel run failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleResponders handles GET /responders requests.
func (h *Handler) HandleResponders(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"responders": h.service.Responders(),
	})
}
