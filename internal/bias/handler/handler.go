package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"biasmeter/internal/bias/invoker"
	"biasmeter/internal/bias/models"
	"biasmeter/internal/bias/service"
	"biasmeter/pkg/platform/httputil"
	"biasmeter/pkg/requestcontext"
)

// Service defines the interface for analysis operations.
type Service interface {
	Analyze(ctx context.Context, req service.Request) (models.BiasResult, error)
	Backends() []invoker.BackendStatus
}

// Handler wires analysis endpoints to the analysis service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an analysis handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts analysis endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/analyze", h.HandleAnalyze)
	r.Get("/backends", h.HandleBackends)
}

// HandleAnalyze handles POST /analyze requests.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[AnalyzeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Analyze(ctx, service.Request{
		Text:    req.Text,
		Mode:    req.ParsedMode(),
		Backend: req.Backend,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "analysis rejected",
			"request_id", requestID,
			"mode", req.ParsedMode(),
			"backend", req.Backend,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "analysis served",
		"request_id", requestID,
		"client_ip", requestcontext.ClientIP(ctx),
		"mode", req.ParsedMode(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleBackends handles GET /backends requests.
func (h *Handler) HandleBackends(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromBackends(h.service.Backends()))
}
