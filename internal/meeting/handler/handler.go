// Package handler exposes the meeting endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"saccoflow/internal/meeting/models"
	"saccoflow/internal/meeting/service"
	"saccoflow/internal/platform/metrics"
	"saccoflow/internal/platform/middleware"
	dErrors "saccoflow/pkg/domain-errors"
	"saccoflow/pkg/platform/httputil"
)

// Service defines the meeting operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.Meeting, error)
	Review(ctx context.Context, id uuid.UUID, in service.ReviewInput) (*models.Meeting, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
	List(ctx context.Context) ([]*models.Meeting, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Meeting, error)
}

// Handler handles meeting endpoints.
type Handler struct {
	logger       *slog.Logger
	meetings     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	timeout      time.Duration
}

// New creates a meeting Handler.
func New(meetings Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator, timeout time.Duration) *Handler {
	return &Handler{
		logger:       logger,
		meetings:     meetings,
		metrics:      m,
		jwtValidator: jwtValidator,
		timeout:      timeout,
	}
}

// Register registers the meeting routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	meetingRouter := chi.NewRouter()
	meetingRouter.Use(middleware.Recovery(h.logger))
	meetingRouter.Use(middleware.RequestID)
	meetingRouter.Use(middleware.RequestTime)
	meetingRouter.Use(middleware.ClientMetadata)
	meetingRouter.Use(middleware.Logger(h.logger))
	meetingRouter.Use(middleware.Timeout(h.timeout))
	meetingRouter.Use(middleware.ContentTypeJSON)
	meetingRouter.Use(middleware.LatencyMiddleware(h.metrics))
	meetingRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	meetingRouter.Post("/", h.handleCreate)
	meetingRouter.Put("/{id}/review", h.handleReview)
	meetingRouter.Get("/", h.handleList)
	meetingRouter.Get("/{id}", h.handleGet)
	meetingRouter.Get("/status/{status}", h.handleListByStatus)

	r.Mount("/meetings", meetingRouter)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in service.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.WarnContext(ctx, "invalid meeting create request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	meeting, err := h.meetings.Create(ctx, in)
	if err != nil {
		h.writeServiceError(ctx, w, "create meeting", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, meeting)
}

// reviewRequest is the review decision payload.
type reviewRequest struct {
	ActingUserID uuid.UUID `json:"actingUserId"`
	Action       string    `json:"action"`
	Comments     string    `json:"comments"`
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid meeting id"))
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	meeting, err := h.meetings.Review(ctx, id, service.ReviewInput{
		ActingUserID: req.ActingUserID,
		Action:       req.Action,
		Comments:     req.Comments,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "review meeting", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, meeting)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid meeting id"))
		return
	}
	meeting, err := h.meetings.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(r.Context(), w, "get meeting", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, meeting)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	meetings, err := h.meetings.List(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "list meetings", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, meetings)
}

func (h *Handler) handleListByStatus(w http.ResponseWriter, r *http.Request) {
	meetings, err := h.meetings.ListByStatus(r.Context(), chi.URLParam(r, "status"))
	if err != nil {
		h.writeServiceError(r.Context(), w, "list meetings by status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, meetings)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	logFn := h.logger.WarnContext
	if dErrors.Retryable(err) || dErrors.Is(err, dErrors.CodeInternal) {
		logFn = h.logger.ErrorContext
	}
	logFn(ctx, "meeting request failed",
		"op", op,
		"code", string(dErrors.CodeOf(err)),
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
	httputil.WriteError(w, err)
}
