// Package handler exposes the membership endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"saccoflow/internal/member/models"
	"saccoflow/internal/member/service"
	"saccoflow/internal/platform/metrics"
	"saccoflow/internal/platform/middleware"
	dErrors "saccoflow/pkg/domain-errors"
	"saccoflow/pkg/platform/httputil"
)

// Service defines the member operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.Member, error)
	Review(ctx context.Context, id uuid.UUID, in service.ReviewInput) (*models.Member, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Member, error)
	List(ctx context.Context) ([]*models.Member, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Member, error)
}

// Handler handles membership endpoints.
type Handler struct {
	logger       *slog.Logger
	members      Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	timeout      time.Duration
}

// New creates a member Handler.
func New(members Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator, timeout time.Duration) *Handler {
	return &Handler{
		logger:       logger,
		members:      members,
		metrics:      m,
		jwtValidator: jwtValidator,
		timeout:      timeout,
	}
}

// Register registers the member routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	memberRouter := chi.NewRouter()
	memberRouter.Use(middleware.Recovery(h.logger))
	memberRouter.Use(middleware.RequestID)
	memberRouter.Use(middleware.RequestTime)
	memberRouter.Use(middleware.ClientMetadata)
	memberRouter.Use(middleware.Logger(h.logger))
	memberRouter.Use(middleware.Timeout(h.timeout))
	memberRouter.Use(middleware.ContentTypeJSON)
	memberRouter.Use(middleware.LatencyMiddleware(h.metrics))
	memberRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	memberRouter.Post("/", h.handleCreate)
	memberRouter.Put("/{id}/review", h.handleReview)
	memberRouter.Get("/", h.handleList)
	memberRouter.Get("/{id}", h.handleGet)
	memberRouter.Get("/status/{status}", h.handleListByStatus)

	r.Mount("/members", memberRouter)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in service.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.WarnContext(ctx, "invalid member create request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	member, err := h.members.Create(ctx, in)
	if err != nil {
		h.writeServiceError(ctx, w, "create member", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, member)
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
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid member id"))
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	member, err := h.members.Review(ctx, id, service.ReviewInput{
		ActingUserID: req.ActingUserID,
		Action:       req.Action,
		Comments:     req.Comments,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "review member", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid member id"))
		return
	}
	member, err := h.members.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(r.Context(), w, "get member", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.List(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "list members", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, members)
}

func (h *Handler) handleListByStatus(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.ListByStatus(r.Context(), chi.URLParam(r, "status"))
	if err != nil {
		h.writeServiceError(r.Context(), w, "list members by status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, members)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	logFn := h.logger.WarnContext
	if dErrors.Retryable(err) || dErrors.Is(err, dErrors.CodeInternal) {
		logFn = h.logger.ErrorContext
	}
	logFn(ctx, "member request failed",
		"op", op,
		"code", string(dErrors.CodeOf(err)),
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
	httputil.WriteError(w, err)
}
