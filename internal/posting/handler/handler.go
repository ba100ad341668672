// Package handler exposes the posting endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"saccoflow/internal/platform/metrics"
	"saccoflow/internal/platform/middleware"
	"saccoflow/internal/posting/models"
	"saccoflow/internal/posting/service"
	dErrors "saccoflow/pkg/domain-errors"
	"saccoflow/pkg/platform/httputil"
)

// Service defines the posting operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.Posting, error)
	Review(ctx context.Context, id uuid.UUID, in service.ReviewInput) (*models.Posting, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Posting, error)
	List(ctx context.Context) ([]*models.Posting, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Posting, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.Posting, error)
}

// Handler handles posting endpoints.
type Handler struct {
	logger       *slog.Logger
	postings     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	timeout      time.Duration
}

// New creates a posting Handler.
func New(postings Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator, timeout time.Duration) *Handler {
	return &Handler{
		logger:       logger,
		postings:     postings,
		metrics:      m,
		jwtValidator: jwtValidator,
		timeout:      timeout,
	}
}

// Register registers the posting routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	postingRouter := chi.NewRouter()
	postingRouter.Use(middleware.Recovery(h.logger))
	postingRouter.Use(middleware.RequestID)
	postingRouter.Use(middleware.RequestTime)
	postingRouter.Use(middleware.ClientMetadata)
	postingRouter.Use(middleware.Logger(h.logger))
	postingRouter.Use(middleware.Timeout(h.timeout))
	postingRouter.Use(middleware.ContentTypeJSON)
	postingRouter.Use(middleware.LatencyMiddleware(h.metrics))
	postingRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	postingRouter.Post("/", h.handleCreate)
	postingRouter.Put("/{id}/review", h.handleReview)
	postingRouter.Get("/", h.handleList)
	postingRouter.Get("/{id}", h.handleGet)
	postingRouter.Get("/status/{status}", h.handleListByStatus)
	postingRouter.Get("/member/{memberId}", h.handleListByMember)

	r.Mount("/postings", postingRouter)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in service.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.WarnContext(ctx, "invalid posting create request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	posting, err := h.postings.Create(ctx, in)
	if err != nil {
		h.writeServiceError(ctx, w, "create posting", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, posting)
}

// reviewRequest is the review decision payload.
type reviewRequest struct {
	ActingUserID      uuid.UUID `json:"actingUserId"`
	Action            string    `json:"action"`
	Comments          string    `json:"comments"`
	GuarantorRequired *bool     `json:"guarantorRequired"`
	POPReference      string    `json:"popReference"`
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid posting id"))
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	posting, err := h.postings.Review(ctx, id, service.ReviewInput{
		ActingUserID:      req.ActingUserID,
		Action:            req.Action,
		Comments:          req.Comments,
		GuarantorRequired: req.GuarantorRequired,
		POPReference:      req.POPReference,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "review posting", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, posting)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid posting id"))
		return
	}
	posting, err := h.postings.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(r.Context(), w, "get posting", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, posting)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	postings, err := h.postings.List(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "list postings", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, postings)
}

func (h *Handler) handleListByStatus(w http.ResponseWriter, r *http.Request) {
	postings, err := h.postings.ListByStatus(r.Context(), chi.URLParam(r, "status"))
	if err != nil {
		h.writeServiceError(r.Context(), w, "list postings by status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, postings)
}

func (h *Handler) handleListByMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(chi.URLParam(r, "memberId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid member id"))
		return
	}
	postings, err := h.postings.ListByMember(r.Context(), memberID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "list postings by member", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, postings)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	logFn := h.logger.WarnContext
	if dErrors.Retryable(err) || dErrors.Is(err, dErrors.CodeInternal) {
		logFn = h.logger.ErrorContext
	}
	logFn(ctx, "posting request failed",
		"op", op,
		"code", string(dErrors.CodeOf(err)),
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
	httputil.WriteError(w, err)
}
