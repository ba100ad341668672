// Package handler exposes the account administration endpoints. Accounts
// normally come from membership approval; this surface exists for bootstrap
// and review-desk administration.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"saccoflow/internal/account/models"
	"saccoflow/internal/account/service"
	"saccoflow/internal/platform/metrics"
	"saccoflow/internal/platform/middleware"
	dErrors "saccoflow/pkg/domain-errors"
	"saccoflow/pkg/platform/httputil"
)

// Service defines the account operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.Account, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
}

// Handler handles account endpoints.
type Handler struct {
	logger       *slog.Logger
	accounts     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	timeout      time.Duration
}

// New creates an account Handler.
func New(accounts Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator, timeout time.Duration) *Handler {
	return &Handler{
		logger:       logger,
		accounts:     accounts,
		metrics:      m,
		jwtValidator: jwtValidator,
		timeout:      timeout,
	}
}

// Register registers the account routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	accountRouter := chi.NewRouter()
	accountRouter.Use(middleware.Recovery(h.logger))
	accountRouter.Use(middleware.RequestID)
	accountRouter.Use(middleware.RequestTime)
	accountRouter.Use(middleware.ClientMetadata)
	accountRouter.Use(middleware.Logger(h.logger))
	accountRouter.Use(middleware.Timeout(h.timeout))
	accountRouter.Use(middleware.ContentTypeJSON)
	accountRouter.Use(middleware.LatencyMiddleware(h.metrics))
	accountRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	accountRouter.Post("/", h.handleCreate)
	accountRouter.Get("/", h.handleList)
	accountRouter.Get("/{id}", h.handleGet)

	r.Mount("/accounts", accountRouter)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in service.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if actor := middleware.GetActorEmail(ctx); in.CreatedBy == "" && actor != "" {
		in.CreatedBy = actor
	}

	account, err := h.accounts.Create(ctx, in)
	if err != nil {
		h.writeServiceError(ctx, w, "create account", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, account)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid account id"))
		return
	}
	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(r.Context(), w, "get account", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "list accounts", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, accounts)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	logFn := h.logger.WarnContext
	if dErrors.Retryable(err) || dErrors.Is(err, dErrors.CodeInternal) {
		logFn = h.logger.ErrorContext
	}
	logFn(ctx, "account request failed",
		"op", op,
		"code", string(dErrors.CodeOf(err)),
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
	httputil.WriteError(w, err)
}
