// Package service implements account operations: administrative creation and
// acting-user resolution for the review engine.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"saccoflow/internal/account/models"
	"saccoflow/internal/account/store"
	"saccoflow/internal/workflow"
	dErrors "saccoflow/pkg/domain-errors"
	"saccoflow/pkg/requestcontext"
)

// Service persists accounts and resolves acting users to identities.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

func New(st store.Store, logger *slog.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// CreateInput is the administrative account-creation payload.
type CreateInput struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Position        string `json:"position"`
	Email           string `json:"email"`
	Mobile          string `json:"mobile"`
	AddressPhysical string `json:"addressPhysical"`
	AddressPostal   string `json:"addressPostal"`
	Role            int    `json:"role"`
	Password        string `json:"password"`
	CreatedBy       string `json:"createdBy"`
}

// Create registers an account directly in Approved state. Reviewable account
// onboarding happens through membership approval, which provisions accounts
// as a terminal action; this path exists for bootstrap and administration.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Account, error) {
	if strings.TrimSpace(in.Email) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "first and last name are required")
	}
	if len(in.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	now := requestcontext.Now(ctx)
	account := &models.Account{
		ID:              uuid.New(),
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Position:        in.Position,
		Email:           in.Email,
		Mobile:          in.Mobile,
		AddressPhysical: in.AddressPhysical,
		AddressPostal:   in.AddressPostal,
		Role:            in.Role,
		PasswordHash:    string(hash),
		Workflow: workflow.State{
			Status:         workflow.StatusApproved,
			Stage:          workflow.StageApproved,
			ApprovalLevels: workflow.MinApprovalLevels,
			CreatedBy:      in.CreatedBy,
		},
		CreatedAt: now,
	}
	account.Code = fmt.Sprintf("UA%s", strings.ToUpper(account.ID.String()[:8]))

	if err := s.store.Create(ctx, account); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "account created",
		"account_id", account.ID,
		"email", account.Email,
		"request_id", requestcontext.RequestID(ctx),
	)
	return account, nil
}

// Resolve maps an acting-user id onto an account identity. A miss is an
// InvalidActor, not a NotFound: the record may well exist while the actor
// does not.
func (s *Service) Resolve(ctx context.Context, actorID uuid.UUID) (*models.Account, error) {
	account, err := s.store.FindByID(ctx, actorID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			return nil, dErrors.Newf(dErrors.CodeInvalidActor,
				"acting user %s does not exist", actorID)
		}
		return nil, err
	}
	return account, nil
}

// Get returns one account by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.store.FindByID(ctx, id)
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]*models.Account, error) {
	return s.store.List(ctx)
}
