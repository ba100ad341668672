// Package service implements membership operations: application intake and
// the review transition that, on final approval, provisions the member's
// login account.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	accountmodels "saccoflow/internal/account/models"
	"saccoflow/internal/member/models"
	"saccoflow/internal/member/store"
	"saccoflow/internal/platform/metrics"
	"saccoflow/internal/platform/redis"
	"saccoflow/internal/workflow"
	dErrors "saccoflow/pkg/domain-errors"
	audit "saccoflow/pkg/platform/audit"
	"saccoflow/pkg/platform/tx"
	"saccoflow/pkg/requestcontext"
)

var tracer = otel.Tracer("saccoflow/member")

// ActorResolver maps an acting-user id onto an account identity.
type ActorResolver interface {
	Resolve(ctx context.Context, actorID uuid.UUID) (*accountmodels.Account, error)
}

// AccountProvisioner receives the account provisioned by the terminal
// action. The write joins the ambient transaction.
type AccountProvisioner interface {
	Create(ctx context.Context, account *accountmodels.Account) error
}

// AuditPublisher emits audit events after a committed transition.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates membership intake and review.
type Service struct {
	store    store.Store
	accounts AccountProvisioner
	actors   ActorResolver
	runner   tx.Runner
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	cache    *redis.Cache
	logger   *slog.Logger
	cfg      workflow.Config
}

func New(
	st store.Store,
	accounts AccountProvisioner,
	actors ActorResolver,
	runner tx.Runner,
	auditor AuditPublisher,
	m *metrics.Metrics,
	cache *redis.Cache,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:    st,
		accounts: accounts,
		actors:   actors,
		runner:   runner,
		auditor:  auditor,
		metrics:  m,
		cache:    cache,
		logger:   logger,
		cfg:      workflow.ConfigFor(workflow.KindMember),
	}
}

// CreateInput is the membership application payload.
type CreateInput struct {
	ActingUserID uuid.UUID `json:"actingUserId"`

	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Position  string `json:"position"`

	Email           string    `json:"email"`
	Mobile1         string    `json:"mobile1"`
	Mobile2         string    `json:"mobile2"`
	IDType          string    `json:"idType"`
	IDNumber        string    `json:"idNumber"`
	AddressPhysical string    `json:"addressPhysical"`
	AddressPostal   string    `json:"addressPostal"`
	DateOfBirth     time.Time `json:"dateOfBirth"`

	Password string `json:"password"`

	GuarantorFirstName string `json:"guarantorFirstName"`
	GuarantorLastName  string `json:"guarantorLastName"`
	GuarantorMobile    string `json:"guarantorMobile"`
	GuarantorEmail     string `json:"guarantorEmail"`

	BankName          string `json:"bankName"`
	BankBranch        string `json:"bankBranch"`
	BankAccountName   string `json:"bankAccountName"`
	BankAccountNumber string `json:"bankAccountNumber"`

	ApprovalLevels int `json:"approvalLevels"`
}

// Create records a membership application at the Submitted stage. The login
// password is hashed now and carried to the account provisioned on final
// approval.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Member, error) {
	actor, err := s.actors.Resolve(ctx, in.ActingUserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "first and last name are required")
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(in.Mobile1) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "mobile1 is required")
	}
	if strings.TrimSpace(in.IDType) == "" || strings.TrimSpace(in.IDNumber) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "identity document type and number are required")
	}
	if len(in.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}

	state, err := workflow.NewState(actor.Identity(), in.ApprovalLevels)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	now := requestcontext.Now(ctx)
	member := &models.Member{
		ID:                 uuid.New(),
		FirstName:          in.FirstName,
		LastName:           in.LastName,
		Position:           in.Position,
		Email:              in.Email,
		Mobile1:            in.Mobile1,
		Mobile2:            in.Mobile2,
		IDType:             in.IDType,
		IDNumber:           in.IDNumber,
		AddressPhysical:    in.AddressPhysical,
		AddressPostal:      in.AddressPostal,
		DateOfBirth:        in.DateOfBirth,
		PasswordHash:       string(hash),
		GuarantorFirstName: in.GuarantorFirstName,
		GuarantorLastName:  in.GuarantorLastName,
		GuarantorMobile:    in.GuarantorMobile,
		GuarantorEmail:     in.GuarantorEmail,
		BankName:           in.BankName,
		BankBranch:         in.BankBranch,
		BankAccountName:    in.BankAccountName,
		BankAccountNumber:  in.BankAccountNumber,
		Workflow:           state,
		CreatedAt:          now,
	}
	member.Number = fmt.Sprintf("M%s", strings.ToUpper(member.ID.String()[:8]))

	if err := s.store.Create(ctx, member); err != nil {
		return nil, err
	}

	s.metrics.IncrementRecordsCreated(string(workflow.KindMember))
	s.emit(ctx, audit.EventRecordCreated, member.ID, actor.Identity(), workflow.Outcome{
		ToStage: member.Workflow.Stage,
		Status:  member.Workflow.Status,
	}, "")
	s.logger.InfoContext(ctx, "member application created",
		"member_id", member.ID,
		"email", member.Email,
		"approval_levels", member.Workflow.ApprovalLevels,
		"request_id", requestcontext.RequestID(ctx),
	)
	return member, nil
}

// ReviewInput is one review decision as received from the HTTP layer.
type ReviewInput struct {
	ActingUserID uuid.UUID
	Action       string
	Comments     string
}

// Review runs one review transition atomically. Final approval provisions
// the member's account inside the same transaction.
func (s *Service) Review(ctx context.Context, id uuid.UUID, in ReviewInput) (*models.Member, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "member.review", trace.WithAttributes(
		attribute.String("member.id", id.String()),
		attribute.String("review.action", in.Action),
	))
	defer span.End()

	action, err := workflow.ParseAction(in.Action)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(ctx, in.ActingUserID)
	if err != nil {
		return nil, err
	}
	decision := workflow.Decision{
		Actor:    actor.Identity(),
		Action:   action,
		Comments: in.Comments,
	}

	now := requestcontext.Now(ctx)
	var (
		member  *models.Member
		outcome workflow.Outcome
	)
	ctx = tx.WithKey(ctx, id.String())
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		m, err := s.store.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		out, err := workflow.Apply(&m.Workflow, s.cfg, decision, now)
		if err != nil {
			return err
		}
		if out.TerminalActionRequired {
			if err := s.provisionAccount(ctx, m, now); err != nil {
				return err
			}
		}
		m.UpdatedAt = now
		if err := s.store.Update(ctx, m); err != nil {
			return err
		}
		member, outcome = m, out
		return nil
	})
	if err != nil {
		s.metrics.ObserveReview(string(workflow.KindMember), in.Action, "error", time.Since(start))
		return nil, err
	}

	s.cache.Invalidate(ctx, redis.Key(string(workflow.KindMember), id.String()))
	s.metrics.ObserveReview(string(workflow.KindMember), in.Action, string(outcome.Status), time.Since(start))
	s.emitTransition(ctx, member.ID, actor.Identity(), outcome)
	s.logger.InfoContext(ctx, "member review applied",
		"member_id", member.ID,
		"actor", actor.Identity(),
		"action", string(action),
		"from_stage", string(outcome.FromStage),
		"to_stage", string(outcome.ToStage),
		"status", string(outcome.Status),
		"request_id", requestcontext.RequestID(ctx),
	)
	return member, nil
}

// provisionAccount creates the approved member's login account inside the
// ambient transaction, carrying the membership's contact fields and the
// password hash captured at application time.
func (s *Service) provisionAccount(ctx context.Context, m *models.Member, now time.Time) error {
	account := &accountmodels.Account{
		ID:              uuid.New(),
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		Position:        m.Position,
		Email:           m.Email,
		Mobile:          m.Mobile1,
		AddressPhysical: m.AddressPhysical,
		AddressPostal:   m.AddressPostal,
		Role:            1,
		PasswordHash:    m.PasswordHash,
		Workflow: workflow.State{
			Status:         workflow.StatusApproved,
			Stage:          workflow.StageApproved,
			ApprovalLevels: m.Workflow.ApprovalLevels,
			CreatedBy:      m.Email,
		},
		CreatedAt: now,
	}
	account.Code = fmt.Sprintf("UM%s", strings.ToUpper(account.ID.String()[:8]))

	if err := s.accounts.Create(ctx, account); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "provision member account")
	}
	s.metrics.IncrementTerminalActions(string(workflow.KindMember))
	s.emit(ctx, audit.EventAccountCreated, m.ID, m.Email, workflow.Outcome{
		ToStage: workflow.StageApproved,
		Status:  workflow.StatusApproved,
	}, "")
	return nil
}

// Get returns one member, read through the detail cache.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	key := redis.Key(string(workflow.KindMember), id.String())
	var cached models.Member
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	member, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, member)
	return member, nil
}

// List returns all members.
func (s *Service) List(ctx context.Context) ([]*models.Member, error) {
	return s.store.List(ctx)
}

// ListByStatus returns members filtered by workflow status.
func (s *Service) ListByStatus(ctx context.Context, raw string) ([]*models.Member, error) {
	status, err := workflow.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	return s.store.ListByStatus(ctx, status)
}

func (s *Service) emitTransition(ctx context.Context, id uuid.UUID, actor string, out workflow.Outcome) {
	switch {
	case out.Status == workflow.StatusRejected:
		s.emit(ctx, audit.EventReviewRejected, id, actor, out, out.Stamped.Comments)
		s.emit(ctx, audit.EventRecordRejected, id, actor, out, out.Stamped.Comments)
	default:
		s.emit(ctx, audit.EventReviewApproved, id, actor, out, out.Stamped.Comments)
		if out.Status == workflow.StatusApproved {
			s.emit(ctx, audit.EventRecordApproved, id, actor, out, "")
			s.emit(ctx, audit.EventTerminalDispatch, id, actor, out, "")
		}
	}
}

func (s *Service) emit(ctx context.Context, name audit.AuditEvent, id uuid.UUID, actor string, out workflow.Outcome, reason string) {
	err := s.auditor.Emit(ctx, audit.Event{
		Kind:      string(workflow.KindMember),
		RecordID:  id.String(),
		Actor:     actor,
		Action:    string(name),
		FromStage: string(out.FromStage),
		ToStage:   string(out.ToStage),
		Status:    string(out.Status),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		Device:    requestcontext.Device(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"event", string(name),
			"member_id", id,
			"error", err,
		)
	}
}
