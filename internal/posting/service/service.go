// Package service implements posting operations: creation into the review
// workflow and the review transition unit of work.
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

	accountmodels "saccoflow/internal/account/models"
	ledgermodels "saccoflow/internal/ledger/models"
	"saccoflow/internal/platform/config"
	"saccoflow/internal/platform/metrics"
	"saccoflow/internal/platform/redis"
	"saccoflow/internal/posting/models"
	"saccoflow/internal/posting/store"
	"saccoflow/internal/workflow"
	dErrors "saccoflow/pkg/domain-errors"
	audit "saccoflow/pkg/platform/audit"
	"saccoflow/pkg/platform/tx"
	"saccoflow/pkg/requestcontext"
)

var tracer = otel.Tracer("saccoflow/posting")

// ActorResolver maps an acting-user id onto an account identity.
type ActorResolver interface {
	Resolve(ctx context.Context, actorID uuid.UUID) (*accountmodels.Account, error)
}

// LedgerWriter receives the terminal-action ledger lines. Writes join the
// ambient transaction.
type LedgerWriter interface {
	Insert(ctx context.Context, lines ...*ledgermodels.Line) error
}

// AuditPublisher emits audit events after a committed transition.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates posting creation and review.
type Service struct {
	store   store.Store
	ledger  LedgerWriter
	actors  ActorResolver
	runner  tx.Runner
	auditor AuditPublisher
	metrics *metrics.Metrics
	cache   *redis.Cache
	logger  *slog.Logger
	cfg     workflow.Config
	loan    config.Loan
}

func New(
	st store.Store,
	ledger LedgerWriter,
	actors ActorResolver,
	runner tx.Runner,
	auditor AuditPublisher,
	m *metrics.Metrics,
	cache *redis.Cache,
	logger *slog.Logger,
	loan config.Loan,
) *Service {
	return &Service{
		store:   st,
		ledger:  ledger,
		actors:  actors,
		runner:  runner,
		auditor: auditor,
		metrics: m,
		cache:   cache,
		logger:  logger,
		cfg:     workflow.ConfigFor(workflow.KindPosting),
		loan:    loan,
	}
}

// CreateInput is the posting creation payload.
type CreateInput struct {
	ActingUserID uuid.UUID `json:"actingUserId"`
	MemberID     uuid.UUID `json:"memberId"`
	Period       string    `json:"period"`
	Date         time.Time `json:"date"`

	Saving  float64 `json:"saving"`
	Shares  float64 `json:"shares"`
	Social  float64 `json:"social"`
	Penalty float64 `json:"penalty"`

	LatePostPenalty    float64 `json:"latePostPenalty"`
	LoanInterest       float64 `json:"loanInterest"`
	LoanMonthRepayment float64 `json:"loanMonthRepayment"`
	LoanApplication    float64 `json:"loanApplication"`

	PaymentMethodType   string `json:"paymentMethodType"`
	PaymentMethodNumber string `json:"paymentMethodNumber"`
	PaymentMethodName   string `json:"paymentMethodName"`

	Comments       string `json:"comments"`
	ApprovalLevels int    `json:"approvalLevels"`
}

// Create records a posting at the Submitted stage.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Posting, error) {
	actor, err := s.actors.Resolve(ctx, in.ActingUserID)
	if err != nil {
		return nil, err
	}
	if in.MemberID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeValidation, "memberId is required")
	}
	if strings.TrimSpace(in.Period) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "period is required")
	}
	if strings.TrimSpace(in.PaymentMethodType) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "paymentMethodType is required")
	}
	if in.Saving < 0 || in.Shares < 0 || in.Social < 0 || in.Penalty < 0 ||
		in.LatePostPenalty < 0 || in.LoanApplication < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amounts must not be negative")
	}

	state, err := workflow.NewState(actor.Identity(), in.ApprovalLevels)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	date := in.Date
	if date.IsZero() {
		date = now
	}
	posting := &models.Posting{
		ID:                  uuid.New(),
		MemberID:            in.MemberID,
		Period:              in.Period,
		Date:                date,
		Saving:              in.Saving,
		Shares:              in.Shares,
		Social:              in.Social,
		Penalty:             in.Penalty,
		LatePostPenalty:     in.LatePostPenalty,
		LoanInterest:        in.LoanInterest,
		LoanMonthRepayment:  in.LoanMonthRepayment,
		LoanApplication:     in.LoanApplication,
		ContributionTotal:   in.Saving + in.Shares + in.Social,
		DepositTotal:        in.Saving + in.Shares + in.Social + in.Penalty + in.LatePostPenalty,
		ReceiveTotal:        in.LoanApplication,
		PaymentMethodType:   in.PaymentMethodType,
		PaymentMethodNumber: in.PaymentMethodNumber,
		PaymentMethodName:   in.PaymentMethodName,
		Comments:            in.Comments,
		Workflow:            state,
		CreatedAt:           now,
	}
	posting.Code = fmt.Sprintf("MP%s", strings.ToUpper(posting.ID.String()[:8]))

	if err := s.store.Create(ctx, posting); err != nil {
		return nil, err
	}

	s.metrics.IncrementRecordsCreated(string(workflow.KindPosting))
	s.emit(ctx, audit.EventRecordCreated, posting.ID, actor.Identity(), workflow.Outcome{
		ToStage: posting.Workflow.Stage,
		Status:  posting.Workflow.Status,
	}, "")
	s.logger.InfoContext(ctx, "posting created",
		"posting_id", posting.ID,
		"member_id", posting.MemberID,
		"approval_levels", posting.Workflow.ApprovalLevels,
		"request_id", requestcontext.RequestID(ctx),
	)
	return posting, nil
}

// ReviewInput is one review decision as received from the HTTP layer.
type ReviewInput struct {
	ActingUserID      uuid.UUID
	Action            string
	Comments          string
	GuarantorRequired *bool
	POPReference      string
}

// Review runs one review transition as a single unit of work: load with a
// row lock, apply the engine, dispatch the terminal action if the record
// reached Approved, and commit everything atomically.
func (s *Service) Review(ctx context.Context, id uuid.UUID, in ReviewInput) (*models.Posting, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "posting.review", trace.WithAttributes(
		attribute.String("posting.id", id.String()),
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
		Actor:             actor.Identity(),
		Action:            action,
		Comments:          in.Comments,
		GuarantorRequired: in.GuarantorRequired,
		POPReference:      in.POPReference,
	}

	now := requestcontext.Now(ctx)
	var (
		posting *models.Posting
		outcome workflow.Outcome
	)
	ctx = tx.WithKey(ctx, id.String())
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.store.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		out, err := workflow.Apply(&p.Workflow, s.cfg, decision, now)
		if err != nil {
			return err
		}
		if out.TerminalActionRequired {
			if err := s.dispatchTerminal(ctx, p, actor.Identity(), now); err != nil {
				return err
			}
		}
		p.UpdatedAt = now
		if err := s.store.Update(ctx, p); err != nil {
			return err
		}
		posting, outcome = p, out
		return nil
	})
	if err != nil {
		s.metrics.ObserveReview(string(workflow.KindPosting), in.Action, "error", time.Since(start))
		return nil, err
	}

	s.cache.Invalidate(ctx, redis.Key(string(workflow.KindPosting), id.String()))
	s.metrics.ObserveReview(string(workflow.KindPosting), in.Action, string(outcome.Status), time.Since(start))
	s.emitTransition(ctx, posting.ID, actor.Identity(), action, outcome)
	s.logger.InfoContext(ctx, "posting review applied",
		"posting_id", posting.ID,
		"actor", actor.Identity(),
		"action", string(action),
		"from_stage", string(outcome.FromStage),
		"to_stage", string(outcome.ToStage),
		"status", string(outcome.Status),
		"request_id", requestcontext.RequestID(ctx),
	)
	return posting, nil
}

// dispatchTerminal fans the approved posting out into ledger lines inside
// the ambient transaction. A failure here rolls the whole transition back.
func (s *Service) dispatchTerminal(ctx context.Context, p *models.Posting, actor string, now time.Time) error {
	lines := []*ledgermodels.Line{
		ledgermodels.NewLine(ledgermodels.LineSavings, workflow.KindPosting, p.ID, p.MemberID, p.Saving, now, actor),
		ledgermodels.NewLine(ledgermodels.LineShares, workflow.KindPosting, p.ID, p.MemberID, p.Shares, now, actor),
		ledgermodels.NewLine(ledgermodels.LineSocialFund, workflow.KindPosting, p.ID, p.MemberID, p.Social, now, actor),
	}
	if p.LatePostPenalty != 0 {
		charge := ledgermodels.NewLine(ledgermodels.LinePenaltyCharge, workflow.KindPosting, p.ID, p.MemberID, p.LatePostPenalty, now, actor)
		charge.Comments = "late posting penalty"
		settlement := ledgermodels.NewLine(ledgermodels.LinePenaltySettlement, workflow.KindPosting, p.ID, p.MemberID, p.LatePostPenalty, now, actor)
		settlement.Comments = "late posting penalty settlement"
		lines = append(lines, charge, settlement)
	}
	if p.LoanApplication != 0 {
		loan := ledgermodels.NewLine(ledgermodels.LineLoan, workflow.KindPosting, p.ID, p.MemberID, p.LoanApplication, now, actor)
		loan.TermMonths = s.loan.TermMonths
		loan.InterestRate = s.loan.InterestRate
		lines = append(lines, loan)
	}
	if err := s.ledger.Insert(ctx, lines...); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "dispatch posting ledger lines")
	}
	s.metrics.IncrementTerminalActions(string(workflow.KindPosting))
	return nil
}

// Get returns one posting, read through the detail cache.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Posting, error) {
	key := redis.Key(string(workflow.KindPosting), id.String())
	var cached models.Posting
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	posting, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, posting)
	return posting, nil
}

// List returns all postings.
func (s *Service) List(ctx context.Context) ([]*models.Posting, error) {
	return s.store.List(ctx)
}

// ListByStatus returns postings filtered by workflow status.
func (s *Service) ListByStatus(ctx context.Context, raw string) ([]*models.Posting, error) {
	status, err := workflow.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	return s.store.ListByStatus(ctx, status)
}

// ListByMember returns a member's postings.
func (s *Service) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.Posting, error) {
	return s.store.ListByMember(ctx, memberID)
}

func (s *Service) emitTransition(ctx context.Context, id uuid.UUID, actor string, action workflow.Action, out workflow.Outcome) {
	switch {
	case out.FromStage == workflow.StagePOPUpload && action != workflow.ActionReject:
		s.emit(ctx, audit.EventPOPUploaded, id, actor, out, "")
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
		Kind:      string(workflow.KindPosting),
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
			"posting_id", id,
			"error", err,
		)
	}
}
