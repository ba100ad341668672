// Package service implements meeting operations: register intake and the
// review transition that, on final approval, posts attendance penalties to
// the ledger.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	accountmodels "saccoflow/internal/account/models"
	ledgermodels "saccoflow/internal/ledger/models"
	"saccoflow/internal/meeting/models"
	"saccoflow/internal/meeting/store"
	"saccoflow/internal/platform/metrics"
	"saccoflow/internal/platform/redis"
	"saccoflow/internal/workflow"
	dErrors "saccoflow/pkg/domain-errors"
	audit "saccoflow/pkg/platform/audit"
	"saccoflow/pkg/platform/tx"
	"saccoflow/pkg/requestcontext"
)

var tracer = otel.Tracer("saccoflow/meeting")

// ActorResolver maps an acting-user id onto an account identity.
type ActorResolver interface {
	Resolve(ctx context.Context, actorID uuid.UUID) (*accountmodels.Account, error)
}

// LedgerWriter receives the attendance penalty lines. Writes join the
// ambient transaction.
type LedgerWriter interface {
	Insert(ctx context.Context, lines ...*ledgermodels.Line) error
}

// AuditPublisher emits audit events after a committed transition.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates meeting intake and review.
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
		cfg:     workflow.ConfigFor(workflow.KindMeeting),
	}
}

// CreateInput is the meeting record payload, attendance register included.
type CreateInput struct {
	ActingUserID uuid.UUID `json:"actingUserId"`

	Title      string                   `json:"title"`
	Content    string                   `json:"content"`
	Date       time.Time                `json:"meetingDate"`
	Attendance []models.AttendanceEntry `json:"attendance"`

	ApprovalLevels int `json:"approvalLevels"`
}

// Create records a meeting at the Submitted stage. Attendance penalties are
// captured now but post only on final approval.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Meeting, error) {
	actor, err := s.actors.Resolve(ctx, in.ActingUserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "meeting title is required")
	}
	if in.Date.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "meeting date is required")
	}
	for i, entry := range in.Attendance {
		if entry.MemberID == uuid.Nil {
			return nil, dErrors.Newf(dErrors.CodeValidation, "attendance entry %d has no member", i)
		}
		if entry.Penalty < 0 {
			return nil, dErrors.Newf(dErrors.CodeValidation, "attendance entry %d has a negative penalty", i)
		}
	}

	state, err := workflow.NewState(actor.Identity(), in.ApprovalLevels)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	meeting := &models.Meeting{
		ID:         uuid.New(),
		Title:      in.Title,
		Content:    in.Content,
		Date:       in.Date,
		Attendance: in.Attendance,
		Workflow:   state,
		CreatedAt:  now,
	}

	if err := s.store.Create(ctx, meeting); err != nil {
		return nil, err
	}

	s.metrics.IncrementRecordsCreated(string(workflow.KindMeeting))
	s.emit(ctx, audit.EventRecordCreated, meeting.ID, actor.Identity(), workflow.Outcome{
		ToStage: meeting.Workflow.Stage,
		Status:  meeting.Workflow.Status,
	}, "")
	s.logger.InfoContext(ctx, "meeting created",
		"meeting_id", meeting.ID,
		"title", meeting.Title,
		"attendance_entries", len(meeting.Attendance),
		"request_id", requestcontext.RequestID(ctx),
	)
	return meeting, nil
}

// ReviewInput is one review decision as received from the HTTP layer.
type ReviewInput struct {
	ActingUserID uuid.UUID
	Action       string
	Comments     string
}

// Review runs one review transition atomically. Final approval posts the
// attendance penalties inside the same transaction.
func (s *Service) Review(ctx context.Context, id uuid.UUID, in ReviewInput) (*models.Meeting, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "meeting.review", trace.WithAttributes(
		attribute.String("meeting.id", id.String()),
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
		meeting *models.Meeting
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
			if err := s.dispatchTerminal(ctx, m, actor.Identity(), now); err != nil {
				return err
			}
		}
		m.UpdatedAt = now
		if err := s.store.Update(ctx, m); err != nil {
			return err
		}
		meeting, outcome = m, out
		return nil
	})
	if err != nil {
		s.metrics.ObserveReview(string(workflow.KindMeeting), in.Action, "error", time.Since(start))
		return nil, err
	}

	s.cache.Invalidate(ctx, redis.Key(string(workflow.KindMeeting), id.String()))
	s.metrics.ObserveReview(string(workflow.KindMeeting), in.Action, string(outcome.Status), time.Since(start))
	s.emitTransition(ctx, meeting.ID, actor.Identity(), outcome)
	s.logger.InfoContext(ctx, "meeting review applied",
		"meeting_id", meeting.ID,
		"actor", actor.Identity(),
		"action", string(action),
		"from_stage", string(outcome.FromStage),
		"to_stage", string(outcome.ToStage),
		"status", string(outcome.Status),
		"request_id", requestcontext.RequestID(ctx),
	)
	return meeting, nil
}

// dispatchTerminal posts a charge and its settlement for every attendance
// entry carrying a penalty, inside the ambient transaction.
func (s *Service) dispatchTerminal(ctx context.Context, m *models.Meeting, actor string, now time.Time) error {
	var lines []*ledgermodels.Line
	for _, entry := range m.Attendance {
		if entry.Penalty == 0 {
			continue
		}
		charge := ledgermodels.NewLine(ledgermodels.LinePenaltyCharge, workflow.KindMeeting, m.ID, entry.MemberID, entry.Penalty, now, actor)
		charge.Comments = "meeting attendance penalty"
		settlement := ledgermodels.NewLine(ledgermodels.LinePenaltySettlement, workflow.KindMeeting, m.ID, entry.MemberID, entry.Penalty, now, actor)
		settlement.Comments = "meeting attendance penalty settlement"
		lines = append(lines, charge, settlement)
	}
	if len(lines) == 0 {
		return nil
	}
	if err := s.ledger.Insert(ctx, lines...); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "dispatch meeting penalty lines")
	}
	s.metrics.IncrementTerminalActions(string(workflow.KindMeeting))
	return nil
}

// Get returns one meeting, read through the detail cache.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	key := redis.Key(string(workflow.KindMeeting), id.String())
	var cached models.Meeting
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	meeting, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, meeting)
	return meeting, nil
}

// List returns all meetings.
func (s *Service) List(ctx context.Context) ([]*models.Meeting, error) {
	return s.store.List(ctx)
}

// ListByStatus returns meetings filtered by workflow status.
func (s *Service) ListByStatus(ctx context.Context, raw string) ([]*models.Meeting, error) {
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
		Kind:      string(workflow.KindMeeting),
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
			"meeting_id", id,
			"error", err,
		)
	}
}
