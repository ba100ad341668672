package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountmodels "saccoflow/internal/account/models"
	accountservice "saccoflow/internal/account/service"
	accountstore "saccoflow/internal/account/store"
	ledgermodels "saccoflow/internal/ledger/models"
	ledgerstore "saccoflow/internal/ledger/store"
	"saccoflow/internal/platform/config"
	"saccoflow/internal/platform/metrics"
	"saccoflow/internal/posting/service"
	postingstore "saccoflow/internal/posting/store"
	"saccoflow/internal/workflow"
	dErrors "saccoflow/pkg/domain-errors"
	auditmemory "saccoflow/pkg/platform/audit/store/memory"
	"saccoflow/pkg/platform/audit/publisher"
	"saccoflow/pkg/platform/tx"
	"saccoflow/pkg/requestcontext"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type fixture struct {
	service *service.Service
	ledger  *ledgerstore.MemoryStore
	audit   *auditmemory.Store
	actors  map[string]uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	accounts := accountstore.NewMemoryStore()
	actors := make(map[string]uuid.UUID)
	for _, email := range []string{
		"creator@sacco.example",
		"reviewer1@sacco.example",
		"reviewer2@sacco.example",
		"guarantor@sacco.example",
	} {
		id := uuid.New()
		require.NoError(t, accounts.Create(context.Background(), &accountmodels.Account{
			ID:        id,
			Code:      "UA" + id.String()[:8],
			FirstName: "Test",
			LastName:  "User",
			Email:     email,
			Role:      1,
			Workflow: workflow.State{
				Status:         workflow.StatusApproved,
				Stage:          workflow.StageApproved,
				ApprovalLevels: 1,
				CreatedBy:      "system",
			},
			CreatedAt: testNow,
		}))
		actors[email] = id
	}

	ledger := ledgerstore.NewMemoryStore()
	auditStore := auditmemory.NewStore()
	f := &fixture{
		service: service.New(
			postingstore.NewMemoryStore(),
			ledger,
			accountservice.New(accounts, logger),
			tx.NewMemoryRunner(),
			publisher.NewPublisher(auditStore),
			metrics.NewWithRegistry(prometheus.NewRegistry()),
			nil,
			logger,
			config.Loan{TermMonths: 12, InterestRate: 0.1},
		),
		ledger: ledger,
		audit:  auditStore,
		actors: actors,
	}
	return f
}

func ctxAt(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

func TestService_CreateStartsAtSubmitted(t *testing.T) {
	f := newFixture(t)
	posting, err := f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID:      f.actors["creator@sacco.example"],
		MemberID:          uuid.New(),
		Period:            "2026-03",
		Saving:            100,
		Shares:            50,
		Social:            20,
		PaymentMethodType: "bank",
		ApprovalLevels:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusSubmitted, posting.Workflow.Status)
	assert.Equal(t, workflow.StageSubmitted, posting.Workflow.Stage)
	assert.Equal(t, "creator@sacco.example", posting.Workflow.CreatedBy)
	assert.NotEmpty(t, posting.Code)
	assert.Equal(t, 170.0, posting.ContributionTotal)

	events, err := f.audit.ListByRecord(context.Background(), posting.ID.String())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "record_created", events[0].Action)
}

func TestService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID:      f.actors["creator@sacco.example"],
		Period:            "2026-03",
		PaymentMethodType: "bank",
		ApprovalLevels:    2,
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))

	_, err = f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID:      uuid.New(),
		MemberID:          uuid.New(),
		Period:            "2026-03",
		PaymentMethodType: "bank",
		ApprovalLevels:    2,
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidActor))
}

// Two levels, no guarantor, POP required: Submitted → Primary → POP-Upload →
// POP-Approval → Approved, with the ledger fan-out exactly once.
func TestService_ReviewFullPath(t *testing.T) {
	f := newFixture(t)
	memberID := uuid.New()
	posting, err := f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID:      f.actors["creator@sacco.example"],
		MemberID:          memberID,
		Period:            "2026-03",
		Saving:            100,
		Shares:            50,
		Social:            20,
		LoanApplication:   1000,
		PaymentMethodType: "bank",
		ApprovalLevels:    2,
	})
	require.NoError(t, err)

	steps := []service.ReviewInput{
		{ActingUserID: f.actors["reviewer1@sacco.example"], Action: "approve"},
		{ActingUserID: f.actors["reviewer2@sacco.example"], Action: "approve"},
		{ActingUserID: f.actors["creator@sacco.example"], Action: "approve", POPReference: "receipt-77"},
		{ActingUserID: f.actors["reviewer1@sacco.example"], Action: "approve"},
	}
	for _, step := range steps {
		posting, err = f.service.Review(ctxAt(testNow), posting.ID, step)
		require.NoError(t, err)
	}

	assert.Equal(t, workflow.StatusApproved, posting.Workflow.Status)
	assert.Equal(t, workflow.StageApproved, posting.Workflow.Stage)
	assert.Equal(t, "receipt-77", posting.Workflow.POPReference)

	lines, err := f.ledger.ListBySource(context.Background(), workflow.KindPosting, posting.ID)
	require.NoError(t, err)
	require.Len(t, lines, 4)

	byKind := make(map[ledgermodels.LineKind]*ledgermodels.Line, len(lines))
	for _, line := range lines {
		assert.Equal(t, workflow.StatusApproved, line.Status)
		assert.True(t, line.Closed)
		assert.Equal(t, memberID, line.MemberID)
		byKind[line.Kind] = line
	}
	assert.Equal(t, 100.0, byKind[ledgermodels.LineSavings].Amount)
	assert.Equal(t, 50.0, byKind[ledgermodels.LineShares].Amount)
	assert.Equal(t, 20.0, byKind[ledgermodels.LineSocialFund].Amount)
	require.Contains(t, byKind, ledgermodels.LineLoan)
	assert.Equal(t, 1000.0, byKind[ledgermodels.LineLoan].Amount)
	assert.Equal(t, 12, byKind[ledgermodels.LineLoan].TermMonths)
	assert.Equal(t, 0.1, byKind[ledgermodels.LineLoan].InterestRate)

	// Further reviews are refused and the ledger stays put.
	_, err = f.service.Review(ctxAt(testNow), posting.ID,
		service.ReviewInput{ActingUserID: f.actors["reviewer2@sacco.example"], Action: "approve"})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeAlreadyFinalized))
	lines, err = f.ledger.ListBySource(context.Background(), workflow.KindPosting, posting.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 4)
}

func TestService_ReviewLatePenaltyPair(t *testing.T) {
	f := newFixture(t)
	posting, err := f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID:      f.actors["creator@sacco.example"],
		MemberID:          uuid.New(),
		Period:            "2026-03",
		Saving:            100,
		Shares:            50,
		Social:            20,
		LatePostPenalty:   15,
		PaymentMethodType: "cash",
		ApprovalLevels:    1,
	})
	require.NoError(t, err)

	for _, step := range []service.ReviewInput{
		{ActingUserID: f.actors["reviewer1@sacco.example"], Action: "approve"},
		{ActingUserID: f.actors["creator@sacco.example"], Action: "approve", POPReference: "receipt-1"},
		{ActingUserID: f.actors["reviewer2@sacco.example"], Action: "approve"},
	} {
		posting, err = f.service.Review(ctxAt(testNow), posting.ID, step)
		require.NoError(t, err)
	}

	lines, err := f.ledger.ListBySource(context.Background(), workflow.KindPosting, posting.ID)
	require.NoError(t, err)
	require.Len(t, lines, 5)

	kinds := make(map[ledgermodels.LineKind]int)
	for _, line := range lines {
		kinds[line.Kind]++
	}
	assert.Equal(t, 1, kinds[ledgermodels.LinePenaltyCharge])
	assert.Equal(t, 1, kinds[ledgermodels.LinePenaltySettlement])
}

func TestService_ReviewRejectFreezesRecord(t *testing.T) {
	f := newFixture(t)
	posting, err := f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID:      f.actors["creator@sacco.example"],
		MemberID:          uuid.New(),
		Period:            "2026-03",
		Saving:            100,
		Shares:            50,
		Social:            20,
		PaymentMethodType: "bank",
		ApprovalLevels:    2,
	})
	require.NoError(t, err)

	posting, err = f.service.Review(ctxAt(testNow), posting.ID, service.ReviewInput{
		ActingUserID: f.actors["reviewer1@sacco.example"],
		Action:       "reject",
		Comments:     "amounts disagree with the bank slip",
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, posting.Workflow.Status)
	assert.Equal(t, workflow.StageSubmitted, posting.Workflow.Stage)

	lines, err := f.ledger.ListBySource(context.Background(), workflow.KindPosting, posting.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	events, err := f.audit.ListByRecord(context.Background(), posting.ID.String())
	require.NoError(t, err)
	var names []string
	for _, e := range events {
		names = append(names, e.Action)
	}
	assert.Contains(t, names, "review_rejected")
	assert.Contains(t, names, "record_rejected")
}

func TestService_SelfReviewForbidden(t *testing.T) {
	f := newFixture(t)
	posting, err := f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID:      f.actors["creator@sacco.example"],
		MemberID:          uuid.New(),
		Period:            "2026-03",
		Saving:            1,
		Shares:            1,
		Social:            1,
		PaymentMethodType: "bank",
		ApprovalLevels:    2,
	})
	require.NoError(t, err)

	_, err = f.service.Review(ctxAt(testNow), posting.ID, service.ReviewInput{
		ActingUserID: f.actors["creator@sacco.example"],
		Action:       "approve",
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeSelfReview))
}

// A failing ledger write must roll the whole transition back: the posting
// stays reviewable and nothing is half-applied.
func TestService_TerminalFailureRollsBack(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	accounts := accountstore.NewMemoryStore()
	creator, reviewer := uuid.New(), uuid.New()
	for email, id := range map[string]uuid.UUID{
		"creator@sacco.example":   creator,
		"reviewer1@sacco.example": reviewer,
	} {
		require.NoError(t, accounts.Create(context.Background(), &accountmodels.Account{
			ID: id, Code: "UA" + id.String()[:8], FirstName: "T", LastName: "U",
			Email: email, Role: 1,
			Workflow:  workflow.State{Status: workflow.StatusApproved, Stage: workflow.StageApproved, ApprovalLevels: 1, CreatedBy: "system"},
			CreatedAt: testNow,
		}))
	}

	svc := service.New(
		postingstore.NewMemoryStore(),
		failingLedger{},
		accountservice.New(accounts, logger),
		tx.NewMemoryRunner(),
		publisher.NewPublisher(auditmemory.NewStore()),
		metrics.NewWithRegistry(prometheus.NewRegistry()),
		nil,
		logger,
		config.Loan{TermMonths: 12, InterestRate: 0.1},
	)

	posting, err := svc.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID:      creator,
		MemberID:          uuid.New(),
		Period:            "2026-03",
		Saving:            10,
		Shares:            10,
		Social:            10,
		PaymentMethodType: "bank",
		ApprovalLevels:    1,
	})
	require.NoError(t, err)

	// Drive to POP approval, where the final approve dispatches the lines.
	posting, err = svc.Review(ctxAt(testNow), posting.ID,
		service.ReviewInput{ActingUserID: reviewer, Action: "approve"})
	require.NoError(t, err)
	posting, err = svc.Review(ctxAt(testNow), posting.ID,
		service.ReviewInput{ActingUserID: creator, Action: "approve", POPReference: "r-1"})
	require.NoError(t, err)

	_, err = svc.Review(ctxAt(testNow), posting.ID,
		service.ReviewInput{ActingUserID: reviewer, Action: "approve"})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodePersistence))

	reloaded, err := svc.Get(ctxAt(testNow), posting.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusSubmitted, reloaded.Workflow.Status)
	assert.Equal(t, workflow.StagePOPApproval, reloaded.Workflow.Stage)
	assert.False(t, reloaded.Workflow.POPReview.Done())
}

type failingLedger struct{}

func (failingLedger) Insert(context.Context, ...*ledgermodels.Line) error {
	return errors.New("ledger unavailable")
}
