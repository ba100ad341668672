package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	accountmodels "saccoflow/internal/account/models"
	accountservice "saccoflow/internal/account/service"
	accountstore "saccoflow/internal/account/store"
	"saccoflow/internal/member/service"
	memberstore "saccoflow/internal/member/store"
	"saccoflow/internal/platform/metrics"
	"saccoflow/internal/workflow"
	dErrors "saccoflow/pkg/domain-errors"
	"saccoflow/pkg/platform/audit/publisher"
	auditmemory "saccoflow/pkg/platform/audit/store/memory"
	"saccoflow/pkg/platform/tx"
	"saccoflow/pkg/requestcontext"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type fixture struct {
	service  *service.Service
	accounts *accountstore.MemoryStore
	audit    *auditmemory.Store
	actors   map[string]uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	accounts := accountstore.NewMemoryStore()
	actors := make(map[string]uuid.UUID)
	for _, email := range []string{
		"clerk@sacco.example",
		"reviewer1@sacco.example",
		"reviewer2@sacco.example",
		"reviewer3@sacco.example",
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

	auditStore := auditmemory.NewStore()
	return &fixture{
		service: service.New(
			memberstore.NewMemoryStore(),
			accounts,
			accountservice.New(accounts, logger),
			tx.NewMemoryRunner(),
			publisher.NewPublisher(auditStore),
			metrics.NewWithRegistry(prometheus.NewRegistry()),
			nil,
			logger,
		),
		accounts: accounts,
		audit:    auditStore,
		actors:   actors,
	}
}

func ctxAt(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

func validInput(f *fixture) service.CreateInput {
	return service.CreateInput{
		ActingUserID:   f.actors["clerk@sacco.example"],
		FirstName:      "Amina",
		LastName:       "Odhiambo",
		Position:       "accountant",
		Email:          "amina@member.example",
		Mobile1:        "+254700000001",
		IDType:         "national_id",
		IDNumber:       "12345678",
		Password:       "s3cret-pass",
		ApprovalLevels: 3,
	}
}

func TestService_CreateStartsAtSubmitted(t *testing.T) {
	f := newFixture(t)
	member, err := f.service.Create(ctxAt(testNow), validInput(f))
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusSubmitted, member.Workflow.Status)
	assert.Equal(t, workflow.StageSubmitted, member.Workflow.Stage)
	assert.Equal(t, "clerk@sacco.example", member.Workflow.CreatedBy)
	assert.NotEmpty(t, member.Number)
	assert.NotEmpty(t, member.PasswordHash)
	assert.NotEqual(t, "s3cret-pass", member.PasswordHash)
}

func TestService_CreateValidation(t *testing.T) {
	f := newFixture(t)

	in := validInput(f)
	in.Password = "short"
	_, err := f.service.Create(ctxAt(testNow), in)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))

	in = validInput(f)
	in.Email = ""
	_, err = f.service.Create(ctxAt(testNow), in)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
}

// Three review levels, chained in order, each by a distinct reviewer; final
// approval provisions the login account inside the same unit of work.
func TestService_ApprovalProvisionsAccount(t *testing.T) {
	f := newFixture(t)
	member, err := f.service.Create(ctxAt(testNow), validInput(f))
	require.NoError(t, err)

	reviewers := []string{
		"reviewer1@sacco.example",
		"reviewer2@sacco.example",
		"reviewer3@sacco.example",
	}
	for _, reviewer := range reviewers {
		member, err = f.service.Review(ctxAt(testNow), member.ID, service.ReviewInput{
			ActingUserID: f.actors[reviewer],
			Action:       "approve",
		})
		require.NoError(t, err)
	}

	assert.Equal(t, workflow.StatusApproved, member.Workflow.Status)
	assert.Equal(t, workflow.StageApproved, member.Workflow.Stage)
	assert.Equal(t, "reviewer1@sacco.example", member.Workflow.Review1.By)
	assert.Equal(t, "reviewer2@sacco.example", member.Workflow.Review2.By)
	assert.Equal(t, "reviewer3@sacco.example", member.Workflow.Review3.By)

	account, err := f.accounts.FindByEmail(context.Background(), "amina@member.example")
	require.NoError(t, err)
	assert.Equal(t, "Amina", account.FirstName)
	assert.Equal(t, "+254700000001", account.Mobile)
	assert.Equal(t, workflow.StatusApproved, account.Workflow.Status)
	assert.Equal(t, member.Workflow.ApprovalLevels, account.Workflow.ApprovalLevels)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("s3cret-pass")))
}

func TestService_RejectDoesNotProvision(t *testing.T) {
	f := newFixture(t)
	member, err := f.service.Create(ctxAt(testNow), validInput(f))
	require.NoError(t, err)

	member, err = f.service.Review(ctxAt(testNow), member.ID, service.ReviewInput{
		ActingUserID: f.actors["reviewer1@sacco.example"],
		Action:       "reject",
		Comments:     "missing identity document copy",
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, member.Workflow.Status)
	assert.Equal(t, workflow.StageSubmitted, member.Workflow.Stage)

	_, err = f.accounts.FindByEmail(context.Background(), "amina@member.example")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestService_SameReviewerForbidden(t *testing.T) {
	f := newFixture(t)
	member, err := f.service.Create(ctxAt(testNow), validInput(f))
	require.NoError(t, err)

	member, err = f.service.Review(ctxAt(testNow), member.ID, service.ReviewInput{
		ActingUserID: f.actors["reviewer1@sacco.example"],
		Action:       "approve",
	})
	require.NoError(t, err)

	_, err = f.service.Review(ctxAt(testNow), member.ID, service.ReviewInput{
		ActingUserID: f.actors["reviewer1@sacco.example"],
		Action:       "approve",
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeSameReviewer))
}

func TestService_AuditTrailOnApproval(t *testing.T) {
	f := newFixture(t)
	in := validInput(f)
	in.ApprovalLevels = 1
	member, err := f.service.Create(ctxAt(testNow), in)
	require.NoError(t, err)

	_, err = f.service.Review(ctxAt(testNow), member.ID, service.ReviewInput{
		ActingUserID: f.actors["reviewer1@sacco.example"],
		Action:       "approve",
	})
	require.NoError(t, err)

	events, err := f.audit.ListByRecord(context.Background(), member.ID.String())
	require.NoError(t, err)
	var names []string
	for _, e := range events {
		names = append(names, e.Action)
	}
	assert.Contains(t, names, "record_created")
	assert.Contains(t, names, "review_approved")
	assert.Contains(t, names, "record_approved")
	assert.Contains(t, names, "account_created")
	assert.Contains(t, names, "terminal_action_dispatched")
}
