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

	accountmodels "saccoflow/internal/account/models"
	accountservice "saccoflow/internal/account/service"
	accountstore "saccoflow/internal/account/store"
	ledgermodels "saccoflow/internal/ledger/models"
	ledgerstore "saccoflow/internal/ledger/store"
	"saccoflow/internal/meeting/models"
	"saccoflow/internal/meeting/service"
	meetingstore "saccoflow/internal/meeting/store"
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
		"secretary@sacco.example",
		"reviewer1@sacco.example",
		"reviewer2@sacco.example",
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
	return &fixture{
		service: service.New(
			meetingstore.NewMemoryStore(),
			ledger,
			accountservice.New(accounts, logger),
			tx.NewMemoryRunner(),
			publisher.NewPublisher(auditStore),
			metrics.NewWithRegistry(prometheus.NewRegistry()),
			nil,
			logger,
		),
		ledger: ledger,
		audit:  auditStore,
		actors: actors,
	}
}

func ctxAt(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

func register(members ...uuid.UUID) []models.AttendanceEntry {
	entries := []models.AttendanceEntry{
		{MemberID: members[0], Type: models.AttendancePresent},
		{MemberID: members[1], Type: models.AttendanceAbsent, Penalty: 200, Comments: "no apology"},
		{MemberID: members[2], Type: models.AttendanceLate, Penalty: 50},
	}
	return entries
}

func TestService_CreateStartsAtSubmitted(t *testing.T) {
	f := newFixture(t)
	meeting, err := f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID:   f.actors["secretary@sacco.example"],
		Title:          "March monthly meeting",
		Date:           testNow,
		Attendance:     register(uuid.New(), uuid.New(), uuid.New()),
		ApprovalLevels: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusSubmitted, meeting.Workflow.Status)
	assert.Equal(t, workflow.StageSubmitted, meeting.Workflow.Stage)
	assert.Equal(t, "secretary@sacco.example", meeting.Workflow.CreatedBy)
	assert.Len(t, meeting.Attendance, 3)
}

func TestService_CreateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID:   f.actors["secretary@sacco.example"],
		Date:           testNow,
		ApprovalLevels: 1,
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))

	_, err = f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID: f.actors["secretary@sacco.example"],
		Title:        "no date",
		Attendance: []models.AttendanceEntry{
			{MemberID: uuid.New(), Type: models.AttendanceAbsent, Penalty: 100},
		},
		ApprovalLevels: 1,
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))

	_, err = f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID: f.actors["secretary@sacco.example"],
		Title:        "bad entry",
		Date:         testNow,
		Attendance: []models.AttendanceEntry{
			{Type: models.AttendanceAbsent, Penalty: 100},
		},
		ApprovalLevels: 1,
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
}

// Only entries carrying a penalty post to the ledger, each as a charge and
// settlement pair.
func TestService_ApprovalPostsPenaltyPairs(t *testing.T) {
	f := newFixture(t)
	absent, late := uuid.New(), uuid.New()
	meeting, err := f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID:   f.actors["secretary@sacco.example"],
		Title:          "March monthly meeting",
		Date:           testNow,
		Attendance:     register(uuid.New(), absent, late),
		ApprovalLevels: 2,
	})
	require.NoError(t, err)

	for _, reviewer := range []string{"reviewer1@sacco.example", "reviewer2@sacco.example"} {
		meeting, err = f.service.Review(ctxAt(testNow), meeting.ID, service.ReviewInput{
			ActingUserID: f.actors[reviewer],
			Action:       "approve",
		})
		require.NoError(t, err)
	}
	assert.Equal(t, workflow.StatusApproved, meeting.Workflow.Status)
	assert.Equal(t, workflow.StageApproved, meeting.Workflow.Stage)

	lines, err := f.ledger.ListBySource(context.Background(), workflow.KindMeeting, meeting.ID)
	require.NoError(t, err)
	require.Len(t, lines, 4)

	byMember := map[uuid.UUID][]*ledgermodels.Line{}
	for _, line := range lines {
		assert.Equal(t, workflow.StatusApproved, line.Status)
		assert.True(t, line.Closed)
		assert.Equal(t, "reviewer2@sacco.example", line.CreatedBy)
		byMember[line.MemberID] = append(byMember[line.MemberID], line)
	}
	require.Len(t, byMember[absent], 2)
	require.Len(t, byMember[late], 2)
	assert.Equal(t, 200.0, byMember[absent][0].Amount)
	assert.Equal(t, 50.0, byMember[late][0].Amount)
	kinds := map[ledgermodels.LineKind]bool{}
	for _, line := range byMember[absent] {
		kinds[line.Kind] = true
	}
	assert.True(t, kinds[ledgermodels.LinePenaltyCharge])
	assert.True(t, kinds[ledgermodels.LinePenaltySettlement])
}

func TestService_ApprovalWithoutPenaltiesPostsNothing(t *testing.T) {
	f := newFixture(t)
	meeting, err := f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID: f.actors["secretary@sacco.example"],
		Title:        "full attendance",
		Date:         testNow,
		Attendance: []models.AttendanceEntry{
			{MemberID: uuid.New(), Type: models.AttendancePresent},
			{MemberID: uuid.New(), Type: models.AttendancePresent},
		},
		ApprovalLevels: 1,
	})
	require.NoError(t, err)

	meeting, err = f.service.Review(ctxAt(testNow), meeting.ID, service.ReviewInput{
		ActingUserID: f.actors["reviewer1@sacco.example"],
		Action:       "approve",
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, meeting.Workflow.Status)

	lines, err := f.ledger.ListBySource(context.Background(), workflow.KindMeeting, meeting.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestService_RejectFreezesMeeting(t *testing.T) {
	f := newFixture(t)
	meeting, err := f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID:   f.actors["secretary@sacco.example"],
		Title:          "disputed register",
		Date:           testNow,
		Attendance:     register(uuid.New(), uuid.New(), uuid.New()),
		ApprovalLevels: 2,
	})
	require.NoError(t, err)

	meeting, err = f.service.Review(ctxAt(testNow), meeting.ID, service.ReviewInput{
		ActingUserID: f.actors["reviewer1@sacco.example"],
		Action:       "reject",
		Comments:     "register disagrees with minutes",
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, meeting.Workflow.Status)
	assert.Equal(t, workflow.StageSubmitted, meeting.Workflow.Stage)

	lines, err := f.ledger.ListBySource(context.Background(), workflow.KindMeeting, meeting.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	events, err := f.audit.ListByRecord(context.Background(), meeting.ID.String())
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
	meeting, err := f.service.Create(ctxAt(testNow), service.CreateInput{
		ActingUserID:   f.actors["secretary@sacco.example"],
		Title:          "self approval attempt",
		Date:           testNow,
		Attendance:     register(uuid.New(), uuid.New(), uuid.New()),
		ApprovalLevels: 1,
	})
	require.NoError(t, err)

	_, err = f.service.Review(ctxAt(testNow), meeting.ID, service.ReviewInput{
		ActingUserID: f.actors["secretary@sacco.example"],
		Action:       "approve",
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeSelfReview))
}
