package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"saccoflow/internal/platform/jwttoken"
	"saccoflow/internal/platform/metrics"
	"saccoflow/internal/posting/handler/mocks"
	"saccoflow/internal/posting/models"
	"saccoflow/internal/posting/service"
	"saccoflow/internal/workflow"
	dErrors "saccoflow/pkg/domain-errors"
	"saccoflow/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/posting-mocks.go -package=mocks Service

const testSigningKey = "test-signing-key-for-handler-tests"

type PostingHandlerSuite struct {
	suite.Suite
	token string
}

func (s *PostingHandlerSuite) SetupSuite() {
	jwtService := jwttoken.NewJWTService(testSigningKey)
	token, err := jwtService.GenerateAccessToken(uuid.New(), "reviewer@sacco.example", "admin", time.Hour)
	require.NoError(s.T(), err)
	s.token = token
}

func TestPostingHandlerSuite(t *testing.T) {
	suite.Run(t, new(PostingHandlerSuite))
}

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	validator := jwttoken.NewAdapter(jwttoken.NewJWTService(testSigningKey))

	h := New(mockService, logger, m, validator, 5*time.Second)
	r := chi.NewRouter()
	h.Register(r)
	return r, mockService
}

func (s *PostingHandlerSuite) authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+s.token)
	return req
}

func (s *PostingHandlerSuite) TestHandleCreate() {
	router, mockService := newTestRouter(s.T())
	actingUser := uuid.New()
	created := &models.Posting{
		ID:       uuid.New(),
		Code:     "MP0001",
		MemberID: uuid.New(),
		Period:   "2026-03",
		Workflow: workflow.State{
			Status:         workflow.StatusSubmitted,
			Stage:          workflow.StageSubmitted,
			ApprovalLevels: 2,
		},
	}
	mockService.EXPECT().Create(gomock.Any(), gomock.Any()).Return(created, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/postings", map[string]any{
		"actingUserId": actingUser,
		"memberId":     created.MemberID,
		"period":       "2026-03",
		"saving":       1000,
	})
	rr := testutil.DoRequest(router, s.authed(req))

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[models.Posting](s.T(), rr)
	assert.Equal(s.T(), created.ID, resp.ID)
	assert.Equal(s.T(), workflow.StageSubmitted, resp.Workflow.Stage)
}

func (s *PostingHandlerSuite) TestHandleReview() {
	router, mockService := newTestRouter(s.T())
	id := uuid.New()
	actingUser := uuid.New()
	reviewed := &models.Posting{
		ID: id,
		Workflow: workflow.State{
			Status:         workflow.StatusSubmitted,
			Stage:          workflow.StagePrimary,
			ApprovalLevels: 2,
		},
	}
	mockService.EXPECT().Review(gomock.Any(), id, gomock.AssignableToTypeOf(service.ReviewInput{})).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, in service.ReviewInput) (*models.Posting, error) {
			assert.Equal(s.T(), actingUser, in.ActingUserID)
			assert.Equal(s.T(), "approve", in.Action)
			require.NotNil(s.T(), in.GuarantorRequired)
			assert.True(s.T(), *in.GuarantorRequired)
			return reviewed, nil
		})

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/postings/"+id.String()+"/review", map[string]any{
		"actingUserId":      actingUser,
		"action":            "approve",
		"guarantorRequired": true,
	})
	rr := testutil.DoRequest(router, s.authed(req))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[models.Posting](s.T(), rr)
	assert.Equal(s.T(), workflow.StagePrimary, resp.Workflow.Stage)
}

func (s *PostingHandlerSuite) TestHandleReviewInvalidID() {
	router, _ := newTestRouter(s.T())

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/postings/not-a-uuid/review", map[string]any{
		"actingUserId": uuid.New(),
		"action":       "approve",
	})
	rr := testutil.DoRequest(router, s.authed(req))

	testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
	testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeValidation))
}

func (s *PostingHandlerSuite) TestHandleReviewConflict() {
	router, mockService := newTestRouter(s.T())
	id := uuid.New()
	mockService.EXPECT().Review(gomock.Any(), id, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeAlreadyFinalized, "record is already finalized"))

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/postings/"+id.String()+"/review", map[string]any{
		"actingUserId": uuid.New(),
		"action":       "approve",
	})
	rr := testutil.DoRequest(router, s.authed(req))

	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
	testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeAlreadyFinalized))
}

func (s *PostingHandlerSuite) TestHandleGetNotFound() {
	router, mockService := newTestRouter(s.T())
	id := uuid.New()
	mockService.EXPECT().Get(gomock.Any(), id).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "posting not found"))

	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/postings/"+id.String(), nil)
	rr := testutil.DoRequest(router, s.authed(req))

	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeNotFound))
}

func (s *PostingHandlerSuite) TestRequiresBearerToken() {
	router, _ := newTestRouter(s.T())

	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/postings", nil)
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func (s *PostingHandlerSuite) TestRejectsNonJSONBody() {
	router, _ := newTestRouter(s.T())

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/postings", map[string]any{})
	req.Header.Set("Content-Type", "text/plain")
	rr := testutil.DoRequest(router, s.authed(req))

	testutil.AssertStatus(s.T(), rr, http.StatusUnsupportedMediaType)
}
