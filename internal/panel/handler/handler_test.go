package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"conclave/internal/panel"
	dErrors "conclave/pkg/domain-errors"
)

type HandlerSuite struct {
	suite.Suite

	service *stubService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

type stubService struct {
	lastRequest  panel.RunRequest
	lastDeadline time.Time
	hadDeadline  bool
	result       *panel.RunResult
	err          error
	responders   []panel.Responder
}

func (s *stubService) Run(ctx context.Context, req panel.RunRequest) (*panel.RunResult, error) {
	s.lastRequest = req
	s.lastDeadline, s.hadDeadline = ctx.Deadline()
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubService) Responders() []panel.Responder {
	return s.responders
}

func (s *HandlerSuite) SetupTest() {
	s.service = &stubService{
		result: &panel.RunResult{RunID: "run-1", Query: "q"},
	}
	s.router = chi.NewRouter()
	New(s.service, slog.Default()).Register(s.router)
}

func (s *HandlerSuite) post(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/panel/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestRunSuccess() {
	rec := s.post(`{"query": "should we?", "responders": ["r1", "r2"], "bypass_cache": true, "max_tokens": 512}`)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("should we?", s.service.lastRequest.Query)
	s.Equal([]string{"r1", "r2"}, s.service.lastRequest.ResponderIDs)
	s.True(s.service.lastRequest.BypassCache)
	s.Equal(512, s.service.lastRequest.MaxTokens)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("run-1", body["run_id"])
}

func (s *HandlerSuite) TestRunPassesExplicitZeroTemperature() {
	rec := s.post(`{"query": "q", "temperature": 0}`)

	s.Equal(http.StatusOK, rec.Code)
	s.Require().NotNil(s.service.lastRequest.Temperature)
	s.InDelta(0.0, *s.service.lastRequest.Temperature, 1e-9)

	rec = s.post(`{"query": "q"}`)
	s.Equal(http.StatusOK, rec.Code)
	s.Nil(s.service.lastRequest.Temperature)
}

func (s *HandlerSuite) TestRunTimeoutBoundsContext() {
	before := time.Now()
	rec := s.post(`{"query": "q", "timeout_ms": 1500}`)

	s.Equal(http.StatusOK, rec.Code)
	s.True(s.service.hadDeadline)
	s.WithinDuration(before.Add(1500*time.Millisecond), s.service.lastDeadline, time.Second)

	rec = s.post(`{"query": "q"}`)
	s.Equal(http.StatusOK, rec.Code)
	s.False(s.service.hadDeadline)
}

func (s *HandlerSuite) TestRunRejectsMalformedBody() {
	rec := s.post(`{"query": `)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), string(dErrors.CodeBadRequest))
}

func (s *HandlerSuite) TestRunRejectsMissingQuery() {
	rec := s.post(`{"responders": ["r1"]}`)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), string(dErrors.CodeInvalidInput))
}

func (s *HandlerSuite) TestRunTranslatesServiceErrors() {
	s.service.err = dErrors.New(dErrors.CodeUnavailable, "no responder produced a response")

	rec := s.post(`{"query": "q"}`)

	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Contains(rec.Body.String(), string(dErrors.CodeUnavailable))
}

func (s *HandlerSuite) TestInternalErrorsOmitDetail() {
	s.service.err = dErrors.Wrap(dErrors.CodeInternal, "redis connection refused at 10.0.0.5", nil)

	rec := s.post(`{"query": "q"}`)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.NotContains(rec.Body.String(), "10.0.0.5")
}

func (s *HandlerSuite) TestResponders() {
	s.service.responders = []panel.Responder{
		{ID: "r1", Name: "Responder One", Origin: "US", Tier: "free", Free: true},
	}

	req := httptest.NewRequest(http.MethodGet, "/responders", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	var body struct {
		Responders []panel.Responder `json:"responders"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Require().Len(body.Responders, 1)
	s.Equal("r1", body.Responders[0].ID)
}
