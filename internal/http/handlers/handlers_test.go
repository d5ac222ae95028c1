package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseclarity/backend/internal/ai"
	"github.com/caseclarity/backend/internal/auth"
	"github.com/caseclarity/backend/internal/db/dbtest"
	"github.com/caseclarity/backend/internal/http/middleware"
	"github.com/caseclarity/backend/internal/logging"
	"github.com/caseclarity/backend/internal/models"
	"github.com/caseclarity/backend/internal/service"
	"github.com/caseclarity/backend/internal/utils"
)

type recordingSender struct {
	mu   sync.Mutex
	to   []string
	body []string
	err  error
}

func (r *recordingSender) SendText(ctx context.Context, to, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to = append(r.to, to)
	r.body = append(r.body, body)
	return r.err
}

type failingLLM struct{}

func (failingLLM) Name() string { return "failing" }

func (failingLLM) Generate(ctx context.Context, req ai.Request) (string, error) {
	return "", errors.New("upstream 500")
}

type stubIdentity struct {
	inUse    map[string]bool
	accounts map[string]auth.Account
	created  []auth.NewUser
}

func (s *stubIdentity) EmailInUse(ctx context.Context, email string) (bool, error) {
	return s.inUse[email], nil
}

func (s *stubIdentity) CreateUser(ctx context.Context, u auth.NewUser) (string, error) {
	s.created = append(s.created, u)
	return "uid-" + u.Email, nil
}

func (s *stubIdentity) GetAccount(ctx context.Context, uid string) (auth.Account, error) {
	acct, ok := s.accounts[uid]
	if !ok {
		return auth.Account{}, errors.New("no such account")
	}
	return acct, nil
}

func (s *stubIdentity) DeleteUser(ctx context.Context, uid string) error { return nil }

type testEnv struct {
	store    *dbtest.Store
	sender   *recordingSender
	identity *stubIdentity
	handler  *Handler
	router   *gin.Engine
}

func newTestEnv(t *testing.T, llm ai.LLM) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := dbtest.New()
	sender := &recordingSender{}
	identity := &stubIdentity{inUse: map[string]bool{}, accounts: map[string]auth.Account{}}
	sealer, err := utils.NewSealer(strings.Repeat("ab", 32))
	require.NoError(t, err)

	logs := logging.NewBuffer(50)
	logger := zerolog.New(logs)
	intake := ai.Intake{LLM: llm}
	analyzer := ai.Analyzer{LLM: llm}
	drafter := ai.Drafter{LLM: llm}

	h := &Handler{
		Store:     store,
		Cases:     &service.CaseService{Store: store, Analyzer: analyzer, Drafter: drafter},
		Users:     &service.UserService{Store: store, Auth: identity, Logger: logger},
		Intake:    &service.IntakeService{Store: store, Intake: intake, Sender: sender, Logger: logger},
		Monitor:   &service.MonitorService{Store: store, Sealer: sealer, Logger: logger},
		Health:    &service.HealthService{Store: store, LLM: llm, StartedAt: time.Now()},
		Assistant: intake,
		Analyzer:  analyzer,
		Drafter:   drafter,
		Logs:      logs,
		Validator: validator.New(),
		Logger:    logger,

		VerifyToken:    "verify-me",
		RequestTimeout: 5 * time.Second,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", h.Healthz)
	r.GET("/api/whatsapp", h.WebhookVerify)
	r.POST("/api/whatsapp", h.WebhookReceive)

	api := r.Group("/api", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "lawyer-1")
		c.Next()
	})
	api.POST("/register", h.Register)
	api.GET("/dashboard/summary", h.DashboardSummary)
	api.GET("/cases", h.CasesList)
	api.GET("/cases/:id", h.CaseDetails)
	api.POST("/cases/:id/decision", h.CaseDecision)
	api.POST("/cases/:id/analysis", h.CaseAnalysis)
	api.POST("/cases/:id/drafts", h.CaseDraft)
	api.POST("/cases/:id/conversation/status", h.CaseConversationStatus)
	api.POST("/ai/analysis", h.AIAnalysis)
	api.POST("/ai/drafts", h.AIDraft)
	api.GET("/settings/credentials", h.CredentialsGet)
	api.PUT("/settings/credentials", h.CredentialsSave)
	api.POST("/settings/monitor", h.MonitorRun)
	api.GET("/admin/users", h.UsersList)
	api.POST("/admin/users", h.UsersCreate)
	api.GET("/admin/system-health", h.SystemHealth)
	api.GET("/admin/logs", h.AdminLogs)
	api.POST("/admin/intake/test", h.IntakeTest)

	return &testEnv{store: store, sender: sender, identity: identity, handler: h, router: r}
}

func (e *testEnv) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	case []byte:
		buf.Write(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedCase(t *testing.T, id string) models.Case {
	t.Helper()
	c := models.NewCase(id, "54911"+id, "Ana", time.Now().UTC())
	c.CaseDetails.Type = "Laboral"
	c.CaseDetails.Description = "Me despidieron sin causa después de cinco años."
	require.NoError(t, e.store.CreateCase(context.Background(), c))
	return c
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var out errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/healthz", nil).Code)

	env.store.PingErr = errors.New("connection refused")
	w := env.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DB_UNAVAILABLE", decodeError(t, w).Error.Code)
}

func TestCasesListRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})
	w := env.do(http.MethodGet, "/api/cases?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Error.Code)
}

func TestCasesListAndDetails(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})
	env.seedCase(t, "case-1")

	w := env.do(http.MethodGet, "/api/cases?status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []models.Case
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "case-1", items[0].ID)

	w = env.do(http.MethodGet, "/api/cases?status=accepted", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/cases/case-1", nil).Code)
	w = env.do(http.MethodGet, "/api/cases/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Error.Code)
}

func TestCaseDecision(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})
	env.seedCase(t, "case-1")

	w := env.do(http.MethodPost, "/api/cases/case-1/decision", map[string]string{"status": "accepted", "decision": "Tomamos el caso"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var c models.Case
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	assert.Equal(t, models.DecisionAccepted, c.LawyerDecision.Status)
	assert.NotNil(t, c.LawyerDecision.Timestamp)

	w = env.do(http.MethodPost, "/api/cases/case-1/decision", map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decodeError(t, w).Error.Code)
}

func TestCaseDecisionValidation(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})
	env.seedCase(t, "case-1")

	w := env.do(http.MethodPost, "/api/cases/case-1/decision", map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Error.Code)

	w = env.do(http.MethodPost, "/api/cases/case-1/decision", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Error.Code)
}

func TestCaseAnalysisPersists(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{ModelVersion: "test"})
	env.seedCase(t, "case-1")

	w := env.do(http.MethodPost, "/api/cases/case-1/analysis", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var analysis models.CaseAnalysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	assert.GreaterOrEqual(t, analysis.SuccessProbability, 0)
	assert.LessOrEqual(t, analysis.SuccessProbability, 100)
	assert.True(t, models.ValidComplexity(analysis.Complexity))

	stored, err := env.store.GetCase(context.Background(), "case-1")
	require.NoError(t, err)
	require.NotNil(t, stored.AIAnalysis)
	assert.Equal(t, analysis, *stored.AIAnalysis)
}

func TestCaseAnalysisProviderFailure(t *testing.T) {
	env := newTestEnv(t, failingLLM{})
	env.seedCase(t, "case-1")

	w := env.do(http.MethodPost, "/api/cases/case-1/analysis", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "LLM_ERROR", decodeError(t, w).Error.Code)
}

func TestAIEndpoints(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})

	w := env.do(http.MethodPost, "/api/ai/analysis", AnalysisRequest{CaseType: "Civil", CaseSummary: "Choque en una esquina."})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/ai/analysis", AnalysisRequest{CaseType: "Civil"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/ai/drafts", ai.DraftInput{
		CaseType: "Laboral", DraftType: ai.DraftDemandLetter, CaseSummary: "Despido.", ClientName: "Ana", OpponentName: "ACME SA",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.NotEmpty(t, out["draft"])

	w = env.do(http.MethodPost, "/api/ai/drafts", ai.DraftInput{
		CaseType: "Laboral", DraftType: "poem", CaseSummary: "Despido.", ClientName: "Ana", OpponentName: "ACME SA",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCaseDraft(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})
	env.seedCase(t, "case-1")

	w := env.do(http.MethodPost, "/api/cases/case-1/drafts", DraftRequest{DraftType: ai.DraftLaborClaim, OpponentName: "ACME SA"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "draft")
}

func TestConversationStatus(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})
	env.seedCase(t, "case-1")

	w := env.do(http.MethodPost, "/api/cases/case-1/conversation/status", ConversationStatusRequest{Status: models.ConversationCompleted})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/cases/case-1/conversation/status", ConversationStatusRequest{Status: models.ConversationAbandoned})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDashboardSummary(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})
	env.seedCase(t, "case-1")
	env.seedCase(t, "case-2")

	w := env.do(http.MethodGet, "/api/dashboard/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary service.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, models.StatusCounts{Pending: 2, Total: 2}, summary.Counts)
	assert.Nil(t, summary.LatestMonitor)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})
	require.NoError(t, env.store.CreateUser(context.Background(), models.User{
		ID: "u1", Name: "Ana", Email: "ana@example.com", Role: models.RoleLawyer, Status: models.UserActive,
	}))

	w := env.do(http.MethodPost, "/api/admin/users", service.CreateUserInput{
		Name: "Ana Bis", Email: "ANA@example.com", Password: "secret1", Role: models.RoleLawyer, Status: models.UserActive,
	})
	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "EMAIL_IN_USE", body.Error.Code)
	assert.Equal(t, "email", body.Error.Details["field"])
	assert.Empty(t, env.identity.created)
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})

	w := env.do(http.MethodPost, "/api/admin/users", service.CreateUserInput{
		Name: "Luis", Email: "luis@example.com", Password: "secret1", Role: models.RoleAdmin, Status: models.UserActive,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, env.identity.created, 1)

	w = env.do(http.MethodPost, "/api/admin/users", service.CreateUserInput{
		Name: "Short", Email: "short@example.com", Password: "123", Role: models.RoleAdmin, Status: models.UserActive,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users, 1)
}

func TestCredentialsAndMonitor(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})

	w := env.do(http.MethodGet, "/api/settings/credentials", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Password\":\"")

	w = env.do(http.MethodPut, "/api/settings/credentials", map[string]string{"mevUser": "20123456789", "mevPassword": "clave"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view service.CredentialsView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "20123456789", view.MEVUser)
	assert.True(t, view.HasMEVPassword)
	assert.NotContains(t, w.Body.String(), "clave")

	w = env.do(http.MethodPost, "/api/settings/monitor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var run models.MonitorRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, service.MonitorSuccess, run.Status)
	assert.Equal(t, "lawyer-1", run.UserID)
}

func TestCredentialsWithoutSecret(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})
	env.handler.Monitor.Sealer = nil

	w := env.do(http.MethodPut, "/api/settings/credentials", map[string]string{"mevPassword": "clave"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "NOT_CONFIGURED", decodeError(t, w).Error.Code)
}

func TestSystemHealthAndLogs(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})
	env.handler.Logger.Info().Msg("first line")
	env.handler.Logger.Warn().Msg("second line")

	w := env.do(http.MethodGet, "/api/admin/system-health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report service.HealthReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.NotEmpty(t, report.Components)

	w = env.do(http.MethodGet, "/api/admin/logs?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs struct {
		Items []logging.Entry `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs.Items, 1)
	assert.Equal(t, "second line", logs.Items[0].Message)
}

func TestIntakeTest(t *testing.T) {
	env := newTestEnv(t, ai.MockLLM{})

	w := env.do(http.MethodPost, "/api/admin/intake/test", IntakeTestRequest{Message: "Hola"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CaseClarity")

	w = env.do(http.MethodPost, "/api/admin/intake/test", IntakeTestRequest{
		Message: "Hola",
		History: []ai.Turn{{Role: "system", Content: "x"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
