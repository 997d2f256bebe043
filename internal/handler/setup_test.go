package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/evoting/internal/config"
	"github.com/xxxsen/evoting/internal/handler"
	"github.com/xxxsen/evoting/internal/middleware"
	"github.com/xxxsen/evoting/internal/model"
	"github.com/xxxsen/evoting/internal/repo"
	"github.com/xxxsen/evoting/internal/revocation"
	"github.com/xxxsen/evoting/internal/service"
	"github.com/xxxsen/evoting/internal/testutil"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type mailbox struct {
	mu   sync.Mutex
	last map[string]string
}

func (m *mailbox) Send(_ context.Context, to, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		m.last = make(map[string]string)
	}
	m.last[to] = codePattern.FindString(body)
	return nil
}

func (m *mailbox) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last[to]
}

type testServer struct {
	router http.Handler
	mail   *mailbox
	auth   *service.AuthService
}

func setupRouter(t *testing.T, limits config.RateLimitConfig) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenTestDB(t)
	voterRepo := repo.NewVoterRepo(db)
	otpRepo := repo.NewOTPRepo(db)
	ballotRepo := repo.NewBallotRepo(db)
	candidateRepo := repo.NewCandidateRepo(db)

	mail := &mailbox{}
	otpService := service.NewOTPService(otpRepo, mail, config.OTPConfig{
		Length:          6,
		TTLSeconds:      600,
		CooldownSeconds: 60,
		MaxAttempts:     5,
	})
	sessions := service.NewSessionService([]byte("test-secret"), time.Hour, revocation.NewMemoryStore(64, time.Hour))
	authService := service.NewAuthService(voterRepo, otpService, sessions)
	ballotService := service.NewBallotService(ballotRepo)
	tallyService := service.NewTallyService(ballotRepo)
	candidateService := service.NewCandidateService(candidateRepo, ballotRepo, model.DeleteDisallow, "")

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(authService),
		Candidates:    handler.NewCandidateHandler(candidateService, authService),
		Votes:         handler.NewVoteHandler(ballotService, tallyService),
		Health:        handler.NewHealthHandler(db.Conn()),
		Authenticator: authService,
		RateLimit:     limits,
	}

	engine, err := webapi.NewEngine(
		"/api",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	return &testServer{router: engine, mail: mail, auth: authService}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)
	return resp
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, dst interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	if dst != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, dst))
	}
	return env
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  model.Voter `json:"user"`
}

// signUp registers email and completes verification, returning the session token.
func (s *testServer) signUp(t *testing.T, email string) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": "secret"})
	require.Equal(t, http.StatusCreated, resp.Code)
	resp = s.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"email": email, "otp": s.mail.code(email)})
	require.Equal(t, http.StatusOK, resp.Code)
	var out tokenResponse
	decode(t, resp, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	_, err := s.auth.EnsureAdmin(context.Background(), "admin@example.com", "admin-pass")
	require.NoError(t, err)
	resp := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@example.com", "password": "admin-pass"})
	require.Equal(t, http.StatusOK, resp.Code)
	var out tokenResponse
	decode(t, resp, &out)
	return out.Token
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
