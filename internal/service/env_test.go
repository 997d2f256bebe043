package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/evoting/internal/config"
	"github.com/xxxsen/evoting/internal/model"
	"github.com/xxxsen/evoting/internal/repo"
	"github.com/xxxsen/evoting/internal/revocation"
	"github.com/xxxsen/evoting/internal/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type captureSender struct {
	mu   sync.Mutex
	sent map[string][]string
	fail error
}

func (s *captureSender) Send(_ context.Context, to, _, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if s.sent == nil {
		s.sent = make(map[string][]string)
	}
	s.sent[to] = append(s.sent[to], body)
	return nil
}

func (s *captureSender) count(to string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent[to])
}

type testEnv struct {
	db         *repo.DB
	voters     *repo.VoterRepo
	codes      *repo.OTPRepo
	ballotRepo *repo.BallotRepo
	otp        *OTPService
	sessions   *SessionService
	auth       *AuthService
	ballots    *BallotService
	tally      *TallyService
	candidates *CandidateService
	mail       *captureSender
	clock      *fakeClock
	nextCodes  []string
	codeMu     sync.Mutex
}

func newTestEnv(t *testing.T, policy model.DeletePolicy) *testEnv {
	t.Helper()
	d := testutil.OpenTestDB(t)
	env := &testEnv{
		db:         d,
		voters:     repo.NewVoterRepo(d),
		codes:      repo.NewOTPRepo(d),
		ballotRepo: repo.NewBallotRepo(d),
		mail:       &captureSender{},
		clock:      &fakeClock{now: time.Unix(1700000000, 0)},
	}
	candidateRepo := repo.NewCandidateRepo(d)
	env.otp = NewOTPService(env.codes, env.mail, config.OTPConfig{
		Length:          6,
		TTLSeconds:      600,
		CooldownSeconds: 60,
		MaxAttempts:     5,
	})
	env.otp.now = env.clock.Now
	env.otp.gen = env.popCode
	env.sessions = NewSessionService([]byte("test-secret"), time.Hour, revocation.NewMemoryStore(128, time.Hour))
	env.sessions.now = env.clock.Now
	env.auth = NewAuthService(env.voters, env.otp, env.sessions)
	env.auth.now = env.clock.Now
	env.ballots = NewBallotService(env.ballotRepo)
	env.ballots.now = env.clock.Now
	env.tally = NewTallyService(env.ballotRepo)
	env.candidates = NewCandidateService(candidateRepo, env.ballotRepo, policy, "https://img.example/default.png")
	env.candidates.now = env.clock.Now
	return env
}

// queueCodes fixes the next codes handed out by the issuer.
func (e *testEnv) queueCodes(codes ...string) {
	e.codeMu.Lock()
	defer e.codeMu.Unlock()
	e.nextCodes = append(e.nextCodes, codes...)
}

func (e *testEnv) clearCodes() {
	e.codeMu.Lock()
	defer e.codeMu.Unlock()
	e.nextCodes = nil
}

func (e *testEnv) popCode() (string, error) {
	e.codeMu.Lock()
	defer e.codeMu.Unlock()
	if len(e.nextCodes) == 0 {
		return e.otp.generateCode()
	}
	code := e.nextCodes[0]
	e.nextCodes = e.nextCodes[1:]
	return code, nil
}

// registerVerified runs the full register and verify flow for email.
func (e *testEnv) registerVerified(t *testing.T, email string) *model.Voter {
	t.Helper()
	ctx := context.Background()
	e.queueCodes("111111")
	_, err := e.auth.Register(ctx, email, "secret")
	require.NoError(t, err)
	_, voter, err := e.auth.VerifyCode(ctx, email, "111111")
	require.NoError(t, err)
	return voter
}

// seedVoters inserts verified voters directly, skipping the slow hashing path.
func (e *testEnv) seedVoters(t *testing.T, n int) []*model.Voter {
	t.Helper()
	now := e.clock.Now().Unix()
	out := make([]*model.Voter, 0, n)
	for i := 0; i < n; i++ {
		v := &model.Voter{
			Email:        fmt.Sprintf("voter%d@example.com", i),
			PasswordHash: "x",
			Verified:     true,
			Ctime:        now,
			Mtime:        now,
		}
		require.NoError(t, e.voters.Create(context.Background(), v))
		out = append(out, v)
	}
	return out
}

func (e *testEnv) addCandidate(t *testing.T, name, party string) *CandidateView {
	t.Helper()
	c, err := e.candidates.Create(context.Background(), CandidateInput{Name: name, Party: party})
	require.NoError(t, err)
	return c
}

var errMailDown = errors.New("smtp: connection refused")
