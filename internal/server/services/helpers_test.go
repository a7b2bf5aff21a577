package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/ems/internal/cryptox"
	"github.com/dmitrijs2005/ems/internal/logging"
	"github.com/dmitrijs2005/ems/internal/server/auth"
	"github.com/dmitrijs2005/ems/internal/server/repositories/memory"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	cryptox.PasswordCost = bcrypt.MinCost
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

var codeRe = regexp.MustCompile(`\d{6}`)

// lastCode returns the code from the most recent mail to addr.
func (m *fakeMailer) lastCode(t *testing.T, addr string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == addr {
			return codeRe.FindString(m.sent[i].Body)
		}
	}
	t.Fatalf("no mail sent to %s", addr)
	return ""
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// fixture wires every service over one in-memory store.
type fixture struct {
	clock    *fakeClock
	mailer   *fakeMailer
	rm       *memory.RepositoryManager
	tx       *memory.Transactor
	creds    *CredentialStore
	otps     *OTPEngine
	sessions *SessionRegistry
	auth     *AuthService
}

const (
	testOTPTTL     = 10 * time.Minute
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 24 * time.Hour
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock:  newFakeClock(),
		mailer: &fakeMailer{},
		rm:     memory.NewRepositoryManager(),
		tx:     memory.NewTransactor(),
	}
	signer := auth.NewSigner([]byte("test-secret")).WithClock(f.clock.Now)

	f.creds = NewCredentialStore(f.tx, f.rm)
	f.otps = NewOTPEngine(f.tx, f.rm, testOTPTTL).WithClock(f.clock.Now)
	f.sessions = NewSessionRegistry(NewSQLSessionStore(f.tx, f.rm), signer, testAccessTTL, testRefreshTTL).WithClock(f.clock.Now)
	f.auth = NewAuthService(f.creds, f.otps, f.sessions, f.mailer, logging.Nop())
	return f
}

// verifiedUser signs up and verifies an account and returns its id.
func (f *fixture) verifiedUser(t *testing.T, email, password string) string {
	t.Helper()
	ctx := context.Background()

	u, err := f.auth.Signup(ctx, SignupRequest{UserName: "Test", Email: email, Password: password, ReEnterPassword: password})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := f.auth.VerifyOTP(ctx, email, f.mailer.lastCode(t, NormalizeEmail(email))); err != nil {
		t.Fatalf("verify: %v", err)
	}
	return u.ID
}

func ptr(f float64) *float64 { return &f }

var errBoom = errors.New("boom")
