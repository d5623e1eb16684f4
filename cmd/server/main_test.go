package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"

	"github.com/HammerMeetNail/repeatapi/internal/config"
	"github.com/HammerMeetNail/repeatapi/internal/handlers"
	"github.com/HammerMeetNail/repeatapi/internal/logging"
	"github.com/HammerMeetNail/repeatapi/internal/middleware"
	"github.com/HammerMeetNail/repeatapi/internal/models"
)

type fakeMigrator struct {
	upErr      error
	downErr    error
	version    uint
	dirty      bool
	versionErr error
	calls      []string
	closed     bool
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.upErr
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return f.downErr
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	f.calls = append(f.calls, "version")
	return f.version, f.dirty, f.versionErr
}

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

type stubRegistration struct {
	outcome models.RegistrationOutcome
	calls   int
}

func (s *stubRegistration) Register(ctx context.Context, method string, req models.RegistrationRequest) models.RegistrationOutcome {
	s.calls++
	if method != http.MethodPost {
		return models.OutcomeMethodNotAllowed
	}
	return s.outcome
}

type stubHealth struct{ err error }

func (s stubHealth) Health(ctx context.Context) error { return s.err }

func TestMigrateSchema(t *testing.T) {
	tests := []struct {
		name      string
		action    string
		migrator  *fakeMigrator
		wantCall  string
		wantErr   bool
		wantInLog string
	}{
		{name: "up", action: "up", migrator: &fakeMigrator{}, wantCall: "up", wantInLog: "Migrations completed"},
		{name: "up error", action: "up", migrator: &fakeMigrator{upErr: errors.New("boom")}, wantCall: "up", wantErr: true},
		{name: "down", action: "down", migrator: &fakeMigrator{}, wantCall: "down", wantInLog: "Migrations rolled back"},
		{name: "version", action: "version", migrator: &fakeMigrator{version: 1}, wantCall: "version", wantInLog: "Schema version"},
		{name: "no version", action: "version", migrator: &fakeMigrator{versionErr: migrate.ErrNilVersion}, wantCall: "version", wantInLog: "No migrations applied"},
		{name: "version error", action: "version", migrator: &fakeMigrator{versionErr: errors.New("db down")}, wantCall: "version", wantErr: true},
		{name: "unknown", action: "sideways", migrator: &fakeMigrator{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := migrateSchema(tt.migrator, tt.action, logging.New().SetOutput(&buf))

			if tt.wantErr != (err != nil) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantCall != "" && (len(tt.migrator.calls) != 1 || tt.migrator.calls[0] != tt.wantCall) {
				t.Errorf("expected single %s call, got %v", tt.wantCall, tt.migrator.calls)
			}
			if tt.wantCall == "" && len(tt.migrator.calls) != 0 {
				t.Errorf("expected no calls, got %v", tt.migrator.calls)
			}
			if tt.wantInLog != "" && !strings.Contains(buf.String(), tt.wantInLog) {
				t.Errorf("expected log to contain %q, got %s", tt.wantInLog, buf.String())
			}
		})
	}
}

func TestRunMigrations_ClosesMigrator(t *testing.T) {
	fake := &fakeMigrator{}
	orig := newMigrator
	t.Cleanup(func() { newMigrator = orig })

	var gotDSN string
	newMigrator = func(dsn string) (schemaMigrator, error) {
		gotDSN = dsn
		return fake, nil
	}

	var buf bytes.Buffer
	if err := runMigrations("postgres://x", "up", logging.New().SetOutput(&buf)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotDSN != "postgres://x" {
		t.Errorf("expected dsn to be passed through, got %q", gotDSN)
	}
	if !fake.closed {
		t.Error("expected migrator to be closed")
	}
}

func TestRunMigrations_ConstructorError(t *testing.T) {
	orig := newMigrator
	t.Cleanup(func() { newMigrator = orig })
	newMigrator = func(dsn string) (schemaMigrator, error) {
		return nil, errors.New("bad dsn")
	}

	err := runMigrations("postgres://x", "up", logging.New().SetOutput(&bytes.Buffer{}))
	if err == nil || !strings.Contains(err.Error(), "bad dsn") {
		t.Fatalf("expected constructor error, got %v", err)
	}
}

func newTestRouter(t *testing.T, reg *stubRegistration, dbErr error) http.Handler {
	t.Helper()
	cfg := &config.Config{Server: config.ServerConfig{Secure: true}}
	return newRouter(cfg, logging.New().SetOutput(&bytes.Buffer{}), routes{
		registration: handlers.NewRegistrationHandler(reg, 1024),
		health:       handlers.NewHealthHandler(stubHealth{err: dbErr}, stubHealth{}),
		signupLimit:  middleware.NewRateLimiter(nil, 10, time.Hour, "ratelimit:signup:", middleware.ClientIPKey(false)),
	})
}

func TestNewRouter_SignupAcceptsAnyMethod(t *testing.T) {
	reg := &stubRegistration{outcome: models.OutcomeRegistered}
	router := newTestRouter(t, reg, nil)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(method, "/api/signup", nil))

		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", method, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Only POST requests are allowed.") {
			t.Errorf("%s: unexpected body %s", method, rr.Body.String())
		}
	}
	if reg.calls != 3 {
		t.Errorf("expected 3 service calls, got %d", reg.calls)
	}
}

func TestNewRouter_AppliesMiddleware(t *testing.T) {
	router := newTestRouter(t, &stubRegistration{outcome: models.OutcomeRegistered}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader("email=a%40b.com&password=secret1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected request id header")
	}
	if rr.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS header in secure mode")
	}
	if rr.Header().Get("Cache-Control") != "no-store, no-cache, must-revalidate" {
		t.Errorf("unexpected Cache-Control %q", rr.Header().Get("Cache-Control"))
	}
	if !strings.Contains(rr.Body.String(), `"success":true`) {
		t.Errorf("unexpected body %s", rr.Body.String())
	}
}

func TestNewRouter_HealthEndpoints(t *testing.T) {
	router := newTestRouter(t, &stubRegistration{}, errors.New("down"))

	tests := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusServiceUnavailable},
		{"/ready", http.StatusServiceUnavailable},
		{"/live", http.StatusOK},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rr.Code != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.status, rr.Code)
		}
	}
}
