package session_test

import (
	"errors"
	"testing"
	"time"

	"panelsmith/internal/services"
	"panelsmith/internal/session"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func newTestStore(t *testing.T, ttl time.Duration) (*session.Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return session.NewStoreWithClock(ttl, nil, clock.Now), clock
}

func validCredentials() session.Credentials {
	return session.Credentials{
		AnalysisKey:  "sk-or-v1-test-analysis",
		SynthesisKey: "sk-test-synthesis",
	}
}

func TestCreateAndGet(t *testing.T) {
	store, _ := newTestStore(t, 2*time.Hour)

	created := store.Create()
	if created.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if got, want := created.ExpiresAt.Sub(created.CreatedAt), 2*time.Hour; got != want {
		t.Fatalf("ttl = %v, want %v", got, want)
	}

	fetched := store.Get(created.Token)
	if fetched == nil {
		t.Fatal("expected session to be found")
	}
	if fetched.Token != created.Token {
		t.Fatalf("token = %q, want %q", fetched.Token, created.Token)
	}
	if fetched.HasCredentials() {
		t.Fatal("new session should have no credentials")
	}
}

func TestGetExpiresLazily(t *testing.T) {
	store, clock := newTestStore(t, time.Hour)

	created := store.Create()
	clock.now = clock.now.Add(time.Hour + time.Second)

	if store.Get(created.Token) != nil {
		t.Fatal("expected expired session to be absent")
	}
	if store.Len() != 0 {
		t.Fatalf("expected lazy delete, store has %d sessions", store.Len())
	}
}

func TestGetReturnsCopy(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	created := store.Create()
	if err := store.Attach(created.Token, validCredentials()); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	first := store.Get(created.Token)
	first.Credentials.AnalysisKey = "mutated"

	second := store.Get(created.Token)
	if second.Credentials.AnalysisKey != "sk-or-v1-test-analysis" {
		t.Fatalf("store state mutated through returned copy: %q", second.Credentials.AnalysisKey)
	}
}

func TestAttachValidatesCredentials(t *testing.T) {
	cases := []struct {
		name        string
		credentials session.Credentials
		wantErr     bool
	}{
		{
			name:        "valid bundle",
			credentials: validCredentials(),
		},
		{
			name:        "missing analysis key",
			credentials: session.Credentials{SynthesisKey: "sk-x"},
			wantErr:     true,
		},
		{
			name:        "missing synthesis key",
			credentials: session.Credentials{AnalysisKey: "sk-x"},
			wantErr:     true,
		},
		{
			name: "analysis key without sk prefix",
			credentials: session.Credentials{
				AnalysisKey:  "or-v1-test",
				SynthesisKey: "sk-test",
			},
			wantErr: true,
		},
		{
			name: "synthesis key without sk prefix",
			credentials: session.Credentials{
				AnalysisKey:  "sk-or-v1-test",
				SynthesisKey: "test",
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, _ := newTestStore(t, time.Hour)
			created := store.Create()

			err := store.Attach(created.Token, tc.credentials)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("Attach: %v", err)
				}
				if !store.Get(created.Token).HasCredentials() {
					t.Fatal("expected credentials after attach")
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation marker, got %v", err)
			}
		})
	}
}

func TestAttachUnknownSession(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	err := store.Attach("no-such-token", validCredentials())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
}

func TestAttachExpiredSession(t *testing.T) {
	store, clock := newTestStore(t, time.Hour)

	created := store.Create()
	clock.now = clock.now.Add(2 * time.Hour)

	err := store.Attach(created.Token, validCredentials())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	created := store.Create()
	store.Delete(created.Token)
	store.Delete(created.Token)

	if store.Get(created.Token) != nil {
		t.Fatal("expected deleted session to be absent")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, has %d", store.Len())
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	store, clock := newTestStore(t, time.Hour)

	old := store.Create()
	clock.now = clock.now.Add(30 * time.Minute)
	fresh := store.Create()

	removed := store.Sweep(clock.now.Add(45 * time.Minute))
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if store.Get(old.Token) != nil {
		t.Fatal("expired session should have been swept")
	}
	if store.Get(fresh.Token) == nil {
		t.Fatal("live session should survive the sweep")
	}
}

func TestCredentialsRedactedInLogs(t *testing.T) {
	value := validCredentials().LogValue()
	if got := value.String(); got != "[redacted]" {
		t.Fatalf("LogValue = %q, want redacted placeholder", got)
	}
}
