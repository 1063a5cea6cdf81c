package token

import (
	"testing"
	"time"
)

func newTestService(t *testing.T, now func() time.Time) *Service {
	t.Helper()
	svc, err := New(Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Now:           now,
	})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return svc
}

func TestNewRejectsBadSecrets(t *testing.T) {
	if _, err := New(Config{AccessSecret: "", RefreshSecret: "r"}); err == nil {
		t.Fatalf("expected error for empty access secret")
	}
	if _, err := New(Config{AccessSecret: "same", RefreshSecret: "same"}); err == nil {
		t.Fatalf("expected error for identical secrets")
	}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)
	for _, kind := range []Kind{KindAccess, KindRefresh} {
		var raw string
		var err error
		if kind == KindAccess {
			raw, err = svc.IssueAccess("alice@example.com")
		} else {
			raw, err = svc.IssueRefresh("alice@example.com")
		}
		if err != nil {
			t.Fatalf("issue %s token: %v", kind, err)
		}
		subject, status := svc.Verify(raw, kind)
		if status != StatusValid {
			t.Fatalf("%s token expected valid, got status %d", kind, status)
		}
		if subject != "alice@example.com" {
			t.Fatalf("%s token subject: got %q", kind, subject)
		}
	}
}

func TestVerifyRejectsCrossKind(t *testing.T) {
	svc := newTestService(t, nil)
	access, err := svc.IssueAccess("alice@example.com")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	refresh, err := svc.IssueRefresh("alice@example.com")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if _, status := svc.Verify(access, KindRefresh); status != StatusMalformed {
		t.Fatalf("access token against refresh secret: got status %d", status)
	}
	if _, status := svc.Verify(refresh, KindAccess); status != StatusMalformed {
		t.Fatalf("refresh token against access secret: got status %d", status)
	}
}

func TestVerifyExpiryWindow(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := issuedAt
	svc := newTestService(t, func() time.Time { return clock })

	raw, err := svc.IssueAccess("alice@example.com")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	clock = issuedAt.Add(14 * time.Minute)
	if _, status := svc.Verify(raw, KindAccess); status != StatusValid {
		t.Fatalf("token at T+14m expected valid, got status %d", status)
	}

	clock = issuedAt.Add(16 * time.Minute)
	if _, status := svc.Verify(raw, KindAccess); status != StatusExpired {
		t.Fatalf("token at T+16m expected expired, got status %d", status)
	}
}

func TestVerifyMalformedInput(t *testing.T) {
	svc := newTestService(t, nil)
	for _, raw := range []string{"", "garbage", "a.b.c"} {
		if _, status := svc.Verify(raw, KindAccess); status != StatusMalformed {
			t.Fatalf("input %q expected malformed, got status %d", raw, status)
		}
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	svc := newTestService(t, nil)
	other, err := New(Config{AccessSecret: "other-access", RefreshSecret: "other-refresh"})
	if err != nil {
		t.Fatalf("new other service: %v", err)
	}
	raw, err := other.IssueAccess("alice@example.com")
	if err != nil {
		t.Fatalf("issue foreign token: %v", err)
	}
	if _, status := svc.Verify(raw, KindAccess); status != StatusMalformed {
		t.Fatalf("foreign signature expected malformed, got status %d", status)
	}
}
