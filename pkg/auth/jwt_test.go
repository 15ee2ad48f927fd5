package auth

import (
	"testing"
	"time"
)

func newTestAuth(t *testing.T) *JWTAuth {
	t.Helper()
	a, err := NewJWTAuth("test-secret-key-for-tests-only", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewJWTAuth failed: %v", err)
	}
	return a
}

func TestNewJWTAuthRequiresSecret(t *testing.T) {
	if _, err := NewJWTAuth("", time.Minute); err == nil {
		t.Error("Expected error for empty secret")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	a := newTestAuth(t)

	token, err := a.GenerateToken("user@test.com", "user@test.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	user, err := a.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if user.ID != "user@test.com" || user.Email != "user@test.com" {
		t.Errorf("Unexpected user from token: %+v", user)
	}
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	a := newTestAuth(t)
	other, _ := NewJWTAuth("a-different-secret", 15*time.Minute)

	token, err := other.GenerateToken("user@test.com", "user@test.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := a.VerifyToken(token); err == nil {
		t.Error("Expected verification failure for token signed with another secret")
	}
}

func TestVerifyTokenExpired(t *testing.T) {
	a, err := NewJWTAuth("test-secret", -time.Minute)
	if err != nil {
		t.Fatalf("NewJWTAuth failed: %v", err)
	}
	// Negative expiry is not replaced by the default
	if a.AccessTokenExpiry >= 0 {
		t.Fatalf("Test setup: expected negative expiry, got %v", a.AccessTokenExpiry)
	}

	token, err := a.GenerateToken("user@test.com", "user@test.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := a.VerifyToken(token); err == nil {
		t.Error("Expected verification failure for expired token")
	}
}

func TestExtractToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc123", "abc123", false},
		{"bearer abc123", "abc123", false},
		{"", "", true},
		{"abc123", "", true},
		{"Basic abc123", "", true},
		{"Bearer ", "", true},
	}
	for _, c := range cases {
		got, err := ExtractToken(c.header)
		if (err != nil) != c.wantErr {
			t.Errorf("ExtractToken(%q) error = %v, wantErr %v", c.header, err, c.wantErr)
			continue
		}
		if got != c.want {
			t.Errorf("ExtractToken(%q) = %q, want %q", c.header, got, c.want)
		}
	}
}

func TestPasswordHashAndVerify(t *testing.T) {
	a := newTestAuth(t)

	hash, err := a.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	ok, err := a.VerifyPassword(hash, "correct horse battery staple")
	if err != nil || !ok {
		t.Errorf("Expected password to verify, got ok=%v err=%v", ok, err)
	}

	ok, err = a.VerifyPassword(hash, "wrong password")
	if err != nil {
		t.Errorf("Unexpected error for wrong password: %v", err)
	}
	if ok {
		t.Error("Wrong password must not verify")
	}
}

func TestPasswordHashesAreSalted(t *testing.T) {
	a := newTestAuth(t)

	h1, _ := a.HashPassword("same password")
	h2, _ := a.HashPassword("same password")
	if h1 == h2 {
		t.Error("Two hashes of the same password must differ")
	}
}

func TestVerifyPasswordBadFormat(t *testing.T) {
	a := newTestAuth(t)
	if _, err := a.VerifyPassword("not-a-hash", "pw"); err == nil {
		t.Error("Expected error for malformed hash")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("12345"); err == nil {
		t.Error("Expected rejection of 5-character password")
	}
	if err := ValidatePassword("123456"); err != nil {
		t.Errorf("Expected 6-character password accepted, got %v", err)
	}
}
