package auth

import (
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !CheckPassword(hash, "correct-horse") {
		t.Error("expected matching password to verify")
	}
	if CheckPassword(hash, "wrong-horse") {
		t.Error("expected wrong password to fail")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err == nil {
		t.Error("expected error for a 5 character password")
	}
	if err := ValidatePassword("this password is far too long"); err == nil {
		t.Error("expected error for a 29 character password")
	}
	if err := ValidatePassword("just-right"); err != nil {
		t.Errorf("expected 10 character password to pass, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := IssueToken(secret, 42, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected user id 42, got %d", claims.UserID)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := IssueToken([]byte("secret-a"), 1, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, err := ParseToken([]byte("secret-b"), token); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}
}

func TestParseTokenExpired(t *testing.T) {
	secret := []byte("test-secret")

	token, err := IssueToken(secret, 1, -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, err := ParseToken(secret, token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestResetTokenHashing(t *testing.T) {
	token, tokenHash, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if token == "" || tokenHash == "" {
		t.Fatal("expected non-empty token and hash")
	}
	if token == tokenHash {
		t.Error("hash must differ from the raw token")
	}
	if HashResetToken(token) != tokenHash {
		t.Error("hashing the token again must produce the stored digest")
	}

	other, _, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if other == token {
		t.Error("two reset tokens should not collide")
	}
}
