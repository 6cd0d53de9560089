package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/mindease/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTokenRoundTrip(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "unit-secret", TokenTTLHours: 2})

	token, exp, err := GenerateToken(42, "a@b.c")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if d := time.Until(exp); d < time.Hour || d > 2*time.Hour {
		t.Errorf("expiry in %v, want about 2h", d)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "a@b.c" {
		t.Errorf("claims = %+v", claims)
	}

	config.Set(config.AppConfig{JWTSecret: "other-secret"})
	if _, err := ParseToken(token); err == nil {
		t.Error("expected signature mismatch")
	}
}

func TestBlacklistInMemory(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "x"})
	ctx := context.Background()

	BlacklistToken(ctx, "tok-a", time.Now().Add(time.Hour))
	if !IsTokenBlacklisted(ctx, "tok-a") {
		t.Error("tok-a should be revoked")
	}
	if IsTokenBlacklisted(ctx, "tok-b") {
		t.Error("tok-b was never revoked")
	}

	BlacklistToken(ctx, "tok-expired", time.Now().Add(-time.Minute))
	if IsTokenBlacklisted(ctx, "tok-expired") {
		t.Error("already expired tokens are not stored")
	}
}

func TestPassword(t *testing.T) {
	SetPasswordCostForTesting()
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "secret123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "secret124") {
		t.Error("wrong password accepted")
	}
	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := HashPassword(string(long)); err != ErrPasswordTooLong {
		t.Errorf("err = %v, want ErrPasswordTooLong", err)
	}
}

func TestSanitizeText(t *testing.T) {
	tests := map[string]string{
		"plain note":                        "plain note",
		"  <b>bold</b> & brave ":            "bold & brave",
		"<script>alert(1)</script>hi":       "hi",
		`<a href="javascript:x()">link</a>`: "link",
		"I'm \"fine\"":                      "I'm \"fine\"",
	}
	for in, want := range tests {
		if got := SanitizeText(in); got != want {
			t.Errorf("SanitizeText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCacheWithoutRedisIsNoop(t *testing.T) {
	SetRedis(nil)
	ctx := context.Background()
	CacheSetJSON(ctx, "k", []int{1, 2}, time.Minute)
	var v []int
	if CacheGetJSON(ctx, "k", &v) {
		t.Error("expected miss without redis")
	}
	CacheDelete(ctx, "k")
}

func TestRecoveryWithZap(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryWithZap(Logger, false))
	r.GET("/boom", func(ctx *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestNewRollingFileLogger(t *testing.T) {
	if _, err := NewRollingFileLogger("", "info", 1, 1, 1, false); err == nil {
		t.Error("expected error for empty path")
	}
	l, err := NewRollingFileLogger(t.TempDir()+"/sub/gin.log", "info", 1, 1, 1, false)
	if err != nil {
		t.Fatalf("NewRollingFileLogger: %v", err)
	}
	l.Info("hello")
}

func TestSigninGuardInMemory(t *testing.T) {
	SetRedis(nil)
	config.Set(config.AppConfig{JWTSecret: "x", SigninMaxFailures: 3, SigninLockoutMinutes: 1})
	ctx := context.Background()
	const ip = "198.51.100.7"
	SigninReset(ctx, ip)

	for i := 1; i <= 3; i++ {
		if SigninLocked(ctx, ip) {
			t.Fatalf("locked after %d failures", i-1)
		}
		if n := SigninFailRecord(ctx, ip); n != i {
			t.Fatalf("count = %d, want %d", n, i)
		}
	}
	if !SigninLocked(ctx, ip) {
		t.Error("expected lockout after 3 failures")
	}
	if SigninLocked(ctx, "198.51.100.8") {
		t.Error("other IPs are unaffected")
	}

	SigninReset(ctx, ip)
	if SigninLocked(ctx, ip) {
		t.Error("reset should clear the lockout")
	}
}
