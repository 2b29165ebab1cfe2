package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestJWT_RoundTrip(t *testing.T) {
	token, err := GenerateJWT(42, "curator", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT() err=%v", err)
	}

	claims, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT() err=%v", err)
	}
	if claims.UserID != 42 || claims.Role != "curator" {
		t.Fatalf("ParseJWT() claims=%+v", claims)
	}
}

func TestParseJWT_Rejects(t *testing.T) {
	token, _ := GenerateJWT(42, "curator", "secret", time.Hour)
	if _, err := ParseJWT(token, "other"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ParseJWT(wrong secret) err=%v, want ErrInvalidToken", err)
	}

	expired, _ := GenerateJWT(42, "curator", "secret", -time.Minute)
	if _, err := ParseJWT(expired, "secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ParseJWT(expired) err=%v, want ErrInvalidToken", err)
	}

	if _, err := ParseJWT("garbage", "secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ParseJWT(garbage) err=%v, want ErrInvalidToken", err)
	}
}

func TestExtractBearer(t *testing.T) {
	tests := map[string]string{
		"Bearer abc": "abc",
		"bearer abc": "abc",
		"Basic abc":  "",
		"Bearer":     "",
		"":           "",
		"Bearer a b": "",
	}
	for header, want := range tests {
		if got := ExtractBearer(header); got != want {
			t.Fatalf("ExtractBearer(%q)=%q, want %q", header, got, want)
		}
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword() err=%v", err)
	}
	if !CheckPassword("s3cret!", hash) {
		t.Fatalf("CheckPassword() = false for the right password")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("CheckPassword() = true for a wrong password")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryableError(t *testing.T) {
	var syntaxErr error = &json.SyntaxError{}

	tests := []struct {
		name      string
		err       error
		retryable bool
		kind      string
	}{
		{"nil", nil, false, ""},
		{"json", fmt.Errorf("decode: %w", syntaxErr), false, "json_decode_error"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true, "timeout"},
		{"rate limited", &StatusError{Service: "ai", StatusCode: 429}, true, "rate_limited"},
		{"server error", fmt.Errorf("wrap: %w", &StatusError{Service: "ai", StatusCode: 503}), true, "upstream_error"},
		{"bad request", &StatusError{Service: "ai", StatusCode: 400}, false, "upstream_rejected"},
		{"net timeout", timeoutErr{}, true, "network_timeout"},
		{"duplicate", errors.New("ERROR: duplicate key value violates unique constraint"), false, "duplicate_key"},
		{"unknown", errors.New("boom"), false, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, kind := IsRetryableError(tt.err)
			if retryable != tt.retryable || kind != tt.kind {
				t.Fatalf("IsRetryableError() = (%v, %q), want (%v, %q)", retryable, kind, tt.retryable, tt.kind)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	if got := DedupKey("overdue", "7:2026-10-16"); got != "dedup:overdue:7:2026-10-16" {
		t.Fatalf("DedupKey()=%q", got)
	}
	if got := FormatRetryKey("dashboard", "abc"); got != "retry:dashboard:abc" {
		t.Fatalf("FormatRetryKey()=%q", got)
	}
}
