package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppErrorError(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := Unauthorized("")
		if !strings.Contains(err.Error(), string(ErrCodeUnauthorized)) {
			t.Errorf("expected code in message, got %q", err.Error())
		}
	})

	t.Run("with cause", func(t *testing.T) {
		cause := stderrors.New("connection refused")
		err := UpstreamUnavailable("http://worker-0", cause)
		if !strings.Contains(err.Error(), "connection refused") {
			t.Errorf("expected cause in message, got %q", err.Error())
		}
	})
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Transcription(cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestConstructorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
		wantRetry  bool
	}{
		{"queue full", QueueFull(10), http.StatusServiceUnavailable, true},
		{"not found", NotFound("task", "abc"), http.StatusNotFound, false},
		{"unauthorized", Unauthorized(""), http.StatusUnauthorized, false},
		{"token fetch", TokenFetch("http://w", stderrors.New("x")), http.StatusInternalServerError, false},
		{"upstream unavailable", UpstreamUnavailable("http://w", stderrors.New("x")), http.StatusBadGateway, true},
		{"invalid input", InvalidInput("worker", "out of range"), http.StatusBadRequest, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.HTTPStatus != tc.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", tc.err.HTTPStatus, tc.wantStatus)
			}
			if tc.err.Retryable != tc.wantRetry {
				t.Errorf("Retryable = %v, want %v", tc.err.Retryable, tc.wantRetry)
			}
		})
	}
}

func TestIsRetryableCode(t *testing.T) {
	if !IsRetryableCode(ErrCodeQueueFull) {
		t.Error("queue full should be retryable")
	}
	if IsRetryableCode(ErrCodeNotFound) {
		t.Error("not found should not be retryable")
	}
	if IsRetryableCode(ErrCodeTokenFetch) {
		t.Error("token fetch failure should not be retryable at the proxy")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := QueueFull(4)
	wrapped := fmt.Errorf("submit: %w", appErr)

	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed on wrapped error")
	}
	if got.Code != ErrCodeQueueFull {
		t.Errorf("code = %s, want %s", got.Code, ErrCodeQueueFull)
	}

	if _, ok := AsAppError(stderrors.New("plain")); ok {
		t.Error("expected AsAppError to fail on plain error")
	}
}

func TestToResponse(t *testing.T) {
	err := NotFound("task", "id-1").WithDetail("worker", 2)
	resp := err.ToResponse()
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("code = %s, want %s", resp.Error.Code, ErrCodeNotFound)
	}
	if resp.Error.Details["worker"] != 2 {
		t.Errorf("details missing worker, got %v", resp.Error.Details)
	}
}
