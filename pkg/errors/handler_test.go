package errors

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestRecoverCountsPanics(t *testing.T) {
	h := newErrorHandler("", nil)

	func() {
		defer h.Recover()()
		panic("handler exploded")
	}()

	if got := h.ErrorCount(); got != 1 {
		t.Errorf("ErrorCount() = %v, want %v", got, 1)
	}
}

func TestRecoverMiddlewareWithoutHandler(t *testing.T) {
	handler = nil

	// must not propagate the panic
	func() {
		defer RecoverMiddleware()()
		panic("no handler yet")
	}()
}

func TestOverLimit(t *testing.T) {
	h := newErrorHandler("", nil)
	h.maxErrors = 2

	for i := 0; i < 2; i++ {
		h.IncrementError()
	}
	if h.overLimit() {
		t.Error("overLimit() should be false at the limit")
	}

	h.IncrementError()
	if !h.overLimit() {
		t.Error("overLimit() should be true past the limit")
	}
}

func TestShutdownCallsHooks(t *testing.T) {
	var shutdownCalled int32
	var exitCode int32 = -1

	h := newErrorHandler("", func() { atomic.StoreInt32(&shutdownCalled, 1) })
	h.exit = func(code int) { atomic.StoreInt32(&exitCode, int32(code)) }

	h.shutdown()

	if atomic.LoadInt32(&shutdownCalled) != 1 {
		t.Error("shutdown() should call the shutdown function")
	}
	if got := atomic.LoadInt32(&exitCode); got != 1 {
		t.Errorf("exit code = %v, want %v", got, 1)
	}
}

func TestReportPostsEmbed(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %v, want %v", ct, "application/json")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	h := newErrorHandler(srv.URL, nil)
	h.Report(ReportErrorOptions{Error: "Critical Error", Message: "too many errors"})

	if !strings.Contains(body, `"name":"Error Critical Error"`) {
		t.Errorf("payload = %v, want the error name", body)
	}
	if !strings.Contains(body, `"description":"too many errors"`) {
		t.Errorf("payload = %v, want the message", body)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	h := NewErrorHandler("", nil)
	h.Stop()
	h.Stop()
}
