package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"datachat/logger"
)

func TestCorsMiddleware(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))

	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("wrapped handler not invoked, status %d", rec.Code)
	}

	// Preflight requests are answered without reaching the handler.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/chat", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
}

// The detailed log wiring in main constructs the file logger alongside the
// slog default; this keeps both referenced from the main package the way
// run-time wiring uses them.
func TestDetailedLogWiring(t *testing.T) {
	fileLog := logger.NewLogger()
	if err := fileLog.Init(t.TempDir()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	agentLog := fileLog.Log
	agentLog("wiring check")
	fileLog.Close()
}
