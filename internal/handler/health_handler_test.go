package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubPinger struct {
	err error
}

func (p stubPinger) PingContext(ctx context.Context) error {
	return p.err
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name         string
		db           stubPinger
		wantStatus   int
		wantDatabase string
	}{
		{"database up", stubPinger{}, http.StatusOK, "up"},
		{"database down", stubPinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHealthHandler(tt.db)(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := decodeBody[healthResponse](t, w); got.Database != tt.wantDatabase {
				t.Errorf("database = %q, want %q", got.Database, tt.wantDatabase)
			}
		})
	}
}
