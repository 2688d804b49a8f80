package apiclient_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alkime/journal/internal/apiclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RetriesTransportErrorsOnly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		dropFirst bool
		status    int
		wantCalls int32
	}{
		{name: "dropped connection is retried", dropFirst: true, status: http.StatusOK, wantCalls: 2},
		{name: "error status is final", status: http.StatusBadGateway, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if calls.Add(1) == 1 && tt.dropFirst {
					conn, _, err := w.(http.Hijacker).Hijack()
					require.NoError(t, err)
					_ = conn.Close()

					return
				}

				w.WriteHeader(tt.status)
			}))
			t.Cleanup(srv.Close)

			var logs bytes.Buffer
			client := apiclient.New(apiclient.Options{
				BaseURL: srv.URL,
				Timeout: time.Second,
				Retries: 1,
				Logger:  slog.New(slog.NewTextHandler(&logs, nil)),
			})

			resp, err := client.R().Get("/ping")
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode())
			assert.Equal(t, tt.wantCalls, calls.Load())

			if tt.dropFirst {
				assert.Contains(t, logs.String(), "Attempt 1")
				assert.Contains(t, logs.String(), "component=resty")
			}
		})
	}
}

func TestNewLogger_WritesToSlog(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := apiclient.NewLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.Warnf("retrying %s, attempt %d", "POST /transcribe", 2)
	logger.Errorf("giving up")
	logger.Debugf("request sent")

	out := logs.String()
	assert.Contains(t, out, `level=WARN msg="retrying POST /transcribe, attempt 2" component=resty`)
	assert.Contains(t, out, `level=ERROR msg="giving up"`)
	assert.Contains(t, out, `level=DEBUG msg="request sent"`)
}
