package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CameronXie/tailor-ledger/internal/config"
)

func TestServe(t *testing.T) {
	cases := map[string]struct {
		environment  map[string]string
		startErr     error
		expectedCode int
		expectedLog  map[string]string
		expectStart  bool
	}{
		"should exit cleanly when the server stops without error": {
			environment:  map[string]string{"STORAGE_MEDIA_SECRET": "s3cret"},
			expectedCode: 0,
			expectStart:  true,
		},
		"should log the failure to the log file before exiting": {
			environment:  map[string]string{"STORAGE_MEDIA_SECRET": "s3cret"},
			startErr:     errors.New("listen tcp :8080: address already in use"),
			expectedCode: 1,
			expectedLog: map[string]string{
				"level": "ERROR",
				"msg":   "server stopped",
				"error": "listen tcp :8080: address already in use",
			},
			expectStart: true,
		},
		"should exit without starting when the config is invalid": {
			environment:  map[string]string{"DB_DRIVER": "oracle"},
			expectedCode: 1,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			logFile := filepath.Join(t.TempDir(), "api.log")
			t.Setenv("LOG_FILE", logFile)
			for k, v := range tc.environment {
				t.Setenv(k, v)
			}

			var stdout bytes.Buffer
			started := false
			code := serve(&stdout, func(_ context.Context, cfg *config.Config, _ *slog.Logger) error {
				started = true
				assert.Equal(t, logFile, cfg.Log.File)
				return tc.startErr
			})

			assert.Equal(t, tc.expectedCode, code)
			assert.Equal(t, tc.expectStart, started)

			if len(tc.expectedLog) == 0 {
				return
			}

			data, err := os.ReadFile(logFile)
			require.NoError(t, err)
			for k, v := range tc.expectedLog {
				assert.Contains(t, string(data), fmt.Sprintf("%q:%q", k, v))
				assert.Contains(t, stdout.String(), fmt.Sprintf("%q:%q", k, v))
			}
		})
	}
}
