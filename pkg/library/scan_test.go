package library

import (
	"net/http"
	"testing"

	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/ludotheque/ludotheque/pkg/secrets"
	"github.com/ludotheque/ludotheque/pkg/sources"
	"github.com/ludotheque/ludotheque/pkg/upstream"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		httpCode int
		code     string
		message  string
	}{
		{
			name:     "unreadable stored key",
			err:      &upstream.AuthError{Service: "retroachievements", Err: secrets.ErrDecryptionFailed},
			httpCode: http.StatusUnprocessableEntity,
			code:     "validation_error",
			message:  "RetroAchievements rejected the account credentials.",
		},
		{
			name:     "platform rejects the key",
			err:      &upstream.Error{Service: "retroachievements", StatusCode: http.StatusUnauthorized},
			httpCode: http.StatusUnprocessableEntity,
			code:     "validation_error",
		},
		{
			name:     "platform outage",
			err:      &upstream.Error{Service: "retroachievements", StatusCode: http.StatusServiceUnavailable},
			httpCode: http.StatusBadGateway,
			code:     "upstream_unavailable",
		},
		{
			name:     "account not linked",
			err:      errors.Wrap(sources.ErrMissingCredentials, "retroachievements"),
			httpCode: http.StatusUnprocessableEntity,
			code:     "missing_credentials",
		},
		{
			name:     "no adapter",
			err:      errors.Wrap(sources.ErrUnsupportedSource, "retroachievements"),
			httpCode: http.StatusUnprocessableEntity,
			code:     "unsupported_source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e *errcodes.Error
			require.True(t, errors.As(scanError(models.SourceRetroAchievements, tt.err), &e))
			assert.Equal(t, tt.httpCode, e.HTTPCode)
			assert.Equal(t, tt.code, e.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, e.Message)
			}
		})
	}
}
