package middleware

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/rs/zerolog"
	apiContext "taskgate/internal/api/context"
	"taskgate/internal/engine/keys"
	"taskgate/internal/pkg/errors"
	"taskgate/internal/pkg/logger"
)

const APIKeyHeader = "x-api-key"

type KeyValidator interface {
	Validate(ctx context.Context, secret string) (*keys.Identity, error)
}

// APIKeyMiddleware authenticates public API calls. Every rejected key gets
// the same body so callers cannot tell unknown keys from revoked ones.
type APIKeyMiddleware struct {
	validator KeyValidator
	log       zerolog.Logger
}

func NewAPIKeyMiddleware(validator KeyValidator) *APIKeyMiddleware {
	return &APIKeyMiddleware{validator: validator, log: logger.Component("api_key")}
}

func (m *APIKeyMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get(APIKeyHeader)
		if secret == "" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "API key required. Provide it in the x-api-key header", nil)
			return
		}

		identity, err := m.validator.Validate(r.Context(), secret)
		if stderrors.Is(err, keys.ErrInvalidKey) {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid API key", nil)
			return
		}
		if err != nil {
			m.log.Error().Err(err).Msg("api key lookup failed")
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to validate API key", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.APIKey, identity)
		next(w, r.WithContext(ctx))
	}
}
