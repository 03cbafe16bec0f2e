package keys

import (
	"context"
	"strings"

	apperrors "taskgate/internal/pkg/errors"
	"taskgate/internal/platform/models"
)

type Service struct {
	store      Store
	prefix     string
	bcryptCost int
}

func NewService(store Store, prefix string, bcryptCost int) *Service {
	return &Service{store: store, prefix: prefix, bcryptCost: bcryptCost}
}

// Issued carries the plaintext secret, which is never persisted.
type Issued struct {
	Key    *models.APIKey
	Secret string
}

func (s *Service) Issue(ctx context.Context, userID, orgID, name string) (*Issued, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("name is required")
	}
	if len(name) > 100 {
		return nil, apperrors.Validation("name must be at most 100 characters")
	}

	secret, hash, prefix, err := Generate(s.prefix, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	key := &models.APIKey{
		UserID:    userID,
		OrgID:     orgID,
		KeyHash:   hash,
		KeyPrefix: prefix,
		Name:      name,
	}
	if err := s.store.Create(ctx, key); err != nil {
		return nil, apperrors.FromStore(err)
	}

	return &Issued{Key: key, Secret: secret}, nil
}

// Revoke is idempotent for keys the org owns.
func (s *Service) Revoke(ctx context.Context, orgID, keyID string) error {
	if err := s.store.Revoke(ctx, orgID, keyID); err != nil {
		appErr := apperrors.FromStore(err)
		if e, ok := appErr.(*apperrors.AppError); ok && e.Code == apperrors.ErrCodeNotFound {
			return apperrors.NotFound("API key not found")
		}
		return appErr
	}
	return nil
}
