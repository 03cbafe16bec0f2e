package keys

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"taskgate/internal/pkg/logger"
	"taskgate/internal/pkg/safego"
	"taskgate/internal/platform/models"
)

// ErrInvalidKey is the only failure a caller sees for a bad secret, whether
// it was malformed, unknown or revoked.
var ErrInvalidKey = errors.New("invalid API key")

type Lookup string

const (
	// LookupScan compares the secret against every active key.
	LookupScan Lookup = "scan"
	// LookupPrefix narrows candidates by the stored 12-character prefix.
	LookupPrefix Lookup = "prefix"
)

type Store interface {
	Create(ctx context.Context, key *models.APIKey) error
	ListActive(ctx context.Context) ([]*models.APIKey, error)
	ListActiveByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	Revoke(ctx context.Context, orgID, id string) error
	UpdateLastUsed(ctx context.Context, id string, at int64) error
}

type Identity struct {
	KeyID  string `json:"key_id"`
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
}

type Validator struct {
	store  Store
	lookup Lookup
	log    zerolog.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

func NewValidator(store Store, lookup Lookup) *Validator {
	if lookup != LookupPrefix {
		lookup = LookupScan
	}
	return &Validator{
		store:  store,
		lookup: lookup,
		log:    logger.Component("keys"),
		now:    time.Now,
	}
}

func (v *Validator) candidates(ctx context.Context, secret string) ([]*models.APIKey, error) {
	if v.lookup == LookupPrefix {
		return v.store.ListActiveByPrefix(ctx, DisplayPrefix(secret))
	}
	return v.store.ListActive(ctx)
}

// Validate resolves a presented secret to the identity that owns it. Store
// failures are returned as-is so callers can tell an outage from a bad key.
func (v *Validator) Validate(ctx context.Context, secret string) (*Identity, error) {
	if len(secret) <= PrefixLength {
		return nil, ErrInvalidKey
	}

	keys, err := v.candidates(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("load api keys: %w", err)
	}

	for _, k := range keys {
		if k.Revoked {
			continue
		}
		if !Matches(secret, k.KeyHash) {
			continue
		}

		v.touch(k.ID)
		return &Identity{KeyID: k.ID, UserID: k.UserID, OrgID: k.OrgID}, nil
	}

	return nil, ErrInvalidKey
}

// touch records last use off the request path.
func (v *Validator) touch(keyID string) {
	at := v.now().Unix()
	v.wg.Add(1)
	safego.Go("api_key_last_used", func() {
		defer v.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := v.store.UpdateLastUsed(ctx, keyID, at); err != nil {
			v.log.Warn().Err(err).Str("key_id", keyID).Msg("failed to update api key last_used_at")
		}
	})
}

// Wait blocks until pending last-used writes finish.
func (v *Validator) Wait() {
	v.wg.Wait()
}
