package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/relatorhq/relator/pkg/log"
	"github.com/relatorhq/relator/pkg/provider"
	"github.com/relatorhq/relator/pkg/types"
)

// Synchronizer keeps secret material and its access binding in the desired
// state. Every sync appends a new version; history is never rewritten.
type Synchronizer struct {
	provider provider.Provider
}

// NewSynchronizer creates a new secret synchronizer
func NewSynchronizer(p provider.Provider) *Synchronizer {
	return &Synchronizer{provider: p}
}

// Sync ensures the secret name exists, appends a new version holding the
// entry's value, and re-grants read access to the accessor identity.
//
// The probe only decides "create the name" vs "append to the existing name",
// never "skip the write". A probe failure falls back to the create path, and
// an already-exists error from create is treated as success; the append and
// the grant happen regardless.
func (s *Synchronizer) Sync(ctx context.Context, entry types.SecretEntry) error {
	logger := log.WithResource(string(types.KindSecret), entry.Name)

	needsCreate := true
	presence, err := s.provider.Describe(ctx, types.KindSecret, entry.Name)
	if err != nil {
		logger.Warn().Err(err).Msg("secret probe failed, falling back to create path")
	} else {
		needsCreate = presence == types.Absent
	}

	if needsCreate {
		_, err := s.provider.Create(ctx, types.ResourceDescriptor{
			Kind: types.KindSecret,
			Name: entry.Name,
		})
		if err != nil && !errors.Is(err, provider.ErrAlreadyExists) {
			return fmt.Errorf("failed to create secret %s: %w", entry.Name, err)
		}
		if err == nil {
			logger.Info().Msg("secret created")
		}
	}

	if err := s.provider.AddSecretVersion(ctx, entry.Name, entry.Value); err != nil {
		return fmt.Errorf("failed to add version to secret %s: %w", entry.Name, err)
	}
	logger.Info().Msg("secret version added")

	// Binding state may have been reset independently of the secret's
	// existence, so the grant is re-applied on every pass.
	if err := s.provider.Bind(ctx, entry.AccessorIdentity, provider.RoleSecretAccessor, entry.Name); err != nil {
		return fmt.Errorf("failed to grant accessor on secret %s: %w", entry.Name, err)
	}
	logger.Info().Str("accessor", entry.AccessorIdentity).Msg("accessor binding ensured")

	return nil
}
