package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/wcfdehao/gomoku/pkg/errors"
)

// Key layout shared with the other store consumers
const (
	allPlayersKey   = "player:all"
	secretKeyPrefix = "player:id:"
)

// Accounts implements the identity claim protocol: a uniqueness set of
// all claimed names plus a secret-token → name mapping.
type Accounts struct {
	kv KV
}

// NewAccounts creates an Accounts layer over the given store
func NewAccounts(kv KV) *Accounts {
	return &Accounts{kv: kv}
}

// Claim atomically claims name and returns a fresh secret token for it.
// Returns ErrNameTaken when another connection holds the name.
func (a *Accounts) Claim(ctx context.Context, name string) (string, error) {
	added, err := a.kv.SAdd(ctx, allPlayersKey, name)
	if err != nil {
		return "", fmt.Errorf("claim %q: %w", name, err)
	}
	if !added {
		return "", fmt.Errorf("claim %q: %w", name, apperrors.ErrNameTaken)
	}

	secret := newSecret()
	if err := a.kv.Set(ctx, secretKeyPrefix+secret, name); err != nil {
		// Undo the claim so the name is not stranded without a secret.
		_ = a.kv.SRem(ctx, allPlayersKey, name)
		return "", fmt.Errorf("claim %q: %w", name, err)
	}
	return secret, nil
}

// Release removes the secret mapping and frees the name. Both removals
// are attempted even when the first fails.
func (a *Accounts) Release(ctx context.Context, name, secret string) error {
	delErr := a.kv.Del(ctx, secretKeyPrefix+secret)
	remErr := a.kv.SRem(ctx, allPlayersKey, name)
	return errors.Join(delErr, remErr)
}

// IsClaimed reports whether name is currently claimed
func (a *Accounts) IsClaimed(ctx context.Context, name string) (bool, error) {
	return a.kv.SIsMember(ctx, allPlayersKey, name)
}

// Lookup resolves a secret token back to its identity
func (a *Accounts) Lookup(ctx context.Context, secret string) (string, error) {
	return a.kv.Get(ctx, secretKeyPrefix+secret)
}

// newSecret returns a fresh credential token (hex MD5 of a random UUID)
func newSecret() string {
	sum := md5.Sum([]byte(uuid.NewString()))
	return hex.EncodeToString(sum[:])
}
