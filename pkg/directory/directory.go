package directory

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the directory has no entry for an owner id.
var ErrNotFound = errors.New("identity not found")

// AccountStatusUnknown is the account status of a fallback identity.
const AccountStatusUnknown = "unknown"

// Identity is one directory entry.
type Identity struct {
	OwnerID       string     `json:"owner_id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name,omitempty"`
	AccountStatus string     `json:"account_status"`
	Enabled       bool       `json:"enabled"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// Directory looks up identities by owner id and enumerates the whole pool.
type Directory interface {
	// Lookup returns the identity for one owner id, or ErrNotFound.
	Lookup(ctx context.Context, ownerID string) (*Identity, error)

	// ListAll enumerates every directory entry, following pagination.
	ListAll(ctx context.Context) ([]Identity, error)
}

// Fallback is the identity substituted when a lookup fails or finds nothing.
// The owner id doubles as the email so merged views still have a stable key,
// and the account is assumed enabled so its usage is never hidden.
func Fallback(ownerID string) Identity {
	return Identity{
		OwnerID:       ownerID,
		Email:         ownerID,
		AccountStatus: AccountStatusUnknown,
		Enabled:       true,
	}
}
