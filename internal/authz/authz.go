// Package authz implements the Authorization Gate (spec §4.F): asserts
// that the caller identity matches the owner of the resource being read
// or mutated.
package authz

import (
	"github.com/google/uuid"

	"order-core/internal/apperr"
)

// RequireOwner returns an auth_denied error if callerID does not equal
// ownerID. It never distinguishes "resource does not exist" from
// "caller is not the owner" — a uniform error so existence is never
// leaked to a non-owner (spec §4.F).
func RequireOwner(callerID, ownerID uuid.UUID) error {
	if callerID != ownerID {
		return apperr.New(apperr.KindAuthDenied, "", "", "caller does not own this resource")
	}
	return nil
}
