// Package policy decides who may mutate a resource.
package policy

import (
	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/apperr"
)

// CanMutate permits the change iff the principal owns the resource.
// uuid.Nil as the principal means "not signed in".
func CanMutate(principal, ownerID uuid.UUID) error {
	if principal == uuid.Nil {
		return apperr.Unauthenticated()
	}
	if principal != ownerID {
		return apperr.Forbidden("you do not have access to this resource")
	}
	return nil
}

// CanView permits a signed-in principal to see a resource that is public
// or that they own.
func CanView(principal, ownerID uuid.UUID, public bool) error {
	if err := RequirePrincipal(principal); err != nil {
		return err
	}
	if public {
		return nil
	}
	return CanMutate(principal, ownerID)
}

// RequirePrincipal fails for anonymous callers.
func RequirePrincipal(principal uuid.UUID) error {
	if principal == uuid.Nil {
		return apperr.Unauthenticated()
	}
	return nil
}
