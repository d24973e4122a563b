package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

// Actor is the authenticated caller as seen by domain services.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.ActorRole
	DealerID *uuid.UUID
}

// ActorFromClaims converts validated token claims into an Actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role, DealerID: claims.DealerID}
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.ActorRoleAdmin
}

func (a Actor) IsDealer() bool {
	return a.Role == enums.ActorRoleDealer && a.DealerID != nil && *a.DealerID != uuid.Nil
}

// ActsForDealer reports whether the actor may act on dealerID: admins for
// every dealer, dealers only for their own.
func (a Actor) ActsForDealer(dealerID uuid.UUID) bool {
	if a.IsAdmin() {
		return true
	}
	return a.IsDealer() && *a.DealerID == dealerID
}
