package callerctx

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/fulfillment-backend/api/middleware"
	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

// ResolveActor turns the identity seeded by middleware.Identity into the
// actor recorded on writes.
func ResolveActor(r *http.Request) (orders.Actor, error) {
	ctx := r.Context()
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return orders.Actor{}, pkgerrors.Rejected(pkgerrors.ReasonNotAuthenticated, "caller identity required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return orders.Actor{}, pkgerrors.Rejected(pkgerrors.ReasonNotAuthenticated, "caller id must be a uuid")
	}
	return orders.Actor{UserID: id, Role: middleware.RoleFromContext(ctx)}, nil
}
