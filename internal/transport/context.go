package transport

import (
	"net/http"

	"campus-eats/internal/order"
	"campus-eats/internal/utils"
)

// principalFrom turns the identity attached by AuthMiddleware into the
// caller value the order service works with.
func principalFrom(r *http.Request) order.Principal {
	ctx := r.Context()
	userID, _ := utils.GetUserIDFromContext(ctx)
	return order.Principal{
		UserID: userID,
		Role:   utils.GetUserRoleFromContext(ctx),
	}
}
