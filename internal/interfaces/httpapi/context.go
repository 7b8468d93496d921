package httpapi

import (
	"context"

	"github.com/rosterlab/perfect-roster/internal/domain/user"
)

type principalKey struct{}

// withPrincipal stashes the verified caller for handlers downstream of the
// auth middleware.
func withPrincipal(ctx context.Context, p user.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (user.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(user.Principal)
	return p, ok
}
