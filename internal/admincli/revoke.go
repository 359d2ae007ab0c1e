package admincli

import (
	"context"
	"fmt"
)

// RevokeAll revokes every refresh token of one user, e.g. after a reported
// account compromise. Ledger rows are kept; only the revoked flag flips.
func (a *App) RevokeAll(ctx context.Context, userID string) error {
	n, err := a.auth.RevokeAllForUser(ctx, userID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "revoked %d token(s) for user %s\n", n, userID)
	return nil
}
