package admincli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"
)

// ListUsers prints every registered account.
func (a *App) ListUsers(ctx context.Context) error {
	users, err := a.auth.ListUsers(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, u.Email, u.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

// ListTokens prints the refresh-token ledger, newest first. The ledger holds
// only fingerprints, so there is nothing sensitive to redact.
func (a *App) ListTokens(ctx context.Context) error {
	tokens, err := a.auth.ListTokens(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tFINGERPRINT\tREVOKED\tEXPIRES")
	for _, tok := range tokens {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n",
			tok.ID, tok.UserID, shortHash(tok.TokenHash), tok.Revoked, tok.ExpiresAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}
