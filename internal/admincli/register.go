package admincli

import (
	"context"
	"fmt"

	"github.com/authvault/authvault/internal/shared"
)

// Register creates an account from the terminal. The password is read
// without echo and wiped once it has been hashed.
func (a *App) Register(ctx context.Context) error {

	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)

	user, err := a.auth.Register(ctx, email, string(password))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "registered %s id=%s\n", user.Email, user.ID)
	return nil
}
