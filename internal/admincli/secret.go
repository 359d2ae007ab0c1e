package admincli

import (
	"fmt"

	"github.com/authvault/authvault/internal/shared"
)

// Secret prints a freshly generated hex secret suitable for JWT_SECRET.
func (a *App) Secret() error {
	s, err := shared.MakeRandHexString(32)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, s)
	return nil
}
