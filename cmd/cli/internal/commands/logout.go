package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfeidau/certifychain/internal/session"
)

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals)
	if err != nil {
		return err
	}

	if !a.store.Current().Authenticated() {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}

	if err := a.store.Logout(ctx); err != nil {
		if !errors.Is(err, session.ErrRemoteLogout) {
			return err
		}
		fmt.Fprintln(a.out, "Logged out locally. The server could not be reached to revoke the token.")
		return nil
	}

	fmt.Fprintln(a.out, "Logged out.")
	return nil
}
