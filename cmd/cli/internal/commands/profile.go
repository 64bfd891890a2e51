package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/certifychain/internal/client"
)

// ProfileCmd refreshes and shows the user's profile.
type ProfileCmd struct{}

func (c *ProfileCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals)
	if err != nil {
		return err
	}

	if err := a.enter("/profile"); err != nil {
		return err
	}

	profile, err := a.store.RefreshProfile(ctx)
	if err != nil {
		if client.IsUnauthorized(err) {
			return apiError("failed to refresh profile", err)
		}
		// the last known profile is still shown
		log.Warn().Err(err).Msg("showing cached profile")
		profile = a.store.Current().Profile
	}

	identity := a.store.Current().Identity
	if identity == nil {
		return errors.New("failed to show profile: session changed")
	}

	fmt.Fprintf(a.out, "%s %s <%s>\n", identity.FirstName, identity.LastName, identity.Email)
	printProfile(a.out, profile)

	return nil
}
