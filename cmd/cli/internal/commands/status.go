package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/wolfeidau/certifychain/internal/session"
)

// StatusCmd shows who is logged in. The credential is shown as a
// fingerprint only.
type StatusCmd struct{}

func (c *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals)
	if err != nil {
		return err
	}

	current := a.store.Current()
	if !current.Authenticated() {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}

	fmt.Fprintf(a.out, "Logged in as: %s %s <%s>\n", current.Identity.FirstName, current.Identity.LastName, current.Identity.Email)
	fmt.Fprintf(a.out, "User ID:      %d\n", current.Identity.ID)
	fmt.Fprintf(a.out, "Token:        %s\n", session.Fingerprint(current.Token))
	printProfile(a.out, current.Profile)

	return nil
}

func printProfile(out io.Writer, profile *session.Profile) {
	if profile == nil {
		fmt.Fprintln(out, "Profile:      not loaded")
		return
	}

	department := profile.Department
	if department == "" {
		department = "-"
	}

	fmt.Fprintf(out, "Department:   %s\n", department)
	if profile.JoinDate != "" {
		fmt.Fprintf(out, "Joined:       %s\n", profile.JoinDate)
	}
	fmt.Fprintf(out, "Rank:         #%d\n", profile.CurrentRank)
	fmt.Fprintf(out, "Weightage:    %.1f\n", profile.TotalWeightage)
}
