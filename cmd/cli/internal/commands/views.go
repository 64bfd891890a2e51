package commands

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wolfeidau/certifychain/internal/client"
)

type DashboardCmd struct{}

func (c *DashboardCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals)
	if err != nil {
		return err
	}

	if err := a.enter("/dashboard"); err != nil {
		return err
	}

	dashboard, err := a.client.Dashboard(ctx)
	if err != nil {
		return apiError("failed to load dashboard", err)
	}

	if identity := a.store.Current().Identity; identity != nil {
		fmt.Fprintf(a.out, "Welcome back, %s!\n\n", identity.DisplayName())
	}

	fmt.Fprintf(a.out, "Total weightage:    %.1f\n", dashboard.Stats.TotalWeightage)
	fmt.Fprintf(a.out, "Certificates:       %d\n", dashboard.Stats.TotalCertificates)
	fmt.Fprintf(a.out, "Current rank:       #%d\n", dashboard.Stats.CurrentRank)
	fmt.Fprintln(a.out)

	fmt.Fprintln(a.out, "Recent certificates:")
	if len(dashboard.RecentCertificates) == 0 {
		fmt.Fprintln(a.out, "  none yet, upload one to get started")
	}
	for _, cert := range dashboard.RecentCertificates {
		fmt.Fprintf(a.out, "  %-40s %-10s %s\n", truncate(cert.Name, 40), cert.Status, cert.UploadDate)
	}
	fmt.Fprintln(a.out)

	fmt.Fprintln(a.out, "Domain progress:")
	for _, domain := range dashboard.DomainProgress {
		fmt.Fprintf(a.out, "  %-24s %3d certificates  %6.1f weightage\n", truncate(domain.Name, 24), domain.CertificateCount, domain.TotalWeightage)
	}

	return nil
}

type CertificatesCmd struct {
	Search string `help:"Match name or issuer"`
	Domain string `help:"Domain to filter by"`
	Status string `help:"Status to filter by (pending, approved, rejected)"`
}

func (c *CertificatesCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals)
	if err != nil {
		return err
	}

	if err := a.enter("/certificates"); err != nil {
		return err
	}

	certs, err := a.client.Certificates(ctx, client.CertificateFilter{
		Search: c.Search,
		Domain: c.Domain,
		Status: c.Status,
	})
	if err != nil {
		return apiError("failed to list certificates", err)
	}

	if len(certs) == 0 {
		fmt.Fprintln(a.out, "No certificates found.")
		return nil
	}

	fmt.Fprintf(a.out, "%-6s %-32s %-20s %-16s %-9s %-10s %s\n",
		"ID", "Name", "Issuer", "Domain", "Weightage", "Status", "Uploaded")
	fmt.Fprintln(a.out, strings.Repeat("─", 110))

	for _, cert := range certs {
		fmt.Fprintf(a.out, "%-6d %-32s %-20s %-16s %9.1f %-10s %s\n",
			cert.ID,
			truncate(cert.Name, 32),
			truncate(cert.Issuer, 20),
			truncate(cert.Domain, 16),
			cert.Weightage,
			cert.Status,
			cert.UploadDate,
		)
	}

	return nil
}

type LeaderboardCmd struct {
	Domain string `help:"Rank within one domain only"`
}

func (c *LeaderboardCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals)
	if err != nil {
		return err
	}

	if err := a.enter("/leaderboard"); err != nil {
		return err
	}

	entries, err := a.client.Leaderboard(ctx, c.Domain)
	if err != nil {
		return apiError("failed to load leaderboard", err)
	}

	scope := "all domains"
	if c.Domain != "" {
		scope = c.Domain
	}
	fmt.Fprintf(a.out, "Leaderboard (%s):\n", scope)

	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No entries yet.")
		return nil
	}

	me := ""
	if identity := a.store.Current().Identity; identity != nil {
		me = identity.Email
	}

	fmt.Fprintf(a.out, "  %-6s %-36s %-13s %s\n", "Rank", "User", "Certificates", "Weightage")
	for i, entry := range entries {
		marker := " "
		if entry.Email == me {
			marker = "*"
		}
		fmt.Fprintf(a.out, "%s %-6d %-36s %-13d %.1f\n", marker, i+1, truncate(entry.Email, 36), entry.CertificateCount, entry.TotalWeightage)
	}

	return nil
}

// truncate shortens s to n characters, counting runes so multibyte names
// are never cut mid character.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
