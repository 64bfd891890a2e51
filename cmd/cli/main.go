package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/certifychain/cmd/cli/internal/commands"
	"github.com/wolfeidau/certifychain/internal/logger"
	"github.com/wolfeidau/certifychain/internal/telemetry"
)

var (
	version = "dev"
	cli     struct {
		Login        commands.LoginCmd        `cmd:"" help:"Log in with email and password, or with Google"`
		Signup       commands.SignupCmd       `cmd:"" help:"Create an account"`
		Logout       commands.LogoutCmd       `cmd:"" help:"Log out and revoke the token"`
		Status       commands.StatusCmd       `cmd:"" help:"Show the current session"`
		Profile      commands.ProfileCmd      `cmd:"" help:"Refresh and show your profile"`
		Dashboard    commands.DashboardCmd    `cmd:"" help:"Show your dashboard"`
		Certificates commands.CertificatesCmd `cmd:"" help:"List your certificates"`
		Leaderboard  commands.LeaderboardCmd  `cmd:"" help:"Show the leaderboard"`

		Config    string `help:"Config file (default: ~/.certifychain/config.yaml)" type:"path" env:"CERTIFYCHAIN_CONFIG"`
		APIURL    string `help:"API base URL, overrides the config file" name:"api-url"`
		Ephemeral bool   `help:"Keep the session in memory only, nothing is written to disk."`
		Telemetry bool   `help:"Export traces and metrics over OTLP." env:"CERTIFYCHAIN_TELEMETRY"`
		Debug     bool   `help:"Enable debug mode."`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("certifychain-cli"),
		kong.Description("Command line client for CertifyChain."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	cmd.FatalIfErrorf(run(ctx, cmd))
}

func run(ctx context.Context, cmd *kong.Context) error {
	if cli.Telemetry {
		shutdown, err := telemetry.InitTelemetry(ctx, "certifychain-cli", version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Failed to shutdown telemetry")
				}
			}()
		}
	}

	return cmd.Run(&commands.Globals{
		Debug:     cli.Debug,
		Version:   version,
		Config:    cli.Config,
		APIURL:    cli.APIURL,
		Ephemeral: cli.Ephemeral,
	})
}
