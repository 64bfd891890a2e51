package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/certifychain/internal/client"
	"github.com/wolfeidau/certifychain/internal/config"
	"github.com/wolfeidau/certifychain/internal/gate"
	"github.com/wolfeidau/certifychain/internal/persist"
	"github.com/wolfeidau/certifychain/internal/session"
)

type Globals struct {
	Debug   bool
	Version string

	// Config is the config file path, ~/.certifychain/config.yaml when empty.
	Config string
	APIURL string

	// Ephemeral keeps the session in memory only.
	Ephemeral bool

	Stdout io.Writer
	Stdin  io.Reader
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout != nil {
		return g.Stdout
	}
	return os.Stdout
}

func (g *Globals) stdin() io.Reader {
	if g.Stdin != nil {
		return g.Stdin
	}
	return os.Stdin
}

// app is the wiring shared by every command: one API client whose
// credential slot is driven by one session store.
type app struct {
	cfg    config.Config
	client *client.Client
	store  *session.Store
	gate   *gate.Gate
	out    io.Writer
}

// newApp loads configuration, restores the stored session and returns once
// hydration is complete so gate decisions see the restored state.
func newApp(ctx context.Context, globals *Globals) (*app, error) {
	cfg, err := config.Load(globals.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if globals.APIURL != "" {
		cfg.APIBaseURL = globals.APIURL
	}

	apiClient, err := client.New(client.Config{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.Timeout,
		CacheDir:  cfg.CacheDir,
		MaxTries:  cfg.MaxTries,
		RetryWait: 250 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	var kv persist.KV
	if globals.Ephemeral {
		kv = persist.NewMemoryStore()
	} else {
		fileStore, err := persist.NewFileStore(cfg.SessionDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		kv = fileStore
	}

	store := session.NewStore(kv, apiClient.Auth(), client.NewSessionRemote(apiClient),
		session.WithPurge(apiClient.PurgeCache))

	a := &app{
		cfg:    cfg,
		client: apiClient,
		store:  store,
		gate:   gate.Default(),
		out:    globals.stdout(),
	}

	if err := store.Hydrate(ctx); err != nil {
		if !errors.Is(err, session.ErrSessionRejected) {
			return nil, err
		}
		log.Warn().Err(err).Msg("stored session is no longer valid")
		fmt.Fprintln(a.out, "Your saved session has expired, please log in again.")
	}

	return a, nil
}

// enter checks the gate for route before a protected command runs.
func (a *app) enter(route string) error {
	if err := a.gate.Require(route, a.store.Current()); err != nil {
		return fmt.Errorf("%w\n\nTo log in:\n  certifychain-cli login --email <EMAIL>", err)
	}
	return nil
}

// apiError turns an API failure into a message for the terminal. A rejected
// credential is reported with a hint to log in again; the session is left as
// is so the user decides.
func apiError(action string, err error) error {
	if client.IsUnauthorized(err) {
		return fmt.Errorf("%s: %s\n\nYour session may have expired, run:\n  certifychain-cli login", action, client.ErrorMessage(err, "unauthorized"))
	}
	return fmt.Errorf("%s: %w", action, err)
}

// readPassword returns flagValue or, when fromStdin is set, the first line
// of in.
func readPassword(in io.Reader, flagValue string, fromStdin bool) (string, error) {
	if !fromStdin {
		return flagValue, nil
	}

	data, err := io.ReadAll(io.LimitReader(in, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimRight(line, "\r"), nil
}
