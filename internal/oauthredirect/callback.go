package oauthredirect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"filippo.io/csrf"
	"github.com/rs/zerolog/log"
)

// DefaultCallbackAddr and DefaultCallbackPath match the login surface the API
// redirects to after a Google login.
const (
	DefaultCallbackAddr = "localhost:8080"
	DefaultCallbackPath = "/login"
)

type outcome struct {
	result *Result
	err    error
}

// CallbackServer is a loopback listener for the redirect back from the API.
// It parses the first request carrying redirect parameters and hands the
// outcome to Wait. It never logs anybody in by itself.
type CallbackServer struct {
	path     string
	opts     []Option
	listener net.Listener
	server   *http.Server
	outcomes chan outcome
	once     sync.Once
}

// NewCallbackServer listens on addr and serves path.
func NewCallbackServer(addr, path string, opts ...Option) (*CallbackServer, error) {
	if path == "" {
		path = DefaultCallbackPath
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for login callback on %s: %w", addr, err)
	}

	c := &CallbackServer{
		path:     path,
		opts:     opts,
		listener: listener,
		outcomes: make(chan outcome, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, c.handle)

	c.server = &http.Server{
		Handler:           csrf.New().Handler(mux),
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxHeaderBytes:    64 * 1024, // redirect carries JSON in the query
	}

	go func() {
		if err := c.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("login callback server failed")
		}
	}()

	log.Debug().Str("url", c.URL()).Msg("waiting for login callback")

	return c, nil
}

// URL returns the address the API should redirect to.
func (c *CallbackServer) URL() string {
	return "http://" + c.listener.Addr().String() + c.path
}

// Wait blocks until a redirect arrives or ctx is done. The server is shut
// down before Wait returns.
func (c *CallbackServer) Wait(ctx context.Context) (*Result, error) {
	defer c.Close()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-c.outcomes:
		return o.result, o.err
	}
}

// Close stops the listener. It is safe to call more than once.
func (c *CallbackServer) Close() error {
	var err error
	c.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = c.server.Shutdown(ctx)
	})
	return err
}

func (c *CallbackServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// browsers probe the page without parameters, wait for the real redirect
	if r.URL.RawQuery == "" {
		http.Error(w, "waiting for login redirect", http.StatusBadRequest)
		return
	}

	result, err := Parse(r.URL.RawQuery, c.opts...)

	select {
	case c.outcomes <- outcome{result: result, err: err}:
	default:
		http.Error(w, "login already handled, return to the terminal", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, "Login failed: invalid authentication data. Return to the terminal for details.")
		return
	}
	fmt.Fprintln(w, "Login complete. You can close this window and return to the terminal.")
}
