package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"todolist/internal/backend/googletasks"
	"todolist/internal/config"
	"todolist/internal/exitcode"
	"todolist/internal/gateway"
)

const (
	// OAuth callback timeout
	oauthCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for OAuth callback server
	oauthStartPort = 8085

	// Max port attempts
	oauthMaxPortAttempts = 5
)

func init() {
	Register(&LoginCmd{})
}

// Authorizer obtains a fresh token for oauthConfig, usually through the
// browser consent flow.
type Authorizer func(ctx context.Context, oauthConfig *oauth2.Config, errOut io.Writer) (*oauth2.Token, error)

// Connector opens the google gateway from the credentials in cfg.
type Connector func(ctx context.Context, cfg *config.Config) (gateway.Gateway, error)

// LoginCmd implements the login command. It stores a Google Tasks token and
// checks it by listing the default task list through the gateway.
type LoginCmd struct {
	authorize Authorizer
	connect   Connector
}

// SetAuthorizer replaces the browser consent flow (for testing).
func (c *LoginCmd) SetAuthorizer(a Authorizer) {
	c.authorize = a
}

// SetConnector replaces the google gateway constructor (for testing).
func (c *LoginCmd) SetConnector(fn Connector) {
	c.connect = fn
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Authenticate with Google Tasks (backend = \"google\")" }
func (c *LoginCmd) Usage() string      { return "todolist login [common flags]" }
func (c *LoginCmd) NeedsGateway() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, gw gateway.Gateway, args []string, out, errOut io.Writer) int {
	if cfg.Backend != config.BackendGoogle {
		fmt.Fprintf(errOut, "error: login is only used by the %q backend (current backend: %q)\n", config.BackendGoogle, cfg.Backend)
		fmt.Fprintf(errOut, "Set backend = %q in %s or %s=%s.\n", config.BackendGoogle, cfg.ConfigPath(), config.EnvBackend, config.BackendGoogle)
		return exitcode.UserError
	}
	if !cfg.HasOAuthClient() {
		writeOAuthClientHelp(errOut, cfg)
		return exitcode.AuthError
	}

	// A stored token that can still list the default list needs no new consent.
	if cfg.HasToken() {
		if n, err := c.verify(ctx, cfg); err == nil {
			if !cfg.Quiet {
				fmt.Fprintf(out, "already logged in (%s)\n", taskCount(n))
			}
			return exitcode.Success
		}
	}

	oauthConfig, err := googletasks.OAuthConfig(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	authorize := c.authorize
	if authorize == nil {
		authorize = browserAuthorize
	}
	token, err := authorize(ctx, oauthConfig, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}
	if err := saveToken(cfg.TokenPath(), token); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}

	n, err := c.verify(ctx, cfg)
	switch {
	case err == nil:
	case googletasks.IsAuthError(err):
		// The new token is useless; do not leave it behind for the next run.
		_ = cfg.RemoveToken()
		fmt.Fprintf(errOut, "error: token rejected: %v\n", err)
		return exitcode.AuthError
	default:
		fmt.Fprintf(errOut, "error: token saved, but listing tasks failed: %v\n", err)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok (%s)\n", taskCount(n))
	}
	return exitcode.Success
}

// verify lists the default task list with the stored token.
func (c *LoginCmd) verify(ctx context.Context, cfg *config.Config) (int, error) {
	connect := c.connect
	if connect == nil {
		connect = func(ctx context.Context, cfg *config.Config) (gateway.Gateway, error) {
			return googletasks.New(ctx, cfg)
		}
	}
	gw, err := connect(ctx, cfg)
	if err != nil {
		return 0, err
	}
	tasks, err := gw.ListTasks(ctx)
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

func taskCount(n int) string {
	if n == 1 {
		return "1 task on the default list"
	}
	return fmt.Sprintf("%d tasks on the default list", n)
}

func writeOAuthClientHelp(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "error: %s not found in %s\n\n", config.OAuthClientFile, cfg.Dir)
	fmt.Fprintf(w, `The google backend needs OAuth credentials for the Tasks API:

1. Open https://console.cloud.google.com/apis/credentials and pick a project
2. Enable https://console.cloud.google.com/apis/library/tasks.googleapis.com
3. Create an OAuth client ID of type "Desktop app" and download its JSON
4. Save it as %s

Then run 'todolist login' again.
`, cfg.OAuthClientPath())
}

// browserAuthorize runs the PKCE consent flow with a local callback server.
func browserAuthorize(ctx context.Context, oauthConfig *oauth2.Config, errOut io.Writer) (*oauth2.Token, error) {
	port, listener, err := findAvailablePort()
	if err != nil {
		return nil, errors.New("could not bind to local port for OAuth callback")
	}
	defer listener.Close()

	oauthConfig.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)
	verifier := oauth2.GenerateVerifier()
	authURL := oauthConfig.AuthCodeURL("state",
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)
	fmt.Fprintln(errOut, "Open this URL in your browser:")
	fmt.Fprintln(errOut, authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			errCh <- errors.New("no code in callback")
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>todolist is connected to Google Tasks</h1><p>You may close this window.</p></body></html>")
		codeCh <- code
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-time.After(oauthCallbackTimeout):
		return nil, errors.New("oauth callback timed out")
	case <-ctx.Done():
		return nil, errors.New("cancelled")
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()
	token, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return token, nil
}

// findAvailablePort tries to find an available port starting from oauthStartPort.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, errors.New("no available port found")
}

// saveToken saves an OAuth token to a file with mode 0600.
func saveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
