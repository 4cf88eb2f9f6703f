package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"tasksync/internal/config"
	"tasksync/internal/service"
)

const (
	tasksScope = "https://www.googleapis.com/auth/tasks"

	callbackTimeout = 5 * time.Minute
	exchangeTimeout = 30 * time.Second
	callbackPort    = 8085
	callbackPorts   = 5
)

func oauthConfig(cfg *config.Config) (*oauth2.Config, error) {
	data, err := os.ReadFile(cfg.OAuthClientPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s not found in %s", service.ErrNoCredentials, config.OAuthClientFile, cfg.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", config.OAuthClientFile, err)
	}
	oc, err := google.ConfigFromJSON(data, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.OAuthClientFile, err)
	}
	return oc, nil
}

func loadToken(cfg *config.Config) (*oauth2.Token, error) {
	data, err := os.ReadFile(cfg.TokenPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: not logged in (run: tasksync login)", service.ErrNoCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", config.TokenFile, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.TokenFile, err)
	}
	return &tok, nil
}

// authorizedClient returns an HTTP client whose token refreshes itself.
func authorizedClient(ctx context.Context, cfg *config.Config) (*http.Client, error) {
	oc, err := oauthConfig(cfg)
	if err != nil {
		return nil, err
	}
	tok, err := loadToken(cfg)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, oc.TokenSource(ctx, tok)), nil
}

// Login runs the installed-app OAuth flow: it prints the consent URL to
// prompt, waits for the browser redirect on a local port and stores the
// resulting token in the config directory.
func Login(ctx context.Context, cfg *config.Config, prompt io.Writer) error {
	oc, err := oauthConfig(cfg)
	if err != nil {
		return err
	}

	ln, port, err := listenCallback()
	if err != nil {
		return err
	}
	defer ln.Close()
	oc.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	verifier := oauth2.GenerateVerifier()
	state := oauth2.GenerateVerifier()
	fmt.Fprintln(prompt, "Open this URL in your browser:")
	fmt.Fprintln(prompt, oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)))

	code, err := awaitCode(ctx, ln, state)
	if err != nil {
		return err
	}

	exCtx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()
	tok, err := oc.Exchange(exCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("exchange code for token: %w", err)
	}

	if err := cfg.EnsureDir(); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return saveToken(cfg.TokenPath(), tok)
}

// TokenValid reports whether the stored token can still produce an access
// token.
func TokenValid(ctx context.Context, cfg *config.Config) bool {
	oc, err := oauthConfig(cfg)
	if err != nil {
		return false
	}
	tok, err := loadToken(cfg)
	if err != nil || tok.RefreshToken == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = oc.TokenSource(ctx, tok).Token()
	return err == nil
}

func listenCallback() (net.Listener, int, error) {
	for port := callbackPort; port < callbackPort+callbackPorts; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			return ln, port, nil
		}
	}
	return nil, 0, errors.New("could not bind to local port for OAuth callback")
}

func awaitCode(ctx context.Context, ln net.Listener, state string) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "no code in callback", http.StatusBadRequest)
			select {
			case errCh <- errors.New("no code in callback"):
			default:
			}
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	timer := time.NewTimer(callbackTimeout)
	defer timer.Stop()

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-timer.C:
		return "", errors.New("oauth callback timed out")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// saveToken saves an OAuth token to a file with mode 0600.
func saveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
