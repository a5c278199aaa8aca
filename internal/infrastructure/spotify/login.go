package spotify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	"TopArtistsTracker/pkg/logger"
)

// Login runs the authorization-code flow against a local callback server.
type Login struct {
	oauth  *oauth2.Config
	store  *FileTokenStore
	logger *slog.Logger
}

// NewLogin wires the OAuth app config and the token destination.
func NewLogin(oauthCfg *oauth2.Config, store *FileTokenStore, log *slog.Logger) *Login {
	if log == nil {
		log = slog.Default()
	}
	return &Login{oauth: oauthCfg, store: store, logger: log}
}

type callbackResult struct {
	token *oauth2.Token
	err   error
}

// Run serves the redirect URL, hands the authorization URL to announce and
// waits for the browser to come back. The exchanged token is stored.
func (l *Login) Run(ctx context.Context, announce func(authURL string)) (*oauth2.Token, error) {
	redirect, err := url.Parse(l.oauth.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("parse redirect url: %w", err)
	}

	state, err := newState()
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", redirect.Host, err)
	}

	// A ":0" redirect asks for any free port; advertise the bound one.
	oauthCfg := *l.oauth
	if redirect.Port() == "0" {
		bound := *redirect
		bound.Host = ln.Addr().String()
		oauthCfg.RedirectURL = bound.String()
	}

	results := make(chan callbackResult, 1)
	router := chi.NewRouter()
	router.Get(callbackPath(redirect), l.callback(&oauthCfg, state, results))
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.New(l.logger, "login", slog.LevelWarn),
	}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			results <- callbackResult{err: fmt.Errorf("callback server: %w", err)}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	announce(oauthCfg.AuthCodeURL(state))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		if err := l.store.Save(res.token); err != nil {
			return nil, err
		}
		l.logger.Info("spotify login completed", "expiry", res.token.Expiry)
		return res.token, nil
	}
}

func (l *Login) callback(oauthCfg *oauth2.Config, state string, results chan<- callbackResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		var res callbackResult

		switch {
		case query.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case query.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", query.Get("error"))
		case query.Get("code") == "":
			res.err = errors.New("callback carried no authorization code")
		default:
			res.token, res.err = oauthCfg.Exchange(r.Context(), query.Get("code"))
			if res.err != nil {
				res.err = fmt.Errorf("exchange code: %w", res.err)
			}
		}

		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadGateway)
		} else {
			_, _ = fmt.Fprintln(w, "Login complete. You can close this window.")
		}

		select {
		case results <- res:
		default:
		}
	}
}

func callbackPath(redirect *url.URL) string {
	if redirect.Path == "" {
		return "/"
	}
	return redirect.Path
}

func newState() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(nonce), nil
}
