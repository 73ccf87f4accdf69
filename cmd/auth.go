package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/ytcurate/internal/server"
	"github.com/desertthunder/ytcurate/internal/services"
	"github.com/desertthunder/ytcurate/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const consentTimeout = 2 * time.Minute

// AuthLogin runs the browser consent flow and saves the token under the tokens directory.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds, err := r.authorize(ctx)
	if err != nil {
		return err
	}

	path := r.credentialsPath()
	if err := creds.Save(path); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Token saved to %s\n\n", path)
	r.writePlain("You can now use: ytcurate run\n")
	return nil
}

// AuthStatus reports whether the saved (or environment) token can be used.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	mode := cmd.String("mode")
	if err := validateMode(mode); err != nil {
		return err
	}

	var creds *services.Credentials
	var err error
	source := r.credentialsPath()
	if mode == modeRemote {
		source = "$" + r.config.GitHub.CredsEnv
		creds, err = services.DecodeCredentials(os.Getenv(r.config.GitHub.CredsEnv))
	} else {
		creds, err = services.LoadCredentials(source)
	}
	if err != nil {
		return err
	}

	refreshed := false
	if cmd.Bool("refresh") {
		if refreshed, err = creds.Refresh(r.oauthContext(ctx)); err != nil {
			return err
		}
		if refreshed && mode == modeLocal {
			if err := creds.Save(source); err != nil {
				return err
			}
		}
	}

	status := struct {
		Source          string `json:"source"`
		ClientID        string `json:"client_id"`
		Valid           bool   `json:"valid"`
		Expiry          string `json:"expiry,omitempty"`
		HasRefreshToken bool   `json:"has_refresh_token"`
		Refreshed       bool   `json:"refreshed"`
	}{
		Source:          source,
		ClientID:        creds.ClientID,
		Valid:           creds.Valid(),
		Expiry:          creds.Expiry,
		HasRefreshToken: creds.RefreshToken != "",
		Refreshed:       refreshed,
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlain("Source: %s\n", status.Source)
	r.writePlain("Client: %s\n", status.ClientID)
	if status.Valid {
		r.writePlain("Access token: ✓ valid until %s\n", status.Expiry)
	} else {
		r.writePlain("Access token: ✗ expired\n")
	}
	if status.HasRefreshToken {
		r.writePlain("Refresh token: ✓ present\n")
	} else {
		r.writePlain("Refresh token: ✗ missing, run 'ytcurate auth login'\n")
	}
	if status.Refreshed {
		r.writePlain("✓ Access token refreshed\n")
	}
	return nil
}

// AuthEncode writes "<name>_b64.txt" copies of key files so they can be pasted into repository secrets.
func (r *Runner) AuthEncode(ctx context.Context, cmd *cli.Command) error {
	files := cmd.StringSlice("file")
	if len(files) == 0 {
		files = []string{r.credentialsPath(), r.config.Paths.OAuthClient}
	}

	for _, file := range files {
		if !filepath.IsAbs(file) && filepath.Dir(file) == "." {
			file = filepath.Join(r.config.Paths.TokensDir, file)
		}
		out, err := services.EncodeKeyFile(file, r.config.Paths.TokensDir)
		if err != nil {
			return err
		}
		r.logger.Info("key file encoded", "source", file, "output", out)
		r.writePlain("✓ %s → %s\n", file, out)
	}
	return nil
}

// authorize runs the consent flow with the OAuth client file and returns fresh credentials.
func (r *Runner) authorize(ctx context.Context) (*services.Credentials, error) {
	redirect := fmt.Sprintf("http://%s:%d%s", r.config.Server.Host, r.config.Server.Port, server.CallbackPath)
	oauthConfig, err := services.LoadClientConfig(r.config.Paths.OAuthClient, redirect)
	if err != nil {
		return nil, err
	}

	token, err := r.doOAuth(ctx, oauthConfig)
	if err != nil {
		return nil, err
	}
	return services.NewCredentials(oauthConfig, token), nil
}

// doOAuth starts a local callback server, opens the consent page and waits for the code exchange.
func (r *Runner) doOAuth(ctx context.Context, oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	oauthHandler := server.NewOAuthHandler(oauthConfig, state)
	authURL := oauthHandler.AuthCodeURL()
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for YouTube authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(consentTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}
