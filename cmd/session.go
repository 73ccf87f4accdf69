package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/repositories"
	"github.com/desertthunder/ytcurate/internal/services"
	"github.com/desertthunder/ytcurate/internal/shared"
	"github.com/desertthunder/ytcurate/internal/tasks"
	"golang.org/x/oauth2"
)

const credentialsFile = "credentials.json"

// session is an authorized connection to the Data API for one command.
type session struct {
	mode  string
	creds *services.Credentials
	api   tasks.YouTubeAPI
}

func (r *Runner) credentialsPath() string {
	return filepath.Join(r.config.Paths.TokensDir, credentialsFile)
}

// openSession authorizes against YouTube in mode. An injected client skips authorization.
func (r *Runner) openSession(ctx context.Context, mode string) (*session, error) {
	if err := validateMode(mode); err != nil {
		return nil, err
	}
	if r.youtube != nil {
		return &session{mode: mode, api: r.youtube}, nil
	}

	var creds *services.Credentials
	var err error
	if mode == modeRemote {
		creds, err = r.remoteCredentials(ctx)
	} else {
		creds, err = r.localCredentials(ctx)
	}
	if err != nil {
		return nil, err
	}

	base := &http.Client{
		Transport: services.NewRateLimitedTransport(r.httpClient.Transport, r.config.API.RequestsPerSecond),
		Timeout:   r.httpClient.Timeout,
	}
	api, err := services.NewYouTubeService(ctx, services.YouTubeOpts{
		HTTPClient:    creds.Client(ctx, base),
		ShortsClient:  services.NoRedirectClient(base),
		ShortsBaseURL: r.config.API.ShortsBaseURL,
		PageSize:      r.config.API.PageSize,
	})
	if err != nil {
		return nil, err
	}

	return &session{mode: mode, creds: creds, api: api}, nil
}

// localCredentials refreshes the saved token and falls back to browser consent when that fails.
func (r *Runner) localCredentials(ctx context.Context) (*services.Credentials, error) {
	path := r.credentialsPath()

	creds, err := services.LoadCredentials(path)
	if err == nil {
		refreshed, refreshErr := creds.Refresh(r.oauthContext(ctx))
		if refreshErr == nil {
			if refreshed {
				r.logger.Info("access token refreshed", "path", path)
			}
			return creds, nil
		}
		err = refreshErr
	}
	r.logger.Warn("saved credentials unusable, requesting consent", "error", err)

	creds, err = r.authorize(ctx)
	if err != nil {
		return nil, err
	}
	if err := creds.Save(path); err != nil {
		return nil, err
	}
	return creds, nil
}

// remoteCredentials decodes the token passed through the environment. There is no interactive fallback.
func (r *Runner) remoteCredentials(ctx context.Context) (*services.Credentials, error) {
	creds, err := services.DecodeCredentials(os.Getenv(r.config.GitHub.CredsEnv))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrAuthFailed, r.config.GitHub.CredsEnv, err)
	}
	if _, err := creds.Refresh(r.oauthContext(ctx)); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return creds, nil
}

func (r *Runner) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
}

// persistCredentials stores the possibly refreshed token where the next run will look for it.
//
// Local mode rewrites the token file and its base64 copies. Remote mode pushes the encoded token
// to the repository secret.
func (r *Runner) persistCredentials(ctx context.Context, s *session) error {
	if s == nil || s.creds == nil {
		return nil
	}
	if err := s.creds.SyncToken(); err != nil {
		r.logger.Warn("keeping the token from the start of the run", "error", err)
	}

	if s.mode == modeRemote {
		blob, err := s.creds.Encode()
		if err != nil {
			return err
		}
		store, err := r.secretStore()
		if err != nil {
			return err
		}
		if err := store.Put(ctx, r.config.GitHub.SecretName, blob); err != nil {
			return err
		}
		r.logger.Info("repository secret updated", "secret", r.config.GitHub.SecretName)
		return nil
	}

	path := r.credentialsPath()
	if err := s.creds.Save(path); err != nil {
		return err
	}
	if _, err := services.EncodeKeyFile(path, r.config.Paths.TokensDir); err != nil {
		return err
	}
	if _, err := services.EncodeKeyFile(r.config.Paths.OAuthClient, r.config.Paths.TokensDir); err != nil {
		r.logger.Warn("oauth client not encoded", "path", r.config.Paths.OAuthClient, "error", err)
	}
	return nil
}

func (r *Runner) secretStore() (services.SecretStore, error) {
	if r.secrets != nil {
		return r.secrets, nil
	}
	return services.NewGitHubSecretStore(
		r.config.GitHub.Repository,
		os.Getenv(r.config.GitHub.TokenEnv),
		r.httpClient,
		"",
	)
}

// newCurator loads the flat-file state and wires it to api. events may be nil.
func (r *Runner) newCurator(api tasks.YouTubeAPI, events tasks.EventRecorder) (*tasks.Curator, error) {
	paths := r.config.Paths

	groups, err := repositories.LoadChannelGroups(paths.Channels)
	if err != nil {
		return nil, err
	}
	playlists, err := repositories.LoadPlaylists(paths.Playlists)
	if err != nil {
		return nil, err
	}
	addOn, err := loadAddOn(paths.AddOn)
	if err != nil {
		return nil, err
	}

	ledgerStore := repositories.NewLedgerStore(paths.Ledger)
	ledger, err := ledgerStore.Load()
	if err != nil {
		return nil, err
	}

	return tasks.NewCurator(tasks.CuratorOpts{
		API:        api,
		Rules:      r.config.Rules,
		Groups:     groups,
		Playlists:  playlists,
		AddOn:      addOn,
		Ledger:     ledger,
		Stats:      repositories.NewStatsStore(paths.Stats),
		Archive:    repositories.NewArchiveStore(paths.Archive),
		Events:     events,
		LedgerFile: ledgerStore,
	})
}

// loadAddOn treats a missing add-on file as empty.
func loadAddOn(path string) (models.AddOn, error) {
	if path == "" {
		return models.AddOn{}, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return models.AddOn{}, nil
	}
	return repositories.LoadAddOn(path)
}
