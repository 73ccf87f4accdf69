package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/ytcurate/internal/shared"
	"github.com/google/go-github/v66/github"
	"golang.org/x/crypto/nacl/box"
)

// SecretStore persists a named secret outside the process.
type SecretStore interface {
	Put(ctx context.Context, name, value string) error
}

// GitHubSecretStore writes GitHub Actions repository secrets.
type GitHubSecretStore struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubSecretStore creates a store for repository ("owner/name") authenticated with token.
//
// baseURL overrides the API root and may be empty.
func NewGitHubSecretStore(repository, token string, httpClient *http.Client, baseURL string) (*GitHubSecretStore, error) {
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("%w: repository must be owner/name, got %q", shared.ErrInvalidConfig, repository)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: github token is empty", shared.ErrMissingCredentials)
	}

	client := github.NewClient(httpClient).WithAuthToken(token)
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("%w: invalid github api url: %v", shared.ErrInvalidConfig, err)
		}
		client.BaseURL = u
	}

	return &GitHubSecretStore{client: client, owner: owner, repo: repo}, nil
}

// Put seals value with the repository public key and creates or updates the secret.
func (s *GitHubSecretStore) Put(ctx context.Context, name, value string) error {
	key, _, err := s.client.Actions.GetRepoPublicKey(ctx, s.owner, s.repo)
	if err != nil {
		return fmt.Errorf("%w: fetch public key: %v", shared.ErrSecretUpdate, err)
	}

	sealed, err := sealSecret(key.GetKey(), value)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrSecretUpdate, err)
	}

	_, err = s.client.Actions.CreateOrUpdateRepoSecret(ctx, s.owner, s.repo, &github.EncryptedSecret{
		Name:           name,
		KeyID:          key.GetKeyID(),
		EncryptedValue: sealed,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrSecretUpdate, name, err)
	}
	return nil
}

// sealSecret encrypts plaintext as a libsodium sealed box for the base64 encoded recipient key.
func sealSecret(recipientKey, plaintext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(recipientKey))
	if err != nil {
		return "", fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("invalid public key length: %d", len(raw))
	}

	var recipient [32]byte
	copy(recipient[:], raw)

	out, err := box.SealAnonymous(nil, []byte(plaintext), &recipient, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("seal secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}
