// OAuth2 credentials for the YouTube Data API
//
// Credentials are stored in the authorized-user JSON layout written by Google's client
// libraries, so a token cache produced elsewhere keeps working. Local runs read and write a
// token file; unattended runs receive the same document base64 encoded through the environment.
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/ytcurate/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

// Scopes requested for playlist management.
var Scopes = []string{youtube.YoutubeScope, youtube.YoutubeForceSslScope}

// Credentials is an authorized user token together with the client that issued it.
type Credentials struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry,omitempty"`

	source oauth2.TokenSource
}

// NewCredentials captures tok as issued by cfg.
func NewCredentials(cfg *oauth2.Config, tok *oauth2.Token) *Credentials {
	c := &Credentials{
		TokenURI:     cfg.Endpoint.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
	}
	c.setToken(tok)
	return c
}

// LoadClientConfig reads a Google client-secrets file.
func LoadClientConfig(path, redirectURL string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read oauth client file: %v", shared.ErrMissingCredentials, err)
	}

	cfg, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return cfg, nil
}

// LoadCredentials reads a token cache file.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMissingCredentials, err)
	}
	return parseCredentials(data)
}

// DecodeCredentials parses a URL-safe base64 token blob.
func DecodeCredentials(blob string) (*Credentials, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil, fmt.Errorf("%w: empty credentials blob", shared.ErrMissingCredentials)
	}

	data, err := base64.URLEncoding.DecodeString(blob)
	if err != nil {
		if data, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(blob, "=")); err != nil {
			return nil, fmt.Errorf("%w: credentials are not base64: %v", shared.ErrInvalidCredentials, err)
		}
	}
	return parseCredentials(data)
}

func parseCredentials(data []byte) (*Credentials, error) {
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}
	if c.ClientID == "" || (c.Token == "" && c.RefreshToken == "") {
		return nil, fmt.Errorf("%w: credentials lack a client id or token", shared.ErrInvalidCredentials)
	}
	return &c, nil
}

// Config rebuilds the OAuth2 client configuration embedded in the credentials.
func (c *Credentials) Config() *oauth2.Config {
	endpoint := google.Endpoint
	if c.TokenURI != "" {
		endpoint.TokenURL = c.TokenURI
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       c.Scopes,
	}
}

// OAuthToken converts the stored fields to an [oauth2.Token].
func (c *Credentials) OAuthToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.Token,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       parseExpiry(c.Expiry),
	}
}

// Valid reports whether the access token can be used without refreshing.
func (c *Credentials) Valid() bool {
	return c.OAuthToken().Valid()
}

// Refresh exchanges the refresh token for a new access token when the current one is no longer valid.
//
// It reports whether a refresh happened.
func (c *Credentials) Refresh(ctx context.Context) (bool, error) {
	if c.Valid() {
		return false, nil
	}
	if c.RefreshToken == "" {
		return false, shared.ErrNoRefreshToken
	}

	tok, err := c.Config().TokenSource(ctx, c.OAuthToken()).Token()
	if err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	c.setToken(tok)
	return true, nil
}

// Client returns an HTTP client that authorizes requests and refreshes the token as needed.
//
// Requests go through base when it is set.
func (c *Credentials) Client(ctx context.Context, base *http.Client) *http.Client {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	c.source = oauth2.ReuseTokenSource(c.OAuthToken(), c.Config().TokenSource(ctx, c.OAuthToken()))
	return oauth2.NewClient(ctx, c.source)
}

// SyncToken copies the token held by the last [Credentials.Client] back into c. The client
// may have refreshed it since.
func (c *Credentials) SyncToken() error {
	if c.source == nil {
		return nil
	}
	tok, err := c.source.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	c.setToken(tok)
	return nil
}

// Save writes the credentials as indented JSON.
func (c *Credentials) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// Encode returns the credentials as compact JSON in URL-safe base64.
func (c *Credentials) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

func (c *Credentials) setToken(tok *oauth2.Token) {
	c.Token = tok.AccessToken
	if tok.RefreshToken != "" {
		c.RefreshToken = tok.RefreshToken
	}
	c.Expiry = ""
	if !tok.Expiry.IsZero() {
		c.Expiry = tok.Expiry.UTC().Format(time.RFC3339)
	}
}

// parseExpiry accepts RFC 3339 and the zone-less ISO form some clients write.
func parseExpiry(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// EncodeKeyFile writes "<name>_b64.txt" next to a JSON key file, holding its compact JSON in
// URL-safe base64. The file must live under tokensDir.
func EncodeKeyFile(jsonPath, tokensDir string) (string, error) {
	rel, err := filepath.Rel(tokensDir, jsonPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s is outside %s", shared.ErrForbiddenPath, jsonPath, tokensDir)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrMissingCredentials, err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return "", fmt.Errorf("%w: %s is not JSON: %v", shared.ErrInvalidCredentials, jsonPath, err)
	}

	name := strings.TrimSuffix(filepath.Base(jsonPath), filepath.Ext(jsonPath))
	out := filepath.Join(filepath.Dir(jsonPath), name+"_b64.txt")
	if err := os.WriteFile(out, []byte(base64.URLEncoding.EncodeToString(compact.Bytes())), 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	return out, nil
}
