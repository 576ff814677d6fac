// Package secrets resolves the credentials needed to talk to a Radarr
// instance, fetching the API key from the instance itself when authentication
// is disabled.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/httpclient"
)

// ErrUnauthorized means the instance has authentication enabled and no API
// key was configured, so the key cannot be fetched automatically.
var ErrUnauthorized = errors.New(
	"authentication is enabled on the remote instance: set the API key explicitly in the configuration",
)

// Secrets holds everything needed to connect to one instance.
type Secrets struct {
	Hostname string `koanf:"hostname"`
	Port     int    `koanf:"port"`
	Protocol string `koanf:"protocol"`
	URLBase  string `koanf:"url_base"`
	APIKey   string `koanf:"api_key"`

	// Version is the remote version reported during key bootstrap, when
	// available. Informational only.
	Version string `koanf:"-"`
}

// HostURL composes the base URL for API requests.
func (s Secrets) HostURL() string {
	base := strings.Trim(s.URLBase, "/")
	url := fmt.Sprintf("%s://%s:%d", s.Protocol, s.Hostname, s.Port)
	if base != "" {
		url += "/" + base
	}
	return url
}

// Get resolves the secrets for the given connection settings. When no API key
// is configured it is bootstrapped from the instance's initialize.json
// endpoint, which only works while authentication is disabled.
func Get(ctx context.Context, s Secrets, logger *slog.Logger) (Secrets, error) {
	if s.APIKey != "" {
		return s, nil
	}
	key, version, err := fetchAPIKey(ctx, s.HostURL(), logger)
	if err != nil {
		return Secrets{}, err
	}
	s.APIKey = key
	s.Version = version
	return s, nil
}

// Test verifies the secrets against the instance's status endpoint. A 401
// response reports invalid credentials rather than an error.
func Test(ctx context.Context, s Secrets, logger *slog.Logger) (bool, error) {
	client := api.NewClient(s.HostURL(), s.APIKey, logger)
	err := client.GetJSON(ctx, "/api/v3/system/status", &map[string]any{})
	if err != nil {
		var se *api.StatusError
		if errors.As(err, &se) && se.Unauthorized() {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func fetchAPIKey(ctx context.Context, hostURL string, logger *slog.Logger) (string, string, error) {
	client := httpclient.New(httpclient.DefaultConfig(), logger)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hostURL+"/initialize.json", nil)
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch initialize.json: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", "", ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch initialize.json: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		APIKey  string `json:"apiKey"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", fmt.Errorf("decode initialize.json: %w", err)
	}
	if body.APIKey == "" {
		return "", "", errors.New("initialize.json did not contain an API key")
	}

	logger.Debug("fetched API key from remote instance",
		slog.String("host", hostURL), slog.String("version", body.Version))
	return body.APIKey, body.Version, nil
}
