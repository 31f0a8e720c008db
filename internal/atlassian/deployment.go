package atlassian

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dverbeek/agent-skills/internal/logger"
)

// Deployment classifies an Atlassian installation.
type Deployment string

const (
	// DeploymentCloud is an Atlassian-hosted site (*.atlassian.net or
	// a probe reporting deploymentType Cloud).
	DeploymentCloud Deployment = "cloud"

	// DeploymentServer covers Server and Data Center installations.
	// It is also the conservative default when probing is inconclusive.
	DeploymentServer Deployment = "server"
)

// Info is a cached deployment classification for one base URL.
type Info struct {
	Product    string     `json:"product"`
	BaseURL    string     `json:"base_url"`
	Deployment Deployment `json:"deployment"`
	Version    string     `json:"version"`
	DetectedAt time.Time  `json:"detected_at"`
}

// IsCloud reports whether the deployment is Atlassian Cloud.
func (i Info) IsCloud() bool {
	return i.Deployment == DeploymentCloud
}

// Store persists deployment classifications between runs. A nil *Info
// with nil error means a cache miss.
type Store interface {
	Deployment(ctx context.Context, baseURL string) (*Info, error)
	SaveDeployment(ctx context.Context, info *Info) error
}

const memoryCacheTTL = time.Hour

// Detector classifies base URLs as Cloud or Server/DC. Results are
// cached in-process for an hour and in the persistent store for a day;
// inconclusive probes are returned but never cached.
type Detector struct {
	memory *expirable.LRU[string, Info]
	store  Store
	opts   Options
	now    func() time.Time
}

// NewDetector creates a Detector backed by the given store. The store
// may be nil, in which case only the in-process cache is used.
func NewDetector(store Store, opts Options) *Detector {
	return &Detector{
		memory: expirable.NewLRU[string, Info](64, nil, memoryCacheTTL),
		store:  store,
		opts:   opts,
		now:    time.Now,
	}
}

// Detect classifies the deployment at baseURL for the given product
// ("jira" or "confluence"). The auth is only used when the anonymous
// probe is denied; it may be nil.
func (d *Detector) Detect(ctx context.Context, product, baseURL string, auth Authenticator) (Info, error) {
	baseURL = NormalizeBaseURL(baseURL)
	if baseURL == "" {
		return Info{}, errors.New("base URL required for deployment detection")
	}

	if IsCloudHost(baseURL) {
		return Info{
			Product:    product,
			BaseURL:    baseURL,
			Deployment: DeploymentCloud,
			DetectedAt: d.now(),
		}, nil
	}

	if info, ok := d.memory.Get(baseURL); ok {
		info.Product = product
		return info, nil
	}

	if d.store != nil {
		info, err := d.store.Deployment(ctx, baseURL)
		if err != nil {
			logger.Debugw("deployment cache read failed", "base_url", baseURL, "error", err)
		} else if info != nil {
			d.memory.Add(baseURL, *info)
			info.Product = product
			return *info, nil
		}
	}

	info, conclusive := d.probe(ctx, product, baseURL, auth)
	if conclusive {
		d.memory.Add(baseURL, info)
		if d.store != nil {
			if err := d.store.SaveDeployment(ctx, &info); err != nil {
				logger.Debugw("deployment cache write failed", "base_url", baseURL, "error", err)
			}
		}
	}
	return info, nil
}

// probe fetches the product's well-known info endpoint, first
// anonymously and then with credentials if the anonymous request is
// denied. An unreachable or unrecognizable endpoint classifies as
// Server, reported as inconclusive so it is not cached.
func (d *Detector) probe(ctx context.Context, product, baseURL string, auth Authenticator) (Info, bool) {
	fallback := Info{
		Product:    product,
		BaseURL:    baseURL,
		Deployment: DeploymentServer,
		DetectedAt: d.now(),
	}

	probeBase, probePath := probeEndpoint(product, baseURL)

	for _, attempt := range []Authenticator{nil, auth} {
		client := NewClient(probeBase, attempt, d.opts)
		resp, err := client.Do(ctx, http.MethodGet, probePath, nil, nil)
		if err != nil {
			logger.Debugw("deployment probe failed", "base_url", baseURL, "error", err)
			return fallback, false
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			if attempt == nil && auth != nil {
				continue
			}
			return fallback, false
		}

		if resp.StatusCode != http.StatusOK {
			return fallback, false
		}

		var payload struct {
			DeploymentType string `json:"deploymentType"`
			Version        string `json:"version"`
			CloudID        string `json:"cloudId"`
		}
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			logger.Debugw("deployment probe returned non-JSON", "base_url", baseURL)
			return fallback, false
		}

		info := Info{
			Product:    product,
			BaseURL:    baseURL,
			Deployment: DeploymentServer,
			Version:    payload.Version,
			DetectedAt: d.now(),
		}
		if payload.DeploymentType == "Cloud" || payload.CloudID != "" {
			info.Deployment = DeploymentCloud
		}
		return info, true
	}

	return fallback, false
}

// probeEndpoint returns the base URL and path of the info endpoint
// for a product. Jira exposes serverInfo. A Confluence wiki mounted
// under /wiki shares its site with Jira, so the site root serverInfo
// answers for it; standalone Confluence exposes systemInfo.
func probeEndpoint(product, baseURL string) (string, string) {
	if product == "confluence" {
		if root, ok := strings.CutSuffix(baseURL, "/wiki"); ok {
			return root, "/rest/api/2/serverInfo"
		}
		return baseURL, "/rest/api/settings/systemInfo"
	}
	return baseURL, "/rest/api/2/serverInfo"
}

// NormalizeBaseURL lower-cases the scheme and host, trims any trailing
// slash, and defaults to https when no scheme is given. The result is
// the deployment cache key.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// IsCloudHost reports whether the URL points at an Atlassian-hosted
// site (*.atlassian.net).
func IsCloudHost(baseURL string) bool {
	u, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), ".atlassian.net")
}
