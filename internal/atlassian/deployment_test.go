package atlassian

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	info   *Info
	getErr error
	saved  []*Info
}

func (f *fakeStore) Deployment(ctx context.Context, baseURL string) (*Info, error) {
	return f.info, f.getErr
}

func (f *fakeStore) SaveDeployment(ctx context.Context, info *Info) error {
	f.saved = append(f.saved, info)
	return nil
}

func serverInfoHandler(deploymentType string, calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/rest/api/2/serverInfo" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"deploymentType":"` + deploymentType + `","version":"9.12.0"}`))
	}
}

func TestDetectCloudHostFastPath(t *testing.T) {
	detector := NewDetector(nil, Options{})

	info, err := detector.Detect(context.Background(), "jira", "https://company.atlassian.net", nil)
	require.NoError(t, err)
	assert.Equal(t, DeploymentCloud, info.Deployment)
	assert.True(t, info.IsCloud())
	assert.Equal(t, "jira", info.Product)
}

func TestDetectProbeClassifiesCloud(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(serverInfoHandler("Cloud", &calls))
	defer server.Close()

	store := &fakeStore{}
	detector := NewDetector(store, Options{})

	info, err := detector.Detect(context.Background(), "jira", server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, DeploymentCloud, info.Deployment)
	assert.Equal(t, "9.12.0", info.Version)
	assert.Equal(t, int32(1), calls.Load())

	// Conclusive results are written to the persistent store.
	require.Len(t, store.saved, 1)
	assert.Equal(t, DeploymentCloud, store.saved[0].Deployment)

	// Second call is served from the in-process cache.
	_, err = detector.Detect(context.Background(), "jira", server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDetectProbeClassifiesServer(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(serverInfoHandler("Server", &calls))
	defer server.Close()

	detector := NewDetector(nil, Options{})

	info, err := detector.Detect(context.Background(), "jira", server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, DeploymentServer, info.Deployment)
	assert.False(t, info.IsCloud())
}

func TestDetectStoreHitSkipsProbe(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(serverInfoHandler("Server", &calls))
	defer server.Close()

	base := NormalizeBaseURL(server.URL)
	store := &fakeStore{info: &Info{
		Product:    "jira",
		BaseURL:    base,
		Deployment: DeploymentCloud,
		DetectedAt: time.Now(),
	}}
	detector := NewDetector(store, Options{})

	info, err := detector.Detect(context.Background(), "confluence", server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, DeploymentCloud, info.Deployment)
	// The cache is keyed by base URL; the product follows the caller.
	assert.Equal(t, "confluence", info.Product)
	assert.Equal(t, int32(0), calls.Load())
}

func TestDetectAuthFallbackProbe(t *testing.T) {
	var anonymous, authed atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			anonymous.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		authed.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"deploymentType":"Cloud","version":"1001.0.0"}`))
	}))
	defer server.Close()

	detector := NewDetector(nil, Options{})

	info, err := detector.Detect(
		context.Background(), "jira", server.URL,
		BasicAuth{Username: "dev@company.com", Password: "tok"},
	)
	require.NoError(t, err)
	assert.Equal(t, DeploymentCloud, info.Deployment)
	assert.Equal(t, int32(1), anonymous.Load())
	assert.Equal(t, int32(1), authed.Load())
}

func TestDetectAmbiguousDefaultsToServerUncached(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		serverInfoHandler("Cloud", &atomic.Int32{})(w, r)
	}))
	defer server.Close()

	store := &fakeStore{}
	detector := NewDetector(store, Options{})

	info, err := detector.Detect(context.Background(), "jira", server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, DeploymentServer, info.Deployment)
	assert.Empty(t, store.saved)

	// The inconclusive answer was not cached, so a later call probes
	// again and sees the recovered endpoint.
	failing.Store(false)
	info, err = detector.Detect(context.Background(), "jira", server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, DeploymentCloud, info.Deployment)
	require.Len(t, store.saved, 1)
}

func TestDetectUnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	detector := NewDetector(nil, Options{})

	info, err := detector.Detect(context.Background(), "jira", server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, DeploymentServer, info.Deployment)
}

func TestDetectEmptyBaseURL(t *testing.T) {
	detector := NewDetector(nil, Options{})
	_, err := detector.Detect(context.Background(), "jira", "  ", nil)
	assert.Error(t, err)
}

func TestProbeEndpoint(t *testing.T) {
	tests := []struct {
		product  string
		baseURL  string
		wantBase string
		wantPath string
	}{
		{"jira", "https://jira.company.com", "https://jira.company.com", "/rest/api/2/serverInfo"},
		{"confluence", "https://company.example.com/wiki", "https://company.example.com", "/rest/api/2/serverInfo"},
		{"confluence", "https://wiki.company.com", "https://wiki.company.com", "/rest/api/settings/systemInfo"},
	}
	for _, tt := range tests {
		base, path := probeEndpoint(tt.product, tt.baseURL)
		assert.Equal(t, tt.wantBase, base, tt.baseURL)
		assert.Equal(t, tt.wantPath, path, tt.baseURL)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://Company.Atlassian.net/", "https://company.atlassian.net"},
		{"https://jira.company.com/jira/", "https://jira.company.com/jira"},
		{"jira.company.com", "https://jira.company.com"},
		{"https://jira.company.com/?x=1#frag", "https://jira.company.com"},
		{"  https://jira.company.com  ", "https://jira.company.com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeBaseURL(tt.in), tt.in)
	}
}

func TestIsCloudHost(t *testing.T) {
	assert.True(t, IsCloudHost("https://company.atlassian.net"))
	assert.True(t, IsCloudHost("https://company.atlassian.net/wiki"))
	assert.False(t, IsCloudHost("https://jira.company.com"))
	assert.False(t, IsCloudHost("https://atlassian.net.evil.com"))
}
