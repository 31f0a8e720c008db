package google

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dverbeek/agent-skills/internal/credential"
)

const (
	authEndpoint     = "https://accounts.google.com/o/oauth2/v2/auth"
	tokenEndpoint    = "https://oauth2.googleapis.com/token"
	userinfoEndpoint = "https://www.googleapis.com/oauth2/v1/userinfo?alt=json"

	// tokenKey is the keyring item holding the serialized OAuth token.
	tokenKey = "google-oauth-token"

	// expiryMargin refreshes tokens slightly before they actually
	// expire so in-flight requests never race the deadline.
	expiryMargin = 5 * time.Minute
)

var scopes = []string{
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/documents",
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://mail.google.com/",
}

// ErrNotLoggedIn indicates no usable Google token is stored.
var ErrNotLoggedIn = errors.New("not logged in to Google; run `skills google auth login`")

// Token holds the OAuth token details persisted between runs.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresIn    int       `json:"expires_in,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Email        string    `json:"email,omitempty"`
}

func (t *Token) valid(now time.Time) bool {
	return t.AccessToken != "" && now.Add(expiryMargin).Before(t.Expiry)
}

// TokenStore persists the OAuth token between runs.
type TokenStore interface {
	Load() (*Token, error)
	Save(*Token) error
	Delete() error
}

// KeyringStore keeps the token as a JSON blob in the system keyring.
type KeyringStore struct{}

func (KeyringStore) Load() (*Token, error) {
	raw, err := credential.Get(tokenKey)
	if err != nil {
		return nil, ErrNotLoggedIn
	}

	var token Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("failed to parse stored token: %w", err)
	}
	return &token, nil
}

func (KeyringStore) Save(token *Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return credential.Set(tokenKey, string(data))
}

func (KeyringStore) Delete() error {
	return credential.Delete(tokenKey)
}

// TokenManager runs the OAuth authorization-code flow with PKCE and
// keeps the persisted token fresh.
type TokenManager struct {
	clientID     string
	clientSecret string
	store        TokenStore
	httpClient   *http.Client

	tokenURL    string
	userinfoURL string

	mu    sync.Mutex
	token *Token
	now   func() time.Time
}

// NewTokenManager creates a manager using the given OAuth client. A
// nil store defaults to the system keyring.
func NewTokenManager(clientID, clientSecret string, store TokenStore) *TokenManager {
	if store == nil {
		store = KeyringStore{}
	}
	return &TokenManager{
		clientID:     clientID,
		clientSecret: clientSecret,
		store:        store,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		tokenURL:     tokenEndpoint,
		userinfoURL:  userinfoEndpoint,
		now:          time.Now,
	}
}

// Login runs the browser consent flow. prompt receives the
// authorization URL to show the user; Login blocks until the loopback
// callback delivers the code or ctx expires, then exchanges the code
// and persists the resulting token.
func (tm *TokenManager) Login(ctx context.Context, prompt func(authURL string)) (*Token, error) {
	if tm.clientID == "" || tm.clientSecret == "" {
		return nil, errors.New("google client_id and client_secret are not configured; run `skills setup`")
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}
	defer listener.Close()

	redirectURI := fmt.Sprintf("http://%s/callback", listener.Addr())

	verifier, challenge, err := pkcePair()
	if err != nil {
		return nil, err
	}
	state := uuid.NewString()

	if prompt != nil {
		prompt(tm.authURL(redirectURI, challenge, state))
	}

	code, err := waitForCallback(ctx, listener, state)
	if err != nil {
		return nil, err
	}

	token, err := tm.exchange(ctx, code, verifier, redirectURI)
	if err != nil {
		return nil, err
	}

	tm.mu.Lock()
	tm.token = token
	tm.mu.Unlock()

	if err := tm.store.Save(token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	return token, nil
}

// Token returns a valid access token, loading it from the store and
// refreshing it when it is about to expire.
func (tm *TokenManager) Token(ctx context.Context) (*Token, error) {
	tm.mu.Lock()
	token := tm.token
	tm.mu.Unlock()

	if token == nil {
		loaded, err := tm.store.Load()
		if err != nil {
			return nil, err
		}
		token = loaded
		tm.mu.Lock()
		tm.token = token
		tm.mu.Unlock()
	}

	if token.valid(tm.now()) {
		return token, nil
	}

	if token.RefreshToken == "" {
		return nil, ErrNotLoggedIn
	}

	refreshed, err := tm.refresh(ctx, token.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	// Google rotates refresh tokens only sometimes; keep the old one
	// when the response omits it.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	}
	if refreshed.Email == "" {
		refreshed.Email = token.Email
	}

	tm.mu.Lock()
	tm.token = refreshed
	tm.mu.Unlock()

	if err := tm.store.Save(refreshed); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	return refreshed, nil
}

// Load returns the stored token without refreshing it.
func (tm *TokenManager) Load() (*Token, error) {
	tm.mu.Lock()
	token := tm.token
	tm.mu.Unlock()

	if token != nil {
		return token, nil
	}
	return tm.store.Load()
}

// Logout discards the stored token.
func (tm *TokenManager) Logout() error {
	tm.mu.Lock()
	tm.token = nil
	tm.mu.Unlock()
	return tm.store.Delete()
}

func (tm *TokenManager) authURL(redirectURI, challenge, state string) string {
	q := url.Values{}
	q.Set("client_id", tm.clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", strings.Join(scopes, " "))
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "S256")
	q.Set("state", state)
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	return authEndpoint + "?" + q.Encode()
}

func (tm *TokenManager) exchange(ctx context.Context, code, verifier, redirectURI string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", tm.clientID)
	form.Set("client_secret", tm.clientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", redirectURI)
	form.Set("code_verifier", verifier)

	token, err := tm.postToken(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	if email, err := tm.fetchEmail(ctx, token.AccessToken); err == nil {
		token.Email = email
	}
	return token, nil
}

func (tm *TokenManager) refresh(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", tm.clientID)
	form.Set("client_secret", tm.clientSecret)
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")

	return tm.postToken(ctx, form)
}

func (tm *TokenManager) postToken(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tm.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, err
	}
	token.Expiry = tm.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return &token, nil
}

func (tm *TokenManager) fetchEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tm.userinfoURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var userinfo struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userinfo); err != nil {
		return "", err
	}
	return userinfo.Email, nil
}

// pkcePair generates a PKCE verifier and its S256 challenge.
func pkcePair() (verifier, challenge string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	verifier = base64.RawURLEncoding.EncodeToString(buf)

	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge, nil
}

// waitForCallback serves the loopback redirect endpoint until the
// authorization code arrives, the provider reports an error, or ctx
// expires. Requests with an unexpected state are rejected.
func waitForCallback(ctx context.Context, listener net.Listener, expectedState string) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if q.Get("state") != expectedState {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- errors.New("authorization state mismatch")
			return
		}
		if errStr := q.Get("error"); errStr != "" {
			http.Error(w, "authorization failed: "+errStr, http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization failed: %s", errStr)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- errors.New("callback missing authorization code")
			return
		}

		w.Write([]byte("Authentication complete. You can close this window and return to the terminal."))
		codeCh <- code
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer server.Close()

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
