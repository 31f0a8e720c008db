package atlassian

import "net/http"

// Authenticator sets the Authorization header on an outgoing request.
// A nil Authenticator means anonymous access.
type Authenticator interface {
	Apply(req *http.Request)
}

// BasicAuth authenticates with username and password (or API token).
// This is the Cloud scheme: email as username, API token as password.
type BasicAuth struct {
	Username string
	Password string
}

// Apply sets Basic authentication on the request.
func (a BasicAuth) Apply(req *http.Request) {
	req.SetBasicAuth(a.Username, a.Password)
}

// BearerAuth authenticates with a personal access token, the
// Server/Data Center scheme.
type BearerAuth struct {
	Token string
}

// Apply sets Bearer authentication on the request.
func (a BearerAuth) Apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.Token)
}

// AuthFor selects the auth scheme for a deployment. Cloud sites take
// Basic auth with email and API token; Server and Data Center take a
// Bearer personal access token. An empty token means anonymous.
func AuthFor(deployment Deployment, email, token string) Authenticator {
	if token == "" {
		return nil
	}
	if deployment == DeploymentCloud && email != "" {
		return BasicAuth{Username: email, Password: token}
	}
	return BearerAuth{Token: token}
}
