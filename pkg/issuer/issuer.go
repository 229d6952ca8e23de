/*
Copyright 2026 The Faros Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package issuer checks that an OIDC issuer URL serves a discovery document.
package issuer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	oidc "github.com/coreos/go-oidc"
	"golang.org/x/oauth2"
)

// Endpoints are the OAuth 2.0 endpoints advertised by an issuer.
type Endpoints struct {
	Issuer string
	oauth2.Endpoint
}

// Verifier fetches OIDC discovery documents.
type Verifier struct {
	HTTPClient *http.Client
}

// Verify fetches the discovery document for issuerURL and returns its
// endpoints. The document's issuer must match issuerURL.
func (v *Verifier) Verify(ctx context.Context, issuerURL string) (Endpoints, error) {
	if v.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, v.HTTPClient)
	}
	provider, err := oidc.NewProvider(ctx, strings.TrimSuffix(issuerURL, "/"))
	if err != nil {
		return Endpoints{}, fmt.Errorf("creating OIDC provider: %w", err)
	}
	return Endpoints{Issuer: issuerURL, Endpoint: provider.Endpoint()}, nil
}

// Issuer builds the issuer URL of an authorization server in an organization.
func Issuer(orgURL, authorizationServerID string) string {
	return strings.TrimSuffix(orgURL, "/") + "/oauth2/" + authorizationServerID
}

// LoginURL returns an authorization request URL for trying out a new client.
func LoginURL(ep Endpoints, clientID, redirectURI string) string {
	cfg := &oauth2.Config{
		ClientID:    clientID,
		Endpoint:    ep.Endpoint,
		RedirectURL: redirectURI,
		Scopes:      []string{oidc.ScopeOpenID, "profile", "email"},
	}
	return cfg.AuthCodeURL("state")
}
