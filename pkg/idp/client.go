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

package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 1 << 20

const oidcAppName = "oidc_client"

// RegistrationClient creates new organizations. It does not authenticate.
type RegistrationClient struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewRegistrationClient returns a client for the registration endpoint at baseURL.
func NewRegistrationClient(baseURL string, httpClient *http.Client) (*RegistrationClient, error) {
	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registration base URL: %w", err)
	}
	return &RegistrationClient{baseURL: u, httpClient: httpClient}, nil
}

// CreateOrganization registers a new organization. Remote failures are
// returned as *APIError.
func (c *RegistrationClient) CreateOrganization(ctx context.Context, req OrganizationRequest) (OrganizationResult, error) {
	var result OrganizationResult
	if err := do(ctx, c.httpClient, http.MethodPost, resolve(c.baseURL, "create"), "", req, &result); err != nil {
		return OrganizationResult{}, err
	}
	if result.OrgURL == "" {
		return OrganizationResult{}, fmt.Errorf("registration response did not include an organization URL")
	}
	return result, nil
}

// OrgClient manages applications and authorization servers of one organization.
type OrgClient struct {
	orgURL     *url.URL
	token      string
	httpClient *http.Client
}

// NewOrgClient returns a client for the organization at orgURL using an API token.
func NewOrgClient(orgURL, token string, httpClient *http.Client) (*OrgClient, error) {
	u, err := parseBaseURL(orgURL)
	if err != nil {
		return nil, fmt.Errorf("invalid organization URL: %w", err)
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("an API token is required for organization %s", orgURL)
	}
	return &OrgClient{orgURL: u, token: token, httpClient: httpClient}, nil
}

type oauthClientCredentials struct {
	ClientID                string `json:"client_id,omitempty"`
	ClientSecret            string `json:"client_secret,omitempty"`
	TokenEndpointAuthMethod string `json:"token_endpoint_auth_method,omitempty"`
}

type oauthClientSettings struct {
	RedirectURIs    []string `json:"redirect_uris,omitempty"`
	ResponseTypes   []string `json:"response_types"`
	GrantTypes      []string `json:"grant_types"`
	ApplicationType string   `json:"application_type"`
}

type application struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	SignOnMode  string `json:"signOnMode,omitempty"`
	Credentials struct {
		OAuthClient oauthClientCredentials `json:"oauthClient"`
	} `json:"credentials"`
	Settings *struct {
		OAuthClient oauthClientSettings `json:"oauthClient"`
	} `json:"settings,omitempty"`
}

// CreateOrReuseApplication returns the credentials of the OIDC application
// labeled req.Name, creating it when no such application exists.
func (c *OrgClient) CreateOrReuseApplication(ctx context.Context, req ApplicationRequest) (ApplicationCredentials, error) {
	if req.Name == "" {
		return ApplicationCredentials{}, fmt.Errorf("application name is required")
	}

	existing, err := c.findApplication(ctx, req.Name)
	if err != nil {
		return ApplicationCredentials{}, fmt.Errorf("looking up application %q: %w", req.Name, err)
	}
	if existing != nil {
		creds := existing.Credentials.OAuthClient
		if creds.ClientSecret == "" && existing.ID != "" && !isPublic(req.Type) {
			var full application
			if err := do(ctx, c.httpClient, http.MethodGet, resolve(c.orgURL, "api/v1/apps", existing.ID), c.token, nil, &full); err != nil {
				return ApplicationCredentials{}, fmt.Errorf("reading application %q: %w", req.Name, err)
			}
			creds = full.Credentials.OAuthClient
		}
		return ApplicationCredentials{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret, Reused: true}, nil
	}

	app, err := newApplication(req)
	if err != nil {
		return ApplicationCredentials{}, err
	}
	var created application
	if err := do(ctx, c.httpClient, http.MethodPost, resolve(c.orgURL, "api/v1/apps"), c.token, app, &created); err != nil {
		return ApplicationCredentials{}, fmt.Errorf("creating application %q: %w", req.Name, err)
	}
	if created.Credentials.OAuthClient.ClientID == "" {
		return ApplicationCredentials{}, fmt.Errorf("created application %q has no client id", req.Name)
	}
	return ApplicationCredentials{
		ClientID:     created.Credentials.OAuthClient.ClientID,
		ClientSecret: created.Credentials.OAuthClient.ClientSecret,
	}, nil
}

func (c *OrgClient) findApplication(ctx context.Context, name string) (*application, error) {
	u := resolve(c.orgURL, "api/v1/apps")
	u.RawQuery = url.Values{"q": []string{name}}.Encode()

	var apps []application
	if err := do(ctx, c.httpClient, http.MethodGet, u, c.token, nil, &apps); err != nil {
		return nil, err
	}
	for i := range apps {
		if apps[i].Label == name && apps[i].Name == oidcAppName {
			return &apps[i], nil
		}
	}
	return nil, nil
}

func newApplication(req ApplicationRequest) (*application, error) {
	settings := oauthClientSettings{ApplicationType: string(req.Type)}
	authMethod := "client_secret_basic"

	switch req.Type {
	case AppTypeWeb:
		settings.ResponseTypes = []string{"code"}
		settings.GrantTypes = []string{"authorization_code", "refresh_token"}
	case AppTypeBrowser:
		settings.ResponseTypes = []string{"code"}
		settings.GrantTypes = []string{"authorization_code"}
		authMethod = "none"
	case AppTypeNative:
		settings.ResponseTypes = []string{"code"}
		settings.GrantTypes = []string{"authorization_code", "refresh_token"}
		authMethod = "none"
	case AppTypeService:
		settings.ResponseTypes = []string{"token"}
		settings.GrantTypes = []string{"client_credentials"}
	default:
		return nil, fmt.Errorf("unsupported application type %q", req.Type)
	}
	if req.Type != AppTypeService {
		settings.RedirectURIs = req.RedirectURIs
	}

	app := &application{
		Name:       oidcAppName,
		Label:      req.Name,
		SignOnMode: "OPENID_CONNECT",
	}
	app.Credentials.OAuthClient.TokenEndpointAuthMethod = authMethod
	app.Settings = &struct {
		OAuthClient oauthClientSettings `json:"oauthClient"`
	}{OAuthClient: settings}
	return app, nil
}

func isPublic(t AppType) bool {
	return t == AppTypeBrowser || t == AppTypeNative
}

type claim struct {
	Name                 string `json:"name"`
	Status               string `json:"status"`
	ClaimType            string `json:"claimType"`
	ValueType            string `json:"valueType"`
	Value                string `json:"value"`
	AlwaysIncludeInToken bool   `json:"alwaysIncludeInToken"`
	GroupFilterType      string `json:"group_filter_type"`
	Conditions           struct {
		Scopes []string `json:"scopes"`
	} `json:"conditions"`
}

// AttachClaim adds a groups claim to the authorization server named by spec.
// A claim that already exists is reported by the server as *APIError.
func (c *OrgClient) AttachClaim(ctx context.Context, spec ClaimSpec) error {
	body := claim{
		Name:                 spec.Name,
		Status:               "ACTIVE",
		ClaimType:            "RESOURCE",
		ValueType:            "GROUPS",
		Value:                spec.ValueExpression,
		AlwaysIncludeInToken: true,
		GroupFilterType:      "REGEX",
	}
	body.Conditions.Scopes = []string{}

	u := resolve(c.orgURL, "api/v1/authorizationServers", spec.ServerID(), "claims")
	return do(ctx, c.httpClient, http.MethodPost, u, c.token, body, nil)
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q must be an absolute URL", raw)
	}
	return u, nil
}

// resolve appends path segments to base.
func resolve(base *url.URL, segments ...string) *url.URL {
	u := *base
	u.Path = path.Join(append([]string{"/", base.Path}, segments...)...)
	u.RawPath = ""
	u.RawQuery = ""
	return &u
}

func do(ctx context.Context, client *http.Client, method string, u *url.URL, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "SSWS "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
