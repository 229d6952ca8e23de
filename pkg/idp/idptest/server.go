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

// Package idptest provides an in-process fake of the identity provider for
// unit tests. One server plays both the registration endpoint and the
// organization it creates.
package idptest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

// Failure is a canned error response.
type Failure struct {
	Status  int
	Code    string
	Summary string
}

// Calls counts the requests served per operation.
type Calls struct {
	OrgCreates    int
	AppLookups    int
	AppReads      int
	AppCreates    int
	ClaimAttaches int
}

// App is an application known to the fake.
type App struct {
	ID           string
	Label        string
	ClientID     string
	ClientSecret string
	Type         string
	RedirectURIs []string
	AuthMethod   string
}

// Server is a fake identity provider.
type Server struct {
	*httptest.Server

	// Token is the API token issued on organization creation and required
	// on every management call.
	Token string

	mu     sync.Mutex
	calls  Calls
	apps   []*App
	claims map[string]map[string]bool

	// Failures injected per operation; nil means succeed.
	OrgFailure   *Failure
	AppFailure   *Failure
	ClaimFailure *Failure

	// HideSecretsInList omits client secrets from the list response, as the
	// real service does for some app types.
	HideSecretsInList bool
}

// NewServer starts a fake identity provider. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		Token:  "fake-api-token",
		claims: map[string]map[string]bool{},
	}

	router := mux.NewRouter()
	router.HandleFunc("/create", s.createOrg).Methods(http.MethodPost)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.requireToken)
	api.HandleFunc("/apps", s.listApps).Methods(http.MethodGet)
	api.HandleFunc("/apps", s.createApp).Methods(http.MethodPost)
	api.HandleFunc("/apps/{id}", s.getApp).Methods(http.MethodGet)
	api.HandleFunc("/authorizationServers/{server}/claims", s.createClaim).Methods(http.MethodPost)

	router.HandleFunc("/oauth2/{server}/.well-known/openid-configuration", s.discovery).Methods(http.MethodGet)

	s.Server = httptest.NewServer(router)
	return s
}

// Calls returns a snapshot of the call counters.
func (s *Server) Calls() Calls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// SeedApp registers an existing application.
func (s *Server) SeedApp(app App) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app.ID == "" {
		app.ID = fmt.Sprintf("app%d", len(s.apps)+1)
	}
	s.apps = append(s.apps, &app)
}

// Apps returns a copy of the known applications.
func (s *Server) Apps() []App {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]App, 0, len(s.apps))
	for _, a := range s.apps {
		out = append(out, *a)
	}
	return out
}

// SeedClaim registers an existing claim on an authorization server.
func (s *Server) SeedClaim(server, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addClaimLocked(server, name)
}

// HasClaim reports whether the named claim exists.
func (s *Server) HasClaim(server, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims[server][name]
}

func (s *Server) addClaimLocked(server, name string) {
	if s.claims[server] == nil {
		s.claims[server] = map[string]bool{}
	}
	s.claims[server][name] = true
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "SSWS "+s.Token {
			writeError(w, http.StatusUnauthorized, "E0000011", "Invalid token provided")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) createOrg(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls.OrgCreates++
	failure := s.OrgFailure
	s.mu.Unlock()

	if failure != nil {
		writeFailure(w, failure)
		return
	}

	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "E0000003", "The request body was not well-formed.")
		return
	}
	for _, field := range []string{"firstName", "lastName", "email", "organization"} {
		if strings.TrimSpace(req[field]) == "" {
			writeError(w, http.StatusBadRequest, "E0000001", "Api validation failed: "+field)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"orgUrl": s.URL, "apiToken": s.Token})
}

type oauthCreds struct {
	ClientID                string `json:"client_id,omitempty"`
	ClientSecret            string `json:"client_secret,omitempty"`
	TokenEndpointAuthMethod string `json:"token_endpoint_auth_method,omitempty"`
}

type appBody struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	SignOnMode  string `json:"signOnMode,omitempty"`
	Credentials struct {
		OAuthClient oauthCreds `json:"oauthClient"`
	} `json:"credentials"`
	Settings struct {
		OAuthClient struct {
			RedirectURIs    []string `json:"redirect_uris"`
			ApplicationType string   `json:"application_type"`
		} `json:"oauthClient"`
	} `json:"settings"`
}

func toBody(a *App, withSecret bool) appBody {
	var b appBody
	b.ID = a.ID
	b.Name = "oidc_client"
	b.Label = a.Label
	b.SignOnMode = "OPENID_CONNECT"
	b.Credentials.OAuthClient.ClientID = a.ClientID
	b.Credentials.OAuthClient.TokenEndpointAuthMethod = a.AuthMethod
	if withSecret {
		b.Credentials.OAuthClient.ClientSecret = a.ClientSecret
	}
	b.Settings.OAuthClient.RedirectURIs = a.RedirectURIs
	b.Settings.OAuthClient.ApplicationType = a.Type
	return b
}

func (s *Server) listApps(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.AppLookups++

	q := r.URL.Query().Get("q")
	out := []appBody{}
	for _, a := range s.apps {
		if q == "" || strings.HasPrefix(a.Label, q) {
			out = append(out, toBody(a, !s.HideSecretsInList))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getApp(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.AppReads++

	id := mux.Vars(r)["id"]
	for _, a := range s.apps {
		if a.ID == id {
			writeJSON(w, http.StatusOK, toBody(a, true))
			return
		}
	}
	writeError(w, http.StatusNotFound, "E0000007", "Not found: Resource not found: "+id+" (AppInstance)")
}

func (s *Server) createApp(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.AppCreates++

	if s.AppFailure != nil {
		writeFailure(w, s.AppFailure)
		return
	}

	var req appBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "E0000003", "The request body was not well-formed.")
		return
	}
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "E0000001", "Api validation failed: label")
		return
	}

	n := len(s.apps) + 1
	app := &App{
		ID:           fmt.Sprintf("app%d", n),
		Label:        req.Label,
		ClientID:     fmt.Sprintf("0oaclient%d", n),
		Type:         req.Settings.OAuthClient.ApplicationType,
		RedirectURIs: req.Settings.OAuthClient.RedirectURIs,
		AuthMethod:   req.Credentials.OAuthClient.TokenEndpointAuthMethod,
	}
	if app.AuthMethod != "none" {
		app.ClientSecret = fmt.Sprintf("secret%d", n)
	}
	s.apps = append(s.apps, app)
	writeJSON(w, http.StatusOK, toBody(app, true))
}

func (s *Server) createClaim(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.ClaimAttaches++

	if s.ClaimFailure != nil {
		writeFailure(w, s.ClaimFailure)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "E0000003", "The request body was not well-formed.")
		return
	}
	server := mux.Vars(r)["server"]
	if s.claims[server][req.Name] {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errorCode":    "E0000001",
			"errorSummary": "Api validation failed: name",
			"errorId":      "oaeFAKE",
			"errorCauses": []map[string]string{
				{"errorSummary": "name: A claim with the same name already exists."},
			},
		})
		return
	}
	s.addClaimLocked(server, req.Name)
	writeJSON(w, http.StatusCreated, map[string]any{"id": "ocl" + req.Name, "name": req.Name, "status": "ACTIVE"})
}

func (s *Server) discovery(w http.ResponseWriter, r *http.Request) {
	issuer := s.URL + "/oauth2/" + mux.Vars(r)["server"]
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                issuer,
		"authorization_endpoint":                issuer + "/v1/authorize",
		"token_endpoint":                        issuer + "/v1/token",
		"jwks_uri":                              issuer + "/v1/keys",
		"userinfo_endpoint":                     issuer + "/v1/userinfo",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func writeFailure(w http.ResponseWriter, f *Failure) {
	writeError(w, f.Status, f.Code, f.Summary)
}

func writeError(w http.ResponseWriter, status int, code, summary string) {
	writeJSON(w, status, map[string]any{
		"errorCode":    code,
		"errorSummary": summary,
		"errorId":      "oaeFAKE",
		"errorCauses":  []any{},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
