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

// Package idp is a client for the identity provider's organization
// registration endpoint and its organization management API.
package idp

import "fmt"

// OrganizationRequest is the input for creating a new organization.
type OrganizationRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Organization string `json:"organization"`
}

// OrganizationResult is returned by a successful organization creation.
type OrganizationResult struct {
	OrgURL   string `json:"orgUrl"`
	APIToken string `json:"apiToken"`
}

// AppType selects the OAuth flows an application is registered with.
type AppType string

const (
	AppTypeWeb     AppType = "web"
	AppTypeBrowser AppType = "browser"
	AppTypeNative  AppType = "native"
	AppTypeService AppType = "service"
)

// AppTypes lists the supported application types.
var AppTypes = []AppType{AppTypeWeb, AppTypeBrowser, AppTypeNative, AppTypeService}

// ParseAppType validates s as an AppType.
func ParseAppType(s string) (AppType, error) {
	for _, t := range AppTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unsupported application type %q, must be one of %v", s, AppTypes)
}

// ApplicationRequest describes the OIDC application to create or reuse.
type ApplicationRequest struct {
	Name         string
	Type         AppType
	RedirectURIs []string
}

// ApplicationCredentials are the client credentials of an application.
// ClientSecret is empty for public clients. Reused is set when an existing
// application with the requested name was found.
type ApplicationCredentials struct {
	ClientID     string
	ClientSecret string
	Reused       bool
}

// ClaimSpec describes a custom claim on an authorization server.
type ClaimSpec struct {
	Name                  string
	ValueExpression       string
	AuthorizationServerID string
}

// DefaultAuthorizationServerID is used when a ClaimSpec leaves it empty.
const DefaultAuthorizationServerID = "default"

// ServerID returns the authorization server id, falling back to the default.
func (c ClaimSpec) ServerID() string {
	if c.AuthorizationServerID == "" {
		return DefaultAuthorizationServerID
	}
	return c.AuthorizationServerID
}
