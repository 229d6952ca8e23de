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

package provision

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/faroshq/idp-bootstrap/pkg/appconfig"
	"github.com/faroshq/idp-bootstrap/pkg/idp"
)

// DefaultPropertyPrefix namespaces the keys written to the application config.
const DefaultPropertyPrefix = "okta.oauth2"

// Keys are the application config keys holding the client settings.
type Keys struct {
	Issuer       string
	ClientID     string
	ClientSecret string
}

// KeysFor returns the provisioning keys under prefix.
func KeysFor(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultPropertyPrefix
	}
	prefix = strings.TrimSuffix(prefix, ".")
	return Keys{
		Issuer:       prefix + ".issuer",
		ClientID:     prefix + ".client-id",
		ClientSecret: prefix + ".client-secret",
	}
}

// ApplicationCreator creates or finds OIDC applications.
type ApplicationCreator interface {
	CreateOrReuseApplication(ctx context.Context, req idp.ApplicationRequest) (idp.ApplicationCredentials, error)
}

// AppResult describes the outcome of AppProvisioner.Ensure.
type AppResult struct {
	ClientID string
	// Created is false when the config already held a client id or an
	// application with the same name existed remotely.
	Created bool
	// Changed reports whether the config source was modified.
	Changed bool
}

// AppProvisioner makes sure the application config names an OIDC client.
type AppProvisioner struct {
	Creator ApplicationCreator
	Prefix  string
}

// Ensure reuses the client id found in src or provisions an application and
// merges its credentials into src. src is only modified after the remote
// call succeeded, and the remote call is only made when src can take the
// credentials.
func (p *AppProvisioner) Ensure(ctx context.Context, src appconfig.Source, req idp.ApplicationRequest, issuer string) (AppResult, error) {
	keys := KeysFor(p.Prefix)
	if id, ok := src.Get(keys.ClientID); ok && strings.TrimSpace(id) != "" {
		return AppResult{ClientID: id}, nil
	}

	if err := ValidateApplicationRequest(req); err != nil {
		return AppResult{}, err
	}
	if err := src.CanMerge([]string{keys.Issuer, keys.ClientID, keys.ClientSecret}); err != nil {
		return AppResult{}, fmt.Errorf("application config cannot hold client credentials: %w", err)
	}

	creds, err := p.Creator.CreateOrReuseApplication(ctx, req)
	if err != nil {
		return AppResult{}, &AppProvisioningError{Name: req.Name, Err: err}
	}
	if creds.ClientID == "" {
		return AppResult{}, &AppProvisioningError{Name: req.Name, Err: fmt.Errorf("no client id returned")}
	}

	entries := map[string]string{
		keys.Issuer:   issuer,
		keys.ClientID: creds.ClientID,
	}
	if creds.ClientSecret != "" {
		entries[keys.ClientSecret] = creds.ClientSecret
	}
	changed, err := src.Merge(entries)
	if err != nil {
		return AppResult{}, fmt.Errorf("recording client credentials: %w", err)
	}
	return AppResult{ClientID: creds.ClientID, Created: !creds.Reused, Changed: changed}, nil
}

// ValidateApplicationRequest checks the name, type and redirect URIs.
func ValidateApplicationRequest(req idp.ApplicationRequest) error {
	var errs fieldErrors
	errs.required("name", req.Name)
	if _, err := idp.ParseAppType(string(req.Type)); err != nil {
		errs.add("type", err)
	}
	for _, raw := range req.RedirectURIs {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" {
			errs.add("redirectUris", fmt.Errorf("redirect URI %q must be an absolute URI", raw))
		}
	}
	if req.Type != idp.AppTypeService && len(req.RedirectURIs) == 0 {
		errs.add("redirectUris", fmt.Errorf("at least one redirect URI is required for %s applications", req.Type))
	}
	return errs.toError()
}
