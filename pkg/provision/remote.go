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
	"net/http"

	"github.com/faroshq/idp-bootstrap/pkg/credentials"
	"github.com/faroshq/idp-bootstrap/pkg/idp"
)

// OrganizationAPI is the part of the identity provider scoped to one
// organization.
type OrganizationAPI interface {
	ApplicationCreator
	ClaimAttacher
}

// Clients builds the remote clients used during a run.
type Clients interface {
	Registration() (OrganizationCreator, error)
	Organization(creds credentials.Credentials) (OrganizationAPI, error)
}

// HTTPClients talks to the identity provider over HTTP.
type HTTPClients struct {
	APIBaseURL string
	HTTPClient *http.Client
}

var _ Clients = &HTTPClients{}

// Registration returns a client for the registration endpoint.
func (c *HTTPClients) Registration() (OrganizationCreator, error) {
	return idp.NewRegistrationClient(c.APIBaseURL, c.HTTPClient)
}

// Organization returns a client for the organization named by creds.
func (c *HTTPClients) Organization(creds credentials.Credentials) (OrganizationAPI, error) {
	return idp.NewOrgClient(creds.BaseURL, creds.APIToken, c.HTTPClient)
}
