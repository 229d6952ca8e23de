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

// Package provision sequences organization, application and claim
// provisioning against the identity provider and records the results.
package provision

import (
	"context"
	"net/mail"
	"strings"

	"github.com/faroshq/idp-bootstrap/pkg/credentials"
	"github.com/faroshq/idp-bootstrap/pkg/idp"
)

// OrganizationCreator creates organizations on the identity provider.
type OrganizationCreator interface {
	CreateOrganization(ctx context.Context, req idp.OrganizationRequest) (idp.OrganizationResult, error)
}

// CredentialSaver persists credentials.
type CredentialSaver interface {
	Save(creds credentials.Credentials) error
}

// RequestFunc supplies the organization request. It is only called when an
// organization has to be created.
type RequestFunc func(ctx context.Context) (idp.OrganizationRequest, error)

// OrgProvisioner creates an organization unless the credentials already
// name one.
type OrgProvisioner struct {
	Creator OrganizationCreator
	Store   CredentialSaver
}

// Ensure returns credentials for a ready organization and whether it was
// created by this call. Newly issued credentials are saved before Ensure
// returns; a failed save is returned as is.
func (p *OrgProvisioner) Ensure(ctx context.Context, creds credentials.Credentials, request RequestFunc) (credentials.Credentials, bool, error) {
	if creds.HasOrganization() {
		return creds, false, nil
	}

	if request == nil {
		return creds, false, &ValidationError{Fields: []string{"organization"}}
	}
	req, err := request(ctx)
	if err != nil {
		return creds, false, err
	}
	if err := ValidateOrganizationRequest(req); err != nil {
		return creds, false, err
	}

	res, err := p.Creator.CreateOrganization(ctx, req)
	if err != nil {
		return creds, false, &OrgProvisioningError{Err: err}
	}

	created := credentials.Credentials{BaseURL: res.OrgURL, APIToken: res.APIToken}
	if err := p.Store.Save(created); err != nil {
		return created, true, err
	}
	return created, true, nil
}

// ValidateOrganizationRequest checks that every field is set and that the
// email address parses.
func ValidateOrganizationRequest(req idp.OrganizationRequest) error {
	var errs fieldErrors
	errs.required("firstName", req.FirstName)
	errs.required("lastName", req.LastName)
	errs.required("email", req.Email)
	errs.required("organization", req.Organization)
	if strings.TrimSpace(req.Email) != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			errs.add("email", err)
		}
	}
	return errs.toError()
}
