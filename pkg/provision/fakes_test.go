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
	"testing"

	"github.com/faroshq/idp-bootstrap/pkg/appconfig"
	"github.com/faroshq/idp-bootstrap/pkg/credentials"
	"github.com/faroshq/idp-bootstrap/pkg/idp"
)

type fakeOrgCreator struct {
	calls  int
	result idp.OrganizationResult
	err    error
}

func (f *fakeOrgCreator) CreateOrganization(_ context.Context, _ idp.OrganizationRequest) (idp.OrganizationResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeAppCreator struct {
	calls int
	creds idp.ApplicationCredentials
	err   error
}

func (f *fakeAppCreator) CreateOrReuseApplication(_ context.Context, _ idp.ApplicationRequest) (idp.ApplicationCredentials, error) {
	f.calls++
	return f.creds, f.err
}

type fakeAttacher struct {
	calls int
	err   error
}

func (f *fakeAttacher) AttachClaim(_ context.Context, _ idp.ClaimSpec) error {
	f.calls++
	return f.err
}

// countingStore records saves on top of a real credentials file.
type countingStore struct {
	*credentials.Store
	saves int
}

func (s *countingStore) Save(creds credentials.Credentials) error {
	s.saves++
	return s.Store.Save(creds)
}

func validOrgRequest() idp.OrganizationRequest {
	return idp.OrganizationRequest{
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        "jane@example.com",
		Organization: "Acme",
	}
}

func fixedRequest(req idp.OrganizationRequest) RequestFunc {
	return func(context.Context) (idp.OrganizationRequest, error) { return req, nil }
}

func webApp() idp.ApplicationRequest {
	return idp.ApplicationRequest{
		Name:         "demo",
		Type:         idp.AppTypeWeb,
		RedirectURIs: []string{"http://localhost:8080/login/oauth2/code/okta"},
	}
}

func mustParse(t *testing.T, name, content string) appconfig.Source {
	t.Helper()
	src, err := appconfig.Parse(name, []byte(content))
	if err != nil {
		t.Fatalf("parsing %s: %v", name, err)
	}
	return src
}

func mustEncode(t *testing.T, src appconfig.Source) string {
	t.Helper()
	out, err := src.Encode()
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}
	return string(out)
}
