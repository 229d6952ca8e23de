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

package issuer

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/faroshq/idp-bootstrap/pkg/idp/idptest"
)

func TestVerify(t *testing.T) {
	srv := idptest.NewServer()
	defer srv.Close()

	v := &Verifier{HTTPClient: srv.Client()}
	iss := Issuer(srv.URL+"/", "default")
	if iss != srv.URL+"/oauth2/default" {
		t.Fatalf("Issuer() = %q", iss)
	}

	ep, err := v.Verify(context.Background(), iss)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep.AuthURL != iss+"/v1/authorize" || ep.TokenURL != iss+"/v1/token" {
		t.Errorf("unexpected endpoints: %+v", ep.Endpoint)
	}
}

func TestVerify_Failure(t *testing.T) {
	srv := idptest.NewServer()
	defer srv.Close()

	v := &Verifier{HTTPClient: http.DefaultClient}
	if _, err := v.Verify(context.Background(), srv.URL+"/not-an-issuer"); err == nil {
		t.Fatal("expected an error for a missing discovery document")
	}
}

func TestLoginURL(t *testing.T) {
	ep := Endpoints{Issuer: "https://dev-1.okta.com/oauth2/default"}
	ep.AuthURL = "https://dev-1.okta.com/oauth2/default/v1/authorize"

	raw := LoginURL(ep, "0oa1", "http://localhost:8080/callback")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if !strings.HasPrefix(raw, ep.AuthURL+"?") {
		t.Errorf("unexpected URL %q", raw)
	}
	if q.Get("client_id") != "0oa1" || q.Get("redirect_uri") != "http://localhost:8080/callback" || q.Get("response_type") != "code" {
		t.Errorf("unexpected query: %v", q)
	}
	if !strings.Contains(q.Get("scope"), "openid") {
		t.Errorf("expected openid scope, got %q", q.Get("scope"))
	}
}
