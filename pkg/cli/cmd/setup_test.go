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

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"k8s.io/cli-runtime/pkg/genericclioptions"

	"github.com/faroshq/idp-bootstrap/pkg/credentials"
	"github.com/faroshq/idp-bootstrap/pkg/idp/idptest"
)

// clearEnv unsets variables that would otherwise leak into the command.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvAPIBaseURL, credentials.EnvOrgURL, credentials.EnvToken} {
		if v, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { _ = os.Setenv(key, v) })
		} else {
			t.Cleanup(func() { _ = os.Unsetenv(key) })
		}
		if err := os.Unsetenv(key); err != nil {
			t.Fatal(err)
		}
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := newRootCommand(genericclioptions.IOStreams{In: &bytes.Buffer{}, Out: out, ErrOut: errOut})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestSetup_EndToEnd(t *testing.T) {
	clearEnv(t)
	srv := idptest.NewServer()
	defer srv.Close()

	project := filepath.Join(t.TempDir(), "demo-app")
	resources := filepath.Join(project, "src", "main", "resources")
	if err := os.MkdirAll(resources, 0o755); err != nil {
		t.Fatal(err)
	}
	propsPath := filepath.Join(resources, "application.properties")
	if err := os.WriteFile(propsPath, []byte("# app\nserver.port=8080\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// The registration endpoint comes from the project's .env file.
	if err := os.WriteFile(filepath.Join(project, ".env"), []byte(EnvAPIBaseURL+"="+srv.URL+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	credsPath := filepath.Join(t.TempDir(), ".okta", "okta.yaml")

	args := []string{
		"setup",
		"--non-interactive",
		"--project-dir", project,
		"--credentials-file", credsPath,
		"--first-name", "Jane",
		"--last-name", "Doe",
		"--email", "jane@example.com",
		"--organization", "Acme",
		"--verify-issuer",
	}

	out, errOut, err := execute(t, args...)
	if err != nil {
		t.Fatalf("first run failed: %v\nstderr: %s", err, errOut)
	}
	for _, want := range []string{
		"Created organization " + srv.URL,
		"Saved credentials to " + credsPath,
		`Created OIDC application "demo-app"`,
		"Updated " + propsPath,
		`Added claim "groups" to authorization server "default"`,
		"Issuer: " + srv.URL + "/oauth2/default",
		"token endpoint:",
		"Try logging in: ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	props, err := os.ReadFile(propsPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(props), "# app\nserver.port=8080\n") {
		t.Errorf("expected existing lines to be kept in place:\n%s", props)
	}
	for _, want := range []string{"okta.oauth2.client-id=", "okta.oauth2.client-secret=", "okta.oauth2.issuer="} {
		if !strings.Contains(string(props), want) {
			t.Errorf("expected %q in %s:\n%s", want, propsPath, props)
		}
	}

	out, errOut, err = execute(t, args...)
	if err != nil {
		t.Fatalf("second run failed: %v\nstderr: %s", err, errOut)
	}
	for _, want := range []string{
		"Using organization " + srv.URL,
		"Using OIDC application client id:",
		propsPath + " is up to date",
		`Claim "groups" already exists`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if calls := srv.Calls(); calls.OrgCreates != 1 || calls.AppCreates != 1 || calls.ClaimAttaches != 2 {
		t.Errorf("unexpected calls: %+v", calls)
	}
}

func TestSetup_EmptyAuthorizationServerFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	srv := idptest.NewServer()
	defer srv.Close()

	project := t.TempDir()
	out, errOut, err := execute(t,
		"setup",
		"--non-interactive",
		"--project-dir", project,
		"--api-base-url", srv.URL,
		"--credentials-file", filepath.Join(t.TempDir(), "okta.yaml"),
		"--first-name", "Jane",
		"--last-name", "Doe",
		"--email", "jane@example.com",
		"--organization", "Acme",
		"--authorization-server-id=",
	)
	if err != nil {
		t.Fatalf("setup failed: %v\nstderr: %s", err, errOut)
	}
	for _, want := range []string{
		`Added claim "groups" to authorization server "default"`,
		"Issuer: " + srv.URL + "/oauth2/default",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if !srv.HasClaim("default", "groups") {
		t.Error("expected the claim on the default authorization server")
	}
}

func TestSetup_NonInteractiveMissingValue(t *testing.T) {
	clearEnv(t)
	srv := idptest.NewServer()
	defer srv.Close()

	project := t.TempDir()
	_, _, err := execute(t,
		"setup",
		"--non-interactive",
		"--project-dir", project,
		"--api-base-url", srv.URL,
		"--credentials-file", filepath.Join(t.TempDir(), "okta.yaml"),
		"--first-name", "Jane",
		"--last-name", "Doe",
		"--organization", "Acme",
	)
	if err == nil || !strings.Contains(err.Error(), "--email") {
		t.Fatalf("expected an error naming --email, got: %v", err)
	}
	if calls := srv.Calls(); calls.OrgCreates != 0 {
		t.Errorf("expected no remote calls, got %+v", calls)
	}
}

func TestSetupOptions_Complete(t *testing.T) {
	clearEnv(t)
	project := filepath.Join(t.TempDir(), "my-service")
	resources := filepath.Join(project, "src", "main", "resources")
	if err := os.MkdirAll(resources, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(resources, "application.properties"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	o := NewSetupOptions(genericclioptions.NewTestIOStreamsDiscard())
	o.ProjectDir = project
	o.CredentialsFile = filepath.Join(project, "okta.yaml")
	if err := o.Complete(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q, want %q", o.APIBaseURL, DefaultAPIBaseURL)
	}
	if o.ConfigFile != filepath.Join(resources, "application.properties") {
		t.Errorf("ConfigFile = %q", o.ConfigFile)
	}
	if o.AppName != "my-service" {
		t.Errorf("AppName = %q, want my-service", o.AppName)
	}
	if err := o.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestSetupOptions_APIBaseURLPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIBaseURL, "https://env.example.com/")

	tests := []struct {
		name string
		flag string
		want string
	}{
		{name: "environment", want: "https://env.example.com/"},
		{name: "flag wins", flag: "https://flag.example.com/", want: "https://flag.example.com/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewSetupOptions(genericclioptions.NewTestIOStreamsDiscard())
			o.ProjectDir = t.TempDir()
			o.CredentialsFile = filepath.Join(o.ProjectDir, "okta.yaml")
			o.APIBaseURL = tt.flag
			if err := o.Complete(nil); err != nil {
				t.Fatal(err)
			}
			if o.APIBaseURL != tt.want {
				t.Errorf("APIBaseURL = %q, want %q", o.APIBaseURL, tt.want)
			}
		})
	}
}

func TestSetupOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SetupOptions)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*SetupOptions) {}},
		{name: "unknown app type", mutate: func(o *SetupOptions) { o.AppType = "spa" }, wantErr: true},
		{name: "empty prefix", mutate: func(o *SetupOptions) { o.PropertyPrefix = " " }, wantErr: true},
		{name: "web without redirect", mutate: func(o *SetupOptions) { o.RedirectURIs = nil }, wantErr: true},
		{name: "service drops redirects", mutate: func(o *SetupOptions) { o.AppType = "service" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewSetupOptions(genericclioptions.NewTestIOStreamsDiscard())
			o.AppName = "demo"
			tt.mutate(o)
			err := o.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "idp-bootstrap version ") {
		t.Errorf("unexpected output: %s", out)
	}
}
