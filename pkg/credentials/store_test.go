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

package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/faroshq/idp-bootstrap/pkg/util/fsutil"
)

func TestStore_LoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), ".okta", "okta.yaml"))
	creds, err := s.Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if creds.HasOrganization() || creds.APIToken != "" {
		t.Errorf("expected empty credentials, got %+v", creds)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".okta", "okta.yaml")
	s := NewStore(path)

	want := Credentials{BaseURL: "https://dev-123.okta.com", APIToken: "00abc"}
	if err := s.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
	dirInfo, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if dirInfo.Mode().Perm() != 0o700 {
		t.Errorf("dir mode = %v, want 0700", dirInfo.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"okta:", "client:", "orgUrl: https://dev-123.okta.com", "token: 00abc"} {
		if !strings.Contains(string(data), s) {
			t.Errorf("expected %q in file:\n%s", s, data)
		}
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestStore_LoadHandWrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "okta.yaml")
	content := "# my org\nokta:\n  client:\n    orgUrl: https://dev-9.okta.com\n    token: tok\n  other: x\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.BaseURL != "https://dev-9.okta.com" || got.APIToken != "tok" {
		t.Errorf("unexpected credentials: %+v", got)
	}
}

func TestStore_LoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not yaml", content: "okta: [\n"},
		{name: "relative url", content: "okta:\n  client:\n    orgUrl: dev-1.okta.com\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "okta.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := NewStore(path).Load(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestStore_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	err := NewStore(filepath.Join(blocker, "okta.yaml")).Save(Credentials{BaseURL: "https://x.okta.com"})
	var ioErr *fsutil.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected *fsutil.IOError, got: %v", err)
	}
}

func TestWithEnv(t *testing.T) {
	base := Credentials{BaseURL: "https://file.okta.com", APIToken: "file-token"}
	env := map[string]string{EnvToken: "env-token", EnvOrgURL: "  "}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	got := WithEnv(base, lookup)
	want := Credentials{BaseURL: "https://file.okta.com", APIToken: "env-token"}
	if got != want {
		t.Errorf("WithEnv() = %+v, want %+v", got, want)
	}
}
