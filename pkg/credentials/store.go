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

// Package credentials reads and writes the local file holding the
// organization URL and API token used to manage the identity provider.
package credentials

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/faroshq/idp-bootstrap/pkg/util/fsutil"
)

const (
	// EnvOrgURL overrides the organization URL from the credentials file.
	EnvOrgURL = "OKTA_CLIENT_ORGURL"
	// EnvToken overrides the API token from the credentials file.
	EnvToken = "OKTA_CLIENT_TOKEN"
)

// Credentials identify an organization on the identity provider. An empty
// BaseURL means no organization has been provisioned yet.
type Credentials struct {
	BaseURL  string
	APIToken string
}

// HasOrganization reports whether an organization URL is known.
func (c Credentials) HasOrganization() bool {
	return strings.TrimSpace(c.BaseURL) != ""
}

// file mirrors the on-disk layout: okta.client.orgUrl / okta.client.token.
type file struct {
	Okta struct {
		Client struct {
			OrgURL string `json:"orgUrl,omitempty"`
			Token  string `json:"token,omitempty"`
		} `json:"client"`
	} `json:"okta"`
}

// DefaultPath returns ~/.okta/okta.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".okta", "okta.yaml"), nil
}

// Store persists Credentials at Path.
type Store struct {
	Path string
}

// NewStore returns a Store for path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load reads the credentials file. A missing file yields empty Credentials.
func (s *Store) Load() (Credentials, error) {
	data, ok, err := fsutil.ReadFile(s.Path)
	if err != nil {
		return Credentials{}, err
	}
	if !ok || len(strings.TrimSpace(string(data))) == 0 {
		return Credentials{}, nil
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Credentials{}, fmt.Errorf("parsing credentials file %s: %w", s.Path, err)
	}
	creds := Credentials{
		BaseURL:  strings.TrimSpace(f.Okta.Client.OrgURL),
		APIToken: strings.TrimSpace(f.Okta.Client.Token),
	}
	if creds.HasOrganization() {
		if err := validateURL(creds.BaseURL); err != nil {
			return Credentials{}, fmt.Errorf("credentials file %s: %w", s.Path, err)
		}
	}
	return creds, nil
}

// Save writes creds to the credentials file, creating parent directories as
// needed. The file is only replaced once the new content is fully written.
func (s *Store) Save(creds Credentials) error {
	var f file
	f.Okta.Client.OrgURL = creds.BaseURL
	f.Okta.Client.Token = creds.APIToken

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	return fsutil.WriteFileAtomic(s.Path, data, 0o600, 0o700)
}

// WithEnv overlays the environment on creds. Each variable that is set wins
// over the value from the file.
func WithEnv(creds Credentials, lookup func(string) (string, bool)) Credentials {
	if v, ok := lookup(EnvOrgURL); ok && strings.TrimSpace(v) != "" {
		creds.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvToken); ok && strings.TrimSpace(v) != "" {
		creds.APIToken = strings.TrimSpace(v)
	}
	return creds
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid organization URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid organization URL %q: scheme and host are required", raw)
	}
	return nil
}
