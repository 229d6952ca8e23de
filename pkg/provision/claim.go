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
	"errors"
	"net/http"

	"github.com/faroshq/idp-bootstrap/pkg/idp"
)

// ClaimStatus is the outcome of the claim stage.
type ClaimStatus string

const (
	ClaimInstalled      ClaimStatus = "installed"
	ClaimAlreadyPresent ClaimStatus = "already-present"
	ClaimFailed         ClaimStatus = "failed"
	ClaimSkipped        ClaimStatus = "skipped"
)

// claimNameConflict is the summary the identity provider reports when a
// claim with the same name exists on the authorization server.
const claimNameConflict = "Api validation failed: name"

// ClaimAttacher attaches custom claims to authorization servers.
type ClaimAttacher interface {
	AttachClaim(ctx context.Context, spec idp.ClaimSpec) error
}

// ClaimInstaller adds a claim, treating an existing claim of the same name
// as success.
type ClaimInstaller struct {
	Attacher ClaimAttacher
}

// Install attaches spec. Any failure other than the name conflict is
// returned as *ClaimInstallError.
func (i *ClaimInstaller) Install(ctx context.Context, spec idp.ClaimSpec) (ClaimStatus, error) {
	err := i.Attacher.AttachClaim(ctx, spec)
	switch {
	case err == nil:
		return ClaimInstalled, nil
	case isNameConflict(err):
		return ClaimAlreadyPresent, nil
	default:
		return ClaimFailed, &ClaimInstallError{Claim: spec.Name, Server: spec.ServerID(), Err: err}
	}
}

func isNameConflict(err error) bool {
	var apiErr *idp.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusBadRequest && apiErr.Summary == claimNameConflict
}
