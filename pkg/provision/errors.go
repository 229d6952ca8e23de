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
	"fmt"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// ValidationError reports missing or malformed provisioning input. It is
// returned before any remote call is made.
type ValidationError struct {
	// Fields names every invalid input field.
	Fields []string
	errs   utilerrors.Aggregate
}

func (e *ValidationError) Error() string {
	if e.errs == nil {
		return "invalid input: " + strings.Join(e.Fields, ", ")
	}
	return "invalid input: " + e.errs.Error()
}

func (e *ValidationError) Unwrap() []error {
	if e.errs == nil {
		return nil
	}
	return e.errs.Errors()
}

// fieldErrors accumulates per-field validation failures.
type fieldErrors struct {
	fields []string
	errs   []error
}

func (f *fieldErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		f.add(field, fmt.Errorf("%s is required", field))
	}
}

func (f *fieldErrors) add(field string, err error) {
	f.fields = append(f.fields, field)
	f.errs = append(f.errs, err)
}

func (f *fieldErrors) toError() error {
	if len(f.errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: f.fields, errs: utilerrors.NewAggregate(f.errs)}
}

// OrgProvisioningError wraps a failed organization creation.
type OrgProvisioningError struct {
	Err error
}

func (e *OrgProvisioningError) Error() string {
	return fmt.Sprintf("creating organization: %v", e.Err)
}

func (e *OrgProvisioningError) Unwrap() error { return e.Err }

// AppProvisioningError wraps a failed application creation or lookup.
type AppProvisioningError struct {
	Name string
	Err  error
}

func (e *AppProvisioningError) Error() string {
	return fmt.Sprintf("provisioning application %q: %v", e.Name, e.Err)
}

func (e *AppProvisioningError) Unwrap() error { return e.Err }

// ClaimInstallError wraps a failed claim attachment other than a claim that
// already exists.
type ClaimInstallError struct {
	Claim  string
	Server string
	Err    error
}

func (e *ClaimInstallError) Error() string {
	return fmt.Sprintf("adding claim %q to authorization server %q: %v", e.Claim, e.Server, e.Err)
}

func (e *ClaimInstallError) Unwrap() error { return e.Err }
