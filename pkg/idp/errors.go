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

package idp

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the identity provider.
type APIError struct {
	StatusCode int
	Code       string
	Summary    string
	Causes     []string
	ID         string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "identity provider returned status %d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Summary != "" {
		fmt.Fprintf(&b, ": %s", e.Summary)
	}
	if len(e.Causes) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Causes, "; "))
	}
	if e.ID != "" {
		fmt.Fprintf(&b, " [error id %s]", e.ID)
	}
	return b.String()
}

type errorBody struct {
	ErrorCode    string `json:"errorCode"`
	ErrorSummary string `json:"errorSummary"`
	ErrorID      string `json:"errorId"`
	ErrorCauses  []struct {
		ErrorSummary string `json:"errorSummary"`
	} `json:"errorCauses"`
}

// newAPIError builds an APIError from a response body. Bodies that are not
// JSON are kept as the summary.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		apiErr.Summary = strings.TrimSpace(string(body))
		return apiErr
	}
	apiErr.Code = eb.ErrorCode
	apiErr.Summary = eb.ErrorSummary
	apiErr.ID = eb.ErrorID
	for _, c := range eb.ErrorCauses {
		if c.ErrorSummary != "" {
			apiErr.Causes = append(apiErr.Causes, c.ErrorSummary)
		}
	}
	return apiErr
}
