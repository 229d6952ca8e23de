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

// Package http provides the HTTP client used for calls to the identity provider.
package http

import (
	"net/http"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"k8s.io/klog/v2"

	"github.com/faroshq/idp-bootstrap/pkg/version"
)

// NewClient returns a pooled client that does not share state with
// http.DefaultClient and that identifies itself with the tool's User-Agent.
func NewClient() *http.Client {
	cli := cleanhttp.DefaultPooledClient()
	cli.Transport = &userAgentRoundTripper{
		userAgent: version.UserAgent(),
		inner:     cli.Transport,
	}
	return cli
}

type userAgentRoundTripper struct {
	inner     http.RoundTripper
	userAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if _, ok := req.Header["User-Agent"]; !ok {
		// RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", rt.userAgent)
	}
	klog.FromContext(req.Context()).V(6).Info("HTTP request", "method", req.Method, "url", redact(req))
	return rt.inner.RoundTrip(req)
}

// redact drops the query string and user info from the logged URL.
func redact(req *http.Request) string {
	u := *req.URL
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
