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

// Package version holds build information injected via ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Set via ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// UserAgent returns the User-Agent sent on outgoing HTTP requests.
func UserAgent() string {
	return fmt.Sprintf("idp-bootstrap/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
