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

package prompt

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"k8s.io/cli-runtime/pkg/genericclioptions"
)

var emailField = Field{Label: "Email address", Flag: "email"}

func newResolver(input string, interactive bool) (*Resolver, *bytes.Buffer) {
	out := &bytes.Buffer{}
	r := &Resolver{
		Streams:     genericclioptions.IOStreams{In: strings.NewReader(input), Out: out, ErrOut: &bytes.Buffer{}},
		Interactive: interactive,
		MaxAttempts: DefaultMaxAttempts,
	}
	return r, out
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		interactive  bool
		value        string
		want         string
		wantAttempts int
		wantErr      bool
		wantPrompts  int
	}{
		{name: "flag value wins", input: "typed@example.com\n", interactive: true, value: "flag@example.com", want: "flag@example.com"},
		{name: "flag value is trimmed", value: "  flag@example.com ", want: "flag@example.com"},
		{name: "non-interactive without value", wantErr: true},
		{name: "prompted", input: "jane@example.com\n", interactive: true, want: "jane@example.com", wantPrompts: 1},
		{name: "re-asks on empty input", input: "\n  \njane@example.com\n", interactive: true, want: "jane@example.com", wantPrompts: 3},
		{name: "gives up after max attempts", input: "\n\n\n\njane@example.com\n", interactive: true, wantErr: true, wantAttempts: 3, wantPrompts: 3},
		{name: "last line without newline", input: "jane@example.com", interactive: true, want: "jane@example.com", wantPrompts: 1},
		{name: "end of input", input: "", interactive: true, wantErr: true, wantPrompts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, out := newResolver(tt.input, tt.interactive)
			f := emailField
			f.Value = tt.value

			got, err := r.Resolve(f)
			if tt.wantErr {
				var missing *MissingValueError
				if !errors.As(err, &missing) {
					t.Fatalf("expected *MissingValueError, got: %v", err)
				}
				if missing.Attempts != tt.wantAttempts {
					t.Errorf("attempts = %d, want %d", missing.Attempts, tt.wantAttempts)
				}
				if !strings.Contains(err.Error(), "--email") {
					t.Errorf("expected the error to name the flag: %v", err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Errorf("Resolve() = %q, want %q", got, tt.want)
				}
			}
			if prompts := strings.Count(out.String(), "Email address: "); prompts != tt.wantPrompts {
				t.Errorf("prompted %d times, want %d", prompts, tt.wantPrompts)
			}
		})
	}
}

func TestResolve_SharesInputAcrossFields(t *testing.T) {
	r, _ := newResolver("Jane\nDoe\n", true)

	first, err := r.Resolve(Field{Label: "First name", Flag: "first-name"})
	if err != nil {
		t.Fatal(err)
	}
	last, err := r.Resolve(Field{Label: "Last name", Flag: "last-name"})
	if err != nil {
		t.Fatal(err)
	}
	if first != "Jane" || last != "Doe" {
		t.Errorf("got %q %q", first, last)
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(strings.NewReader("")) {
		t.Errorf("a string reader is not a terminal")
	}
}
