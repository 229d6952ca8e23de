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

// Package prompt resolves required input values from flags or, when a
// terminal is attached, by asking the user.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"k8s.io/cli-runtime/pkg/genericclioptions"
)

// DefaultMaxAttempts bounds how often an interactive prompt is repeated.
const DefaultMaxAttempts = 3

// Field is one required input value.
type Field struct {
	// Label is shown when prompting, e.g. "First name".
	Label string
	// Flag is the command line flag that sets the value.
	Flag string
	// Value is the value given on the command line, if any.
	Value string
}

// MissingValueError is returned when no non-empty value could be obtained.
type MissingValueError struct {
	Field    Field
	Attempts int
}

func (e *MissingValueError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("%s is required: set --%s", strings.ToLower(e.Field.Label), e.Field.Flag)
	}
	return fmt.Sprintf("%s is required: no value entered after %d attempts (or set --%s)", strings.ToLower(e.Field.Label), e.Attempts, e.Field.Flag)
}

// Source yields candidate values. ok is false once the source is exhausted.
type Source interface {
	Next() (value string, ok bool, err error)
}

// Fixed yields its value once.
type Fixed struct {
	Value string
	done  bool
}

// Next implements Source.
func (f *Fixed) Next() (string, bool, error) {
	if f.done {
		return "", false, nil
	}
	f.done = true
	return f.Value, true, nil
}

// Interactive asks for a value on every call.
type Interactive struct {
	Label  string
	Reader *bufio.Reader
	Out    io.Writer
}

// Next implements Source.
func (p *Interactive) Next() (string, bool, error) {
	if _, err := fmt.Fprintf(p.Out, "%s: ", p.Label); err != nil {
		return "", false, err
	}
	line, err := p.Reader.ReadString('\n')
	if errors.Is(err, io.EOF) {
		if line == "" {
			return "", false, nil
		}
		return line, true, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", strings.ToLower(p.Label), err)
	}
	return line, true, nil
}

// Resolver turns Fields into values. A value given on the command line is
// used as is; otherwise the user is asked when Interactive is set.
type Resolver struct {
	Streams     genericclioptions.IOStreams
	Interactive bool
	MaxAttempts int

	reader *bufio.Reader
}

// NewResolver returns a Resolver that prompts when in is a terminal.
func NewResolver(streams genericclioptions.IOStreams) *Resolver {
	return &Resolver{
		Streams:     streams,
		Interactive: IsTerminal(streams.In),
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Resolve returns the first non-empty value produced for f.
func (r *Resolver) Resolve(f Field) (string, error) {
	src, limit := r.source(f)
	attempts := 0
	for ; attempts < limit; attempts++ {
		v, ok, err := src.Next()
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
	}
	if _, interactive := src.(*Interactive); !interactive {
		attempts = 0
	}
	return "", &MissingValueError{Field: f, Attempts: attempts}
}

func (r *Resolver) source(f Field) (Source, int) {
	if strings.TrimSpace(f.Value) != "" || !r.Interactive || r.Streams.In == nil {
		return &Fixed{Value: f.Value}, 1
	}
	if r.reader == nil {
		r.reader = bufio.NewReader(r.Streams.In)
	}
	limit := r.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}
	return &Interactive{Label: f.Label, Reader: r.reader, Out: r.Streams.Out}, limit
}

// IsTerminal reports whether in is an interactive terminal.
func IsTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
