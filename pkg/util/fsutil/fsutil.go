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

// Package fsutil provides scoped file reads and write-then-rename file
// replacement for the local files idp-bootstrap maintains.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// IOError reports a local file read or write failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ReadFile reads the named file. A missing file is reported with ok=false
// and no error.
func ReadFile(path string) (data []byte, ok bool, err error) {
	path = filepath.Clean(path)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return nil, false, &IOError{Op: "stat", Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, false, &IOError{Op: "read", Path: path, Err: fmt.Errorf("is a directory")}
	}

	data, err = io.ReadAll(f)
	if err != nil {
		return nil, false, &IOError{Op: "read", Path: path, Err: err}
	}
	return data, true, nil
}

// WriteFileAtomic replaces path with contents. The data is written to a
// temporary file in the same directory which is renamed over path only once
// it is complete, so a failure leaves the original file untouched. Missing
// parent directories are created with dirMode. An existing file keeps its
// permission bits; a new file gets mode.
func WriteFileAtomic(path string, contents []byte, mode, dirMode os.FileMode) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return &IOError{Op: "write", Path: path, Err: fmt.Errorf("is a directory")}
		}
		mode = info.Mode() & os.ModePerm
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return &IOError{Op: "chmod", Path: tmp.Name(), Err: err}
	}
	if _, err := tmp.Write(contents); err != nil {
		_ = tmp.Close()
		return &IOError{Op: "write", Path: tmp.Name(), Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &IOError{Op: "sync", Path: tmp.Name(), Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "close", Path: tmp.Name(), Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
