// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package walk

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// defaultExcludes are applied before any .keelignore or caller-supplied
// exclude globs; these directories are always noise for a structural walk.
var defaultExcludes = []string{
	".git/**",
	"node_modules/**",
	"vendor/**",
	"__pycache__/**",
	".venv/**",
	"venv/**",
	"target/**",
	"dist/**",
	"build/**",
	".keel/**",
}

// languageByExt maps a file extension to the language name used throughout
// the graph; files with unrecognized extensions are skipped.
var languageByExt = map[string]string{
	".go":  "go",
	".py":  "python",
	".ts":  "typescript",
	".tsx": "typescript",
	".js":  "javascript",
	".jsx": "javascript",
	".rs":  "rust",
}

// LanguageForPath returns the language keel associates with path's
// extension, and whether the extension is recognized at all.
func LanguageForPath(path string) (string, bool) {
	lang, ok := languageByExt[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// File is one source file discovered under a project root.
type File struct {
	Path     string // relative to root, forward-slash separated
	FullPath string
	Size     int64
	Language string
}

// Result is the outcome of a walk: matched files plus a record of why
// anything else was skipped, so a caller can surface it without aborting.
type Result struct {
	Root        string
	Files       []File
	SkipReasons map[string]int
}

// Options configures a walk.
type Options struct {
	ExcludeGlobs []string // additional globs, gitignore syntax
	MaxFileSize  int64    // 0 means no limit
}

// Walk enumerates source files under root in sorted order.
func Walk(root string, opts Options) (*Result, error) {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	lines := append([]string{}, defaultExcludes...)
	if ignoreFile := filepath.Join(root, ".keelignore"); fileExists(ignoreFile) {
		if data, err := os.ReadFile(ignoreFile); err == nil {
			lines = append(lines, strings.Split(string(data), "\n")...)
		}
	}
	lines = append(lines, opts.ExcludeGlobs...)

	matcher, err := ignore.CompileIgnoreLines(lines...)
	if err != nil {
		return nil, err
	}

	res := &Result{Root: root, SkipReasons: make(map[string]int)}

	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			res.SkipReasons["walk_error"]++
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if info.IsDir() {
			if matcher.MatchesPath(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.MatchesPath(rel) {
			res.SkipReasons["ignored"]++
			return nil
		}
		lang, ok := languageByExt[strings.ToLower(filepath.Ext(path))]
		if !ok {
			res.SkipReasons["unsupported_language"]++
			return nil
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			res.SkipReasons["too_large"]++
			return nil
		}
		if isBinary(path) {
			res.SkipReasons["binary"]++
			return nil
		}
		res.Files = append(res.Files, File{
			Path:     rel,
			FullPath: path,
			Size:     info.Size(),
			Language: lang,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].Path < res.Files[j].Path })
	return res, nil
}

// isBinary sniffs the first 8KB of a file for a NUL byte, rejecting
// binary files before they ever reach a parser.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 8192)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false
	}
	return bytes.IndexByte(buf[:n], 0) != -1
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
