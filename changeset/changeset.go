/*
Diffcheck - diff-aware static analysis for pull requests
Copyright (C) 2024  Standard CI Contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package changeset resolves the set of files a pull request changed
// relative to a base ref, filtered down to the paths a check cares
// about.
package changeset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/golang/glog"
	"golang.org/x/exp/slices"

	"github.com/standard-ci/diffcheck/basic"
)

// ResolutionError means the base ref could not be resolved or the
// working directory is not a git checkout. It aborts the run before any
// tool is invoked.
type ResolutionError struct {
	BaseRef string
	Detail  string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve changed files against %q: %s", e.BaseRef, e.Detail)
}

// Resolve computes the added/copied/modified/renamed paths between
// baseRef and the working tree. Deletion-only changes carry nothing to
// analyze and are excluded by the diff filter itself.
//
// extensions is the case-sensitive allow list (with leading dot, e.g.
// ".cpp"). excludeRules are literal repo-relative path prefixes;
// ignorePatterns are doublestar globs. An empty result is a normal
// outcome, not an error: the caller skips the check and exits 0.
func Resolve(cmder basic.Commander, workingDir, baseRef string, extensions []string, excludeRules, ignorePatterns []string) ([]string, error) {
	args := []string{"diff", "--name-status", "-z", "--diff-filter=ACMR", baseRef}
	out, code, err := cmder.CombinedOutput("git", args, workingDir)
	if err != nil {
		return nil, &ResolutionError{BaseRef: baseRef, Detail: err.Error()}
	}
	if code != 0 {
		return nil, &ResolutionError{BaseRef: baseRef, Detail: strings.TrimSpace(string(out))}
	}
	paths := parseNameStatus(string(out))
	result := []string{}
	for _, path := range paths {
		if !slices.Contains(extensions, filepath.Ext(path)) {
			continue
		}
		if excludedByPrefix(excludeRules, path) {
			continue
		}
		matched, err := matchIgnorePatterns(ignorePatterns, path)
		if err != nil {
			return nil, err
		}
		if matched {
			continue
		}
		if _, err := os.Stat(filepath.Join(workingDir, path)); err != nil {
			glog.Warningf("changed file vanished from working tree: %s", path)
			continue
		}
		result = append(result, path)
	}
	return result, nil
}

// parseNameStatus walks the NUL-separated `git diff --name-status -z`
// records. A rename or copy record carries two paths; only the new path
// exists in the working tree.
func parseNameStatus(out string) []string {
	fields := strings.Split(out, "\x00")
	paths := []string{}
	for i := 0; i < len(fields); i++ {
		status := fields[i]
		if status == "" {
			continue
		}
		switch status[0] {
		case 'R', 'C':
			if i+2 < len(fields) {
				paths = append(paths, fields[i+2])
			}
			i += 2
		default:
			if i+1 < len(fields) {
				paths = append(paths, fields[i+1])
			}
			i++
		}
	}
	return paths
}

func excludedByPrefix(excludeRules []string, path string) bool {
	for _, rule := range excludeRules {
		if strings.HasPrefix(path, rule) {
			glog.V(1).Infof("file %s excluded by rule %s", path, rule)
			return true
		}
	}
	return false
}

func matchIgnorePatterns(ignorePatterns []string, filePath string) (bool, error) {
	for _, pattern := range ignorePatterns {
		matched, err := doublestar.Match(pattern, filePath)
		if err != nil {
			return false, fmt.Errorf("malformed ignore pattern %s", pattern)
		}
		if matched {
			glog.Infof("Changed file %s ignored due to pattern %s", filePath, pattern)
			return true, nil
		}
	}
	return false, nil
}

