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

// Package suppression drops findings matched by a suppression file
// before the pass/fail verdict is computed.
package suppression

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/golang/glog"

	"github.com/standard-ci/diffcheck/basic"
	"github.com/standard-ci/diffcheck/checker"
)

type Scope int

const (
	Global Scope = iota
	PerFile
)

// Rule is one compiled suppression. Global rules match the finding
// message (which carries the check id for clang-tidy style output);
// per-file rules are literal path prefixes, written as "path:<prefix>"
// in the file.
type Rule struct {
	Scope      Scope
	Pattern    *regexp.Regexp
	PathPrefix string
}

const perFilePrefix = "path:"

// Load reads and compiles a suppression file. The file format is the
// shared line-oriented rule syntax; it is kept byte-compatible with the
// suppression files already checked into consuming repositories.
func Load(path string) ([]Rule, error) {
	lines, err := basic.LoadRuleFile(path)
	if err != nil {
		return nil, err
	}
	rules := []Rule{}
	for _, line := range lines {
		if strings.HasPrefix(line, perFilePrefix) {
			rules = append(rules, Rule{
				Scope:      PerFile,
				PathPrefix: strings.TrimSpace(strings.TrimPrefix(line, perFilePrefix)),
			})
			continue
		}
		re, err := regexp.Compile(line)
		if err != nil {
			return nil, fmt.Errorf("malformed suppression pattern %q: %v", line, err)
		}
		rules = append(rules, Rule{Scope: Global, Pattern: re})
	}
	return rules, nil
}

// Filter returns the findings not matched by any rule. It preserves
// input order and never reorders survivors; with no rules it is the
// identity.
func Filter(findings []checker.Finding, rules []Rule) []checker.Finding {
	if len(rules) == 0 {
		return findings
	}
	kept := []checker.Finding{}
	for _, f := range findings {
		if suppressed(f, rules) {
			glog.V(1).Infof("finding suppressed: %s:%d: %s", f.Path, f.Line, f.Message)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func suppressed(f checker.Finding, rules []Rule) bool {
	for _, rule := range rules {
		switch rule.Scope {
		case Global:
			if rule.Pattern.MatchString(f.Message) {
				return true
			}
		case PerFile:
			if strings.HasPrefix(f.Path, rule.PathPrefix) {
				return true
			}
		}
	}
	return false
}
