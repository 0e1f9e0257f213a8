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

// Package iwyu integrates include-what-you-use as a report-only check:
// every finding is a warning, so the check can never fail a run.
package iwyu

import (
	"strings"

	"github.com/golang/glog"

	"github.com/standard-ci/diffcheck/basic"
	"github.com/standard-ci/diffcheck/checker"
	"github.com/standard-ci/diffcheck/options"
)

const toolName = "iwyu"

// Parse extracts one warning per suggestion block:
//
//	src/foo.cc should add these lines:
//	#include <vector>
//
//	src/foo.cc should remove these lines:
//	- #include <list>  // lines 3-3
//
// Files reported as "has correct #includes/fwd-decls" produce nothing.
func Parse(out []byte) []checker.Finding {
	findings := []checker.Finding{}
	var current *checker.Finding
	for _, line := range strings.Split(string(out), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasSuffix(trimmed, "should add these lines:"):
			path := strings.TrimSuffix(trimmed, " should add these lines:")
			findings = append(findings, checker.Finding{
				Path:     path,
				Line:     1,
				Severity: checker.Warning,
				Message:  "missing includes",
				Tool:     toolName,
			})
			current = &findings[len(findings)-1]
		case strings.HasSuffix(trimmed, "should remove these lines:"):
			path := strings.TrimSuffix(trimmed, " should remove these lines:")
			findings = append(findings, checker.Finding{
				Path:     path,
				Line:     1,
				Severity: checker.Warning,
				Message:  "superfluous includes",
				Tool:     toolName,
			})
			current = &findings[len(findings)-1]
		case trimmed == "" || strings.HasPrefix(trimmed, "---"):
			current = nil
		case current != nil:
			// Fold the suggested include lines into the block message
			// so the annotation is actionable on its own.
			current.Message += "; " + trimmed
		}
	}
	return findings
}

// Exec runs include-what-you-use once per file: it is a clang frontend
// and analyzes exactly one translation unit per invocation.
func Exec(cmder basic.Commander, opts options.Options, files []string) ([]checker.Finding, error) {
	set := checker.NewFindingSet()
	for _, file := range files {
		cmdArgs := []string{"-std=" + opts.Standard}
		for _, dir := range opts.IncludeDirs {
			cmdArgs = append(cmdArgs, "-I"+dir)
		}
		cmdArgs = append(cmdArgs, opts.ExtraArgs...)
		cmdArgs = append(cmdArgs, file)
		out, code, err := cmder.CombinedOutput(opts.IwyuBin, cmdArgs, opts.WorkingDir)
		if err != nil {
			return nil, err
		}
		// iwyu always exits non-zero by design; its status encodes the
		// number of suggestion edits and means nothing for pass/fail.
		_ = code
		set.AddAll(Parse(out))
		glog.V(1).Infof("%s finished for %s", toolName, file)
	}
	return set.Findings, nil
}
