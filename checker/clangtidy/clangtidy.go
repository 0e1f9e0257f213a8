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

package clangtidy

import (
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/standard-ci/diffcheck/basic"
	"github.com/standard-ci/diffcheck/checker"
	"github.com/standard-ci/diffcheck/options"
)

const toolName = "clang-tidy"

// Parse extracts findings from clang-tidy's diagnostic lines:
//
//	foo.cpp:10:5: error: use of uninitialized value [bugprone-x]
//
// The line is split on the first four colons. Lines that do not carry
// the shape (banners, fix-it context, progress output) are discarded
// silently: the exact wording drifts between tool versions and only
// the structured diagnostic lines matter.
func Parse(out []byte) []checker.Finding {
	findings := []checker.Finding{}
	for _, line := range strings.Split(string(out), "\n") {
		parts := strings.SplitN(line, ":", 5)
		if len(parts) != 5 {
			glog.V(1).Infof("unparsed %s line: %s", toolName, line)
			continue
		}
		linenum, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || linenum < 1 {
			// Without a line number the finding cannot be mapped onto
			// the diff, so it is dropped rather than crashing the run.
			glog.V(1).Infof("unparsed %s line number: %s", toolName, line)
			continue
		}
		colnum, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			glog.V(1).Infof("unparsed %s column number: %s", toolName, line)
			continue
		}
		severity := checker.Warning
		if strings.TrimSpace(parts[3]) == "error" {
			severity = checker.Error
		}
		findings = append(findings, checker.Finding{
			Path:     parts[0],
			Line:     linenum,
			Column:   colnum,
			Severity: severity,
			Message:  strings.TrimSpace(parts[4]),
			Tool:     toolName,
		})
	}
	return findings
}

// Exec runs clang-tidy once per changed file. Batching multiple files
// into one invocation is avoided on purpose: clang-tidy interleaves
// diagnostics across translation units and its runtime grows
// superlinearly with combined input.
func Exec(cmder basic.Commander, opts options.Options, files []string) ([]checker.Finding, error) {
	set := checker.NewFindingSet()
	for _, file := range files {
		cmdArgs := []string{"--quiet"}
		cmdArgs = append(cmdArgs, opts.ExtraArgs...)
		cmdArgs = append(cmdArgs, file, "--")
		cmdArgs = append(cmdArgs, "-std="+opts.Standard)
		for _, dir := range opts.IncludeDirs {
			cmdArgs = append(cmdArgs, "-I"+dir)
		}
		out, code, err := cmder.CombinedOutput(opts.ClangTidyBin, cmdArgs, opts.WorkingDir)
		if err != nil {
			return nil, err
		}
		parsed := Parse(out)
		if code != 0 && len(parsed) == 0 {
			glog.Warningf("%s exited %d on %s with no parsable findings, output:\n%s",
				toolName, code, file, string(out))
		}
		set.AddAll(parsed)
	}
	return set.Findings, nil
}
