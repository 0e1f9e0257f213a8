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

package cppcheck

import (
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/standard-ci/diffcheck/basic"
	"github.com/standard-ci/diffcheck/checker"
	"github.com/standard-ci/diffcheck/options"
)

const toolName = "cppcheck"

// Parse extracts findings from cppcheck --template=gcc output:
//
//	foo.cpp:3: style: variable shadowed [shadowVariable]
//
// The line is split on the first three colons. "error" maps to error;
// warning, style, performance and portability all map to warning.
// cppcheck exits 1 when it found violations, so the exit status is
// never consulted here.
func Parse(out []byte) []checker.Finding {
	findings := []checker.Finding{}
	for _, line := range strings.Split(string(out), "\n") {
		parts := strings.SplitN(line, ":", 4)
		if len(parts) != 4 {
			glog.V(1).Infof("unparsed %s line: %s", toolName, line)
			continue
		}
		linenum, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || linenum < 1 {
			glog.V(1).Infof("unparsed %s line number: %s", toolName, line)
			continue
		}
		findings = append(findings, checker.Finding{
			Path:     parts[0],
			Line:     linenum,
			Severity: checker.MapSeverity(strings.TrimSpace(parts[2])),
			Message:  strings.TrimSpace(parts[3]),
			Tool:     toolName,
		})
	}
	return findings
}

// Exec runs cppcheck once with the whole changed set as trailing
// arguments. cppcheck handles multiple translation units in a single
// process without mixing up diagnostics, so batching is cheaper than
// one process per file.
func Exec(cmder basic.Commander, opts options.Options, files []string) ([]checker.Finding, error) {
	cmdArgs := []string{
		"--template=gcc",
		"--enable=warning,style,performance,portability",
		"--inline-suppr",
		"--quiet",
		"--std=" + opts.Standard,
	}
	for _, dir := range opts.IncludeDirs {
		cmdArgs = append(cmdArgs, "-I", dir)
	}
	cmdArgs = append(cmdArgs, opts.ExtraArgs...)
	cmdArgs = append(cmdArgs, files...)
	out, code, err := cmder.CombinedOutput(opts.CppcheckBin, cmdArgs, opts.WorkingDir)
	if err != nil {
		return nil, err
	}
	parsed := Parse(out)
	if code != 0 && len(parsed) == 0 {
		glog.Warningf("%s exited %d with no parsable findings, output:\n%s",
			toolName, code, string(out))
	}
	return parsed, nil
}
