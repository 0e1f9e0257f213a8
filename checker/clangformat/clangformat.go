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

package clangformat

import (
	"regexp"
	"strconv"

	"github.com/golang/glog"

	"github.com/standard-ci/diffcheck/basic"
	"github.com/standard-ci/diffcheck/checker"
	"github.com/standard-ci/diffcheck/options"
)

const toolName = "clang-format"

var reportRe = regexp.MustCompile(`(.*):(\d+):(\d+): (\w+): (.*) \[(.*)\]`)

// Parse extracts findings from clang-format -Werror --dry-run output:
//
//	foo.cpp:129:23: error: code should be clang-formatted [-Wclang-format-violations]
//
// With -Werror the diagnostic literal is "error", which blocks the run
// like any other error-severity finding.
func Parse(out []byte) []checker.Finding {
	findings := []checker.Finding{}
	for _, match := range reportRe.FindAllStringSubmatch(string(out), -1) {
		linenum, err := strconv.Atoi(match[2])
		if err != nil {
			glog.V(1).Infof("unparsed %s line number: %s", toolName, match[0])
			continue
		}
		colnum, err := strconv.Atoi(match[3])
		if err != nil {
			glog.V(1).Infof("unparsed %s column number: %s", toolName, match[0])
			continue
		}
		severity := checker.Warning
		if match[4] == "error" {
			severity = checker.Error
		}
		findings = append(findings, checker.Finding{
			Path:     match[1],
			Line:     linenum,
			Column:   colnum,
			Severity: severity,
			Message:  match[5] + " [" + match[6] + "]",
			Tool:     toolName,
		})
	}
	return findings
}

// Exec runs clang-format in dry-run mode over the whole changed set.
// Exit status 1 means violations were reported, which is a normal
// outcome; anything else with no parsable findings is logged.
func Exec(cmder basic.Commander, opts options.Options, files []string) ([]checker.Finding, error) {
	cmdArgs := []string{"-Werror", "--style=" + opts.FormatStyle, "--dry-run"}
	cmdArgs = append(cmdArgs, opts.ExtraArgs...)
	cmdArgs = append(cmdArgs, files...)
	out, code, err := cmder.CombinedOutput(opts.ClangFormatBin, cmdArgs, opts.WorkingDir)
	if err != nil {
		return nil, err
	}
	// code == 0 ==> no report
	if code == 0 {
		return []checker.Finding{}, nil
	}
	parsed := Parse(out)
	if code != 1 && len(parsed) == 0 {
		glog.Warningf("%s exited %d with no parsable findings, output:\n%s",
			toolName, code, string(out))
	}
	return parsed, nil
}
