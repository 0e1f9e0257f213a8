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

package flawfinder

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/standard-ci/diffcheck/basic"
	"github.com/standard-ci/diffcheck/checker"
	"github.com/standard-ci/diffcheck/options"
)

const toolName = "flawfinder"

var levelRe = regexp.MustCompile(`^\[(\d)\]`)

// Parse extracts findings from flawfinder --singleline output:
//
//	foo.c:10:5:  [4] (buffer) strcpy: Does not check for buffer overflows (CWE-120).
//
// The line is split on the first three colons; the risk level in
// brackets decides the severity. Levels below errorLevel are warnings,
// levels at or above it are errors.
func Parse(out []byte, errorLevel int) []checker.Finding {
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
		colnum, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			glog.V(1).Infof("unparsed %s column number: %s", toolName, line)
			continue
		}
		message := strings.TrimSpace(parts[3])
		match := levelRe.FindStringSubmatch(message)
		if match == nil {
			glog.V(1).Infof("unparsed %s risk level: %s", toolName, line)
			continue
		}
		level, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		severity := checker.Warning
		if level >= errorLevel {
			severity = checker.Error
		}
		findings = append(findings, checker.Finding{
			Path:     parts[0],
			Line:     linenum,
			Column:   colnum,
			Severity: severity,
			Message:  message,
			Tool:     toolName,
		})
	}
	return findings
}

// Exec runs flawfinder once with the whole changed set. flawfinder is a
// lexical scanner with no translation-unit state, so batching is safe.
func Exec(cmder basic.Commander, opts options.Options, files []string) ([]checker.Finding, error) {
	cmdArgs := []string{"--singleline", "--columns", "--dataonly", "--quiet"}
	cmdArgs = append(cmdArgs, opts.ExtraArgs...)
	cmdArgs = append(cmdArgs, files...)
	out, code, err := cmder.CombinedOutput(opts.FlawfinderBin, cmdArgs, opts.WorkingDir)
	if err != nil {
		return nil, err
	}
	parsed := Parse(out, opts.FlawfinderErrorLevel)
	if code != 0 && len(parsed) == 0 {
		glog.Warningf("%s exited %d with no parsable findings, output:\n%s",
			toolName, code, string(out))
	}
	return parsed, nil
}
