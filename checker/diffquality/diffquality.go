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

// Package diffquality gates Python changes on the diff-quality
// subcommand. Unlike the C++ checkers this one does not annotate
// individual violations: diff-quality already restricts the underlying
// linter to changed lines and reports an aggregate quality percentage,
// so the gate is that single number against a threshold.
package diffquality

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/golang/glog"

	"github.com/standard-ci/diffcheck/basic"
	"github.com/standard-ci/diffcheck/checker"
	"github.com/standard-ci/diffcheck/options"
)

const toolName = "diff-quality"

var qualityRe = regexp.MustCompile(`(?m)^%?\s*Quality:?\s*(\d+)%`)

// ParseScore extracts the quality percentage from diff-quality's
// summary output. Returns -1 when no score line is present.
func ParseScore(out []byte) int {
	match := qualityRe.FindSubmatch(out)
	if match == nil {
		return -1
	}
	score, err := strconv.Atoi(string(match[1]))
	if err != nil {
		return -1
	}
	return score
}

// Exec runs diff-quality against the base ref and compares the score
// with the configured threshold. Below threshold it emits one synthetic
// error finding; the individual violations stay in the tool output for
// the job log.
func Exec(cmder basic.Commander, opts options.Options, files []string) ([]checker.Finding, error) {
	cmdArgs := []string{
		"--violations=" + opts.Linter,
		"--compare-branch=" + opts.BaseRef,
	}
	cmdArgs = append(cmdArgs, opts.ExtraArgs...)
	out, code, err := cmder.CombinedOutput(opts.DiffQualityBin, cmdArgs, opts.WorkingDir)
	if err != nil {
		return nil, err
	}
	score := ParseScore(out)
	if score < 0 {
		glog.Warningf("%s exited %d without a quality score, output:\n%s",
			toolName, code, string(out))
		return []checker.Finding{}, nil
	}
	glog.Infof("%s score: %d%% (threshold %d%%)", toolName, score, opts.DiffQualityThreshold)
	if score >= opts.DiffQualityThreshold {
		return []checker.Finding{}, nil
	}
	return []checker.Finding{{
		Path:     ".",
		Severity: checker.Error,
		Message: fmt.Sprintf("diff quality %d%% is below the required %d%% (%s)",
			score, opts.DiffQualityThreshold, opts.Linter),
		Tool: toolName,
	}}, nil
}
