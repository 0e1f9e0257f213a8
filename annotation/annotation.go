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

// Package annotation renders findings in the CI platform's inline
// annotation format and derives the run verdict.
package annotation

import (
	"fmt"
	"io"

	"github.com/standard-ci/diffcheck/checker"
)

// Verdict is computed from the filtered finding sequence at the end of
// a run. ExitCode is 1 iff at least one error-severity finding
// survived; warnings never block.
type Verdict struct {
	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`
	ExitCode     int `json:"exit_code"`
}

// Line renders one finding as an annotation line. Info findings render
// as warnings: the platform only understands the two levels, and the
// severity mapping must stay total.
func Line(f checker.Finding) string {
	severity := f.Severity
	if severity == checker.Info {
		severity = checker.Warning
	}
	line := fmt.Sprintf("::%s::file=%s", severity, f.Path)
	if f.Line > 0 {
		line += fmt.Sprintf(",line=%d", f.Line)
	}
	if f.Column > 0 {
		line += fmt.Sprintf(",col=%d", f.Column)
	}
	return line + "::" + f.Message
}

// Emit writes one annotation per finding to w and accumulates the
// verdict. Emit is a pure function of its input: calling it twice with
// the same findings yields the same verdict (and duplicate annotation
// lines), so callers invoke it exactly once per run.
func Emit(w io.Writer, findings []checker.Finding) Verdict {
	verdict := Verdict{}
	for _, f := range findings {
		fmt.Fprintln(w, Line(f))
		switch f.Severity {
		case checker.Error:
			verdict.ErrorCount++
		default:
			verdict.WarningCount++
		}
	}
	if verdict.ErrorCount > 0 {
		verdict.ExitCode = 1
	}
	fmt.Fprintf(w, "%d error(s), %d warning(s)\n", verdict.ErrorCount, verdict.WarningCount)
	return verdict
}
