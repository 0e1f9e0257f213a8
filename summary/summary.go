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

// Package summary renders one markdown report per run. The report
// carries a hidden HTML marker naming the check, so a PR-comment sink
// can find the previous comment for the same check and replace it
// instead of stacking a new comment per push.
package summary

import (
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/standard-ci/diffcheck/annotation"
	"github.com/standard-ci/diffcheck/checker"
)

// maxTableRows caps the per-finding table so a pathological run cannot
// blow past the comment size limit of the hosting platform.
const maxTableRows = 50

func markerFor(check string) string {
	return fmt.Sprintf("<!-- diffcheck:%s -->", check)
}

// Render builds the markdown summary for one check run.
func Render(check string, files []string, findings []checker.Finding, verdict annotation.Verdict) string {
	printer := message.NewPrinter(language.English)
	var b strings.Builder
	b.WriteString(markerFor(check) + "\n")
	b.WriteString(fmt.Sprintf("## %s\n\n", check))
	if len(files) == 0 {
		b.WriteString("No changed files to check.\n")
		return b.String()
	}
	b.WriteString(printer.Sprintf("Checked %d changed file(s): **%d error(s), %d warning(s)**.\n\n",
		len(files), verdict.ErrorCount, verdict.WarningCount))
	if len(findings) == 0 {
		return b.String()
	}
	b.WriteString("| File | Line | Severity | Message |\n")
	b.WriteString("|:-----|-----:|:---------|:--------|\n")
	for i, f := range findings {
		if i == maxTableRows {
			b.WriteString(printer.Sprintf("\n…and %d more finding(s), see the job log.\n", len(findings)-maxTableRows))
			break
		}
		line := "-"
		if f.Line > 0 {
			line = fmt.Sprintf("%d", f.Line)
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			f.Path, line, f.Severity, escapeCell(f.Message)))
	}
	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

// Upsert replaces the previous summary for the same check inside
// existing, or appends when none is present. The section runs from the
// marker to the next marker or the end of the document.
func Upsert(existing, rendered, check string) string {
	marker := markerFor(check)
	start := strings.Index(existing, marker)
	if start == -1 {
		if existing != "" && !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + rendered
	}
	end := strings.Index(existing[start+len(marker):], "<!-- diffcheck:")
	if end == -1 {
		return existing[:start] + rendered
	}
	end += start + len(marker)
	return existing[:start] + rendered + existing[end:]
}

// Publish writes the summary to the step-summary file when the CI
// platform provides one, else to stdout. Writing is upserting: a
// re-run within the same job replaces its previous section.
func Publish(rendered, check string) error {
	path := os.Getenv("GITHUB_STEP_SUMMARY")
	if path == "" {
		fmt.Print(rendered)
		return nil
	}
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot read step summary %s: %v", path, err)
	}
	content := Upsert(string(existing), rendered, check)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("cannot write step summary %s: %v", path, err)
	}
	glog.Infof("summary published to %s", path)
	return nil
}
