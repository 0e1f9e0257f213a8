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

// Package pipeline drives one check run end to end: resolve the
// changed files, invoke the tool, normalize and filter its output,
// emit annotations and derive the verdict.
package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/standard-ci/diffcheck/annotation"
	"github.com/standard-ci/diffcheck/baseline"
	"github.com/standard-ci/diffcheck/basic"
	"github.com/standard-ci/diffcheck/changeset"
	"github.com/standard-ci/diffcheck/checker"
	"github.com/standard-ci/diffcheck/checker/clangformat"
	"github.com/standard-ci/diffcheck/checker/clangtidy"
	"github.com/standard-ci/diffcheck/checker/cppcheck"
	"github.com/standard-ci/diffcheck/checker/diffquality"
	"github.com/standard-ci/diffcheck/checker/flawfinder"
	"github.com/standard-ci/diffcheck/checker/iwyu"
	"github.com/standard-ci/diffcheck/detect"
	"github.com/standard-ci/diffcheck/diff"
	"github.com/standard-ci/diffcheck/options"
	"github.com/standard-ci/diffcheck/stats"
	"github.com/standard-ci/diffcheck/summary"
	"github.com/standard-ci/diffcheck/suppression"
)

type Check int

const (
	ClangTidy Check = iota
	Cppcheck
	ClangFormat
	Flawfinder
	DiffQuality
	Iwyu
)

func (c Check) String() string {
	switch c {
	case ClangTidy:
		return "clang-tidy"
	case Cppcheck:
		return "cppcheck"
	case ClangFormat:
		return "clang-format"
	case Flawfinder:
		return "flawfinder"
	case DiffQuality:
		return "diff-quality"
	case Iwyu:
		return "iwyu"
	default:
		return fmt.Sprintf("%d", c)
	}
}

// CheckFromName resolves a check from its CLI name. The "-diff" suffix
// form is accepted so the binary can be installed under the historical
// per-tool script names (clang-tidy-diff, cppcheck-diff, ...).
func CheckFromName(name string) (Check, error) {
	name = strings.TrimSuffix(name, "-diff")
	for _, check := range []Check{ClangTidy, Cppcheck, ClangFormat, Flawfinder, DiffQuality, Iwyu} {
		if check.String() == name {
			return check, nil
		}
	}
	return 0, fmt.Errorf("unknown check %q", name)
}

type execFunc func(cmder basic.Commander, opts options.Options, files []string) ([]checker.Finding, error)

var checkExecMap = map[Check]execFunc{
	ClangTidy:   clangtidy.Exec,
	Cppcheck:    cppcheck.Exec,
	ClangFormat: clangformat.Exec,
	Flawfinder:  flawfinder.Exec,
	DiffQuality: diffquality.Exec,
	Iwyu:        iwyu.Exec,
}

// ToolUnavailableError means the tool binary could not be spawned.
// A missing required tool is a misconfiguration of the job, not a
// "no findings" result, so the run aborts with no verdict.
type ToolUnavailableError struct {
	Tool string
	Err  error
}

func (e *ToolUnavailableError) Error() string {
	return fmt.Sprintf("tool %s unavailable: %v", e.Tool, e.Err)
}

// Run executes one check. The returned verdict decides the process
// exit code; a non-nil error means the run aborted before a verdict
// existed (bad base ref, missing tool binary).
func Run(cmder basic.Commander, check Check, opts options.Options, w io.Writer) (annotation.Verdict, error) {
	startedAt := time.Now()
	verdict := annotation.Verdict{}

	stats.WriteProgress(opts.ResultsDir, stats.Resolving, startedAt)
	if !opts.ExtensionsSet {
		if check == DiffQuality {
			opts.Extensions = []string{".py"}
		} else if detected := detect.DefaultExtensions(detect.Languages(opts.WorkingDir)); len(detected) > 0 {
			opts.Extensions = detected
		}
	}
	excludeRules := []string{}
	if opts.ExcludeFile != "" {
		rules, err := basic.LoadRuleFile(opts.ExcludeFile)
		if err != nil {
			return verdict, fmt.Errorf("cannot load exclude file: %v", err)
		}
		excludeRules = rules
	}
	files, err := changeset.Resolve(cmder, opts.WorkingDir, opts.BaseRef,
		opts.Extensions, excludeRules, opts.IgnorePatterns)
	if err != nil {
		return verdict, err
	}
	if len(files) == 0 {
		// Nothing to check is a pass; no subprocess runs at all.
		basic.PrintfWithTimeStamp("%s: no changed files match, skipping", check)
		verdict = annotation.Emit(w, nil)
		finish(check, opts, nil, nil, verdict, startedAt)
		return verdict, nil
	}
	glog.Infof("%s: checking %d changed file(s)", check, len(files))

	stats.WriteProgress(opts.ResultsDir, stats.Running, startedAt)
	exec := checkExecMap[check]
	findings, err := exec(cmder, opts, files)
	if err != nil {
		return verdict, &ToolUnavailableError{Tool: check.String(), Err: err}
	}

	stats.WriteProgress(opts.ResultsDir, stats.Filtering, startedAt)
	if opts.ChangedLinesOnly {
		findings = demoteUntouched(cmder, opts, findings)
	}
	if opts.SuppressionFile != "" {
		rules, err := suppression.Load(opts.SuppressionFile)
		if err != nil {
			return verdict, fmt.Errorf("cannot load suppression file: %v", err)
		}
		findings = suppression.Filter(findings, rules)
	}
	findings = baseline.Filter(findings, opts.WorkingDir, opts.BaselineFile)
	if opts.CreateBaseline && opts.BaselineFile != "" {
		hash, err := baseline.GetHeadCommitHash(opts.WorkingDir)
		if err != nil {
			glog.Errorf("cannot snapshot baseline: %v", err)
		} else if err := baseline.Create(findings, opts.BaselineFile, hash); err != nil {
			glog.Errorf("cannot snapshot baseline: %v", err)
		}
	}
	checker.SortFindings(findings)

	stats.WriteProgress(opts.ResultsDir, stats.Emitting, startedAt)
	verdict = annotation.Emit(w, findings)
	finish(check, opts, files, findings, verdict, startedAt)
	return verdict, nil
}

// demoteUntouched turns error findings on lines the pull request did
// not touch into warnings: pre-existing issues elsewhere in a changed
// file are reported but must not block the author.
func demoteUntouched(cmder basic.Commander, opts options.Options, findings []checker.Finding) []checker.Finding {
	out, code, err := cmder.CombinedOutput("git",
		[]string{"diff", "-U0", opts.BaseRef}, opts.WorkingDir)
	if err != nil || code != 0 {
		glog.Warningf("cannot compute line-level diff, keeping all findings blocking: %v", err)
		return findings
	}
	patch, err := diff.Parse(string(out))
	if err != nil {
		glog.Warningf("cannot parse line-level diff: %v", err)
		return findings
	}
	demoted := make([]checker.Finding, 0, len(findings))
	for _, f := range findings {
		// A finding without a line number is file-level (an aggregate
		// gate like diff-quality) and cannot be mapped onto the diff;
		// it stays blocking.
		if f.Severity == checker.Error && f.Line > 0 && !patch.Touches(f.Path, f.Line) {
			glog.V(1).Infof("demoting untouched finding %s:%d", f.Path, f.Line)
			f.Severity = checker.Warning
		}
		demoted = append(demoted, f)
	}
	return demoted
}

func finish(check Check, opts options.Options, files []string, findings []checker.Finding, verdict annotation.Verdict, startedAt time.Time) {
	rendered := summary.Render(check.String(), files, findings, verdict)
	if err := summary.Publish(rendered, check.String()); err != nil {
		glog.Errorf("summary.Publish: %v", err)
	}
	runStats := stats.RunStats{
		RunID:        uuid.NewString(),
		Check:        check.String(),
		BaseRef:      opts.BaseRef,
		ChangedFiles: len(files),
		Verdict:      verdict,
		StartedAt:    startedAt,
		Duration:     basic.FormatTimeDuration(time.Since(startedAt)),
	}
	if len(files) > 0 {
		runStats.LinesOfCode = stats.CountChangedLines(opts.WorkingDir, files)
	}
	stats.WriteRunStats(opts.ResultsDir, runStats)
	stats.WriteProgress(opts.ResultsDir, stats.Done, startedAt)
}
