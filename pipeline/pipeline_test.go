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

package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/standard-ci/diffcheck/options"
	"github.com/standard-ci/diffcheck/stats"
)

// fakeCommander serves canned git output and tool output, recording
// every non-git binary it is asked to spawn.
type fakeCommander struct {
	nameStatusOut string
	lineDiffOut   string
	toolOut       string
	toolCode      int
	toolErr       error
	toolCalls     []string
}

func (c *fakeCommander) CombinedOutput(bin string, args []string, dir string) ([]byte, int, error) {
	if bin == "git" {
		if len(args) > 1 && args[1] == "-U0" {
			return []byte(c.lineDiffOut), 0, nil
		}
		return []byte(c.nameStatusOut), 0, nil
	}
	c.toolCalls = append(c.toolCalls, bin)
	if c.toolErr != nil {
		return nil, -1, c.toolErr
	}
	return []byte(c.toolOut), c.toolCode, nil
}

func testOptions(t *testing.T) options.Options {
	t.Helper()
	t.Setenv("GITHUB_STEP_SUMMARY", filepath.Join(t.TempDir(), "summary.md"))
	opts := options.New(t.TempDir())
	opts.BaseRef = "origin/main"
	return opts
}

func touch(t *testing.T, dir, path string) {
	t.Helper()
	full := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("int main() {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCheckFromName(t *testing.T) {
	for _, testCase := range [...]struct {
		name      string
		expected  Check
		expectErr bool
	}{
		{name: "clang-tidy", expected: ClangTidy},
		{name: "clang-tidy-diff", expected: ClangTidy},
		{name: "cppcheck-diff", expected: Cppcheck},
		{name: "diff-quality", expected: DiffQuality},
		{name: "iwyu-diff", expected: Iwyu},
		{name: "shellcheck", expectErr: true},
		{name: "", expectErr: true},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			check, err := CheckFromName(testCase.name)
			if testCase.expectErr {
				if err == nil {
					t.Errorf("expected an error for %q", testCase.name)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if check != testCase.expected {
				t.Errorf("unexpected check. got: %v. expected: %v.", check, testCase.expected)
			}
		})
	}
}

func TestRunEmptyChangesetSkipsTool(t *testing.T) {
	opts := testOptions(t)
	cmder := &fakeCommander{nameStatusOut: ""}
	var out bytes.Buffer
	verdict, err := Run(cmder, ClangTidy, opts, &out)
	if err != nil {
		t.Fatal(err)
	}
	if verdict.ExitCode != 0 {
		t.Errorf("empty changeset must pass, got exit code %d", verdict.ExitCode)
	}
	if len(cmder.toolCalls) != 0 {
		t.Errorf("no tool may be spawned for an empty changeset, got %v", cmder.toolCalls)
	}
	if !strings.Contains(out.String(), "0 error(s), 0 warning(s)") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestRunErrorFindingFailsRun(t *testing.T) {
	opts := testOptions(t)
	touch(t, opts.WorkingDir, "a.cpp")
	cmder := &fakeCommander{
		nameStatusOut: "M\x00a.cpp\x00",
		toolOut:       "a.cpp:10:5: error: use of uninitialized value [bugprone-x]\n",
		toolCode:      1,
	}
	var out bytes.Buffer
	verdict, err := Run(cmder, ClangTidy, opts, &out)
	if err != nil {
		t.Fatal(err)
	}
	if verdict.ExitCode != 1 || verdict.ErrorCount != 1 {
		t.Errorf("unexpected verdict: %+v", verdict)
	}
	expected := "::error::file=a.cpp,line=10,col=5::use of uninitialized value [bugprone-x]"
	if !strings.Contains(out.String(), expected) {
		t.Errorf("annotation missing.\ngot:\n%s\nexpected line:\n%s", out.String(), expected)
	}
	if len(cmder.toolCalls) != 1 || cmder.toolCalls[0] != "clang-tidy" {
		t.Errorf("unexpected tool invocations: %v", cmder.toolCalls)
	}
}

func TestRunWarningsDoNotBlock(t *testing.T) {
	opts := testOptions(t)
	touch(t, opts.WorkingDir, "a.cpp")
	cmder := &fakeCommander{
		nameStatusOut: "M\x00a.cpp\x00",
		toolOut:       "a.cpp:3: style: variable shadowed [shadowVariable]\n",
		toolCode:      1,
	}
	verdict, err := Run(cmder, Cppcheck, opts, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if verdict.ExitCode != 0 || verdict.WarningCount != 1 {
		t.Errorf("unexpected verdict: %+v", verdict)
	}
}

func TestRunToolUnavailable(t *testing.T) {
	opts := testOptions(t)
	touch(t, opts.WorkingDir, "a.cpp")
	cmder := &fakeCommander{
		nameStatusOut: "M\x00a.cpp\x00",
		toolErr:       errors.New(`exec: "clang-tidy": executable file not found in $PATH`),
	}
	_, err := Run(cmder, ClangTidy, opts, &bytes.Buffer{})
	var unavailable *ToolUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected a ToolUnavailableError, got %v", err)
	}
	if unavailable.Tool != "clang-tidy" {
		t.Errorf("unexpected tool name in error: %q", unavailable.Tool)
	}
}

func TestRunDiffQualityDefaultsToPython(t *testing.T) {
	opts := testOptions(t)
	touch(t, opts.WorkingDir, "app.py")
	cmder := &fakeCommander{
		nameStatusOut: "M\x00app.py\x00",
		toolOut:       "Quality: 95%\n",
	}
	verdict, err := Run(cmder, DiffQuality, opts, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if verdict.ExitCode != 0 {
		t.Errorf("unexpected verdict: %+v", verdict)
	}
	if len(cmder.toolCalls) != 1 || cmder.toolCalls[0] != "diff-quality" {
		t.Errorf("unexpected tool invocations: %v", cmder.toolCalls)
	}
}

func TestRunSuppressionApplied(t *testing.T) {
	opts := testOptions(t)
	touch(t, opts.WorkingDir, "a.cpp")
	suppressions := filepath.Join(opts.WorkingDir, "suppressions.txt")
	if err := os.WriteFile(suppressions, []byte("bugprone-x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	opts.SuppressionFile = suppressions
	cmder := &fakeCommander{
		nameStatusOut: "M\x00a.cpp\x00",
		toolOut:       "a.cpp:10:5: error: use of uninitialized value [bugprone-x]\n",
		toolCode:      1,
	}
	verdict, err := Run(cmder, ClangTidy, opts, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if verdict.ExitCode != 0 || verdict.ErrorCount != 0 {
		t.Errorf("suppressed finding must not block: %+v", verdict)
	}
}

func TestRunDiffQualityGateBlocksWithChangedLinesOnly(t *testing.T) {
	opts := testOptions(t)
	opts.ChangedLinesOnly = true
	touch(t, opts.WorkingDir, "app.py")
	cmder := &fakeCommander{
		nameStatusOut: "M\x00app.py\x00",
		toolOut:       "Quality: 10%\n",
	}
	verdict, err := Run(cmder, DiffQuality, opts, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if verdict.ErrorCount != 1 || verdict.ExitCode != 1 {
		t.Errorf("file-level gate finding must stay blocking: %+v", verdict)
	}
}

func TestRunDetectedLanguageScopesChangeset(t *testing.T) {
	opts := testOptions(t)
	if err := os.WriteFile(filepath.Join(opts.WorkingDir, "pyproject.toml"),
		[]byte("[project]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	touch(t, opts.WorkingDir, "a.cpp")
	cmder := &fakeCommander{nameStatusOut: "M\x00a.cpp\x00"}
	verdict, err := Run(cmder, ClangTidy, opts, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if verdict.ExitCode != 0 {
		t.Errorf("unexpected verdict: %+v", verdict)
	}
	if len(cmder.toolCalls) != 0 {
		t.Errorf("a C++ change in a Python-only project must be skipped, got %v", cmder.toolCalls)
	}
}

func TestRunConfiguredExtensionsWinOverDetection(t *testing.T) {
	opts := testOptions(t)
	opts.Extensions = []string{".cpp"}
	opts.ExtensionsSet = true
	if err := os.WriteFile(filepath.Join(opts.WorkingDir, "pyproject.toml"),
		[]byte("[project]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	touch(t, opts.WorkingDir, "a.cpp")
	cmder := &fakeCommander{
		nameStatusOut: "M\x00a.cpp\x00",
		toolOut:       "a.cpp:3:1: warning: shadowed variable [misc-shadow]\n",
		toolCode:      1,
	}
	verdict, err := Run(cmder, ClangTidy, opts, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cmder.toolCalls) != 1 {
		t.Errorf("configured extensions must override detection, got %v", cmder.toolCalls)
	}
	if verdict.WarningCount != 1 {
		t.Errorf("unexpected verdict: %+v", verdict)
	}
}

func TestRunWritesRunMetadata(t *testing.T) {
	opts := testOptions(t)
	opts.ResultsDir = t.TempDir()
	verdict, err := Run(&fakeCommander{nameStatusOut: ""}, Cppcheck, opts, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if verdict.ExitCode != 0 {
		t.Errorf("unexpected verdict: %+v", verdict)
	}
	content, err := os.ReadFile(filepath.Join(opts.ResultsDir, "progress.json"))
	if err != nil {
		t.Fatal(err)
	}
	var progress stats.Progress
	if err := json.Unmarshal(content, &progress); err != nil {
		t.Fatal(err)
	}
	if progress.StageID != stats.Done {
		t.Errorf("unexpected final stage. got: %d. expected: %d.", progress.StageID, stats.Done)
	}
	content, err = os.ReadFile(filepath.Join(opts.ResultsDir, "run_stats.json"))
	if err != nil {
		t.Fatal(err)
	}
	var runStats stats.RunStats
	if err := json.Unmarshal(content, &runStats); err != nil {
		t.Fatal(err)
	}
	if runStats.Check != "cppcheck" || runStats.RunID == "" {
		t.Errorf("unexpected run stats: %+v", runStats)
	}
}

func TestRunDemotesUntouchedErrors(t *testing.T) {
	opts := testOptions(t)
	opts.ChangedLinesOnly = true
	touch(t, opts.WorkingDir, "a.cpp")
	cmder := &fakeCommander{
		nameStatusOut: "M\x00a.cpp\x00",
		lineDiffOut:   "--- a/a.cpp\n+++ b/a.cpp\n@@ -10,1 +10,1 @@\n-old\n+new\n",
		toolOut: "a.cpp:10:1: error: touched problem [x]\n" +
			"a.cpp:99:1: error: pre-existing problem [y]\n",
		toolCode: 1,
	}
	verdict, err := Run(cmder, ClangTidy, opts, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if verdict.ErrorCount != 1 || verdict.WarningCount != 1 {
		t.Errorf("untouched error must demote to warning: %+v", verdict)
	}
	if verdict.ExitCode != 1 {
		t.Errorf("touched error must still block, got exit code %d", verdict.ExitCode)
	}
}
