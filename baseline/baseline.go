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

// Package baseline grandfathers pre-existing findings during
// incremental adoption. A baseline snapshot records the findings at a
// known commit; later runs drop findings that already existed there,
// following the line drift between the two commits through git hunks.
package baseline

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/golang/glog"
	git2go "github.com/libgit2/git2go/v33"

	"github.com/standard-ci/diffcheck/atomic"
	"github.com/standard-ci/diffcheck/checker"
)

type Result struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Message string `json:"message"`
	Tool    string `json:"tool"`
}

type Baseline struct {
	Results    []Result `json:"results"`
	CommitHash string   `json:"commitHash"`
}

type GitObject struct {
	Repo               *git2go.Repository
	CurrentCommitTree  *git2go.Tree
	BaselineCommitTree *git2go.Tree
}

// Create snapshots the given findings at the current HEAD.
func Create(findings []checker.Finding, baselinePath, currentCommitHash string) error {
	baseline := Baseline{CommitHash: currentCommitHash, Results: []Result{}}
	for _, f := range findings {
		baseline.Results = append(baseline.Results, Result{
			Path:    f.Path,
			Line:    f.Line,
			Message: f.Message,
			Tool:    f.Tool,
		})
	}
	if err := atomic.WriteJSON(baselinePath, baseline); err != nil {
		return fmt.Errorf("cannot write %s: %v", baselinePath, err)
	}
	return nil
}

func Load(baselinePath string) (Baseline, error) {
	var baseline Baseline
	content, err := os.ReadFile(baselinePath)
	if err != nil {
		return baseline, fmt.Errorf("cannot read %s: %v", baselinePath, err)
	}
	if err := json.Unmarshal(content, &baseline); err != nil {
		return baseline, fmt.Errorf("cannot parse %s: %v", baselinePath, err)
	}
	return baseline, nil
}

func GetHeadCommitHash(workingDir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = workingDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s", strings.TrimSpace(string(out)))
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

func GetGitObject(baseline Baseline, currentCommitHash, workingDir string) (*GitObject, error) {
	currentOid, err := git2go.NewOid(currentCommitHash)
	if err != nil {
		return nil, fmt.Errorf("git2go.NewOid failed: %v", err)
	}
	baselineOid, err := git2go.NewOid(baseline.CommitHash)
	if err != nil {
		return nil, fmt.Errorf("git2go.NewOid failed: %v", err)
	}
	repo, err := git2go.OpenRepository(workingDir)
	if err != nil {
		return nil, fmt.Errorf("git2go.OpenRepository failed: %v", err)
	}
	currentCommit, err := repo.LookupCommit(currentOid)
	if err != nil {
		return nil, fmt.Errorf("git2go.LookupCommit failed: %v", err)
	}
	baselineCommit, err := repo.LookupCommit(baselineOid)
	if err != nil {
		return nil, fmt.Errorf("git2go.LookupCommit failed: %v", err)
	}
	currentCommitTree, err := currentCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("currentCommit.Tree() failed: %v", err)
	}
	baselineCommitTree, err := baselineCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("baselineCommit.Tree() failed: %v", err)
	}
	gitObject := &GitObject{}
	gitObject.Repo = repo
	gitObject.CurrentCommitTree = currentCommitTree
	gitObject.BaselineCommitTree = baselineCommitTree
	return gitObject, nil
}

func getHunks(issueDiff *git2go.Diff) []git2go.DiffHunk {
	issueHunks := make([]git2go.DiffHunk, 0)
	err := issueDiff.ForEach(func(file git2go.DiffDelta, progress float64) (git2go.DiffForEachHunkCallback, error) {
		return func(issueHunk git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) {
			issueHunks = append(issueHunks, issueHunk)
			return func(issueLine git2go.DiffLine) error {
				return nil
			}, nil
		}, nil
	}, git2go.DiffDetailLines)
	if err != nil {
		glog.Error(err)
		return nil
	}
	return issueHunks
}

func inHunk(linenumber, start, lines int) bool {
	return linenumber >= start && linenumber < start+lines
}

func aboveHunk(linenumber, start, lines int) bool {
	if lines == 0 {
		return linenumber <= start
	}
	return linenumber < start
}

func underHunk(linenumber, start, lines int) bool {
	if lines == 0 {
		return linenumber > start
	}
	return linenumber >= start+lines
}

// sameLineThroughHunks decides whether the current line and the
// baseline line denote the same physical code line once the hunks
// between the two commits are accounted for. A line inside a changed
// hunk is never the same; outside the hunks the two offsets from the
// previous unchanged block must agree.
func sameLineThroughHunks(newline, oldline int, hunks []git2go.DiffHunk) bool {
	newPrev := 0 // the start line of previous same block
	oldPrev := 0 // the start line of previous same block
	for _, hunk := range hunks {
		if inHunk(newline, hunk.NewStart, hunk.NewLines) {
			return false
		} else if aboveHunk(newline, hunk.NewStart, hunk.NewLines) {
			if aboveHunk(oldline, hunk.OldStart, hunk.OldLines) && newline-newPrev == oldline-oldPrev {
				return true
			}
			return false
		} else if !underHunk(oldline, hunk.OldStart, hunk.OldLines) {
			return false
		}
		newPrev = hunk.NewStart + hunk.NewLines
		if hunk.NewLines > 0 {
			newPrev -= 1
		}
		oldPrev = hunk.OldStart + hunk.OldLines
		if hunk.OldLines > 0 {
			oldPrev -= 1
		}
	}
	return newline-newPrev == oldline-oldPrev
}

func isSameCode(gitObject *GitObject, current checker.Finding, old Result, workingDir string) bool {
	options := &git2go.DiffOptions{}
	options.Pathspec = []string{strings.TrimPrefix(strings.TrimPrefix(current.Path, workingDir), "/")}
	options.ContextLines = 0
	issueDiff, err := gitObject.Repo.DiffTreeToTree(gitObject.BaselineCommitTree, gitObject.CurrentCommitTree, options)
	if err != nil {
		glog.Errorf("DiffTreeToTree failed: %v", err)
		return false
	}
	return sameLineThroughHunks(current.Line, old.Line, getHunks(issueDiff))
}

// Filter drops findings already present in the baseline file. Every
// failure mode degrades to the identity filter: a missing or stale
// baseline must never hide new findings or fail the run.
func Filter(findings []checker.Finding, workingDir, baselinePath string) []checker.Finding {
	if baselinePath == "" {
		return findings
	}
	if _, err := os.Stat(baselinePath); os.IsNotExist(err) {
		glog.Infof("no baseline at %s, nothing to grandfather", baselinePath)
		return findings
	}
	currentCommitHash, err := GetHeadCommitHash(workingDir)
	if err != nil {
		glog.Errorf("%v", err)
		return findings
	}
	baseline, err := Load(baselinePath)
	if err != nil {
		glog.Errorf("%v", err)
		return findings
	}
	gitObject, err := GetGitObject(baseline, currentCommitHash, workingDir)
	if err != nil {
		glog.Errorf("%v", err)
		return findings
	}
	kept := make([]checker.Finding, 0)
	for _, current := range findings {
		grandfathered := false
		for _, old := range baseline.Results {
			if current.Tool == old.Tool &&
				current.Path == old.Path &&
				current.Message == old.Message &&
				isSameCode(gitObject, current, old, workingDir) {
				grandfathered = true
				break
			}
		}
		if !grandfathered {
			kept = append(kept, current)
		}
	}
	return kept
}
