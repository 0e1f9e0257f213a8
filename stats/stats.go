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

// Package stats records per-run metadata into the results dir for the
// compliance dashboard.
package stats

import (
	"os"
	"path/filepath"
	"time"

	"github.com/golang/glog"
	"github.com/hhatto/gocloc"

	"github.com/standard-ci/diffcheck/annotation"
	"github.com/standard-ci/diffcheck/atomic"
)

// pipeline stages; Running covers tool execution and output parsing
const (
	Resolving int = iota
	Running
	Filtering
	Emitting
	Done
)

type Progress struct {
	StageID   int       `json:"stage_id"`
	StartedAt time.Time `json:"started_at"`
}

type RunStats struct {
	RunID        string             `json:"run_id"`
	Check        string             `json:"check"`
	BaseRef      string             `json:"base_ref"`
	ChangedFiles int                `json:"changed_files"`
	LinesOfCode  int32              `json:"lines_of_code"`
	Verdict      annotation.Verdict `json:"verdict"`
	StartedAt    time.Time          `json:"started_at"`
	Duration     string             `json:"duration"`
}

// WriteProgress drops a stage marker into the results dir. Skipped
// silently when no results dir is configured.
func WriteProgress(resultsDir string, stageID int, startedAt time.Time) {
	if resultsDir == "" {
		return
	}
	if _, err := os.Stat(resultsDir); os.IsNotExist(err) {
		glog.Warningf("results dir %s does not exist", resultsDir)
		return
	}
	path := filepath.Join(resultsDir, "progress.json")
	err := atomic.WriteJSON(path, Progress{StageID: stageID, StartedAt: startedAt})
	if err != nil {
		glog.Errorf("failed to write to file %s: %v", path, err)
	}
}

// CountChangedLines counts the code lines of the resolved changeset.
// Failures only cost the stats record its LOC figure, never the run.
func CountChangedLines(workingDir string, files []string) int32 {
	clocOpts := gocloc.NewClocOptions()
	languages := gocloc.NewDefinedLanguages()
	paths := make([]string, 0, len(files))
	for _, file := range files {
		paths = append(paths, filepath.Join(workingDir, file))
	}
	processor := gocloc.NewProcessor(languages, clocOpts)
	result, err := processor.Analyze(paths)
	if err != nil {
		glog.Errorf("gocloc fail: %v", err)
		return 0
	}
	var sum int32
	for _, file := range result.Files {
		sum += file.Code
	}
	return sum
}

func WriteRunStats(resultsDir string, runStats RunStats) {
	if resultsDir == "" {
		return
	}
	path := filepath.Join(resultsDir, "run_stats.json")
	if err := atomic.WriteJSON(path, runStats); err != nil {
		glog.Errorf("failed to write to file %s: %v", path, err)
	}
}
