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

// Package checker defines the normalized finding record shared by all
// tool integrations.
package checker

import (
	"fmt"
	"sort"
)

type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return fmt.Sprintf("%d", s)
	}
}

// MapSeverity maps a tool-reported severity literal onto the normalized
// enum. The mapping is total: anything unrecognized becomes Warning so
// that a new severity string introduced by a tool upgrade is surfaced
// instead of dropped, but never blocks the run on its own.
func MapSeverity(raw string) Severity {
	switch raw {
	case "error", "fatal error":
		return Error
	case "warning", "style", "performance", "portability":
		return Warning
	case "information", "note":
		return Info
	default:
		return Warning
	}
}

// Finding is one normalized diagnostic extracted from a tool's raw
// output. Line and Column are 1-based; zero means the tool did not
// report one.
type Finding struct {
	Path     string
	Line     int
	Column   int
	Severity Severity
	Message  string
	Tool     string
}

type findingBlood struct {
	path    string
	line    int
	message string
}

// FindingSet deduplicates findings on (path, line, message) while
// preserving adding order, so the same diagnostic reported by two
// invocations of the same tool is annotated once.
type FindingSet struct {
	Findings []Finding
	stored   map[findingBlood]struct{}
}

func NewFindingSet() *FindingSet {
	set := FindingSet{}
	set.stored = make(map[findingBlood]struct{})
	return &set
}

func (fs *FindingSet) Add(f Finding) {
	blood := findingBlood{
		path:    f.Path,
		line:    f.Line,
		message: f.Message,
	}
	if _, reported := fs.stored[blood]; !reported {
		fs.stored[blood] = struct{}{}
		fs.Findings = append(fs.Findings, f)
	}
}

func (fs *FindingSet) AddAll(findings []Finding) {
	for _, f := range findings {
		fs.Add(f)
	}
}

// SortFindings orders findings by path, then line, then message, so the
// annotation output is stable between runs on the same input.
func SortFindings(findings []Finding) {
	sort.Slice(findings, func(i, j int) bool {
		x := findings[i]
		y := findings[j]
		if x.Path < y.Path {
			return true
		}
		if x.Path > y.Path {
			return false
		}
		if x.Line < y.Line {
			return true
		}
		if x.Line > y.Line {
			return false
		}
		return x.Message < y.Message
	})
}
