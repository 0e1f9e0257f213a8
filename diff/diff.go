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

// Package diff parses unified diff output so findings can be scoped to
// the lines a pull request actually touched.
package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Hunk struct {
	OldPos, OldLines, NewPos, NewLines int
}

type File struct {
	NewName string
	OldName string
	Hunks   []*Hunk
}

type Patch struct {
	Files []*File
}

/*
Parse parses the diff into a patch struct.

It goes over the lines in the diff and maintains an implicit state
machine. It only cares about lines that start with "--- ", "+++ ", or
"@@ -", and ignores everything else.

For a file addition ("--- /dev/null") OldName is the empty string; for
a deletion ("+++ /dev/null") NewName is the empty string. Lines
starting with "diff" or "index" are ignored.
*/
func Parse(diff string) (*Patch, error) {
	re := regexp.MustCompile(`@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
	lines := strings.Split(diff, "\n")
	var p Patch
	var f *File
	for i, line := range lines {
		if strings.HasPrefix(line, "--- ") {
			f = &File{}
			if line == "--- /dev/null" {
				// file addition
				f.OldName = ""
			} else if strings.HasPrefix(line, "--- a/") {
				f.OldName = strings.TrimPrefix(line, "--- a/")
			} else {
				return nil, fmt.Errorf("invalid line %d '%s'", i, line)
			}
			p.Files = append(p.Files, f)
		} else if strings.HasPrefix(line, "+++ ") {
			if f == nil || len(f.Hunks) > 0 {
				return nil, fmt.Errorf("unexpected line %d '%s'", i, line)
			}
			if line == "+++ /dev/null" {
				// file deletion
				f.NewName = ""
			} else if strings.HasPrefix(line, "+++ b/") {
				f.NewName = strings.TrimPrefix(line, "+++ b/")
			} else {
				return nil, fmt.Errorf("invalid line %d '%s'", i, line)
			}
		} else if strings.HasPrefix(line, "@@ -") {
			match := re.FindStringSubmatch(line)
			if match == nil {
				return nil, fmt.Errorf("could not extract hunk info from line '%s'", line)
			}
			oldpos, err := strconv.Atoi(match[1])
			if err != nil {
				return nil, fmt.Errorf("error converting oldpos to integer in '%s': %v", line, err)
			}
			oldlines := 1
			if match[2] != "" {
				oldlines, err = strconv.Atoi(match[2])
				if err != nil {
					return nil, fmt.Errorf("error converting oldlines to integer in '%s': %v", line, err)
				}
			}
			newpos, err := strconv.Atoi(match[3])
			if err != nil {
				return nil, fmt.Errorf("error converting newpos to integer in '%s': %v", line, err)
			}
			newlines := 1
			if match[4] != "" {
				newlines, err = strconv.Atoi(match[4])
				if err != nil {
					return nil, fmt.Errorf("error converting newlines to integer in '%s': %v", line, err)
				}
			}
			if f == nil {
				return nil, fmt.Errorf("f is nil but line %d is '%s'", i, line)
			}
			f.Hunks = append(f.Hunks, &Hunk{oldpos, oldlines, newpos, newlines})
		}
	}
	return &p, nil
}

// ChangedLines returns, per surviving file, the set of new-side line
// numbers covered by the patch hunks. Deleted files are skipped since
// they have no new side to annotate.
func (p *Patch) ChangedLines() map[string]map[int]bool {
	changed := make(map[string]map[int]bool)
	for _, f := range p.Files {
		if f.NewName == "" {
			continue
		}
		lines, ok := changed[f.NewName]
		if !ok {
			lines = make(map[int]bool)
			changed[f.NewName] = lines
		}
		for _, h := range f.Hunks {
			for i := 0; i < h.NewLines; i++ {
				lines[h.NewPos+i] = true
			}
			// A pure deletion hunk has NewLines == 0; keep the anchor
			// line so a finding at the deletion site still counts as
			// touched.
			if h.NewLines == 0 && h.NewPos > 0 {
				lines[h.NewPos] = true
			}
		}
	}
	return changed
}

// Touches reports whether the patch changed the given line of the given
// file. Line 0 (tool reported no line) counts as touched whenever the
// file itself appears in the patch.
func (p *Patch) Touches(path string, line int) bool {
	lines, ok := p.ChangedLines()[path]
	if !ok {
		return false
	}
	if line == 0 {
		return true
	}
	return lines[line]
}
