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

package iwyu

import (
	"testing"

	"github.com/standard-ci/diffcheck/checker"
)

func TestParse(t *testing.T) {
	out := `
src/foo.cc should add these lines:
#include <vector>

src/foo.cc should remove these lines:
- #include <list>  // lines 3-3

The full include-list for src/foo.cc:
---
`
	findings := Parse([]byte(out))
	if len(findings) != 2 {
		t.Fatalf("expected two findings, got %d", len(findings))
	}
	add := findings[0]
	if add.Path != "src/foo.cc" || add.Severity != checker.Warning {
		t.Errorf("unexpected add-block finding: %+v", add)
	}
	if add.Message != "missing includes; #include <vector>" {
		t.Errorf("unexpected add-block message: %q", add.Message)
	}
	remove := findings[1]
	if remove.Message != "superfluous includes; - #include <list>  // lines 3-3" {
		t.Errorf("unexpected remove-block message: %q", remove.Message)
	}
}

func TestParseCleanFile(t *testing.T) {
	findings := Parse([]byte("(src/bar.cc has correct #includes/fwd-decls)\n"))
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %d", len(findings))
	}
}
