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

package suppression

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/standard-ci/diffcheck/checker"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suppressions.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeRules(t, `
# project-wide noise
bugprone-easily-swappable-parameters
path:third_party/  # vendored code
readability-.*  trailing comment is part of nothing # cut here
`)
	rules, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 3 {
		t.Fatalf("unexpected rule count. got: %d. expected: 3.", len(rules))
	}
	if rules[0].Scope != Global || !rules[0].Pattern.MatchString("bugprone-easily-swappable-parameters") {
		t.Errorf("unexpected first rule: %+v", rules[0])
	}
	if rules[1].Scope != PerFile || rules[1].PathPrefix != "third_party/" {
		t.Errorf("unexpected second rule: %+v", rules[1])
	}
	if rules[2].Scope != Global {
		t.Errorf("unexpected third rule: %+v", rules[2])
	}
}

func TestLoadMalformedPattern(t *testing.T) {
	path := writeRules(t, "[unclosed\n")
	if _, err := Load(path); err == nil {
		t.Error("expected a compile error for a malformed pattern")
	}
}

func TestFilter(t *testing.T) {
	findings := []checker.Finding{
		{Path: "a.cpp", Line: 1, Message: "unchecked return [cert-err33-c]"},
		{Path: "third_party/zlib/inflate.c", Line: 9, Message: "anything"},
		{Path: "b.cpp", Line: 2, Message: "shadowed variable [misc-shadow]"},
	}
	path := writeRules(t, "cert-err33-c\npath:third_party/\n")
	rules, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	kept := Filter(findings, rules)
	if len(kept) != 1 {
		t.Fatalf("unexpected survivor count. got: %d. expected: 1.", len(kept))
	}
	if kept[0].Path != "b.cpp" {
		t.Errorf("unexpected survivor: %+v", kept[0])
	}
}

func TestFilterNoRulesIsIdentity(t *testing.T) {
	findings := []checker.Finding{
		{Path: "a.cpp", Line: 1, Message: "x"},
		{Path: "b.cpp", Line: 2, Message: "y"},
	}
	kept := Filter(findings, nil)
	if len(kept) != len(findings) {
		t.Fatalf("unexpected survivor count. got: %d. expected: %d.", len(kept), len(findings))
	}
	for i := range findings {
		if kept[i] != findings[i] {
			t.Errorf("finding %d changed: %+v", i, kept[i])
		}
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	findings := []checker.Finding{
		{Path: "z.cpp", Line: 1, Message: "keep one"},
		{Path: "m.cpp", Line: 2, Message: "drop me please"},
		{Path: "a.cpp", Line: 3, Message: "keep two"},
	}
	path := writeRules(t, "drop me\n")
	rules, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	kept := Filter(findings, rules)
	if len(kept) != 2 || kept[0].Path != "z.cpp" || kept[1].Path != "a.cpp" {
		t.Errorf("order not preserved: %+v", kept)
	}
}
