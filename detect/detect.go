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

// Package detect identifies project languages from marker files so a
// check can pick a sensible default extension set when none is
// configured.
package detect

import (
	"os"

	"github.com/golang/glog"
)

type Language string

const (
	Cpp    Language = "cpp"
	Python Language = "python"
)

var cppMarkers = []string{"CMakeLists.txt", "package.xml"}
var pythonMarkers = []string{"pyproject.toml", "setup.py", "requirements.txt"}

// Languages returns the language categories detected from top-level
// marker files.
func Languages(dir string) []Language {
	entries, err := os.ReadDir(dir)
	if err != nil {
		glog.Warningf("cannot list %s: %v", dir, err)
		return nil
	}
	names := make(map[string]bool)
	for _, entry := range entries {
		names[entry.Name()] = true
	}
	langs := []Language{}
	if anyPresent(names, cppMarkers) {
		langs = append(langs, Cpp)
	}
	if anyPresent(names, pythonMarkers) {
		langs = append(langs, Python)
	}
	return langs
}

func anyPresent(names map[string]bool, markers []string) bool {
	for _, marker := range markers {
		if names[marker] {
			return true
		}
	}
	return false
}

// DefaultExtensions maps the detected languages onto the extension
// allow list used by the changeset resolver.
func DefaultExtensions(langs []Language) []string {
	extensions := []string{}
	for _, lang := range langs {
		switch lang {
		case Cpp:
			extensions = append(extensions, ".c", ".cc", ".cpp", ".cxx", ".h", ".hh", ".hpp", ".hxx")
		case Python:
			extensions = append(extensions, ".py")
		}
	}
	return extensions
}
