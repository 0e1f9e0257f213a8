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

// Package options collects the run configuration from the environment
// and the optional .standard.yml project file into one value struct
// that is passed into each component. There is no process-wide state:
// every run is single-shot.
package options

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"gopkg.in/yaml.v2"

	"github.com/standard-ci/diffcheck/basic"
)

const (
	DefaultExtensions           = ".c .cc .cpp .cxx .h .hh .hpp .hxx"
	DefaultStandard             = "c++17"
	DefaultFormatStyle          = "file"
	DefaultFlawfinderErrorLevel = 4
	DefaultDiffQualityThreshold = 90
	DefaultLinter               = "ruff"
)

type Options struct {
	WorkingDir string
	BaseRef    string

	Extensions []string
	// ExtensionsSet records whether the extension list was configured
	// explicitly; when false a check may substitute its own default
	// (e.g. .py for the Python quality gate).
	ExtensionsSet  bool
	ExcludeFile    string
	IgnorePatterns []string

	SuppressionFile string

	IncludeDirs []string
	Standard    string
	FormatStyle string
	ExtraArgs   []string

	FlawfinderErrorLevel int
	DiffQualityThreshold int
	Linter               string

	ResultsDir       string
	BaselineFile     string
	CreateBaseline   bool
	ChangedLinesOnly bool

	ClangTidyBin   string
	CppcheckBin    string
	ClangFormatBin string
	FlawfinderBin  string
	DiffQualityBin string
	IwyuBin        string
}

// projectConfig mirrors the subset of .standard.yml this binary reads.
// The same file also drives the workflow scaffolding tooling, so
// unknown keys are ignored.
type projectConfig struct {
	Extensions  string   `yaml:"extensions"`
	Standard    string   `yaml:"standard"`
	FormatStyle string   `yaml:"format_style"`
	IgnoreDirs  []string `yaml:"ignore_dirs"`
	Suppression string   `yaml:"suppression_file"`
	Excludes    string   `yaml:"exclude_file"`
	Baseline    string   `yaml:"baseline_file"`
}

// New builds the Options for one run. Precedence: environment variables
// win over .standard.yml, which wins over the built-in defaults.
func New(workingDir string) Options {
	opts := Options{
		WorkingDir:           workingDir,
		Extensions:           strings.Fields(DefaultExtensions),
		Standard:             DefaultStandard,
		FormatStyle:          DefaultFormatStyle,
		FlawfinderErrorLevel: DefaultFlawfinderErrorLevel,
		DiffQualityThreshold: DefaultDiffQualityThreshold,
		Linter:               DefaultLinter,
		ClangTidyBin:         "clang-tidy",
		CppcheckBin:          "cppcheck",
		ClangFormatBin:       "clang-format",
		FlawfinderBin:        "flawfinder",
		DiffQualityBin:       "diff-quality",
		IwyuBin:              "include-what-you-use",
	}
	opts.applyConfigFile()
	opts.applyEnvironment()
	return opts
}

func (opts *Options) applyConfigFile() {
	path := opts.WorkingDir + "/.standard.yml"
	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			glog.Warningf("cannot read %s: %v", path, err)
		}
		return
	}
	var config projectConfig
	if err := yaml.Unmarshal(content, &config); err != nil {
		glog.Warningf("cannot parse %s: %v", path, err)
		return
	}
	if config.Extensions != "" {
		opts.Extensions = strings.Fields(config.Extensions)
		opts.ExtensionsSet = true
	}
	if config.Standard != "" {
		opts.Standard = config.Standard
	}
	if config.FormatStyle != "" {
		opts.FormatStyle = config.FormatStyle
	}
	if len(config.IgnoreDirs) > 0 {
		opts.IgnorePatterns = config.IgnoreDirs
	}
	if config.Suppression != "" {
		opts.SuppressionFile = config.Suppression
	}
	if config.Excludes != "" {
		opts.ExcludeFile = config.Excludes
	}
	if config.Baseline != "" {
		opts.BaselineFile = config.Baseline
	}
}

func (opts *Options) applyEnvironment() {
	if v := os.Getenv("DIFFCHECK_EXTENSIONS"); v != "" {
		opts.Extensions = strings.Fields(v)
		opts.ExtensionsSet = true
	}
	if v := os.Getenv("DIFFCHECK_EXCLUDES"); v != "" {
		opts.ExcludeFile = v
	}
	if v := os.Getenv("DIFFCHECK_IGNORE_DIRS"); v != "" {
		opts.IgnorePatterns = strings.Fields(v)
	}
	if v := os.Getenv("DIFFCHECK_SUPPRESSIONS"); v != "" {
		opts.SuppressionFile = v
	}
	if v := os.Getenv("DIFFCHECK_INCLUDE_DIRS"); v != "" {
		opts.IncludeDirs = strings.Fields(v)
	}
	if v := os.Getenv("DIFFCHECK_STANDARD"); v != "" {
		opts.Standard = v
	}
	if v := os.Getenv("DIFFCHECK_FORMAT_STYLE"); v != "" {
		opts.FormatStyle = v
	}
	if v := os.Getenv("DIFFCHECK_EXTRA_ARGS"); v != "" {
		opts.ExtraArgs = basic.SplitArgs(v)
	}
	if v := os.Getenv("DIFFCHECK_RESULTS_DIR"); v != "" {
		opts.ResultsDir = v
	}
	if v := os.Getenv("DIFFCHECK_BASELINE"); v != "" {
		opts.BaselineFile = v
	}
	if v := os.Getenv("DIFFCHECK_CHANGED_LINES_ONLY"); v != "" {
		opts.ChangedLinesOnly = v == "1" || v == "true"
	}
	if v := os.Getenv("DIFFCHECK_LINTER"); v != "" {
		opts.Linter = v
	}
	opts.FlawfinderErrorLevel = intFromEnv("FLAWFINDER_ERROR_LEVEL", opts.FlawfinderErrorLevel)
	opts.DiffQualityThreshold = intFromEnv("DIFF_QUALITY_THRESHOLD", opts.DiffQualityThreshold)
	for env, bin := range map[string]*string{
		"CLANG_TIDY_BIN":   &opts.ClangTidyBin,
		"CPPCHECK_BIN":     &opts.CppcheckBin,
		"CLANG_FORMAT_BIN": &opts.ClangFormatBin,
		"FLAWFINDER_BIN":   &opts.FlawfinderBin,
		"DIFF_QUALITY_BIN": &opts.DiffQualityBin,
		"IWYU_BIN":         &opts.IwyuBin,
	} {
		if v := os.Getenv(env); v != "" {
			*bin = v
		}
	}
}

func intFromEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		glog.Warningf("ignoring %s=%q: %v", name, raw, err)
		return fallback
	}
	return value
}

// Validate rejects combinations that would make a run meaningless.
func (opts Options) Validate() error {
	if opts.BaseRef == "" {
		return fmt.Errorf("missing required base ref argument")
	}
	if len(opts.Extensions) == 0 {
		return fmt.Errorf("empty extension list")
	}
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	return nil
}
