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

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"

	"github.com/standard-ci/diffcheck/basic"
	"github.com/standard-ci/diffcheck/options"
	"github.com/standard-ci/diffcheck/pipeline"
)

var createBaseline = flag.Bool("create-baseline", false,
	"snapshot the surviving findings as the new baseline")
var resultsDir = flag.String("results-dir", "",
	"directory for run metadata (overrides DIFFCHECK_RESULTS_DIR)")

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <check> <base_ref> [extra tool args...]\n",
		filepath.Base(os.Args[0]))
	fmt.Fprintf(os.Stderr, "checks: clang-tidy, cppcheck, clang-format, flawfinder, diff-quality, iwyu\n")
	fmt.Fprintf(os.Stderr, "when installed as <check>-diff, the check argument is omitted\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	defer glog.Flush()

	args := flag.Args()
	invokedAs := filepath.Base(os.Args[0])
	var check pipeline.Check
	var err error
	if check, err = pipeline.CheckFromName(invokedAs); err == nil {
		// installed under a per-tool name; all positionals belong to
		// the tool contract: <base_ref> [extra...]
	} else {
		if len(args) < 1 {
			usage()
			os.Exit(1)
		}
		check, err = pipeline.CheckFromName(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			usage()
			os.Exit(1)
		}
		args = args[1:]
	}
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "missing required base ref argument\n")
		usage()
		os.Exit(1)
	}

	workingDir, err := os.Getwd()
	if err != nil {
		glog.Exitf("os.Getwd: %v", err)
	}
	opts := options.New(workingDir)
	opts.BaseRef = args[0]
	opts.ExtraArgs = append(opts.ExtraArgs, args[1:]...)
	opts.CreateBaseline = *createBaseline
	if *resultsDir != "" {
		opts.ResultsDir = *resultsDir
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	verdict, err := pipeline.Run(basic.ExecCommander{}, check, opts, os.Stdout)
	if err != nil {
		glog.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "%s aborted: %v\n", check, err)
		glog.Flush()
		os.Exit(1)
	}
	glog.Flush()
	os.Exit(verdict.ExitCode)
}
