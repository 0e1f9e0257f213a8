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

/*
This package should not import any other package of this module to
avoid recursive import.
*/
package basic

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/shlex"
)

// Commander runs an external tool and captures its merged stdout and
// stderr. Checkers take a Commander instead of calling exec directly so
// parser tests can substitute canned output for a real binary.
type Commander interface {
	CombinedOutput(bin string, args []string, dir string) ([]byte, int, error)
}

// ExecCommander is the real Commander backed by exec.Command.
type ExecCommander struct{}

// CombinedOutput runs bin with args in dir. Tools emit diagnostics on
// both streams, so the two are merged. A non-zero exit status is not an
// error here: several tools exit 1 to mean "violations found", so the
// status is returned for the caller to interpret. The returned error is
// non-nil only when the process could not be spawned at all.
func (ExecCommander) CombinedOutput(bin string, args []string, dir string) ([]byte, int, error) {
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	glog.Info("executing: ", cmd.String())
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, exitErr.ExitCode(), nil
		}
		return out, -1, err
	}
	return out, 0, nil
}

func PrintfWithTimeStamp(format string, arg ...any) {
	prefix := fmt.Sprintf("%v ", time.Now().Format("2006-01-02 15:04:05"))
	message := fmt.Sprintf(prefix+format, arg...)
	fmt.Println(message)
	glog.Info(message)
}

func FormatTimeDuration(d time.Duration) string {
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	if ms == 0 {
		return fmt.Sprintf("%ds", s)
	}
	for ms%10 == 0 && ms != 0 {
		ms = ms / 10
	}
	return fmt.Sprintf("%d.%ds", s, ms)
}

// SplitArgs splits a shell-quoted argument string from the environment
// or the config file into an argv slice.
func SplitArgs(raw string) []string {
	if raw == "" {
		return nil
	}
	args, err := shlex.Split(raw)
	if err != nil {
		glog.Warningf("shlex.Split: %v", raw)
		return nil
	}
	return args
}

// LoadRuleFile reads a rule file in the shared line-oriented format:
// one rule per line, '#' starts a comment to end of line, blank lines
// ignored, surrounding whitespace trimmed. Exclude files and
// suppression files use the same syntax.
func LoadRuleFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	rules := []string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx != -1 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rules = append(rules, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}
