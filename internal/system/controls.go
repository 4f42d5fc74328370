// Package system applies and reverts the opaque, privileged
// system-variance controls from the `system:` configuration key
// (isolate-cpus, disable-aslr, disable-smt, disable-core-boost,
// governor-performance). Each control shells out to the external tool that
// owns the corresponding kernel knob; this package is deliberately
// stdlib-only (os/exec plus sysfs writes) because there is no third-party
// library in the example pack for manipulating cpusets, ASLR personality
// bits, or cpufreq governors — these are host-administration concerns, not
// something a Go library wraps.
package system

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/benchalot/benchalot/internal/errkind"
)

// Guard holds what was changed so Release can undo it.
type Guard struct {
	applied []revertFunc
}

type revertFunc func() error

// Apply brings the system into the configured state. On any failure it
// reverts whatever had already been applied and returns a SystemControlError,
// per §5's "fails to apply -> abort before running any cell" contract.
func Apply(isolateCPUs []int, disableASLR, disableSMT, disableCoreBoost, governorPerformance bool) (*Guard, error) {
	g := &Guard{}

	if len(isolateCPUs) > 0 {
		revert, err := isolateCPUsApply(isolateCPUs)
		if err != nil {
			g.Release()
			return nil, fmt.Errorf("isolate-cpus: %v: %w", err, errkind.SystemControl)
		}
		g.applied = append(g.applied, revert)
	}
	if disableSMT {
		revert, err := smtApply(false)
		if err != nil {
			g.Release()
			return nil, fmt.Errorf("disable-smt: %v: %w", err, errkind.SystemControl)
		}
		g.applied = append(g.applied, revert)
	}
	if disableCoreBoost {
		revert, err := coreBoostApply(false)
		if err != nil {
			g.Release()
			return nil, fmt.Errorf("disable-core-boost: %v: %w", err, errkind.SystemControl)
		}
		g.applied = append(g.applied, revert)
	}
	if governorPerformance {
		revert, err := governorApply("performance")
		if err != nil {
			g.Release()
			return nil, fmt.Errorf("governor-performance: %v: %w", err, errkind.SystemControl)
		}
		g.applied = append(g.applied, revert)
	}
	// disable-aslr is applied per-command (setarch -R prefix), not globally,
	// so it carries no global revert; see ASLRCommand.
	return g, nil
}

// Release reverts every control Apply succeeded in applying, in reverse
// order. Revert failures are swallowed to a warning slice rather than
// returned, matching §5: "if revert fails, the engine reports the failure
// but exits normally".
func (g *Guard) Release() []error {
	var warnings []error
	for i := len(g.applied) - 1; i >= 0; i-- {
		if err := g.applied[i](); err != nil {
			warnings = append(warnings, err)
		}
	}
	g.applied = nil
	return warnings
}

// ASLRCommand wraps a shell command with `setarch -R` when disableASLR is
// set, since ASLR is a per-process personality flag rather than a global
// machine state.
func ASLRCommand(command string, disableASLR bool) string {
	if !disableASLR {
		return command
	}
	return fmt.Sprintf("setarch %s -R /bin/sh -c %s", archName(), strconv.Quote(command))
}

func archName() string {
	out, err := exec.Command("uname", "-m").Output()
	if err != nil {
		return "$(uname -m)"
	}
	return strings.TrimSpace(string(out))
}

func isolateCPUsApply(cpus []int) (revertFunc, error) {
	ids := make([]string, len(cpus))
	for i, c := range cpus {
		ids[i] = strconv.Itoa(c)
	}
	list := strings.Join(ids, ",")
	if err := exec.Command("cset", "shield", "--cpu", list, "--kthread=on").Run(); err != nil {
		return nil, fmt.Errorf("cset shield --cpu %s: %w", list, err)
	}
	return func() error {
		return exec.Command("cset", "shield", "--reset").Run()
	}, nil
}

func smtApply(enabled bool) (revertFunc, error) {
	prior, err := readSysfs(smtControlPath)
	if err != nil {
		return nil, err
	}
	if err := writeSysfs(smtControlPath, smtState(enabled)); err != nil {
		return nil, err
	}
	return func() error { return writeSysfs(smtControlPath, prior) }, nil
}

func coreBoostApply(enabled bool) (revertFunc, error) {
	prior, err := readSysfs(noTurboPath)
	if err != nil {
		return nil, err
	}
	if err := writeSysfs(noTurboPath, boostState(enabled)); err != nil {
		return nil, err
	}
	return func() error { return writeSysfs(noTurboPath, prior) }, nil
}

func governorApply(name string) (revertFunc, error) {
	prior, err := exec.Command("cpupower", "frequency-info", "-p").Output()
	if err != nil {
		return nil, fmt.Errorf("reading current governor: %w", err)
	}
	if err := exec.Command("cpupower", "frequency-set", "-g", name).Run(); err != nil {
		return nil, fmt.Errorf("cpupower frequency-set -g %s: %w", name, err)
	}
	priorGovernor := parseGovernor(string(prior))
	return func() error {
		if priorGovernor == "" {
			return nil
		}
		return exec.Command("cpupower", "frequency-set", "-g", priorGovernor).Run()
	}, nil
}

const (
	smtControlPath = "/sys/devices/system/cpu/smt/control"
	noTurboPath    = "/sys/devices/system/cpu/intel_pstate/no_turbo"
)

func smtState(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func boostState(enabled bool) string {
	// no_turbo: 1 disables boost (turbo), 0 allows it.
	if enabled {
		return "0"
	}
	return "1"
}

func readSysfs(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return strings.TrimSpace(string(b)), nil
}

func writeSysfs(path, value string) error {
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("writing %s to %s: %w", value, path, err)
	}
	return nil
}

func parseGovernor(cpupowerOutput string) string {
	for _, line := range strings.Split(cpupowerOutput, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "governor \"") {
			rest := strings.TrimPrefix(line, "governor \"")
			if idx := strings.Index(rest, "\""); idx >= 0 {
				return rest[:idx]
			}
		}
	}
	return ""
}
