// Tool setup for workflow setup steps: resolve the requested program on
// PATH, probe its version, and enforce the requested version constraint.
package checkout

import (
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/sluiceworks/sluice/executor"
)

// pythonPrograms lists the interpreter names probed for setup-python steps,
// in preference order.
var pythonPrograms = []string{"python3", "python"}

// versionPattern extracts the first dotted version number from a tool's
// --version output ("Python 3.9.7" -> "3.9.7").
var versionPattern = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)

// partialVersionPattern matches a bare major or major.minor request that
// should be widened to a range ("3.9" -> "3.9.x").
var partialVersionPattern = regexp.MustCompile(`^\d+(?:\.\d+)?$`)

// ToolRequest names a tool a setup step needs and the version it accepts.
type ToolRequest struct {
	// Name is the program name resolved on PATH.
	Name string

	// Version is the requested version. A bare major or major.minor
	// ("3", "3.9") accepts any release in that line; a full version or any
	// constraint expression Masterminds/semver understands is used as-is.
	// Empty accepts whatever is installed.
	Version string
}

// ToolInfo describes a tool a setup step resolved.
type ToolInfo struct {
	// Name is the program name that resolved.
	Name string

	// Path is the absolute path the program resolved to.
	Path string

	// Version is the version the program reported, empty when no version
	// was requested and the probe produced none.
	Version string
}

// SetupTool resolves a tool on PATH and verifies its version against the
// request. The tool is probed with --version; a missing tool returns
// ErrToolMissing and an unsatisfied or undeterminable version returns
// ErrVersionMismatch.
func SetupTool(ctx context.Context, req ToolRequest) (*ToolInfo, error) {
	if req.Name == "" {
		return nil, WrapError(ErrToolMissing, "tool name cannot be empty")
	}

	path, err := exec.LookPath(req.Name)
	if err != nil {
		return nil, WrapErrorf(ErrToolMissing, "%s not on PATH", req.Name)
	}

	info := &ToolInfo{Name: req.Name, Path: path}

	version, probeErr := probeVersion(ctx, path)
	if probeErr != nil {
		// Without a constraint the probe is informational only.
		if req.Version == "" {
			return info, nil
		}
		return nil, WrapErrorf(ErrVersionMismatch, "cannot determine %s version", req.Name)
	}
	info.Version = version

	if req.Version == "" {
		return info, nil
	}

	constraint, err := semver.NewConstraint(constraintFor(req.Version))
	if err != nil {
		return nil, WrapErrorf(ErrVersionMismatch, "invalid version request %q", req.Version)
	}

	actual, err := semver.NewVersion(version)
	if err != nil {
		return nil, WrapErrorf(ErrVersionMismatch, "cannot parse %s version %q", req.Name, version)
	}

	if !constraint.Check(actual) {
		return nil, WrapErrorf(
			ErrVersionMismatch,
			"%s is %s, requested %s",
			req.Name, version, req.Version,
		)
	}

	return info, nil
}

// SetupPython resolves a python interpreter satisfying the requested
// version, preferring python3 over python. Version follows the
// python-version convention of setup steps: "3.9" accepts any 3.9.x.
func SetupPython(ctx context.Context, version string) (*ToolInfo, error) {
	var lastErr error

	for _, name := range pythonPrograms {
		info, err := SetupTool(ctx, ToolRequest{Name: name, Version: version})
		if err == nil {
			return info, nil
		}

		// A present-but-unsuitable interpreter is more useful to report
		// than a later name missing from PATH entirely.
		if lastErr == nil || !errors.Is(err, ErrToolMissing) {
			lastErr = err
		}
	}

	return nil, lastErr
}

// probeVersion runs the tool with --version and extracts the reported
// version number. Some tools print the version on stderr, so both streams
// are searched.
func probeVersion(ctx context.Context, path string) (string, error) {
	result, err := executor.NewTool(path).Execute(ctx, []string{"--version"}, executor.SilentMode())
	if err != nil {
		return "", err
	}

	output := strings.TrimSpace(result.Stdout)
	if output == "" {
		output = strings.TrimSpace(result.Stderr)
	}

	version := versionPattern.FindString(output)
	if version == "" {
		return "", WrapErrorf(ErrVersionMismatch, "no version in %q", output)
	}

	return version, nil
}

// constraintFor widens a bare major or major.minor request into a wildcard
// range so "3.9" accepts 3.9.7 but not 3.10. Anything else is already a
// constraint expression and passes through.
func constraintFor(requested string) string {
	if partialVersionPattern.MatchString(requested) {
		return requested + ".x"
	}
	return requested
}
