// Package version detects the MongoDB server binary's release version so
// the Planner can make version-gated decisions (config-server shape, TLS
// flag family) without branching on a raw string anywhere else.
package version

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/p-mongodb/mongo-manager/internal/model"
)

var versionPattern = regexp.MustCompile(`db version v(\d+\.\d+\.\d+)`)

// Detector probes a server binary's version once per process and caches
// the result, since every Planner decision within one run asks the same
// question.
type Detector struct {
	mu       sync.Mutex
	cache    map[string]*semver.Version
	runFn    func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New creates a Detector that shells out to the real binary.
func New() *Detector {
	return &Detector{
		cache: make(map[string]*semver.Version),
		runFn: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// Detect invokes "<binDir>/mongod --version" and parses the first
// "db version v<MAJOR>.<MINOR>.<PATCH>" occurrence from its stdout. The
// binary path must not contain whitespace; that is rejected up front
// rather than shelled out to, since it could otherwise be (mis)interpreted
// as multiple arguments downstream.
func (d *Detector) Detect(ctx context.Context, binDir string) (*semver.Version, error) {
	binaryPath := "mongod"
	if binDir != "" {
		binaryPath = filepath.Join(binDir, "mongod")
	}

	if strings.ContainsAny(binaryPath, " \t\n") {
		return nil, &model.VersionProbeError{
			BinaryPath: binaryPath,
			Cause:      fmt.Errorf("binary path must not contain whitespace"),
		}
	}

	d.mu.Lock()
	if v, ok := d.cache[binaryPath]; ok {
		d.mu.Unlock()
		return v, nil
	}
	d.mu.Unlock()

	out, err := d.runFn(ctx, binaryPath, "--version")
	if err != nil {
		return nil, &model.VersionProbeError{BinaryPath: binaryPath, Cause: err}
	}

	match := versionPattern.FindStringSubmatch(string(out))
	if match == nil {
		return nil, &model.VersionProbeError{
			BinaryPath: binaryPath,
			Cause:      fmt.Errorf("no version string found in output"),
		}
	}

	v, err := semver.NewVersion(match[1])
	if err != nil {
		return nil, &model.VersionProbeError{BinaryPath: binaryPath, Cause: err}
	}

	d.mu.Lock()
	d.cache[binaryPath] = v
	d.mu.Unlock()

	return v, nil
}
