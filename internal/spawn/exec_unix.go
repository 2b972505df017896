package spawn

import (
	"context"
	"os/exec"
	"syscall"
)

func newCmd(ctx context.Context, argv []string) *exec.Cmd {
	return exec.CommandContext(ctx, argv[0], argv[1:]...)
}

// setDetached makes the child its own session leader so it survives this
// process exiting, satisfying the Spawn primitive's detachment contract
// without a full double-fork.
func setDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
