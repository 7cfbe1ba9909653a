//go:build windows

package harness

import (
	"errors"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

func processGroup(pid int) (int, error) {
	return 0, errors.New("process groups are available only on Unix")
}

func killGroup(pgid int) error {
	return errors.New("process groups are available only on Unix")
}
