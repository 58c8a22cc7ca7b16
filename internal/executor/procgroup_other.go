//go:build !unix

package executor

import (
	"errors"
	"os"
	"os/exec"
)

func startProcessGroup(*exec.Cmd) {}

// killProcessGroup can only reach the direct child on this platform.
func killProcessGroup(p *os.Process) error {
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func exitStatus(err error) (int32, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, err
	}
	return int32(exitErr.ExitCode()), nil
}
