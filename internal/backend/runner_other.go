//go:build !unix

package backend

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {}
