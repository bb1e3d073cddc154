// Copyright 2026 symforge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build unix

package autowrap

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcGroup puts the compiler in its own process group so a timeout
// can kill the whole toolchain tree, not just the driver.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
}

// transientSpawn reports spawn-time failures worth a single retry:
// resource pressure or a racing writer holding the binary open. A
// missing compiler is permanent.
func transientSpawn(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.ETXTBSY) || errors.Is(err, unix.EINTR)
}
