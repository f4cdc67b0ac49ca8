//go:build windows

package player

import "syscall"

const detachedProcess = 0x00000008

// detachAttr starts the player outside this console so it survives this
// process.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: detachedProcess}
}
