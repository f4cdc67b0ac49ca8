//go:build !windows

package player

import "syscall"

// detachAttr puts the player into its own session so it survives this
// process and never turns into a zombie child.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
