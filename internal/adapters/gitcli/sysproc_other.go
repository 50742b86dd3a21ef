//go:build !windows

package gitcli

import "syscall"

func hiddenWindowAttr() *syscall.SysProcAttr {
	return nil
}
