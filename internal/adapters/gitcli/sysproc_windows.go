//go:build windows

package gitcli

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// hiddenWindowAttr keeps git from flashing a console window.
func hiddenWindowAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}
