//go:build !unix

package async

import "syscall"

func detachAttr() *syscall.SysProcAttr {
	return nil
}
