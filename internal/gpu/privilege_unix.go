//go:build unix

package gpu

import "golang.org/x/sys/unix"

func isRoot() bool {
	return unix.Geteuid() == 0
}
