//go:build !windows
// +build !windows

package platform

import "os"

// IsPrivileged reports whether the process may edit the hosts file.
func IsPrivileged() bool {
	return os.Geteuid() == 0
}
