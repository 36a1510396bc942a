//go:build windows
// +build windows

package platform

import "os"

// IsPrivileged reports whether the process runs elevated. Opening the raw
// physical drive only succeeds for administrators.
func IsPrivileged() bool {
	f, err := os.Open(`\\.\PHYSICALDRIVE0`)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
