package platform

import (
	"fmt"
	"runtime"
)

// FlushCommand is one resolver-cache flush step. When Process is set the
// command only runs if a process with that name is alive.
type FlushCommand struct {
	Process string
	Args    []string
}

// Platform holds everything that differs between OS families.
type Platform struct {
	Name          string
	HostsPath     string
	FlushCommands []FlushCommand
}

const (
	unixHostsPath    = "/etc/hosts"
	windowsHostsPath = `C:\Windows\System32\drivers\etc\hosts`
)

var bsd = Platform{
	HostsPath: unixHostsPath,
	FlushCommands: []FlushCommand{
		{Process: "unbound", Args: []string{"unbound-control", "flush_zone", "."}},
	},
}

var platforms = map[string]Platform{
	"linux": {
		Name:      "linux",
		HostsPath: unixHostsPath,
		FlushCommands: []FlushCommand{
			{Process: "systemd-resolved", Args: []string{"systemctl", "restart", "systemd-resolved"}},
			{Process: "nscd", Args: []string{"nscd", "-i", "hosts"}},
		},
	},
	"darwin": {
		Name:      "darwin",
		HostsPath: unixHostsPath,
		FlushCommands: []FlushCommand{
			{Args: []string{"dscacheutil", "-flushcache"}},
			{Process: "mDNSResponder", Args: []string{"killall", "-HUP", "mDNSResponder"}},
		},
	},
	"windows": {
		Name:      "windows",
		HostsPath: windowsHostsPath,
		FlushCommands: []FlushCommand{
			{Args: []string{"ipconfig", "/flushdns"}},
		},
	},
	"freebsd": withName(bsd, "freebsd"),
	"openbsd": withName(bsd, "openbsd"),
	"netbsd":  withName(bsd, "netbsd"),
}

func withName(p Platform, name string) Platform {
	p.Name = name
	return p
}

// Lookup returns the platform entry for a GOOS value.
func Lookup(goos string) (Platform, error) {
	p, ok := platforms[goos]
	if !ok {
		return Platform{}, fmt.Errorf("unsupported platform: %s", goos)
	}
	return p, nil
}

// Current returns the entry for the running OS.
func Current() (Platform, error) {
	return Lookup(runtime.GOOS)
}

// HostsPath resolves the hosts file location for goos.
func HostsPath(goos string) (string, error) {
	p, err := Lookup(goos)
	if err != nil {
		return "", err
	}
	return p.HostsPath, nil
}
