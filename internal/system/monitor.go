package system

import (
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/process"
)

// ResolverDaemons are the local caching resolvers that can hold stale
// hosts-file answers.
var ResolverDaemons = []string{"systemd-resolved", "nscd", "dnsmasq", "unbound", "mDNSResponder"}

type SystemInfo struct {
	Hostname        string   `json:"hostname"`
	OS              string   `json:"os"`
	Platform        string   `json:"platform"`
	PlatformVersion string   `json:"platform_version"`
	Uptime          uint64   `json:"uptime"`
	Resolvers       []string `json:"resolvers"`
}

// GetSystemInfo returns host details and the caching resolvers currently running.
func GetSystemInfo() (*SystemInfo, error) {
	info := &SystemInfo{}

	hostInfo, err := host.Info()
	if err != nil {
		return nil, err
	}
	info.Hostname = hostInfo.Hostname
	info.OS = hostInfo.OS
	info.Platform = hostInfo.Platform
	info.PlatformVersion = hostInfo.PlatformVersion
	info.Uptime = hostInfo.Uptime

	running, err := runningNames()
	if err != nil {
		return info, err
	}
	for _, name := range ResolverDaemons {
		if running[strings.ToLower(name)] {
			info.Resolvers = append(info.Resolvers, name)
		}
	}
	return info, nil
}

// ProcessRunning reports whether any process has the given name.
func ProcessRunning(name string) bool {
	running, err := runningNames()
	if err != nil {
		return false
	}
	return running[strings.ToLower(name)]
}

func runningNames() (map[string]bool, error) {
	processes, err := process.Processes()
	if err != nil {
		return nil, err
	}

	names := make(map[string]bool, len(processes))
	for _, proc := range processes {
		name, err := proc.Name()
		if err != nil {
			continue
		}
		names[strings.ToLower(strings.TrimSuffix(name, ".exe"))] = true
	}
	return names, nil
}
