package app

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gajzzs/studyblock/internal/config"
	"github.com/gajzzs/studyblock/internal/platform"
	"github.com/gajzzs/studyblock/internal/service"
	"github.com/gajzzs/studyblock/internal/system"
)

type statusReport struct {
	HostsPath     string             `json:"hosts_path"`
	BackupPath    string             `json:"backup_path"`
	BackupPresent bool               `json:"backup_present"`
	BlockedSites  []string           `json:"blocked_sites"`
	HostsError    string             `json:"hosts_error,omitempty"`
	Privileged    bool               `json:"privileged"`
	Service       string             `json:"service"`
	ListenAddr    string             `json:"listen_addr"`
	System        *system.SystemInfo `json:"system,omitempty"`
}

func collectStatus(cfg *config.Config) (*statusReport, error) {
	hb, err := service.NewBlocker(cfg)
	if err != nil {
		return nil, err
	}

	report := &statusReport{
		HostsPath:  hb.HostsPath(),
		BackupPath: hb.BackupPath(),
		Privileged: platform.IsPrivileged(),
		Service:    "Not available",
		ListenAddr: cfg.ListenAddr,
	}

	if _, err := os.Stat(hb.BackupPath()); err == nil {
		report.BackupPresent = true
	}
	if sites, err := hb.ManagedHostnames(); err == nil {
		report.BlockedSites = sites
	} else {
		report.HostsError = err.Error()
	}

	if sm, err := service.NewServiceManager(cfg, Flags.ConfigPath); err == nil {
		if status, err := sm.Status(); err == nil {
			report.Service = status
		} else {
			report.Service = "Not installed"
		}
	}

	// Partial host details are still worth showing.
	report.System, _ = system.GetSystemInfo()
	return report, nil
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:                   "status",
		Short:                 "Show blocking, service and system status",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := collectStatus(config.GetConfig())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if Flags.JSON {
				return writeJSON(out, report)
			}

			printTitle(out, "studyblock status")

			printTitle(out, "\nHosts File:")
			printField(out, "Path", report.HostsPath)
			if report.HostsError != "" {
				printField(out, "Error", warningStyle.Render(report.HostsError))
			}
			printField(out, "Backup", report.BackupPath)
			printField(out, "Backup present", report.BackupPresent)
			printField(out, "Privileged", report.Privileged)

			printTitle(out, "\nBlocked Websites:")
			printList(out, report.BlockedSites, "none")

			printTitle(out, "\nService:")
			printField(out, "Status", report.Service)
			printField(out, "Config", service.GetServiceConfigPath())
			printField(out, "Listen address", report.ListenAddr)

			if info := report.System; info != nil {
				printTitle(out, "\nSystem Information:")
				printField(out, "Hostname", info.Hostname)
				printField(out, "OS", info.OS+" "+info.Platform+" "+info.PlatformVersion)
				resolvers := "none detected"
				if len(info.Resolvers) > 0 {
					resolvers = strings.Join(info.Resolvers, ", ")
				}
				printField(out, "Caching resolvers", resolvers)
			}
			return nil
		},
	}
}
