package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gajzzs/studyblock/internal/blocker"
	"github.com/gajzzs/studyblock/internal/config"
	"github.com/gajzzs/studyblock/internal/crypto"
	"github.com/gajzzs/studyblock/internal/platform"
	"github.com/gajzzs/studyblock/internal/service"
)

func newBlocker(cmd *cobra.Command) (*blocker.HostsBlocker, error) {
	if !platform.IsPrivileged() {
		fmt.Fprintln(cmd.ErrOrStderr(),
			warningStyle.Render("Warning: editing the hosts file requires administrator/root privileges"))
	}
	return service.NewBlocker(config.GetConfig())
}

// explain adds a hint for the failures users can fix themselves.
func explain(err error) error {
	if errors.Is(err, blocker.ErrPermissionDenied) {
		return fmt.Errorf("%w\nRun this command with sudo or as Administrator", err)
	}
	return err
}

func NewBlockCommand() *cobra.Command {
	var duration int

	cmd := &cobra.Command{
		Use:   "block [hostname...]",
		Short: "Block websites through the hosts file",
		Long: "Replace the managed hosts-file block with entries for the given hostnames.\n" +
			"With no hostnames the configured distracting websites are blocked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig()

			hostnames := args
			if len(hostnames) == 0 {
				hostnames = cfg.DistractingWebsites
			}
			if !cmd.Flags().Changed("duration") {
				duration = cfg.DefaultDuration
			}

			hb, err := newBlocker(cmd)
			if err != nil {
				return err
			}
			res, err := hb.Block(hostnames, duration)
			if err != nil {
				return explain(err)
			}

			out := cmd.OutOrStdout()
			if Flags.JSON {
				return writeJSON(out, res)
			}
			fmt.Fprintln(out, successStyle.Render(
				fmt.Sprintf("Blocked %d websites for %d minutes", res.BlockedCount, res.DurationMinutes)))
			printList(out, res.Hostnames, "")
			printWarnings(cmd.ErrOrStderr(), res.Warnings)
			fmt.Fprintln(out, dimStyle.Render("Run 'studyblock unblock' to lift the block."))
			return nil
		},
	}

	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "study session length in minutes (default from config)")
	return cmd
}

func NewUnblockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock",
		Short: "Remove the managed block from the hosts file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hb, err := newBlocker(cmd)
			if err != nil {
				return err
			}
			res, err := hb.Unblock()
			if err != nil {
				return explain(err)
			}

			out := cmd.OutOrStdout()
			if Flags.JSON {
				return writeJSON(out, res)
			}
			if res.RemovedEntries == 0 {
				fmt.Fprintln(out, dimStyle.Render("No websites were blocked"))
			} else {
				fmt.Fprintln(out, successStyle.Render(
					fmt.Sprintf("Unblocked websites (%d entries removed)", res.RemovedEntries)))
			}
			printWarnings(cmd.ErrOrStderr(), res.Warnings)
			return nil
		},
	}
}

func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List websites in the managed hosts-file block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hb, err := service.NewBlocker(config.GetConfig())
			if err != nil {
				return err
			}
			sites, err := hb.ManagedHostnames()
			if err != nil {
				return explain(err)
			}

			out := cmd.OutOrStdout()
			if Flags.JSON {
				return writeJSON(out, map[string]interface{}{
					"hosts_path":    hb.HostsPath(),
					"blocked_sites": sites,
				})
			}
			printTitle(out, "Blocked Websites:")
			printList(out, sites, "none")
			return nil
		},
	}
}

func NewRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Restore the hosts file from the backup taken before the last block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hb, err := newBlocker(cmd)
			if err != nil {
				return err
			}
			if err := hb.RestoreBackup(); err != nil {
				return explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(
				fmt.Sprintf("Restored %s from %s", hb.HostsPath(), hb.BackupPath())))
			return nil
		},
	}
}

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the studyblock configuration",
		// Skip loading: init must work before a config file exists.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := Flags.ConfigPath
			if path == "" {
				path = config.ConfigFile
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Wrote "+path))
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	hashCmd := &cobra.Command{
		Use:   "hash-key [key]",
		Short: "Hash an API key for api_key_hash (generates one if omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := uuid.NewString()
			if len(args) == 1 {
				key = args[0]
			}
			hash := crypto.HashAPIKey(key)

			out := cmd.OutOrStdout()
			if Flags.JSON {
				return writeJSON(out, map[string]string{"api_key": key, "api_key_hash": hash})
			}
			printField(out, "API key", key)
			printField(out, "api_key_hash", hash)
			return nil
		},
	}

	cmd.AddCommand(initCmd, hashCmd)
	return cmd
}

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, err := service.NewServiceManager(config.GetConfig(), Flags.ConfigPath)
			if err != nil {
				return err
			}
			return sm.Run()
		},
	}
}

func NewServiceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the studyblock system service",
	}

	action := func(use, short, done string, run func(*service.ServiceManager) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				sm, err := service.NewServiceManager(config.GetConfig(), Flags.ConfigPath)
				if err != nil {
					return err
				}
				if err := run(sm); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(done))
				return nil
			},
		}
	}

	cmd.AddCommand(
		action("install", "Install studyblock as a system service", "Service installed",
			func(sm *service.ServiceManager) error {
				if !platform.IsPrivileged() {
					return fmt.Errorf("installing the service requires administrator/root privileges")
				}
				return sm.Install()
			}),
		action("uninstall", "Remove the studyblock system service", "Service uninstalled",
			func(sm *service.ServiceManager) error { return sm.Uninstall() }),
		action("start", "Start the studyblock service", "Service started",
			func(sm *service.ServiceManager) error { return sm.Start() }),
		action("stop", "Stop the studyblock service", "Service stopped",
			func(sm *service.ServiceManager) error { return sm.Stop() }),
		&cobra.Command{
			Use:   "status",
			Short: "Check service status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				sm, err := service.NewServiceManager(config.GetConfig(), Flags.ConfigPath)
				if err != nil {
					return err
				}
				status, err := sm.Status()
				if err != nil {
					status = "Not installed"
				}
				out := cmd.OutOrStdout()
				if Flags.JSON {
					return writeJSON(out, map[string]string{
						"status": status,
						"config": service.GetServiceConfigPath(),
					})
				}
				printField(out, "Service status", status)
				printField(out, "Service config", service.GetServiceConfigPath())
				return nil
			},
		},
	)

	return cmd
}
