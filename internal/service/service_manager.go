package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kardianos/service"

	"github.com/gajzzs/studyblock/internal/config"
)

const serviceName = "studyblock"

type ServiceManager struct {
	service service.Service
	daemon  *Daemon
}

type program struct {
	daemon *Daemon
	logger service.Logger
}

func (p *program) Start(s service.Service) error {
	if p.logger != nil {
		p.logger.Info("Starting studyblock service...")
	}
	return p.daemon.Start()
}

func (p *program) Stop(s service.Service) error {
	if p.logger != nil {
		p.logger.Info("Stopping studyblock service...")
	}
	return p.daemon.Stop()
}

// NewServiceManager wires the daemon into the platform service manager.
// configPath is passed to the installed service so it loads the same file.
func NewServiceManager(cfg *config.Config, configPath string) (*ServiceManager, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	args := []string{"serve"}
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", abs)
	}

	svcConfig := &service.Config{
		Name:        serviceName,
		DisplayName: "studyblock website blocker",
		Description: "Blocks distracting websites through the hosts file during study sessions",
		Executable:  execPath,
		Arguments:   args,
		Option: service.KeyValue{
			"RunAtLoad": true,
			"KeepAlive": true,
		},
	}

	daemon, err := NewDaemon(cfg)
	if err != nil {
		return nil, err
	}
	prg := &program{daemon: daemon}

	svc, err := service.New(prg, svcConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %v", err)
	}
	if logger, err := svc.Logger(nil); err == nil {
		prg.logger = logger
	}

	return &ServiceManager{
		service: svc,
		daemon:  daemon,
	}, nil
}

func (sm *ServiceManager) Install() error {
	return sm.service.Install()
}

func (sm *ServiceManager) Uninstall() error {
	return sm.service.Uninstall()
}

func (sm *ServiceManager) Start() error {
	return sm.service.Start()
}

func (sm *ServiceManager) Stop() error {
	return sm.service.Stop()
}

func (sm *ServiceManager) Status() (string, error) {
	status, err := sm.service.Status()
	if err != nil {
		return "Unknown", err
	}

	switch status {
	case service.StatusRunning:
		return "Running", nil
	case service.StatusStopped:
		return "Stopped", nil
	case service.StatusUnknown:
		return "Unknown", nil
	default:
		return fmt.Sprintf("Status(%d)", int(status)), nil
	}
}

// Run blocks until the service manager, or Ctrl+C in a terminal, stops it.
func (sm *ServiceManager) Run() error {
	return sm.service.Run()
}

// GetServiceConfigPath returns platform-specific service config path
func GetServiceConfigPath() string {
	switch service.Platform() {
	case "linux-systemd":
		return "/etc/systemd/system/" + serviceName + ".service"
	case "darwin-launchd":
		return "/Library/LaunchDaemons/" + serviceName + ".plist"
	case "windows-service":
		return "Registry: HKEY_LOCAL_MACHINE\\SYSTEM\\CurrentControlSet\\Services\\" + serviceName
	default:
		return "Unknown platform"
	}
}
