package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gajzzs/studyblock/internal/blocker"
	"github.com/gajzzs/studyblock/internal/config"
	"github.com/gajzzs/studyblock/internal/platform"
	"github.com/gajzzs/studyblock/internal/server"
)

const shutdownTimeout = 5 * time.Second

// Daemon hosts the HTTP API and the hosts-file monitor.
type Daemon struct {
	cfg     *config.Config
	blocker *blocker.HostsBlocker
	server  *server.Server
	monitor *HostsMonitor

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewBlocker builds the hosts blocker described by cfg.
func NewBlocker(cfg *config.Config) (*blocker.HostsBlocker, error) {
	var flusher blocker.CacheFlusher
	if cfg.FlushCache {
		p, err := platform.Current()
		if err != nil {
			return nil, err
		}
		flusher = platform.NewCommandFlusher(p)
	}
	return blocker.NewHostsBlocker(cfg.HostsPath, cfg.BackupSuffix, flusher), nil
}

func NewDaemon(cfg *config.Config) (*Daemon, error) {
	hb, err := NewBlocker(cfg)
	if err != nil {
		return nil, err
	}
	return &Daemon{
		cfg:     cfg,
		blocker: hb,
		server:  server.NewServer(hb, cfg),
		monitor: NewHostsMonitor(hb),
	}, nil
}

func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("daemon already running")
	}
	log.Println("studyblock daemon starting...")

	if !platform.IsPrivileged() {
		log.Println("Warning: website blocking requires administrator/root privileges; block requests will fail")
	}

	if err := d.server.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	if err := d.monitor.Start(ctx); err != nil {
		log.Printf("Warning: hosts file monitor unavailable: %v", err)
	}

	d.running = true
	log.Println("studyblock daemon started successfully")
	return nil
}

// Stop shuts the API down and, when configured, removes the managed block.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return fmt.Errorf("daemon not running")
	}
	log.Println("Stopping studyblock daemon...")

	d.cancel()
	d.running = false

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.server.Shutdown(ctx); err != nil {
		log.Printf("Warning: HTTP shutdown: %v", err)
	}

	if d.cfg.UnblockOnStop {
		res, err := d.blocker.Unblock()
		if err != nil {
			return fmt.Errorf("failed to unblock websites on stop: %w", err)
		}
		log.Printf("Unblocked websites on stop (%d entries removed)", res.RemovedEntries)
	}
	return nil
}

func (d *Daemon) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}
