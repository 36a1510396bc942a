package service

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const monitorDebounce = 500 * time.Millisecond

// BlockState is what the monitor compares: the in-memory set against the
// live managed block.
type BlockState interface {
	HostsPath() string
	BlockedWebsites() []string
	ManagedHostnames() ([]string, error)
}

// HostsMonitor watches the hosts file and logs when the managed block no
// longer matches what this process believes it blocked. It only reports;
// it never rewrites the file.
type HostsMonitor struct {
	state BlockState

	mu       sync.Mutex
	lastDiff string
	onDrift  func(believed, actual []string)
}

func NewHostsMonitor(state BlockState) *HostsMonitor {
	return &HostsMonitor{state: state}
}

// Start watches the hosts file's directory until ctx is cancelled. The
// directory is watched so that editors replacing the file are still seen.
func (hm *HostsMonitor) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	path := filepath.Clean(hm.state.HostsPath())
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	log.Printf("Watching %s for external changes", path)
	go hm.loop(ctx, watcher, path)
	return nil
}

func (hm *HostsMonitor) loop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	defer watcher.Close()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(monitorDebounce, hm.Check)
			} else {
				timer.Reset(monitorDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Hosts monitor error: %v", err)
		}
	}
}

// Check compares the in-memory set with the live file and logs drift once
// per distinct mismatch.
func (hm *HostsMonitor) Check() {
	actual, err := hm.state.ManagedHostnames()
	if err != nil {
		log.Printf("Hosts monitor: failed to read hosts file: %v", err)
		return
	}
	believed := hm.state.BlockedWebsites()

	diff := ""
	if !sameSet(believed, actual) {
		diff = strings.Join(believed, ",") + "|" + strings.Join(actual, ",")
	}

	hm.mu.Lock()
	changed := diff != hm.lastDiff
	hm.lastDiff = diff
	onDrift := hm.onDrift
	hm.mu.Unlock()

	if diff == "" || !changed {
		return
	}
	log.Printf("Warning: hosts file changed outside studyblock: managed block lists %v, daemon believes %v",
		actual, believed)
	if onDrift != nil {
		onDrift(believed, actual)
	}
}

func sameSet(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	other := make(map[string]bool, len(b))
	for _, s := range b {
		if !set[s] {
			return false
		}
		other[s] = true
	}
	return len(set) == len(other)
}
