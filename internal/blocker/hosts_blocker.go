package blocker

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

// DefaultBackupSuffix is appended to the hosts path to name the backup copy.
const DefaultBackupSuffix = ".studyblock.bak"

// CacheFlusher discards cached name lookups so hosts edits apply at once.
type CacheFlusher interface {
	Flush() error
}

// BlockResult is reported after a successful Block. DurationMinutes is an
// annotation for the caller; nothing unblocks automatically when it elapses.
type BlockResult struct {
	BlockedCount    int      `json:"blocked_count"`
	Hostnames       []string `json:"blocked_sites"`
	DurationMinutes int      `json:"duration"`
	Warnings        []string `json:"warnings,omitempty"`
}

type UnblockResult struct {
	Success        bool     `json:"success"`
	RemovedEntries int      `json:"removed_entries"`
	Warnings       []string `json:"warnings,omitempty"`
}

// HostsBlocker redirects hostnames to loopback through a marker-delimited
// block in the hosts file. Every call re-reads the file; nothing about its
// contents is cached between calls.
type HostsBlocker struct {
	hostsPath  string
	backupPath string
	flusher    CacheFlusher

	mu           sync.Mutex
	blockedSites map[string]bool
}

// NewHostsBlocker creates a blocker for the hosts file at hostsPath. An empty
// backupSuffix selects DefaultBackupSuffix; a nil flusher skips cache flushes.
func NewHostsBlocker(hostsPath, backupSuffix string, flusher CacheFlusher) *HostsBlocker {
	if backupSuffix == "" {
		backupSuffix = DefaultBackupSuffix
	}
	return &HostsBlocker{
		hostsPath:    hostsPath,
		backupPath:   hostsPath + backupSuffix,
		flusher:      flusher,
		blockedSites: make(map[string]bool),
	}
}

func (hb *HostsBlocker) HostsPath() string  { return hb.hostsPath }
func (hb *HostsBlocker) BackupPath() string { return hb.backupPath }

// Block replaces any existing managed block with entries for hostnames.
func (hb *HostsBlocker) Block(hostnames []string, durationMinutes int) (*BlockResult, error) {
	hosts, err := normalizeHostnames(hostnames)
	if err != nil {
		return nil, err
	}
	if durationMinutes <= 0 {
		return nil, invalidArgument(fmt.Sprintf("duration must be a positive number of minutes, got %d", durationMinutes))
	}

	hb.mu.Lock()
	defer hb.mu.Unlock()

	var warnings []string
	if err := hb.backup(); err != nil {
		log.Printf("Warning: %v", err)
		warnings = append(warnings, err.Error())
	}

	lines, err := hb.readLines()
	if err != nil {
		return nil, err
	}

	if _, _, found := stripManaged(lines); found {
		if _, err := hb.unblockLocked(); err != nil {
			return nil, err
		}
		if lines, err = hb.readLines(); err != nil {
			return nil, err
		}
	}

	eol := lineEnding(lines)
	if n := len(lines); n > 0 && !strings.HasSuffix(lines[n-1], "\n") {
		lines[n-1] += eol
	}
	lines = append(lines, blockLines(hosts, eol)...)

	if err := hb.writeLines(lines); err != nil {
		return nil, err
	}

	if err := hb.flush(); err != nil {
		log.Printf("Warning: %v", err)
		warnings = append(warnings, err.Error())
	}

	hb.blockedSites = make(map[string]bool, len(hosts))
	for _, h := range hosts {
		hb.blockedSites[h] = true
	}

	log.Printf("Blocked %d websites for %d minutes", len(hosts), durationMinutes)
	return &BlockResult{
		BlockedCount:    len(hosts),
		Hostnames:       hosts,
		DurationMinutes: durationMinutes,
		Warnings:        warnings,
	}, nil
}

// Unblock removes the managed block. With no block present it succeeds
// without touching the file.
func (hb *HostsBlocker) Unblock() (*UnblockResult, error) {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	res, err := hb.unblockLocked()
	if err != nil {
		return nil, err
	}
	if res.RemovedEntries > 0 {
		if err := hb.flush(); err != nil {
			log.Printf("Warning: %v", err)
			res.Warnings = append(res.Warnings, err.Error())
		}
		log.Printf("Unblocked websites (%d entries removed)", res.RemovedEntries)
	}
	return res, nil
}

func (hb *HostsBlocker) unblockLocked() (*UnblockResult, error) {
	lines, err := hb.readLines()
	if err != nil {
		return nil, err
	}

	kept, removed, found := stripManaged(lines)
	if found {
		if err := hb.writeLines(kept); err != nil {
			return nil, err
		}
	}

	hb.blockedSites = make(map[string]bool)
	return &UnblockResult{Success: true, RemovedEntries: removed}, nil
}

// BlockedWebsites returns what this process believes it has blocked since
// it started. It is not re-derived from the hosts file; see ManagedHostnames.
func (hb *HostsBlocker) BlockedWebsites() []string {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	sites := make([]string, 0, len(hb.blockedSites))
	for site := range hb.blockedSites {
		sites = append(sites, site)
	}
	sort.Strings(sites)
	return sites
}

// ManagedHostnames reads the live hosts file and returns the hostnames in its
// managed block.
func (hb *HostsBlocker) ManagedHostnames() ([]string, error) {
	lines, err := hb.readLines()
	if err != nil {
		return nil, err
	}
	return managedHosts(lines), nil
}

// RestoreBackup copies the backup over the hosts file. It is a manual
// recovery step and is never run by Block or Unblock.
func (hb *HostsBlocker) RestoreBackup() error {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	if _, err := os.Stat(hb.backupPath); err != nil {
		return fileError(StageRead, hb.backupPath, err)
	}
	if err := copyFile(hb.backupPath, hb.hostsPath); err != nil {
		return fileError(StageWrite, hb.hostsPath, err)
	}

	hb.blockedSites = make(map[string]bool)
	if lines, err := hb.readLines(); err == nil {
		for _, h := range managedHosts(lines) {
			hb.blockedSites[h] = true
		}
	}
	log.Printf("Restored %s from %s", hb.hostsPath, hb.backupPath)
	return nil
}

func (hb *HostsBlocker) backup() error {
	if err := copyFile(hb.hostsPath, hb.backupPath); err != nil {
		return &Error{
			Kind:  KindBackupFailure,
			Stage: StageBackup,
			Path:  hb.backupPath,
			Msg:   "failed to back up hosts file to " + hb.backupPath,
			Err:   err,
		}
	}
	return nil
}

func (hb *HostsBlocker) flush() error {
	if hb.flusher == nil {
		return nil
	}
	if err := hb.flusher.Flush(); err != nil {
		return &Error{
			Kind:  KindCacheFlushFailure,
			Stage: StageFlush,
			Msg:   "hosts file updated but DNS cache flush failed",
			Err:   err,
		}
	}
	return nil
}

func (hb *HostsBlocker) readLines() ([]string, error) {
	content, err := os.ReadFile(hb.hostsPath)
	if err != nil {
		return nil, fileError(StageRead, hb.hostsPath, err)
	}
	return splitLines(string(content)), nil
}

// writeLines truncates and rewrites the file in place. Renaming a temp file
// over the hosts file is avoided because /etc/hosts is often a bind mount.
func (hb *HostsBlocker) writeLines(lines []string) error {
	f, err := os.OpenFile(hb.hostsPath, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fileError(StageWrite, hb.hostsPath, err)
	}
	if _, err := f.Write(joinLines(lines)); err != nil {
		f.Close()
		return fileError(StageWrite, hb.hostsPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fileError(StageWrite, hb.hostsPath, err)
	}
	if err := f.Close(); err != nil {
		return fileError(StageWrite, hb.hostsPath, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	s, err := os.Open(src)
	if err != nil {
		return err
	}
	defer s.Close()

	d, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(d, s); err != nil {
		d.Close()
		return err
	}
	return d.Close()
}
