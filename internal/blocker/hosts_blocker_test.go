package blocker

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

type fakeFlusher struct {
	calls int
	err   error
}

func (f *fakeFlusher) Flush() error {
	f.calls++
	return f.err
}

func writeHosts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write hosts file: %v", err)
	}
	return path
}

func readHosts(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read hosts file: %v", err)
	}
	return string(data)
}

func skipIfRoot(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for this user")
	}
}

func TestBlockThenUnblockScenario(t *testing.T) {
	t.Parallel()

	original := "127.0.0.1 localhost\n"
	path := writeHosts(t, original)
	flusher := &fakeFlusher{}
	hb := NewHostsBlocker(path, "", flusher)

	res, err := hb.Block([]string{"x.com", "y.com"}, 25)
	if err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	if res.BlockedCount != 2 || res.DurationMinutes != 25 {
		t.Errorf("Unexpected result: %+v", res)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", res.Warnings)
	}

	want := "127.0.0.1 localhost\n" +
		StartMarker + "\n" +
		"127.0.0.1 x.com\n" +
		"127.0.0.1 www.x.com\n" +
		"127.0.0.1 y.com\n" +
		"127.0.0.1 www.y.com\n" +
		EndMarker + "\n"
	if got := readHosts(t, path); got != want {
		t.Errorf("Hosts after block:\n%q\nwant:\n%q", got, want)
	}
	if flusher.calls != 1 {
		t.Errorf("Expected 1 cache flush, got %d", flusher.calls)
	}

	ures, err := hb.Unblock()
	if err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	if !ures.Success || ures.RemovedEntries != 6 {
		t.Errorf("Unexpected unblock result: %+v", ures)
	}
	if got := readHosts(t, path); got != original {
		t.Errorf("Hosts after unblock = %q, want %q", got, original)
	}
	if sites := hb.BlockedWebsites(); len(sites) != 0 {
		t.Errorf("Expected empty blocked set, got %v", sites)
	}
}

func TestBlockIsIdempotent(t *testing.T) {
	t.Parallel()

	path := writeHosts(t, "127.0.0.1 localhost\n")
	hb := NewHostsBlocker(path, "", nil)

	if _, err := hb.Block([]string{"a.com"}, 10); err != nil {
		t.Fatalf("First block failed: %v", err)
	}
	if _, err := hb.Block([]string{"a.com"}, 10); err != nil {
		t.Fatalf("Second block failed: %v", err)
	}

	content := readHosts(t, path)
	if n := strings.Count(content, StartMarker); n != 1 {
		t.Errorf("Expected 1 start marker, got %d", n)
	}
	if n := strings.Count(content, "127.0.0.1 a.com\n"); n != 1 {
		t.Errorf("Expected a.com once, got %d", n)
	}
}

func TestBlockReplacesPreviousHostnames(t *testing.T) {
	t.Parallel()

	path := writeHosts(t, "127.0.0.1 localhost\n")
	hb := NewHostsBlocker(path, "", nil)

	if _, err := hb.Block([]string{"old.com", "shared.com"}, 10); err != nil {
		t.Fatalf("First block failed: %v", err)
	}
	if _, err := hb.Block([]string{"shared.com", "new.com"}, 15); err != nil {
		t.Fatalf("Second block failed: %v", err)
	}

	content := readHosts(t, path)
	if strings.Contains(content, "old.com") {
		t.Error("Stale entry old.com survived a second block")
	}

	got, err := hb.ManagedHostnames()
	if err != nil {
		t.Fatalf("ManagedHostnames failed: %v", err)
	}
	want := []string{"shared.com", "new.com"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ManagedHostnames = %v, want %v", got, want)
	}

	sites := hb.BlockedWebsites()
	if strings.Join(sites, ",") != "new.com,shared.com" {
		t.Errorf("BlockedWebsites = %v", sites)
	}
}

func TestBlockPreservesUnrelatedLines(t *testing.T) {
	t.Parallel()

	original := "# comment line\n127.0.0.1 localhost\n\n::1\tip6-localhost ip6-loopback\n10.0.0.5 nas.lan # home\n"
	path := writeHosts(t, original)
	hb := NewHostsBlocker(path, "", nil)

	if _, err := hb.Block([]string{"example.com"}, 5); err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	if got := readHosts(t, path); !strings.HasPrefix(got, original) {
		t.Errorf("Unmanaged lines changed: %q", got)
	}
	if _, err := hb.Unblock(); err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	if got := readHosts(t, path); got != original {
		t.Errorf("Round trip = %q, want %q", got, original)
	}
}

func TestBlockEntryShape(t *testing.T) {
	t.Parallel()

	path := writeHosts(t, "")
	hb := NewHostsBlocker(path, "", nil)

	if _, err := hb.Block([]string{"example.com"}, 30); err != nil {
		t.Fatalf("Block failed: %v", err)
	}

	want := StartMarker + "\n127.0.0.1 example.com\n127.0.0.1 www.example.com\n" + EndMarker + "\n"
	if got := readHosts(t, path); got != want {
		t.Errorf("Hosts = %q, want %q", got, want)
	}
}

func TestBlockKeepsCRLF(t *testing.T) {
	t.Parallel()

	original := "127.0.0.1 localhost\r\n"
	path := writeHosts(t, original)
	hb := NewHostsBlocker(path, "", nil)

	if _, err := hb.Block([]string{"a.com"}, 10); err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	if got := readHosts(t, path); !strings.Contains(got, "127.0.0.1 a.com\r\n") {
		t.Errorf("Expected CRLF entries, got %q", got)
	}
	if _, err := hb.Unblock(); err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	if got := readHosts(t, path); got != original {
		t.Errorf("Round trip = %q, want %q", got, original)
	}
}

func TestBlockAddsMissingTrailingNewline(t *testing.T) {
	t.Parallel()

	path := writeHosts(t, "127.0.0.1 localhost")
	hb := NewHostsBlocker(path, "", nil)

	if _, err := hb.Block([]string{"a.com"}, 10); err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	if got := readHosts(t, path); !strings.HasPrefix(got, "127.0.0.1 localhost\n"+StartMarker+"\n") {
		t.Errorf("Start marker not on its own line: %q", got)
	}
}

func TestBlockRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		hostnames []string
		duration  int
	}{
		{"empty list", []string{}, 10},
		{"nil list", nil, 10},
		{"blank hostname", []string{"a.com", "  "}, 10},
		{"hostname with space", []string{"bad host.com"}, 10},
		{"hostname with comment", []string{"a.com#x"}, 10},
		{"zero duration", []string{"a.com"}, 0},
		{"negative duration", []string{"a.com"}, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := "127.0.0.1 localhost\n"
			path := writeHosts(t, original)
			hb := NewHostsBlocker(path, "", nil)

			_, err := hb.Block(tt.hostnames, tt.duration)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("Expected ErrInvalidArgument, got %v", err)
			}
			if got := readHosts(t, path); got != original {
				t.Errorf("File changed on invalid input: %q", got)
			}
			if _, err := os.Stat(hb.BackupPath()); !os.IsNotExist(err) {
				t.Errorf("Backup written on invalid input")
			}
		})
	}
}

func TestEmptyListMessageDiffersFromPermissionDenied(t *testing.T) {
	t.Parallel()

	hb := NewHostsBlocker(writeHosts(t, ""), "", nil)
	_, err := hb.Block(nil, 10)
	if err == nil {
		t.Fatal("Expected error")
	}
	if strings.Contains(err.Error(), "permission") {
		t.Errorf("Empty list reported as permission problem: %v", err)
	}

	perm := &Error{Kind: KindPermissionDenied, Stage: StageWrite, Path: "/etc/hosts"}
	if perm.Error() == err.Error() {
		t.Error("Permission and empty-list messages must differ")
	}
	if !strings.Contains(perm.Error(), "no changes took effect") {
		t.Errorf("Write-stage permission error should say nothing changed: %v", perm)
	}
}

func TestUnblockWhenAbsent(t *testing.T) {
	t.Parallel()

	original := "127.0.0.1 localhost\n"
	path := writeHosts(t, original)
	flusher := &fakeFlusher{}
	hb := NewHostsBlocker(path, "", flusher)

	res, err := hb.Unblock()
	if err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	if !res.Success || res.RemovedEntries != 0 {
		t.Errorf("Unexpected result: %+v", res)
	}
	if got := readHosts(t, path); got != original {
		t.Errorf("File changed: %q", got)
	}
	if flusher.calls != 0 {
		t.Errorf("Expected no flush, got %d", flusher.calls)
	}
}

func TestUnblockRecoversPartialBlock(t *testing.T) {
	t.Parallel()

	path := writeHosts(t, "127.0.0.1 localhost\n"+StartMarker+"\n127.0.0.1 a.com\n127.0.0.1 www.a")
	hb := NewHostsBlocker(path, "", nil)

	res, err := hb.Unblock()
	if err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	if res.RemovedEntries != 3 {
		t.Errorf("RemovedEntries = %d, want 3", res.RemovedEntries)
	}
	if got := readHosts(t, path); got != "127.0.0.1 localhost\n" {
		t.Errorf("Partial block not cleaned: %q", got)
	}
}

func TestBlockOverPartialBlock(t *testing.T) {
	t.Parallel()

	path := writeHosts(t, "127.0.0.1 localhost\n"+StartMarker+"\n127.0.0.1 stale.com\n")
	hb := NewHostsBlocker(path, "", nil)

	if _, err := hb.Block([]string{"fresh.com"}, 10); err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	got := readHosts(t, path)
	if strings.Contains(got, "stale.com") {
		t.Errorf("Fragment survived: %q", got)
	}
	if strings.Count(got, StartMarker) != 1 || strings.Count(got, EndMarker) != 1 {
		t.Errorf("Expected exactly one well-formed block: %q", got)
	}
}

func TestBlockWritesBackup(t *testing.T) {
	t.Parallel()

	original := "127.0.0.1 localhost\n"
	path := writeHosts(t, original)
	hb := NewHostsBlocker(path, ".bak", nil)

	if _, err := hb.Block([]string{"a.com"}, 10); err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	if hb.BackupPath() != path+".bak" {
		t.Errorf("BackupPath = %s", hb.BackupPath())
	}
	if got := readHosts(t, hb.BackupPath()); got != original {
		t.Errorf("Backup = %q, want %q", got, original)
	}

	if err := hb.RestoreBackup(); err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}
	if got := readHosts(t, path); got != original {
		t.Errorf("Restored hosts = %q, want %q", got, original)
	}
	if sites := hb.BlockedWebsites(); len(sites) != 0 {
		t.Errorf("Expected empty set after restore, got %v", sites)
	}
}

func TestBackupFailureIsOnlyAWarning(t *testing.T) {
	t.Parallel()

	path := writeHosts(t, "127.0.0.1 localhost\n")
	// The hosts path is a file, so nothing can be created beneath it.
	hb := NewHostsBlocker(path, string(filepath.Separator)+"backup", nil)

	res, err := hb.Block([]string{"a.com"}, 10)
	if err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Expected one backup warning, got %v", res.Warnings)
	}
	if !strings.Contains(readHosts(t, path), "127.0.0.1 a.com") {
		t.Error("Block did not take effect after backup failure")
	}
}

func TestCacheFlushFailureIsOnlyAWarning(t *testing.T) {
	t.Parallel()

	path := writeHosts(t, "127.0.0.1 localhost\n")
	hb := NewHostsBlocker(path, "", &fakeFlusher{err: errors.New("resolver not running")})

	res, err := hb.Block([]string{"a.com"}, 10)
	if err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "flush") {
		t.Errorf("Expected flush warning, got %v", res.Warnings)
	}
	if sites := hb.BlockedWebsites(); len(sites) != 1 || sites[0] != "a.com" {
		t.Errorf("BlockedWebsites = %v", sites)
	}
}

func TestMissingHostsFileIsIOFailure(t *testing.T) {
	t.Parallel()

	hb := NewHostsBlocker(filepath.Join(t.TempDir(), "missing"), "", nil)

	_, err := hb.Block([]string{"a.com"}, 10)
	if !errors.Is(err, ErrIOFailure) {
		t.Fatalf("Expected ErrIOFailure, got %v", err)
	}
	var be *Error
	if !errors.As(err, &be) || be.Stage != StageRead {
		t.Errorf("Expected read stage, got %+v", be)
	}

	if _, err := hb.Unblock(); KindOf(err) != KindIOFailure {
		t.Errorf("Unblock: expected IOFailure, got %v", err)
	}
}

func TestReadPermissionDenied(t *testing.T) {
	skipIfRoot(t)

	path := writeHosts(t, "127.0.0.1 localhost\n")
	if err := os.Chmod(path, 0); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	hb := NewHostsBlocker(path, "", nil)

	_, err := hb.Block([]string{"a.com"}, 10)
	var be *Error
	if !errors.As(err, &be) || be.Kind != KindPermissionDenied || be.Stage != StageRead {
		t.Fatalf("Expected read-stage PermissionDenied, got %v", err)
	}
}

func TestWritePermissionDenied(t *testing.T) {
	skipIfRoot(t)

	original := "127.0.0.1 localhost\n"
	path := writeHosts(t, original)
	if err := os.Chmod(path, 0444); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	hb := NewHostsBlocker(path, "", nil)

	_, err := hb.Block([]string{"a.com"}, 10)
	var be *Error
	if !errors.As(err, &be) || be.Kind != KindPermissionDenied || be.Stage != StageWrite {
		t.Fatalf("Expected write-stage PermissionDenied, got %v", err)
	}
	if got := readHosts(t, path); got != original {
		t.Errorf("File changed: %q", got)
	}
	if sites := hb.BlockedWebsites(); len(sites) != 0 {
		t.Errorf("Blocked set updated after failed write: %v", sites)
	}
}
