package blocker

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies a blocker failure.
type Kind int

const (
	KindInvalidArgument Kind = iota + 1
	KindPermissionDenied
	KindIOFailure
	KindBackupFailure
	KindCacheFlushFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindIOFailure:
		return "IOFailure"
	case KindBackupFailure:
		return "BackupFailure"
	case KindCacheFlushFailure:
		return "CacheFlushFailure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Stage is the step of an operation that failed.
type Stage string

const (
	StageValidate Stage = "validate"
	StageBackup   Stage = "backup"
	StageRead     Stage = "read"
	StageWrite    Stage = "write"
	StageFlush    Stage = "flush"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrPermissionDenied = errors.New("permission denied")
	ErrIOFailure        = errors.New("i/o failure")
	ErrBackupFailure    = errors.New("backup failure")
	ErrCacheFlush       = errors.New("cache flush failure")
)

// Error is returned by every blocker operation. Callers can tell a read
// failure (nothing changed) from a write failure by Stage.
type Error struct {
	Kind  Kind
	Stage Stage
	Path  string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindPermissionDenied && e.Stage == StageWrite:
		return fmt.Sprintf("permission denied writing %s: no changes took effect (run with administrator/root privileges)", e.Path)
	case e.Kind == KindPermissionDenied:
		return fmt.Sprintf("permission denied reading %s (run with administrator/root privileges)", e.Path)
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return fmt.Sprintf("%s %s failed: %v", e.Stage, e.Path, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the package sentinels so errors.Is(err, ErrPermissionDenied)
// works without unpacking.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidArgument:
		return e.Kind == KindInvalidArgument
	case ErrPermissionDenied:
		return e.Kind == KindPermissionDenied
	case ErrIOFailure:
		return e.Kind == KindIOFailure
	case ErrBackupFailure:
		return e.Kind == KindBackupFailure
	case ErrCacheFlush:
		return e.Kind == KindCacheFlushFailure
	}
	return false
}

func invalidArgument(msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Stage: StageValidate, Msg: msg}
}

// fileError classifies an os error from the read or write stage.
func fileError(stage Stage, path string, err error) *Error {
	kind := KindIOFailure
	if errors.Is(err, fs.ErrPermission) {
		kind = KindPermissionDenied
	}
	return &Error{Kind: kind, Stage: stage, Path: path, Err: err}
}

// KindOf returns the Kind of err, or 0 if err did not come from this package.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}
