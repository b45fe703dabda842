package monitor

import (
	"fmt"
	"log/slog"

	"github.com/ja7ad/taskmgr/pkg/system/guard"
)

// Backend names a Source implementation.
type Backend string

const (
	// BackendAuto picks procfs when mounted, else psutil.
	BackendAuto   Backend = "auto"
	BackendProcfs Backend = "procfs"
	BackendPsutil Backend = "psutil"
)

// ParseBackend validates a backend name; "" means auto.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case "":
		return BackendAuto, nil
	case BackendAuto, BackendProcfs, BackendPsutil:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrBadBackend, s)
	}
}

// OpenOptions selects and configures a Source.
type OpenOptions struct {
	Backend Backend
	// Root is the procfs mount point for the procfs backend.
	Root     string
	Reporter guard.Reporter
	Logger   *slog.Logger
}
