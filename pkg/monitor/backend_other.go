//go:build !linux

package monitor

import (
	"github.com/ja7ad/taskmgr/pkg/system/psutil"
)

// OpenSource returns the backend named by opt.Backend. Only psutil exists
// off Linux.
func OpenSource(opt OpenOptions) (Source, error) {
	b, err := ParseBackend(string(opt.Backend))
	if err != nil {
		return nil, err
	}
	if b == BackendProcfs {
		return nil, ErrUnsupported
	}
	return psutil.New(opt.Logger), nil
}
