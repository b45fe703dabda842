//go:build linux

package monitor

import (
	"github.com/ja7ad/taskmgr/pkg/system/proc"
	"github.com/ja7ad/taskmgr/pkg/system/psutil"
)

// OpenSource returns the backend named by opt.Backend.
func OpenSource(opt OpenOptions) (Source, error) {
	b, err := ParseBackend(string(opt.Backend))
	if err != nil {
		return nil, err
	}
	if b == BackendAuto {
		b = BackendPsutil
		if proc.Available(opt.Root) {
			b = BackendProcfs
		}
	}

	if b == BackendPsutil {
		return psutil.New(opt.Logger), nil
	}
	fs, err := proc.New(proc.Options{
		Root:     opt.Root,
		Reporter: opt.Reporter,
		Logger:   opt.Logger,
	})
	if err != nil {
		return nil, err
	}
	return fs, nil
}
