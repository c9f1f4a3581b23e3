//go:build linux

package backup

import (
	"errors"
	"os"
	"syscall"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// fsImmutableFL is FS_IMMUTABLE_FL from linux/fs.h; x/sys/unix does not
// export it.
const fsImmutableFL = 0x00000010

// safeguard manages the FS_IMMUTABLE_FL inode flag of an existing backup
// file so the record can be rewritten and then re-protected.
type safeguard struct {
	f     *os.File
	flags int
}

// openSafeguard opens path for flag manipulation. A missing file or a
// filesystem that cannot expose a real *os.File yields a nil safeguard,
// which disarms and rearms as no-ops.
func openSafeguard(fsys afero.Fs, path string) (*safeguard, error) {
	f, err := fsys.OpenFile(path, os.O_RDONLY, 0o644)
	if err != nil {
		if errors.Is(err, afero.ErrFileNotFound) || errors.Is(err, syscall.ENOENT) {
			return nil, nil
		}
		return nil, err
	}

	osf, ok := underlyingOsFile(f)
	if !ok {
		// Memory-backed filesystems have no inode flags.
		return nil, f.Close()
	}

	g := &safeguard{f: osf}
	if err := g.control(func(fd uintptr) (err error) {
		g.flags, err = unix.IoctlGetInt(int(fd), unix.FS_IOC_GETFLAGS)
		return err
	}); err != nil {
		return nil, multierr.Append(err, osf.Close())
	}
	return g, nil
}

func underlyingOsFile(f afero.File) (*os.File, bool) {
	for {
		bp, ok := f.(*afero.BasePathFile)
		if !ok {
			break
		}
		f = bp.File
	}
	osf, ok := f.(*os.File)
	return osf, ok
}

func (g *safeguard) control(cb func(fd uintptr) error) error {
	raw, err := g.f.SyscallConn()
	if err != nil {
		return err
	}
	var cbErr error
	ctlErr := raw.Control(func(fd uintptr) { cbErr = cb(fd) })
	if errors.Is(cbErr, syscall.ENOTTY) {
		// Filesystem without attribute ioctls; nothing to manage.
		cbErr = nil
	}
	return multierr.Append(cbErr, ctlErr)
}

func (g *safeguard) Close() error {
	if g == nil {
		return nil
	}
	return g.f.Close()
}

// disarm clears the immutable flag if set, reporting whether it was.
func (g *safeguard) disarm() (wasProtected bool, err error) {
	if g == nil {
		return false, nil
	}
	err = g.control(func(fd uintptr) error {
		if g.flags&fsImmutableFL == 0 {
			return nil
		}
		wasProtected = true
		g.flags &^= fsImmutableFL
		return unix.IoctlSetPointerInt(int(fd), unix.FS_IOC_SETFLAGS, g.flags)
	})
	return wasProtected, err
}

// rearm sets the immutable flag back after a rewrite.
func (g *safeguard) rearm() error {
	if g == nil {
		return nil
	}
	return g.control(func(fd uintptr) error {
		g.flags |= fsImmutableFL
		return unix.IoctlSetPointerInt(int(fd), unix.FS_IOC_SETFLAGS, g.flags)
	})
}
