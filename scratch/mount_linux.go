//go:build linux

package scratch

import "golang.org/x/sys/unix"

func mountTmpfs(path, size string) error {
	data := ""
	if size != "" {
		data = "size=" + size
	}

	return unix.Mount("none", path, "tmpfs", 0, data)
}

// unmount detaches lazily so a busy ramdisk does not block process exit.
func unmount(path string) error {
	return unix.Unmount(path, unix.MNT_DETACH)
}
