//go:build !linux

package scratch

import "errors"

var errTmpfsUnsupported = errors.New("tmpfs scratch is only supported on linux")

func mountTmpfs(string, string) error {
	return errTmpfsUnsupported
}

func unmount(string) error {
	return errTmpfsUnsupported
}
