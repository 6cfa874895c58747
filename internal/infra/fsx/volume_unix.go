//go:build linux || darwin || freebsd || dragonfly

package fsx

import (
	"strconv"

	"golang.org/x/sys/unix"
)

func freeBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}

func volumeID(path string) (string, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return "", err
	}
	return "dev:" + strconv.FormatUint(uint64(st.Dev), 10), nil
}
