//go:build !(linux || darwin || freebsd || dragonfly || windows)

package fsx

func freeBytes(string) (uint64, error) { return 0, ErrUnsupported }

func volumeID(string) (string, error) { return "", ErrUnsupported }
