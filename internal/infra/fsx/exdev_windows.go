//go:build windows

package fsx

import (
	"errors"

	"golang.org/x/sys/windows"
)

// Windows 上 MoveFileEx 跨卷且未带 MOVEFILE_COPY_ALLOWED 时返回 ERROR_NOT_SAME_DEVICE。
func isEXDEV(err error) bool {
	return errors.Is(err, windows.ERROR_NOT_SAME_DEVICE)
}
