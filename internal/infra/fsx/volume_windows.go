//go:build windows

package fsx

import (
	"path/filepath"
	"strings"

	"golang.org/x/sys/windows"
)

func freeBytes(path string) (uint64, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	var avail, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(p, &avail, &total, &totalFree); err != nil {
		return 0, err
	}
	return avail, nil
}

// volumeID 返回卷挂载点（例如 `E:\` 或挂载到目录的卷路径）；查询失败时退回盘符。
func volumeID(path string) (string, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return "", err
	}
	buf := make([]uint16, windows.MAX_PATH+1)
	if err := windows.GetVolumePathName(p, &buf[0], uint32(len(buf))); err != nil {
		return strings.ToUpper(filepath.VolumeName(path)), nil
	}
	return strings.ToUpper(windows.UTF16ToString(buf)), nil
}
