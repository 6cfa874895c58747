package fsx

import (
	"errors"
	"os"
	"path/filepath"
)

// 可替换以便测试模拟剩余空间与卷归属。
var (
	freeBytesFunc = freeBytes
	volumeIDFunc  = volumeID
)

// ErrUnsupported 表示当前平台无法查询卷信息。
var ErrUnsupported = errors.New("当前平台不支持卷信息查询")

// ExistingAncestor 返回 path 自身或离它最近的已存在祖先目录。
// 目标目录通常尚未创建，空间与卷查询都要落到一个真实存在的路径上。
func ExistingAncestor(path string) (string, error) {
	p, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", os.ErrNotExist
		}
		p = parent
	}
}

// FreeBytes 返回 path（或其最近已存在祖先）所在卷对当前用户可用的字节数。
func FreeBytes(path string) (uint64, error) {
	anchor, err := ExistingAncestor(path)
	if err != nil {
		return 0, err
	}
	return freeBytesFunc(anchor)
}

// SameVolume 判断 a 与 b 是否位于同一存储卷（unix 比较设备号，Windows 比较卷挂载点）。
// 任一路径不存在时按其最近已存在祖先判断。
func SameVolume(a, b string) (bool, error) {
	aa, err := ExistingAncestor(a)
	if err != nil {
		return false, err
	}
	bb, err := ExistingAncestor(b)
	if err != nil {
		return false, err
	}
	va, err := volumeIDFunc(aa)
	if err != nil {
		return false, err
	}
	vb, err := volumeIDFunc(bb)
	if err != nil {
		return false, err
	}
	return va == vb, nil
}
