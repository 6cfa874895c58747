package fsx

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrDestExists 表示 CopyTree 的目标根目录已存在；此时没有写入任何内容。
var ErrDestExists = errors.New("目标已存在")

// TreeSize 返回 root 下所有普通文件大小之和（不跟随符号链接）。
func TreeSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// CopyTree 把 src 目录树完整复制到 dst。
//
// 约束：
// - dst 必须不存在（绝不覆盖已有数据）
// - 普通文件逐个做大小 + SHA-256 校验，权限位保留
// - 符号链接按原样重建；设备文件、socket 等返回 PathTypeConflictError
// 失败时 dst 可能残留部分内容，由调用方负责清理。
func CopyTree(src, dst string) error {
	src = filepath.Clean(src)
	dst = filepath.Clean(dst)

	rootInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !rootInfo.IsDir() {
		return &PathTypeConflictError{Path: src, Want: "dir", Got: "file"}
	}

	type dirMode struct {
		path string
		mode fs.FileMode
	}
	var dirs []dirMode

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			// 先保证自身可写，全部复制完后再还原权限。
			if err := os.Mkdir(target, info.Mode().Perm()|0o700); err != nil {
				if path == src && errors.Is(err, fs.ErrExist) {
					return fmt.Errorf("%w：%s", ErrDestExists, target)
				}
				return err
			}
			dirs = append(dirs, dirMode{path: target, mode: info.Mode().Perm()})
			return nil
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			return CopyFileVerified(path, target, info.Mode().Perm())
		default:
			return &PathTypeConflictError{Path: path, Want: "regular file, dir or symlink", Got: d.Type().String()}
		}
	})
	if err != nil {
		return err
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Chmod(dirs[i].path, dirs[i].mode); err != nil {
			return err
		}
	}
	return nil
}

// CopyFileVerified 以 SHA-256 + 大小校验复制单个文件；dst 已存在时失败。
// 校验不一致时删除 dst。
func CopyFileVerified(src, dst string, perm fs.FileMode) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat 源文件：%w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("复制大小不一致：源 %d 字节，实际写入 %d 字节", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("复制校验失败：%q 的 SHA-256 不一致", dst)
	}
	return nil
}
