// Package runlock 保证同一 log_dir 下同时只有一个 apply 运行。
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const FileName = "simtagger.lock"

// ErrLocked 表示锁已被其他进程持有。
var ErrLocked = errors.New("另一个 simtagger apply 正在运行")

// Lock 是一把已持有的咨询锁（flock）。
type Lock struct {
	Path string
	fl   *flock.Flock
}

// Acquire 非阻塞地获取 <dir>/simtagger.lock；已被持有时返回 ErrLocked。
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建锁目录失败：%w", err)
	}
	p := filepath.Join(dir, FileName)
	fl := flock.New(p)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("获取运行锁失败：%w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w（%s）", ErrLocked, p)
	}
	return &Lock{Path: p, fl: fl}, nil
}

// Release 释放锁；锁文件保留，下次运行复用。
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	err := l.fl.Unlock()
	l.fl = nil
	return err
}
