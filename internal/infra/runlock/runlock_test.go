package runlock

import (
	"errors"
	"testing"
)

func TestAcquire_ExclusiveUntilReleased(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	if _, err := Acquire(dir); !errors.Is(err, ErrLocked) {
		t.Fatalf("期望 ErrLocked，实际 %v", err)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("重复释放不应报错：%v", err)
	}

	l2, err := Acquire(dir)
	if err != nil {
		t.Fatalf("释放后应能再次获取：%v", err)
	}
	_ = l2.Release()
}
