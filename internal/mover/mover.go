// Package mover 把 addon 目录树搬到目标根目录下：同卷 rename，跨卷空间预检后 copy+delete。
package mover

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/John-Robertt/simtagger/internal/domain"
	"github.com/John-Robertt/simtagger/internal/infra/fsx"
)

// 通过可替换的函数指针，让测试能稳定模拟跨卷、空间不足与中途失败。
var (
	lstat      = os.Lstat
	sameVolume = fsx.SameVolume
	rename     = fsx.Rename
	treeSize   = fsx.TreeSize
	freeBytes  = fsx.FreeBytes
	copyTree   = fsx.CopyTree
	removeTree = os.RemoveAll
	mkdirAll   = os.MkdirAll
)

// Mover 执行单个目录的迁移。零值可用。
type Mover struct {
	Log *slog.Logger
}

// Relocate 把 src 迁移到 dst。
//
// 规则（硬约束）：
// - dst 已存在（任意类型）时跳过，绝不覆盖
// - 同卷：创建 dst 的父目录后单次 rename；不做空间预检
// - 跨卷：free < size + margin 时跳过；相等时继续
// - copy+delete 失败时删除已复制的部分，再返回 FAILED
// - 失败或空间不足时，本次新建的空父目录也会被删除
// - dryRun 只做只读查询（Lstat/Stat/Statfs/WalkDir），结论与 apply 一致
func (m Mover) Relocate(src, dst string, marginBytes int64, dryRun bool) domain.MoveResult {
	return m.RelocatePatched(src, dst, 0, marginBytes, dryRun)
}

// RelocatePatched 与 Relocate 相同，但 patchDelta 是本次运行刚写入源目录的字节增量
// （manifest 回写）。跨卷空间预检按写入前的大小计算，使 apply 与 dry-run 的结论一致；
// 复制后的校验仍按实际大小进行。
func (m Mover) RelocatePatched(src, dst string, patchDelta, marginBytes int64, dryRun bool) domain.MoveResult {
	log := m.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	res := domain.MoveResult{Src: src, Dst: dst}

	if _, err := lstat(dst); err == nil {
		res.Outcome = pick(dryRun, domain.OutcomeWouldSkipExists, domain.OutcomeSkippedExists)
		return res
	} else if !os.IsNotExist(err) {
		return failed(res, fmt.Errorf("检查目标失败：%w", err))
	}

	if _, err := lstat(src); err != nil {
		return failed(res, fmt.Errorf("读取源目录失败：%w", err))
	}

	same, err := sameVolume(src, dst)
	if err != nil {
		return failed(res, fmt.Errorf("判断是否同卷失败：%w", err))
	}

	if same {
		res.Mode = domain.MoveModeRename
		if dryRun {
			res.Outcome = domain.OutcomeWouldRename
			return res
		}
		created, err := ensureParent(filepath.Dir(dst))
		if err != nil {
			pruneCreated(filepath.Dir(dst), created)
			return failed(res, fmt.Errorf("创建目标父目录失败：%w", err))
		}
		err = rename(src, dst)
		if err == nil {
			res.Outcome = domain.OutcomeRenamed
			return res
		}
		if !fsx.IsCrossDevice(err) {
			pruneCreated(filepath.Dir(dst), created)
			return failed(res, err)
		}
		// 卷判断认为同卷但内核拒绝（bind mount、overlay 等）：改走跨卷路径。
		log.Info("rename 返回 EXDEV，改用 copy+delete", "src", src, "dst", dst)
		return m.copyDelete(res, patchDelta, marginBytes, dryRun, log, created)
	}

	return m.copyDelete(res, patchDelta, marginBytes, dryRun, log, "")
}

// created 是此前已为 dst 新建的最上层父目录（没有则为空）。
func (m Mover) copyDelete(res domain.MoveResult, patchDelta, marginBytes int64, dryRun bool, log *slog.Logger, created string) (out domain.MoveResult) {
	res.Mode = domain.MoveModeCopy
	res.MarginBytes = marginBytes

	parent := filepath.Dir(res.Dst)
	defer func() {
		// 没有留下目标时，把本次新建的空父目录一并清掉。
		if out.Outcome == domain.OutcomeFailed || out.Outcome == domain.OutcomeSkippedNoSpace {
			pruneCreated(parent, created)
		}
	}()

	size, err := treeSize(res.Src)
	if err != nil {
		return failed(res, fmt.Errorf("统计源目录大小失败：%w", err))
	}
	free, err := freeBytes(res.Dst)
	if err != nil {
		return failed(res, fmt.Errorf("查询目标剩余空间失败：%w", err))
	}
	res.TreeBytes = size - patchDelta
	res.FreeBytes = free
	res.RequiredBytes = res.TreeBytes + marginBytes

	if !hasRoom(free, res.RequiredBytes) {
		res.Outcome = pick(dryRun, domain.OutcomeWouldSkipNoSpace, domain.OutcomeSkippedNoSpace)
		return res
	}
	if dryRun {
		res.Outcome = domain.OutcomeWouldCopy
		return res
	}

	top, err := ensureParent(parent)
	if created == "" {
		created = top
	}
	if err != nil {
		return failed(res, fmt.Errorf("创建目标父目录失败：%w", err))
	}

	if err := copyTree(res.Src, res.Dst); err != nil {
		if errors.Is(err, fsx.ErrDestExists) {
			// 预检之后目标被其他进程创建：不碰它。
			res.Outcome = domain.OutcomeSkippedExists
			return res
		}
		return failed(res, rollback(res.Dst, fmt.Errorf("复制失败：%w", err)))
	}
	copied, err := treeSize(res.Dst)
	if err == nil && copied != size {
		err = fmt.Errorf("复制后大小不一致：源 %d 字节，目标 %d 字节", size, copied)
	}
	if err != nil {
		return failed(res, rollback(res.Dst, err))
	}

	if err := removeTree(res.Src); err != nil {
		// 目标已完整且校验通过：保留它，下次运行会得到 SKIP_EXIST。
		log.Warn("复制完成但删除源目录失败", "src", res.Src, "error", err)
		return failed(res, fmt.Errorf("复制已完成，但删除源目录失败：%w", err))
	}

	res.Outcome = domain.OutcomeCopied
	return res
}

// hasRoom 判断 free >= required；required 为负（margin 配置异常）时视为 0。
func hasRoom(free uint64, required int64) bool {
	if required <= 0 {
		return true
	}
	return free >= uint64(required)
}

// ensureParent 创建 dir 及缺失的祖先目录，返回其中最上层的新建目录；都已存在时返回空。
// 创建中途失败时也返回最上层的候选目录，供调用方清理。
func ensureParent(dir string) (string, error) {
	top := ""
	for p := dir; ; p = filepath.Dir(p) {
		if _, err := lstat(p); !os.IsNotExist(err) {
			break
		}
		top = p
		if filepath.Dir(p) == p {
			break
		}
	}
	return top, mkdirAll(dir, 0o755)
}

// pruneCreated 从 dir 向上逐级删除空目录，直到 top（含）为止；遇到非空目录即停。
func pruneCreated(dir, top string) {
	if top == "" {
		return
	}
	for p := dir; ; p = filepath.Dir(p) {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return
		}
		if p == top || filepath.Dir(p) == p {
			return
		}
	}
}

// rollback 删除部分复制的目标目录；删除失败时两个错误都返回给调用方。
func rollback(dst string, cause error) error {
	if err := removeTree(dst); err != nil {
		return errors.Join(cause, fmt.Errorf("清理未完成的目标失败：%w", err))
	}
	return cause
}

func failed(res domain.MoveResult, err error) domain.MoveResult {
	res.Outcome = domain.OutcomeFailed
	res.Error = err.Error()
	return res
}

func pick(dryRun bool, would, done domain.MoveOutcome) domain.MoveOutcome {
	if dryRun {
		return would
	}
	return done
}
