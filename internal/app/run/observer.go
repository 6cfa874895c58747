package run

import (
	"time"

	"github.com/John-Robertt/simtagger/internal/config"
	"github.com/John-Robertt/simtagger/internal/domain"
)

// Observer 用于把“阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 所有事件都在调用 ExecuteWithObserver 的 goroutine 上按顺序发出。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用（用于打印生效的根目录/margin/tag）。
	OnStart(eff config.EffectiveConfig, runID string)
	// OnPhaseDone 在阶段结束时调用：feed、scan、exec。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnNotice 报告不属于任何 addon 的可恢复问题（跳过的 feed 文件、不可读的子目录）。
	OnNotice(kind, path, msg string)
	// OnItemDone 在某个 addon 处理完成时调用。
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
}

// Notice 种类
const (
	NoticeFeedSkipped = "feed_skipped"
	NoticeDirSkipped  = "dir_skipped"
)
