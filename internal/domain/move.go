package domain

// MoveOutcome 是一次迁移尝试的结果。
// WOULD_* 只在 dry-run 中出现，且必须与相同文件系统状态下 apply 的结论一致。
type MoveOutcome string

const (
	OutcomeRenamed        MoveOutcome = "RENAMED"
	OutcomeCopied         MoveOutcome = "COPIED"
	OutcomeSkippedExists  MoveOutcome = "SKIPPED_EXISTS"
	OutcomeSkippedNoSpace MoveOutcome = "SKIPPED_NO_SPACE"

	OutcomeWouldRename      MoveOutcome = "WOULD_RENAME"
	OutcomeWouldCopy        MoveOutcome = "WOULD_COPY"
	OutcomeWouldSkipExists  MoveOutcome = "WOULD_SKIP_EXISTS"
	OutcomeWouldSkipNoSpace MoveOutcome = "WOULD_SKIP_NO_SPACE"

	OutcomeFailed MoveOutcome = "FAILED"
)

// Simulated 表示该结果来自 dry-run。
func (o MoveOutcome) Simulated() bool {
	switch o {
	case OutcomeWouldRename, OutcomeWouldCopy, OutcomeWouldSkipExists, OutcomeWouldSkipNoSpace:
		return true
	default:
		return false
	}
}

// Base 去掉 WOULD_ 前缀，映射到 apply 模式下的对应结果（用于 dry-run/apply 对照）。
func (o MoveOutcome) Base() MoveOutcome {
	switch o {
	case OutcomeWouldRename:
		return OutcomeRenamed
	case OutcomeWouldCopy:
		return OutcomeCopied
	case OutcomeWouldSkipExists:
		return OutcomeSkippedExists
	case OutcomeWouldSkipNoSpace:
		return OutcomeSkippedNoSpace
	default:
		return o
	}
}

const (
	MoveModeRename = "rename"
	MoveModeCopy   = "copy+delete"
)

// MoveResult 是 Move Engine 对单个目录的输出。
type MoveResult struct {
	Outcome MoveOutcome `json:"outcome"`
	Mode    string      `json:"mode,omitempty"`
	Src     string      `json:"src"`
	Dst     string      `json:"dst"`

	// 仅跨盘路径会填充空间信息。
	TreeBytes     int64  `json:"tree_bytes,omitempty"`
	FreeBytes     uint64 `json:"free_bytes,omitempty"`
	MarginBytes   int64  `json:"margin_bytes,omitempty"`
	RequiredBytes int64  `json:"required_bytes,omitempty"`

	Error string `json:"error,omitempty"`
}
