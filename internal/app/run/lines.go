package run

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/John-Robertt/simtagger/internal/domain"
)

// Lines 把一条结果渲染为人可读的决策行（顺序：manifest 更新在前，迁移在后）。
func Lines(res domain.ItemResult, dryRun bool) []string {
	switch res.Status {
	case domain.StatusBadJSON:
		return []string{fmt.Sprintf("BAD_JSON %s: %s", res.Manifest, res.ErrorMsg)}
	case domain.StatusNoVersion:
		return []string{"NO_VERSION " + res.Folder}
	case domain.StatusNoICAO:
		return []string{"NO_ICAO " + res.Folder}
	case domain.StatusNoMatch:
		return []string{fmt.Sprintf("NO_MATCH %s v%s %s", res.ICAO, res.Version, res.Folder)}
	}

	var out []string
	switch res.Update {
	case domain.UpdatePlanned:
		out = append(out, fmt.Sprintf("WILL_UPDATE %s (simType %s -> %s)", res.Manifest, simTypeText(res), res.SimTypeAfter))
	case domain.UpdateDone:
		out = append(out, fmt.Sprintf("UPDATE %s (simType %s -> %s)", res.Manifest, simTypeText(res), res.SimTypeAfter))
	case domain.UpdateFailed:
		out = append(out, fmt.Sprintf("UPDATE_FAILED %s: %s", res.Manifest, res.ErrorMsg))
	case domain.UpdateNoop:
		out = append(out, fmt.Sprintf("NOOP %s (simType already %s)", res.Folder, res.Tag))
	}

	if res.Move != nil {
		out = append(out, MoveLine(*res.Move))
	}
	return out
}

// MoveLine 渲染单次迁移结果。
func MoveLine(m domain.MoveResult) string {
	switch m.Outcome {
	case domain.OutcomeWouldRename:
		return fmt.Sprintf("WILL_MOVE %s -> %s (rename)", m.Src, m.Dst)
	case domain.OutcomeWouldCopy:
		return fmt.Sprintf("WILL_MOVE %s -> %s (copy+delete, size %s, free %s, margin %s)",
			m.Src, m.Dst, ibytes(m.TreeBytes), humanize.IBytes(m.FreeBytes), ibytes(m.MarginBytes))
	case domain.OutcomeWouldSkipExists:
		return "WILL_SKIP_EXIST " + m.Dst
	case domain.OutcomeWouldSkipNoSpace:
		return fmt.Sprintf("WILL_NO_SPACE %s -> %s (required %s > free %s)", m.Src, m.Dst, ibytes(m.RequiredBytes), humanize.IBytes(m.FreeBytes))
	case domain.OutcomeRenamed:
		return fmt.Sprintf("MOVE (rename) %s -> %s", m.Src, m.Dst)
	case domain.OutcomeCopied:
		return fmt.Sprintf("MOVE (copy+delete) %s -> %s", m.Src, m.Dst)
	case domain.OutcomeSkippedExists:
		return "SKIP_EXIST " + m.Dst
	case domain.OutcomeSkippedNoSpace:
		return fmt.Sprintf("NO_SPACE %s -> %s (required %s > free %s)", m.Src, m.Dst, ibytes(m.RequiredBytes), humanize.IBytes(m.FreeBytes))
	default:
		return fmt.Sprintf("MOVE_FAILED %s -> %s: %s", m.Src, m.Dst, m.Error)
	}
}

func simTypeText(res domain.ItemResult) string {
	if !res.HadSimType {
		return "<missing>"
	}
	return res.SimTypeBefore
}

func ibytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}
