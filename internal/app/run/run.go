package run

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/simtagger/internal/app/planner"
	"github.com/John-Robertt/simtagger/internal/config"
	"github.com/John-Robertt/simtagger/internal/domain"
	"github.com/John-Robertt/simtagger/internal/feed"
	"github.com/John-Robertt/simtagger/internal/manifest"
	"github.com/John-Robertt/simtagger/internal/mover"
	"github.com/John-Robertt/simtagger/internal/scan"
)

// 测试替换点。
var (
	writeField = manifest.WriteField
	newRunID   = func() string { return uuid.NewString() }
)

// Execute 执行一次 run（dry-run/apply），并返回对外稳定的 RunReport。
// 单个 addon 的失败只影响它自己；只有根目录/配置错误会让整个 run 提前结束（Aborted）。
func Execute(ctx context.Context, eff config.EffectiveConfig, log *slog.Logger) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, log, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出阶段与逐条结果（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, log *slog.Logger, obs Observer) domain.RunReport {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	started := time.Now().UTC()
	runID := newRunID()
	log = log.With("run_id", runID)

	if obs != nil {
		obs.OnStart(eff, runID)
	}

	rr := domain.RunReport{
		RunID:       runID,
		DryRun:      !eff.Apply,
		AddonsRoot:  eff.AddonsRoot,
		FeedRoot:    eff.FeedRoot,
		DestRoot:    eff.DestRoot,
		AcceptedTag: eff.AcceptedTag,
		MarginBytes: eff.SpaceMarginBytes,
		StartedAt:   started,
		Items:       make([]domain.ItemResult, 0, 64),
	}

	if err := config.Validate(eff); err != nil {
		return aborted(rr, log, config.Code(err), err)
	}

	feedStarted := time.Now()
	ix, stats, err := feed.BuildIndex(eff.FeedRoot, log)
	if err != nil {
		return aborted(rr, log, domain.ErrCodeIOFailed, fmt.Errorf("加载 feed 失败：%w", err))
	}
	rr.FeedEntries = ix.Len()
	if obs != nil {
		for _, fe := range stats.BadFiles {
			obs.OnNotice(NoticeFeedSkipped, fe.Path, fe.Err.Error())
		}
		for _, p := range stats.UnknownShape {
			obs.OnNotice(NoticeFeedSkipped, p, "未知的文档形态")
		}
		obs.OnPhaseDone("feed", map[string]any{
			"files":     stats.Files,
			"entries":   ix.Len(),
			"bad_files": len(stats.BadFiles) + len(stats.UnknownShape),
			"dropped":   stats.Dropped,
			"conflicts": stats.Conflicts,
		}, time.Since(feedStarted))
	}
	log.Info("feed 索引已加载", "entries", ix.Len(), "files", stats.Files)

	scanStarted := time.Now()
	opts := scan.Options{
		ExcludeDirs: append([]string(nil), eff.ExcludeDirs...),
		OnSkip: func(path string, err error) {
			log.Warn("跳过不可读目录", "path", path, "error", err)
			if obs != nil {
				obs.OnNotice(NoticeDirSkipped, path, err.Error())
			}
		},
	}
	// dest_root 在 addons_root 内时不能把已迁移的 addon 再扫一遍。
	if scan.IsUnder(eff.DestRoot, eff.AddonsRoot) {
		opts.ExcludeDirs = append(opts.ExcludeDirs, eff.DestRoot)
	}
	units, err := scan.ScanAddons(eff.AddonsRoot, opts)
	if err != nil {
		return aborted(rr, log, domain.ErrCodeIOFailed, fmt.Errorf("扫描 addons 失败：%w", err))
	}
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{"units": len(units)}, time.Since(scanStarted))
	}

	execStarted := time.Now()
	roots := planner.Roots{AddonsRoot: eff.AddonsRoot, DestRoot: eff.DestRoot}
	mv := mover.Mover{Log: log}
	for i, u := range units {
		if ctx.Err() != nil {
			rr.Interrupted = true
			log.Warn("运行被中断，剩余 addon 未处理", "done", i, "total", len(units))
			break
		}
		itemStarted := time.Now()
		res := processUnit(u, ix, eff, roots, mv)
		rr.Items = append(rr.Items, res)
		if res.Status == domain.StatusBadJSON {
			rr.BadJSON = append(rr.BadJSON, domain.BadFile{Path: u.ManifestPath, Error: u.ParseErr})
		}
		if obs != nil {
			obs.OnItemDone(i+1, len(units), res, time.Since(itemStarted))
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"items":       len(rr.Items),
			"interrupted": rr.Interrupted,
		}, time.Since(execStarted))
	}
	return rr
}

// processUnit 对单个 addon 执行：resolve -> 更新 simType -> 迁移。
// 更新失败时不再迁移：目录里的 manifest 必须先反映新的 tag。
func processUnit(u domain.AddonUnit, ix planner.Lookup, eff config.EffectiveConfig, roots planner.Roots, mv mover.Mover) domain.ItemResult {
	res := domain.ItemResult{
		Path:          u.RelPath,
		Folder:        u.FolderPath,
		Manifest:      u.ManifestPath,
		ICAO:          string(u.ICAO),
		Version:       u.Version,
		SimTypeBefore: u.CurrentSimType,
		HadSimType:    u.HasSimType,
	}

	d := planner.Resolve(u, ix, eff.AcceptedTag, roots)
	res.Decision = d.Kind
	res.Tag = d.Tag

	if !d.Matched {
		res.Status = unmatchedStatus(d.Reason)
		if res.Status == domain.StatusBadJSON {
			res.ErrorCode = domain.ErrCodeParseFailed
			res.ErrorMsg = u.ParseErr
		}
		return res
	}
	if d.Kind == domain.DecisionNone {
		res.Status = domain.StatusNoop
		res.Update = domain.UpdateNoop
		return res
	}

	res.Status = domain.StatusProcessed
	var patchDelta int64
	switch {
	case !d.Kind.NeedsUpdate():
		res.Update = domain.UpdateNoop
	case !eff.Apply:
		res.Update = domain.UpdatePlanned
		res.SimTypeAfter = d.Tag
	default:
		res.SimTypeAfter = d.Tag
		before := fileSize(u.ManifestPath)
		if err := writeField(u.ManifestPath, manifest.SimTypeField, d.Tag); err != nil {
			res.Update = domain.UpdateFailed
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeUpdateFailed
			res.ErrorMsg = err.Error()
			return res
		}
		res.Update = domain.UpdateDone
		patchDelta = fileSize(u.ManifestPath) - before
	}

	if d.Kind.NeedsMove() {
		// 空间预检按回写前的大小计算，与 dry-run 的结论保持一致。
		mr := mv.RelocatePatched(u.FolderPath, d.Dest, patchDelta, eff.SpaceMarginBytes, !eff.Apply)
		res.Move = &mr
		if mr.Outcome == domain.OutcomeFailed {
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeMoveFailed
			res.ErrorMsg = mr.Error
		}
	}
	return res
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func unmatchedStatus(reason string) string {
	switch reason {
	case domain.ReasonBadJSON:
		return domain.StatusBadJSON
	case domain.ReasonNoICAO:
		return domain.StatusNoICAO
	case domain.ReasonNoVersion:
		return domain.StatusNoVersion
	default:
		return domain.StatusNoMatch
	}
}

func aborted(rr domain.RunReport, log *slog.Logger, code string, err error) domain.RunReport {
	log.Error("运行终止", "code", code, "error", err)
	rr.Aborted = true
	rr.AbortCode = code
	rr.AbortMsg = err.Error()
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}
