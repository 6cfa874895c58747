package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/John-Robertt/simtagger/internal/app/run"
	"github.com/John-Robertt/simtagger/internal/config"
	"github.com/John-Robertt/simtagger/internal/domain"
	"github.com/John-Robertt/simtagger/internal/logging"
)

var _ run.Observer = (*reporter)(nil)

// reporter 把 run 的事件渲染成决策行，写入 Session.Lines（控制台 + 日志文件）。
type reporter struct {
	sess   *logging.Session
	dryRun bool
	runID  string
}

func newReporter(sess *logging.Session) *reporter {
	return &reporter{sess: sess}
}

func (r *reporter) OnStart(eff config.EffectiveConfig, runID string) {
	r.dryRun = !eff.Apply
	r.runID = runID

	mode := "dry-run"
	modeHint := "（不写入/不移动）"
	if eff.Apply {
		mode = "apply"
		modeHint = ""
	}
	r.sess.Printf("[%s] simtagger run %s (%s)", time.Now().Format("15:04:05"), runID, mode)
	r.sess.Printf("  addons_root: %s", eff.AddonsRoot)
	r.sess.Printf("  feed_root: %s", eff.FeedRoot)
	r.sess.Printf("  dest_root: %s", eff.DestRoot)
	r.sess.Printf("  space_margin: %s (%d bytes)", humanize.IBytes(uint64(max(eff.SpaceMarginBytes, 0))), eff.SpaceMarginBytes)
	r.sess.Printf("  accepted_tag: %s", eff.AcceptedTag)
	r.sess.Printf("  mode: %s%s", mode, modeHint)
	if eff.ConfigFile != "" {
		r.sess.Printf("  config: %s", eff.ConfigFile)
	}
}

func (r *reporter) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	switch name {
	case "feed":
		r.sess.Printf("feed index: %d entries (files=%d skipped=%d dropped=%d conflicts=%d, %s)",
			fields["entries"], fields["files"], fields["bad_files"], fields["dropped"], fields["conflicts"], shortDuration(dur))
	case "scan":
		r.sess.Printf("scan: %d addons (%s)", fields["units"], shortDuration(dur))
	case "exec":
		r.sess.Printf("[%s] finished run %s (%s)", time.Now().Format("15:04:05"), r.runID, shortDuration(dur))
	default:
		r.sess.Printf("%s (%s)", name, shortDuration(dur))
	}
}

func (r *reporter) OnNotice(kind, path, msg string) {
	switch kind {
	case run.NoticeFeedSkipped:
		r.sess.Printf("SKIP_FEED %s: %s", path, msg)
	case run.NoticeDirSkipped:
		r.sess.Printf("SKIP_DIR %s: %s", path, msg)
	default:
		r.sess.Printf("%s %s: %s", kind, path, msg)
	}
}

func (r *reporter) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	for _, line := range run.Lines(res, r.dryRun) {
		r.sess.Printf("%s", line)
	}
}

func shortDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "<1ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}
