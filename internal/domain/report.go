package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusNoop      = "noop"
	StatusFailed    = "failed"
	StatusBadJSON   = "bad_json"
	StatusNoICAO    = "no_icao"
	StatusNoVersion = "no_version"
	StatusNoMatch   = "no_match"
)

const (
	UpdatePlanned = "planned"
	UpdateDone    = "updated"
	UpdateNoop    = "noop"
	UpdateFailed  = "failed"
)

const (
	ErrCodeParseFailed  = "parse_failed"
	ErrCodeUpdateFailed = "update_failed"
	ErrCodeMoveFailed   = "move_failed"
	ErrCodeIOFailed     = "io_failed"
)

// RunReport 是对外稳定输出（report.json / --json）的结构。
// 每次 run 构造自己的实例；计数只由 Finalize 从 items 推导，不存在全局计数器。
type RunReport struct {
	RunID  string `json:"run_id"`
	DryRun bool   `json:"dry_run"`

	AddonsRoot  string `json:"addons_root"`
	FeedRoot    string `json:"feed_root"`
	DestRoot    string `json:"dest_root"`
	AcceptedTag string `json:"accepted_tag"`
	MarginBytes int64  `json:"space_margin_bytes"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	FeedEntries int  `json:"feed_entries"`
	Interrupted bool `json:"interrupted"`

	// Aborted 表示 run 在扫描前就终止（配置/根目录错误）。
	Aborted   bool   `json:"aborted"`
	AbortCode string `json:"abort_code,omitempty"`
	AbortMsg  string `json:"abort_msg,omitempty"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
	BadJSON []BadFile     `json:"bad_json"`
}

type BadFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type ReportSummary struct {
	WillUpdate   int `json:"will_update"`
	Updated      int `json:"updated"`
	UpdateFailed int `json:"update_failed"`
	Noop         int `json:"noop"`
	NoVersion    int `json:"no_version"`
	NoICAO       int `json:"no_icao"`
	NoMatch      int `json:"no_match"`
	BadJSON      int `json:"bad_json"`

	WillMove    int `json:"will_move"`
	Moved       int `json:"moved"`
	SkipExist   int `json:"skip_exist"`
	WillNoSpace int `json:"will_no_space"`
	NoSpace     int `json:"no_space"`
	MoveFailed  int `json:"move_failed"`

	Decisions map[DecisionKind]int `json:"decisions"`
	Outcomes  map[MoveOutcome]int  `json:"outcomes"`
}

type ItemResult struct {
	Path     string `json:"path"` // 相对 addons_root
	Folder   string `json:"folder"`
	Manifest string `json:"manifest"`

	ICAO    string `json:"icao"`
	Version string `json:"version"`
	Tag     string `json:"tag"`

	Decision DecisionKind `json:"decision"`
	Status   string       `json:"status"`

	SimTypeBefore string `json:"sim_type_before"`
	HadSimType    bool   `json:"had_sim_type"`
	SimTypeAfter  string `json:"sim_type_after,omitempty"`
	Update        string `json:"update,omitempty"`

	Move *MoveResult `json:"move,omitempty"`

	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) items 稳定排序：按 path 字典序
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool { return r.Items[i].Path < r.Items[j].Path })
	if r.Items == nil {
		r.Items = []ItemResult{}
	}
	if r.BadJSON == nil {
		r.BadJSON = []BadFile{}
	}

	s := ReportSummary{
		Decisions: map[DecisionKind]int{},
		Outcomes:  map[MoveOutcome]int{},
	}
	for _, it := range r.Items {
		if it.Decision != "" {
			s.Decisions[it.Decision]++
		}

		switch it.Status {
		case StatusBadJSON:
			s.BadJSON++
		case StatusNoICAO:
			s.NoICAO++
		case StatusNoVersion:
			s.NoVersion++
		case StatusNoMatch:
			s.NoMatch++
		}

		switch it.Update {
		case UpdatePlanned:
			s.WillUpdate++
		case UpdateDone:
			s.Updated++
		case UpdateFailed:
			s.UpdateFailed++
		case UpdateNoop:
			s.Noop++
		}

		if it.Move == nil {
			continue
		}
		s.Outcomes[it.Move.Outcome]++
		switch it.Move.Outcome {
		case OutcomeWouldRename, OutcomeWouldCopy:
			s.WillMove++
		case OutcomeRenamed, OutcomeCopied:
			s.Moved++
		case OutcomeSkippedExists, OutcomeWouldSkipExists:
			s.SkipExist++
		case OutcomeWouldSkipNoSpace:
			s.WillNoSpace++
		case OutcomeSkippedNoSpace:
			s.NoSpace++
		case OutcomeFailed:
			s.MoveFailed++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
