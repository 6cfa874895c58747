package planner

import (
	"path/filepath"
	"strings"

	"github.com/John-Robertt/simtagger/internal/domain"
)

// Lookup 是 resolver 对 feed 索引的唯一依赖（只读）。
type Lookup interface {
	Lookup(icao domain.ICAO, version string) (domain.FeedRecord, bool)
}

// Roots 用于计算迁移目标：dest_root 下保留 addon 相对 addons_root 的全部中间目录。
type Roots struct {
	AddonsRoot string
	DestRoot   string
}

// Resolve 把扫描单元与 feed 索引做一次纯 join，得出处理结论（不做任何 I/O）。
//
// - 未命中（manifest 损坏、身份不完整、索引中不存在）：NONE，Reason 说明原因
// - 命中：simType 缺失或与 feed tag 不同 -> 需要更新；feed tag == acceptedTag -> 需要迁移
func Resolve(u domain.AddonUnit, ix Lookup, acceptedTag string, roots Roots) domain.Decision {
	switch {
	case u.ParseErr != "":
		return domain.Decision{Kind: domain.DecisionNone, Reason: domain.ReasonBadJSON}
	case u.Version == "":
		return domain.Decision{Kind: domain.DecisionNone, Reason: domain.ReasonNoVersion}
	case u.ICAO == "":
		return domain.Decision{Kind: domain.DecisionNone, Reason: domain.ReasonNoICAO}
	}

	rec, ok := ix.Lookup(u.ICAO, u.Version)
	if !ok {
		return domain.Decision{Kind: domain.DecisionNone, Reason: domain.ReasonNoMatch}
	}

	needUpdate := !u.HasSimType || u.CurrentSimType != rec.Tag
	needMove := rec.Tag == acceptedTag

	d := domain.Decision{
		Kind:    domain.DecisionFor(needUpdate, needMove),
		Matched: true,
		Tag:     rec.Tag,
	}
	if needMove {
		d.Dest = Destination(u, roots)
	}
	if d.Kind == domain.DecisionNone {
		d.Reason = domain.ReasonNoop
	}
	return d
}

// Destination 把 addon 目录从 addons_root 重新挂到 dest_root 下。
// 无法得到相对路径（不在 addons_root 内）时只保留目录名。
func Destination(u domain.AddonUnit, roots Roots) string {
	rel := u.RelPath
	if rel == "" {
		if r, err := filepath.Rel(filepath.Clean(roots.AddonsRoot), u.FolderPath); err == nil {
			rel = r
		}
	}
	if rel == "" || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		rel = filepath.Base(u.FolderPath)
	}
	return filepath.Join(roots.DestRoot, rel)
}
