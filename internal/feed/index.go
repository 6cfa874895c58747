package feed

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/simtagger/internal/domain"
	"github.com/John-Robertt/simtagger/internal/identity"
)

// Index 是 (ICAO, 规范化版本) -> feed 记录 的查找表。
// 构建完成后只读；每次 run 重新构建，不持久化。
type Index struct {
	m map[domain.Key]domain.FeedRecord
}

// Lookup 查找 (icao, version)；icao 大小写不敏感，version 必须已规范化。
func (ix *Index) Lookup(icao domain.ICAO, version string) (domain.FeedRecord, bool) {
	if ix == nil || ix.m == nil {
		return domain.FeedRecord{}, false
	}
	k := domain.Key{ICAO: domain.ICAO(strings.ToUpper(string(icao))), Version: version}
	r, ok := ix.m[k]
	return r, ok
}

func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.m)
}

// Conflict 记录一次被后来记录覆盖的 key。
type Conflict struct {
	Key      domain.Key
	Previous domain.FeedRecord
	Winner   domain.FeedRecord
}

type MergeResult struct {
	Index     *Index
	Conflicts []Conflict
}

// Merge 按给定顺序合并记录：同一 key 后出现的记录覆盖先出现的（last-write-wins）。
// 身份不完整的记录被忽略。结果只取决于输入顺序，与文件遍历方式无关。
func Merge(records []domain.FeedRecord) MergeResult {
	res := MergeResult{Index: &Index{m: make(map[domain.Key]domain.FeedRecord, len(records))}}
	for _, r := range records {
		k := r.Key()
		if !k.Valid() {
			continue
		}
		if prev, ok := res.Index.m[k]; ok {
			res.Conflicts = append(res.Conflicts, Conflict{Key: k, Previous: prev, Winner: r})
		}
		res.Index.m[k] = r
	}
	return res
}

// FileError 是被跳过的 feed 文件。
type FileError struct {
	Path string
	Err  error
}

// LoadStats 汇总一次 BuildIndex 的加载情况。
type LoadStats struct {
	Files        int
	BadFiles     []FileError
	UnknownShape []string
	Records      int // 解析出的原始记录数
	Dropped      int // 身份不完整或 tag 为空而被丢弃的记录数
	Conflicts    int
}

// Normalize 把一条原始记录转换为 FeedRecord；身份不完整或 tag 为空时返回 false。
func Normalize(raw RawRecord, source string) (domain.FeedRecord, bool) {
	if raw.Tag == "" {
		return domain.FeedRecord{}, false
	}
	icao, version := identity.FeedIdentity(raw.Title, plainText(raw.Description), raw.PageURL)
	if icao == "" || version == "" {
		return domain.FeedRecord{}, false
	}
	return domain.FeedRecord{
		ICAO:    icao,
		Version: version,
		Tag:     raw.Tag,
		Title:   raw.Title,
		Source:  source,
	}, true
}

// BuildIndex 递归加载 root 下所有 *.json（扩展名大小写不敏感），按路径字典序处理，后处理的文件覆盖先处理的。
//
// root 本身不可读时返回错误；单个文件损坏或形态未知只记录并跳过。
func BuildIndex(root string, logger *slog.Logger) (*Index, LoadStats, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var stats LoadStats

	paths, err := discover(root, logger)
	if err != nil {
		return nil, stats, err
	}

	var records []domain.FeedRecord
	for _, p := range paths {
		stats.Files++
		doc, err := LoadDocument(p)
		if err != nil {
			stats.BadFiles = append(stats.BadFiles, FileError{Path: p, Err: err})
			logger.Warn("跳过无效 feed 文件", "path", p, "error", err)
			continue
		}
		if doc.Shape == DocUnknown {
			stats.UnknownShape = append(stats.UnknownShape, p)
			logger.Warn("跳过未知形态的 feed 文件", "path", p)
			continue
		}
		for _, raw := range doc.Records {
			stats.Records++
			r, ok := Normalize(raw, p)
			if !ok {
				stats.Dropped++
				logger.Debug("丢弃无法识别的 feed 记录", "path", p, "title", raw.Title, "tag", raw.Tag)
				continue
			}
			records = append(records, r)
		}
	}

	res := Merge(records)
	stats.Conflicts = len(res.Conflicts)
	for _, c := range res.Conflicts {
		logger.Debug("feed 记录被覆盖", "key", c.Key.String(), "previous", c.Previous.Source, "winner", c.Winner.Source)
	}
	return res.Index, stats, nil
}

func discover(root string, logger *slog.Logger) ([]string, error) {
	root = filepath.Clean(root)
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, &fs.PathError{Op: "walk", Path: root, Err: fs.ErrInvalid}
	}

	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("跳过不可读的 feed 目录", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".json") && d.Type().IsRegular() {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
