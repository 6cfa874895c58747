package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/simtagger/internal/domain"
	"github.com/John-Robertt/simtagger/internal/identity"
	"github.com/John-Robertt/simtagger/internal/manifest"
)

// Options 控制扫描范围。
type Options struct {
	// ExcludeDirs 中的相对路径相对 root；绝对路径按原样处理。
	ExcludeDirs []string
	// OnSkip 在子目录不可读而被跳过时调用（可为 nil）。
	OnSkip func(path string, err error)
}

// WalkAddons 遍历 root，每发现一个 manifest.json 就构造一个 AddonUnit 并交给 fn。
//
// 规则（硬约束）：
// - manifest 所在目录即 addon 目录；没有 manifest 的目录不会被报告
// - manifest 损坏或不可读时仍然产出单元（ParseErr 非空），不中断扫描
// - 子目录不可读时跳过并通过 OnSkip 报告；root 本身不可读返回错误
// - fn 返回错误时遍历立即停止并返回该错误
//
// 遍历顺序为目录字典序；需要完整有序列表时使用 ScanAddons。
func WalkAddons(root string, opts Options, fn func(domain.AddonUnit) error) error {
	root = filepath.Clean(root)
	excluded := buildExcluded(root, opts.ExcludeDirs)

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			if opts.OnSkip != nil {
				opts.OnSkip(path, walkErr)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(d.Name(), manifest.FileName) {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return fn(LoadUnit(root, path))
	})
}

// ScanAddons 收集 root 下的全部 addon，并按相对路径排序。
// 先收集再处理，后续的移动不会干扰遍历。
func ScanAddons(root string, opts Options) ([]domain.AddonUnit, error) {
	units := make([]domain.AddonUnit, 0, 64)
	err := WalkAddons(root, opts, func(u domain.AddonUnit) error {
		units = append(units, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(units, func(i, j int) bool { return units[i].RelPath < units[j].RelPath })
	return units, nil
}

// LoadUnit 读取 manifestPath 并解析 addon 身份。
//
// ICAO：先看目录名，再看 manifest.title（目录 slug 比自由文本标题更可靠）。
// 版本：优先 package_version；缺失或非法时再从目录名与 title 中查找。
func LoadUnit(root, manifestPath string) domain.AddonUnit {
	folder := filepath.Dir(manifestPath)
	if abs, err := filepath.Abs(folder); err == nil {
		folder = abs
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Dir(manifestPath))
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		// manifest 位于 root 自身或 root 之外：只保留目录名
		rel = filepath.Base(folder)
	}

	u := domain.AddonUnit{
		FolderPath:   folder,
		RelPath:      rel,
		ManifestPath: manifestPath,
	}

	m, err := manifest.Read(manifestPath)
	if err != nil {
		u.ParseErr = err.Error()
		return u
	}
	u.Title = m.Title
	u.PackageVersion = m.PackageVersion
	u.CurrentSimType = m.SimType
	u.HasSimType = m.HasSimType

	folderName := filepath.Base(folder)
	u.ICAO = identity.ExtractICAO(folderName, m.Title)
	u.Version = identity.NormalizeVersion(m.PackageVersion)
	if u.Version == "" {
		u.Version = identity.VersionFromText(folderName, m.Title)
	}
	return u
}

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, len(excludeDirs))
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		// x 是相对路径：相对 root。
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}

	// 排除列表排序后，isExcluded 的行为更可预测（且便于测试）。
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

// IsUnder 判断 path 是否等于 base 或位于 base 之下（均需已 Clean）。
func IsUnder(path, base string) bool {
	return isUnder(path, base)
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, strings.TrimSuffix(base, sep)+sep)
}
