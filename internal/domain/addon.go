package domain

// AddonUnit 描述一次扫描得到的 addon（一个 manifest.json 对应一个单元）。
//
// 不变量（实现必须遵守）：
// - FolderPath 必须是 clean + absolute，且是 manifest 所在目录
// - 单元只持有路径引用，不持有任何打开的文件句柄
// - manifest 解析失败时仍然产出单元：身份字段为空，ParseErr 非空
type AddonUnit struct {
	FolderPath   string
	RelPath      string // 相对 addons_root
	ManifestPath string

	Title          string // manifest.title（原样）
	PackageVersion string // manifest.package_version（原样）

	ICAO    ICAO
	Version string // 规范化版本

	CurrentSimType string
	HasSimType     bool

	ParseErr string
}

// Key 返回该单元的查找键；身份未解析时 Valid()==false。
func (u AddonUnit) Key() Key {
	return Key{ICAO: u.ICAO, Version: u.Version}
}

// FeedRecord 是一条 feed 记录规范化后的内部形态。
type FeedRecord struct {
	ICAO    ICAO
	Version string
	Tag     string

	Title  string
	Source string // 来源 feed 文件
}

func (r FeedRecord) Key() Key {
	return Key{ICAO: r.ICAO, Version: r.Version}
}
