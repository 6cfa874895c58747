package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingRoot 表示 addons_root/feed_root/dest_root 之一没有配置。
	ErrCodeMissingRoot = "config_missing_root"
	// ErrCodeRootNotFound 表示根目录不存在。
	ErrCodeRootNotFound = "root_not_found"
	// ErrCodeRootUnreadable 表示根目录存在但不可读或不是目录。
	ErrCodeRootUnreadable = "root_unreadable"
)

const (
	// DefaultSpaceMarginBytes 是跨卷复制时额外要求的剩余空间（250 MiB）。
	DefaultSpaceMarginBytes int64 = 250 * 1024 * 1024
	DefaultAcceptedTag            = "MSFS 2020/2024"
	DefaultLogDir                 = "logs"
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "text"

	// ConfigName 是 cwd 下自动发现的配置文件名（扩展名 toml/yaml/json 均可）。
	ConfigName = "simtagger"
)

// 每个配置项可以由多个环境变量提供，按顺序取第一个非空值。
var envBindings = []struct {
	key   string
	names []string
}{
	{"addons_root", []string{"ADDONS_ROOT", "SIMTAGGER_ADDONS_ROOT"}},
	{"feed_root", []string{"FEED_ROOT", "SIMTAGGER_FEED_ROOT"}},
	{"dest_root", []string{"DEST_ROOT", "SIMTAGGER_DEST_ROOT"}},
	{"space_margin_bytes", []string{"SPACE_MARGIN_BYTES", "SIMTAGGER_SPACE_MARGIN_BYTES"}},
	{"accepted_tag", []string{"ACCEPTED_TAG", "SIMTAGGER_ACCEPTED_TAG"}},
	{"apply", []string{"SIMTAGGER_APPLY"}},
	{"exclude_dirs", []string{"SIMTAGGER_EXCLUDE_DIRS"}},
	{"log_dir", []string{"SIMTAGGER_LOG_DIR"}},
	{"log_level", []string{"SIMTAGGER_LOG_LEVEL"}},
	{"log_format", []string{"SIMTAGGER_LOG_FORMAT"}},
}

// CLIArgs 是 CLI 暴露的参数，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖环境变量里的 apply=true。
type CLIArgs struct {
	AddonsRoot string
	FeedRoot   string
	DestRoot   string

	AcceptedTag    string
	AcceptedTagSet bool

	SpaceMarginBytes int64
	SpaceMarginSet   bool

	Apply    bool
	ApplySet bool

	ConfigFile string
	LogDir     string
	LogLevel   string
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	AddonsRoot string `toml:"addons_root"`
	FeedRoot   string `toml:"feed_root"`
	DestRoot   string `toml:"dest_root"`

	SpaceMarginBytes int64  `toml:"space_margin_bytes"`
	AcceptedTag      string `toml:"accepted_tag"`
	Apply            bool   `toml:"apply"`

	ExcludeDirs []string `toml:"exclude_dirs"`

	LogDir    string `toml:"log_dir"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	// ConfigFile 是实际读取的配置文件；未使用配置文件时为空。
	ConfigFile string `toml:"-"`
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeMissingRoot:
		return fmt.Sprintf("%s：缺少 %s（可用 --%s 或环境变量 %s 指定）", e.Code, e.Path, strings.ReplaceAll(e.Path, "_", "-"), strings.ToUpper(e.Path))
	case ErrCodeRootNotFound:
		return fmt.Sprintf("%s：目录不存在：%q", e.Code, e.Path)
	case ErrCodeRootUnreadable:
		if e.Err != nil {
			return fmt.Sprintf("%s：目录不可读：%q：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：目录不可读：%q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 合并各来源得到最终配置。
//
// 覆盖优先级（固定，高 -> 低）：
// 1) CLI 显式参数
// 2) 进程环境变量（ADDONS_ROOT 等；空值视为未设置）
// 3) <cwd>/.env（不会修改进程环境）
// 4) 配置文件：--config 指定的文件，否则 <cwd>/simtagger.{toml,yaml,json}（可选）
// 5) 内置默认值
//
// 相对路径一律相对 cwd 解析为绝对路径。该函数不检查目录是否存在，见 Validate。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	v := viper.New()
	v.SetDefault("space_margin_bytes", DefaultSpaceMarginBytes)
	v.SetDefault("accepted_tag", DefaultAcceptedTag)
	v.SetDefault("apply", false)
	v.SetDefault("log_dir", DefaultLogDir)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)

	cfgPath, err := readConfigFile(v, cwdAbs, cli.ConfigFile)
	if err != nil {
		return EffectiveConfig{}, err
	}

	envPath := filepath.Join(cwdAbs, ".env")
	dotenv, err := readDotenv(envPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: envPath, Err: err}
	}
	if len(dotenv) > 0 {
		layer := map[string]any{}
		for _, b := range envBindings {
			for _, name := range b.names {
				if val := strings.TrimSpace(dotenv[name]); val != "" {
					layer[b.key] = val
					break
				}
			}
		}
		if err := v.MergeConfigMap(layer); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: envPath, Err: err}
		}
	}

	for _, b := range envBindings {
		if err := v.BindEnv(append([]string{b.key}, b.names...)...); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: b.key, Err: err}
		}
	}

	return merge(v, cwdAbs, cli, cfgPath)
}

func merge(v *viper.Viper, cwdAbs string, cli CLIArgs, cfgPath string) (EffectiveConfig, error) {
	invalid := func(key string, err error) error {
		p := key
		if cfgPath != "" {
			p = cfgPath + "#" + key
		}
		return &Error{Code: ErrCodeInvalid, Path: p, Err: err}
	}

	eff := EffectiveConfig{ConfigFile: cfgPath}

	// 路径：CLI > env > .env > 配置文件；三个根目录都是必填项。
	roots := []struct {
		key string
		cli string
		dst *string
	}{
		{"addons_root", cli.AddonsRoot, &eff.AddonsRoot},
		{"feed_root", cli.FeedRoot, &eff.FeedRoot},
		{"dest_root", cli.DestRoot, &eff.DestRoot},
	}
	for _, r := range roots {
		p := strings.TrimSpace(r.cli)
		if p == "" {
			p = strings.TrimSpace(v.GetString(r.key))
		}
		if p == "" {
			return EffectiveConfig{}, &Error{Code: ErrCodeMissingRoot, Path: r.key}
		}
		*r.dst = absCleanFrom(cwdAbs, p)
	}

	// space_margin_bytes：必须是非负整数。
	if cli.SpaceMarginSet {
		eff.SpaceMarginBytes = cli.SpaceMarginBytes
	} else {
		n, err := cast.ToInt64E(strings.TrimSpace(cast.ToString(v.Get("space_margin_bytes"))))
		if err != nil {
			return EffectiveConfig{}, invalid("space_margin_bytes", fmt.Errorf("必须是整数：%w", err))
		}
		eff.SpaceMarginBytes = n
	}
	if eff.SpaceMarginBytes < 0 {
		return EffectiveConfig{}, invalid("space_margin_bytes", fmt.Errorf("不能为负数：%d", eff.SpaceMarginBytes))
	}

	eff.AcceptedTag = v.GetString("accepted_tag")
	if cli.AcceptedTagSet {
		eff.AcceptedTag = cli.AcceptedTag
	}
	eff.AcceptedTag = strings.TrimSpace(eff.AcceptedTag)
	if eff.AcceptedTag == "" {
		return EffectiveConfig{}, invalid("accepted_tag", fmt.Errorf("不能为空"))
	}

	// apply：CLI > 其他 > 默认 false
	if cli.ApplySet {
		eff.Apply = cli.Apply
	} else {
		b, err := cast.ToBoolE(v.Get("apply"))
		if err != nil {
			return EffectiveConfig{}, invalid("apply", err)
		}
		eff.Apply = b
	}

	dirs, err := stringList(v.Get("exclude_dirs"))
	if err != nil {
		return EffectiveConfig{}, invalid("exclude_dirs", err)
	}
	eff.ExcludeDirs = dirs

	eff.LogDir = v.GetString("log_dir")
	if strings.TrimSpace(cli.LogDir) != "" {
		eff.LogDir = cli.LogDir
	}
	eff.LogDir = absCleanFrom(cwdAbs, eff.LogDir)

	eff.LogLevel = strings.ToLower(strings.TrimSpace(v.GetString("log_level")))
	if strings.TrimSpace(cli.LogLevel) != "" {
		eff.LogLevel = strings.ToLower(strings.TrimSpace(cli.LogLevel))
	}
	switch eff.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, invalid("log_level", fmt.Errorf("只能是 debug/info/warn/error，实际是 %q", eff.LogLevel))
	}

	eff.LogFormat = strings.ToLower(strings.TrimSpace(v.GetString("log_format")))
	switch eff.LogFormat {
	case "text", "json":
	default:
		return EffectiveConfig{}, invalid("log_format", fmt.Errorf("只能是 text 或 json，实际是 %q", eff.LogFormat))
	}

	return eff, nil
}

// Validate 检查根目录状态；任何失败都会阻止扫描开始。
//
// - addons_root、feed_root：必须存在、是目录且可读
// - dest_root：可以不存在（apply 时按需创建）；存在时必须是目录，且不能与 addons_root 相同
func Validate(eff EffectiveConfig) error {
	for _, root := range []string{eff.AddonsRoot, eff.FeedRoot} {
		if err := checkReadableDir(root); err != nil {
			return err
		}
	}

	if filepath.Clean(eff.DestRoot) == filepath.Clean(eff.AddonsRoot) {
		return &Error{Code: ErrCodeInvalid, Path: eff.DestRoot, Err: fmt.Errorf("dest_root 不能与 addons_root 相同")}
	}
	fi, err := os.Stat(eff.DestRoot)
	switch {
	case err == nil && !fi.IsDir():
		return &Error{Code: ErrCodeRootUnreadable, Path: eff.DestRoot, Err: fmt.Errorf("不是目录")}
	case err != nil && !os.IsNotExist(err):
		return &Error{Code: ErrCodeRootUnreadable, Path: eff.DestRoot, Err: err}
	}
	return nil
}

func checkReadableDir(p string) error {
	fi, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &Error{Code: ErrCodeRootNotFound, Path: p, Err: err}
		}
		return &Error{Code: ErrCodeRootUnreadable, Path: p, Err: err}
	}
	if !fi.IsDir() {
		return &Error{Code: ErrCodeRootUnreadable, Path: p, Err: fmt.Errorf("不是目录")}
	}
	f, err := os.Open(p)
	if err != nil {
		return &Error{Code: ErrCodeRootUnreadable, Path: p, Err: err}
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return &Error{Code: ErrCodeRootUnreadable, Path: p, Err: err}
	}
	return nil
}

// readConfigFile 读取配置文件，返回实际使用的路径（未使用时为空）。
// 显式指定的文件必须存在；自动发现的文件可选。
func readConfigFile(v *viper.Viper, cwdAbs, explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		p := absCleanFrom(cwdAbs, explicit)
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return "", &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		return p, nil
	}

	v.SetConfigName(ConfigName)
	v.AddConfigPath(cwdAbs)
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) {
			return "", nil
		}
		return "", &Error{Code: ErrCodeInvalid, Path: v.ConfigFileUsed(), Err: err}
	}
	return v.ConfigFileUsed(), nil
}

// readDotenv 读取 .env；文件不存在不算错误。
func readDotenv(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	env, err := gotenv.StrictParse(f)
	if err != nil {
		return nil, err
	}
	return env, nil
}

// stringList 接受列表或逗号分隔的字符串（环境变量只能是后者）。
func stringList(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	var items []string
	if s, ok := v.(string); ok {
		items = strings.Split(s, ",")
	} else {
		xs, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, err
		}
		items = xs
	}
	out := make([]string, 0, len(items))
	for _, x := range items {
		if x = strings.TrimSpace(x); x != "" {
			out = append(out, x)
		}
	}
	return out, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
