package config

import (
	"bytes"

	"github.com/pelletier/go-toml/v2"
)

// Encode 把最终配置渲染为 TOML（config show 与日志横幅使用）。
// 输出可以直接保存为 simtagger.toml 再次读取。
func Encode(eff EffectiveConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(eff); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
