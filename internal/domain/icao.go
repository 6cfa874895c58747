package domain

import (
	"regexp"
	"strings"
)

// ICAO 是机场 addon 的主身份键（规范化后为 4 位大写字母，例如 VTBU）。
//
// 约束：要么得到合法 ICAO，要么为空；宁可 unmatched，也不允许匹配错。
type ICAO string

var icaoRE = regexp.MustCompile(`^[A-Z]{4}$`)

// ParseICAO 校验并解析规范化后的 ICAO 字符串。
// 输入允许大小写混合，输出统一为大写。
func ParseICAO(s string) (ICAO, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !icaoRE.MatchString(s) {
		return "", false
	}
	return ICAO(s), true
}

// Key 是 feed 索引的查找键：(ICAO, 规范化版本)。
type Key struct {
	ICAO    ICAO
	Version string
}

func (k Key) String() string {
	return string(k.ICAO) + "@" + k.Version
}

// Valid 表示两个分量都已解析。
func (k Key) Valid() bool {
	return k.ICAO != "" && k.Version != ""
}
