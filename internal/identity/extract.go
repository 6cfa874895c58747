package identity

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/John-Robertt/simtagger/internal/domain"
)

// 不是机场代码的常见 4 字母词；宁可 unmatched，也不允许匹配错。
var stopWords = map[string]struct{}{
	"MSFS": {}, "FREE": {}, "PACK": {}, "MESH": {}, "DEMO": {}, "BETA": {},
	"LITE": {}, "FULL": {}, "HTTP": {}, "HTML": {}, "JSON": {}, "WWWW": {},
	"ORBX": {}, "SODE": {}, "PARK": {}, "CITY": {}, "INTL": {}, "TEST": {},
	"MODS": {}, "PLUS": {}, "ASIA": {}, "ICAO": {},
}

var (
	versionRE     = regexp.MustCompile(`^(\d+)((?:[._-]\d+)*)(.*)$`)
	versionTextRE = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(v?)(\d+(?:[._-]\d+)*)`)
	explicitICAO  = regexp.MustCompile(`(?i)\bICAO:\s*([A-Za-z]{4})\b`)
)

// Extract 从有序的文本来源中提取 (ICAO, 规范化版本)。
// 两个分量独立提取，任一失败时对应返回值为空；纯函数，不访问文件系统。
func Extract(sources ...string) (domain.ICAO, string) {
	return ExtractICAO(sources...), VersionFromText(sources...)
}

// ExtractICAO 按来源顺序查找 4 字母机场代码，第一个命中的胜出。
//
// 第一轮只接受本身已是大写、两侧既非字母也非数字的 token（"VTBU Rayong"）；
// 第二轮接受任意大小写、但处于 slug 上下文中的 token（"vtbu-rayong"、"Vtbu_Rayong"）：
// 两侧都是分隔符，且至少一侧是 - _ /，或 token 就是整个字符串。
// 空格分隔的普通单词（"Park"、"with"）永远不会被当作 ICAO。
func ExtractICAO(sources ...string) domain.ICAO {
	folded := make([]string, 0, len(sources))
	for _, s := range sources {
		folded = append(folded, fold(s))
	}
	for _, s := range folded {
		if c, ok := scanTokens(s, isUpperToken); ok {
			return c
		}
	}
	for _, s := range folded {
		if c, ok := scanTokens(s, isSlugToken); ok {
			return c
		}
	}
	return ""
}

// NormalizeVersion 把版本字符串规范化为 "major.minor.patch[.more][qualifier]"。
//
// 规则：去掉首尾空白与单个前导 v/V；数字段之间允许 . - _；
// 数字段按整数解析（去掉前导零）并补齐到三段；非数字尾缀原样保留。
// 非法输入返回空串。
func NormalizeVersion(s string) string {
	s = strings.TrimSpace(fold(s))
	if strings.HasPrefix(s, "v") || strings.HasPrefix(s, "V") {
		s = s[1:]
	}
	m := versionRE.FindStringSubmatch(s)
	if m == nil {
		return ""
	}

	parts := []string{m[1]}
	if m[2] != "" {
		parts = append(parts, strings.FieldsFunc(m[2], func(r rune) bool {
			return r == '.' || r == '-' || r == '_'
		})...)
	}
	nums := make([]string, 0, max(3, len(parts)))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return ""
		}
		nums = append(nums, strconv.FormatUint(n, 10))
	}
	for len(nums) < 3 {
		nums = append(nums, "0")
	}
	return strings.Join(nums, ".") + m[3]
}

// VersionFromText 在自由文本中查找版本号：优先带 v 前缀的 token，其次带分隔符的 token。
// 裸整数（例如 "2020"）不视为版本。
func VersionFromText(sources ...string) string {
	for _, s := range sources {
		var dotted string
		for _, m := range versionTextRE.FindAllStringSubmatch(fold(s), -1) {
			if m[1] != "" {
				if v := NormalizeVersion(m[2]); v != "" {
					return v
				}
				continue
			}
			if dotted == "" && strings.ContainsAny(m[2], "._-") {
				dotted = m[2]
			}
		}
		if dotted != "" {
			if v := NormalizeVersion(dotted); v != "" {
				return v
			}
		}
	}
	return ""
}

// FeedIdentity 从 feed 记录的自由文本字段中提取身份。
// 描述中显式的 "ICAO: XXXX" 优先；否则依次尝试标题、描述、page_url 的路径 slug。
// 版本先看标题，再看描述。
func FeedIdentity(title, description, pageURL string) (domain.ICAO, string) {
	icao := domain.ICAO("")
	if m := explicitICAO.FindStringSubmatch(fold(description)); m != nil {
		if c, ok := domain.ParseICAO(m[1]); ok {
			if _, stop := stopWords[string(c)]; !stop {
				icao = c
			}
		}
	}
	if icao == "" {
		icao = ExtractICAO(title, description, urlSlug(pageURL))
	}
	return icao, VersionFromText(title, description)
}

func fold(s string) string {
	return norm.NFKC.String(s)
}

// urlSlug 只取 URL 的路径部分，避免把域名（www、http）当作候选。
func urlSlug(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return ""
	}
	return strings.Trim(path.Clean(u.Path), "/")
}

// scanTokens 依次检查 s 中每个最长连续 ASCII 字母段。
func scanTokens(s string, accept func(s string, start, end int) bool) (domain.ICAO, bool) {
	i := 0
	for i < len(s) {
		if !isLetter(s[i]) {
			i++
			continue
		}
		j := i
		for j < len(s) && isLetter(s[j]) {
			j++
		}
		if j-i == 4 && accept(s, i, j) {
			if c, ok := domain.ParseICAO(s[i:j]); ok {
				if _, stop := stopWords[string(c)]; !stop {
					return c, true
				}
			}
		}
		i = j
	}
	return "", false
}

func isUpperToken(s string, start, end int) bool {
	for k := start; k < end; k++ {
		if s[k] < 'A' || s[k] > 'Z' {
			return false
		}
	}
	return !neighborIsAlnum(s, start, end)
}

func isSlugToken(s string, start, end int) bool {
	if !isSeparatorAt(s, start-1) || !isSeparatorAt(s, end) {
		return false
	}
	if start == 0 && end == len(s) {
		return true
	}
	return isSlugJoinAt(s, start-1) || isSlugJoinAt(s, end)
}

func isSlugJoinAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	switch s[i] {
	case '-', '_', '/':
		return true
	}
	return false
}

func neighborIsAlnum(s string, start, end int) bool {
	if start > 0 && isAlnumByte(s[start-1]) {
		return true
	}
	if end < len(s) && isAlnumByte(s[end]) {
		return true
	}
	// 非 ASCII 字母（例如重音字母）紧邻时也不算独立 token
	if start > 0 && s[start-1] >= 0x80 {
		return true
	}
	if end < len(s) && s[end] >= 0x80 {
		return true
	}
	return false
}

// isSeparatorAt 把字符串边界也视为分隔符。
func isSeparatorAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	switch s[i] {
	case ' ', '\t', '-', '_', '/', '.', '(', ')', '[', ']', ',':
		return true
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isAlnumByte(b byte) bool {
	return isLetter(b) || (b >= '0' && b <= '9')
}
