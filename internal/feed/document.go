package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DocShape 是 feed 文档的顶层形态。
type DocShape int

const (
	DocUnknown DocShape = iota
	DocArray            // [ {...}, {...} ]
	DocItems            // { "items": [ ... ] }
)

func (s DocShape) String() string {
	switch s {
	case DocArray:
		return "array"
	case DocItems:
		return "items"
	default:
		return "unknown"
	}
}

// RawRecord 是 feed 记录在规范化之前的统一形态。
// 不同来源的字段名差异（tag/category、page_url/link）在这里就被抹平。
type RawRecord struct {
	Title       string
	Description string
	PageURL     string
	Tag         string
}

// Document 是解析后的单个 feed 文件。
type Document struct {
	Path    string
	Shape   DocShape
	Records []RawRecord
	Skipped int // 非对象元素
}

// DocumentError 表示 feed 文件无法读取或不是合法 JSON。
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("feed 文件无效：%s：%v", e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// LoadDocument 读取并解析 path。
func LoadDocument(path string) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Document{Path: path}, &DocumentError{Path: path, Err: err}
	}
	doc, err := ParseDocument(b)
	doc.Path = path
	if err != nil {
		return doc, &DocumentError{Path: path, Err: err}
	}
	return doc, nil
}

// ParseDocument 把 feed 内容解析为 Document。
// 顶层既不是数组也不是带 items 数组的对象时返回 Shape==DocUnknown 且 err==nil。
func ParseDocument(b []byte) (Document, error) {
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return Document{}, fmt.Errorf("空文件")
	}

	var elems []json.RawMessage
	shape := DocUnknown
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return Document{}, err
		}
		shape = DocArray
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return Document{}, err
		}
		raw, ok := obj["items"]
		if !ok || json.Unmarshal(raw, &elems) != nil {
			return Document{Shape: DocUnknown}, nil
		}
		shape = DocItems
	default:
		if !json.Valid(trimmed) {
			return Document{}, fmt.Errorf("不是合法的 JSON")
		}
		return Document{Shape: DocUnknown}, nil
	}

	doc := Document{Shape: shape, Records: make([]RawRecord, 0, len(elems))}
	for _, e := range elems {
		var m map[string]any
		if err := json.Unmarshal(e, &m); err != nil || m == nil {
			doc.Skipped++
			continue
		}
		doc.Records = append(doc.Records, RawRecord{
			Title:       firstString(m, "title"),
			Description: firstString(m, "description"),
			PageURL:     firstString(m, "page_url", "link"),
			Tag:         firstString(m, "tag", "category"),
		})
	}
	return doc, nil
}

// firstString 返回第一个非空字符串字段（去掉首尾空白）。
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
