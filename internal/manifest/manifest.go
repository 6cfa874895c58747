// Package manifest 读取 addon 的 manifest.json，并以保持原有格式的方式改写单个顶层字段。
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/John-Robertt/simtagger/internal/infra/fsx"
)

// FileName 是 addon 目录内 manifest 的固定文件名。
const FileName = "manifest.json"

// SimTypeField 是被读取与改写的目标字段。
const SimTypeField = "simType"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseError 表示 manifest 不是合法的 JSON 对象。
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("manifest 解析失败：%v", e.Err)
	}
	return fmt.Sprintf("manifest 解析失败：%s：%v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Manifest 是对识别与打标有用的字段子集。
type Manifest struct {
	Title          string
	PackageVersion string

	SimType    string
	HasSimType bool // simType 存在且为字符串；null 或非字符串视为缺失
}

// Read 读取并解析 path。
// I/O 错误原样返回；内容不是 JSON 对象时返回 *ParseError。
func Read(path string) (Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	m, err := Parse(b)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return Manifest{}, err
	}
	return m, nil
}

// Parse 解析 manifest 内容（允许 UTF-8 BOM）。
func Parse(b []byte) (Manifest, error) {
	b = bytes.TrimPrefix(b, utf8BOM)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return Manifest{}, &ParseError{Err: err}
	}
	if fields == nil {
		return Manifest{}, &ParseError{Err: errors.New("顶层不是 JSON 对象")}
	}

	var m Manifest
	m.Title = stringField(fields, "title")
	m.PackageVersion = stringField(fields, "package_version")
	if raw, ok := fields[SimTypeField]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			m.SimType = s
			m.HasSimType = true
		}
	}
	return m, nil
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// WriteField 把 path 的顶层字段 key 改写为 value 并原子写回。
// 其余字段的顺序、缩进与内容保持不变。
func WriteField(path, key, value string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := SetField(b, key, value)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return err
	}
	if bytes.Equal(out, b) {
		return nil
	}
	return fsx.ReplaceFileAtomic(path, out)
}

// SetField 返回把顶层字段 key 设为字符串 value 后的新内容。
//
// - key 已存在：只替换它的值所在的字节区间
// - key 不存在：追加为最后一个字段，缩进与冒号风格沿用第一个字段
// - 重复 key：替换最后一次出现（与 encoding/json 的读取语义一致）
func SetField(raw []byte, key, value string) ([]byte, error) {
	bom := bytes.HasPrefix(raw, utf8BOM)
	body := bytes.TrimPrefix(raw, utf8BOM)

	layout, err := scanObject(body, key)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	enc, err := encodeString(value)
	if err != nil {
		return nil, err
	}

	var out []byte
	if bom {
		out = append(out, utf8BOM...)
	}

	if layout.valueStart >= 0 {
		out = append(out, body[:layout.valueStart]...)
		out = append(out, enc...)
		out = append(out, body[layout.valueEnd:]...)
		return out, nil
	}

	keyEnc, err := encodeString(key)
	if err != nil {
		return nil, err
	}

	if layout.count == 0 {
		out = append(out, body[:layout.open+1]...)
		out = append(out, keyEnc...)
		out = append(out, ": "...)
		out = append(out, enc...)
		out = append(out, body[layout.close:]...)
		return out, nil
	}

	// 插入到最后一个值之后，保留其后的空白（通常是换行 + 收尾缩进）。
	ins := make([]byte, 0, len(keyEnc)+len(enc)+len(layout.indent)+4)
	ins = append(ins, ',')
	ins = append(ins, layout.indent...)
	ins = append(ins, keyEnc...)
	ins = append(ins, layout.colon...)
	ins = append(ins, enc...)

	out = append(out, body[:layout.lastValueEnd]...)
	out = append(out, ins...)
	out = append(out, body[layout.lastValueEnd:]...)
	return out, nil
}

// objectLayout 记录顶层对象中定位插入/替换点所需的字节偏移。
type objectLayout struct {
	open, close  int // '{' 与 '}' 的偏移
	count        int // 顶层字段数
	lastValueEnd int

	valueStart, valueEnd int // 目标 key 的值区间；不存在时为 -1

	indent string // 第一个字段之前的空白（例如 "\n  "）
	colon  string // 第一个字段的 key 与值之间的分隔（例如 ": "）
}

func scanObject(body []byte, key string) (objectLayout, error) {
	l := objectLayout{valueStart: -1, valueEnd: -1}

	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return l, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return l, errors.New("顶层不是 JSON 对象")
	}
	l.open = int(dec.InputOffset()) - 1

	for dec.More() {
		before := int(dec.InputOffset())
		kt, err := dec.Token()
		if err != nil {
			return l, err
		}
		k, ok := kt.(string)
		if !ok {
			return l, errors.New("对象 key 不是字符串")
		}
		afterKey := int(dec.InputOffset())

		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return l, err
		}
		end := int(dec.InputOffset())
		start := end - len(v)

		if l.count == 0 {
			keyStart := skipSpace(body, before)
			l.indent = string(body[before:keyStart])
			l.colon = string(body[afterKey:start])
		}
		l.count++
		l.lastValueEnd = end
		if k == key {
			l.valueStart, l.valueEnd = start, end
		}
	}

	tok, err = dec.Token()
	if err != nil {
		return l, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '}' {
		return l, errors.New("对象未正确闭合")
	}
	l.close = int(dec.InputOffset()) - 1

	if _, err := dec.Token(); err != io.EOF {
		return l, errors.New("对象之后存在多余内容")
	}
	return l, nil
}

func skipSpace(b []byte, i int) int {
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

// encodeString 编码为 JSON 字符串，不转义 HTML 字符（"MSFS 2020/2024" 中的斜杠与 & 原样保留）。
func encodeString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
