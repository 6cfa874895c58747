package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Fields(t *testing.T) {
	m, err := Parse([]byte(`{"title":" VTBU Rayong ","package_version":"1.2","simType":"MSFS 2020"}`))
	require.NoError(t, err)
	assert.Equal(t, "VTBU Rayong", m.Title)
	assert.Equal(t, "1.2", m.PackageVersion)
	assert.True(t, m.HasSimType)
	assert.Equal(t, "MSFS 2020", m.SimType)
}

func TestParse_NullAndMissingSimType(t *testing.T) {
	m, err := Parse([]byte(`{"simType":null}`))
	require.NoError(t, err)
	assert.False(t, m.HasSimType)

	m, err = Parse([]byte("\xEF\xBB\xBF{\"title\":\"x\"}"))
	require.NoError(t, err, "BOM 应被容忍")
	assert.False(t, m.HasSimType)
	assert.Equal(t, "x", m.Title)
}

func TestRead_ParseError(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(p, []byte(`{"title": `), 0o644))

	_, err := Read(p)
	var pe *ParseError
	require.True(t, errors.As(err, &pe), "期望 ParseError，实际 %v", err)
	assert.Equal(t, p, pe.Path)

	require.NoError(t, os.WriteFile(p, []byte(`[1,2]`), 0o644))
	_, err = Read(p)
	require.True(t, errors.As(err, &pe), "数组不是合法 manifest")
}

func TestSetField_ReplaceInPlace(t *testing.T) {
	in := "{\n  \"title\": \"VTBU\",\n  \"simType\": \"MSFS 2020\",\n  \"z\": [1, 2]\n}\n"
	out, err := SetField([]byte(in), "simType", "MSFS 2020/2024")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"title\": \"VTBU\",\n  \"simType\": \"MSFS 2020/2024\",\n  \"z\": [1, 2]\n}\n", string(out))
}

func TestSetField_AppendFollowsStyle(t *testing.T) {
	in := "{\n    \"title\": \"VTBU\",\n    \"package_version\": \"1.2\"\n}"
	out, err := SetField([]byte(in), "simType", "MSFS 2020/2024")
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"title\": \"VTBU\",\n    \"package_version\": \"1.2\",\n    \"simType\": \"MSFS 2020/2024\"\n}", string(out))

	compact := `{"a":1,"b":{"c":2}}`
	out, err = SetField([]byte(compact), "simType", "x")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":{"c":2},"simType":"x"}`, string(out))
}

func TestSetField_EmptyObjectAndBOM(t *testing.T) {
	out, err := SetField([]byte("\xEF\xBB\xBF{}"), "simType", "A&B")
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBF{\"simType\": \"A&B\"}", string(out))
}

func TestSetField_NullValueReplaced(t *testing.T) {
	out, err := SetField([]byte(`{"simType": null, "n": 1}`), "simType", "T")
	require.NoError(t, err)
	assert.Equal(t, `{"simType": "T", "n": 1}`, string(out))
}

func TestSetField_Invalid(t *testing.T) {
	for _, in := range []string{``, `[]`, `{"a":1`, `{"a":1} x`} {
		_, err := SetField([]byte(in), "simType", "T")
		var pe *ParseError
		assert.True(t, errors.As(err, &pe), "输入 %q 应返回 ParseError，实际 %v", in, err)
	}
}

func TestWriteField_RoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(p, []byte(`{"title":"VTBU","simType":"MSFS 2020"}`), 0o644))

	require.NoError(t, WriteField(p, SimTypeField, "MSFS 2020/2024"))

	m, err := Read(p)
	require.NoError(t, err)
	assert.Equal(t, "MSFS 2020/2024", m.SimType)
	assert.Equal(t, "VTBU", m.Title)
}
