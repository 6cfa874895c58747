package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/simtagger/internal/domain"
	"github.com/John-Robertt/simtagger/internal/infra/runlock"
)

var envNames = []string{
	"ADDONS_ROOT", "FEED_ROOT", "DEST_ROOT", "SPACE_MARGIN_BYTES", "ACCEPTED_TAG",
	"SIMTAGGER_ADDONS_ROOT", "SIMTAGGER_FEED_ROOT", "SIMTAGGER_DEST_ROOT",
	"SIMTAGGER_SPACE_MARGIN_BYTES", "SIMTAGGER_ACCEPTED_TAG", "SIMTAGGER_APPLY",
	"SIMTAGGER_EXCLUDE_DIRS", "SIMTAGGER_LOG_DIR", "SIMTAGGER_LOG_LEVEL", "SIMTAGGER_LOG_FORMAT",
}

type cliFixture struct {
	addons, feed, dest, logs string
	src                      string
}

// newCLIFixture 在独立 cwd 下准备一个 UPDATE_AND_MOVE 场景。
func newCLIFixture(t *testing.T) cliFixture {
	t.Helper()
	for _, n := range envNames {
		t.Setenv(n, "")
	}
	base := t.TempDir()
	t.Chdir(base)

	f := cliFixture{
		addons: filepath.Join(base, "addons"),
		feed:   filepath.Join(base, "feed"),
		dest:   filepath.Join(base, "dest"),
		logs:   filepath.Join(base, "logs"),
	}
	f.src = filepath.Join(f.addons, "Asia", "Thailand", "vtbu-rayong")
	write(t, filepath.Join(f.feed, "feed.json"), `[{"title": "VTBU Rayong v1.2", "tag": "MSFS 2020/2024"}]`)
	write(t, filepath.Join(f.src, "manifest.json"), `{"package_version": "1.2", "simType": "MSFS 2020"}`)
	write(t, filepath.Join(f.addons, "broken", "manifest.json"), `{"title": `)
	return f
}

func (f cliFixture) args(extra ...string) []string {
	base := []string{"run", "--addons-root", f.addons, "--feed-root", f.feed, "--dest-root", f.dest, "--log-dir", f.logs}
	return append(base, extra...)
}

func write(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestRun_DryRunPrintsDecisionLines(t *testing.T) {
	f := newCLIFixture(t)
	var stdout, stderr bytes.Buffer

	code := execute(context.Background(), f.args(), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "addons_root: "+f.addons)
	assert.Contains(t, out, "space_margin: 250 MiB (262144000 bytes)")
	assert.Contains(t, out, "feed index: 1 entries")
	assert.Contains(t, out, "WILL_UPDATE "+filepath.Join(f.src, "manifest.json")+" (simType MSFS 2020 -> MSFS 2020/2024)")
	assert.Contains(t, out, "WILL_MOVE "+f.src+" -> "+filepath.Join(f.dest, "Asia", "Thailand", "vtbu-rayong")+" (rename)")
	assert.Contains(t, out, "  WILL_UPDATE: 1\n")
	assert.Contains(t, out, "\nBAD_JSON (1):\n")

	// dry-run：不迁移、不写 report.json、不加锁
	_, err := os.Stat(f.src)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(f.logs, reportFileName))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(f.logs, runlock.FileName))
	assert.True(t, os.IsNotExist(err))

	// 决策行同时写入日志文件
	logs, err := filepath.Glob(filepath.Join(f.logs, "simtagger_*.log"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	b, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), "WILL_MOVE ")
}

func TestRun_JSONStdoutIsSingleReport(t *testing.T) {
	f := newCLIFixture(t)
	var stdout, stderr bytes.Buffer

	code := execute(context.Background(), f.args("--json"), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var rr domain.RunReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rr), "stdout 必须是单个 RunReport JSON：%q", stdout.String())
	assert.True(t, rr.DryRun)
	assert.Len(t, rr.Items, 2)
	assert.Equal(t, 1, rr.Summary.WillMove)
	assert.NotContains(t, stdout.String(), "WILL_MOVE ")
}

func TestRun_ApplyWritesReportAndMoves(t *testing.T) {
	f := newCLIFixture(t)
	var stdout, stderr bytes.Buffer

	code := execute(context.Background(), f.args("--apply"), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.Contains(t, stdout.String(), "MOVE (rename) "+f.src)
	assert.Contains(t, stdout.String(), "  MOVED: 1\n")
	_, err := os.Stat(filepath.Join(f.dest, "Asia", "Thailand", "vtbu-rayong", "manifest.json"))
	assert.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(f.logs, reportFileName))
	require.NoError(t, err)
	var rr domain.RunReport
	require.NoError(t, json.Unmarshal(b, &rr))
	assert.False(t, rr.DryRun)
	assert.Equal(t, 1, rr.Summary.Updated)
	assert.Equal(t, 1, rr.Summary.Moved)
}

func TestRun_ApplyRefusesWhenLocked(t *testing.T) {
	f := newCLIFixture(t)
	lock, err := runlock.Acquire(f.logs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lock.Release() })

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), f.args("--apply"), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "另一个 simtagger apply 正在运行")
	_, err = os.Stat(f.src)
	assert.NoError(t, err, "锁冲突时不能处理任何 addon")
}

func TestRun_ConfigErrorsExitOne(t *testing.T) {
	f := newCLIFixture(t)
	var stdout, stderr bytes.Buffer

	code := execute(context.Background(), []string{"run", "--feed-root", f.feed, "--dest-root", f.dest, "--log-dir", f.logs}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "config_missing_root")

	stdout.Reset()
	stderr.Reset()
	args := f.args()
	args[2] = filepath.Join(f.addons, "missing")
	code = execute(context.Background(), args, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "ABORTED root_not_found")
}

func TestRun_UsageErrorsExitTwo(t *testing.T) {
	f := newCLIFixture(t)
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, execute(context.Background(), f.args("--bogus"), &stdout, &stderr))
	assert.Equal(t, 2, execute(context.Background(), f.args("--apply=maybe"), &stdout, &stderr))
	assert.Equal(t, 2, execute(context.Background(), f.args("extra-arg"), &stdout, &stderr))
}

func TestConfigShow_RendersTOML(t *testing.T) {
	f := newCLIFixture(t)
	var stdout, stderr bytes.Buffer

	code := execute(context.Background(), []string{"config", "show", "--addons-root", f.addons, "--feed-root", f.feed, "--dest-root", f.dest, "--accepted-tag", "Custom"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	out := stdout.String()
	assert.Contains(t, out, "accepted_tag")
	assert.Contains(t, out, "Custom")
	assert.Contains(t, out, "space_margin_bytes = 262144000")
}

func TestVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, execute(context.Background(), []string{"version"}, &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "simtagger "))
}
