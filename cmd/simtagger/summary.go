package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/John-Robertt/simtagger/internal/domain"
)

type summaryRow struct {
	key string
	n   int
}

// summaryRows 按模式挑选计数：dry-run 展示 WILL_*，apply 展示实际结果。
func summaryRows(rr domain.RunReport) []summaryRow {
	s := rr.Summary
	var rows []summaryRow
	if rr.DryRun {
		rows = append(rows, summaryRow{"WILL_UPDATE", s.WillUpdate})
	} else {
		rows = append(rows, summaryRow{"UPDATED", s.Updated}, summaryRow{"UPDATE_FAILED", s.UpdateFailed})
	}
	rows = append(rows,
		summaryRow{"NOOP", s.Noop},
		summaryRow{"NO_VERSION", s.NoVersion},
		summaryRow{"NO_ICAO", s.NoICAO},
		summaryRow{"NO_MATCH", s.NoMatch},
		summaryRow{"BAD_JSON", s.BadJSON},
	)
	if rr.DryRun {
		rows = append(rows,
			summaryRow{"WILL_MOVE", s.WillMove},
			summaryRow{"SKIP_EXIST", s.SkipExist},
			summaryRow{"WILL_NO_SPACE", s.WillNoSpace},
			summaryRow{"MOVE_FAIL", s.MoveFailed},
		)
	} else {
		rows = append(rows,
			summaryRow{"MOVED", s.Moved},
			summaryRow{"SKIP_EXIST", s.SkipExist},
			summaryRow{"NO_SPACE", s.NoSpace},
			summaryRow{"MOVE_FAIL", s.MoveFailed},
		)
	}
	return rows
}

// renderSummary 输出最终计数；终端下渲染表格，否则输出 “key: n” 便于 grep。
// 之后按原样列出所有 BAD_JSON 文件。
func renderSummary(w io.Writer, rr domain.RunReport, tty bool) {
	if rr.Aborted {
		fmt.Fprintf(w, "ABORTED %s: %s\n", rr.AbortCode, rr.AbortMsg)
		return
	}

	rows := summaryRows(rr)
	fmt.Fprintln(w)
	if tty {
		cells := make([][]string, 0, len(rows))
		for _, r := range rows {
			cells = append(cells, []string{r.key, strconv.Itoa(r.n)})
		}
		fmt.Fprintln(w, renderTable([]string{"Category", "Count"}, cells, []columnAlignment{alignLeft, alignRight}))
	} else {
		fmt.Fprintln(w, "Summary:")
		for _, r := range rows {
			fmt.Fprintf(w, "  %s: %d\n", r.key, r.n)
		}
	}
	if rr.Interrupted {
		fmt.Fprintf(w, "INTERRUPTED: %d addon(s) processed before cancellation\n", len(rr.Items))
	}

	if len(rr.BadJSON) > 0 {
		fmt.Fprintf(w, "\nBAD_JSON (%d):\n", len(rr.BadJSON))
		for _, b := range rr.BadJSON {
			fmt.Fprintf(w, "  %s: %s\n", b.Path, b.Error)
		}
	}
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// isTerminal 仅对真实终端返回 true；测试注入的 buffer 一律视为非终端。
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func reportPath(dir string) string {
	return filepath.Join(dir, reportFileName)
}
