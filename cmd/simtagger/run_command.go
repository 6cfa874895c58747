package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/simtagger/internal/app/run"
	"github.com/John-Robertt/simtagger/internal/config"
	"github.com/John-Robertt/simtagger/internal/domain"
	"github.com/John-Robertt/simtagger/internal/infra/fsx"
	"github.com/John-Robertt/simtagger/internal/infra/runlock"
	"github.com/John-Robertt/simtagger/internal/logging"
)

const reportFileName = "report.json"

func newRunCommand(stdout, stderr io.Writer) *cobra.Command {
	var flags rootFlags
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "扫描并处理 addon（默认 dry-run）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return &exitError{Code: 1, Err: fmt.Errorf("读取当前目录失败：%w", err)}
			}

			eff, err := config.LoadEffective(cwd, flags.cliArgs(cmd))
			if err != nil {
				if jsonOut {
					emitJSON(stdout, reportForConfigError(flags.apply && cmd.Flags().Changed("apply"), err))
				}
				return &exitError{Code: 1, Err: err}
			}

			opts := logging.Options{
				Level:  eff.LogLevel,
				Format: eff.LogFormat,
				Stdout: stdout,
				Stderr: stderr,
				Dir:    eff.LogDir,
			}
			if jsonOut {
				// stdout 只允许出现一个 RunReport JSON
				opts.Stdout = nil
			}
			sess, err := logging.Open(opts)
			if err != nil {
				return &exitError{Code: 1, Err: err}
			}
			defer sess.Close()

			if eff.Apply {
				lock, err := runlock.Acquire(eff.LogDir)
				if err != nil {
					return &exitError{Code: 1, Err: err}
				}
				defer func() {
					if err := lock.Release(); err != nil {
						sess.Logger.Warn("释放运行锁失败", "path", lock.Path, "error", err)
					}
				}()
			}

			rr := run.ExecuteWithObserver(cmd.Context(), eff, sess.Logger, newReporter(sess))

			if eff.Apply && !rr.Aborted {
				if err := writeReportFile(eff.LogDir, rr); err != nil {
					sess.Logger.Error("写入 report.json 失败", "error", err)
				} else {
					sess.Printf("report: %s", reportPath(eff.LogDir))
				}
			}

			renderSummary(sess.Lines, rr, isTerminal(stdout) && !jsonOut)
			if sess.FilePath != "" {
				sess.Printf("log: %s", sess.FilePath)
			}
			if jsonOut {
				emitJSON(stdout, rr)
			}

			switch {
			case rr.Aborted:
				return &exitError{Code: 1, Err: errors.New(rr.AbortMsg)}
			case rr.Interrupted:
				return &exitError{Code: 1, Err: errors.New("运行被中断")}
			}
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "在 stdout 输出 RunReport JSON（决策行只写入日志文件）")
	return cmd
}

func emitJSON(w io.Writer, rr domain.RunReport) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rr)
}

// reportForConfigError 为配置阶段失败构造一份 Aborted 报告（--json 时仍输出合法 JSON）。
func reportForConfigError(apply bool, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		DryRun:     !apply,
		StartedAt:  now,
		FinishedAt: now,
		Aborted:    true,
		AbortCode:  config.Code(err),
		AbortMsg:   err.Error(),
	}
	rr.Finalize()
	return rr
}

func writeReportFile(dir string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(dir, reportFileName, b)
}
