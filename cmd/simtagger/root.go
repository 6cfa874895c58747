package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/simtagger/internal/config"
)

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "simtagger",
		Short:         "按 feed 标记 MSFS 机场 addon 的 simType，并迁移被接受的 addon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newRunCommand(stdout, stderr))
	rootCmd.AddCommand(newConfigCommand(stdout))
	rootCmd.AddCommand(newVersionCommand(stdout))
	return rootCmd
}

// rootFlags 是 run 与 config show 共用的配置参数。
type rootFlags struct {
	addonsRoot  string
	feedRoot    string
	destRoot    string
	margin      int64
	acceptedTag string
	apply       bool
	configFile  string
	logDir      string
	logLevel    string
}

func (f *rootFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.addonsRoot, "addons-root", "", "已安装 addon 的根目录（ADDONS_ROOT）")
	fs.StringVar(&f.feedRoot, "feed-root", "", "feed JSON 文件目录（FEED_ROOT）")
	fs.StringVar(&f.destRoot, "dest-root", "", "被接受的 addon 迁移到的根目录（DEST_ROOT）")
	fs.Int64Var(&f.margin, "space-margin-bytes", config.DefaultSpaceMarginBytes, "跨卷复制时额外保留的空间（SPACE_MARGIN_BYTES）")
	fs.StringVar(&f.acceptedTag, "accepted-tag", config.DefaultAcceptedTag, "触发迁移的 tag（ACCEPTED_TAG）")
	fs.BoolVar(&f.apply, "apply", false, "执行写入与迁移（默认 dry-run）；支持 --apply=false 覆盖配置")
	fs.StringVarP(&f.configFile, "config", "c", "", "配置文件路径（默认 ./simtagger.{toml,yaml,json}）")
	fs.StringVar(&f.logDir, "log-dir", "", "日志目录（默认 ./logs）")
	fs.StringVar(&f.logLevel, "log-level", "", "日志级别：debug|info|warn|error")
}

// cliArgs 只把用户显式给出的参数视为 CLI 覆盖。
func (f *rootFlags) cliArgs(cmd *cobra.Command) config.CLIArgs {
	fs := cmd.Flags()
	return config.CLIArgs{
		AddonsRoot:       f.addonsRoot,
		FeedRoot:         f.feedRoot,
		DestRoot:         f.destRoot,
		AcceptedTag:      f.acceptedTag,
		AcceptedTagSet:   fs.Changed("accepted-tag"),
		SpaceMarginBytes: f.margin,
		SpaceMarginSet:   fs.Changed("space-margin-bytes"),
		Apply:            f.apply,
		ApplySet:         fs.Changed("apply"),
		ConfigFile:       f.configFile,
		LogDir:           f.logDir,
		LogLevel:         f.logLevel,
	}
}
