package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/simtagger/internal/config"
)

func newConfigCommand(stdout io.Writer) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "配置工具",
	}
	configCmd.AddCommand(newConfigShowCommand(stdout))
	return configCmd
}

func newConfigShowCommand(stdout io.Writer) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "show",
		Short: "以 TOML 输出合并后的生效配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return &exitError{Code: 1, Err: err}
			}
			eff, err := config.LoadEffective(cwd, flags.cliArgs(cmd))
			if err != nil {
				return &exitError{Code: 1, Err: err}
			}
			b, err := config.Encode(eff)
			if err != nil {
				return &exitError{Code: 1, Err: err}
			}
			if eff.ConfigFile != "" {
				fmt.Fprintf(stdout, "# source: %s\n", eff.ConfigFile)
			}
			if _, err := stdout.Write(b); err != nil {
				return &exitError{Code: 1, Err: err}
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newVersionCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "输出版本号",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "simtagger %s\n", version)
		},
	}
}
