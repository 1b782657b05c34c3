package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcliao/speech-query/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Query configuration files",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default query configuration",
		Long:  "Write the default query configuration to path (default: ~/.speech-query/query.yaml).",
		Args:  cobra.MaximumNArgs(1),
		Run:   runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")

	checkCmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Validate a query configuration",
		Args:  cobra.ExactArgs(1),
		Run:   runConfigCheck,
	}

	configCmd.AddCommand(initCmd, checkCmd)
	RootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".speech-query", "query.yaml")
	}
	if _, err := os.Stat(path); err == nil && !force {
		exitErr("config init", fmt.Errorf("%s exists (use --force to overwrite)", path))
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		exitErr("config init", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"path":%q}`+"\n", path)
}

func runConfigCheck(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(args[0])
	if err != nil {
		exitErr("config", err)
	}
	if err := cfg.Validate(); err != nil {
		exitErr("config", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"kind":%q,"tier":%q,"pattern":%q}`+"\n", cfg.Kind, cfg.Tier, cfg.Pattern)
}
