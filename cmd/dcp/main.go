// Command dcp is the control-plane CLI: status, config check, detect, run,
// health, and serve.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dcpsystems/dcp/internal/logging"
)

var (
	verbose    bool
	quiet      bool
	debug      bool
	configPath string

	log *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dcp",
	Short: "Declarative Control Plane — manage your project infrastructure",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := os.Getenv("DCP_LOG_LEVEL")
		switch {
		case debug:
			level = "debug"
		case verbose:
			level = "info"
		case quiet:
			level = "error"
		case level == "":
			level = "warning"
		}
		log = logging.New("dcp", logging.Config{
			Level:  level,
			Format: "text",
			File:   os.Getenv("DCP_LOG_FILE"),
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to project.yml (default: auto-detect)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging (very verbose)")

	rootCmd.AddCommand(statusCmd, configCmd, detectCmd, runCmd, healthCmd, serveCmd)
}

// resolvedProjectRoot returns the directory that holds the resolved config
// path, falling back to the current working directory.
func resolvedProjectRoot() string {
	if configPath != "" {
		return filepath.Dir(configPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "❌ "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
