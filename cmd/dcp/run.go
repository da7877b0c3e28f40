package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dcpsystems/dcp/internal/usecase"
)

var (
	runAsJSON      bool
	runModules     []string
	runEnvironment string
	runDryRun      bool
	runMock        bool
)

var runCmd = &cobra.Command{
	Use:   "run <capability>",
	Short: "Run a capability across project modules",
	Long: `Run a capability across project modules.

Examples:

  dcp run test
  dcp run lint --module api --module web
  dcp run build --dry-run`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		capability := args[0]

		result := usecase.RunAutomation(usecase.RunOptions{
			Capability:  capability,
			ConfigPath:  configPath,
			Modules:     runModules,
			Environment: runEnvironment,
			DryRun:      runDryRun,
			MockMode:    runMock,
		})

		if runAsJSON {
			printJSON(result.ToDict())
			if result.Report != nil && result.Report.Failed() > 0 {
				os.Exit(1)
			}
			return
		}

		if result.Error != "" {
			fail(result.Error)
		}

		report := result.Report
		modeLabel := ""
		switch {
		case runDryRun:
			modeLabel = "[dry-run] "
		case runMock:
			modeLabel = "[mock] "
		}
		fmt.Printf("\n⚡ %s%s — %s\n", modeLabel, capability, result.Project.Name)
		fmt.Printf("   Modules: %d | Actions: %d\n", result.ModulesTargeted, report.Total())
		fmt.Println()

		for moduleName, indices := range report.ModuleReceipts {
			for _, idx := range indices {
				receipt := report.Receipts[idx]
				switch {
				case receipt.Ok():
					timing := ""
					if receipt.DurationMs > 0 {
						timing = fmt.Sprintf(" (%dms)", receipt.DurationMs)
					}
					fmt.Printf("   ✓ %s%s\n", moduleName, timing)
					if verbose && receipt.Output != "" {
						printIndentedLines(receipt.Output, 10)
					}
				case receipt.Failed():
					timing := ""
					if receipt.DurationMs > 0 {
						timing = fmt.Sprintf(" (%dms)", receipt.DurationMs)
					}
					fmt.Printf("   ✗ %s%s\n", moduleName, timing)
					if receipt.Error != "" {
						printIndentedLines(receipt.Error, 5)
					}
				default:
					fmt.Printf("   ⊘ %s (%s)\n", moduleName, receipt.Output)
				}
			}
		}

		fmt.Println()
		fmt.Printf("   Result: %d/%d succeeded\n", report.Succeeded(), report.Total())

		if report.Failed() > 0 {
			fmt.Println()
			os.Exit(1)
		}
		fmt.Println()
	},
}

func printIndentedLines(text string, limit int) {
	lines := strings.Split(text, "\n")
	if len(lines) > limit {
		lines = lines[:limit]
	}
	for _, line := range lines {
		fmt.Printf("     │ %s\n", line)
	}
}

func init() {
	runCmd.Flags().BoolVar(&runAsJSON, "json", false, "output as JSON")
	runCmd.Flags().StringSliceVarP(&runModules, "module", "m", nil, "target specific modules")
	runCmd.Flags().StringVar(&runEnvironment, "env", "dev", "target environment")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "plan but don't execute")
	runCmd.Flags().BoolVar(&runMock, "mock", false, "use mock adapter (no real execution)")
}
