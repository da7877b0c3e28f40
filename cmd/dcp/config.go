package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dcpsystems/dcp/internal/usecase"
)

var configCheckAsJSON bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Project configuration commands",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate project.yml configuration",
	Run: func(cmd *cobra.Command, args []string) {
		result := usecase.CheckConfig(configPath)

		if configCheckAsJSON {
			printJSON(result.ToDict())
			if !result.Valid {
				os.Exit(1)
			}
			return
		}

		if result.Valid {
			fmt.Println("✅ Configuration is valid")
			fmt.Printf("   Project: %s\n", result.Project.Name)
			fmt.Printf("   Modules: %d\n", len(result.Project.Modules))
			fmt.Printf("   Environments: %d\n", len(result.Project.Environments))
		} else {
			fmt.Println("❌ Configuration errors:")
			for _, e := range result.Errors {
				fmt.Printf("   • %s\n", e)
			}
		}

		if len(result.Warnings) > 0 {
			fmt.Println()
			fmt.Println("⚠️  Warnings:")
			for _, w := range result.Warnings {
				fmt.Printf("   • %s\n", w)
			}
		}

		if !result.Valid {
			fmt.Println()
			os.Exit(1)
		}

		fmt.Println()
	},
}

func init() {
	configCheckCmd.Flags().BoolVar(&configCheckAsJSON, "json", false, "output as JSON")
	configCmd.AddCommand(configCheckCmd)
}
