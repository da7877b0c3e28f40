package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dcpsystems/dcp/internal/usecase"
)

var statusAsJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project status summary",
	Run: func(cmd *cobra.Command, args []string) {
		result := usecase.GetStatus(configPath)

		if statusAsJSON {
			printJSON(result.ToDict())
			return
		}

		if result.Error != "" {
			fail(result.Error)
		}

		project := result.Project
		if !quiet {
			fmt.Printf("\n📋 %s\n", project.Name)
			if project.Description != "" {
				fmt.Printf("   %s\n", project.Description)
			}
			if project.Repository != "" {
				fmt.Printf("   📦 %s\n", project.Repository)
			}
			fmt.Println()
		}

		fmt.Printf("   Modules: %d\n", result.ModuleCount)
		for _, mod := range project.Modules {
			stackLabel := ""
			if mod.Stack != "" {
				stackLabel = fmt.Sprintf(" [%s]", mod.Stack)
			}
			marker := ""
			if result.State != nil {
				if ms, ok := result.State.Modules[mod.Name]; ok && ms.Detected {
					marker = " ✓"
				}
			}
			fmt.Printf("     • %s%s%s  → %s\n", mod.Name, stackLabel, marker, mod.Path)
		}

		if len(project.Environments) > 0 {
			fmt.Println()
			fmt.Printf("   Environments: %d\n", result.EnvironmentCount)
			for _, env := range project.Environments {
				marker := ""
				if env.Name == result.CurrentEnvironment {
					marker = " ← active"
				}
				def := ""
				if env.Default {
					def = " (default)"
				}
				fmt.Printf("     • %s%s%s\n", env.Name, def, marker)
			}
		}

		if result.State != nil && result.State.LastOperation != nil && result.State.LastOperation.OperationID != "" {
			op := result.State.LastOperation
			fmt.Println()
			fmt.Println("   Last operation:")
			fmt.Printf("     %s — %s\n", op.Automation, op.Status)
			fmt.Printf("     at %s\n", op.EndedAt)
		}

		fmt.Println()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusAsJSON, "json", false, "output as JSON")
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("failed to render JSON: %v", err)
	}
	fmt.Println(string(data))
}
