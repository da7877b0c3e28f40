package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dcpsystems/dcp/internal/usecase"
)

var (
	detectAsJSON bool
	detectNoSave bool
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect modules and match stacks in the project",
	Run: func(cmd *cobra.Command, args []string) {
		result := usecase.RunDetect(configPath, "", !detectNoSave)

		if detectAsJSON {
			printJSON(result.ToDict())
			return
		}

		if result.Error != "" {
			fail(result.Error)
		}

		fmt.Printf("\n🔍 Detection: %s\n", result.Project.Name)
		fmt.Printf("   Stacks loaded: %d\n", result.StacksLoaded)
		fmt.Printf("   Modules: %d/%d detected\n", result.Detection.TotalDetected(), result.Detection.TotalModules())
		fmt.Println()

		for _, module := range result.Detection.Modules {
			if module.Detected {
				stack := module.EffectiveStack()
				if stack == "" {
					stack = "?"
				}
				version := ""
				if module.Version != "" {
					version = " v" + module.Version
				}
				lang := ""
				if module.Language != "" {
					lang = " (" + module.Language + ")"
				}
				fmt.Printf("   ✓ %s [%s]%s%s  → %s\n", module.Name, stack, version, lang, module.Path)
			} else {
				fmt.Printf("   ✗ %s (not found)  → %s\n", module.Name, module.Path)
			}
		}

		if len(result.Detection.UnmatchedRefs) > 0 {
			fmt.Println()
			fmt.Println("   ⚠️  Missing module paths:")
			for _, name := range result.Detection.UnmatchedRefs {
				fmt.Printf("     • %s\n", name)
			}
		}

		if result.StateSaved {
			fmt.Println()
			fmt.Println("   💾 State saved to .dcp/state.json")
		}

		fmt.Println()
	},
}

func init() {
	detectCmd.Flags().BoolVar(&detectAsJSON, "json", false, "output as JSON")
	detectCmd.Flags().BoolVar(&detectNoSave, "no-save", false, "don't save detection results to state")
}
