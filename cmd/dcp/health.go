package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dcpsystems/dcp/internal/config"
	"github.com/dcpsystems/dcp/internal/resilience"
	"github.com/dcpsystems/dcp/internal/usecase"
)

var healthAsJSON bool

var statusIcons = map[string]string{
	usecase.HealthHealthy:   "💚",
	usecase.HealthDegraded:  "🟡",
	usecase.HealthUnhealthy: "🔴",
	usecase.HealthUnknown:   "❔",
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show system health — circuit breakers, retry queue, components",
	Run: func(cmd *cobra.Command, args []string) {
		projectRoot := resolveHealthProjectRoot()

		breakers := resilience.NewRegistry(resilience.Config{})
		queue, err := resilience.NewRetryQueue(filepath.Join(projectRoot, ".dcp", "retry_queue.json"))
		if err != nil {
			fail("failed to open retry queue: %v", err)
		}

		health := usecase.CheckSystemHealth(breakers, queue)

		if healthAsJSON {
			printJSON(health.ToDict())
			return
		}

		icon := statusIcons[health.Status]
		fmt.Println()
		fmt.Printf("%s System Health: %s\n", icon, strings.ToUpper(health.Status))
		fmt.Printf("   %s\n", health.Timestamp)
		fmt.Println()

		for _, c := range health.Components {
			cIcon := statusIcons[c.Status]
			fmt.Printf("   %s %s\n", cIcon, c.Name)
			fmt.Printf("      %s\n", c.Message)
			if verbose {
				for key, val := range c.Details {
					if key == "items" {
						continue
					}
					fmt.Printf("      %s: %v\n", key, val)
				}
			}
		}

		fmt.Println()
	},
}

func resolveHealthProjectRoot() string {
	if configPath != "" {
		return filepath.Dir(configPath)
	}
	found, err := config.FindProjectFile(".")
	if err != nil {
		return resolvedProjectRoot()
	}
	return filepath.Dir(found)
}

func init() {
	healthCmd.Flags().BoolVar(&healthAsJSON, "json", false, "output as JSON")
}
