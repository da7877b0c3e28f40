package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/dcpsystems/dcp/internal/resilience"
	"github.com/dcpsystems/dcp/internal/retrydrive"
	"github.com/dcpsystems/dcp/internal/usecase"
	"github.com/dcpsystems/dcp/internal/webui"
)

var (
	serveHost   string
	servePort   int
	serveMock   bool
	serveSchema string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web dashboard and the retry-queue re-drive daemon",
	Run: func(cmd *cobra.Command, args []string) {
		projectRoot := resolveHealthProjectRoot()

		breakers := resilience.NewRegistry(resilience.Config{})
		queue, err := resilience.NewRetryQueue(filepath.Join(projectRoot, ".dcp", "retry_queue.json"))
		if err != nil {
			fail("failed to open retry queue: %v", err)
		}

		reg := usecase.DefaultRegistry(breakers)

		driver := retrydrive.New(queue, reg, serveSchema, logrus.NewEntry(logrus.StandardLogger()))
		if err := driver.Start(); err != nil {
			fail("failed to start retry-queue daemon: %v", err)
		}
		defer driver.Stop()

		auth, err := serveAuthConfig()
		if err != nil {
			fail("%v", err)
		}

		server := webui.New(webui.Config{
			ProjectRoot: projectRoot,
			ConfigPath:  configPath,
			MockMode:    serveMock,
			Registry:    reg,
			Breakers:    breakers,
			Queue:       queue,
			Auth:        auth,
		}, logrus.NewEntry(logrus.StandardLogger()))

		addr := fmt.Sprintf("%s:%d", serveHost, servePort)
		fmt.Printf("🌐 dashboard listening on http://%s\n", addr)
		if err := server.Run(addr); err != nil {
			fail("dashboard server stopped: %v", err)
		}
	},
}

// serveAuthConfig builds the single operator account the dashboard
// authenticates against from environment variables. There is no interactive
// account-setup flow yet, so a missing DCP_WEB_PASSWORD is a hard error
// rather than a silently-open dashboard.
func serveAuthConfig() (webui.AuthConfig, error) {
	username := os.Getenv("DCP_WEB_USERNAME")
	if username == "" {
		username = "admin"
	}

	password := os.Getenv("DCP_WEB_PASSWORD")
	if password == "" {
		return webui.AuthConfig{}, fmt.Errorf("DCP_WEB_PASSWORD must be set to serve the dashboard")
	}

	secret := os.Getenv("DCP_WEB_JWT_SECRET")
	if secret == "" {
		return webui.AuthConfig{}, fmt.Errorf("DCP_WEB_JWT_SECRET must be set to serve the dashboard")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return webui.AuthConfig{}, fmt.Errorf("hashing dashboard password: %w", err)
	}

	return webui.AuthConfig{
		Username:     username,
		PasswordHash: string(hash),
		JWTSecret:    []byte(secret),
	}, nil
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "dashboard bind host")
	serveCmd.Flags().IntVar(&servePort, "port", 8420, "dashboard bind port")
	serveCmd.Flags().BoolVar(&serveMock, "mock", false, "dispatch through mock adapters instead of real ones")
	serveCmd.Flags().StringVar(&serveSchema, "retry-schedule", "", "cron schedule for the retry-queue re-drive daemon (default: every 30s)")
}
