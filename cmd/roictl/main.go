// Command roictl is a command-line client for the roi-insights API.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/terra-clan/roi-insights/pkg/client"
)

var (
	serverURL  string
	apiKey     string
	jsonOutput bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "roictl",
	Short: "Manage ROI surveys, analyses and reports",
	Long: `roictl talks to a roi-insights server.

The server address and API key default to ROI_SERVER and ROI_API_KEY,
which may also be set in a local .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// values from .env only fill variables that are not already set
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("ROI_SERVER", "http://localhost:8080"), "roi-insights base URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("ROI_API_KEY"), "API key (or set ROI_API_KEY)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON instead of formatted output")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")

	rootCmd.AddCommand(surveysCmd, analyzeCmd, reportsCmd, waterfallCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.NewClient(serverURL, apiKey, client.WithTimeout(timeout))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
