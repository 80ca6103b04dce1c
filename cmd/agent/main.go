package main

import (
	"fmt"
	"os"

	"browser-agent/internal/application/service"
	"browser-agent/internal/di"
	"browser-agent/internal/infrastructure/env"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "Browser agent: plans browser actions with an LLM and executes them in order",
	Long: `The agent turns natural-language instructions into navigate, click, type and press
actions, runs them one at a time against a live or simulated page and feeds every
result back to the planner.`,
	SilenceUsage: true,
}

var (
	executorMode string
	pageHostURL  string
	startURL     string
	headless     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&executorMode, "mode", "", "Executor mode: live or simulated (overrides EXECUTOR_MODE)")
	rootCmd.PersistentFlags().StringVar(&startURL, "start-url", "", "Page to open before the first action (overrides START_URL)")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "Run the live browser headless (overrides BROWSER_HEADLESS)")

	runCmd.Flags().StringVar(&pageHostURL, "page-host", "", "WebSocket URL of a page host (overrides PAGE_HOST_URL)")
	serveCmd.Flags().StringVar(&pageHostURL, "page-host", "", "WebSocket URL of a page host (overrides PAGE_HOST_URL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pageHostCmd)
}

// loadConfig reads the environment and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (di.Config, error) {
	cfg := di.ConfigFromEnv(env.NewEnvService())

	flags := cmd.Flags()
	if flags.Changed("mode") {
		mode, err := service.ParseMode(executorMode)
		if err != nil {
			return cfg, err
		}
		cfg.ExecutorMode = mode
	}
	if flags.Changed("start-url") {
		cfg.StartURL = startURL
	}
	if flags.Changed("headless") {
		cfg.BrowserHeadless = headless
	}
	if flags.Changed("page-host") {
		cfg.PageHostURL = pageHostURL
	}
	if flags.Changed("addr") {
		cfg.HTTPAddr = listenAddr
		cfg.PageHostAddr = listenAddr
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
