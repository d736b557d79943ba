// auto-analysis-cli — инструмент командной строки для наблюдения за
// работающим демоном auto-analysis.
//
// Использование:
//
//	auto-analysis-cli [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	status  Состояние цикла оркестратора
//	events  Журнал событий (нужен DB_URL у демона)
//	watch   Поток событий analysis.complete из RabbitMQ
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/autoanalysis/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "auto-analysis-cli",
		Short:         "auto-analysis CLI: inspect a running orchestrator",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultAPI := os.Getenv("AUTO_ANALYSIS_API_URL")
	if defaultAPI == "" {
		defaultAPI = "http://localhost:8090"
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultAPI, "Status API URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewStatusCmd(clientFn, outputFn),
		cli.NewEventsCmd(clientFn, outputFn),
		cli.NewWatchCmd(outputFn),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
