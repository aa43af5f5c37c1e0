// Bricks CLI — инструмент командной строки для редактирования
// и запуска functions через HTTP API.
//
// Использование:
//
//	bricks [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	function     Управление functions
//	brick        Редактирование bricks
//	connection   Управление connections
//	database     Базы проекта
//	brick-types  Доступные типы bricks
//	run-local    Запуск HCL blueprint без сервера
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/shaiso/bricks/internal/cli"
	"github.com/shaiso/bricks/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "bricks",
		Short:         "Bricks CLI: build and run functions from bricks",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("BRICKS_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	// Логи run-local идут в stderr, чтобы не смешиваться с выводом function
	loggerFn := func() *slog.Logger {
		return telemetry.NewLogger(os.Stderr, "text", telemetry.LogLevel())
	}

	rootCmd.AddCommand(
		cli.NewFunctionCmd(clientFn, outputFn),
		cli.NewBrickCmd(clientFn, outputFn),
		cli.NewConnectionCmd(clientFn, outputFn),
		cli.NewDatabaseCmd(clientFn, outputFn),
		cli.NewBrickTypesCmd(clientFn, outputFn),
		cli.NewRunLocalCmd(outputFn, loggerFn),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
