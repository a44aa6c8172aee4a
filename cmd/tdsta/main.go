// Package main is the entry point for the tdsta CLI.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/flemzord/tdsta/internal/core"
	"github.com/flemzord/tdsta/internal/gateway"
	"github.com/flemzord/tdsta/internal/ingest"
	"github.com/flemzord/tdsta/internal/mcpserver"
	"github.com/flemzord/tdsta/pkg/app"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runFlags are shared by every command that builds the runtime.
type runFlags struct {
	config   string
	dataDir  string
	logLevel string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "Override the data directory")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")
}

func (f *runFlags) params() app.RunParams {
	return app.RunParams{
		ConfigPath: f.config,
		DataDir:    f.dataDir,
		LogLevel:   f.logLevel,
		Version:    version,
		Commit:     commit,
		Date:       date,
	}
}

func rootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "tdsta",
		Short:         "Virtual teaching assistant for the Tools in Data Science course",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if envFile != "" {
				return godotenv.Load(envFile)
			}
			// A missing ./.env is not an error.
			_ = godotenv.Load()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file")
	root.AddCommand(versionCmd(), startCmd(), configCmd(), askCmd(), mcpCmd(), scrapeCmd(), serviceCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tdsta %s (commit: %s, built: %s, api: %s)\n", version, commit, date, gateway.Version)
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range core.GetModules() {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

func startCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP service with all configured modules",
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.Run(flags.params())
		},
	}
	flags.register(cmd)
	return cmd
}

func askCmd() *cobra.Command {
	var (
		flags     runFlags
		imagePath string
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and print the JSON response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var image *string
			if imagePath != "" {
				raw, err := os.ReadFile(imagePath)
				if err != nil {
					return err
				}
				enc := base64.StdEncoding.EncodeToString(raw)
				image = &enc
			}

			rt, err := app.Build(flags.params())
			if err != nil {
				return err
			}
			defer rt.Close()

			return printJSON(cmd.OutOrStdout(), rt.QA.Process(cmd.Context(), args[0], image))
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&imagePath, "image", "", "Attach an image file (sent base64-encoded)")
	return cmd
}

func mcpCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the question tools over MCP stdio alongside the configured modules",
		RunE: func(_ *cobra.Command, _ []string) error {
			rt, err := app.Build(flags.params())
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.App.Start(); err != nil {
				return err
			}

			srv := mcpserver.New(mcpserver.Config{
				Version:  version,
				Answerer: rt.QA,
				Corpus:   corpusStats(rt),
				Logger:   rt.Logger,
			})
			return srv.ServeStdio()
		},
	}
	flags.register(cmd)
	return cmd
}

func corpusStats(rt *app.Runtime) mcpserver.StatsSource {
	if in, ok := core.Lookup[*ingest.Ingestor](rt.App.Context(), ingest.IngestorService); ok {
		return in.Corpus()
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
