package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/tdsta/internal/config"
	"github.com/flemzord/tdsta/internal/ingest"
	"github.com/flemzord/tdsta/pkg/app"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configInitCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and provision every module",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := app.RunParams{LogLevel: "error"}
			if len(args) == 1 {
				params.ConfigPath = args[0]
			}
			rt, err := app.Build(params)
			if err != nil {
				return err
			}
			defer rt.Close()

			ids := config.Resolve(rt.Config)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK: %s (%d modules)\n", rt.ConfigPath, len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var (
		output         string
		force          bool
		nonInteractive bool
		opts           config.InitOptions
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a new configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				if _, err := os.Stat(output); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", output)
				}
			}
			if !nonInteractive {
				if err := runInitForm(&opts); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return errors.New("aborted")
					}
					return err
				}
			}
			return writeConfig(cmd.OutOrStdout(), output, opts)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", config.FileName, "Where to write the configuration")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Skip the prompts and use flag values")
	cmd.Flags().StringVar(&opts.Bind, "bind", "127.0.0.1:8000", "HTTP listen address")
	cmd.Flags().StringVar(&opts.ForumProvider, "forum-provider", ingest.ProviderStatic, "Forum provider (static or discourse)")
	cmd.Flags().StringVar(&opts.SiteProvider, "site-provider", ingest.ProviderStatic, "Site provider (static or http)")
	cmd.Flags().BoolVar(&opts.Archive, "archive", false, "Archive ingestion passes to SQLite")
	cmd.Flags().StringVar(&opts.AuthToken, "auth-token", "", "Bearer token for the admin endpoints")
	cmd.Flags().StringSliceVar(&opts.SitePages, "site-page", nil, "Course page fetched by the http site provider (repeatable)")
	return cmd
}

// runInitForm prompts for the values Render needs.
func runInitForm(opts *config.InitOptions) error {
	var pages string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("HTTP listen address").
				Value(&opts.Bind),
			huh.NewInput().
				Title("Admin bearer token").
				Description("Leave blank to keep the admin endpoints disabled.").
				EchoMode(huh.EchoModePassword).
				Value(&opts.AuthToken),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Forum source").
				Options(
					huh.NewOption("Built-in sample posts", ingest.ProviderStatic),
					huh.NewOption("Discourse search API", ingest.ProviderDiscourse),
				).
				Value(&opts.ForumProvider),
			huh.NewInput().
				Title("Discourse API key").
				Description("Optional. ${DISCOURSE_API_KEY} reads it from the environment.").
				Value(&opts.ForumAPIKey),
			huh.NewInput().
				Title("Discourse API user").
				Value(&opts.ForumAPIUser),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Course site source").
				Options(
					huh.NewOption("Built-in summaries", ingest.ProviderStatic),
					huh.NewOption("Fetch pages over HTTP", ingest.ProviderHTTP),
				).
				Value(&opts.SiteProvider),
			huh.NewInput().
				Title("Site pages").
				Description("Comma-separated URLs, used with the HTTP source.").
				Value(&pages),
			huh.NewInput().
				Title("Forum refresh schedule").
				Description("Cron expression such as @every 6h. Blank disables it.").
				Value(&opts.ForumRefresh),
			huh.NewConfirm().
				Title("Archive ingestion passes to SQLite?").
				Value(&opts.Archive),
		),
	).Run()
	if err != nil {
		return err
	}
	opts.SitePages = splitList(pages)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// writeConfig renders opts to path and prints the next steps.
func writeConfig(w io.Writer, path string, opts config.InitOptions) error {
	raw, err := config.Render(opts)
	if err != nil {
		return err
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("generated configuration is invalid: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %s\nRun `tdsta start --config %s` to serve the API.\n", path, path)
	return nil
}
