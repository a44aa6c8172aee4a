package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/flemzord/tdsta/pkg/app"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program adapts the runtime to the system service manager.
type program struct {
	params app.RunParams
	cancel context.CancelFunc
	done   chan error
}

var _ service.Interface = (*program)(nil)

func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() { p.done <- app.RunContext(ctx, p.params) }()
	return nil
}

func (p *program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

func serviceConfig(cfgPath string) *service.Config {
	args := []string{"service", "run"}
	if cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	return &service.Config{
		Name:        "tdsta",
		DisplayName: "TDS Virtual TA",
		Description: "Answers Tools in Data Science course questions over HTTP.",
		Arguments:   args,
	}
}

func serviceCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage tdsta as a system service",
	}
	cmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Path to configuration file")

	newService := func() (service.Service, error) {
		cfgPath := flags.config
		if cfgPath != "" {
			abs, err := filepath.Abs(cfgPath)
			if err != nil {
				return nil, err
			}
			cfgPath = abs
		}
		prg := &program{params: app.RunParams{ConfigPath: cfgPath, Version: version, Commit: commit, Date: date}}
		return service.New(prg, serviceConfig(cfgPath))
	}

	for _, action := range []string{"install", "uninstall", "start", "stop", "restart"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := newService()
				if err != nil {
					return err
				}
				if err := service.Control(s, action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run under the service manager (used by the installed unit)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			s, err := newService()
			if err != nil {
				return err
			}
			return s.Run()
		},
	})
	return cmd
}
