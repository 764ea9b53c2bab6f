package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/ragraft/pkg/app"
)

const serviceName = "ragraft"

// program adapts app.Run to the service manager's start/stop callbacks.
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
	go func() {
		p.done <- app.Run(ctx, p.params)
	}()
	return nil
}

func (p *program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "service <install|uninstall|start|stop|restart|run>",
		Short:     "Manage ragraft as an operating system service",
		Args:      cobra.ExactArgs(1),
		ValidArgs: append([]string{"run"}, service.ControlAction[:]...),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(runParams(cmd))
			if err != nil {
				return err
			}
			if args[0] == "run" {
				return svc.Run()
			}
			if err := service.Control(svc, args[0]); err != nil {
				return fmt.Errorf("service %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", args[0])
			return nil
		},
	}
	cmd.Flags().Bool("debug", false, "Enable debug logging")
	return cmd
}

// newService builds the service definition. The installed unit runs
// "ragraft service run" with the same config and data directory.
func newService(params app.RunParams) (service.Service, error) {
	args := []string{"service", "run"}
	if params.ConfigPath != "" {
		abs, err := filepath.Abs(params.ConfigPath)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", abs)
	}
	if params.DataDir != "" {
		abs, err := filepath.Abs(params.DataDir)
		if err != nil {
			return nil, err
		}
		args = append(args, "--data-dir", abs)
	}

	return service.New(&program{params: params}, &service.Config{
		Name:        serviceName,
		DisplayName: "ragraft",
		Description: "Multi-tenant assistant response server",
		Arguments:   args,
	})
}
