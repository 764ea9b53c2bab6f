package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/flemzord/ragraft/internal/security"
	"github.com/flemzord/ragraft/internal/tenant"
	"github.com/flemzord/ragraft/pkg/app"
)

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant management",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant and print its ID and public code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			code, _ := cmd.Flags().GetString("code")
			if strings.TrimSpace(name) == "" {
				if err := tenantForm(&name, &code).Run(); err != nil {
					return err
				}
			}

			path, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			cfg, _, err := app.LoadConfig(path)
			if err != nil {
				return err
			}
			rt, err := app.Bootstrap(cfg, app.Options{DataDir: dataDir, LogLevel: slog.LevelWarn})
			if err != nil {
				return err
			}
			defer rt.Close()
			defer rt.App.Stop()

			t, err := app.CreateTenant(cmd.Context(), rt.Store, name, code)
			if err != nil {
				return err
			}
			rt.Audit.Log(security.AuditEvent{
				Type:     security.EventTenantCreate,
				TenantID: t.ID,
				Target:   t.PublicCode,
				Detail:   t.Name,
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tenant created\n  id:          %s\n  name:        %s\n  public code: %s\n", t.ID, t.Name, t.PublicCode)
			return nil
		},
	}
	create.Flags().String("name", "", "Tenant display name (prompted when empty)")
	create.Flags().String("code", "", "Public chat code (random when empty)")

	cmd.AddCommand(create)
	return cmd
}

// tenantForm prompts for the fields tenant create needs.
func tenantForm(name, code *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Tenant name").
				Value(name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Public code").
				Description("Digits only. Leave empty for a random code.").
				Value(code).
				Validate(func(s string) error {
					if s = strings.TrimSpace(s); s != "" && !tenant.ValidPublicCode(s) {
						return tenant.ErrInvalidCode
					}
					return nil
				}),
		),
	)
}
