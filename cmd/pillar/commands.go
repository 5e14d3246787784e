package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/pillar/migrations"
	"github.com/dmitrymomot/pillar/pkg/httpserver"
	"github.com/dmitrymomot/pillar/pkg/logger"
	"github.com/dmitrymomot/pillar/pkg/pg"
	"github.com/dmitrymomot/pillar/pkg/tenant"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pillar",
		Short:         "Multi-tenant API server and tenant database tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newTenantCmd())
	return root
}

// withApp loads configuration, builds the app and runs fn with it.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				if migrate {
					if err := migrateControl(cmd, a); err != nil {
						return err
					}
				}
				srv := httpserver.New(a.cfg.HTTP, a.log)
				return srv.Run(cmd.Context(), newRouter(a.routerDeps()))
			})
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply control-plane migrations before serving")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply control-plane migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				return migrateControl(cmd, a)
			})
		},
	}
}

func migrateControl(cmd *cobra.Command, a *app) error {
	n, err := pg.Migrate(cmd.Context(), a.pool, migrations.Control(), a.log)
	if err != nil {
		return err
	}
	a.log.InfoContext(cmd.Context(), "control-plane migrations applied", slog.Int("count", n))
	return nil
}

func newTenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}
	cmd.AddCommand(newTenantListCmd(), newTenantProvisionCmd(), newTenantImportCmd())
	return cmd
}

func newTenantListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				list, err := a.tenants.List(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(list)
				}
				return printTenants(cmd, list)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printTenants(cmd *cobra.Command, list []*tenant.Tenant) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tNAME\tSTATUS\tDATABASE")
	for _, t := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Slug, t.Name, t.Status, t.DatabaseName)
	}
	return w.Flush()
}

func newTenantProvisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provision <id|slug>",
		Short: "Provision the database of an existing tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				ctx := cmd.Context()
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					t, err := a.tenants.GetBySlug(ctx, args[0])
					if err != nil {
						return err
					}
					id = t.ID
				}
				t, err := a.tenants.Provision(ctx, id)
				if err != nil {
					return err
				}
				a.log.InfoContext(ctx, "tenant provisioned",
					logger.TenantID(t.ID), logger.TenantSlug(t.Slug),
					logger.Database(t.DatabaseName), slog.String("status", string(t.Status)))
				return nil
			})
		},
	}
}
