package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func rlsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rls",
		Short: "Inspect row-level security state",
	}
	cmd.AddCommand(rlsPoliciesCommand())
	cmd.AddCommand(rlsProbeCommand())
	return cmd
}

type policyRow struct {
	TableName  string `gorm:"column:tablename"`
	PolicyName string `gorm:"column:policyname"`
	Cmd        string `gorm:"column:cmd"`
	Roles      string `gorm:"column:roles"`
}

type rlsTableRow struct {
	TableName   string `gorm:"column:tablename"`
	RowSecurity bool   `gorm:"column:rowsecurity"`
}

// rlsPoliciesCommand lists RLS enablement and policies for the portal
// tables. Postgres-only; the sqlite dev mode has no RLS.
func rlsPoliciesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "List row-level security policies on portal tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gdb, _, err := openDB()
			if err != nil {
				return err
			}
			if cfg.DBType != "postgres" {
				return fmt.Errorf("rls policies requires postgres, db type is %q", cfg.DBType)
			}

			var tables []rlsTableRow
			err = gdb.WithContext(cmd.Context()).Raw(
				`SELECT tablename, rowsecurity
				 FROM pg_tables
				 WHERE schemaname = 'public'
				   AND tablename IN ('sponsors', 'promotions', 'blog_posts', 'sponsor_admins')
				 ORDER BY tablename`,
			).Scan(&tables).Error
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tRLS ENABLED")
			for _, table := range tables {
				fmt.Fprintf(w, "%s\t%t\n", table.TableName, table.RowSecurity)
			}
			w.Flush()
			fmt.Println()

			var policies []policyRow
			err = gdb.WithContext(cmd.Context()).Raw(
				`SELECT tablename, policyname, cmd, array_to_string(roles, ',') AS roles
				 FROM pg_policies
				 WHERE schemaname = 'public'
				 ORDER BY tablename, policyname`,
			).Scan(&policies).Error
			if err != nil {
				return err
			}

			if len(policies) == 0 {
				fmt.Println("no policies found; run migrations first")
				return nil
			}

			w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tPOLICY\tCOMMAND\tROLES")
			for _, policy := range policies {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", policy.TableName, policy.PolicyName, policy.Cmd, policy.Roles)
			}
			w.Flush()
			return nil
		},
	}
}

// rlsProbeCommand reads the portal tables through the anon handle scoped to
// a user and compares the visible row counts against the service role. A
// table where anon sees everything the service role sees has a policy gap.
func rlsProbeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <user-id>",
		Short: "Replay RLS-scoped reads as a user and compare with the service role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dual, _, err := openDual()
			if err != nil {
				return err
			}
			if cfg.DBType != "postgres" {
				return fmt.Errorf("rls probe requires postgres, db type is %q", cfg.DBType)
			}

			tables := []string{"sponsors", "promotions", "blog_posts", "sponsor_admins"}

			anonCounts := make(map[string]int64, len(tables))
			err = dual.Scoped(cmd.Context(), args[0], func(tx *gorm.DB) error {
				for _, table := range tables {
					var n int64
					if err := tx.Table(table).Count(&n).Error; err != nil {
						return err
					}
					anonCounts[table] = n
				}
				return nil
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tVISIBLE AS USER\tTOTAL (SERVICE ROLE)")
			for _, table := range tables {
				var total int64
				if err := dual.Service.WithContext(cmd.Context()).Table(table).Count(&total).Error; err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d\t%d\n", table, anonCounts[table], total)
			}
			w.Flush()
			return nil
		},
	}
}
