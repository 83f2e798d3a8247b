package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dodopizza/sql-to-kql/cmd/sql-to-kql/api"
)

// readSQL joins the arguments, or reads stdin when there are none or the only one is "-".
func readSQL(cmd *cobra.Command, args []string) (string, error) {
	text := strings.Join(args, " ")
	if len(args) == 0 || text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("sql query is required")
	}
	return text, nil
}

func newTranslateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "translate [sql]",
		Short: "Print the KQL for a SQL statement",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readSQL(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			cfg.Cluster = ""
			srv, err := api.NewServer(cfg)
			if err != nil {
				return err
			}
			si, err := srv.Translate(text)
			if err != nil {
				return err
			}
			out := si.KQL
			if out == "" {
				out = strings.TrimSuffix(si.Data, "\n")
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newQueryCommand(opts *options) *cobra.Command {
	var database string
	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Translate a SQL statement, run it and print the rows as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readSQL(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if cfg.Cluster == "" {
				return fmt.Errorf("query requires a cluster, set --cluster or the config file")
			}
			srv, err := api.NewServer(cfg)
			if err != nil {
				return err
			}
			defer srv.Close()

			_, data, err := srv.Run(cmd.Context(), text, database)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&database, "db", "", "database for this query when none is configured")
	return cmd
}
