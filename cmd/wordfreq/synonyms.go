package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/collapser"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/postgres"
)

var synonymsCmd = &cobra.Command{
	Use:   "synonyms",
	Short: "Maintain the synonym table",
}

var synonymsNormalizeCmd = &cobra.Command{
	Use:   "normalize IN OUT",
	Short: "Rewrite a synonym file sorted by synonym",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		setupCLILogging(cfg.Logging.Level)

		table, err := collapser.LoadFile(args[0])
		if err != nil {
			return err
		}
		if err := table.SaveFile(args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d synonyms written to %s\n", table.Len(), args[1])
		return nil
	},
}

var synonymsPushCmd = &cobra.Command{
	Use:   "push FILE",
	Short: "Replace the postgres synonyms table with the contents of FILE",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		setupCLILogging(cfg.Logging.Level)

		table, err := collapser.LoadFile(args[0])
		if err != nil {
			return err
		}
		pg, err := postgres.New(cmd.Context(), cfg.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.EnsureSchema(cmd.Context()); err != nil {
			return err
		}
		if err := pg.InTx(cmd.Context(), func(tx *sql.Tx) error {
			return table.SaveSQL(cmd.Context(), tx)
		}); err != nil {
			return err
		}
		slog.Info("synonyms pushed", "file", args[0], "synonyms", table.Len())
		fmt.Fprintf(cmd.OutOrStdout(), "%d synonyms pushed\n", table.Len())
		return nil
	},
}

var synonymsPullCmd = &cobra.Command{
	Use:   "pull OUT",
	Short: "Export the postgres synonyms table to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		setupCLILogging(cfg.Logging.Level)

		pg, err := postgres.New(cmd.Context(), cfg.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()
		table, err := collapser.LoadSQL(cmd.Context(), pg)
		if err != nil {
			return err
		}
		if err := table.SaveFile(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d synonyms written to %s\n", table.Len(), args[0])
		return nil
	},
}

func init() {
	synonymsCmd.AddCommand(synonymsNormalizeCmd)
	synonymsCmd.AddCommand(synonymsPushCmd)
	synonymsCmd.AddCommand(synonymsPullCmd)
}
