// Command seed-links upserts the community link of each district from a
// YAML file. It replaces the admin form; the web service only reads links.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/raffleapp/registration/internal/districts"
	"github.com/raffleapp/registration/internal/registration"
)

type options struct {
	file   string
	dsn    string
	dryRun bool
}

func main() {
	_ = godotenv.Load(".env.local")
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "seed-links",
		Short:        "Upsert district community links from a YAML file",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "path to the links YAML file (required)")
	cmd.Flags().StringVar(&opts.dsn, "dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate and print the plan without writing")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func run(ctx context.Context, opts *options, out io.Writer) error {
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.file, err)
	}
	rows, err := parseLinks(data, districts.Default)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Loaded %d links from %s\n", len(rows), opts.file)
	for _, r := range rows {
		fmt.Fprintf(out, "  %s -> %s\n", r.District, r.Link)
	}
	if opts.dryRun {
		fmt.Fprintln(out, "Dry run complete. No changes made.")
		return nil
	}
	if opts.dsn == "" {
		return fmt.Errorf("--dsn not provided and DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", opts.dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	n, err := upsertLinks(ctx, db, rows)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Upserted %d links.\n", n)
	return nil
}

func upsertLinks(ctx context.Context, db *sql.DB, rows []linkRow) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := `INSERT INTO ` + registration.CommunityLink{}.TableName() + ` (district, link)
VALUES ($1, $2)
ON CONFLICT (district) DO UPDATE SET link = EXCLUDED.link`
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, q, r.District, r.Link); err != nil {
			return 0, fmt.Errorf("upserting %s: %w", r.District, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(rows), nil
}
