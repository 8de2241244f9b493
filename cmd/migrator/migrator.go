package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/NordCoder/Replypush/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("DB_DSN is empty")
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set dialect: %w", err)
	}
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

func command(use, short string, fn func(db *sql.DB) error, dsn *string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(*cobra.Command, []string) error {
			db, err := open(*dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := fn(db); err != nil {
				return fmt.Errorf("migrate %s: %w", use, err)
			}
			log.Printf("migrations: %s OK", use)
			return nil
		},
	}
}

func main() {
	var dsn string
	root := &cobra.Command{Use: "migrator", Short: "Apply the embedded database migrations", SilenceUsage: true}
	root.PersistentFlags().StringVar(&dsn, "dsn", os.Getenv("DB_DSN"), "postgres DSN (defaults to $DB_DSN)")

	root.AddCommand(
		command("up", "Apply all pending migrations", func(db *sql.DB) error { return goose.Up(db, ".") }, &dsn),
		command("down", "Roll back the latest migration", func(db *sql.DB) error { return goose.Down(db, ".") }, &dsn),
		command("status", "Print migration status", func(db *sql.DB) error { return goose.Status(db, ".") }, &dsn),
	)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
