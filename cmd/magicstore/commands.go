package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-openapi/inflect"
	"github.com/spf13/cobra"

	"github.com/nvt2106/magicstore"
	"github.com/nvt2106/magicstore/compiler/gen"
	"github.com/nvt2106/magicstore/compiler/load"
	"github.com/nvt2106/magicstore/dialect"
	"github.com/nvt2106/magicstore/dialect/sql"
	"github.com/nvt2106/magicstore/internal/config"
	"github.com/nvt2106/magicstore/internal/server"
	"github.com/nvt2106/magicstore/internal/storage"
	"github.com/nvt2106/magicstore/proxy"
	"github.com/nvt2106/magicstore/schema"
)

func catalogFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "catalog", "c", "", "catalog file or directory of catalog files")
	_ = cmd.MarkFlagRequired("catalog")
}

func newLintCmd() *cobra.Command {
	var catalog string
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check the structure of a catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			schemas, err := load.Path(catalog)
			if err != nil {
				return err
			}
			err = schema.Validate(schemas)
			var verr *schema.ValidationError
			if errors.As(err, &verr) {
				for _, v := range verr.Violations {
					fmt.Fprintln(cmd.OutOrStdout(), v)
				}
				return fmt.Errorf("%d structure violation(s)", len(verr.Violations))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entities ok\n", len(schemas))
			return nil
		},
	}
	catalogFlag(cmd, &catalog)
	return cmd
}

func newDDLCmd() *cobra.Command {
	var (
		catalog string
		name    string
		plural  bool
	)
	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print the CREATE TABLE statements of a catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch name {
			case dialect.Postgres, dialect.MySQL, dialect.SQLite, dialect.MSSQL:
			default:
				return fmt.Errorf("unsupported dialect %q", name)
			}
			schemas, err := load.Path(catalog)
			if err != nil {
				return err
			}
			if err := schema.Validate(schemas); err != nil {
				return err
			}
			descriptors, err := proxy.NewRegistry().DescribeAll(schemas)
			if err != nil {
				return err
			}
			b := sql.Dialect(name)
			if plural {
				b.TableName = inflect.Pluralize
			}
			for _, d := range descriptors {
				stmt, err := b.CreateTable(d)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", stmt)
			}
			return nil
		},
	}
	catalogFlag(cmd, &catalog)
	cmd.Flags().StringVarP(&name, "dialect", "d", dialect.Postgres, "SQL dialect: postgres, mysql, sqlite or sqlserver")
	cmd.Flags().BoolVar(&plural, "plural-tables", false, "name tables after the plural of their schema")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var (
		catalog string
		url     string
		plural  bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Prepare the storage of every entity of a catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			schemas, err := load.Path(catalog)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			store, err := storage.Open(url, storage.Options{Logger: logger, PluralTables: plural})
			if err != nil {
				return err
			}
			defer store.Close()
			if _, err := magicstore.New(cmd.Context(), store, schemas, magicstore.WithLogger(logger)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "prepared %d entities in %s\n", len(schemas), store.Target.Dialect)
			return nil
		},
	}
	catalogFlag(cmd, &catalog)
	cmd.Flags().StringVarP(&url, "url", "u", "", "database URL")
	cmd.Flags().BoolVar(&plural, "plural-tables", false, "name tables after the plural of their schema")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newGenCmd() *cobra.Command {
	var (
		catalog string
		cfg     gen.Config
	)
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate typed Go wrappers for the entities of a catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			schemas, err := load.Path(catalog)
			if err != nil {
				return err
			}
			m, err := gen.Generate(cmd.Context(), cfg, schemas)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d files (%d bytes, %d unchanged) in %s\n",
				m.FilesGenerated(), m.TotalBytes, m.Unchanged, cfg.Target)
			return nil
		},
	}
	catalogFlag(cmd, &catalog)
	cmd.Flags().StringVarP(&cfg.Target, "out", "o", "", "output directory")
	cmd.Flags().StringVarP(&cfg.Package, "package", "p", "", "package name, defaults to the output directory name")
	cmd.Flags().IntVar(&cfg.Workers, "workers", 0, "files written in parallel, defaults to GOMAXPROCS")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newServeCmd() *cobra.Command {
	var (
		path  string
		debug bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the entities of a catalog over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			cfg.Debug = cfg.Debug || debug
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd, cfg, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&path, "config", "", "YAML config file, overridden by MAGICSTORE_* variables")
	cmd.Flags().BoolVar(&debug, "debug", false, "log SQL statements and run gin in debug mode")
	return cmd
}

func serve(cmd *cobra.Command, cfg config.Config, logs io.Writer) error {
	logger := cfg.Logger(logs)
	schemas, err := load.Path(cfg.Catalog)
	if err != nil {
		return err
	}
	store, err := storage.Open(cfg.DatabaseURL, storage.Options{
		Logger:       logger,
		PluralTables: cfg.PluralTables,
		Debug:        cfg.Debug,
		SlowQuery:    cfg.SlowQuery,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("magicstore: close storage", "error", err)
		}
	}()
	opts := []magicstore.Option{magicstore.WithLogger(logger)}
	if cfg.CacheTTL > 0 {
		opts = append(opts, magicstore.WithCache(magicstore.NewMemoryCache(), cfg.CacheTTL))
	}
	ec, err := magicstore.New(cmd.Context(), store, schemas, opts...)
	if err != nil {
		return err
	}
	srv := server.New(ec,
		server.WithLogger(logger),
		server.WithStats(store.Stats),
		server.WithDebug(cfg.Debug),
	)
	return srv.Run(cmd.Context(), cfg.Addr)
}
