package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TuftsCTSI/gaiaCore/internal/config"
	"github.com/TuftsCTSI/gaiaCore/internal/database"
	"github.com/TuftsCTSI/gaiaCore/internal/pipeline"
	"github.com/TuftsCTSI/gaiaCore/internal/server"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the RPC facade",
		Long: `
Starts the HTTP server exposing the pipeline's RPC operations,
/health, and /metrics. Pending schema migrations are applied first.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.db.Migrate(a.cfg.MigrationsPath); err != nil {
				return err
			}

			srv := server.New(a.runner, a.lister, a.loader, a.db, a.logger)
			httpSrv := &http.Server{
				Addr:    ":" + a.cfg.Port,
				Handler: srv.Router(),
			}

			go func() {
				<-ctx.Done()
				a.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := httpSrv.Shutdown(shutdownCtx); err != nil {
					a.logger.Error("shutdown error", zap.Error(err))
				}
			}()

			a.logger.Info("gaiaCore listening", zap.String("port", a.cfg.Port))
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			db, err := database.NewClient(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(cfg.MigrationsPath); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func newRegisterCommand() *cobra.Command {
	var docURL string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Fetch a metadata document and register its dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ds, err := a.loader.FetchAndLoad(cmd.Context(), docURL)
			if err != nil {
				return err
			}
			return printJSON(map[string]string{
				"data_source_uuid": ds.DataSourceUUID.String(),
				"dataset_name":     ds.DatasetName,
			})
		},
	}
	cmd.Flags().StringVarP(&docURL, "url", "u", "", "metadata document URL")
	cmd.MarkFlagRequired("url")
	return cmd
}

func newIngestCommand() *cobra.Command {
	var (
		id             string
		downloadURL    string
		schema         string
		table          string
		workDir        string
		keepDownloaded bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run the full retrieval-and-ingestion pipeline for one dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataSourceUUID, err := uuid.Parse(id)
			if err != nil {
				return fmt.Errorf("invalid data source UUID: %w", err)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			steps := a.runner.Run(cmd.Context(), pipeline.RunRequest{
				DataSourceUUID: dataSourceUUID,
				DownloadURL:    downloadURL,
				TargetSchema:   schema,
				TargetTable:    table,
				WorkDir:        workDir,
				KeepDownloaded: &keepDownloaded,
			})
			return printJSON(steps)
		},
	}
	cmd.Flags().StringVarP(&id, "id", "i", "", "data source UUID")
	cmd.Flags().StringVarP(&downloadURL, "url", "u", "", "override the discovered download URL")
	cmd.Flags().StringVar(&schema, "schema", "", "target schema")
	cmd.Flags().StringVar(&table, "table", "", "target table")
	cmd.Flags().StringVar(&workDir, "work-dir", "", "download work directory")
	cmd.Flags().BoolVar(&keepDownloaded, "keep-downloaded", true, "keep downloaded files on disk")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newQuickIngestCommand() *cobra.Command {
	var downloadURL string
	cmd := &cobra.Command{
		Use:   "quick-ingest NAME",
		Short: "Ingest a dataset resolved by name fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			steps := a.runner.QuickIngest(cmd.Context(), args[0], downloadURL)
			return printJSON(steps)
		},
	}
	cmd.Flags().StringVarP(&downloadURL, "url", "u", "", "override the discovered download URL")
	return cmd
}

func newCatalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List datasets with their downloadability and ingestion state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.lister.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(entries)
		},
	}
}

func newRunsCommand() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs, or read one with --read",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.runLog == nil {
				return fmt.Errorf("run log is disabled (GAIA_RUNLOG_ENABLED=false)")
			}
			if key != "" {
				steps, err := a.runLog.ReadRun(cmd.Context(), key)
				if err != nil {
					return err
				}
				return printJSON(steps)
			}
			keys, err := a.runLog.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(keys)
		},
	}
	cmd.Flags().StringVar(&key, "read", "", "run log object key to read")
	return cmd
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
