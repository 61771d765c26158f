package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/fintrack-ai/internal/bootstrap"
	"github.com/dvloznov/fintrack-ai/internal/config"
	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/gcsuploader"
	"github.com/dvloznov/fintrack-ai/internal/logger"
	"github.com/dvloznov/fintrack-ai/internal/notionsync"
	"github.com/dvloznov/fintrack-ai/internal/pipeline"
	"github.com/dvloznov/fintrack-ai/internal/store"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg config.Config
	log zerolog.Logger
}

// env opens the repository and optional GCS client and builds the service.
// close releases everything that was opened.
type env struct {
	svc     *pipeline.Service
	repo    store.Repository
	storage *gcsuploader.GCSStorage
	close   func()
}

func (a *app) open(ctx context.Context, needStorage bool) (*env, error) {
	repo, err := bootstrap.OpenRepository(ctx, a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	e := &env{repo: repo, close: func() { repo.Close() }}

	var storage gcsuploader.Storage
	if needStorage {
		gcs, err := gcsuploader.NewGCSStorage(ctx)
		if err != nil {
			e.close()
			return nil, err
		}
		e.storage = gcs
		storage = gcs
		e.close = func() {
			gcs.Close()
			repo.Close()
		}
	}

	svc, err := bootstrap.NewService(ctx, a.cfg, repo, storage)
	if err != nil {
		e.close()
		return nil, err
	}
	e.svc = svc
	return e, nil
}

func (a *app) context(cmd *cobra.Command) context.Context {
	return logger.WithContext(cmd.Context(), a.log)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads a file, or stdin when path is "-" or empty.
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// documentIDFor names stored transactions after their source file.
func documentIDFor(path string) string {
	if path == "" || path == "-" {
		return uuid.NewString()
	}
	return filepath.Base(path)
}

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "fintrack",
		Short: "Extract, query and budget personal finance statements with an LLM",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if p, _ := cmd.Flags().GetString("provider"); p != "" {
				cfg.LLM.Provider = p
			}
			a.cfg = cfg
			a.log = logger.NewFromConfigWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}
	rootCmd.PersistentFlags().String("provider", "", "LLM provider override (gemini, ollama, anthropic, heuristic)")

	rootCmd.AddCommand(
		newExtractCommand(a),
		newInterpretCommand(a),
		newBudgetCommand(a),
		newTransactionsCommand(a),
		newUploadCommand(a),
		newSyncNotionCommand(a),
	)
	return rootCmd
}

func newExtractCommand(a *app) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract transactions from a text statement (stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			text, err := readInput(cmd, path)
			if err != nil {
				return err
			}

			ctx := a.context(cmd)
			e, err := a.open(ctx, false)
			if err != nil {
				return err
			}
			defer e.close()

			if save {
				res, err := e.svc.IngestText(ctx, documentIDFor(path), text)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			}
			txs, err := e.svc.ExtractTransactions(ctx, text)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), txs)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store the extracted transactions")
	return cmd
}

func newInterpretCommand(a *app) *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "interpret <command>",
		Short: "Turn a natural-language instruction into an action",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			e, err := a.open(ctx, false)
			if err != nil {
				return err
			}
			defer e.close()

			command := strings.Join(args, " ")
			if apply {
				res, err := e.svc.ApplyCommand(ctx, command)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			}
			action, err := e.svc.InterpretCommand(ctx, command)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), action)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "execute the action against stored transactions")
	return cmd
}

func newBudgetCommand(a *app) *cobra.Command {
	var (
		income float64
		mode   string
		from   string
	)
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Suggest monthly budgets from spending history",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			e, err := a.open(ctx, false)
			if err != nil {
				return err
			}
			defer e.close()

			if err := seedFrom(ctx, cmd, e, from); err != nil {
				return err
			}

			plan, err := e.svc.GenerateBudget(ctx, pipeline.BudgetRequest{Income: income, Mode: domain.BudgetMode(mode)})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), plan)
		},
	}
	cmd.Flags().Float64Var(&income, "income", 0, "estimated monthly income (selects zero-based budgeting)")
	cmd.Flags().StringVar(&mode, "mode", "", "force trends or zero_based")
	cmd.Flags().StringVar(&from, "from", "", "statement file to ingest before budgeting")
	cmd.AddCommand(newBudgetStatusCommand(a))
	return cmd
}

// seedFrom ingests a statement before the command runs; handy with the memory backend.
func seedFrom(ctx context.Context, cmd *cobra.Command, e *env, from string) error {
	if from == "" {
		return nil
	}
	text, err := readInput(cmd, from)
	if err != nil {
		return err
	}
	_, err = e.svc.IngestText(ctx, documentIDFor(from), text)
	return err
}

func newBudgetStatusCommand(a *app) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Compare this month's spending with saved budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			e, err := a.open(ctx, false)
			if err != nil {
				return err
			}
			defer e.close()

			if err := seedFrom(ctx, cmd, e, from); err != nil {
				return err
			}
			status, err := e.svc.BudgetStatus(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), status)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "statement file to ingest first")
	return cmd
}

func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func filterFlags(cmd *cobra.Command) (*store.Filter, func() error) {
	f := &store.Filter{}
	var start, end string
	cmd.Flags().StringVar(&start, "start-date", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end-date", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.Vendor, "vendor", "", "merchant or description substring")
	cmd.Flags().StringVar(&f.Category, "category", "", "category name")
	cmd.Flags().BoolVar(&f.TransfersOnly, "transfers", false, "only transfers and potential transfers")

	resolve := func() error {
		var err error
		if f.Start, err = parseDateFlag(start); err != nil {
			return err
		}
		if f.End, err = parseDateFlag(end); err != nil {
			return err
		}
		if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
			return fmt.Errorf("end-date must not be before start-date")
		}
		return nil
	}
	return f, resolve
}

func newTransactionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List stored transactions",
	}
	filter, resolve := filterFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := resolve(); err != nil {
			return err
		}
		ctx := a.context(cmd)
		e, err := a.open(ctx, false)
		if err != nil {
			return err
		}
		defer e.close()

		recs, err := e.repo.ListTransactions(ctx, *filter)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), recs)
	}
	return cmd
}

func newUploadCommand(a *app) *cobra.Command {
	var (
		bucket string
		ingest bool
	)
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a statement to GCS and optionally ingest it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if bucket == "" {
				bucket = a.cfg.GCS.Bucket
			}
			if bucket == "" {
				return fmt.Errorf("a bucket is required (--bucket or GCS_BUCKET)")
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := a.context(cmd)
			e, err := a.open(ctx, true)
			if err != nil {
				return err
			}
			defer e.close()

			object := gcsuploader.ObjectName(filepath.Base(args[0]), time.Now())
			if err := e.storage.Upload(ctx, bucket, object, "text/plain", f); err != nil {
				return err
			}
			uri := gcsuploader.BuildURI(bucket, object)
			a.log.Info().Str("gcs_uri", uri).Msg("Uploaded statement")

			if !ingest {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), uri)
				return err
			}
			res, err := e.svc.IngestGCS(ctx, gcsuploader.FileName(uri), uri)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "GCS bucket (defaults to GCS_BUCKET)")
	cmd.Flags().BoolVar(&ingest, "ingest", false, "extract and store transactions after uploading")
	return cmd
}

func newSyncNotionCommand(a *app) *cobra.Command {
	var (
		token, dbID   string
		prune, dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "sync-notion",
		Short: "Export stored transactions to a Notion database",
	}
	filter, resolve := filterFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := resolve(); err != nil {
			return err
		}
		if token == "" {
			token = a.cfg.Notion.Token
		}
		if dbID == "" {
			dbID = a.cfg.Notion.DatabaseID
		}
		if token == "" || dbID == "" {
			return fmt.Errorf("notion token and database id are required")
		}

		ctx, cancel := context.WithTimeout(a.context(cmd), 10*time.Minute)
		defer cancel()

		repo, err := bootstrap.OpenRepository(ctx, a.cfg.Storage)
		if err != nil {
			return err
		}
		defer repo.Close()

		res, err := notionsync.SyncTransactions(ctx, repo, notionsync.NewNotionClient(token), dbID, notionsync.Options{
			Filter: *filter,
			Prune:  prune,
			DryRun: dryRun,
		})
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	}
	cmd.Flags().StringVar(&token, "notion-token", "", "Notion API token (defaults to NOTION_TOKEN)")
	cmd.Flags().StringVar(&dbID, "notion-db-id", "", "Notion database ID (defaults to NOTION_DATABASE_ID)")
	cmd.Flags().BoolVar(&prune, "prune", false, "archive pages whose transaction no longer exists")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview changes without syncing")
	return cmd
}
