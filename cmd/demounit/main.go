package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"demounit/adapters/api"
	"demounit/adapters/obsfile"
	"demounit/adapters/sqlstore"
	"demounit/app"
	"demounit/domain/core"
	"demounit/domain/run"
	"demounit/internal"
	"demounit/internal/config"
	"demounit/internal/migration"
	"demounit/internal/testkit"
	"demounit/internal/validation"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func main() {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:           "demounit",
		Short:         "Validate neuron models against electrophysiology observations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			internal.DefaultLogger = cfg.Logger()
			return nil
		},
	}

	rootCmd.AddCommand(
		newRunCmd(&cfg),
		newTestsCmd(),
		newCatalogCmd(),
		newRunsCmd(&cfg),
		newMigrateCmd(&cfg),
		newImportCmd(&cfg),
		newServeCmd(&cfg),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd(cfg **config.Config) *cobra.Command {
	var observationsFile string
	var models []string
	var xlsxPath string
	var store bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Judge reference models with the tests named in an observation file",
		Long: `Run every test listed in the observation file against each model.

The observation file maps test aliases to {mean, std}, as YAML, JSON,
Excel (.xlsx) or CSV (columns test, mean, std).

Example: demounit run --observations obs.yaml --model hh --model passive --xlsx scores.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			if observationsFile == "" {
				observationsFile = c.Validation.ObservationsFile
			}
			if observationsFile == "" {
				return fmt.Errorf("--observations is required (or set OBSERVATIONS_FILE)")
			}
			observations, err := obsfile.Load(observationsFile)
			if err != nil {
				return err
			}

			opts := suiteOptions(c)
			if store {
				db, err := openStore(cmd.Context(), c)
				if err != nil {
					return err
				}
				defer db.Close()
				opts = append(opts, app.WithRepository(sqlstore.NewScoreRepository(db)))
			}
			suite := app.NewSuiteService(opts...)

			vr, err := suite.RunNamed(cmd.Context(), app.RunRequest{Observations: observations, Models: models}, testkit.NewCatalog())
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				if err := suite.ExportWorkbook(vr, xlsxPath); err != nil {
					return err
				}
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(vr)
			}
			return printRun(cmd.OutOrStdout(), vr)
		},
	}

	cmd.Flags().StringVarP(&observationsFile, "observations", "o", "", "Observation file (yaml, json, xlsx or csv)")
	cmd.Flags().StringSliceVarP(&models, "model", "m", []string{testkit.ModelHodgkinHuxley}, "Reference model to judge (repeatable): hh, passive")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the score matrix to this workbook")
	cmd.Flags().BoolVar(&store, "store", false, "Save the run in the score ledger")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run as JSON")
	return cmd
}

func newTestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tests",
		Short: "List the available validation tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ALIAS\tNAME\tREQUIRES\tPROTOCOL")
			for _, def := range validation.Catalog() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", def.Alias, def.Name,
					strings.Join(def.Capabilities.Strings(), ", "), describeProtocol(def.Protocol))
			}
			return w.Flush()
		},
	}
}

func newCatalogCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Export the test catalog as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" || output == "-" {
				return app.ExportCatalog(cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := app.ExportCatalog(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "VF_test_info.json", "Output file, - for stdout")
	return cmd
}

func newRunsCmd(cfg **config.Config) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs stored in the score ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			suite := app.NewSuiteService(app.WithRepository(sqlstore.NewScoreRepository(db)))
			runs, err := suite.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTARTED\tJUDGEMENTS\tSCORED\tNO PREDICTION\tFAILED")
			for _, vr := range runs {
				s := vr.Summarize()
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n", vr.ID, vr.StartedAt.Local().Format(time.DateTime),
					s.Total, s.Scored, s.Sentinel, s.Failed)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list, 0 for all")
	return cmd
}

func newMigrateCmd(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the score ledger schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			db, err := openStore(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema %s is up to date\n", c.Database.Driver, migration.NewRunner().Version())
			return nil
		},
	}
}

func newImportCmd(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Store runs saved with run --json in the score ledger",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			repo := sqlstore.NewScoreRepository(db)

			imported := 0
			for _, path := range args {
				vr, err := readRunFile(path)
				if err != nil {
					return err
				}
				if err := repo.SaveRun(cmd.Context(), vr); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				imported++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d runs\n", imported)
			return nil
		},
	}
}

func readRunFile(path string) (*run.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var vr run.Run
	if err := json.Unmarshal(data, &vr); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	id, err := core.ParseRunID(vr.ID.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	vr.ID = id
	return &vr, nil
}

func newServeCmd(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the test catalog and suite runs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := openStore(ctx, c)
			if err != nil {
				return err
			}
			defer db.Close()

			opts := append(suiteOptions(c), app.WithRepository(sqlstore.NewScoreRepository(db)))
			server := &http.Server{
				Addr:              ":" + c.Server.Port,
				Handler:           api.NewServer(app.NewSuiteService(opts...), testkit.NewCatalog()),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				internal.DefaultLogger.Info("listening on %s", server.Addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			internal.DefaultLogger.Info("shutting down")
			return server.Shutdown(shutdownCtx)
		},
	}
}

func suiteOptions(c *config.Config) []app.SuiteOption {
	return []app.SuiteOption{
		app.WithLogger(c.Logger()),
		app.WithConcurrency(c.Validation.Concurrency),
		app.WithTestOptions(validation.WithAbsentPolicy(c.Validation.AbsentPolicy)),
	}
}

func openStore(ctx context.Context, c *config.Config) (*sqlx.DB, error) {
	return sqlstore.Open(ctx, c.Database.Driver, c.Database.URL)
}

func describeProtocol(p validation.Protocol) string {
	if p.Stimulus == nil {
		return fmt.Sprintf("record %g ms", p.TStop)
	}
	s := p.Stimulus
	return fmt.Sprintf("%g nA for %g ms at %g ms, record %g ms, %s", s.Amplitude, s.Duration, s.Delay, p.TStop, p.Feature)
}

func printRun(out io.Writer, vr *run.Run) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "run %s\n\n", vr.ID)
	fmt.Fprintln(w, "TEST\tMODEL\tSCORE\tNORM\tPREDICTION\tOBSERVATION")
	for _, c := range vr.Cells {
		if c.Failed() {
			fmt.Fprintf(w, "%s\t%s\terror: %s\t\t\t\n", c.TestAlias, c.ModelName, c.Error)
			continue
		}
		s := c.Score
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\t%s\t%s\n", c.TestAlias, c.ModelName, s, s.Norm(), s.Prediction, s.Observation)
	}
	sum := vr.Summarize()
	fmt.Fprintf(w, "\n%d judgements: %d scored, %d without prediction, %d failed\n", sum.Total, sum.Scored, sum.Sentinel, sum.Failed)
	return w.Flush()
}
