package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"goelicit/adapters/excel"
	"goelicit/adapters/memory"
	"goelicit/app"
	"goelicit/domain/design"
	"goelicit/domain/posterior"
	"goelicit/internal"
	"goelicit/internal/config"
	"goelicit/internal/profiles"
	"goelicit/internal/report"
)

// cliState is populated by the root command before any subcommand runs
type cliState struct {
	configPath string
	logLevel   string

	cfg     *config.Config
	logger  *internal.Logger
	service *app.ElicitationService
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	st := &cliState{}

	rootCmd := &cobra.Command{
		Use:   "elicit",
		Short: "Plan and analyze job-preference vignette batteries",
		Long: `elicit plans D-optimal batteries of forced-choice job vignettes and
summarizes how uncertain a preference posterior still is.

Engine settings come from the environment (see .env.example); --config
overrides PROFILE_CONFIG_PATH.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.init()
		},
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&st.configPath, "config", "", "attribute configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "ERROR|WARN|INFO|DEBUG|TRACE (default from LOG_LEVEL)")

	rootCmd.AddCommand(
		newInfoCmd(st),
		newProfilesCmd(st),
		newDesignCmd(st),
		newStatsCmd(st),
		newAnalyzeCmd(st),
		newNextCmd(st),
	)
	return rootCmd
}

func (st *cliState) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if st.configPath != "" {
		cfg.Engine.ProfileConfigPath = st.configPath
	}
	level := cfg.Log.Level
	if st.logLevel != "" {
		level = st.logLevel
	}
	st.cfg = cfg
	st.logger = internal.NewLogger(internal.ParseLogLevel(level))

	generator, err := profiles.Load(cfg.Engine.ProfileConfigPath, st.logger)
	if err != nil {
		return err
	}
	st.service, err = app.NewElicitationService(cfg.Engine, generator, nil,
		memory.NewBatteryStore(1), nil, st.logger)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readPosterior(path string) (posterior.Distribution, error) {
	var post posterior.Distribution
	raw, err := os.ReadFile(path)
	if err != nil {
		return post, err
	}
	if err := json.Unmarshal(raw, &post); err != nil {
		return post, fmt.Errorf("parse %s: %w", path, err)
	}
	return post, nil
}

func readBattery(st *cliState, path string) ([]design.Vignette, error) {
	rows, err := excel.NewDataReader(path, st.logger).ReadBattery()
	if err != nil {
		return nil, err
	}
	return excel.ResolveVignettes(rows, st.service.Generator())
}

func newInfoCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Summarize the attribute space and preference dimensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), st.service.SpaceInfo())
		},
	}
}

func newProfilesCmd(st *cliState) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List candidate profiles with their keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool := st.service.Pool()
			if limit > 0 && limit < len(pool) {
				pool = pool[:limit]
			}
			g := st.service.Generator()
			for _, p := range pool {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Key(), g.ProfileToString(p))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most this many profiles (0 = all)")
	return cmd
}

func newDesignCmd(st *cliState) *cobra.Command {
	var (
		numStatic    int
		numBeginning int
		variance     float64
		xlsxPath     string
		format       string
	)

	cmd := &cobra.Command{
		Use:   "design",
		Short: "Select a static vignette battery",
		Long: `Greedily select the battery that maximizes the determinant of the
accumulated Fisher information under the configured priors.

Example: elicit design --num-static 8 --num-beginning 4 --xlsx battery.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := app.PlanRequest{NumStatic: numStatic, PriorVariance: variance}
			if cmd.Flags().Changed("num-beginning") {
				req.NumBeginning = &numBeginning
			}
			battery, err := st.service.PlanStaticBattery(cmd.Context(), req)
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				if err := excel.NewBatteryWriter(st.service.Generator(), st.logger).Save(battery, xlsxPath); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			switch format {
			case "markdown":
				_, err = io.WriteString(out, report.BatteryMarkdown(battery, st.service.Generator()))
				return err
			case "json":
				return writeJSON(out, battery.Stats)
			default:
				return fmt.Errorf("unknown format %q (json|markdown)", format)
			}
		},
	}
	cmd.Flags().IntVar(&numStatic, "num-static", 0, "vignettes to select (default NUM_STATIC_VIGNETTES)")
	cmd.Flags().IntVar(&numBeginning, "num-beginning", 0, "vignettes shown before the adaptive phase")
	cmd.Flags().Float64Var(&variance, "prior-variance", 0, "isotropic prior variance (default PRIOR_VARIANCE)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also export the battery to this spreadsheet")
	cmd.Flags().StringVar(&format, "format", "markdown", "stdout format: json|markdown")
	return cmd
}

func newStatsCmd(st *cliState) *cobra.Command {
	var variance float64

	cmd := &cobra.Command{
		Use:   "stats [battery.xlsx|battery.csv]",
		Short: "Score an exported battery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vignettes, err := readBattery(st, args[0])
			if err != nil {
				return err
			}
			stats, err := st.service.BatteryStatistics(vignettes, nil, variance)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().Float64Var(&variance, "prior-variance", 0, "isotropic prior variance (default PRIOR_VARIANCE)")
	return cmd
}

func newAnalyzeCmd(st *cliState) *cobra.Command {
	var (
		threshold float64
		format    string
	)

	cmd := &cobra.Command{
		Use:   "analyze [posterior.json]",
		Short: "Report per-dimension and global posterior uncertainty",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			post, err := readPosterior(args[0])
			if err != nil {
				return err
			}
			var override *float64
			if cmd.Flags().Changed("threshold") {
				override = &threshold
			}
			analysis, err := st.service.AnalyzePosterior(post, override)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return writeJSON(out, analysis)
			case "markdown":
				_, err = io.WriteString(out, report.UncertaintyMarkdown(analysis.Report, analysis.Correlations))
				return err
			case "html":
				md := report.UncertaintyMarkdown(analysis.Report, analysis.Correlations)
				_, err = out.Write(report.HTML(md, "Preference uncertainty"))
				return err
			default:
				return fmt.Errorf("unknown format %q (json|markdown|html)", format)
			}
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "override UNCERTAINTY_THRESHOLD")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json|markdown|html")
	return cmd
}

func newNextCmd(st *cliState) *cobra.Command {
	var askedPath string

	cmd := &cobra.Command{
		Use:   "next [posterior.json]",
		Short: "Recommend the next adaptive vignette",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			post, err := readPosterior(args[0])
			if err != nil {
				return err
			}
			var asked []design.Vignette
			if askedPath != "" {
				if asked, err = readBattery(st, askedPath); err != nil {
					return err
				}
			}
			rec, err := st.service.NextVignette(cmd.Context(), post, asked)
			if err != nil {
				return err
			}
			g := st.service.Generator()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "targets: %v\n", rec.Targets)
			fmt.Fprintf(out, "A [%s] %s\n", rec.Vignette.A.Key(), g.ProfileToString(rec.Vignette.A))
			fmt.Fprintf(out, "B [%s] %s\n", rec.Vignette.B.Key(), g.ProfileToString(rec.Vignette.B))
			fmt.Fprintf(out, "gain %.6f, projection %.4f, %d candidates\n", rec.Gain, rec.Projection, rec.Candidates)
			return nil
		},
	}
	cmd.Flags().StringVar(&askedPath, "asked", "", "exported battery whose vignettes were already shown")
	return cmd
}
