package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/creamline/batchplan/pkg/application/analytics"
	"github.com/creamline/batchplan/pkg/application/planning"
	"github.com/creamline/batchplan/pkg/infrastructure/narrative"
	"github.com/creamline/batchplan/pkg/infrastructure/repositories/sqlite"
	"github.com/creamline/batchplan/pkg/infrastructure/scenario"
	"github.com/creamline/batchplan/pkg/interfaces/cli/output"
	"github.com/creamline/batchplan/pkg/scheduler"
)

var (
	// Global flags
	verbose      bool
	scenarioPath string
	dbPath       string
	format       string

	// plan flags
	explain     bool
	commit      bool
	maxAttempts int
	geminiModel string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "batchplan",
	Short: "batchplan - deterministic yogurt production scheduling",
	Long: `batchplan assigns pending yogurt batch requests to production lines and
time windows, reserving additive inventory as it goes. Runs are
deterministic: the same data set always yields the same schedule.

Data comes from a YAML scenario file (--scenario) or a SQLite
database (--db).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run the scheduler over the pending batch requests",
	Long: `Loads recipes, production lines, pending requests and the current
inventory snapshot, then schedules every request it can. With --commit
the resulting reservations are written back; a concurrent inventory
change triggers an automatic re-plan.

Example:
  batchplan plan --scenario week12.yaml --format json
  batchplan plan --db plant.db --commit --explain`,
	RunE: runPlan,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Project stockout risk from the planned schedule",
	RunE:  runAnalyze,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&scenarioPath, "scenario", "", "Path to a YAML scenario file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to a SQLite database")
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "Output format: text, json")

	planCmd.Flags().BoolVar(&explain, "explain", false, "Narrate the schedule with Gemini (needs GEMINI_API_KEY)")
	planCmd.Flags().StringVar(&geminiModel, "gemini-model", "", "Gemini model for --explain")
	planCmd.Flags().BoolVar(&commit, "commit", false, "Commit the reservations after planning")
	planCmd.Flags().IntVar(&maxAttempts, "max-attempts", 3, "Re-plan attempts on commit conflicts")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// buildRepos resolves the data source flags into repositories. Exactly one
// of --scenario and --db must be set.
func buildRepos() (planning.Repos, func(), error) {
	switch {
	case scenarioPath != "" && dbPath != "":
		return planning.Repos{}, nil, fmt.Errorf("--scenario and --db are mutually exclusive")
	case scenarioPath != "":
		sc, err := scenario.Load(scenarioPath)
		if err != nil {
			return planning.Repos{}, nil, err
		}
		return planning.Repos{
			Recipes:   sc.Recipes,
			Requests:  sc.Requests,
			Lines:     sc.Lines,
			Inventory: sc.Inventory,
			Schedule:  sc.Inventory,
		}, func() {}, nil
	case dbPath != "":
		store, err := sqlite.Open(dbPath)
		if err != nil {
			return planning.Repos{}, nil, err
		}
		return planning.Repos{
			Recipes:   store,
			Requests:  store,
			Lines:     store,
			Inventory: store,
			Schedule:  store,
		}, func() { store.Close() }, nil
	default:
		return planning.Repos{}, nil, fmt.Errorf("either --scenario or --db is required")
	}
}

func buildService(cmd *cobra.Command) (*planning.Service, func(), error) {
	repos, cleanup, err := buildRepos()
	if err != nil {
		return nil, nil, err
	}

	var narrator narrative.Generator
	if explain {
		apiKey := os.Getenv("GEMINI_API_KEY")
		narrator, err = narrative.NewGeminiGenerator(cmd.Context(), apiKey, geminiModel)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	engine := scheduler.NewEngine(scheduler.Config{})
	return planning.NewService(repos, engine, narrator, logger), cleanup, nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := buildService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	var plan *planning.PlanResult
	if commit {
		plan, err = svc.PlanAndCommit(ctx, maxAttempts)
	} else {
		plan, err = svc.Plan(ctx)
	}
	if err != nil {
		return err
	}

	var explanation string
	if explain {
		explanation, err = plan.Explanation(ctx)
		if err != nil {
			logger.Warn("explanation unavailable", zap.Error(err))
		}
	}

	return output.Render(cmd.OutOrStdout(), output.NewReport(plan.Run, explanation), format)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := buildService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	plan, err := svc.Plan(cmd.Context())
	if err != nil {
		return err
	}

	risks := analytics.StockoutRisks(plan.Snapshot, plan.Run.Entries)
	return output.RenderRisks(cmd.OutOrStdout(), risks, format)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
