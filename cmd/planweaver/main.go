package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"planweaver/internal/config"
	"planweaver/internal/evaluation"
	"planweaver/internal/ir"
	"planweaver/internal/logging"
	"planweaver/internal/pipeline"
	"planweaver/internal/planner"
	"planweaver/internal/router"
	"planweaver/internal/simulation"
	"planweaver/internal/store"
	"planweaver/internal/validator"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var (
	// Global flags
	verbose   bool
	workspace string
	storePath string

	// Simulation flags
	seed     int64
	mode     string
	risk     float64
	minScore float64

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "planweaver",
	Short: "planweaver - IR graph validation, planning and simulation",
	Long: `planweaver validates intent/constraint/action graphs, synthesizes
dependency-ordered execution plans, and scores candidate plans through
seeded stochastic simulation before anything executes for real.

Graphs arrive as YAML snapshot documents produced by an external compiler;
planweaver owns everything from validation to verdict.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if workspace == "" {
			workspace, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to resolve workspace: %w", err)
			}
		}
		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("debug logging unavailable", zap.Error(err))
		}

		cfg, err = config.LoadWorkspace(workspace)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		applyFlagOverrides(cmd)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// applyFlagOverrides layers explicitly-set flags over the config file.
func applyFlagOverrides(cmd *cobra.Command) {
	if cmd.Flags().Changed("seed") {
		cfg.Simulation.Seed = seed
	}
	if cmd.Flags().Changed("mode") {
		cfg.Simulation.Mode = mode
	}
	if cmd.Flags().Changed("min-score") {
		cfg.Router.MinScore = minScore
	}
	if storePath != "" {
		cfg.Store.Enabled = true
		cfg.Store.DatabasePath = storePath
	}
}

var validateCmd = &cobra.Command{
	Use:   "validate [snapshot.yaml]",
	Short: "Validate a graph snapshot",
	Long: `Runs the five validation passes (schema, references, constraint
consistency, dependency cycles, completeness) over a graph snapshot and
prints the full error/warning list. A failing graph is reported, never
discarded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(args[0])
		if err != nil {
			return err
		}
		v := validator.New()
		v.RequireActions = cfg.Validation.RequireActions
		result := v.ValidateAndUpdateStatus(g)

		logger.Info("validation finished",
			zap.String("graph", g.ID),
			zap.Bool("valid", result.Valid),
			zap.Int("errors", len(result.Errors)),
			zap.Int("warnings", len(result.Warnings)))
		if err := printJSON(result); err != nil {
			return err
		}
		if !result.Valid {
			return fmt.Errorf("graph %s failed validation", g.ID)
		}
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [snapshot.yaml]",
	Short: "Synthesize an execution plan from a graph snapshot",
	Long: `Validates the graph, then orders its actions into numbered execution
steps (dependency order, priority tie-break) with per-step timeouts and
retry budgets.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(args[0])
		if err != nil {
			return err
		}
		v := validator.New()
		v.RequireActions = cfg.Validation.RequireActions
		if result := v.ValidateAndUpdateStatus(g); !result.Valid {
			if err := printJSON(result); err != nil {
				return err
			}
			return fmt.Errorf("graph %s failed validation", g.ID)
		}

		plan, err := planner.ToExecutionPlan(g)
		if err != nil {
			return fmt.Errorf("plan synthesis: %w", err)
		}
		if err := persist(func(s *store.AuditStore) error { return s.SavePlan(plan) }); err != nil {
			return err
		}
		logger.Info("plan synthesized",
			zap.String("plan", plan.ID),
			zap.Int("steps", len(plan.Steps)))
		return printJSON(plan)
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate [snapshot.yaml]",
	Short: "Simulate a graph's actions under the stochastic risk model",
	Long: `Runs one seeded simulation over the graph's action set. The same
seed, graph and scenario always reproduce the identical run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(args[0])
		if err != nil {
			return err
		}
		sim := simulation.NewSimulator(simulation.Config{
			Seed:                   cfg.Simulation.Seed,
			Mode:                   simulation.ParseMode(cfg.Simulation.Mode),
			BaseFailureProbability: cfg.Simulation.BaseFailureProbability,
		})
		run := sim.Simulate(g, scenarioFromFlags())
		if err := persist(func(s *store.AuditStore) error { return s.SaveRun(run) }); err != nil {
			return err
		}
		logger.Info("simulation finished",
			zap.String("run", run.ID),
			zap.Float64("score", run.Score),
			zap.Int("failed_steps", run.FailedSteps))
		return printJSON(run)
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [snapshot.yaml]",
	Short: "Run the full validate/plan/simulate/evaluate pipeline",
	Long: `Takes a graph snapshot through the whole pipeline and prints the
combined result: validation issues, execution plan, simulation run and
final verdict.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(args[0])
		if err != nil {
			return err
		}
		result, err := pipeline.Run(g, pipeline.Options{
			Seed:                   cfg.Simulation.Seed,
			Mode:                   simulation.ParseMode(cfg.Simulation.Mode),
			BaseFailureProbability: cfg.Simulation.BaseFailureProbability,
			Scenario:               scenarioFromFlags(),
			RequireActions:         cfg.Validation.RequireActions,
			PassThreshold:          cfg.Evaluation.PassThreshold,
			ConditionalThreshold:   cfg.Evaluation.ConditionalThreshold,
		})
		if err != nil {
			return err
		}
		if err := persist(func(s *store.AuditStore) error {
			if result.Plan != nil {
				if err := s.SavePlan(result.Plan); err != nil {
					return err
				}
			}
			if result.Run != nil {
				if err := s.SaveRun(result.Run); err != nil {
					return err
				}
			}
			if result.Evaluation != nil {
				if err := s.SaveEvaluation(result.Evaluation); err != nil {
					return err
				}
			}
			return s.SaveGraphLog(g)
		}); err != nil {
			return err
		}

		if result.Evaluation != nil {
			logger.Info("pipeline finished",
				zap.String("graph", g.ID),
				zap.String("verdict", string(result.Evaluation.Verdict)),
				zap.Float64("score", result.Evaluation.OverallScore))
		}
		if err := printJSON(result); err != nil {
			return err
		}
		if result.Evaluation != nil && result.Evaluation.Verdict == evaluation.VerdictFail {
			return fmt.Errorf("graph %s failed evaluation", g.ID)
		}
		if !result.Validation.Valid {
			return fmt.Errorf("graph %s failed validation", g.ID)
		}
		return nil
	},
}

var routeCmd = &cobra.Command{
	Use:   "route [snapshot.yaml...]",
	Short: "Rank candidate graph snapshots by simulated outcome",
	Long: `Simulates each candidate snapshot on an independent copy with an
independently derived seed and prints them ranked best-first, plus the
selected candidate if the best score clears the minimum.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		graphs := make([]*ir.Graph, 0, len(args))
		for _, path := range args {
			g, err := loadGraph(path)
			if err != nil {
				return err
			}
			graphs = append(graphs, g)
		}

		r := router.New(&router.SimulatorEngine{
			Mode:                   simulation.ParseMode(cfg.Simulation.Mode),
			BaseFailureProbability: cfg.Simulation.BaseFailureProbability,
		})
		r.MaxCandidates = cfg.Router.MaxCandidates
		r.BaseSeed = cfg.Simulation.Seed
		r.Scenario = scenarioFromFlags()

		candidates := r.Route(graphs)
		best := r.SelectBest(candidates, cfg.Router.MinScore)

		out := struct {
			Candidates []*router.Candidate `json:"candidates"`
			Selected   *router.Candidate   `json:"selected,omitempty"`
		}{Candidates: candidates, Selected: best}

		if best != nil {
			logger.Info("candidate selected",
				zap.String("graph", best.GraphID),
				zap.Float64("score", best.Score))
		} else {
			logger.Warn("no candidate cleared the score floor",
				zap.Float64("min_score", cfg.Router.MinScore))
		}
		return printJSON(out)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .planweaver/config.yaml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(workspace, config.ConfigPath)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

// loadGraph reads a YAML snapshot document and decodes it into a graph.
func loadGraph(path string) (*ir.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	g, err := ir.DecodeSnapshot(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	logging.Graph("loaded snapshot %s: graph=%s intents=%d constraints=%d actions=%d",
		path, g.ID, len(g.Intents), len(g.Constraints), len(g.Actions))
	return g, nil
}

func scenarioFromFlags() *simulation.Scenario {
	if risk <= 0 || risk == 1 {
		return nil
	}
	return &simulation.Scenario{Name: "cli", RiskMultiplier: risk}
}

// persist runs fn against the audit store when one is configured.
func persist(fn func(*store.AuditStore) error) error {
	if !cfg.Store.Enabled {
		return nil
	}
	s, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: cwd)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "persist artifacts to this SQLite database")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 42, "simulation seed")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "standard", "simulation mode (fast, standard, thorough)")
	rootCmd.PersistentFlags().Float64Var(&risk, "risk", 1.0, "scenario risk multiplier")
	rootCmd.PersistentFlags().Float64Var(&minScore, "min-score", 0.5, "minimum score for route selection")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
