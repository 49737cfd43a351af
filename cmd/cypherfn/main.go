// Package main provides the cypherfn CLI entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/orneryd/cypherfn/pkg/ast"
	"github.com/orneryd/cypherfn/pkg/batch"
	"github.com/orneryd/cypherfn/pkg/config"
	"github.com/orneryd/cypherfn/pkg/functions"
	"github.com/orneryd/cypherfn/pkg/storage"
	"github.com/orneryd/cypherfn/pkg/value"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cypherfn",
		Short: "cypherfn - Cypher integer conversion functions",
		Long: `cypherfn evaluates the Cypher integer conversion functions
(toInteger, toIntegerOrNull, toInt, toIntegerList) on literal values and
applies them in bulk to properties held in a BadgerDB property store.

Examples:
  cypherfn eval "toIntegerOrNull('3.9')"
  cypherfn eval toInteger 1.5
  cypherfn put user-1 age "'42'"
  cypherfn coerce age --function toInteger --write`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (overrides config)")
	rootCmd.PersistentFlags().Bool("in-memory", false, "Use an in-memory store")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cypherfn v%s (%s)\n", version, commit)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "functions",
		Short: "List registered functions",
		Args:  cobra.NoArgs,
		RunE:  runFunctions,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "eval <call> | eval <function> [literal...]",
		Short: "Evaluate a function on Cypher literals",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runEval,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "put <entity> <property> <literal>",
		Short: "Store a property value",
		Args:  cobra.ExactArgs(3),
		RunE:  runPut,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "get <entity> <property>",
		Short: "Print a property value",
		Args:  cobra.ExactArgs(2),
		RunE:  runGet,
	})

	coerceCmd := &cobra.Command{
		Use:   "coerce <property>",
		Short: "Apply a conversion function to a property across all entities",
		Args:  cobra.ExactArgs(1),
		RunE:  runCoerce,
	}
	coerceCmd.Flags().String("function", "", "Function to apply (default from config)")
	coerceCmd.Flags().Int("workers", 0, "Parallel calls (default from config)")
	coerceCmd.Flags().Bool("write", false, "Write converted values back")
	rootCmd.AddCommand(coerceCmd)

	return rootCmd
}

// loadConfig resolves config file, environment and global flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if inMemory, _ := cmd.Flags().GetBool("in-memory"); inMemory {
		cfg.Storage.InMemory = true
	}
	return cfg, nil
}

func newRegistry(cfg *config.Config) (*functions.Registry, error) {
	reg := functions.DefaultRegistry()
	if err := reg.ApplyOverrides(cfg.Functions.Enabled); err != nil {
		return nil, fmt.Errorf("applying function overrides: %w", err)
	}
	return reg, nil
}

func openEngine(cfg *config.Config, logger *levelLogger) (storage.Engine, error) {
	if cfg.Storage.InMemory {
		return storage.NewMemoryEngine(), nil
	}
	opts := storage.BadgerOptions{
		DataDir:    cfg.Storage.DataDir,
		SyncWrites: cfg.Storage.SyncWrites,
		LowMemory:  cfg.Storage.LowMemory,
	}
	if cfg.Logging.Enabled("DEBUG") {
		opts.Logger = logger
	}
	engine, err := storage.NewBadgerEngineWithOptions(opts)
	if err != nil {
		return nil, err
	}
	return engine, nil
}

func runFunctions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIGNATURE\tENABLED\tDESCRIPTION")
	for _, d := range reg.List() {
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", d.Name, d.Signature, d.Enabled, d.Description)
	}
	return w.Flush()
}

// parseEvalArgs accepts either one call expression ("toInteger('1')") or a
// function name followed by one literal per argument.
func parseEvalArgs(args []string) (*ast.FunctionCall, []value.Value, error) {
	var (
		call     *ast.FunctionCall
		literals []string
	)
	if len(args) == 1 && strings.Contains(args[0], "(") {
		parsed, err := ast.ParseFunctionCall(args[0])
		if err != nil {
			return nil, nil, err
		}
		call, literals = parsed, parsed.Arguments
	} else {
		call, literals = ast.NewFunctionCall(args[0]), args[1:]
	}

	values := make([]value.Value, 0, len(literals))
	for i, lit := range literals {
		v, err := value.ParseLiteral(lit)
		if err != nil {
			return nil, nil, fmt.Errorf("argument %d: %w", i, err)
		}
		values = append(values, v)
	}
	return call, values, nil
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	call, values, err := parseEvalArgs(args)
	if err != nil {
		return err
	}

	result, err := reg.Invoke(cmd.Context(), functions.NewEvaluationContext(), call, values)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	v, err := value.ParseLiteral(args[2])
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg, newLevelLogger(cmd.ErrOrStderr(), cfg.Logging))
	if err != nil {
		return err
	}
	defer engine.Close()

	return engine.Put(storage.EntityID(args[0]), args[1], v)
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg, newLevelLogger(cmd.ErrOrStderr(), cfg.Logging))
	if err != nil {
		return err
	}
	defer engine.Close()

	v, err := engine.Get(storage.EntityID(args[0]), args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}

func runCoerce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if fn, _ := cmd.Flags().GetString("function"); fn != "" {
		cfg.Batch.Function = fn
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.Batch.Workers = workers
	}
	if write, _ := cmd.Flags().GetBool("write"); write {
		cfg.Batch.Write = true
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	logger := newLevelLogger(cmd.ErrOrStderr(), cfg.Logging)
	logger.Infof("%s", cfg)

	engine, err := openEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	coercer := &batch.Coercer{
		Engine:   engine,
		Registry: reg,
		Function: cfg.Batch.Function,
		Workers:  cfg.Batch.Workers,
		Write:    cfg.Batch.Write,
		Logger:   logger.infoLogger(),
		Debug:    cfg.Logging.Enabled("DEBUG"),
	}
	report, err := coercer.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report)
	for _, id := range report.FailedEntities() {
		fmt.Fprintf(out, "  ❌ %s: %v\n", id, report.Errors[id])
	}

	if gc, ok := engine.(*storage.BadgerEngine); ok && cfg.Batch.Write {
		if err := gc.RunGC(); err != nil {
			logger.Warningf("value log GC failed: %v", err)
		}
	}
	return nil
}

// levelLogger filters a *log.Logger by the configured level. It satisfies
// badger.Logger so Badger's own messages follow the same level.
type levelLogger struct {
	out   *log.Logger
	level config.LoggingConfig
}

func newLevelLogger(w io.Writer, level config.LoggingConfig) *levelLogger {
	return &levelLogger{out: log.New(w, "", log.LstdFlags), level: level}
}

func (l *levelLogger) logf(level, format string, args ...interface{}) {
	if !l.level.Enabled(level) {
		return
	}
	l.out.Printf("["+level+"] "+format, args...)
}

func (l *levelLogger) Errorf(format string, args ...interface{})   { l.logf("ERROR", format, args...) }
func (l *levelLogger) Warningf(format string, args ...interface{}) { l.logf("WARN", format, args...) }
func (l *levelLogger) Infof(format string, args ...interface{})    { l.logf("INFO", format, args...) }
func (l *levelLogger) Debugf(format string, args ...interface{})   { l.logf("DEBUG", format, args...) }

// infoLogger returns the underlying logger when INFO is enabled and a
// discarding one otherwise.
func (l *levelLogger) infoLogger() *log.Logger {
	if l.level.Enabled("INFO") {
		return l.out
	}
	return log.New(io.Discard, "", 0)
}
