// Command finagent is an interactive financial analysis assistant. The model
// answers questions by calling market data and analysis functions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skosovsky/finagent"
	"github.com/skosovsky/finagent/agent"
	"github.com/skosovsky/finagent/finance"
	"github.com/skosovsky/finagent/fmp"
	"github.com/skosovsky/finagent/internal/config"
	"github.com/skosovsky/finagent/llm/openai"
	"github.com/skosovsky/finagent/observe"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitLoopBound = 2
)

// maxArgsSize bounds the argument JSON the model may send to a single function.
const maxArgsSize = 64 << 10

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to an optional YAML configuration file")
	query := flag.String("q", "", "answer a single query and exit")
	maxIterations := flag.Int("max-iterations", 0, "override agent.max_iterations")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "finagent: %v\n", err)
		return exitFailure
	}
	if *maxIterations != 0 {
		cfg.Agent.MaxIterations = *maxIterations
	}
	config.ApplyEnv(cfg, os.LookupEnv)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "finagent: %v\n", err)
		return exitFailure
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel.Level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, reg, err := build(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		return exitFailure
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := reg.Shutdown(shutdownCtx); err != nil {
			logger.Warn("registry shutdown", "err", err)
		}
	}()

	if *query != "" {
		res, err := a.Run(ctx, *query)
		if err != nil {
			logger.Error("query failed", "err", err)
			return exitCode(err)
		}
		fmt.Fprintln(os.Stdout, res.Answer)
		return exitOK
	}

	if err := repl(ctx, os.Stdin, os.Stdout, a, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("session ended", "err", err)
		return exitFailure
	}
	return exitOK
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// build wires the data client, model provider, tool registry and agent.
func build(cfg *config.Config, logger *slog.Logger) (*agent.Agent, *finagent.Registry, error) {
	fmpOpts := []fmp.Option{fmp.WithTimeout(cfg.FMP.Timeout)}
	if cfg.FMP.BaseURL != "" {
		fmpOpts = append(fmpOpts, fmp.WithBaseURL(cfg.FMP.BaseURL))
	}
	data, err := fmp.New(cfg.FMP.APIKey, fmpOpts...)
	if err != nil {
		return nil, nil, err
	}

	llmOpts := []openai.Option{openai.WithTimeout(cfg.LLM.Timeout)}
	if cfg.LLM.BaseURL != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(cfg.LLM.BaseURL))
	}
	provider, err := openai.New(cfg.LLM.APIKey, cfg.LLM.Model, llmOpts...)
	if err != nil {
		return nil, nil, err
	}

	metrics := observe.DefaultMetrics()
	reg := finagent.NewRegistry(
		finagent.WithDefaultTimeout(cfg.Registry.DefaultTimeout),
		finagent.WithMaxConcurrency(cfg.Registry.MaxConcurrency),
		finagent.WithRecoverPanics(true),
		finagent.WithOnAfterExecute(metrics.ToolHook()),
	)
	if err := reg.Use(finagent.WithLogging(logger), finagent.WithMaxArgsSize(maxArgsSize)); err != nil {
		return nil, nil, err
	}
	if err := finance.Register(reg, data, provider, finance.WithLogger(logger)); err != nil {
		return nil, nil, err
	}

	opts := []agent.Option{
		agent.WithMaxIterations(cfg.Agent.MaxIterations),
		agent.WithTemperature(cfg.Agent.Temperature),
		agent.WithLogger(logger),
		agent.WithMetrics(metrics),
	}
	if cfg.Agent.SystemPrompt != "" {
		opts = append(opts, agent.WithSystemPrompt(cfg.Agent.SystemPrompt))
	}
	a, err := agent.New(provider, reg, opts...)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("finagent ready", "model", provider.Model(), "tools", len(a.Tools()), "max_iterations", a.MaxIterations())
	return a, reg, nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, agent.ErrLoopBoundExceeded):
		return exitLoopBound
	default:
		return exitFailure
	}
}
