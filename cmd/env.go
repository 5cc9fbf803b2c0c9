package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/docs"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/internal/workflow"
	"github.com/sells-group/outreach-cli/pkg/airtable"
	"github.com/sells-group/outreach-cli/pkg/clickup"
	"github.com/sells-group/outreach-cli/pkg/perplexity"
	"github.com/sells-group/outreach-cli/pkg/slack"
)

// Env wires every collaborator the commands need.
type Env struct {
	Store     store.Store
	LLM       perplexity.Client
	Records   airtable.Client
	Tracker   clickup.Client
	Notifier  slack.Notifier
	Extractor docs.Extractor
	Runner    *workflow.Runner
}

// initEnv builds the full dependency graph from config.
func initEnv(ctx context.Context) (*Env, error) {
	if cfg.Perplexity.Key == "" {
		return nil, eris.New("perplexity.key is required")
	}
	if cfg.Airtable.Key == "" || cfg.Airtable.BaseID == "" {
		return nil, eris.New("airtable.key and airtable.base_id are required")
	}

	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open run store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate run store")
	}

	llm := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model),
	)

	retry := resilience.DefaultRetryConfig()
	if cfg.Workflow.RetryMaxAttempts > 0 {
		retry.MaxAttempts = cfg.Workflow.RetryMaxAttempts
	}
	if cfg.Workflow.RetryBaseDelay > 0 {
		retry.InitialBackoff = cfg.Workflow.RetryBaseDelay
	}
	retry.ShouldRetry = workflow.Retryable
	retry.OnRetry = resilience.RetryLogger("perplexity", "complete")

	gate := workflow.NewGate(cfg.Workflow.Concurrency)
	runner := workflow.NewRunner(llm, gate,
		workflow.WithRetryConfig(retry),
		workflow.WithTestRunLimit(cfg.Workflow.TestRunLimit),
	)

	return &Env{
		Store:     st,
		LLM:       llm,
		Records:   airtable.NewClient(cfg.Airtable.Key, cfg.Airtable.BaseID, cfg.Airtable.Table),
		Tracker:   clickup.NewClient(cfg.ClickUp.Token),
		Notifier:  slack.NewNotifier(cfg.Slack.WebhookURL),
		Extractor: docs.NewExtractor(cfg.Uploads.Dir),
		Runner:    runner,
	}, nil
}

// Close releases Env resources.
func (e *Env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}
