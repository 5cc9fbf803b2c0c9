// Package workflow orchestrates pitch generation: it fans leads out under a
// concurrency gate, chains the three dependent provider calls per lead, and
// absorbs per-lead failures so one bad lead never sinks a batch.
package workflow

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/prompt"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/perplexity"
)

// DefaultTestRunLimit caps a test-run batch when no limit is configured.
const DefaultTestRunLimit = 10

// ErrNoLeads is returned by RunBatch for an empty lead list.
var ErrNoLeads = eris.New("workflow: no leads to process")

// Completer is the one provider operation the workflow needs.
type Completer interface {
	Complete(ctx context.Context, prompt, system string) (string, error)
}

// BatchRequest is the input to RunBatch.
type BatchRequest struct {
	Leads []model.Lead

	// SenderContext is the client's onboarding/product text, consumed by the
	// product stage. It describes the outreach sender, not the leads.
	SenderContext string

	// TestRun truncates the batch to the configured limit before any
	// provider call, so an operator can validate wiring cheaply.
	TestRun bool
}

// Runner drives the per-lead pipeline over batches.
type Runner struct {
	llm          Completer
	gate         *Gate
	retry        resilience.RetryConfig
	testRunLimit int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRetryConfig overrides the provider retry configuration.
func WithRetryConfig(cfg resilience.RetryConfig) RunnerOption {
	return func(r *Runner) {
		r.retry = cfg
	}
}

// WithTestRunLimit overrides the test-run batch cap.
func WithTestRunLimit(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.testRunLimit = n
		}
	}
}

// NewRunner creates a Runner. The gate bounds concurrent provider calls and
// must be constructed by the caller.
func NewRunner(llm Completer, gate *Gate, opts ...RunnerOption) *Runner {
	r := &Runner{
		llm:          llm,
		gate:         gate,
		retry:        resilience.DefaultRetryConfig(),
		testRunLimit: DefaultTestRunLimit,
	}
	r.retry.ShouldRetry = Retryable
	r.retry.OnRetry = resilience.RetryLogger("perplexity", "complete")
	for _, o := range opts {
		o(r)
	}
	return r
}

// Retryable classifies provider failures: only transient HTTP statuses
// (throttling, 5xx) and network-level blips are worth another attempt.
// Malformed responses and other 4xx statuses fail immediately.
func Retryable(err error) bool {
	var he *perplexity.HTTPError
	if errors.As(err, &he) {
		return resilience.IsTransientHTTPStatus(he.StatusCode)
	}
	if errors.Is(err, perplexity.ErrEmptyResponse) || errors.Is(err, perplexity.ErrNoChoices) {
		return false
	}
	return resilience.IsTransient(err)
}

// RunBatch validates the request, applies the test-run cap, and drives every
// lead through the pipeline under the gate. Results preserve input order.
// Individual lead failures are absorbed into sentinel results; RunBatch only
// fails on invalid input.
func (r *Runner) RunBatch(ctx context.Context, req BatchRequest) ([]model.PipelineResult, error) {
	if len(req.Leads) == 0 {
		return nil, ErrNoLeads
	}

	leads := req.Leads
	if req.TestRun && len(leads) > r.testRunLimit {
		zap.L().Info("test run: truncating batch",
			zap.Int("leads", len(leads)),
			zap.Int("limit", r.testRunLimit),
		)
		leads = leads[:r.testRunLimit]
	}

	zap.L().Info("running batch",
		zap.Int("leads", len(leads)),
		zap.Int("concurrency", r.gate.Capacity()),
		zap.Bool("test_run", req.TestRun),
	)

	results := make([]model.PipelineResult, len(leads))
	g, gctx := errgroup.WithContext(ctx)

	for i, lead := range leads {
		i, lead := i, lead
		g.Go(func() error {
			if err := r.gate.Acquire(gctx); err != nil {
				results[i] = failedResult(lead)
				return nil
			}
			defer r.gate.Release()

			results[i] = r.runLead(gctx, lead, req.SenderContext, false)
			return nil
		})
	}

	// Worker funcs never return errors; Wait only synchronizes.
	_ = g.Wait()

	return results, nil
}

// runLead chains the three stages for one lead. Stages are sequential within
// a lead: the product stage needs the sender context, and the CTA stage
// consumes the two earlier outputs. Any stage failure collapses the lead to
// the failure sentinel; the error never escapes the per-lead boundary.
func (r *Runner) runLead(ctx context.Context, lead model.Lead, senderContext string, useSaved bool) model.PipelineResult {
	log := zap.L().With(zap.String("record", lead.Key()))

	matchPrompt := prompt.Match(lead, useSaved)
	matchText, err := r.complete(ctx, matchPrompt)
	if err != nil {
		log.Error("pitch-match stage failed", zap.Error(err))
		return failedResult(lead)
	}

	productPrompt := prompt.Product(lead, senderContext, useSaved)
	productText, err := r.complete(ctx, productPrompt)
	if err != nil {
		log.Error("pitch-product stage failed", zap.Error(err))
		return failedResult(lead)
	}

	ctaPrompt := prompt.CTA(lead, matchText, productText, useSaved)
	ctaText, err := r.complete(ctx, ctaPrompt)
	if err != nil {
		log.Error("pitch-cta stage failed", zap.Error(err))
		return failedResult(lead)
	}

	return model.PipelineResult{
		RecordID:            lead.RecordID,
		PitchMatchSummary:   matchText,
		PitchProductSummary: productText,
		PitchCtaSummary:     ctaText,
		PitchMatchPrompt:    matchPrompt.Prompt,
		PitchProductPrompt:  productPrompt.Prompt,
		PitchCtaPrompt:      ctaPrompt.Prompt,
	}
}

func (r *Runner) complete(ctx context.Context, p prompt.Built) (string, error) {
	return resilience.DoVal(ctx, r.retry, func(ctx context.Context) (string, error) {
		return r.llm.Complete(ctx, p.Prompt, p.System)
	})
}

// failedResult is the sentinel for a lead whose pipeline failed: all three
// texts carry the failure marker and no prompts are recorded, so the review
// UI shows the lead as broken rather than blank.
func failedResult(lead model.Lead) model.PipelineResult {
	return model.PipelineResult{
		RecordID:            lead.RecordID,
		PitchMatchSummary:   model.FailedText,
		PitchProductSummary: model.FailedText,
		PitchCtaSummary:     model.FailedText,
	}
}
