package workflow

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/docs"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/airtable"
)

// RerunOne re-fetches a single record, resolves its client onboarding text,
// and runs the pipeline once in saved-prompt mode: any prompt the record
// already carries (including one a reviewer edited) is sent verbatim
// instead of being rebuilt from the template. The result is returned without
// persistence; the caller decides what to write back.
func (r *Runner) RerunOne(ctx context.Context, store airtable.Client, extractor docs.Extractor, recordID string) (model.PipelineResult, error) {
	rec, err := store.GetRecord(ctx, recordID)
	if err != nil {
		return model.PipelineResult{}, eris.Wrap(err, "workflow: rerun fetch record")
	}

	lead := model.LeadFromFields(rec.ID, rec.Fields)

	senderContext := ""
	if lead.OnboardingDoc != "" {
		senderContext, err = extractor.ExtractText(ctx, lead.OnboardingDoc)
		if err != nil {
			// A missing onboarding doc degrades the product stage but should
			// not block regeneration of the other fragments.
			zap.L().Warn("rerun: onboarding doc unavailable",
				zap.String("record", recordID),
				zap.String("doc", lead.OnboardingDoc),
				zap.Error(err),
			)
			senderContext = ""
		}
	}

	if err := r.gate.Acquire(ctx); err != nil {
		return model.PipelineResult{}, eris.Wrap(err, "workflow: rerun admission")
	}
	defer r.gate.Release()

	return r.runLead(ctx, lead, senderContext, true), nil
}
