package model

// FailedText is the sentinel written in place of all three fragments when any
// stage of a lead's pipeline fails. The review UI shows it verbatim so a
// reviewer can spot and re-trigger the lead.
const FailedText = "Failed to generate summary"

// PipelineResult holds the three generated fragments for one lead together
// with the prompts that produced them.
type PipelineResult struct {
	RecordID string `json:"recordId"`

	PitchMatchSummary   string `json:"pitchMatchSummary"`
	PitchProductSummary string `json:"pitchProductSummary"`
	PitchCtaSummary     string `json:"pitchCtaSummary"`

	PitchMatchPrompt   string `json:"pitchMatchPrompt,omitempty"`
	PitchProductPrompt string `json:"pitchProductPrompt,omitempty"`
	PitchCtaPrompt     string `json:"pitchCtaPrompt,omitempty"`
}

// Failed reports whether this result carries the failure sentinel.
func (r PipelineResult) Failed() bool {
	return r.PitchMatchSummary == FailedText
}

// UpdateFields returns the record-store patch for this result. Text and
// prompt columns are emitted together; a failed result still writes the
// sentinel text (with no prompts) so the record is visibly broken rather
// than silently stale.
func (r PipelineResult) UpdateFields() map[string]any {
	fields := map[string]any{
		FieldStatus:                   string(LeadStatusProcessed),
		StagePitchMatch.TextField():   r.PitchMatchSummary,
		StagePitchProduct.TextField(): r.PitchProductSummary,
		StagePitchCTA.TextField():     r.PitchCtaSummary,
	}
	if r.PitchMatchPrompt != "" {
		fields[StagePitchMatch.PromptField()] = r.PitchMatchPrompt
	}
	if r.PitchProductPrompt != "" {
		fields[StagePitchProduct.PromptField()] = r.PitchProductPrompt
	}
	if r.PitchCtaPrompt != "" {
		fields[StagePitchCTA.PromptField()] = r.PitchCtaPrompt
	}
	return fields
}
