package model

// Stage identifies one of the three generated pitch fragments.
type Stage int

const (
	StagePitchMatch Stage = iota
	StagePitchProduct
	StagePitchCTA
)

// Stages lists all pipeline stages in execution order.
var Stages = []Stage{StagePitchMatch, StagePitchProduct, StagePitchCTA}

// stageFields maps each stage to its record-store field names. The text and
// prompt columns are written as a pair: a generated fragment is never
// persisted without the prompt that produced it.
var stageFields = map[Stage]struct {
	text   string
	prompt string
}{
	StagePitchMatch:   {"pitch-match", "pitch-match-prompt"},
	StagePitchProduct: {"pitch-product", "pitch-product-prompt"},
	StagePitchCTA:     {"pitch-cta", "pitch-cta-prompt"},
}

// TextField returns the record-store column holding the generated text.
func (s Stage) TextField() string {
	return stageFields[s].text
}

// PromptField returns the record-store column holding the prompt used to
// generate the text.
func (s Stage) PromptField() string {
	return stageFields[s].prompt
}

func (s Stage) String() string {
	return stageFields[s].text
}

// ParseStage resolves a stage from its text-field name ("pitch-match",
// "pitch-product", "pitch-cta"). The second return is false for unknown names.
func ParseStage(name string) (Stage, bool) {
	for st, f := range stageFields {
		if f.text == name {
			return st, true
		}
	}
	return 0, false
}
