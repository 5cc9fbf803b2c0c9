// Package prompt builds the per-stage provider prompts for pitch generation.
//
// Constructors are pure: no I/O, no failure modes. Missing lead fields fall
// back to short placeholders so a sparse record still yields a usable prompt.
// When saved-prompt mode is on and the lead already carries a stored prompt
// for the stage, that prompt is returned verbatim; this is how a reviewer's
// inline prompt edit takes effect on the next regeneration.
package prompt

import (
	"fmt"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Built is a realized prompt for one stage: the user prompt actually sent to
// the provider, the system instruction, and whether the prompt came from the
// record's saved copy rather than the template.
type Built struct {
	Prompt string
	System string
	Saved  bool
}

const (
	matchSystem = "You are an AI copywriter that analyzes business websites. " +
		"Given a company website, write natural-sounding outreach copy grounded in what the business actually does. " +
		"Output only the requested pitch text with no formatting, labels, or commentary."

	productSystem = "You are an AI copywriter drafting first-person outreach on behalf of a client. " +
		"Write in a neutral, factual tone. Avoid superlatives and marketing language. " +
		"Output only the requested pitch text with no formatting, labels, or commentary."

	ctaSystem = "You are an AI copywriter closing an outreach email. " +
		"Output only the requested call-to-action with no formatting, labels, or commentary."
)

// Match builds the stage-1 prompt: a short personalized opener referencing
// the lead's own website.
func Match(lead model.Lead, useSaved bool) Built {
	if useSaved {
		if saved := strings.TrimSpace(lead.SavedPrompt(model.StagePitchMatch)); saved != "" {
			return Built{Prompt: saved, System: matchSystem, Saved: true}
		}
	}

	p := fmt.Sprintf(`Look at the website %s. Write a natural-sounding opening line of at most 45 words for a cold email to %s following this template: "I came across [company] and was impressed by [something specific the site shows about their customers or the problem they solve]." Fill the placeholders from your own knowledge of the site. Do not use any formatting and do not output anything except the pitch text itself.`,
		orUnknown(lead.Website), orUnknown(lead.Company))

	return Built{Prompt: p, System: matchSystem}
}

// Product builds the stage-2 prompt: the client's product pitch, grounded in
// the client onboarding text. senderContext describes the outreach sender's
// business, not the lead's.
func Product(lead model.Lead, senderContext string, useSaved bool) Built {
	if useSaved {
		if saved := strings.TrimSpace(lead.SavedPrompt(model.StagePitchProduct)); saved != "" {
			return Built{Prompt: saved, System: productSystem, Saved: true}
		}
	}

	context := strings.TrimSpace(senderContext)
	if context == "" {
		context = "No product description available."
	}

	p := fmt.Sprintf(`Here is a description of the product offered by %s:

%s

Write a first-person pitch of at most 100 words, from the perspective of %s, explaining how this product benefits the business behind %s. State the benefit plainly and factually. Do not use superlatives or marketing language. Do not use any formatting and do not output anything except the pitch text itself.`,
		orUnknown(lead.ClientID), context, orUnknown(lead.ClientID), orUnknown(lead.Website))

	return Built{Prompt: p, System: productSystem}
}

// CTA builds the stage-3 prompt: a short call-to-action that embeds the two
// earlier fragments so the close matches what was already said.
func CTA(lead model.Lead, matchText, productText string, useSaved bool) Built {
	if useSaved {
		if saved := strings.TrimSpace(lead.SavedPrompt(model.StagePitchCTA)); saved != "" {
			return Built{Prompt: saved, System: ctaSystem, Saved: true}
		}
	}

	p := fmt.Sprintf(`An outreach email to %s opens with:

%s

and pitches:

%s

Write a closing call-to-action of at most 20 words that proposes one concrete next step (a call, demo, or meeting). Do not be pushy. Output a single statement with no extra framing.`,
		orUnknown(lead.FirstName), orUnknown(matchText), orUnknown(productText))

	return Built{Prompt: p, System: ctaSystem}
}

// For constructs the prompt for any stage given the inputs it depends on.
// matchText and productText are only consulted for the CTA stage;
// senderContext only for the product stage.
func For(stage model.Stage, lead model.Lead, senderContext, matchText, productText string, useSaved bool) Built {
	switch stage {
	case model.StagePitchMatch:
		return Match(lead, useSaved)
	case model.StagePitchProduct:
		return Product(lead, senderContext, useSaved)
	default:
		return CTA(lead, matchText, productText, useSaved)
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
