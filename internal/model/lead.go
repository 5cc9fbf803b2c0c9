package model

import (
	"fmt"
	"strings"
	"time"
)

// LeadStatus tracks a lead record through the outreach workflow.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusProcessed LeadStatus = "processed"
)

// Record-store field names for lead records.
const (
	FieldFullName      = "full name"
	FieldFirstName     = "First Name"
	FieldEmail         = "Final email"
	FieldCompany       = "Company name"
	FieldTitle         = "Title"
	FieldWebsite       = "Website"
	FieldStatus        = "status"
	FieldClientID      = "client id"
	FieldClientSlack   = "client slack"
	FieldOnboardingDoc = "client onboarding doc"
	FieldTaskID        = "clickup task id"
)

// Defaults substituted for missing lead-list columns so prompt construction
// always has something to work with.
const (
	placeholderName    = "Missing Name"
	placeholderFirst   = "Unknown"
	placeholderEmail   = "no-email@placeholder.com"
	placeholderCompany = "Unknown Company"
	placeholderTitle   = "No Title"
	placeholderWebsite = "http://unknown.com"
)

// Lead is a prospective contact, the typed view of one record-store row.
type Lead struct {
	RecordID  string `json:"record_id,omitempty"`
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Company   string `json:"company"`
	Title     string `json:"title"`
	Website   string `json:"website"`

	Status        LeadStatus `json:"status"`
	ClientID      string     `json:"client_id"`
	ClientSlack   string     `json:"client_slack,omitempty"`
	OnboardingDoc string     `json:"onboarding_doc,omitempty"`
	TaskID        string     `json:"task_id,omitempty"`

	PitchMatch   string `json:"pitch_match,omitempty"`
	PitchProduct string `json:"pitch_product,omitempty"`
	PitchCTA     string `json:"pitch_cta,omitempty"`

	PitchMatchPrompt   string `json:"pitch_match_prompt,omitempty"`
	PitchProductPrompt string `json:"pitch_product_prompt,omitempty"`
	PitchCTAPrompt     string `json:"pitch_cta_prompt,omitempty"`
}

// ClientMeta carries the per-client metadata stamped onto every ingested lead.
type ClientMeta struct {
	ClientID      string
	Slack         string
	OnboardingDoc string
	TaskID        string
}

// LeadFromRow builds a Lead from one parsed lead-list row, substituting
// placeholders for missing columns. It never fails: a sparse row yields a
// lead with placeholder fields, not an error.
func LeadFromRow(row map[string]string, meta ClientMeta) Lead {
	pick := func(key, fallback string) string {
		if v := strings.TrimSpace(row[key]); v != "" {
			return v
		}
		return fallback
	}

	return Lead{
		FullName:      pick(FieldFullName, placeholderName),
		FirstName:     pick(FieldFirstName, placeholderFirst),
		Email:         pick(FieldEmail, placeholderEmail),
		Company:       pick(FieldCompany, placeholderCompany),
		Title:         pick(FieldTitle, placeholderTitle),
		Website:       pick(FieldWebsite, placeholderWebsite),
		Status:        LeadStatusNew,
		ClientID:      meta.ClientID,
		ClientSlack:   meta.Slack,
		OnboardingDoc: meta.OnboardingDoc,
		TaskID:        meta.TaskID,
	}
}

// LeadFromFields builds a Lead from a record-store fields map. Empty pitch
// and prompt columns stay empty; identity fields fall back to placeholders.
func LeadFromFields(recordID string, fields map[string]any) Lead {
	str := func(key string) string {
		v, _ := fields[key].(string)
		return strings.TrimSpace(v)
	}
	pick := func(key, fallback string) string {
		if v := str(key); v != "" {
			return v
		}
		return fallback
	}

	return Lead{
		RecordID:      recordID,
		FullName:      pick(FieldFullName, placeholderName),
		FirstName:     pick(FieldFirstName, placeholderFirst),
		Email:         pick(FieldEmail, placeholderEmail),
		Company:       pick(FieldCompany, placeholderCompany),
		Title:         pick(FieldTitle, placeholderTitle),
		Website:       pick(FieldWebsite, placeholderWebsite),
		Status:        LeadStatus(str(FieldStatus)),
		ClientID:      str(FieldClientID),
		ClientSlack:   str(FieldClientSlack),
		OnboardingDoc: str(FieldOnboardingDoc),
		TaskID:        str(FieldTaskID),

		PitchMatch:   str(StagePitchMatch.TextField()),
		PitchProduct: str(StagePitchProduct.TextField()),
		PitchCTA:     str(StagePitchCTA.TextField()),

		PitchMatchPrompt:   str(StagePitchMatch.PromptField()),
		PitchProductPrompt: str(StagePitchProduct.PromptField()),
		PitchCTAPrompt:     str(StagePitchCTA.PromptField()),
	}
}

// CreateFields returns the fields map for creating this lead in the record
// store. Generated text and prompt columns are omitted: they are written only
// by the workflow, as a pair.
func (l Lead) CreateFields() map[string]any {
	return map[string]any{
		FieldFullName:      l.FullName,
		FieldFirstName:     l.FirstName,
		FieldEmail:         l.Email,
		FieldCompany:       l.Company,
		FieldTitle:         l.Title,
		FieldWebsite:       l.Website,
		FieldStatus:        string(l.Status),
		FieldClientID:      l.ClientID,
		FieldClientSlack:   l.ClientSlack,
		FieldOnboardingDoc: l.OnboardingDoc,
		FieldTaskID:        l.TaskID,
	}
}

// SavedPrompt returns the stored prompt for a stage, or "" when none exists.
func (l Lead) SavedPrompt(stage Stage) string {
	switch stage {
	case StagePitchMatch:
		return l.PitchMatchPrompt
	case StagePitchProduct:
		return l.PitchProductPrompt
	case StagePitchCTA:
		return l.PitchCTAPrompt
	}
	return ""
}

// Key returns a stable identifier for logging: record id when present,
// otherwise the email.
func (l Lead) Key() string {
	if l.RecordID != "" {
		return l.RecordID
	}
	return l.Email
}

// RunStatus represents the state of one workflow run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one execution of the outreach workflow for a tracker task.
type Run struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	ClientID  string    `json:"client_id"`
	Status    RunStatus `json:"status"`
	Leads     int       `json:"leads"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	TestRun   bool      `json:"test_run"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary renders a one-line description for CLI output.
func (r Run) Summary() string {
	return fmt.Sprintf("%s  task=%s client=%s status=%s leads=%d ok=%d failed=%d",
		r.CreatedAt.Format(time.RFC3339), r.TaskID, r.ClientID, r.Status, r.Leads, r.Succeeded, r.Failed)
}
