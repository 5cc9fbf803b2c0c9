package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/leads"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/reconcile"
	"github.com/sells-group/outreach-cli/internal/workflow"
	"github.com/sells-group/outreach-cli/pkg/airtable"
	"github.com/sells-group/outreach-cli/pkg/clickup"
)

// Tracker custom-field aliases; boards name these inconsistently.
var (
	clientFieldNames     = []string{"client", "client name", "client-name"}
	slackFieldNames      = []string{"slack", "client slack"}
	onboardingFieldNames = []string{"onboarding document", "client onboarding doc"}
	leadsFieldNames      = []string{"client-leads-list", "final approved list"}
)

var runTestRun bool

var runCmd = &cobra.Command{
	Use:   "run <task-id>",
	Short: "Run the AI workflow for one tracker task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return processTask(ctx, env, args[0], runTestRun)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runTestRun, "test-run", false, "cap the batch to the configured test-run limit")
	rootCmd.AddCommand(runCmd)
}

// processTask executes the full workflow for one tracker task: mark it
// processing, ingest its lead list, generate the three pitch fragments per
// lead, and write results back to the record store.
func processTask(ctx context.Context, env *Env, taskID string, testRun bool) error {
	log := zap.L().With(zap.String("task", taskID))

	if err := env.Tracker.UpdateTaskStatus(ctx, taskID, clickup.StatusAIProcessing); err != nil {
		log.Warn("failed to mark task processing", zap.Error(err))
	}

	task, err := env.Tracker.GetTask(ctx, taskID)
	if err != nil {
		return eris.Wrap(err, "fetch task")
	}

	clientName := task.CustomFieldValue(clientFieldNames...)
	if clientName == "" {
		return eris.Errorf("task %s has no client custom field", taskID)
	}
	meta := model.ClientMeta{
		ClientID:      clientName,
		Slack:         task.CustomFieldValue(slackFieldNames...),
		OnboardingDoc: task.CustomFieldValue(onboardingFieldNames...),
		TaskID:        taskID,
	}

	leadsPath := task.CustomFieldValue(leadsFieldNames...)
	if leadsPath == "" {
		leadsPath = clientUploadPath(clientName, "leads.csv")
	}

	run, err := env.Store.CreateRun(ctx, taskID, clientName, testRun)
	if err != nil {
		log.Warn("failed to record run", zap.Error(err))
	}
	finish := func(status model.RunStatus, total, failed int) {
		if run == nil {
			return
		}
		if err := env.Store.FinishRun(ctx, run.ID, status, total, total-failed, failed); err != nil {
			log.Warn("failed to finalize run record", zap.Error(err))
		}
	}

	rows, err := leads.ReadFile(resolveUpload(leadsPath))
	if err != nil {
		finish(model.RunStatusFailed, 0, 0)
		return eris.Wrap(err, "read lead list")
	}
	if len(rows) == 0 {
		finish(model.RunStatusFailed, 0, 0)
		return eris.Errorf("lead list %s is empty", leadsPath)
	}
	if limit := cfg.Airtable.WriteCap; limit > 0 && len(rows) > limit {
		log.Info("capping lead ingestion", zap.Int("rows", len(rows)), zap.Int("cap", limit))
		rows = rows[:limit]
	}

	batch := make([]model.Lead, len(rows))
	for i, row := range rows {
		batch[i] = model.LeadFromRow(row, meta)
	}

	created, err := createLeads(ctx, env.Records, batch)
	if err != nil {
		finish(model.RunStatusFailed, len(batch), len(batch))
		return eris.Wrap(err, "store leads")
	}
	for i := range batch {
		batch[i].RecordID = created[i].ID
	}
	log.Info("leads stored", zap.Int("count", len(created)))

	senderContext := ""
	if meta.OnboardingDoc != "" {
		senderContext, err = env.Extractor.ExtractText(ctx, meta.OnboardingDoc)
		if err != nil {
			log.Warn("onboarding doc unavailable", zap.String("doc", meta.OnboardingDoc), zap.Error(err))
			senderContext = ""
		}
	}

	results, err := env.Runner.RunBatch(ctx, workflow.BatchRequest{
		Leads:         batch,
		SenderContext: senderContext,
		TestRun:       testRun,
	})
	if err != nil {
		finish(model.RunStatusFailed, len(batch), len(batch))
		return eris.Wrap(err, "run batch")
	}

	failed := 0
	for _, res := range results {
		if res.Failed() {
			failed++
		}
	}

	persisted, err := reconcile.Persist(ctx, env.Records, reconcile.ResultUpdates(results))
	if err != nil {
		finish(model.RunStatusFailed, len(results), failed)
		return eris.Wrap(err, "persist results")
	}

	finish(model.RunStatusComplete, len(results), failed)
	log.Info("workflow complete",
		zap.Int("leads", len(results)),
		zap.Int("failed", failed),
		zap.Int("persisted", len(persisted)),
	)
	return nil
}

// createLeads stores new lead records in store-sized batches, sequentially so
// created ids line up with input order.
func createLeads(ctx context.Context, records airtable.Client, batch []model.Lead) ([]airtable.Record, error) {
	fields := make([]map[string]any, len(batch))
	for i, lead := range batch {
		fields[i] = lead.CreateFields()
	}

	var created []airtable.Record
	for start := 0; start < len(fields); start += airtable.MaxBatchSize {
		end := min(start+airtable.MaxBatchSize, len(fields))
		recs, err := records.CreateRecords(ctx, fields[start:end])
		if err != nil {
			return nil, eris.Wrapf(err, "create records %d-%d", start, end)
		}
		created = append(created, recs...)
	}
	if len(created) != len(batch) {
		return nil, eris.Errorf("store created %d of %d records", len(created), len(batch))
	}
	return created, nil
}

// clientUploadPath builds the conventional per-client upload location:
// client names are lowercased with spaces hyphenated.
func clientUploadPath(clientName, file string) string {
	formatted := strings.ToLower(strings.Join(strings.Fields(clientName), "-"))
	return formatted + "/" + file
}

// resolveUpload strips the URL-style uploads prefix and anchors the path
// under the configured uploads directory.
func resolveUpload(path string) string {
	cleaned := strings.TrimPrefix(strings.TrimPrefix(path, "/"), "uploads/")
	if cfg.Uploads.Dir == "" {
		return cleaned
	}
	return cfg.Uploads.Dir + "/" + cleaned
}
