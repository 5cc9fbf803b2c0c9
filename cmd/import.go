package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/leads"
	"github.com/sells-group/outreach-cli/internal/model"
)

var (
	importClientID   string
	importSlack      string
	importOnboarding string
	importTaskID     string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a lead list into the record store without generating pitches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		rows, err := leads.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read lead list")
		}
		if len(rows) == 0 {
			return eris.Errorf("lead list %s is empty", args[0])
		}
		if limit := cfg.Airtable.WriteCap; limit > 0 && len(rows) > limit {
			zap.L().Info("capping lead ingestion", zap.Int("rows", len(rows)), zap.Int("cap", limit))
			rows = rows[:limit]
		}

		meta := model.ClientMeta{
			ClientID:      importClientID,
			Slack:         importSlack,
			OnboardingDoc: importOnboarding,
			TaskID:        importTaskID,
		}
		batch := make([]model.Lead, len(rows))
		for i, row := range rows {
			batch[i] = model.LeadFromRow(row, meta)
		}

		created, err := createLeads(ctx, env.Records, batch)
		if err != nil {
			return eris.Wrap(err, "store leads")
		}

		zap.L().Info("leads imported",
			zap.String("file", args[0]),
			zap.Int("count", len(created)),
			zap.String("client", importClientID),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importClientID, "client", "", "client id to stamp on each record (required)")
	importCmd.Flags().StringVar(&importSlack, "slack", "", "client slack channel")
	importCmd.Flags().StringVar(&importOnboarding, "onboarding-doc", "", "path to the client onboarding document")
	importCmd.Flags().StringVar(&importTaskID, "task", "", "tracker task id to associate")
	_ = importCmd.MarkFlagRequired("client")
	rootCmd.AddCommand(importCmd)
}
