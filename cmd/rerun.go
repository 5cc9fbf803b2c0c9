package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/reconcile"
	"github.com/sells-group/outreach-cli/pkg/airtable"
)

var rerunDryRun bool

var rerunCmd = &cobra.Command{
	Use:   "rerun <record-id>",
	Short: "Regenerate pitch fragments for one record using its saved prompts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		recordID := args[0]
		result, err := env.Runner.RerunOne(ctx, env.Records, env.Extractor, recordID)
		if err != nil {
			return eris.Wrapf(err, "rerun record %s", recordID)
		}
		if result.Failed() {
			return eris.Errorf("generation failed for record %s", recordID)
		}

		if rerunDryRun {
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return eris.Wrap(err, "encode result")
			}
			cmd.Println(string(out))
			return nil
		}

		if _, err := reconcile.Persist(ctx, env.Records, []airtable.RecordUpdate{
			{ID: recordID, Fields: result.UpdateFields()},
		}); err != nil {
			return eris.Wrapf(err, "persist record %s", recordID)
		}

		zap.L().Info("record regenerated", zap.String("record", recordID))
		return nil
	},
}

func init() {
	rerunCmd.Flags().BoolVar(&rerunDryRun, "dry-run", false, "print the regenerated result without persisting")
	rootCmd.AddCommand(rerunCmd)
}
