package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var mailboxCmd = &cobra.Command{
	Use:   "mailbox",
	Short: "Process unread offer mail only, skipping the portal leg",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg.Pipeline.MailFetchEnabled = true
		env, err := initPipeline(ctx, "mailbox")
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Mailbox == nil {
			return eris.New("mailbox connection failed")
		}

		result, err := env.Orchestrator.RunMail(ctx)
		if err != nil {
			return eris.Wrap(err, "mailbox run")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(mailboxCmd)
}
