package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var eventsLimit int

var offersCmd = &cobra.Command{
	Use:   "offers",
	Short: "Print company offer records as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		offers, err := st.ListOffers(ctx)
		if err != nil {
			return eris.Wrap(err, "list offers")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(offers)
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print recent change events as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		events, err := st.ListEvents(ctx, eventsLimit)
		if err != nil {
			return eris.Wrap(err, "list events")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	},
}

func init() {
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "maximum events to print")
	rootCmd.AddCommand(offersCmd)
	rootCmd.AddCommand(eventsCmd)
}
