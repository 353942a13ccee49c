package cmds

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and repair stored sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions holding more than the system message",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer func() {
			_ = rt.close()
		}()
		for _, id := range rt.manager.ListSessions(cmd.Context()) {
			fmt.Println(id)
		}
		return nil
	},
}

var sessionsRepairCmd = &cobra.Command{
	Use:   "repair <session-id>",
	Short: "Delete a corrupted session's rows and reseed the system message",
	Long: `repair drops every stored row of the session and reseeds it with a fresh
system message. The conversation history is lost; this exists to recover
sessions whose rows no longer decode.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer func() {
			_ = rt.close()
		}()
		sess, err := rt.manager.Repair(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		log.Info().Str("session_id", sess.ID).Msg("session repaired")
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsRepairCmd)
	rootCmd.AddCommand(sessionsCmd)
}
