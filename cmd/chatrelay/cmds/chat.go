package cmds

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatrelay/pkg/chat"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Hold an interactive conversation in the terminal",
	Long: `chat opens (or resumes) a session and streams replies to stdout as they
are generated. Inside the loop, "/new" starts a fresh session, "/sessions"
lists stored ones, "/load <id>" resumes one and "/quit" exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer func() {
			_ = rt.close()
		}()

		ctx := cmd.Context()
		sess, err := rt.manager.Open(ctx, chatSessionID)
		if err != nil {
			return err
		}
		fmt.Printf("session: %s\n", sess.ID)

		sink := chat.SinkFunc(func(e chat.Event) error {
			switch e.Type {
			case chat.EventStreamChunk:
				fmt.Print(e.Content)
			case chat.EventStreamComplete:
				fmt.Println()
			case chat.EventError:
				fmt.Fprintln(os.Stderr, "error: "+e.Content)
			}
			return nil
		})

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			switch {
			case line == "/quit":
				return nil
			case line == "/new":
				sess, err = rt.manager.NewSession(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("session: %s\n", sess.ID)
			case line == "/sessions":
				for _, id := range rt.manager.ListSessions(ctx) {
					fmt.Println(id)
				}
			case strings.HasPrefix(line, "/load "):
				id := strings.TrimSpace(strings.TrimPrefix(line, "/load "))
				sess, err = rt.manager.LoadSession(ctx, id, sess)
				if err != nil {
					return err
				}
				fmt.Printf("session: %s\n", sess.ID)
				for _, m := range sess.Turns() {
					fmt.Printf("[%s] %s\n", m.Role, m.Content)
				}
			default:
				if err := rt.controller.Send(ctx, sess, line, sink); err != nil {
					log.Warn().Err(err).Str("session_id", sess.ID).Msg("turn failed")
				}
			}
		}
		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "existing session id to resume")
	rootCmd.AddCommand(chatCmd)
}
