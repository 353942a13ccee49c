package cmds

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/chatrelay/pkg/webchat"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat relay over HTTP (polling, SSE and websocket)",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer func() {
			_ = rt.close()
		}()

		router, err := webchat.NewRouter(webchat.Config{
			Manager:    rt.manager,
			Controller: rt.controller,
		})
		if err != nil {
			return err
		}

		addr := viper.GetString("addr")
		srv := &http.Server{Addr: addr, Handler: router}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			log.Info().Str("addr", addr).Msg("chatrelay listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "http server")
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			log.Info().Msg("shutting down")
			return srv.Shutdown(shutdownCtx)
		})
		return eg.Wait()
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	cobra.CheckErr(viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr")))
	rootCmd.AddCommand(serveCmd)
}
