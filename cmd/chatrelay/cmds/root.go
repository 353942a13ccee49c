package cmds

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "chatrelay",
	Short: "chatrelay relays chat turns between clients and a hosted LLM",
	Long: `chatrelay is a thin conversational-assistant service. It forwards user
messages to an OpenAI-compatible API, persists conversation turns in a
session-keyed message store (sqlite or postgres), and streams reply
fragments to HTTP polling, SSE, websocket or terminal front ends.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// reinitialize the logger now that --log-level has been parsed
		initLogger()
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/chatrelay/config.yaml)")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.String("store-driver", "sqlite3", "message store driver (sqlite3, postgres, memory)")
	pf.String("store-dsn", "chatrelay.db", "message store DSN (file path for sqlite3)")
	pf.String("model", "", "model identifier (default gpt-4o-mini)")
	pf.String("openai-base-url", "", "override the OpenAI-compatible API base URL")
	pf.String("system-prompt", "prompt.md", "file holding the system instruction text")
	pf.String("session-label", "Chat", "label prefixing generated session ids")
	pf.Bool("offline", false, "use the offline echo engine instead of the hosted API")

	for _, name := range []string{
		"log-level", "store-driver", "store-dsn", "model",
		"openai-base-url", "system-prompt", "session-label", "offline",
	} {
		cobra.CheckErr(viper.BindPFlag(name, pf.Lookup(name)))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(filepath.Join(home, ".config", "chatrelay"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CHATRELAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("loaded config file")
	}
}

func initLogger() {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.NewConsoleWriter()).
		With().
		Timestamp().
		Logger().
		Level(level)
}
