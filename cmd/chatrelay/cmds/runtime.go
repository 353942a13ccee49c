package cmds

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/go-go-golems/chatrelay/pkg/chat"
	"github.com/go-go-golems/chatrelay/pkg/inference"
	"github.com/go-go-golems/chatrelay/pkg/store"
)

// runtime bundles the wired conversation core shared by the serve, chat and
// sessions commands.
type runtime struct {
	manager    *chat.Manager
	controller *chat.Controller
	close      func() error
}

// buildRuntime resolves configuration once and injects the store and engine
// into the core as explicit dependencies.
func buildRuntime() (*runtime, error) {
	promptText, err := os.ReadFile(viper.GetString("system-prompt"))
	if err != nil {
		return nil, errors.Wrap(err, "read system prompt")
	}

	var st chat.MessageStore
	closeFn := func() error { return nil }
	switch driver := viper.GetString("store-driver"); driver {
	case "memory":
		st = store.NewMemoryStore()
	case "sqlite3", "postgres":
		s, err := store.NewSQLStore(driver, viper.GetString("store-dsn"))
		if err != nil {
			return nil, err
		}
		st = s
		closeFn = s.Close
	default:
		return nil, errors.Errorf("unknown store driver %q", driver)
	}

	var engine chat.Engine
	if viper.GetBool("offline") {
		engine = &inference.EchoEngine{}
	} else {
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			_ = closeFn()
			return nil, errors.New("OPENAI_API_KEY is not set (use --offline to run without the hosted API)")
		}
		engine = inference.NewOpenAIEngine(apiKey, viper.GetString("model"), viper.GetString("openai-base-url"))
	}

	manager := chat.NewManager(st, string(promptText),
		chat.WithSessionLabel(viper.GetString("session-label")))
	return &runtime{
		manager:    manager,
		controller: chat.NewController(st, engine),
		close:      closeFn,
	}, nil
}
