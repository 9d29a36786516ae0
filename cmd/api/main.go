package main

// @title Flight Assistant API
// @version 1.0
// @description Conversational flight search: one chat turn per request.

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
// @schemes http
import (
	"os"

	_ "flight-assistant/docs"
	protocol "flight-assistant/protocal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logrus.Errorln(err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var env string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and LINE webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return protocol.ServeHTTP(env)
		},
	}

	chat := &cobra.Command{
		Use:     "chat",
		Short:   "Talk to the assistant in the terminal",
		Long:    "Run an interactive conversation against an in-memory session store. Search and extraction providers come from config.",
		Example: "  flight-assistant chat --env development",
		RunE: func(cmd *cobra.Command, args []string) error {
			return protocol.RunChat(env)
		},
	}

	root := &cobra.Command{
		Use:           "flight-assistant",
		Short:         "Conversational flight search assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&env, "env", "", "the environment to use")
	root.AddCommand(serve, chat)

	return root
}
