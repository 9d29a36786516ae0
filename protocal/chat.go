package protocal

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"flight-assistant/configs"
	"flight-assistant/internal/domain"

	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"
)

const chatOrigin = "cli"

// RunChat func - Interactive terminal conversation against a local, in-memory engine
func RunChat(env string) error {
	configs.InitViper("./configs", env)
	cfg := *configs.GetViper()
	cfg.Session.Store = "memory"
	cfg.Line.Enabled = false
	setLogLevel(cfg.App.Debug)
	if !cfg.App.Debug {
		logrus.SetLevel(logrus.WarnLevel)
	}

	ctx := context.Background()
	container, err := NewContainer(ctx, &cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".flight-assistant_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	fmt.Fprintln(out, "Where would you like to fly? (/clear starts over, exit quits)")

	sessionID := ""
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Fprintln(out, "Goodbye!")
				return nil
			}
			return err
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case "/clear", "/new":
			if sessionID != "" {
				if err := container.Turns.ResetSession(ctx, sessionID); err != nil {
					fmt.Fprintf(out, "assistant> %s\n", domain.TechnicalDifficultyMessage)
					continue
				}
			}
			sessionID = ""
			fmt.Fprintln(out, "assistant> Conversation history cleared.")
			continue
		}

		resp, err := container.Turns.HandleTurn(ctx, domain.TurnRequest{
			SessionID:    sessionID,
			Message:      input,
			ClientOrigin: chatOrigin,
		})
		if err != nil {
			fmt.Fprintf(out, "assistant> %s\n", domain.TechnicalDifficultyMessage)
			continue
		}
		if resp.SessionID != "" {
			sessionID = resp.SessionID
		}
		fmt.Fprintln(out, formatTurn(resp))
	}
}

func formatTurn(resp *domain.TurnResponse) string {
	var b strings.Builder
	b.WriteString("assistant> ")
	b.WriteString(resp.AssistantText)
	if resp.Clarification != nil && len(resp.Clarification.Suggestions) > 0 {
		b.WriteString("\n  [")
		b.WriteString(strings.Join(resp.Clarification.Suggestions, " | "))
		b.WriteString("]")
	}
	b.WriteString("\n")
	return b.String()
}
