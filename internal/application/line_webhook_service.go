package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"flight-assistant/internal/domain"
	"flight-assistant/internal/ports/input"
	"flight-assistant/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure LineWebhookService implements the input port
var _ input.LineWebhookService = (*LineWebhookService)(nil)

const (
	// maxLineMessageLength is the LINE text message limit
	maxLineMessageLength = 5000
	// maxMessagesPerResponse is the LINE limit of messages per reply
	maxMessagesPerResponse = 5
	// sentenceLookback is how far back a split searches for a sentence end
	sentenceLookback = 200

	helpText = "Tell me where and when you'd like to fly, for example:\n" +
		"\"SFO to Paris, Dec 1 to Dec 8, 2 people\"\n\n" +
		"After a search you can say \"cheaper\", \"direct only\" or \"2 days later\".\n\n" +
		"Commands:\n/help - Show this message\n/clear - Start a new search\n/about - About this bot"
	aboutText   = "Flight search assistant on LINE\nBuilt with Go + Fiber"
	clearedText = "Conversation history cleared."
	welcomeText = "Welcome! I can help you find flights.\n\n" + helpText
)

// LineWebhookService struct - Application service routing LINE chats into the turn engine
type LineWebhookService struct {
	lineClient output.LineClient
	turns      input.TurnService
	// sessions maps a LINE user id to its current session id
	sessions sync.Map
}

// NewLineWebhookService func - Creates new LINE webhook service
func NewLineWebhookService(lineClient output.LineClient, turns input.TurnService) *LineWebhookService {
	return &LineWebhookService{
		lineClient: lineClient,
		turns:      turns,
	}
}

// HandleWebhook func - Use case: Handle incoming webhook events from LINE
func (s *LineWebhookService) HandleWebhook(ctx context.Context, request domain.LineWebhookRequest) error {
	for _, event := range request.Events {
		logrus.Infof("Received LINE event: type=%s, userID=%s", event.Type, event.UserID)

		switch event.Type {
		case domain.LineEventTypeMessage:
			if err := s.handleMessageEvent(ctx, event); err != nil {
				logrus.Errorf("Failed to handle message event: %v", err)
				return err
			}

		case domain.LineEventTypeFollow:
			if err := s.handleFollowEvent(event); err != nil {
				logrus.Errorf("Failed to handle follow event: %v", err)
				return err
			}

		case domain.LineEventTypeUnfollow:
			s.handleUnfollowEvent(ctx, event)

		default:
			logrus.Infof("Unhandled event type: %s", event.Type)
		}
	}

	return nil
}

// handleMessageEvent - Runs a text message through the turn engine and replies
func (s *LineWebhookService) handleMessageEvent(ctx context.Context, event domain.LineWebhookEvent) error {
	if event.Message == nil {
		return nil
	}

	if event.Message.Type != domain.LineMessageTypeText {
		logrus.Infof("Ignoring non-text message: type=%s", event.Message.Type)
		return s.send(event, []string{"I can only read text messages. " + helpText}, nil)
	}

	text := strings.TrimSpace(event.Message.Text)
	if strings.HasPrefix(text, "/") {
		return s.send(event, []string{s.handleCommand(ctx, text, event.UserID)}, nil)
	}

	resp, err := s.turns.HandleTurn(ctx, domain.TurnRequest{
		SessionID:    s.sessionFor(event.UserID),
		Message:      text,
		ClientOrigin: "line:" + event.UserID,
	})
	if err != nil {
		// Details are logged and reported by the turn engine
		return s.send(event, []string{domain.TechnicalDifficultyMessage}, nil)
	}

	if resp.SessionID != "" {
		s.sessions.Store(event.UserID, resp.SessionID)
	}

	var suggestions []string
	if resp.Clarification != nil {
		suggestions = resp.Clarification.Suggestions
	}
	return s.send(event, s.splitResponse(resp.AssistantText), suggestions)
}

// handleCommand - Slash commands handled without the turn engine
func (s *LineWebhookService) handleCommand(ctx context.Context, text, userID string) string {
	parts := strings.Fields(text)
	command := strings.ToLower(parts[0])

	switch command {
	case "/help":
		return helpText

	case "/about":
		return aboutText

	case "/clear", "/new":
		if id := s.sessionFor(userID); id != "" {
			if err := s.turns.ResetSession(ctx, id); err != nil {
				logrus.Errorf("Failed to reset session for userID=%s: %v", userID, err)
				return domain.TechnicalDifficultyMessage
			}
		}
		s.sessions.Delete(userID)
		return clearedText

	default:
		return fmt.Sprintf("Unknown command: %s\nType /help for available commands", command)
	}
}

// send replies with the first message and pushes the rest. Quick replies go on the last message.
func (s *LineWebhookService) send(event domain.LineWebhookEvent, texts []string, quickReplies []string) error {
	if len(texts) == 0 {
		return nil
	}

	messages := make([]domain.LineOutgoingMessage, len(texts))
	for i, text := range texts {
		messages[i] = domain.LineOutgoingMessage{Type: domain.LineMessageTypeText, Text: text}
	}
	messages[len(messages)-1].QuickReplies = quickReplies

	if event.ReplyToken != "" {
		replyReq := domain.LineReplyMessageRequest{
			ReplyToken: event.ReplyToken,
			Messages:   messages[:1],
		}
		if _, err := s.lineClient.ReplyMessage(replyReq); err != nil {
			return fmt.Errorf("failed to send reply: %w", err)
		}
		messages = messages[1:]
	}

	// The reply token is single use, remaining messages are pushed
	for _, msg := range messages {
		pushReq := domain.LinePushMessageRequest{
			To:       event.UserID,
			Messages: []domain.LineOutgoingMessage{msg},
		}
		if _, err := s.lineClient.PushMessage(pushReq); err != nil {
			return fmt.Errorf("failed to push message: %w", err)
		}
	}

	return nil
}

// splitResponse splits text into LINE-sized messages, preferring sentence boundaries
func (s *LineWebhookService) splitResponse(text string) []string {
	if utf8.RuneCountInString(text) <= maxLineMessageLength {
		return []string{text}
	}

	runes := []rune(text)
	var parts []string
	for len(runes) > 0 && len(parts) < maxMessagesPerResponse {
		if len(runes) <= maxLineMessageLength {
			parts = append(parts, string(runes))
			break
		}

		cut := maxLineMessageLength
		for i := maxLineMessageLength - 1; i >= maxLineMessageLength-sentenceLookback; i-- {
			if r := runes[i]; r == '.' || r == '!' || r == '?' || r == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	return parts
}

func (s *LineWebhookService) sessionFor(userID string) string {
	if id, ok := s.sessions.Load(userID); ok {
		return id.(string)
	}
	return ""
}

// handleFollowEvent - Sends the welcome message
func (s *LineWebhookService) handleFollowEvent(event domain.LineWebhookEvent) error {
	logrus.Infof("User followed: userID=%s", event.UserID)

	welcomeMsg := domain.LinePushMessageRequest{
		To: event.UserID,
		Messages: []domain.LineOutgoingMessage{
			{
				Type: domain.LineMessageTypeText,
				Text: welcomeText,
			},
		},
	}

	if _, err := s.lineClient.PushMessage(welcomeMsg); err != nil {
		return fmt.Errorf("failed to send welcome message: %w", err)
	}

	return nil
}

// handleUnfollowEvent - Drops the user's session
func (s *LineWebhookService) handleUnfollowEvent(ctx context.Context, event domain.LineWebhookEvent) {
	logrus.Infof("User unfollowed: userID=%s", event.UserID)
	if id := s.sessionFor(event.UserID); id != "" {
		if err := s.turns.ResetSession(ctx, id); err != nil {
			logrus.Warnf("Failed to reset session for userID=%s: %v", event.UserID, err)
		}
		s.sessions.Delete(event.UserID)
	}
}
