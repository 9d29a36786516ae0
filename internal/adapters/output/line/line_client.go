package line

import (
	"fmt"
	"unicode/utf8"

	"flight-assistant/internal/domain"
	"flight-assistant/internal/ports/output"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure LineClientAdapter implements LineClient interface
var _ output.LineClient = (*LineClientAdapter)(nil)

const (
	maxTextLength   = 5000
	maxQuickReplies = 13
	maxLabelLength  = 20
)

// LineClientAdapter struct - Output adapter for LINE messaging platform
type LineClientAdapter struct {
	client *messaging_api.MessagingApiAPI
}

// NewLineClientAdapter func - Creates new LINE client adapter
func NewLineClientAdapter(channelToken string, options ...messaging_api.MessagingApiAPIOption) (*LineClientAdapter, error) {
	client, err := messaging_api.NewMessagingApiAPI(channelToken, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE messaging API client: %w", err)
	}

	return &LineClientAdapter{
		client: client,
	}, nil
}

// ReplyMessage - Sends reply messages to LINE user via reply token
func (a *LineClientAdapter) ReplyMessage(request domain.LineReplyMessageRequest) (*domain.LineMessageResponse, error) {
	messages, err := a.buildMessages(request.Messages)
	if err != nil {
		return nil, err
	}

	req := &messaging_api.ReplyMessageRequest{
		ReplyToken: request.ReplyToken,
		Messages:   messages,
	}

	if _, err := a.client.ReplyMessage(req); err != nil {
		return nil, fmt.Errorf("failed to send reply message: %w", err)
	}

	logrus.Infof("Successfully sent reply message with token: %s", request.ReplyToken)

	return &domain.LineMessageResponse{
		Status:  "success",
		Message: "Reply message sent successfully",
	}, nil
}

// PushMessage - Sends push messages to LINE user directly
func (a *LineClientAdapter) PushMessage(request domain.LinePushMessageRequest) (*domain.LineMessageResponse, error) {
	messages, err := a.buildMessages(request.Messages)
	if err != nil {
		return nil, err
	}

	req := &messaging_api.PushMessageRequest{
		To:       request.To,
		Messages: messages,
	}

	if _, err := a.client.PushMessage(req, ""); err != nil {
		return nil, fmt.Errorf("failed to send push message: %w", err)
	}

	logrus.Infof("Successfully sent push message to: %s", request.To)

	return &domain.LineMessageResponse{
		Status:  "success",
		Message: "Push message sent successfully",
	}, nil
}

func (a *LineClientAdapter) buildMessages(outgoing []domain.LineOutgoingMessage) ([]messaging_api.MessageInterface, error) {
	messages := make([]messaging_api.MessageInterface, 0, len(outgoing))
	for _, msg := range outgoing {
		lineMsg, err := convertToLineMessage(msg)
		if err != nil {
			logrus.Errorf("Failed to convert message: %v", err)
			continue
		}
		messages = append(messages, lineMsg)
	}

	if len(messages) == 0 {
		return nil, fmt.Errorf("no valid messages to send")
	}
	return messages, nil
}

// convertToLineMessage - Converts a domain message to a LINE SDK text message with quick replies
func convertToLineMessage(msg domain.LineOutgoingMessage) (messaging_api.MessageInterface, error) {
	if msg.Type != domain.LineMessageTypeText {
		return nil, fmt.Errorf("unsupported message type: %s", msg.Type)
	}

	text := &messaging_api.TextMessage{
		Text: truncate(msg.Text, maxTextLength),
	}

	if len(msg.QuickReplies) > 0 {
		items := make([]messaging_api.QuickReplyItem, 0, len(msg.QuickReplies))
		for i, reply := range msg.QuickReplies {
			if i == maxQuickReplies {
				break
			}
			items = append(items, messaging_api.QuickReplyItem{
				Type: "action",
				Action: &messaging_api.MessageAction{
					Label: truncate(reply, maxLabelLength),
					Text:  reply,
				},
			})
		}
		text.QuickReply = &messaging_api.QuickReply{Items: items}
	}

	return text, nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
