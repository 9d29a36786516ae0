package http

import (
	"errors"

	"flight-assistant/internal/domain"
	"flight-assistant/internal/ports/input"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/sirupsen/logrus"
)

// LineWebhookHandler struct - Primary/Driving adapter for the LINE channel
type LineWebhookHandler struct {
	service       input.LineWebhookService
	channelSecret string
}

// NewLineWebhookHandler func - Creates new LINE webhook handler
func NewLineWebhookHandler(service input.LineWebhookService, channelSecret string) *LineWebhookHandler {
	return &LineWebhookHandler{
		service:       service,
		channelSecret: channelSecret,
	}
}

// HandleWebhook func - Verifies the channel signature and forwards the events
// @Summary LINE Webhook
// @Description Handles webhook events from LINE Messaging API
// @Tags LINE
// @Accept application/json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /webhook/line [post]
func (h *LineWebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	httpReq, err := adaptor.ConvertRequest(c, false)
	if err != nil {
		logrus.Errorf("Failed to convert webhook request: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Internal error",
		})
	}

	cb, err := webhook.ParseRequest(h.channelSecret, httpReq)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			logrus.Warn("Rejected LINE webhook with invalid signature")
		} else {
			logrus.Errorf("Failed to parse webhook request: %v", err)
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Invalid signature or request",
		})
	}

	request := domain.LineWebhookRequest{Events: make([]domain.LineWebhookEvent, 0, len(cb.Events))}
	for _, event := range cb.Events {
		if e, ok := toLineEvent(event); ok {
			request.Events = append(request.Events, e)
		}
	}

	if err := h.service.HandleWebhook(c.UserContext(), request); err != nil {
		logrus.Errorf("Failed to handle webhook: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to process webhook",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
	})
}

// toLineEvent maps the SDK event onto the domain event; unsupported events are skipped
func toLineEvent(event webhook.EventInterface) (domain.LineWebhookEvent, bool) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		message, ok := toLineMessage(e.Message)
		if !ok {
			return domain.LineWebhookEvent{}, false
		}
		return domain.LineWebhookEvent{
			Type:       domain.LineEventTypeMessage,
			ReplyToken: e.ReplyToken,
			UserID:     conversationID(e.Source),
			Message:    message,
		}, true
	case webhook.FollowEvent:
		return domain.LineWebhookEvent{
			Type:       domain.LineEventTypeFollow,
			ReplyToken: e.ReplyToken,
			UserID:     conversationID(e.Source),
		}, true
	case webhook.UnfollowEvent:
		return domain.LineWebhookEvent{
			Type:   domain.LineEventTypeUnfollow,
			UserID: conversationID(e.Source),
		}, true
	default:
		logrus.Debugf("Skipping LINE event %T", event)
		return domain.LineWebhookEvent{}, false
	}
}

func toLineMessage(content webhook.MessageContentInterface) (*domain.LineMessage, bool) {
	switch m := content.(type) {
	case webhook.TextMessageContent:
		return &domain.LineMessage{ID: m.Id, Type: domain.LineMessageTypeText, Text: m.Text}, true
	case webhook.StickerMessageContent:
		return &domain.LineMessage{ID: m.Id, Type: domain.LineMessageTypeSticker}, true
	case webhook.ImageMessageContent:
		return &domain.LineMessage{ID: m.Id, Type: domain.LineMessageTypeImage}, true
	default:
		logrus.Debugf("Skipping LINE message %T", content)
		return nil, false
	}
}

// conversationID is the push target of an event: the user, or the group or room it came from.
// It keys the chat session.
func conversationID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	default:
		return ""
	}
}
