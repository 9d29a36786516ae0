package http

import (
	"strings"

	"flight-assistant/internal/domain"
	"flight-assistant/internal/ports/input"
	"flight-assistant/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// HTTPHandler struct - Primary/Driving adapter for HTTP
type HTTPHandler struct {
	turns     input.TurnService
	health    input.HealthService
	validator validator.Validator
}

// New func - Creates new HTTP handler
func New(turns input.TurnService, health input.HealthService) *HTTPHandler {
	return &HTTPHandler{
		turns:     turns,
		health:    health,
		validator: validator.New(),
	}
}

// Liveness func
// Liveness godoc
// @Summary Liveness check
// @Description Reports that the process is up
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health/live [get]
func (hdl *HTTPHandler) Liveness(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(HealthResponse{Status: "healthy"})
}

// Readiness func
// Readiness godoc
// @Summary Readiness check
// @Description Reports dependency status; 503 when the session store is unreachable
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health/ready [get]
func (hdl *HTTPHandler) Readiness(c *fiber.Ctx) error {
	checks, ready := hdl.health.Ready(c.UserContext())
	if !ready {
		logrus.Warnf("Readiness check failed: %v", checks)
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{Status: "not_ready", Checks: checks})
	}
	return c.Status(fiber.StatusOK).JSON(HealthResponse{Status: "ready", Checks: checks})
}

// ChatMessage func
/* one conversational turn */
// ChatMessage godoc
// @Summary Send a chat message
// @Description Runs one turn of the flight-search conversation. Omit session_id to start a new session.
// @Tags Chat
// @Accept application/json
// @Produce json
// @param ChatRequest body ChatRequest true "ChatRequest"
// @Success 200 {object} ChatResponse
// @Failure 400 {object} ResponseBody
// @Failure 422 {object} ResponseBody
// @Failure 429 {object} ChatResponse
// @Failure 500 {object} ResponseBody
// @Router /api/v1/chat/message [post]
func (hdl *HTTPHandler) ChatMessage(c *fiber.Ctx) error {
	var request ChatRequest
	if err := c.BodyParser(&request); err != nil {
		logrus.Errorln(err)
		return c.Status(fiber.StatusBadRequest).JSON(ResponseBody{Status: BadRequest})
	}
	request.Message = strings.TrimSpace(request.Message)
	if err := hdl.validator.ValidateStruct(request); err != nil {
		msg := ResponseBody{
			Status: UnprocessableEntity,
		}
		msg.Status.Message = validator.FieldErrors(err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(msg)
	}

	// Convert HTTP request to domain request
	domainReq := domain.TurnRequest{
		Message:      request.Message,
		ClientOrigin: c.IP(),
	}
	if request.SessionID != nil {
		domainReq.SessionID = *request.SessionID
	}

	logrus.Debugf("Chat message received: session_id=%s length=%d", domainReq.SessionID, len(domainReq.Message))
	response, err := hdl.turns.HandleTurn(c.UserContext(), domainReq)
	if err != nil {
		// The turn engine has logged and reported the cause
		return c.Status(fiber.StatusInternalServerError).JSON(ResponseBody{Status: InternalServerError})
	}

	status := fiber.StatusOK
	if response.Error != nil && response.Error.Code == domain.KindRateLimited {
		status = fiber.StatusTooManyRequests
	}
	return c.Status(status).JSON(toChatResponse(response))
}

// ResetSession func
// ResetSession godoc
// @Summary Reset a chat session
// @Description Deletes the session so the next message starts fresh
// @Tags Chat
// @Produce json
// @param id path string true "session id"
// @Success 200 {object} ResponseBody
// @Failure 500 {object} ResponseBody
// @Router /api/v1/chat/session/{id} [delete]
func (hdl *HTTPHandler) ResetSession(c *fiber.Ctx) error {
	if err := hdl.turns.ResetSession(c.UserContext(), c.Params("id")); err != nil {
		logrus.Errorln(err)
		return c.Status(fiber.StatusInternalServerError).JSON(ResponseBody{Status: InternalServerError})
	}
	return c.Status(fiber.StatusOK).JSON(ResponseBody{Status: Success})
}
