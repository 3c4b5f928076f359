package handlers

import (
	"strconv"

	"mpp-antrian/internal/core/services"
	"mpp-antrian/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// QueueHandler handles visitor-facing queue endpoints
type QueueHandler struct {
	queueService *services.QueueService
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queueService *services.QueueService) *QueueHandler {
	return &QueueHandler{queueService: queueService}
}

// Register handles POST /api/v1/queue/register
// Kiosk and manual registrations are anonymous; online registrations carry
// the authenticated visitor as requester.
// @Summary Register for a service and receive a ticket
// @Tags Queue
// @Router /queue/register [post]
func (h *QueueHandler) Register(c *fiber.Ctx) error {
	var input services.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.ServiceID == 0 {
		return response.BadRequest(c, "service_id is required")
	}
	if input.Channel == "" {
		input.Channel = services.ChannelKiosk
	}

	if actor, ok := actorFromCtx(c); ok {
		input.RequesterID = &actor.UserID
	} else if input.Channel == services.ChannelOnline {
		return response.Unauthorized(c, "online registration requires login")
	}

	result, err := h.queueService.Register(&input)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Created(c, "Ticket issued", result)
}

// Cancel handles POST /api/v1/queue/tickets/:id/cancel
// @Summary Cancel your own waiting ticket
// @Tags Queue
// @Router /queue/tickets/{id}/cancel [post]
func (h *QueueHandler) Cancel(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	ticketID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ticket ID")
	}

	ticket, err := h.queueService.Cancel(actor, uint(ticketID))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Ticket cancelled", ticket)
}

// Track handles GET /api/v1/queue/track?service=UMUM&number=A001
// @Summary Track a ticket by service code and number
// @Tags Queue
// @Router /queue/track [get]
func (h *QueueHandler) Track(c *fiber.Ctx) error {
	code := c.Query("service")
	number := c.Query("number")
	if code == "" || number == "" {
		return response.BadRequest(c, "service and number are required")
	}

	result, err := h.queueService.Track(code, number)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Ticket retrieved", result)
}

// GetTicket handles GET /api/v1/queue/tickets/:id
// @Summary Ticket details
// @Tags Queue
// @Router /queue/tickets/{id} [get]
func (h *QueueHandler) GetTicket(c *fiber.Ctx) error {
	ticketID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ticket ID")
	}

	ticket, err := h.queueService.GetTicket(uint(ticketID))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Ticket retrieved", ticket)
}

// GetTicketLogs handles GET /api/v1/queue/tickets/:id/logs
// @Summary Ticket audit trail
// @Tags Queue
// @Router /queue/tickets/{id}/logs [get]
func (h *QueueHandler) GetTicketLogs(c *fiber.Ctx) error {
	ticketID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ticket ID")
	}

	logs, err := h.queueService.TicketLogs(uint(ticketID))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Ticket logs retrieved", logs)
}

// Position handles GET /api/v1/queue/tickets/:id/position
// @Summary Live queue position for a waiting ticket
// @Tags Queue
// @Router /queue/tickets/{id}/position [get]
func (h *QueueHandler) Position(c *fiber.Ctx) error {
	ticketID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ticket ID")
	}

	position, err := h.queueService.Position(uint(ticketID))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Position retrieved", fiber.Map{"position": position})
}
