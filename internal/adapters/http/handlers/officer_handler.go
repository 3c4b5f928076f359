package handlers

import (
	"strconv"

	"mpp-antrian/internal/core/services"
	"mpp-antrian/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// OfficerHandler handles counter-side dispatch endpoints
type OfficerHandler struct {
	assignmentService *services.AssignmentService
}

// NewOfficerHandler creates a new officer handler
func NewOfficerHandler(assignmentService *services.AssignmentService) *OfficerHandler {
	return &OfficerHandler{assignmentService: assignmentService}
}

// noteInput carries the optional free-text note on a transition
type noteInput struct {
	Note string `json:"note"`
}

// CallNext handles POST /api/v1/officer/call-next
// @Summary Call the next waiting ticket in your service
// @Tags Officer
// @Router /officer/call-next [post]
func (h *OfficerHandler) CallNext(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	ticket, err := h.assignmentService.CallNext(actor)
	if err != nil {
		return response.DomainError(c, err)
	}
	if ticket == nil {
		// Empty queue is a normal outcome, not an error.
		return response.Success(c, "No waiting tickets", nil)
	}
	return response.Success(c, "Ticket called", ticket)
}

// CallQueue handles POST /api/v1/officer/tickets/:id/call
// @Summary Call a specific waiting ticket
// @Tags Officer
// @Router /officer/tickets/{id}/call [post]
func (h *OfficerHandler) CallQueue(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	ticketID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ticket ID")
	}

	ticket, err := h.assignmentService.CallQueue(actor, uint(ticketID))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Ticket called", ticket)
}

// Recall handles POST /api/v1/officer/tickets/:id/recall
// @Summary Re-announce a ticket you already called
// @Tags Officer
// @Router /officer/tickets/{id}/recall [post]
func (h *OfficerHandler) Recall(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	ticketID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ticket ID")
	}

	ticket, err := h.assignmentService.Recall(actor, uint(ticketID))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Ticket recalled", ticket)
}

// Start handles POST /api/v1/officer/tickets/:id/start
// @Summary Start serving a called ticket
// @Tags Officer
// @Router /officer/tickets/{id}/start [post]
func (h *OfficerHandler) Start(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	ticketID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ticket ID")
	}

	ticket, err := h.assignmentService.Start(actor, uint(ticketID))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Ticket processing", ticket)
}

// Complete handles POST /api/v1/officer/tickets/:id/complete
// @Summary Finish serving a ticket
// @Tags Officer
// @Router /officer/tickets/{id}/complete [post]
func (h *OfficerHandler) Complete(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	ticketID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ticket ID")
	}

	var input noteInput
	_ = c.BodyParser(&input)

	ticket, err := h.assignmentService.Complete(actor, uint(ticketID), input.Note)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Ticket completed", ticket)
}

// Skip handles POST /api/v1/officer/tickets/:id/skip
// @Summary Skip a ticket (no-show)
// @Tags Officer
// @Router /officer/tickets/{id}/skip [post]
func (h *OfficerHandler) Skip(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	ticketID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ticket ID")
	}

	var input noteInput
	_ = c.BodyParser(&input)

	ticket, err := h.assignmentService.Skip(actor, uint(ticketID), input.Note)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Ticket skipped", ticket)
}

// transferInput carries a transfer request
type transferInput struct {
	TargetServiceID uint   `json:"target_service_id"`
	Note            string `json:"note"`
}

// Transfer handles POST /api/v1/officer/tickets/:id/transfer
// @Summary Move a ticket to another service with a fresh number
// @Tags Officer
// @Router /officer/tickets/{id}/transfer [post]
func (h *OfficerHandler) Transfer(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	ticketID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ticket ID")
	}

	var input transferInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.TargetServiceID == 0 {
		return response.BadRequest(c, "target_service_id is required")
	}

	result, err := h.assignmentService.Transfer(actor, uint(ticketID), input.TargetServiceID, input.Note)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Ticket transferred", result)
}

// availabilityInput carries a counter open/close request
type availabilityInput struct {
	Available bool `json:"available"`
}

// SetAvailability handles POST /api/v1/officer/availability
// @Summary Open or close your counter
// @Tags Officer
// @Router /officer/availability [post]
func (h *OfficerHandler) SetAvailability(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var input availabilityInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	officer, err := h.assignmentService.SetAvailability(actor, input.Available)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Availability updated", officer)
}
