package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"mpp-antrian/internal/core/services"
	"mpp-antrian/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// DisplayHandler handles lobby display endpoints (public, no auth)
type DisplayHandler struct {
	queueService      *services.QueueService
	assignmentService *services.AssignmentService
	statsService      *services.StatsService
	notifyService     *services.NotifyService
}

// NewDisplayHandler creates a new display handler
func NewDisplayHandler(queueService *services.QueueService, assignmentService *services.AssignmentService, statsService *services.StatsService, notifyService *services.NotifyService) *DisplayHandler {
	return &DisplayHandler{
		queueService:      queueService,
		assignmentService: assignmentService,
		statsService:      statsService,
		notifyService:     notifyService,
	}
}

// ============================================================
// GET /api/v1/display/services — daftar layanan aktif (Public)
// ============================================================
func (h *DisplayHandler) GetServices(c *fiber.Ctx) error {
	servicesList, err := h.queueService.ActiveServices()
	if err != nil {
		return response.InternalServerError(c, "Failed to get services")
	}
	return response.Success(c, "Services retrieved", servicesList)
}

// ============================================================
// GET /api/v1/display/services/:id/waiting — antrian menunggu (Public)
// ============================================================
func (h *DisplayHandler) GetWaiting(c *fiber.Ctx) error {
	serviceID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid service ID")
	}

	queues, err := h.queueService.WaitingQueues(uint(serviceID))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Waiting queues retrieved", fiber.Map{
		"service_id": serviceID,
		"count":      len(queues),
		"queues":     queues,
	})
}

// ============================================================
// GET /api/v1/display/services/:id/accepting — status penerimaan (Public)
// ============================================================
func (h *DisplayHandler) GetAccepting(c *fiber.Ctx) error {
	serviceID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid service ID")
	}

	status, err := h.queueService.IsServiceAcceptingQueue(uint(serviceID))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Acceptance status retrieved", status)
}

// ============================================================
// GET /api/v1/display/services/:id/estimate — estimasi tunggu (Public)
// ============================================================
func (h *DisplayHandler) GetEstimate(c *fiber.Ctx) error {
	serviceID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid service ID")
	}

	minutes, err := h.queueService.EstimateWait(uint(serviceID))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Estimate retrieved", fiber.Map{
		"service_id":        serviceID,
		"estimated_minutes": minutes,
	})
}

// ============================================================
// GET /api/v1/display/called — tiket yang sedang dipanggil (Public)
// ============================================================
func (h *DisplayHandler) GetCurrentlyCalled(c *fiber.Ctx) error {
	serviceID := parseServiceFilter(c)

	queues, err := h.assignmentService.CurrentlyCalled(serviceID)
	if err != nil {
		return response.InternalServerError(c, "Failed to get called tickets")
	}
	return response.Success(c, "Called tickets retrieved", queues)
}

// ============================================================
// GET /api/v1/display/statistics — statistik hari ini (Public)
// ============================================================
func (h *DisplayHandler) GetTodayStatistics(c *fiber.Ctx) error {
	serviceID := parseServiceFilter(c)

	stats, err := h.statsService.TodayStatistics(serviceID)
	if err != nil {
		return response.InternalServerError(c, "Failed to get statistics")
	}
	return response.Success(c, "Statistics retrieved", stats)
}

// ============================================================
// GET /api/v1/display/events — SSE untuk papan antrian (Public)
// ============================================================
func (h *DisplayHandler) Events(c *fiber.Ctx) error {
	var serviceID uint
	if id := parseServiceFilter(c); id != nil {
		serviceID = *id
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")
	c.Set("Access-Control-Allow-Origin", "*")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		client := h.notifyService.Subscribe(serviceID)
		defer h.notifyService.Unsubscribe(client.ID)

		// Send initial connection event
		fmt.Fprintf(w, "event: connected\ndata: {\"client_id\":\"%s\",\"service_id\":%d}\n\n", client.ID, serviceID)
		w.Flush()

		// Heartbeat ticker
		heartbeat := time.NewTicker(30 * time.Second)
		defer heartbeat.Stop()

		for {
			select {
			case event, ok := <-client.Channel:
				if !ok {
					return
				}
				writeTransitionEvent(w, event)
				w.Flush()

			case <-heartbeat.C:
				fmt.Fprintf(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					log.Printf("📡 SSE client disconnected: %s", client.ID)
					return
				}
			}
		}
	})

	return nil
}

// writeTransitionEvent writes a formatted SSE event to the writer
func writeTransitionEvent(w *bufio.Writer, event services.TransitionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", event.Event, event.ID, payload)
}

// parseServiceFilter reads the optional ?service_id= query filter
func parseServiceFilter(c *fiber.Ctx) *uint {
	raw := c.Query("service_id")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return nil
	}
	out := uint(id)
	return &out
}

// Keep the streaming contract explicit
var _ fasthttp.StreamWriter = func(w *bufio.Writer) {}
