package services

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"mpp-antrian/internal/core/domain"
)

// ============================================================
// Transition events + SSE hub
// ============================================================

// TransitionEvent is the payload emitted after every committed transition.
// Display boards, messaging channels, and statistics listeners consume it;
// the engine never waits on them.
type TransitionEvent struct {
	ID          string         `json:"id"`
	Event       string         `json:"event"` // "transition" or "approaching"
	TicketID    uint           `json:"ticket_id"`
	Number      string         `json:"number"`
	ServiceID   uint           `json:"service_id"`
	ServiceCode string         `json:"service_code,omitempty"`
	Counter     string         `json:"counter,omitempty"`
	OfficerID   *uint          `json:"officer_id,omitempty"`
	FromStatus  *domain.Status `json:"from_status,omitempty"`
	ToStatus    domain.Status  `json:"to_status"`
	Timestamp   time.Time      `json:"timestamp"`
}

// EventClient is one connected SSE consumer. ServiceID 0 subscribes to every
// service (TV boards in the lobby).
type EventClient struct {
	ID        string
	ServiceID uint
	Channel   chan TransitionEvent
}

// NotifyService fans transition events out to connected clients. Sends are
// non-blocking: a slow consumer loses events rather than delaying a counter
// call.
type NotifyService struct {
	mu      sync.RWMutex
	clients map[string]*EventClient
}

// NewNotifyService creates a new notify service
func NewNotifyService() *NotifyService {
	return &NotifyService{
		clients: make(map[string]*EventClient),
	}
}

// Subscribe registers a new client and returns it. Callers must Unsubscribe
// when the connection closes.
func (n *NotifyService) Subscribe(serviceID uint) *EventClient {
	client := &EventClient{
		ID:        uuid.NewString(),
		ServiceID: serviceID,
		Channel:   make(chan TransitionEvent, 16),
	}
	n.mu.Lock()
	n.clients[client.ID] = client
	total := len(n.clients)
	n.mu.Unlock()
	log.Printf("📡 Event client subscribed: %s (service=%d) | total=%d", client.ID, serviceID, total)
	return client
}

// Unsubscribe removes a client and closes its channel.
func (n *NotifyService) Unsubscribe(clientID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if client, ok := n.clients[clientID]; ok {
		close(client.Channel)
		delete(n.clients, clientID)
		log.Printf("📡 Event client unsubscribed: %s | total=%d", clientID, len(n.clients))
	}
}

// Publish delivers the event to every matching client without blocking.
func (n *NotifyService) Publish(event TransitionEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, client := range n.clients {
		if client.ServiceID != 0 && client.ServiceID != event.ServiceID {
			continue
		}
		select {
		case client.Channel <- event:
		default:
			// Consumer is behind; drop rather than stall the caller.
			log.Printf("⚠️ Event channel full for client %s, dropping %s", client.ID, event.Event)
		}
	}
}

// ClientCount returns the number of connected clients.
func (n *NotifyService) ClientCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.clients)
}
