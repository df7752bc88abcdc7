package server

import (
	"encoding/json"
	"net/http"
	"time"

	"alpha-radar/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Add(1)
			// Replay the last known status on connect
			if initial := s.statusEvent(); initial != nil {
				client.send <- *initial
			}

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.dropClient(client)
			}

		case client := <-s.replies:
			// Direct answer to a subscribe; only the hub writes to send
			if _, ok := s.clients[client]; ok {
				if event := s.statusEvent(); event != nil {
					select {
					case client.send <- *event:
					default:
					}
				}
			}

		case event := <-s.broadcast:
			if event.Status != nil {
				status := *event.Status
				s.stateMutex.Lock()
				s.lastStatus = &status
				s.stateMutex.Unlock()
			}

			for client := range s.clients {
				if !client.wants(event) {
					continue
				}
				select {
				case client.send <- event:
				default:
					// Client too slow, disconnect to keep the hub moving
					s.dropClient(client)
				}
			}

		case <-s.done:
			for client := range s.clients {
				s.dropClient(client)
			}
			return
		}
	}
}

func (s *APIServer) dropClient(client *Client) {
	delete(s.clients, client)
	close(client.send)
	s.connections.Add(-1)
}

// statusEvent builds a status push from the last broadcast status or the controller.
func (s *APIServer) statusEvent() *models.MScanEvent {
	s.stateMutex.RLock()
	last := s.lastStatus
	s.stateMutex.RUnlock()

	if last == nil {
		if s.Scans == nil {
			return nil
		}
		status := s.Scans.Status()
		last = &status
	}
	return &models.MScanEvent{Type: models.EventStatus, Status: last, Sent: time.Now().UTC().Unix()}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues an event for every subscribed client. It never blocks the scan:
// when the queue is full the event is dropped.
func (s *APIServer) Broadcast(event models.MScanEvent) {
	select {
	case s.broadcast <- event:
	default:
		s.Logger.Warning("Broadcast queue full, dropping %s event", event.Type)
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan models.MScanEvent, 256),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe command and answers with the current status.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	client.subscribe(cmd.Types)

	select {
	case s.replies <- client:
	case <-s.done:
	}
}
