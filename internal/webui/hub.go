package webui

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dcpsystems/dcp/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is same-origin by default; operators fronting it with a
	// different origin are expected to terminate auth at a reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// receiptHub fans out dispatch receipts to every connected /ws/receipts
// client. Only runs started through the dashboard's /api/run endpoint are
// published, each receipt once the whole run has finished.
type receiptHub struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan model.Receipt
	register  chan *websocket.Conn
}

func newReceiptHub() *receiptHub {
	return &receiptHub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan model.Receipt, 64),
		register:  make(chan *websocket.Conn),
	}
}

func (h *receiptHub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case receipt := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteJSON(receipt); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues a receipt for delivery to every connected client. Safe to
// call from a run handler after each dispatch.
func (h *receiptHub) Publish(receipt model.Receipt) {
	select {
	case h.broadcast <- receipt:
	default:
		// a full buffer means no one is listening closely enough to matter
	}
}

func (s *Server) handleReceiptStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s.hub.register <- conn

	// Drain and discard incoming frames so the connection's read deadline
	// stays alive; this feed is server->client only.
	go func() {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
