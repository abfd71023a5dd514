package web

import (
	"encoding/json"
	"sync"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const clientBufferSize = 64

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newStreamClient(conn *websocket.Conn) *streamClient {
	c := &streamClient{
		conn: conn,
		send: make(chan []byte, clientBufferSize),
	}
	go c.writePump()
	return c
}

func (c *streamClient) writePump() {
	// nolint:errcheck
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// eventStream fans bus events out to the connected websocket clients. A
// client that cannot keep up is dropped.
type eventStream struct {
	mu      sync.RWMutex
	clients map[*streamClient]bool
}

func newEventStream() *eventStream {
	return &eventStream{
		clients: make(map[*streamClient]bool),
	}
}

func (s *eventStream) add(conn *websocket.Conn) *streamClient {
	c := newStreamClient(conn)

	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()

	return c
}

func (s *eventStream) remove(c *streamClient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *eventStream) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// broadcast is an event bus listener.
func (s *eventStream) broadcast(event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var slow []*streamClient

	s.mu.RLock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range slow {
		log.Warn("event stream client too slow, disconnecting")
		s.remove(c)
	}
	return nil
}

func (s *eventStream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}
