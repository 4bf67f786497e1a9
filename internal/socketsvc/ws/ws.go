package ws

import (
	"encoding/json"
	"sync"

	"github.com/avvvet/scratch-services/internal/comm"
	"github.com/avvvet/scratch-services/internal/socketsvc/broker"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type Ws struct {
	connMap sync.Map // to keep track of socket connection with socketId
	Broker  *broker.Broker
}

func NewWs() *Ws {
	return &Ws{}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "scratch", "cancel-scratch", "activate", "clear-error", "get-card", "get-history":
		s.forwardToCardService(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

// forwardToCardService relays a card command to the card service over NATS,
// stamping the message with the owning socket id so the response finds
// its way back.
func (s *Ws) forwardToCardService(socketId string, msg *comm.WSMessage) {
	msg.SocketId = socketId

	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	topic := "card.service"
	if err := s.Broker.Publish(topic, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", topic, err)
		return
	}

	log.Debugf("Published %s message for socket %s to topic %s", msg.Type, socketId, topic)
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

// EachConnection visits every live connection, used for broadcasts.
func (s *Ws) EachConnection(fn func(socketId string, conn *websocket.Conn)) {
	s.connMap.Range(func(key, value interface{}) bool {
		fn(key.(string), value.(*websocket.Conn))
		return true // continue iterating
	})
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
}
