package broker

import (
	"encoding/json"

	"github.com/avvvet/scratch-services/internal/comm"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Broker struct {
	Conn           *nats.Conn
	GetConnection  func(string) (*websocket.Conn, bool)
	EachConnection func(func(string, *websocket.Conn))
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (*websocket.Conn, bool),
	fncEachConnection func(func(string, *websocket.Conn))) *Broker {
	return &Broker{
		Conn:           conn,
		GetConnection:  fncGetConnection,
		EachConnection: fncEachConnection,
	}
}

// consume message from card service
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// publish message to card service
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// handleMessages receive message from card service
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	err := json.Unmarshal(msgNats.Data, &message)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	switch message.Type {
	case "get-card-response", "get-history-response", "scratch-response", "cancel-scratch-response":
		b.sendMessage(message)
	case "card-transition":
		// state change broadcast, every connected client gets it
		b.broadcastMessage(message)
	default:
		log.Error("Unknown message")
		return
	}
}

// send socket message to the web client
func (b *Broker) sendMessage(m *comm.WSMessage) {
	socketId := m.SocketId
	if conn, ok := b.GetConnection(socketId); ok {
		if err := conn.WriteJSON(m); err != nil {
			log.Println(err)
		}
	}
}

func (b *Broker) broadcastMessage(m *comm.WSMessage) {
	b.EachConnection(func(socketId string, conn *websocket.Conn) {
		if err := conn.WriteJSON(m); err != nil {
			log.Errorf("Error broadcasting to socket %s: %v", socketId, err)
		}
	})
}
