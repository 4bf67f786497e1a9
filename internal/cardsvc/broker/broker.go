package broker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/avvvet/scratch-services/internal/cardsvc/models"
	"github.com/avvvet/scratch-services/internal/cardsvc/service"
	"github.com/avvvet/scratch-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Broker struct {
	Conn        *nats.Conn
	CardService *service.CardService
}

func NewBroker(nc *nats.Conn, cardService *service.CardService) *Broker {
	return &Broker{
		Conn:        nc,
		CardService: cardService,
	}
}

// SubscribeSocketService consumes card commands relayed by the socket service.
func (b *Broker) SubscribeSocketService(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// handles message coming from socket
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	err := json.Unmarshal(msgNat.Data, &msg)
	if err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	switch msg.Type {
	case "get-card":
		card, activating, errMsg := b.CardService.Status()
		b.PublishCardResponse(comm.CardData{Card: card, Activating: activating, Error: errMsg}, msg.SocketId)

	case "get-history":
		b.PublishHistoryResponse(comm.HistoryData{Entries: b.CardService.History()}, msg.SocketId)

	case "scratch":
		// the reveal suspends for the scratch delay, run it off the
		// NATS callback so other commands keep flowing
		go func(socketId string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			entry, err := b.CardService.Scratch(ctx)
			if err != nil {
				log.Errorf("Error [CardService.Scratch] %s", err)
				return
			}

			b.PublishScratchResponse(comm.TransitionData{Card: b.CardService.Card(), Entry: entry}, socketId)
		}(msg.SocketId)

	case "cancel-scratch":
		cancelled := b.CardService.CancelScratch()
		b.PublishCancelResponse(comm.Res{Status: cancelled}, msg.SocketId)

	case "activate":
		go func(socketId string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			_, err := b.CardService.Activate(ctx)
			if err != nil && (errors.Is(err, service.ErrMissingCode) ||
				errors.Is(err, service.ErrActivatePending) || errors.Is(err, service.ErrScratchPending)) {
				log.Errorf("Error [CardService.Activate] %s", err)
			}

			// verification failures surface through the card's error
			// message, send the resulting state either way
			card, activating, errMsg := b.CardService.Status()
			b.PublishCardResponse(comm.CardData{Card: card, Activating: activating, Error: errMsg}, socketId)
		}(msg.SocketId)

	case "clear-error":
		b.CardService.ClearError()
		card, activating, errMsg := b.CardService.Status()
		b.PublishCardResponse(comm.CardData{Card: card, Activating: activating, Error: errMsg}, msg.SocketId)

	default:
		log.Error("Unknown message")
		return
	}
}

// PublishTransition broadcasts a committed transition to every connected
// web client. Wired as a CardService listener.
func (b *Broker) PublishTransition(card models.Card, entry models.HistoryEntry) {
	data, err := json.Marshal(comm.TransitionData{Card: card, Entry: entry})
	if err != nil {
		log.Errorf("[PublishTransition] unable to marshal transition data")
		return
	}

	// empty SocketId means broadcast
	msg := &comm.WSMessage{
		Type:     "card-transition",
		Data:     data,
		SocketId: "",
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	topic := "socket.service"
	b.Publish(topic, payload)
}

func (b *Broker) PublishCardResponse(p comm.CardData, socketId string) {
	b.publishResponse("get-card-response", p, socketId)
}

func (b *Broker) PublishHistoryResponse(p comm.HistoryData, socketId string) {
	b.publishResponse("get-history-response", p, socketId)
}

func (b *Broker) PublishScratchResponse(p comm.TransitionData, socketId string) {
	b.publishResponse("scratch-response", p, socketId)
}

func (b *Broker) PublishCancelResponse(p comm.Res, socketId string) {
	b.publishResponse("cancel-scratch-response", p, socketId)
}

func (b *Broker) publishResponse(msgType string, p interface{}, socketId string) {
	data, err := json.Marshal(p)
	if err != nil {
		log.Errorf("[%s] unable to marshal payload", msgType)
		return
	}

	msg := &comm.WSMessage{
		Type:     msgType,
		Data:     data,
		SocketId: socketId,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	topic := "socket.service"
	b.Publish(topic, payload)
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
