package comm

import (
	"encoding/json"

	"github.com/avvvet/scratch-services/internal/cardsvc/models"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "scratch", "activate"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

// CardData is the card state pushed to web clients, including the
// busy flag while a verification is in flight and any surfaced error.
type CardData struct {
	Card       models.Card `json:"card"`
	Activating bool        `json:"activating"`
	Error      string      `json:"error,omitempty"`
}

type HistoryData struct {
	Entries []models.HistoryEntry `json:"entries"` // newest first
}

// TransitionData is broadcast to every connected client after a
// committed transition.
type TransitionData struct {
	Card  models.Card         `json:"card"`
	Entry models.HistoryEntry `json:"entry"`
}

type Res struct {
	Status bool `json:"status"`
}
