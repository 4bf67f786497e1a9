package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/avvvet/scratch-services/internal/cardsvc/service"
	"github.com/avvvet/scratch-services/internal/comm"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	cardService *service.CardService
}

func NewHandler(cardService *service.CardService) *Handler {
	return &Handler{cardService: cardService}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "card service is running at port " + os.Getenv("CARD_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}

// ScratchHandler runs the reveal, the request blocks for the scratch
// delay unless the attempt gets cancelled first.
func (h *Handler) ScratchHandler(w http.ResponseWriter, r *http.Request) {
	entry, err := h.cardService.Scratch(r.Context())
	if err != nil {
		h.CreateResponse(w, Response{
			Message: "scratch rejected",
			Code:    http.StatusConflict,
			Error:   err.Error(),
		})
		return
	}

	h.CreateResponse(w, Response{
		Message: "scratch " + entry.State,
		Code:    http.StatusOK,
		Data: comm.TransitionData{
			Card:  h.cardService.Card(),
			Entry: entry,
		},
	})
}

func (h *Handler) CancelScratchHandler(w http.ResponseWriter, r *http.Request) {
	cancelled := h.cardService.CancelScratch()

	h.CreateResponse(w, Response{
		Message: "cancel scratch",
		Code:    http.StatusOK,
		Data:    comm.Res{Status: cancelled},
	})
}

// ActivateHandler verifies the current code. Verification failures are
// not errors at the transport level, the card simply stays scratched and
// the surfaced message rides along with it.
func (h *Handler) ActivateHandler(w http.ResponseWriter, r *http.Request) {
	card, err := h.cardService.Activate(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCode):
			h.CreateResponse(w, Response{
				Message: "activation rejected",
				Code:    http.StatusBadRequest,
				Error:   err.Error(),
			})
		case errors.Is(err, service.ErrActivatePending), errors.Is(err, service.ErrScratchPending):
			h.CreateResponse(w, Response{
				Message: "activation rejected",
				Code:    http.StatusConflict,
				Error:   err.Error(),
			})
		default:
			card, activating, msg := h.cardService.Status()
			h.CreateResponse(w, Response{
				Message: "activation failed",
				Code:    http.StatusOK,
				Data:    comm.CardData{Card: card, Activating: activating, Error: msg},
				Error:   msg,
			})
		}
		return
	}

	h.CreateResponse(w, Response{
		Message: "card activated",
		Code:    http.StatusOK,
		Data:    comm.CardData{Card: card},
	})
}

func (h *Handler) ClearErrorHandler(w http.ResponseWriter, r *http.Request) {
	h.cardService.ClearError()

	h.CreateResponse(w, Response{
		Message: "error cleared",
		Code:    http.StatusOK,
		Data:    comm.Res{Status: true},
	})
}

func (h *Handler) GetCardHandler(w http.ResponseWriter, r *http.Request) {
	card, activating, msg := h.cardService.Status()

	h.CreateResponse(w, Response{
		Message: "current card",
		Code:    http.StatusOK,
		Data:    comm.CardData{Card: card, Activating: activating, Error: msg},
	})
}

func (h *Handler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "card history",
		Code:    http.StatusOK,
		Data:    comm.HistoryData{Entries: h.cardService.History()},
	})
}
