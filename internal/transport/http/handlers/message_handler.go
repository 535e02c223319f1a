package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"beam/internal/chat"
	"beam/internal/transport/http/middleware"
)

type MessageHandler struct {
	chatService *chat.Service
}

func NewMessageHandler(chatService *chat.Service) *MessageHandler {
	return &MessageHandler{chatService: chatService}
}

// ListUsers returns every user except the caller, for the conversation
// sidebar. Password hashes never serialize.
func (h *MessageHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	users, err := h.chatService.ListPeers(r.Context(), user.ID)
	if err != nil {
		log.Printf("ERROR list users: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	peerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID_FORMAT", "Invalid user ID format")
		return
	}

	messages, err := h.chatService.History(r.Context(), user.ID, peerID)
	if err != nil {
		log.Printf("ERROR history: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	receiverID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID_FORMAT", "Invalid user ID format")
		return
	}

	var input chat.SendInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	msg, err := h.chatService.Send(r.Context(), user.ID, receiverID, input)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrMissingReceiver):
			writeError(w, http.StatusBadRequest, "MISSING_RECEIVER", "Receiver ID is required")
		case errors.Is(err, chat.ErrMissingContent):
			writeError(w, http.StatusBadRequest, "MISSING_CONTENT", "Message content is required")
		case errors.Is(err, chat.ErrInvalidImage):
			writeError(w, http.StatusBadRequest, "INVALID_IMAGE", "Image payload is malformed")
		case errors.Is(err, chat.ErrUploadFailed):
			writeError(w, http.StatusInternalServerError, "IMAGE_UPLOAD_FAILED", "Failed to upload image")
		default:
			log.Printf("ERROR send message: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}
