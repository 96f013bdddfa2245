package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"chatwave/internal/common"
	"chatwave/internal/dbmongo"

	"github.com/gorilla/mux"
)

// ImageVault stores image payloads out of band. Satisfied by
// *dbmongo.ImageStore; nil disables image offloading and inline payloads
// pass through untouched.
type ImageVault interface {
	Upload(ctx context.Context, uploaderID, mimeType string, content []byte) (*dbmongo.ImageInfo, error)
	Open(ctx context.Context, imageID string) (io.Reader, *dbmongo.ImageInfo, error)
}

type Handlers struct {
	svc    Service
	hub    *Hub
	images ImageVault
}

func NewHandlers(svc Service, hub *Hub, images ImageVault) *Handlers {
	return &Handlers{svc: svc, hub: hub, images: images}
}

// Router wires all routes. Everything except registration and login sits
// behind the auth middleware.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/auth/register", h.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", h.handleLogin).Methods(http.MethodPost)

	private := r.PathPrefix("/").Subrouter()
	private.Use(AuthMiddleware)
	private.HandleFunc("/api/users/{handle}", h.handleUserByHandle).Methods(http.MethodGet)
	private.HandleFunc("/api/users/follow/{targetID}", h.handleToggleFollow).Methods(http.MethodPost)
	private.HandleFunc("/api/messages/send/{receiverID}", h.handleSend).Methods(http.MethodPost)
	private.HandleFunc("/api/messages/translate", h.handleTranslate).Methods(http.MethodPost)
	private.HandleFunc("/api/messages/{peerID}", h.handleHistory).Methods(http.MethodGet)
	private.HandleFunc("/api/messages/{messageID}", h.handleDelete).Methods(http.MethodDelete)
	private.HandleFunc("/api/images/{imageID}", h.handleImage).Methods(http.MethodGet)
	private.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWS(h.hub, w, r)
	})

	return r
}

type credentialsRequest struct {
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := h.svc.Register(r.Context(), req.Handle, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": user})
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := h.svc.Login(r.Context(), req.Handle, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (h *Handlers) handleUserByHandle(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.UserByHandle(r.Context(), mux.Vars(r)["handle"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	messages, err := h.svc.History(r.Context(), userID, mux.Vars(r)["peerID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

type sendRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

func (h *Handlers) handleSend(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	image := req.Image
	if h.images != nil && image != "" {
		if mimeType, content, ok := decodeDataURL(image); ok {
			info, err := h.images.Upload(r.Context(), userID, mimeType, content)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "image upload failed")
				return
			}
			image = "/api/images/" + info.ID
		}
	}

	msg, err := h.svc.Send(r.Context(), userID, mux.Vars(r)["receiverID"], req.Text, image)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	if err := h.svc.DeleteForBoth(r.Context(), userID, mux.Vars(r)["messageID"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type translateRequest struct {
	MessageID    string `json:"message_id"`
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
}

func (h *Handlers) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Translate(r.Context(), req.Text, req.LanguageCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) handleToggleFollow(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	result, err := h.svc.ToggleFollow(r.Context(), userID, mux.Vars(r)["targetID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) handleImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		writeError(w, http.StatusNotFound, "image storage not configured")
		return
	}

	stream, info, err := h.images.Open(r.Context(), mux.Vars(r)["imageID"])
	if err != nil {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	if closer, ok := stream.(io.Closer); ok {
		defer closer.Close()
	}

	if info.MimeType != "" {
		w.Header().Set("Content-Type", info.MimeType)
	}
	if _, err := io.Copy(w, stream); err != nil {
		log.Printf("stream image %s: %v", info.ID, err)
	}
}

// decodeDataURL unpacks "data:<mime>;base64,<payload>" image payloads.
func decodeDataURL(s string) (mimeType string, content []byte, ok bool) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, false
	}
	rest := strings.TrimPrefix(s, "data:")
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", nil, false
	}

	content, err := base64.StdEncoding.DecodeString(rest[sep+len(";base64,"):])
	if err != nil {
		return "", nil, false
	}
	return rest[:sep], content, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case common.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrHandleTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotParticipant):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
