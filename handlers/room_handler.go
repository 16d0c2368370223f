package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"go-ask/backend/commands"
	"go-ask/backend/utils"
)

// CreateRoomRequest 定義建立房間的請求體
type CreateRoomRequest struct {
	Title string `json:"title"`
}

// PostQuestionRequest 定義送出問題的請求體
type PostQuestionRequest struct {
	Content string `json:"content"`
}

// ToggleLikeRequest 定義按讚/收回讚的請求體
// LikeID 是前端「最近一次投影」看到的自己的讚;空字串代表要新增
type ToggleLikeRequest struct {
	LikeID string `json:"likeId"`
}

// RoomHandler 把指令層接上 HTTP
type RoomHandler struct {
	commands *commands.Commands
}

// NewRoomHandler 建立房間相關的處理器
func NewRoomHandler(c *commands.Commands) *RoomHandler {
	return &RoomHandler{commands: c}
}

// writeCommandError 把指令層的錯誤分類對應到 HTTP 狀態碼
// 驗證錯誤跟找不到房間要跟暫時性失敗分開回報,呼叫端才知道能不能重試
func writeCommandError(w http.ResponseWriter, err error) {
	var validationErr *commands.ValidationError
	var storeErr *commands.StoreError

	switch {
	case errors.As(err, &validationErr):
		sendJSONError(w, validationErr.Error(), http.StatusBadRequest)
	case errors.Is(err, commands.ErrNoIdentity):
		sendJSONError(w, "You must be logged in", http.StatusUnauthorized)
	case errors.Is(err, commands.ErrRoomNotFound):
		sendJSONError(w, "Room does not exist", http.StatusNotFound)
	case errors.Is(err, commands.ErrRoomEnded):
		sendJSONError(w, "Room already ended", http.StatusGone)
	case errors.As(err, &storeErr):
		log.Printf("Store write failed: %v", err)
		sendJSONError(w, "Store temporarily unavailable", http.StatusBadGateway)
	default:
		log.Printf("Unexpected command error: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// CreateRoom 處理建立房間的請求
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("JSON decode error: %v", err)
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	viewer, err := utils.GetViewerFromContext(r.Context())
	if err != nil {
		sendJSONError(w, "Unauthorized: viewer not found in context", http.StatusUnauthorized)
		return
	}

	roomID, err := h.commands.CreateRoom(r.Context(), req.Title, viewer.ID)
	if err != nil {
		writeCommandError(w, err)
		return
	}

	log.Printf("Room created successfully: %s", roomID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": roomID})
}

// JoinRoom 處理用房間代碼加入的請求
// 不需要登入就能查,前端靠這支判斷代碼打錯還是房間已結束
func (h *RoomHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	room, err := h.commands.JoinRoom(r.Context(), roomID)
	if err != nil {
		writeCommandError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(room)
}

// PostQuestion 處理送出問題的請求
func (h *RoomHandler) PostQuestion(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	var req PostQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("JSON decode error: %v", err)
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	viewer, err := utils.GetViewerFromContext(r.Context())
	if err != nil {
		sendJSONError(w, "Unauthorized: viewer not found in context", http.StatusUnauthorized)
		return
	}

	questionID, err := h.commands.PostQuestion(r.Context(), roomID, req.Content, &viewer)
	if err != nil {
		writeCommandError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": questionID})
}

// ToggleLike 處理按讚/收回讚的請求
// 寫入成功只回 204:效果要等下一個快照從訂閱流回來,這裡不改任何畫面狀態
func (h *RoomHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req ToggleLikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("JSON decode error: %v", err)
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	viewer, err := utils.GetViewerFromContext(r.Context())
	if err != nil {
		sendJSONError(w, "Unauthorized: viewer not found in context", http.StatusUnauthorized)
		return
	}

	err = h.commands.ToggleLike(r.Context(), vars["id"], vars["questionId"], req.LikeID, viewer.ID)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteQuestion 處理移除問題的請求
func (h *RoomHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.commands.DeleteQuestion(r.Context(), vars["id"], vars["questionId"]); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HighlightQuestion 處理標記重點問題的請求
func (h *RoomHandler) HighlightQuestion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.commands.HighlightQuestion(r.Context(), vars["id"], vars["questionId"]); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAnswered 處理標記已回答的請求
func (h *RoomHandler) MarkAnswered(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.commands.MarkAnswered(r.Context(), vars["id"], vars["questionId"]); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EndRoom 處理結束房間的請求
func (h *RoomHandler) EndRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	if err := h.commands.EndRoom(r.Context(), roomID); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
