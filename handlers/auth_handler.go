package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"

	"go-ask/backend/config"
	"go-ask/backend/identity"
	"go-ask/backend/models"
	"go-ask/backend/utils"
)

// sendJSONError 統一發送 JSON 格式錯誤響應
func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	var errorResponse models.ErrorResponse
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	errorResponse.Message = message
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Printf("Failed to write error response: %v", err)
	}
}

// AuthHandler 處理 Google 登入流程,成功後簽發帶完整身份的 JWT
type AuthHandler struct {
	auth      *identity.GoogleAuthenticator
	jwtSecret string
}

// NewAuthHandler 建立登入流程的處理器
func NewAuthHandler(auth *identity.GoogleAuthenticator, cfg *config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, jwtSecret: cfg.JWTSecret}
}

// randomState 產生一次性的 OAuth state,防 CSRF
func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// GoogleLogin 把使用者導向 Google 登入頁
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		log.Printf("Error generating oauth state: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
	})
	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback 用授權碼換取身份
// 名稱或頭像缺一不可:驗證不過就整個拒絕,絕不簽發殘缺身份的 token
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		sendJSONError(w, "Invalid oauth state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		sendJSONError(w, "Authorization code is required", http.StatusBadRequest)
		return
	}

	principal, err := h.auth.Principal(r.Context(), code)
	if err != nil {
		log.Printf("Google sign-in failed: %v", err)
		sendJSONError(w, "Sign-in failed", http.StatusUnauthorized)
		return
	}

	viewer, err := identity.ValidatePrincipal(principal)
	if err != nil {
		log.Printf("Rejecting google account: %v", err)
		sendJSONError(w, "Missing info from google account", http.StatusUnauthorized)
		return
	}

	token, err := utils.GenerateJWT(viewer, h.jwtSecret)
	if err != nil {
		log.Printf("Error generating JWT: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Printf("Viewer signed in successfully: %s", viewer.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"token":  token,
		"viewer": viewer,
	})
}
