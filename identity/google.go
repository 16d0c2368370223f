package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"go-ask/backend/config"
)

// Google userinfo API,拿 displayName 跟頭像用
const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleAuthenticator 用 OAuth2 授權碼流程跟 Google 交換觀看者身份
type GoogleAuthenticator struct {
	oauth *oauth2.Config
}

// NewGoogleAuthenticator 從應用程式配置建立 Google 身份提供者
func NewGoogleAuthenticator(cfg *config.Config) *GoogleAuthenticator {
	return &GoogleAuthenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL 產生導向 Google 登入頁的網址
func (g *GoogleAuthenticator) AuthURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Principal 用 callback 帶回來的授權碼換取使用者資料
// 只負責取回原始主體,完整性驗證交給共用的 ValidatePrincipal
func (g *GoogleAuthenticator) Principal(ctx context.Context, code string) (*Principal, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, &AuthError{Reason: "code exchange failed", Err: err}
	}

	resp, err := g.oauth.Client(ctx, token).Get(userInfoURL)
	if err != nil {
		return nil, &AuthError{Reason: "userinfo request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{Reason: fmt.Sprintf("userinfo returned status %d", resp.StatusCode)}
	}

	var info struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, &AuthError{Reason: "userinfo decode failed", Err: err}
	}

	return &Principal{ID: info.ID, Name: info.Name, Avatar: info.Picture}, nil
}
