package utils

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-ask/backend/models"
)

// ViewerKey 是儲存在 context 中的觀看者身份的鍵
type contextKey string

const ViewerKey contextKey = "viewer"

// GetViewerFromContext 從 context 中提取觀看者身份
func GetViewerFromContext(ctx context.Context) (models.ViewerIdentity, error) {
	viewer, ok := ctx.Value(ViewerKey).(models.ViewerIdentity)
	if !ok {
		return models.ViewerIdentity{}, errors.New("viewer identity not found in context")
	}
	return viewer, nil
}

// GenerateJWT 為完成登入的觀看者生成 JWT Token
// token 裡帶完整的身份三欄位,之後連 WebSocket 或打 API 都靠它還原觀看者
func GenerateJWT(viewer models.ViewerIdentity, secret string) (string, error) {
	claims := jwt.MapClaims{
		"userId": viewer.ID,
		"name":   viewer.Name,
		"avatar": viewer.Avatar,
		"exp":    time.Now().Add(time.Hour * 24).Unix(), // Token 24 小時後過期
		"iat":    time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.New("failed to sign token")
	}
	return tokenString, nil
}

// GetViewerFromToken 從 JWT token 中還原觀看者身份
// 三個欄位缺一不可,殘缺的 token 一律拒絕
func GetViewerFromToken(tokenString string, jwtSecret string) (models.ViewerIdentity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return models.ViewerIdentity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.ViewerIdentity{}, errors.New("invalid token claims")
	}

	id, _ := claims["userId"].(string)
	name, _ := claims["name"].(string)
	avatar, _ := claims["avatar"].(string)
	if id == "" || name == "" || avatar == "" {
		return models.ViewerIdentity{}, errors.New("token is missing viewer fields")
	}

	return models.ViewerIdentity{ID: id, Name: name, Avatar: avatar}, nil
}
