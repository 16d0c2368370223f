// backend/utils/utils_test.go
package utils

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert" // 引入 testify/assert

	"go-ask/backend/models"
)

var testViewer = models.ViewerIdentity{ID: "viewer-1", Name: "testuser", Avatar: "https://example.com/a.png"}

func TestGenerateJWT(t *testing.T) {
	secret := "test-secret"

	// 執行要測試的函式
	tokenString, err := GenerateJWT(testViewer, secret)

	// --- 使用 testify/assert 進行斷言 ---

	// 1. 斷言錯誤為 nil
	assert.NoError(t, err, "生成 JWT 不應該返回錯誤")

	// 2. 斷言 token 字串不為空
	assert.NotEmpty(t, tokenString, "生成的 JWT token 不應該是空的")

	// 3. 解析並驗證 token 內容
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 驗證簽名演算法是否正確
		_, ok := token.Method.(*jwt.SigningMethodHMAC)
		assert.True(t, ok, "非預期的簽名演算法")
		return []byte(secret), nil
	})

	// 斷言 token 解析成功且有效
	assert.NoError(t, err, "解析 JWT token 不應該返回錯誤")
	assert.True(t, token.Valid, "JWT token 應該是有效的")

	// 4. 驗證 token 的聲明 (Claims)
	claims, ok := token.Claims.(jwt.MapClaims)
	assert.True(t, ok, "無法讀取 JWT claims")

	// 驗證 claims 內容是否符合預期
	assert.Equal(t, testViewer.ID, claims["userId"], "userId claim 應該與原始觀看者相同")
	assert.Equal(t, testViewer.Name, claims["name"], "name claim 應該與原始觀看者相同")
	assert.Equal(t, testViewer.Avatar, claims["avatar"], "avatar claim 應該與原始觀看者相同")

	// 驗證過期時間 (exp) 是否在未來
	exp, ok := claims["exp"].(float64)
	assert.True(t, ok, "exp claim 格式錯誤")
	assert.Greater(t, int64(exp), time.Now().Unix(), "過期時間應該在未來")
}

func TestGetViewerFromToken(t *testing.T) {
	secret := "test-secret"
	tokenString, err := GenerateJWT(testViewer, secret)
	assert.NoError(t, err)

	// 正確的密鑰:還原出完整的觀看者身份
	viewer, err := GetViewerFromToken(tokenString, secret)
	assert.NoError(t, err, "解析自己簽發的 token 不應該失敗")
	assert.Equal(t, testViewer, viewer)

	// 錯誤的密鑰:一律拒絕
	_, err = GetViewerFromToken(tokenString, "wrong-secret")
	assert.Error(t, err, "錯誤密鑰簽發的 token 應該被拒絕")

	// 亂七八糟的字串也一樣
	_, err = GetViewerFromToken("not-a-token", secret)
	assert.Error(t, err)
}

func TestGetViewerFromTokenRejectsIncompleteClaims(t *testing.T) {
	secret := "test-secret"

	// 手工簽一個缺 avatar 的 token:三個欄位缺一不可
	claims := jwt.MapClaims{
		"userId": "viewer-1",
		"name":   "testuser",
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	assert.NoError(t, err)

	_, err = GetViewerFromToken(tokenString, secret)
	assert.Error(t, err, "缺欄位的 token 不應該還原出身份")
}

func TestGetViewerFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), ViewerKey, testViewer)

	viewer, err := GetViewerFromContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, testViewer, viewer)

	// context 裡沒放身份時要返回錯誤
	_, err = GetViewerFromContext(context.Background())
	assert.Error(t, err, "沒有身份的 context 應該返回錯誤")
}
