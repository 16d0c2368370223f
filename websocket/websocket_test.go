package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-ask/backend/database"
	"go-ask/backend/models"
	"go-ask/backend/utils"
)

const testSecret = "test-secret"

var testViewer = models.ViewerIdentity{ID: "viewer-1", Name: "A", Avatar: "a.png"}

// seedLikedRoom 準備一個房間:一個問題,testViewer 按過一個讚
func seedLikedRoom(t *testing.T, store database.Store) string {
	t.Helper()
	ctx := context.Background()
	roomID, err := store.Push(ctx, "rooms", map[string]any{"title": "Demo", "authorId": "host"})
	require.NoError(t, err)
	questionID, err := store.Push(ctx, "rooms/"+roomID+"/questions", map[string]any{
		"content":       "Hi",
		"author":        map[string]any{"name": "A", "avatar": "a.png"},
		"isHighlighted": false,
		"isAnswered":    false,
	})
	require.NoError(t, err)
	_, err = store.Push(ctx, "rooms/"+roomID+"/questions/"+questionID+"/likes",
		map[string]any{"authorId": testViewer.ID})
	require.NoError(t, err)
	return roomID
}

func TestAuthCommandDrivesViewerThroughSession(t *testing.T) {
	// auth 訊息走完整的身份管線:token -> provider -> session 驗證 -> watcher 重投影
	store := database.NewMemoryStore()
	roomID := seedLikedRoom(t, store)

	hub := NewHub(store, testSecret)
	client := hub.newClient(nil, roomID)
	defer client.watcher.Close()
	defer client.session.Close()

	require.NoError(t, client.session.Restore())
	require.NoError(t, client.watcher.SetRoom(roomID))

	view, ok := client.watcher.View()
	require.True(t, ok)
	assert.Empty(t, view.Questions[0].LikeID, "登入前是訪客,不該有自己的讚")

	token, err := utils.GenerateJWT(testViewer, testSecret)
	require.NoError(t, err)
	client.handleCommand(ClientCommand{Type: "auth", Token: token})

	view, _ = client.watcher.View()
	assert.NotEmpty(t, view.Questions[0].LikeID, "登入後馬上要看到自己按過的讚")

	viewer, ok := client.session.Current()
	require.True(t, ok, "session 應該持有驗證過的身份")
	assert.Equal(t, testViewer, viewer)
}

func TestAuthCommandRejectsBadToken(t *testing.T) {
	store := database.NewMemoryStore()
	roomID := seedLikedRoom(t, store)

	hub := NewHub(store, testSecret)
	client := hub.newClient(nil, roomID)
	defer client.watcher.Close()
	defer client.session.Close()

	require.NoError(t, client.session.Restore())
	require.NoError(t, client.watcher.SetRoom(roomID))

	client.handleCommand(ClientCommand{Type: "auth", Token: "not-a-token"})

	_, ok := client.session.Current()
	assert.False(t, ok, "壞 token 不應該建立任何身份")
	view, _ := client.watcher.View()
	assert.Empty(t, view.Questions[0].LikeID)
}

// dialHub 起一個測試伺服器並建立 WebSocket 連線
func dialHub(t *testing.T, hub *Hub, query string) *gws.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleConnections))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "WebSocket 連線應該建立成功")
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readView 讀下一則房間畫面
func readView(t *testing.T, conn *gws.Conn) models.RoomView {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err, "應該在時限內收到房間畫面")

	var view models.RoomView
	require.NoError(t, json.Unmarshal(payload, &view))
	return view
}

func TestConnectTokenRestoresViewer(t *testing.T) {
	// 連線時帶 token = 已持久化的登入狀態:第一個畫面就要帶自己的讚
	store := database.NewMemoryStore()
	roomID := seedLikedRoom(t, store)
	token, err := utils.GenerateJWT(testViewer, testSecret)
	require.NoError(t, err)

	hub := NewHub(store, testSecret)
	go hub.Run()
	defer hub.Stop()

	conn := dialHub(t, hub, "roomId="+roomID+"&token="+token)

	view := readView(t, conn)
	assert.Equal(t, "Demo", view.Title)
	require.Len(t, view.Questions, 1)
	assert.Equal(t, 1, view.Questions[0].LikeCount)
	assert.NotEmpty(t, view.Questions[0].LikeID, "連線 token 應該直接還原出觀看者身份")
}

func TestHubStopClosesClients(t *testing.T) {
	store := database.NewMemoryStore()
	roomID := seedLikedRoom(t, store)

	hub := NewHub(store, testSecret)
	go hub.Run()

	conn := dialHub(t, hub, "roomId="+roomID)
	readView(t, conn) // 收到畫面代表客戶端已經註冊完成

	hub.Stop()

	// 關閉後連線應該在時限內被斷開(逾時代表根本沒被關)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatal("hub 停止後連線應該被關閉,而不是等到逾時")
		}
		return
	}
}

func TestEnqueueViewDropsOldestWhenFull(t *testing.T) {
	client := &Client{send: make(chan models.RoomView, 1)}

	// 通道滿了:丟掉最舊的,換上最新的,而且不會阻塞
	client.enqueueView(models.RoomView{Title: "one"})
	client.enqueueView(models.RoomView{Title: "two"})
	client.enqueueView(models.RoomView{Title: "three"})

	got := <-client.send
	assert.Equal(t, "three", got.Title, "客戶端只在乎最新的畫面")
	assert.Empty(t, client.send, "最多只留一則待送畫面")
}
