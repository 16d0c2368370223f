package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"go-ask/backend/database"
	"go-ask/backend/feed"
	"go-ask/backend/identity"
	"go-ask/backend/models"
	"go-ask/backend/utils"
)

const (
	// 將訊息寫入到遠端對等點的最長時間
	writeWait = 10 * time.Second

	// 允許從遠端對等點讀取下一個 pong 訊息的最長時間。
	pongWait = 60 * time.Second

	// 發送 ping 訊息給遠端對等點的週期。
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// upgrader 用於將 HTTP 連線升級為 WebSocket 連線
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 設定true:允許所有來源的連線
		return true
	},
}

// ClientCommand 是前端透過 WebSocket 送上來的控制訊息
// join:切換房間(watcher 會先關舊訂閱)
// auth:登入或換帳號(只重跑投影,不重新訂閱)
type ClientCommand struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Token  string `json:"token,omitempty"`
}

// Client 代表一個 WebSocket 客戶端
// 每個客戶端獨佔一個 watcher,也就獨佔一條房間訂閱——
// 往客戶端送的每一則訊息都是完整的房間畫面(RoomView)。
// 觀看者身份由客戶端自己的 session 管理:傳輸層解析出的登入主體
// 餵給 provider,session 驗證通過後才透過 OnChange 推進 watcher
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan models.RoomView
	watcher  *feed.Watcher
	provider *identity.TokenProvider
	session  *identity.Session
	RoomID   string // 客戶端目前所在的房間ID(只由 hub 的 Run 迴圈讀寫)
}

// roomChange 通知 hub 某個客戶端換了房間(用於分組記錄)
type roomChange struct {
	client *Client
	roomID string
}

// enqueueView 把新投影出的畫面放進發送通道
// 通道滿了就丟掉最舊的一則再試一次:客戶端只在乎最新狀態,
// 中間的快照被蓋掉沒有關係。最多重試一次,不會原地空轉
func (c *Client) enqueueView(view models.RoomView) {
	select {
	case c.send <- view:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- view:
		default:
		}
	}
}

// deliverToken 把傳輸層收到的 token 解析成登入主體餵給 session
// token 壞掉就略過,客戶端維持原本的身份(或訪客)
func (c *Client) deliverToken(token string) {
	viewer, err := utils.GetViewerFromToken(token, c.hub.jwtSecret)
	if err != nil {
		log.Printf("Rejecting ws auth token: %v", err)
		return
	}
	c.provider.Deliver(&identity.Principal{ID: viewer.ID, Name: viewer.Name, Avatar: viewer.Avatar})
}

// handleCommand 處理一則前端送上來的控制訊息
func (c *Client) handleCommand(cmd ClientCommand) {
	switch cmd.Type {
	case "join":
		// 換房間:舊訂閱先關,舊房間的快照不會再送到這個客戶端
		if err := c.watcher.SetRoom(cmd.RoomID); err != nil {
			log.Printf("Error switching to room %s: %v", cmd.RoomID, err)
			return
		}
		select {
		case c.hub.rekey <- roomChange{client: c, roomID: cmd.RoomID}:
		case <-c.hub.quit:
		}
	case "auth":
		// 登入(或換帳號):session 驗證通過後,同一份快照重新投影,
		// 立刻看到自己按過的讚
		c.deliverToken(cmd.Token)
	default:
		log.Printf("Unknown client command type: %q", cmd.Type)
	}
}

// 讀取客戶端傳來的控制訊息,並交給 watcher / hub
func (c *Client) readPump() {
	defer func() {
		// hub 已經停止時客戶端資源由 Run 的收尾統一釋放,不再送 unregister
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, p, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("Client disconnected gracefully.")
			} else {
				log.Printf("Error reading message: %v", err)
			}
			break
		}

		var cmd ClientCommand
		if err := json.Unmarshal(p, &cmd); err != nil {
			log.Printf("Error unmarshalling client command: %v", err)
			continue
		}
		c.handleCommand(cmd)
	}
}

// 接收 watcher 投影出的畫面,丟給前端
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case view, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道被關閉了,送出 CloseMessage
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			jsonView, err := json.Marshal(view)
			if err != nil {
				log.Printf("Error marshalling room view: %v", err)
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, jsonView); err != nil {
				log.Printf("Error writing room view: %v", err)
				return
			}

		// 接收定時器以保持連線活躍並檢測客戶端是否仍在線。
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub 維護所有活躍的 WebSocket 客戶端,按房間分組(用於記錄與關閉)
// 畫面內容不經過 Hub:每個客戶端的 watcher 自己接訂閱流
type Hub struct {
	store     database.Store
	jwtSecret string

	clients       map[*Client]bool
	clientsByRoom map[string]map[*Client]bool
	register      chan *Client
	unregister    chan *Client
	rekey         chan roomChange
	quit          chan struct{}
}

// NewHub 創建並返回一個新的 Hub 實例
func NewHub(store database.Store, jwtSecret string) *Hub {
	return &Hub{
		store:         store,
		jwtSecret:     jwtSecret,
		clients:       make(map[*Client]bool),
		clientsByRoom: make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		rekey:         make(chan roomChange),
		quit:          make(chan struct{}),
	}
}

// addToRoom / removeFromRoom 只在 Run 迴圈裡呼叫
func (h *Hub) addToRoom(client *Client, roomID string) {
	if _, ok := h.clientsByRoom[roomID]; !ok {
		h.clientsByRoom[roomID] = make(map[*Client]bool)
	}
	h.clientsByRoom[roomID][client] = true
}

func (h *Hub) removeFromRoom(client *Client, roomID string) {
	if _, ok := h.clientsByRoom[roomID]; ok {
		delete(h.clientsByRoom[roomID], client)
		if len(h.clientsByRoom[roomID]) == 0 {
			delete(h.clientsByRoom, roomID)
		}
	}
}

// closeClient 釋放一個客戶端的所有資源(只在 Run 迴圈裡呼叫)
// watcher.Close 返回之後不會再有投影回呼,關 send 通道是安全的
func (h *Hub) closeClient(client *Client) {
	delete(h.clients, client)
	h.removeFromRoom(client, client.RoomID)
	client.watcher.Close()
	client.session.Close()
	close(client.send)
}

// Run 啟動 Hub 的運行迴圈。Stop 被呼叫時關閉所有客戶端後返回
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.addToRoom(client, client.RoomID)
			log.Printf("Client registered to room %s. Total clients in room: %d", client.RoomID, len(h.clientsByRoom[client.RoomID]))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.closeClient(client)
				log.Printf("Client unregistered from room %s. Total clients in room: %d", client.RoomID, len(h.clientsByRoom[client.RoomID]))
			}
		case change := <-h.rekey:
			if _, ok := h.clients[change.client]; ok {
				h.removeFromRoom(change.client, change.client.RoomID)
				change.client.RoomID = change.roomID
				h.addToRoom(change.client, change.roomID)
				log.Printf("Client switched to room %s. Total clients in room: %d", change.roomID, len(h.clientsByRoom[change.roomID]))
			}
		case <-h.quit:
			for client := range h.clients {
				h.closeClient(client)
				client.conn.Close()
			}
			log.Println("Hub stopped, all clients closed.")
			return
		}
	}
}

// Stop 通知 Run 迴圈關閉所有客戶端並結束(伺服器優雅關閉時呼叫)
func (h *Hub) Stop() {
	close(h.quit)
}

// newClient 組出一個帶完整身份管線的客戶端
// session 驗證通過的身份變更,透過 OnChange 推進 watcher 重投影
func (h *Hub) newClient(conn *websocket.Conn, roomID string) *Client {
	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan models.RoomView, 16),
		provider: identity.NewTokenProvider(),
		RoomID:   roomID,
	}
	client.watcher = feed.NewWatcher(h.store, client.enqueueView)
	client.session = identity.NewSession(client.provider)
	client.session.OnChange(func(viewer models.ViewerIdentity) {
		client.watcher.SetViewer(viewer.ID)
	})
	return client
}

// HandleConnections 處理 WebSocket 連線請求
func (h *Hub) HandleConnections(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		http.Error(w, "Room ID is required for WebSocket connection", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := h.newClient(conn, roomID)

	// 先註冊監聽器,再餵連線當下的 token——這就是「已持久化的登入狀態」:
	// 沒帶或帶了壞的 token 就以訪客身份旁聽,之後還可以用 auth 訊息補登入
	if err := client.session.Restore(); err != nil {
		log.Printf("Error restoring session: %v", err)
	}
	if token := r.URL.Query().Get("token"); token != "" {
		client.deliverToken(token)
	}

	if err := client.watcher.SetRoom(roomID); err != nil {
		log.Printf("Failed to subscribe to room %s: %v", roomID, err)
		client.watcher.Close()
		client.session.Close()
		conn.Close()
		return
	}

	client.hub.register <- client

	go client.writePump()
	client.readPump() // readPump 會在連線關閉時自動取消註冊
}
