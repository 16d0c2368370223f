package commands

import (
	"context"
	"strings"
	"time"

	"go-ask/backend/database"
	"go-ask/backend/models"
)

// Commands 對外部儲存發出變更意圖
// 每個指令都是「發出、然後等快照」:寫入被儲存層確認後就返回,
// 本地畫面絕不在這裡直接改——效果要等下一個快照從訂閱流回來才看得到
type Commands struct {
	store database.Store
}

// New 建立指令層。儲存層由外面傳進來,測試時可以換成替身
func New(store database.Store) *Commands {
	return &Commands{store: store}
}

// CreateRoom 建立新房間,回傳儲存層配發的房間 ID(也就是房間代碼)
func (c *Commands) CreateRoom(ctx context.Context, title, authorID string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if authorID == "" {
		return "", ErrNoIdentity
	}

	id, err := c.store.Push(ctx, "rooms", map[string]any{
		"title":     title,
		"authorId":  authorID,
		"createdAt": time.Now(),
	})
	if err != nil {
		return "", &StoreError{Op: "create room", Err: err}
	}
	return id, nil
}

// JoinRoom 用房間代碼加入:代碼對不到房間、或房間已經結束都會被拒絕
func (c *Commands) JoinRoom(ctx context.Context, roomID string) (models.Room, error) {
	snap, err := c.store.Get(ctx, "rooms/"+roomID)
	if err != nil {
		return models.Room{}, &StoreError{Op: "join room", Err: err}
	}
	if snap == nil {
		return models.Room{}, ErrRoomNotFound
	}
	if endedAt, exists := snap["endedAt"]; exists && endedAt != nil {
		return models.Room{}, ErrRoomEnded
	}

	room := models.Room{ID: roomID}
	if title, ok := snap["title"].(string); ok {
		room.Title = title
	}
	if authorID, ok := snap["authorId"].(string); ok {
		room.AuthorID = authorID
	}
	return room, nil
}

// PostQuestion 代表目前的觀看者送出一個問題
// 新問題固定從未強調、未回答、零個讚開始
func (c *Commands) PostQuestion(ctx context.Context, roomID, content string, author *models.ViewerIdentity) (string, error) {
	if author == nil {
		return "", ErrNoIdentity
	}
	if strings.TrimSpace(content) == "" {
		return "", &ValidationError{Field: "content", Reason: "must not be empty"}
	}

	id, err := c.store.Push(ctx, "rooms/"+roomID+"/questions", map[string]any{
		"content": content,
		"author": map[string]any{
			"name":   author.Name,
			"avatar": author.Avatar,
		},
		"isHighlighted": false,
		"isAnswered":    false,
		"likes":         map[string]any{},
	})
	if err != nil {
		return "", &StoreError{Op: "post question", Err: err}
	}
	return id, nil
}

// ToggleLike 依「最近一次投影」的結果決定收回還是新增讚
// currentLikeID 來自投影,這裡不會回頭重新查詢儲存層:
// 兩次快速連按可能都判定「還沒按過」而各新增一筆——
// 這是已知且刻意保留的競態行為,投影端會固定把 key 最小的那筆當成「我的讚」
func (c *Commands) ToggleLike(ctx context.Context, roomID, questionID, currentLikeID, viewerID string) error {
	if viewerID == "" {
		return ErrNoIdentity
	}

	base := "rooms/" + roomID + "/questions/" + questionID + "/likes"
	if currentLikeID != "" {
		if err := c.store.Remove(ctx, base+"/"+currentLikeID); err != nil {
			return &StoreError{Op: "remove like", Err: err}
		}
		return nil
	}
	if _, err := c.store.Push(ctx, base, map[string]any{"authorId": viewerID}); err != nil {
		return &StoreError{Op: "add like", Err: err}
	}
	return nil
}

// DeleteQuestion 移除整個問題子樹。問題已經不存在時儲存層視為 no-op
func (c *Commands) DeleteQuestion(ctx context.Context, roomID, questionID string) error {
	if err := c.store.Remove(ctx, "rooms/"+roomID+"/questions/"+questionID); err != nil {
		return &StoreError{Op: "delete question", Err: err}
	}
	return nil
}

// HighlightQuestion 房主把問題標為重點
func (c *Commands) HighlightQuestion(ctx context.Context, roomID, questionID string) error {
	err := c.store.Update(ctx, "rooms/"+roomID+"/questions/"+questionID, map[string]any{
		"isHighlighted": true,
	})
	if err != nil {
		return &StoreError{Op: "highlight question", Err: err}
	}
	return nil
}

// MarkAnswered 房主把問題標為已回答
func (c *Commands) MarkAnswered(ctx context.Context, roomID, questionID string) error {
	err := c.store.Update(ctx, "rooms/"+roomID+"/questions/"+questionID, map[string]any{
		"isAnswered": true,
	})
	if err != nil {
		return &StoreError{Op: "mark answered", Err: err}
	}
	return nil
}

// EndRoom 標記房間結束(設定 endedAt),房間本身不會被刪除
func (c *Commands) EndRoom(ctx context.Context, roomID string) error {
	err := c.store.Update(ctx, "rooms/"+roomID, map[string]any{
		"endedAt": time.Now(),
	})
	if err != nil {
		return &StoreError{Op: "end room", Err: err}
	}
	return nil
}
