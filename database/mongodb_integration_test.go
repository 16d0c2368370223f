package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// 啟動一個拋棄式的 MongoDB 容器做完整的讀寫驗證
// 跑得比單元測試慢很多,go test -short 會跳過
func startMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	if testing.Short() {
		t.Skip("短模式跳過容器整合測試")
	}

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "MongoDB 容器應該啟動成功")

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := ConnectMongoStore(uri, "goask_test", nil)
	require.NoError(t, err, "應該連上容器裡的 MongoDB")
	t.Cleanup(store.Disconnect)
	return store
}

func TestMongoStoreRoundtrip(t *testing.T) {
	store := startMongoStore(t)
	ctx := context.Background()

	roomID, err := store.Push(ctx, "rooms", map[string]any{"title": "Demo", "authorId": "host"})
	require.NoError(t, err)
	require.NotEmpty(t, roomID)

	snap, err := store.Get(ctx, "rooms/"+roomID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "Demo", snap["title"])
	assert.NotContains(t, snap, "_id", "快照不應該洩漏儲存層的內部欄位")

	// 在房間底下掛問題,再掛讚
	questionID, err := store.Push(ctx, "rooms/"+roomID+"/questions", map[string]any{
		"content":       "Hi",
		"author":        map[string]any{"name": "A", "avatar": "a.png"},
		"isHighlighted": false,
		"isAnswered":    false,
	})
	require.NoError(t, err)

	likeID, err := store.Push(ctx, "rooms/"+roomID+"/questions/"+questionID+"/likes",
		map[string]any{"authorId": "viewerX"})
	require.NoError(t, err)
	assert.Greater(t, likeID, questionID, "後配發的 key 應該比較大(升冪 = 寫入順序)")

	likes, err := store.Get(ctx, "rooms/"+roomID+"/questions/"+questionID+"/likes")
	require.NoError(t, err)
	require.Len(t, likes, 1)

	// 部分更新只動列出的欄位
	require.NoError(t, store.Update(ctx, "rooms/"+roomID+"/questions/"+questionID,
		map[string]any{"isAnswered": true}))
	question, err := store.Get(ctx, "rooms/"+roomID+"/questions/"+questionID)
	require.NoError(t, err)
	assert.Equal(t, true, question["isAnswered"])
	assert.Equal(t, "Hi", question["content"])

	// 收回讚
	require.NoError(t, store.Remove(ctx, "rooms/"+roomID+"/questions/"+questionID+"/likes/"+likeID))
	likes, err = store.Get(ctx, "rooms/"+roomID+"/questions/"+questionID+"/likes")
	require.NoError(t, err)
	assert.Empty(t, likes)
}

func TestMongoStoreGetMissing(t *testing.T) {
	store := startMongoStore(t)
	ctx := context.Background()

	snap, err := store.Get(ctx, "rooms/000000000000000000000000")
	assert.NoError(t, err, "讀不存在的房間不是錯誤")
	assert.Nil(t, snap)

	roomID, err := store.Push(ctx, "rooms", map[string]any{"title": "Demo"})
	require.NoError(t, err)

	snap, err = store.Get(ctx, "rooms/"+roomID+"/questions/nope")
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestMongoStorePushToAbsentRoomCreatesIt(t *testing.T) {
	// 對還不存在的房間文件做深層寫入:跟記憶體儲存一樣,連著路徑一起建出來,
	// 絕不能回報成功卻什麼都沒存
	store := startMongoStore(t)
	ctx := context.Background()

	roomID := "brand-new-room"
	questionID, err := store.Push(ctx, "rooms/"+roomID+"/questions", map[string]any{
		"content":       "Hi",
		"author":        map[string]any{"name": "A", "avatar": "a.png"},
		"isHighlighted": false,
		"isAnswered":    false,
	})
	require.NoError(t, err)

	question, err := store.Get(ctx, "rooms/"+roomID+"/questions/"+questionID)
	require.NoError(t, err)
	require.NotNil(t, question, "寫入回報成功就必須真的存得進去")
	assert.Equal(t, "Hi", question["content"])

	// Update 也一樣:房間不存在就建出來
	require.NoError(t, store.Update(ctx, "rooms/another-room", map[string]any{"title": "Late"}))
	snap, err := store.Get(ctx, "rooms/another-room")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "Late", snap["title"])
}

func TestMongoStoreRemoveRoom(t *testing.T) {
	store := startMongoStore(t)
	ctx := context.Background()

	roomID, err := store.Push(ctx, "rooms", map[string]any{"title": "Demo"})
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, "rooms/"+roomID))
	snap, err := store.Get(ctx, "rooms/"+roomID)
	require.NoError(t, err)
	assert.Nil(t, snap)

	// 已經刪掉的房間再刪一次:no-op
	assert.NoError(t, store.Remove(ctx, "rooms/"+roomID))
}
