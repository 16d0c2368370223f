package database

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore 把每個房間存成 rooms collection 裡的單一文件,
// questions/likes 以巢狀欄位(點號路徑)的方式掛在文件底下。
// 每次成功寫入後透過 Redis 發佈房間 ID,訂閱端收到通知就重新讀取完整快照
// (沿用外部儲存「任何變更都送整棵子樹」的模型)
type MongoStore struct {
	client *mongo.Client
	dbName string
	rdb    *redis.Client
}

// ConnectMongoStore 建立並初始化 MongoDB 連線,回傳可用的儲存層
func ConnectMongoStore(uri, dbName string, rdb *redis.Client) (*MongoStore, error) {
	// DefaultDocumentM:讓巢狀文件解碼成 bson.M 而不是 bson.D,投影層才好遍歷
	clientOptions := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	log.Println("Connected to MongoDB successfully!")
	return &MongoStore{client: client, dbName: dbName, rdb: rdb}, nil
}

// rooms 獲取 rooms 集合
func (s *MongoStore) rooms() *mongo.Collection {
	return s.client.Database(s.dbName).Collection("rooms")
}

// channelFor 某個房間的變更通知頻道名稱
func channelFor(roomID string) string {
	return "go-ask:room:" + roomID
}

// notify 發佈房間變更通知。通知失敗只記錄,不讓已經成功的寫入跟著失敗
// 沒接通知匯流排時(只測持久化的場景)直接略過
func (s *MongoStore) notify(ctx context.Context, roomID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Publish(ctx, channelFor(roomID), roomID).Err(); err != nil {
		log.Printf("Error publishing change for room %s: %v", roomID, err)
	}
}

// fieldPath 把路徑剩餘的段落接成 MongoDB 的點號欄位路徑
func fieldPath(segs []string) string {
	return strings.Join(segs, ".")
}

// Push 新增一筆資料。path 為 "rooms" 時建立新房間文件,
// 更深的路徑(例如 rooms/r1/questions)則在既有文件底下掛一個新的子物件
func (s *MongoStore) Push(ctx context.Context, path string, value map[string]any) (string, error) {
	segs, err := splitPath(path)
	if err != nil {
		return "", err
	}

	// ObjectID 的 Hex 以時間開頭,升冪排序就是寫入順序
	key := primitive.NewObjectID().Hex()

	if len(segs) == 1 {
		doc := bson.M{"_id": key}
		for k, v := range value {
			doc[k] = v
		}
		if _, err := s.rooms().InsertOne(ctx, doc); err != nil {
			return "", err
		}
		s.notify(ctx, key)
		return key, nil
	}
	if len(segs) < 3 {
		// rooms/{id} 底下沒有可以 push 的位置,子物件一定掛在更深的欄位
		return "", ErrBadPath
	}

	roomID := segs[1]
	field := fieldPath(segs[2:]) + "." + key
	// upsert:房間文件還不存在就連著中間路徑一起建出來,跟記憶體儲存一致
	_, err = s.rooms().UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$set": bson.M{field: value}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return "", err
	}
	s.notify(ctx, roomID)
	return key, nil
}

// Update 部分更新 path 指到的物件,只動 partial 裡列出的欄位
func (s *MongoStore) Update(ctx context.Context, path string, partial map[string]any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(segs) < 2 {
		return ErrBadPath
	}

	roomID := segs[1]
	set := bson.M{}
	for k, v := range partial {
		if len(segs) == 2 {
			set[k] = v
		} else {
			set[fieldPath(segs[2:])+"."+k] = v
		}
	}
	_, err = s.rooms().UpdateOne(ctx, bson.M{"_id": roomID}, bson.M{"$set": set},
		options.Update().SetUpsert(true))
	if err != nil {
		return err
	}
	s.notify(ctx, roomID)
	return nil
}

// Remove 移除 path 指到的子樹。房間層級是刪整份文件,更深的路徑用 $unset
// 目標本來就不存在時 MongoDB 視為 no-op,這裡也照樣發通知讓訂閱端保持一致
func (s *MongoStore) Remove(ctx context.Context, path string) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(segs) < 2 {
		return ErrBadPath
	}
	roomID := segs[1]

	if len(segs) == 2 {
		if _, err := s.rooms().DeleteOne(ctx, bson.M{"_id": roomID}); err != nil {
			return err
		}
	} else {
		_, err := s.rooms().UpdateOne(ctx,
			bson.M{"_id": roomID},
			bson.M{"$unset": bson.M{fieldPath(segs[2:]): ""}},
		)
		if err != nil {
			return err
		}
	}
	s.notify(ctx, roomID)
	return nil
}

// Get 讀取 path 目前的快照。找不到資料時回傳 (nil, nil)
func (s *MongoStore) Get(ctx context.Context, path string) (Snapshot, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if len(segs) < 2 {
		return nil, ErrBadPath
	}

	var doc bson.M
	err = s.rooms().FindOne(ctx, bson.M{"_id": segs[1]}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	delete(doc, "_id")

	// 路徑比房間更深時,沿著欄位往下走
	node := any(doc)
	for _, seg := range segs[2:] {
		m, ok := node.(bson.M)
		if !ok {
			if mm, isMap := node.(map[string]any); isMap {
				m = mm
			} else {
				return nil, nil
			}
		}
		node, ok = m[seg]
		if !ok {
			return nil, nil
		}
	}
	switch m := node.(type) {
	case bson.M:
		return m, nil
	case map[string]any:
		return m, nil
	}
	return nil, nil
}

// Subscribe 開啟一條房間訂閱。只支援訂閱整個房間(rooms/{roomId})
func (s *MongoStore) Subscribe(path string, onChange func(Snapshot)) (Subscription, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if len(segs) != 2 {
		return nil, ErrBadPath
	}
	return newRedisSubscription(s, segs[1], onChange), nil
}

// Disconnect 關閉 MongoDB 連線
func (s *MongoStore) Disconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		log.Printf("Error disconnecting from MongoDB: %v", err)
	} else {
		log.Println("Disconnected from MongoDB.")
	}
}
