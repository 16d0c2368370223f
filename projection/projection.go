package projection

import (
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-ask/backend/models"
)

// Project 把房間的原始快照(巢狀 key 索引的 map)轉成穩定排序的畫面模型
// 這是一個純函式:同樣的 (snapshot, viewerID) 永遠得到同樣的結果,不保留任何狀態。
// 所以同一個快照重複送達是無害的 no-op,觀看者在房間開著時才登入,
// 也只需要用新的 viewerID 重跑一次,完全不用重新訂閱
//
// 排序規則:問題依儲存層配發的 key 升冪排列(= 寫入順序),
// 跟傳進來的 map 迭代順序無關,重跑投影也不會變
func Project(snapshot map[string]any, viewerID string) (models.RoomView, error) {
	var view models.RoomView
	view.Questions = []models.ProjectedQuestion{}

	// 房間還沒有任何資料(訂閱剛開、房間剛建),不是錯誤
	if snapshot == nil {
		return view, nil
	}

	title, ok := optString(snapshot["title"])
	if !ok {
		return view, fmt.Errorf("snapshot: title is not a string")
	}
	view.Title = title

	if raw, exists := snapshot["endedAt"]; exists && raw != nil {
		t, ok := asTime(raw)
		if !ok {
			return view, fmt.Errorf("snapshot: endedAt is not a timestamp")
		}
		view.EndedAt = &t
	}

	raw, exists := snapshot["questions"]
	if !exists || raw == nil {
		return view, nil
	}
	questions, ok := asMap(raw)
	if !ok {
		return view, fmt.Errorf("snapshot: questions is not a map")
	}

	keys := make([]string, 0, len(questions))
	for key := range questions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		node, ok := asMap(questions[key])
		if !ok {
			return view, fmt.Errorf("snapshot: question %s is not a map", key)
		}
		q, err := projectQuestion(key, node, viewerID)
		if err != nil {
			return view, err
		}
		view.Questions = append(view.Questions, q)
	}
	return view, nil
}

// projectQuestion 投影單一問題:算出 likeCount 跟「我的讚」
func projectQuestion(id string, node map[string]any, viewerID string) (models.ProjectedQuestion, error) {
	q := models.ProjectedQuestion{ID: id}

	content, ok := node["content"].(string)
	if !ok {
		return q, fmt.Errorf("snapshot: question %s has no content", id)
	}
	q.Content = content

	author, ok := asMap(node["author"])
	if !ok {
		return q, fmt.Errorf("snapshot: question %s has no author", id)
	}
	if name, ok := optString(author["name"]); ok {
		q.Author.Name = name
	}
	if avatar, ok := optString(author["avatar"]); ok {
		q.Author.Avatar = avatar
	}

	highlighted, ok := optBool(node["isHighlighted"])
	if !ok {
		return q, fmt.Errorf("snapshot: question %s has a bad isHighlighted flag", id)
	}
	q.IsHighlighted = highlighted

	answered, ok := optBool(node["isAnswered"])
	if !ok {
		return q, fmt.Errorf("snapshot: question %s has a bad isAnswered flag", id)
	}
	q.IsAnswered = answered

	// likes 不存在就當成 0 個讚
	rawLikes, exists := node["likes"]
	if !exists || rawLikes == nil {
		return q, nil
	}
	likes, ok := asMap(rawLikes)
	if !ok {
		return q, fmt.Errorf("snapshot: question %s has malformed likes", id)
	}
	q.LikeCount = len(likes)

	if viewerID == "" {
		return q, nil
	}

	// 「我的讚」:authorId 等於目前觀看者的那一筆
	// 儲存層不擋同一個人重複按讚,真的出現多筆時固定取 key 升冪的第一筆
	likeKeys := make([]string, 0, len(likes))
	for key := range likes {
		likeKeys = append(likeKeys, key)
	}
	sort.Strings(likeKeys)
	for _, key := range likeKeys {
		like, ok := asMap(likes[key])
		if !ok {
			continue
		}
		if authorID, _ := optString(like["authorId"]); authorID == viewerID {
			q.LikeID = key
			break
		}
	}
	return q, nil
}

// asMap 同時容忍普通 map 跟 mongo 解碼出來的 bson.M
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case bson.M:
		return m, true
	}
	return nil, false
}

// optString 缺欄位視為空字串,型別錯誤才失敗
func optString(v any) (string, bool) {
	if v == nil {
		return "", true
	}
	s, ok := v.(string)
	return s, ok
}

// optBool 缺欄位視為 false,型別錯誤才失敗
func optBool(v any) (bool, bool) {
	if v == nil {
		return false, true
	}
	b, ok := v.(bool)
	return b, ok
}

// asTime mongo 把時間解碼成 primitive.DateTime,記憶體儲存則是 time.Time
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}
