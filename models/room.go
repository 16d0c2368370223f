package models

import "time"

// Room 代表一個問答房間的元資料
type Room struct {
	ID        string     `json:"id,omitempty"`
	Title     string     `json:"title"`
	AuthorID  string     `json:"authorId"` // 房間建立者(房主)的使用者 ID
	CreatedAt time.Time  `json:"createdAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"` // 房間結束時間，nil 代表仍在進行中
}

// RoomView 代表投影後、可以直接給前端渲染的房間畫面
// 注意:這是衍生資料，不會被持久化，每次快照或觀看者變動時都會重新計算
type RoomView struct {
	Title     string              `json:"title"`
	EndedAt   *time.Time          `json:"endedAt,omitempty"`
	Questions []ProjectedQuestion `json:"questions"` // 依照儲存層 key 升冪排序
}
