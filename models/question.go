package models

// Author 是問題上留存的提問者公開資訊
type Author struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Like 代表某位觀看者對一個問題按的讚
type Like struct {
	AuthorID string `json:"authorId"`
}

// Question 代表房間內的一個問題(儲存層形狀)
type Question struct {
	ID            string          `json:"id,omitempty"`
	Content       string          `json:"content"`
	Author        Author          `json:"author"`
	IsHighlighted bool            `json:"isHighlighted"`
	IsAnswered    bool            `json:"isAnswered"`
	Likes         map[string]Like `json:"likes,omitempty"` // likeId -> Like
}

// ProjectedQuestion 是問題的顯示用投影
// LikeCount 永遠等於快照當下 likes 的數量,LikeID 則是「目前觀看者自己的讚」的 key,
// 沒有按過讚(或尚未登入)時為空字串
type ProjectedQuestion struct {
	ID            string `json:"id"`
	Content       string `json:"content"`
	Author        Author `json:"author"`
	IsHighlighted bool   `json:"isHighlighted"`
	IsAnswered    bool   `json:"isAnswered"`
	LikeCount     int    `json:"likeCount"`
	LikeID        string `json:"likeId,omitempty"`
}
