package models

// ViewerIdentity 結構體定義了目前觀看者的身份資料
// 三個欄位缺一不可:身份提供者若少給了名稱或頭像，整個身份會被拒絕，而不是存一半
type ViewerIdentity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// ErrorResponse 結構體用於返回 JSON 格式的錯誤訊息
type ErrorResponse struct {
	Message string `json:"message"`
}
