package commands

import (
	"errors"
	"fmt"
)

// 錯誤分類:驗證錯誤跟找不到房間會在寫入前就立即回報,
// 跟暫時性的儲存失敗分開,讓呼叫端自行決定要不要重試
var (
	// ErrRoomNotFound:房間代碼對不到任何房間
	ErrRoomNotFound = errors.New("room does not exist")
	// ErrRoomEnded:房間已經被房主結束
	ErrRoomEnded = errors.New("room already ended")
	// ErrNoIdentity:需要登入的操作在沒有觀看者身份時被呼叫
	ErrNoIdentity = errors.New("viewer identity required")
)

// ValidationError 代表寫入前就能擋下的輸入錯誤,不會觸發任何儲存層寫入
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// StoreError 包裝儲存層的暫時性失敗
// 指令不會自動重試:重送 postQuestion/toggleLike 可能造成重複效果
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
