package database

import (
	"context"
	"errors"
	"strings"
)

// Snapshot 是某個子樹在某一刻的完整狀態(巢狀 map)
// 注意:外部儲存每次變更都送「整棵子樹」,不是差異量
type Snapshot = map[string]any

// Subscription 代表一條活著的變更訂閱
// Close 返回之後,保證不會再有任何快照透過這條訂閱送達
type Subscription interface {
	Close()
}

// Store 是階層式文件儲存的抽象
// 路徑沿用外部儲存的邏輯位址,例如 "rooms/{roomId}/questions/{qId}/likes"
// 這裡刻意用介面而不是套件全域變數,測試時才能用替身替換掉整個儲存層
type Store interface {
	// Push 在 path 底下新增一筆資料,回傳儲存層配發的 key
	// 配發的 key 保證依寫入順序升冪,這是投影排序穩定性的基礎
	Push(ctx context.Context, path string, value map[string]any) (string, error)

	// Update 對 path 指到的物件做部分更新
	Update(ctx context.Context, path string, partial map[string]any) error

	// Remove 移除 path 指到的整個子樹。目標已不存在時視為 no-op
	Remove(ctx context.Context, path string) error

	// Get 讀取 path 目前的快照。資料不存在時回傳 (nil, nil),不是錯誤
	Get(ctx context.Context, path string) (Snapshot, error)

	// Subscribe 對一個房間開啟活的訂閱:先送一次目前的快照(可能是 nil),
	// 之後房間每次被寫入就再送一次完整快照。快照依發佈順序逐一送達
	Subscribe(path string, onChange func(Snapshot)) (Subscription, error)
}

// ErrBadPath 代表路徑不符合 rooms/{roomId}/... 的格式
var ErrBadPath = errors.New("invalid store path")

// splitPath 把 "rooms/r1/questions/q1" 拆成段並做基本驗證
// 第一段一定要是 rooms(對應 collection),不允許空白段
func splitPath(path string) ([]string, error) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 0 || segs[0] != "rooms" {
		return nil, ErrBadPath
	}
	for _, s := range segs {
		if s == "" {
			return nil, ErrBadPath
		}
	}
	return segs, nil
}
