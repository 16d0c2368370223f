package feed

import (
	"log"
	"sync"

	"go-ask/backend/database"
	"go-ask/backend/models"
	"go-ask/backend/projection"
)

// Watcher 把一條房間訂閱跟純投影接成持續運轉的管線,
// 管線的 key 是 (roomID, viewerID):
//   - 快照送達 -> 重跑投影
//   - 觀看者變動 -> 用同一份快照重跑投影,完全不碰訂閱
//   - 房間變動 -> 先關舊訂閱再開新的,舊房間的快照絕不會再滲進來
//
// 一個開著的房間畫面獨佔一個 watcher,也就獨佔一條訂閱
type Watcher struct {
	store database.Store

	mu       sync.Mutex
	closed   bool
	roomID   string
	sub      database.Subscription
	snapshot database.Snapshot
	viewerID string
	view     models.RoomView
	hasView  bool
	onView   func(models.RoomView)
}

// NewWatcher 建立 watcher,每次投影出新畫面就呼叫 onView
// onView 是在持有內部鎖的情況下被呼叫的,裡面不可以再呼叫回 watcher 本身
func NewWatcher(store database.Store, onView func(models.RoomView)) *Watcher {
	return &Watcher{store: store, onView: onView}
}

// SetRoom 切換訂閱的房間
// 舊訂閱一定先關閉才開新的;就算舊訂閱還有殘留的回呼在路上,
// apply 裡的 roomID 比對也會把它擋掉
func (w *Watcher) SetRoom(roomID string) error {
	w.mu.Lock()
	if w.closed || w.roomID == roomID {
		w.mu.Unlock()
		return nil
	}
	old := w.sub
	w.sub = nil
	w.roomID = roomID
	w.snapshot = nil
	w.mu.Unlock()

	if old != nil {
		old.Close()
	}
	if roomID == "" {
		return nil
	}

	sub, err := w.store.Subscribe("rooms/"+roomID, func(snap database.Snapshot) {
		w.apply(roomID, snap)
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	if w.closed || w.roomID != roomID {
		// 訂閱期間房間又被換走了,這條訂閱直接作廢
		w.mu.Unlock()
		sub.Close()
		return nil
	}
	w.sub = sub
	w.mu.Unlock()
	return nil
}

// SetViewer 更新觀看者身份並就地重投影——不需要重新訂閱
// 所以開著房間時才登入,也能立刻看到自己先前按過的讚,不用等任何網路往返
func (w *Watcher) SetViewer(viewerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.viewerID == viewerID {
		return
	}
	w.viewerID = viewerID
	w.projectLocked()
}

// apply 套用某個房間的新快照。roomID 不符(換房後殘留的回呼)就直接丟棄
func (w *Watcher) apply(roomID string, snap database.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.roomID != roomID {
		return
	}
	w.snapshot = snap
	w.projectLocked()
}

// projectLocked 重跑純投影(呼叫時已持有 w.mu)
// 快照形狀不對時記錄錯誤並保留上一個有效畫面,絕不用殘缺畫面蓋掉它
func (w *Watcher) projectLocked() {
	view, err := projection.Project(w.snapshot, w.viewerID)
	if err != nil {
		log.Printf("Dropping malformed snapshot for room %s: %v", w.roomID, err)
		return
	}
	w.view = view
	w.hasView = true
	if w.onView != nil {
		w.onView(view)
	}
}

// View 回傳最近一次成功投影出的畫面
func (w *Watcher) View() (models.RoomView, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view, w.hasView
}

// Close 釋放訂閱。返回之後不會再有任何 onView 回呼
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	old := w.sub
	w.sub = nil
	w.mu.Unlock()

	if old != nil {
		old.Close()
	}
}
