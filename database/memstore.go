package database

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore 是 Store 的記憶體實作,行為跟 MongoStore 一致:
// 整棵房間樹放在 map 裡,每次寫入後同步把完整快照(深拷貝)送給所有訂閱者。
// 用途是本地開發模式跟測試——測試可以直接替換掉 Mongo/Redis,
// 又能拿到真實的發佈/訂閱行為
type MemoryStore struct {
	mu     sync.Mutex
	rooms  map[string]map[string]any
	seq    int
	subs   map[string]map[int]func(Snapshot) // roomID -> 訂閱者
	subSeq int
}

// NewMemoryStore 建立空的記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]map[string]any),
		subs:  make(map[string]map[int]func(Snapshot)),
	}
}

// nextKey 配發下一個 key。零填充的序號保證升冪排序 = 寫入順序
func (s *MemoryStore) nextKey() string {
	s.seq++
	return fmt.Sprintf("%08x", s.seq)
}

// deepCopy 深拷貝一棵子樹,訂閱者拿到的快照跟內部狀態完全隔離
func deepCopy(node map[string]any) map[string]any {
	if node == nil {
		return nil
	}
	out := make(map[string]any, len(node))
	for k, v := range node {
		if m, ok := v.(map[string]any); ok {
			out[k] = deepCopy(m)
		} else {
			out[k] = v
		}
	}
	return out
}

// walk 沿著路徑往下走到目標節點,沿途缺的中間層依 create 決定要不要補
func walk(node map[string]any, segs []string, create bool) (map[string]any, bool) {
	for _, seg := range segs {
		child, ok := node[seg].(map[string]any)
		if !ok {
			if !create {
				return nil, false
			}
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}
	return node, true
}

// notifyLocked 把房間目前的快照同步送給所有訂閱者(呼叫時已持有 s.mu)
// 同步送達讓測試完全確定:寫入返回前,訂閱者一定已經看到新快照
func (s *MemoryStore) notifyLocked(roomID string) {
	snap := deepCopy(s.rooms[roomID])
	for _, cb := range s.subs[roomID] {
		cb(snap)
	}
}

func (s *MemoryStore) Push(_ context.Context, path string, value map[string]any) (string, error) {
	segs, err := splitPath(path)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.nextKey()
	if len(segs) == 1 {
		s.rooms[key] = deepCopy(value)
		s.notifyLocked(key)
		return key, nil
	}
	if len(segs) < 3 {
		return "", ErrBadPath
	}

	roomID := segs[1]
	room := s.rooms[roomID]
	if room == nil {
		room = make(map[string]any)
		s.rooms[roomID] = room
	}
	parent, _ := walk(room, segs[2:], true)
	parent[key] = deepCopy(value)
	s.notifyLocked(roomID)
	return key, nil
}

func (s *MemoryStore) Update(_ context.Context, path string, partial map[string]any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(segs) < 2 {
		return ErrBadPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	roomID := segs[1]
	room := s.rooms[roomID]
	if room == nil {
		room = make(map[string]any)
		s.rooms[roomID] = room
	}
	node, _ := walk(room, segs[2:], true)
	for k, v := range partial {
		if m, ok := v.(map[string]any); ok {
			node[k] = deepCopy(m)
		} else {
			node[k] = v
		}
	}
	s.notifyLocked(roomID)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, path string) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(segs) < 2 {
		return ErrBadPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	roomID := segs[1]
	if len(segs) == 2 {
		delete(s.rooms, roomID)
		s.notifyLocked(roomID)
		return nil
	}

	room := s.rooms[roomID]
	if room == nil {
		// 目標不存在:no-op
		return nil
	}
	parent, ok := walk(room, segs[2:len(segs)-1], false)
	if !ok {
		return nil
	}
	delete(parent, segs[len(segs)-1])
	s.notifyLocked(roomID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, path string) (Snapshot, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if len(segs) < 2 {
		return nil, ErrBadPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.rooms[segs[1]]
	if room == nil {
		return nil, nil
	}
	node, ok := walk(room, segs[2:], false)
	if !ok {
		return nil, nil
	}
	return deepCopy(node), nil
}

func (s *MemoryStore) Subscribe(path string, onChange func(Snapshot)) (Subscription, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if len(segs) != 2 {
		return nil, ErrBadPath
	}
	roomID := segs[1]

	s.mu.Lock()
	s.subSeq++
	id := s.subSeq
	if s.subs[roomID] == nil {
		s.subs[roomID] = make(map[int]func(Snapshot))
	}
	s.subs[roomID][id] = onChange
	// 初始快照在同一把鎖底下送,跟後續寫入的送達順序才不會交錯
	// 房間還不存在時送 nil
	onChange(deepCopy(s.rooms[roomID]))
	s.mu.Unlock()

	return &memSubscription{store: s, roomID: roomID, id: id}, nil
}

type memSubscription struct {
	store  *MemoryStore
	roomID string
	id     int
}

// Close 移除訂閱者。送達跟移除都在同一把鎖底下,
// 所以 Close 返回之後絕不會再有回呼
func (m *memSubscription) Close() {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	delete(m.store.subs[m.roomID], m.id)
	if len(m.store.subs[m.roomID]) == 0 {
		delete(m.store.subs, m.roomID)
	}
}
