package identity

import (
	"context"
	"sync"
)

// TokenProvider 是由傳輸層餵登入主體的 Provider 實作
// WebSocket 連線時帶上的 token 就是「已持久化的登入狀態」:
// Session.Restore 註冊監聽器時,先前送進來的主體會立刻重播一次;
// 之後前端完成 OAuth、把新 token 傳回來時,再透過 Deliver 通知下去
type TokenProvider struct {
	mu      sync.Mutex
	last    *Principal
	cbs     map[int]func(*Principal)
	waiters map[int]chan *Principal
	seq     int
}

// NewTokenProvider 建立空的 provider
func NewTokenProvider() *TokenProvider {
	return &TokenProvider{
		cbs:     make(map[int]func(*Principal)),
		waiters: make(map[int]chan *Principal),
	}
}

// Deliver 由傳輸層在解析出新的登入主體時呼叫
func (t *TokenProvider) Deliver(p *Principal) {
	t.mu.Lock()
	t.last = p
	cbs := make([]func(*Principal), 0, len(t.cbs))
	for _, cb := range t.cbs {
		cbs = append(cbs, cb)
	}
	for id, ch := range t.waiters {
		ch <- p
		delete(t.waiters, id)
	}
	t.mu.Unlock()

	for _, cb := range cbs {
		cb(p)
	}
}

// OnIdentityChanged 註冊監聽器;已經有登入狀態時,註冊當下就重播一次
func (t *TokenProvider) OnIdentityChanged(cb func(*Principal)) (func(), error) {
	t.mu.Lock()
	t.seq++
	id := t.seq
	t.cbs[id] = cb
	last := t.last
	t.mu.Unlock()

	if last != nil {
		cb(last)
	}
	return func() {
		t.mu.Lock()
		delete(t.cbs, id)
		t.mu.Unlock()
	}, nil
}

// SignInInteractive 等傳輸層送進下一個主體
// (前端完成 OAuth 流程後把 token 傳回來,才算互動式登入完成)
func (t *TokenProvider) SignInInteractive(ctx context.Context) (*Principal, error) {
	ch := make(chan *Principal, 1)
	t.mu.Lock()
	t.seq++
	id := t.seq
	t.waiters[id] = ch
	t.mu.Unlock()

	select {
	case p := <-ch:
		return p, nil
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.waiters, id)
		t.mu.Unlock()
		return nil, ctx.Err()
	}
}
