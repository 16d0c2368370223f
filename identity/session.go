package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"go-ask/backend/models"
)

// Principal 是身份提供者回報的原始登入主體(尚未驗證)
type Principal struct {
	ID     string
	Name   string
	Avatar string
}

// Provider 是外部身份提供者的抽象
// 用介面傳進來而不是套件全域變數,測試時才能用替身替換
type Provider interface {
	// OnIdentityChanged 註冊登入狀態變更的監聽器,回傳取消註冊用的函式
	// 提供者有已持久化的登入狀態時,註冊當下就會先重播一次
	OnIdentityChanged(cb func(*Principal)) (func(), error)

	// SignInInteractive 觸發互動式登入,完成(或失敗)後才返回
	SignInInteractive(ctx context.Context) (*Principal, error)
}

// ErrInvalidAccount:提供者給的帳號缺少必要欄位
var ErrInvalidAccount = errors.New("missing info from provider account")

// AuthError 代表身份提供者失敗或帳號資料不完整
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// ValidatePrincipal 是還原與互動式登入共用的驗證:名稱與頭像缺一不可
// 驗證不過就整個拒絕,絕不存入殘缺的身份
func ValidatePrincipal(p *Principal) (models.ViewerIdentity, error) {
	if p == nil || p.ID == "" {
		return models.ViewerIdentity{}, &AuthError{Reason: "provider returned no principal", Err: ErrInvalidAccount}
	}
	if p.Name == "" || p.Avatar == "" {
		return models.ViewerIdentity{}, &AuthError{Reason: "account is missing display name or avatar", Err: ErrInvalidAccount}
	}
	return models.ViewerIdentity{ID: p.ID, Name: p.Name, Avatar: p.Avatar}, nil
}

// Session 持有目前觀看者的身份,並管理跟身份提供者之間的生命週期
type Session struct {
	provider Provider

	mu          sync.Mutex
	registered  bool
	unsubscribe func()
	viewer      *models.ViewerIdentity
	restoreErr  error
	listeners   []func(models.ViewerIdentity)
}

// NewSession 建立尚未還原的 session
func NewSession(provider Provider) *Session {
	return &Session{provider: provider}
}

// OnChange 註冊身份更新的通知(投影、指令層這類下游)
// 要在 Restore 之前註冊完,之後的更新才不會漏接
func (s *Session) OnChange(cb func(models.ViewerIdentity)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, cb)
}

// Restore 在啟動時向提供者註冊唯一一個監聽器,從持久化的登入狀態還原身份
// 重複呼叫是冪等的:不會註冊出第二個監聽器,也不會重複發身份通知
func (s *Session) Restore() error {
	s.mu.Lock()
	if s.registered {
		s.mu.Unlock()
		return nil
	}
	s.registered = true
	s.mu.Unlock()

	// 註冊時監聽器可能同步重播持久化的身份,所以不能抱著鎖做
	unsubscribe, err := s.provider.OnIdentityChanged(s.handleProviderIdentity)
	if err != nil {
		s.mu.Lock()
		s.registered = false
		s.mu.Unlock()
		return &AuthError{Reason: "listener registration failed", Err: err}
	}

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	return nil
}

// handleProviderIdentity 處理提供者送來的登入主體
// nil 代表登出/尚未登入;驗證不過時身份保持 absent,錯誤記下來讓呼叫端查詢
func (s *Session) handleProviderIdentity(p *Principal) {
	if p == nil {
		return
	}
	viewer, err := ValidatePrincipal(p)
	if err != nil {
		log.Printf("Rejecting provider principal: %v", err)
		s.mu.Lock()
		s.restoreErr = err
		s.mu.Unlock()
		return
	}
	s.adopt(viewer)
}

// SignIn 觸發互動式登入
// 成功時身份在返回之前就已經發布給所有下游,呼叫端恢復執行時讀不到舊值
func (s *Session) SignIn(ctx context.Context) (models.ViewerIdentity, error) {
	p, err := s.provider.SignInInteractive(ctx)
	if err != nil {
		return models.ViewerIdentity{}, &AuthError{Reason: "interactive sign-in failed", Err: err}
	}
	viewer, err := ValidatePrincipal(p)
	if err != nil {
		return models.ViewerIdentity{}, err
	}
	s.adopt(viewer)
	return viewer, nil
}

// adopt 原子性地換上新身份並通知所有下游
func (s *Session) adopt(viewer models.ViewerIdentity) {
	s.mu.Lock()
	s.viewer = &viewer
	s.restoreErr = nil
	listeners := make([]func(models.ViewerIdentity), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, cb := range listeners {
		cb(viewer)
	}
}

// Current 回傳目前的身份;還沒有人登入時第二個回傳值為 false
func (s *Session) Current() (models.ViewerIdentity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewer == nil {
		return models.ViewerIdentity{}, false
	}
	return *s.viewer, true
}

// Err 回傳最近一次還原失敗的原因(成功登入後會被清掉)
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreErr
}

// Close 取消提供者監聽,之後不會再收到任何身份更新
func (s *Session) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.registered = false
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}
