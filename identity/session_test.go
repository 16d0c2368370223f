package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"go-ask/backend/identity"
	"go-ask/backend/mocks"
	"go-ask/backend/models"
)

func TestRestoreReplaysPersistedIdentity(t *testing.T) {
	// 提供者有已持久化的登入狀態:Restore 當下就還原出身份
	provider := identity.NewTokenProvider()
	provider.Deliver(&identity.Principal{ID: "u1", Name: "A", Avatar: "a.png"})

	session := identity.NewSession(provider)
	err := session.Restore()

	assert.NoError(t, err, "還原不應該失敗")
	viewer, ok := session.Current()
	assert.True(t, ok, "有持久化身份時 Restore 後應該拿得到")
	assert.Equal(t, "u1", viewer.ID)
	assert.Equal(t, "A", viewer.Name)
}

func TestRestoreWithoutPersistedIdentity(t *testing.T) {
	provider := identity.NewTokenProvider()
	session := identity.NewSession(provider)

	assert.NoError(t, session.Restore())
	_, ok := session.Current()
	assert.False(t, ok, "沒有登入狀態時身份應該是 absent")
	assert.NoError(t, session.Err())
}

func TestRestoreRejectsIncompleteAccount(t *testing.T) {
	// 帳號缺名稱或頭像:整個拒絕,身份保持 absent,錯誤可查詢
	cases := []struct {
		name      string
		principal *identity.Principal
	}{
		{"缺名稱", &identity.Principal{ID: "u1", Avatar: "a.png"}},
		{"缺頭像", &identity.Principal{ID: "u1", Name: "A"}},
		{"兩個都缺", &identity.Principal{ID: "u1"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := identity.NewTokenProvider()
			provider.Deliver(tc.principal)

			session := identity.NewSession(provider)
			assert.NoError(t, session.Restore(), "監聽器註冊本身不應該失敗")

			_, ok := session.Current()
			assert.False(t, ok, "殘缺的帳號不應該被存成身份")
			assert.ErrorIs(t, session.Err(), identity.ErrInvalidAccount)
		})
	}
}

func TestRestoreIsIdempotent(t *testing.T) {
	// 重複呼叫 Restore 不可以註冊出第二個監聽器
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().OnIdentityChanged(gomock.Any()).Return(func() {}, nil).Times(1)

	session := identity.NewSession(provider)
	assert.NoError(t, session.Restore())
	assert.NoError(t, session.Restore())
	assert.NoError(t, session.Restore())
}

func TestRestoreRegistrationFailure(t *testing.T) {
	// 註冊失敗要回報錯誤,而且之後還可以重試
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	boom := errors.New("provider unavailable")
	gomock.InOrder(
		provider.EXPECT().OnIdentityChanged(gomock.Any()).Return(nil, boom),
		provider.EXPECT().OnIdentityChanged(gomock.Any()).Return(func() {}, nil),
	)

	session := identity.NewSession(provider)

	err := session.Restore()
	assert.Error(t, err)
	assert.ErrorIs(t, err, boom, "原始錯誤要能用 errors.Is 查到")

	assert.NoError(t, session.Restore(), "失敗之後的 Restore 應該重新註冊")
}

func TestSignInPublishesBeforeReturn(t *testing.T) {
	// SignIn 返回之前,身份就必須已經發布給所有下游
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().SignInInteractive(gomock.Any()).
		Return(&identity.Principal{ID: "u2", Name: "B", Avatar: "b.png"}, nil)

	session := identity.NewSession(provider)
	var notified []string
	session.OnChange(func(v models.ViewerIdentity) {
		notified = append(notified, v.ID)
	})

	viewer, err := session.SignIn(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "u2", viewer.ID)
	assert.Equal(t, []string{"u2"}, notified, "下游必須在 SignIn 返回前就收到通知")

	current, ok := session.Current()
	assert.True(t, ok)
	assert.Equal(t, viewer, current)
}

func TestSignInRejectsIncompleteAccount(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().SignInInteractive(gomock.Any()).
		Return(&identity.Principal{ID: "u3", Name: "C"}, nil)

	session := identity.NewSession(provider)
	_, err := session.SignIn(context.Background())

	assert.ErrorIs(t, err, identity.ErrInvalidAccount)
	_, ok := session.Current()
	assert.False(t, ok, "驗證不過的登入不應該留下身份")
}

func TestSignInClearsPreviousRestoreError(t *testing.T) {
	// 一次失敗的還原,接著成功登入:錯誤要被清掉
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().OnIdentityChanged(gomock.Any()).
		DoAndReturn(func(cb func(*identity.Principal)) (func(), error) {
			cb(&identity.Principal{ID: "u1"}) // 持久化狀態殘缺,同步重播時被拒絕
			return func() {}, nil
		})
	provider.EXPECT().SignInInteractive(gomock.Any()).
		Return(&identity.Principal{ID: "u1", Name: "A", Avatar: "a.png"}, nil)

	session := identity.NewSession(provider)
	assert.NoError(t, session.Restore())
	assert.Error(t, session.Err())

	_, err := session.SignIn(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, session.Err(), "成功登入後先前的還原錯誤應該被清掉")
}

func TestCloseStopsIdentityUpdates(t *testing.T) {
	provider := identity.NewTokenProvider()
	session := identity.NewSession(provider)
	assert.NoError(t, session.Restore())
	session.Close()

	provider.Deliver(&identity.Principal{ID: "u9", Name: "Z", Avatar: "z.png"})
	_, ok := session.Current()
	assert.False(t, ok, "Close 之後不應該再收到身份更新")
}
