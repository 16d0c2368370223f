package database

import (
	"context"
	"log"
	"time"
)

// redisSubscription 訂閱某個房間的 Redis 通知頻道,
// 每收到一則通知就重新讀取該房間的完整快照並交給回呼。
// 一條訂閱只有一個送達 goroutine,所以快照一定照通知的順序送
type redisSubscription struct {
	store  *MongoStore
	roomID string
	cancel context.CancelFunc
	done   chan struct{}
}

func newRedisSubscription(store *MongoStore, roomID string, onChange func(Snapshot)) *redisSubscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &redisSubscription{
		store:  store,
		roomID: roomID,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go sub.run(ctx, onChange)
	return sub
}

func (r *redisSubscription) run(ctx context.Context, onChange func(Snapshot)) {
	defer close(r.done)

	pubsub := r.store.rdb.Subscribe(ctx, channelFor(r.roomID))
	defer pubsub.Close()

	// 等 Redis 確認訂閱生效,之後的寫入通知才不會漏接
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() == nil {
			log.Printf("Error subscribing to room %s: %v", r.roomID, err)
		}
		return
	}

	// 先送一次目前的快照。房間還不存在時送 nil,訂閱端要能容忍
	r.deliver(ctx, onChange)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			r.deliver(ctx, onChange)
		}
	}
}

// deliver 重新讀取房間快照並交給回呼
// 讀取失敗時記錄後跳過這一輪,不送殘缺資料——訂閱端會保留上一個有效畫面,
// 等下一次通知再補上最新狀態
func (r *redisSubscription) deliver(ctx context.Context, onChange func(Snapshot)) {
	getCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	snap, err := r.store.Get(getCtx, "rooms/"+r.roomID)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("Error loading snapshot for room %s: %v", r.roomID, err)
		}
		return
	}
	onChange(snap)
}

// Close 取消訂閱並等送達 goroutine 結束
// 返回之後不會再有任何回呼,呼叫端可以安心釋放下游資源
func (r *redisSubscription) Close() {
	r.cancel()
	<-r.done
}
