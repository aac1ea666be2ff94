package core

import (
	"sync"
	"time"
)

type timerAction int

const (
	timerActionRestartRound timerAction = iota
	timerActionDispose
)

// round是设置时已完成的局数，party收到后据此判断这次超时是否还有效
type timeoutInfo struct {
	action timerAction
	round  int
}

/*

party只会同时有一个待执行的延时动作（局间重开或整场结束后的销毁），因此一个timer足够
1. Set会覆盖上一次未触发的设置
2. Stop后不会再往外发超时，已经在发的那次由party自己校验丢弃

*/
func newPartyTimer() *partyTimer {
	return &partyTimer{
		timeoutChan: make(chan timeoutInfo),
		stopChan:    make(chan struct{}),
	}
}

type partyTimer struct {
	mu       sync.Mutex
	t        *time.Timer
	stopped  bool
	stopOnce sync.Once

	timeoutChan chan timeoutInfo
	stopChan    chan struct{}
}

func (t *partyTimer) Set(d time.Duration, info timeoutInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.t != nil {
		t.t.Stop()
	}
	t.t = time.AfterFunc(d, func() {
		select {
		case t.timeoutChan <- info:
		case <-t.stopChan:
		}
	})
}

func (t *partyTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
	t.stopOnce.Do(func() { close(t.stopChan) })
}
