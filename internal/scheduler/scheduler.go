// Package scheduler 提供可取消的周期任务与延时任务，测试中可替换为手动推进的时钟。
package scheduler

import (
	"sync"
	"time"
)

// Handle 已安排任务的句柄
type Handle interface {
	// Stop 取消任务，可重复调用
	Stop()
}

// Scheduler 安排周期任务与延时任务
type Scheduler interface {
	Now() time.Time
	// Every 每隔 interval 调用一次 fn，直到句柄被停止
	Every(interval time.Duration, fn func()) Handle
	// After 在 delay 之后调用一次 fn
	After(delay time.Duration, fn func()) Handle
}

// Real 基于系统时钟的调度器
type Real struct{}

// NewReal 创建系统时钟调度器
func NewReal() Real {
	return Real{}
}

// Now 返回当前时间
func (Real) Now() time.Time {
	return time.Now()
}

// Every 启动后台协程按间隔调用 fn
func (Real) Every(interval time.Duration, fn func()) Handle {
	t := &tickerHandle{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				fn()
			}
		}
	}()
	return t
}

// After 使用 time.AfterFunc 延时调用 fn
func (Real) After(delay time.Duration, fn func()) Handle {
	return timerHandle{timer: time.AfterFunc(delay, fn)}
}

type tickerHandle struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickerHandle) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

type timerHandle struct {
	timer *time.Timer
}

func (t timerHandle) Stop() {
	t.timer.Stop()
}
