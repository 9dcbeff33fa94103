package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Fake 手动推进的调度器，Advance 时同步执行到期的任务
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	tasks  map[int]*fakeTask
}

type fakeTask struct {
	id       int
	due      time.Time
	interval time.Duration // 0 表示一次性任务
	fn       func()
}

// NewFake 创建从 start 开始的手动调度器
func NewFake(start time.Time) *Fake {
	return &Fake{now: start, tasks: make(map[int]*fakeTask)}
}

// Now 返回当前模拟时间
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Every 安排周期任务
func (f *Fake) Every(interval time.Duration, fn func()) Handle {
	return f.add(interval, interval, fn)
}

// After 安排一次性任务
func (f *Fake) After(delay time.Duration, fn func()) Handle {
	return f.add(delay, 0, fn)
}

// Pending 返回尚未取消的任务数
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

// Advance 将时间推进 d，按到期顺序执行期间到期的任务。
//
// 任务在未持有调度器锁的情况下执行，可以在回调中安排或取消任务。
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		task := f.nextDueLocked(target)
		if task == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = task.due
		if task.interval > 0 {
			task.due = task.due.Add(task.interval)
		} else {
			delete(f.tasks, task.id)
		}
		fn := task.fn
		f.mu.Unlock()

		fn()
	}
}

func (f *Fake) nextDueLocked(target time.Time) *fakeTask {
	due := make([]*fakeTask, 0, len(f.tasks))
	for _, t := range f.tasks {
		if !t.due.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].id < due[j].id
		}
		return due[i].due.Before(due[j].due)
	})
	return due[0]
}

func (f *Fake) add(delay, interval time.Duration, fn func()) Handle {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	f.tasks[id] = &fakeTask{id: id, due: f.now.Add(delay), interval: interval, fn: fn}
	return fakeHandle{f: f, id: id}
}

type fakeHandle struct {
	f  *Fake
	id int
}

func (h fakeHandle) Stop() {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	delete(h.f.tasks, h.id)
}
