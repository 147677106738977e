package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")
	ErrInvalidID          = errors.New("scheduler: notification id is required")
	ErrEngineStopped      = errors.New("scheduler: engine stopped")
)

// Content is what the user sees when a notification fires.
type Content struct {
	Channel     string
	Title       string
	Body        string
	Sticky      bool
	AutoDismiss bool
	Data        map[string]string
}

type Notification struct {
	ID        string
	Content   Content
	TriggerAt time.Time
}

type queueItem struct {
	n     Notification
	index int
}

type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].n.TriggerAt.Equal(pq[j].n.TriggerAt) {
		return pq[i].n.ID < pq[j].n.ID
	}
	return pq[i].n.TriggerAt.Before(pq[j].n.TriggerAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[0 : n-1]
	return item
}

// Engine is an in-process local notification scheduler. Pending
// notifications are keyed by identifier; scheduling an existing identifier
// replaces it. Fired notifications are kept in a delivered set until
// dismissed and are also published on C.
type Engine struct {
	mu        sync.Mutex
	queue     priorityQueue
	byID      map[string]*queueItem
	delivered map[string]Notification
	out       chan Notification
	wakeup    chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   bool
	stopped   bool
	dropped   uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:     make(priorityQueue, 0),
		byID:      make(map[string]*queueItem),
		delivered: make(map[string]Notification),
		out:       make(chan Notification, bufferSize),
		wakeup:    make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

func (e *Engine) C() <-chan Notification {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.stopped {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	started := e.started
	close(e.stopCh)
	e.mu.Unlock()
	if started {
		<-e.doneCh
	}
}

// ScheduleAt registers content to fire at the given instant, replacing any
// pending notification with the same identifier.
func (e *Engine) ScheduleAt(ctx context.Context, id string, content Content, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	if at.IsZero() {
		return ErrInvalidTriggerTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}

	n := Notification{ID: id, Content: content, TriggerAt: at}
	if existing, ok := e.byID[id]; ok {
		existing.n = n
		heap.Fix(&e.queue, existing.index)
	} else {
		item := &queueItem{n: n}
		heap.Push(&e.queue, item)
		e.byID[id] = item
	}
	e.signalWakeup()
	return nil
}

// Cancel removes a pending notification. Unknown identifiers are ignored.
func (e *Engine) Cancel(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	item, ok := e.byID[id]
	if !ok {
		return nil
	}
	heap.Remove(&e.queue, item.index)
	delete(e.byID, id)
	e.signalWakeup()
	return nil
}

// Dismiss removes a delivered notification. Unknown identifiers are ignored.
func (e *Engine) Dismiss(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.delivered, id)
	return nil
}

// ListScheduled returns pending identifiers in trigger order.
func (e *Engine) ListScheduled(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pending := e.Pending()
	out := make([]string, 0, len(pending))
	for _, n := range pending {
		out = append(out, n.ID)
	}
	return out, nil
}

// Pending returns a snapshot of pending notifications in trigger order.
func (e *Engine) Pending() []Notification {
	e.mu.Lock()
	out := make([]Notification, 0, len(e.queue))
	for _, item := range e.queue {
		out = append(out, item.n)
	}
	e.mu.Unlock()
	sortNotifications(out)
	return out
}

// Delivered returns fired notifications that have not been dismissed.
func (e *Engine) Delivered() []Notification {
	e.mu.Lock()
	out := make([]Notification, 0, len(e.delivered))
	for _, n := range e.delivered {
		out = append(out, n)
	}
	e.mu.Unlock()
	sortNotifications(out)
	return out
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next.TriggerAt)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			due := e.popDue(time.Now())
			for _, n := range due {
				select {
				case e.out <- n:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (Notification, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return Notification{}, false
	}
	return e.queue[0].n, true
}

// popDue moves every notification due at now into the delivered set.
func (e *Engine) popDue(now time.Time) []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Notification, 0)
	for len(e.queue) > 0 {
		next := e.queue[0].n
		if next.TriggerAt.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(*queueItem)
		delete(e.byID, item.n.ID)
		e.delivered[item.n.ID] = item.n
		out = append(out, item.n)
	}
	return out
}

func sortNotifications(items []Notification) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].TriggerAt.Equal(items[j].TriggerAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].TriggerAt.Before(items[j].TriggerAt)
	})
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
