package dispatch

import (
	"container/heap"
	"sync"
	"time"

	"github.com/hirewire/notifykit/pkg/event"
)

// heldDelivery is a notification parked until its user's quiet hours end.
type heldDelivery struct {
	Event     event.NotificationEvent
	Priority  event.Priority
	ReleaseAt time.Time
}

type holdHeap []heldDelivery

func (h holdHeap) Len() int            { return len(h) }
func (h holdHeap) Less(i, j int) bool  { return h[i].ReleaseAt.Before(h[j].ReleaseAt) }
func (h holdHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *holdHeap) Push(x any)         { *h = append(*h, x.(heldDelivery)) }
func (h *holdHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// holdQueue is a release-time ordered queue of held deliveries.
type holdQueue struct {
	mu    sync.Mutex
	items holdHeap
}

func newHoldQueue() *holdQueue {
	q := &holdQueue{}
	heap.Init(&q.items)
	return q
}

func (q *holdQueue) push(h heldDelivery) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.items, h)
}

// due pops every delivery whose release time has passed.
func (q *holdQueue) due(now time.Time) []heldDelivery {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []heldDelivery
	for q.items.Len() > 0 && !q.items[0].ReleaseAt.After(now) {
		out = append(out, heap.Pop(&q.items).(heldDelivery))
	}
	return out
}

// cancel removes any held delivery for the notification.
func (q *holdQueue) cancel(notificationID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := 0; i < q.items.Len(); {
		if q.items[i].Event.ID == notificationID {
			heap.Remove(&q.items, i)
			continue
		}
		i++
	}
}

func (q *holdQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}
