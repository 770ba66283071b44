package backtest

import (
	"container/heap"
	"time"
)

// event kinds double as the processing order within a date
type eventKind int

const (
	eventExitFill eventKind = iota
	eventEntryFill
	eventForcedClose
	eventExitCheck
	eventRebalance
	eventSignalEntry
	eventMark
)

type event struct {
	date    time.Time
	kind    eventKind
	seq     int
	order   *order
	symbols []string
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if !a.date.Equal(b.date) {
		return a.date.Before(b.date)
	}
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	return a.seq < b.seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) {
	*q = append(*q, x.(*event))
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

type scheduler struct {
	q   eventQueue
	seq int
}

func (s *scheduler) push(e *event) {
	s.seq++
	e.seq = s.seq
	heap.Push(&s.q, e)
}

func (s *scheduler) pop() (*event, bool) {
	if len(s.q) == 0 {
		return nil, false
	}
	return heap.Pop(&s.q).(*event), true
}
