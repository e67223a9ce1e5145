// Package matchmaking keeps the FIFO of users waiting for an opponent.
package matchmaking

import "errors"

var (
	ErrAlreadyQueued = errors.New("already searching for a match")
	ErrAlreadyInRoom = errors.New("already in a room")
)

// SeatChecker reports whether a user already sits in a room.
type SeatChecker interface {
	IsSeated(userID string) bool
}

// Queue pairs users strictly in arrival order. It is not safe for concurrent
// use; the lobby event loop owns it.
type Queue struct {
	entries []string
	queued  map[string]struct{}
	seats   SeatChecker
}

func NewQueue(seats SeatChecker) *Queue {
	return &Queue{
		queued: make(map[string]struct{}),
		seats:  seats,
	}
}

// Enqueue appends userID to the tail. A user that is already queued or
// seated in a room is rejected and the queue is left untouched.
func (q *Queue) Enqueue(userID string) error {
	if q.seats != nil && q.seats.IsSeated(userID) {
		return ErrAlreadyInRoom
	}
	if _, ok := q.queued[userID]; ok {
		return ErrAlreadyQueued
	}
	q.entries = append(q.entries, userID)
	q.queued[userID] = struct{}{}
	return nil
}

// Dequeue removes userID if present.
func (q *Queue) Dequeue(userID string) bool {
	if _, ok := q.queued[userID]; !ok {
		return false
	}
	delete(q.queued, userID)
	for i, id := range q.entries {
		if id == userID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	return true
}

// NextPair pops the two oldest entries once at least two are waiting.
func (q *Queue) NextPair() (first, second string, ok bool) {
	if len(q.entries) < 2 {
		return "", "", false
	}
	first, second = q.entries[0], q.entries[1]
	q.entries = q.entries[2:]
	delete(q.queued, first)
	delete(q.queued, second)
	return first, second, true
}

func (q *Queue) Contains(userID string) bool {
	_, ok := q.queued[userID]
	return ok
}

func (q *Queue) Len() int {
	return len(q.entries)
}

// Snapshot returns the waiting users, oldest first.
func (q *Queue) Snapshot() []string {
	return append([]string(nil), q.entries...)
}
