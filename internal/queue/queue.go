/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package queue provides a dynamically growing FIFO with Python
// queue.Queue-style join semantics, shared by the scanner's two pools,
// the upload/remove worker pool, and the purge engine: every one of
// them discovers new work while processing a task and needs a join
// barrier that doesn't race that discovery.
package queue

import "sync"

// Queue is a FIFO where Put enqueues one pending unit of work, TaskDone
// retires it, and Join blocks until every Put has a matching TaskDone.
type Queue[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []T
	pending int
	stopped bool
}

func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put enqueues v and increments the pending count. A task that derives
// new tasks from itself must Put the children before calling TaskDone on
// itself, or a concurrent Join could observe pending==0 prematurely.
func (q *Queue[T]) Put(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.pending++
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Get blocks until an item is available or the queue is stopped. ok is
// false once stopped with nothing left to hand out.
func (q *Queue[T]) Get() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.stopped {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return v, false
	}
	v = q.items[0]
	q.items = q.items[1:]
	return v, true
}

// TaskDone retires one pending unit of work and wakes any Join waiter
// once the count reaches zero.
func (q *Queue[T]) TaskDone() {
	q.mu.Lock()
	q.pending--
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Join blocks until pending work reaches zero or the queue is stopped.
func (q *Queue[T]) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.pending > 0 && !q.stopped {
		q.cond.Wait()
	}
}

// Len reports the number of items currently waiting (not counting
// in-flight ones already handed out by Get).
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stop wakes every blocked Get/Join for cooperative shutdown; workers
// observing ok==false from Get exit their loop.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
