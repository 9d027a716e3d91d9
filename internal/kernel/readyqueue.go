package kernel

// ReadyQueue is an array of FIFO buckets indexed by priority. A thread
// appears in at most one bucket, and that bucket's index is the thread's
// current priority at the time it was appended — donation (see Lock) can
// make that stale until the next reassign.
//
// The source (scheduler.cc) represents each bucket as a singly linked
// List<Thread*> and implements reassign by rotating the whole bucket once
// per candidate, purely because List has no random-access removal. A Go
// slice gives the same FIFO-with-removal behavior directly, so reassign
// here just scans and splices; there is no rotation to replicate, only the
// order-preservation it was protecting.
type ReadyQueue struct {
	buckets [MaxPriority][]*Thread
}

func newReadyQueue() *ReadyQueue {
	return &ReadyQueue{}
}

// append requires interrupts masked. It places t at the tail of the bucket
// for t's current priority.
func (q *ReadyQueue) append(t *Thread) {
	p := t.priority
	q.buckets[p] = append(q.buckets[p], t)
}

// removeHighest requires interrupts masked. It returns and removes the
// head of the highest-indexed non-empty bucket, or nil if every bucket is
// empty. Ties within a bucket are broken strictly FIFO.
func (q *ReadyQueue) removeHighest() *Thread {
	for p := MaxPriority - 1; p >= 0; p-- {
		b := q.buckets[p]
		if len(b) == 0 {
			continue
		}
		t := b[0]
		q.buckets[p] = b[1:]
		return t
	}
	return nil
}

// reassign requires interrupts masked. It removes t from whichever bucket
// currently holds it (found by linear scan, since a donated thread's
// current priority no longer matches the bucket it was inserted into) and
// appends it to the bucket for t's current priority. The relative order of
// every other waiter is preserved.
func (q *ReadyQueue) reassign(t *Thread) {
	for p := 0; p < MaxPriority; p++ {
		b := q.buckets[p]
		for i, cand := range b {
			if cand == t {
				q.buckets[p] = append(b[:i:i], b[i+1:]...)
				q.append(t)
				return
			}
		}
	}
}

// isEmpty reports whether every bucket is empty.
func (q *ReadyQueue) isEmpty() bool {
	for p := 0; p < MaxPriority; p++ {
		if len(q.buckets[p]) > 0 {
			return false
		}
	}
	return true
}
