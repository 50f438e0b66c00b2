package engine

import (
	"reflect"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Queue collects the requests emitted by module Init hooks
type Queue struct {
	requests []*Request
	seq      int
	mu       sync.Mutex
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a request and stamps its emission order
func (q *Queue) Push(req *Request) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	req.Seq = q.seq
	q.requests = append(q.requests, req)
}

// Len returns the number of pushed requests
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Requests returns the pushed requests in emission order
func (q *Queue) Requests() []*Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Request(nil), q.requests...)
}

type target struct {
	present []*Request
	absent  []*Request
}

// Resolve turns the pushed requests into the list to execute. Requests for
// the same target collapse into one; present beats absent; two present
// requests with different payloads conflict. The result is ordered by
// executor priority, then module order, then emission order.
func (q *Queue) Resolve(executors *Executors) ([]*Request, error) {
	requests := q.Requests()

	targets := make(map[string]*target)
	var ids []string
	for _, req := range requests {
		ex, ok := executors.Get(req.Type)
		if !ok {
			return nil, &UnknownRequestError{Type: req.Type, Module: req.Module}
		}
		key, err := ex.Key(req)
		if err != nil {
			return nil, &ExecutorError{Request: req, Phase: "key", Err: err}
		}
		req.key = key

		id := req.Type + "\x00" + key
		t, ok := targets[id]
		if !ok {
			t = &target{}
			targets[id] = t
			ids = append(ids, id)
		}
		if req.Present() {
			t.present = append(t.present, req)
		} else {
			t.absent = append(t.absent, req)
		}
	}

	var conflicts *multierror.Error
	resolved := make([]*Request, 0, len(ids))
	for _, id := range ids {
		t := targets[id]
		if len(t.present) == 0 {
			resolved = append(resolved, t.absent[0])
			continue
		}

		first := t.present[0]
		for _, other := range t.present[1:] {
			if !reflect.DeepEqual(first.Payload, other.Payload) {
				conflicts = multierror.Append(conflicts, &ConflictError{
					Type:    first.Type,
					Key:     first.key,
					Modules: []string{first.Module, other.Module},
				})
				break
			}
		}
		resolved = append(resolved, first)
	}

	if conflicts != nil {
		if len(conflicts.Errors) == 1 {
			return nil, conflicts.Errors[0]
		}
		return nil, conflicts
	}

	priority := func(req *Request) int {
		ex, _ := executors.Get(req.Type)
		return ex.Priority()
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		a, b := resolved[i], resolved[j]
		if pa, pb := priority(a), priority(b); pa != pb {
			return pa < pb
		}
		if a.order != b.order {
			return a.order < b.order
		}
		return a.Seq < b.Seq
	})

	return resolved, nil
}
