package approval

import (
	"encoding/json"
	"fmt"
)

// queueState is the serialized form of a Queue.
type queueState struct {
	Entries []Pending `json:"entries"`
}

// Snapshot serializes the queue — decided and pending entries alike — so a
// process can shut down between an approval request and its decision and
// pick up where it left off.
func (q *Queue) Snapshot() ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	state := queueState{Entries: make([]Pending, 0, len(q.entries))}
	for _, p := range q.entries {
		state.Entries = append(state.Entries, *p)
	}
	sortPending(state.Entries)

	return json.MarshalIndent(state, "", "  ")
}

// RestoreQueue rebuilds a Queue from a Snapshot. Restored pending entries can
// be decided and waited on as if they were created in this process.
func RestoreQueue(data []byte) (*Queue, error) {
	var state queueState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("approval: restore queue: %w", err)
	}

	q := NewQueue()
	for i := range state.Entries {
		p := state.Entries[i]
		q.entries[p.ID] = &p
		ch := make(chan struct{})
		if p.Status != StatusPending {
			close(ch)
		}
		q.done[p.ID] = ch
	}
	return q, nil
}
