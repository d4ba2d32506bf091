package finance

import (
	"encoding/json"
	"slices"
)

// RecordState tags a record as either waiting for the service to confirm its
// create call or confirmed under a service-assigned ID.
type RecordState struct {
	id      string
	pending bool
}

// Pending is the state of a record known only by its provisional ID.
func Pending(provisionalID string) RecordState {
	return RecordState{id: provisionalID, pending: true}
}

// Confirmed is the state of a record the service has stored.
func Confirmed(serviceID string) RecordState {
	return RecordState{id: serviceID}
}

func (s RecordState) ID() string      { return s.id }
func (s RecordState) IsPending() bool { return s.pending }

func (s RecordState) String() string {
	if s.pending {
		return "pending"
	}
	return "confirmed"
}

func (s RecordState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Entry is one record in a collection together with its sync state.
type Entry[T any] struct {
	Record T           `json:"record"`
	State  RecordState `json:"state"`
}

func indexOf[T any](list []Entry[T], id string) int {
	return slices.IndexFunc(list, func(e Entry[T]) bool { return e.State.ID() == id })
}

// Records strips the sync state.
func Records[T any](list []Entry[T]) []T {
	out := make([]T, len(list))
	for i, e := range list {
		out[i] = e.Record
	}
	return out
}

func confirmedAll[T any](records []T, id func(T) string) []Entry[T] {
	out := make([]Entry[T], len(records))
	for i, r := range records {
		out[i] = Entry[T]{Record: r, State: Confirmed(id(r))}
	}
	return out
}
