package domain

import "sync"

// WriteResult is the outcome of persisting one location.
type WriteResult struct {
	Data *MapLocation
	Err  error
}

// Guid returns the record identifier the result is keyed by.
func (r WriteResult) Guid() string {
	if r.Data != nil {
		return r.Data.Guid
	}
	return ""
}

// WriteOutcome is one entry of a partition collection.
type WriteOutcome struct {
	Guid     string       `json:"guid"`
	Location *MapLocation `json:"location,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// WritePartition accumulates per-record write results into two collections,
// successes and errors, keyed by guid. Recording is an atomic
// read-modify-write of both collections: a later result for the same guid
// replaces the earlier entry and removes it from the opposite collection,
// so a record is always in exactly one of the two. Safe for concurrent use
// by the independently-resolving write tasks.
type WritePartition struct {
	mu        sync.Mutex
	successes []WriteOutcome
	errors    []WriteOutcome
}

// NewWritePartition returns an empty partition.
func NewWritePartition() *WritePartition {
	return &WritePartition{}
}

// Record folds one write result into the partition.
func (p *WritePartition) Record(res WriteResult) {
	guid := res.Guid()

	entry := WriteOutcome{Guid: guid, Location: res.Data}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if res.Err != nil {
		p.errors = upsertOutcome(p.errors, entry)
		p.successes = removeOutcome(p.successes, guid)
	} else {
		p.successes = upsertOutcome(p.successes, entry)
		p.errors = removeOutcome(p.errors, guid)
	}
}

// Successes returns a copy of the success collection in insertion order.
func (p *WritePartition) Successes() []WriteOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]WriteOutcome(nil), p.successes...)
}

// Errors returns a copy of the error collection in insertion order.
func (p *WritePartition) Errors() []WriteOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]WriteOutcome(nil), p.errors...)
}

// Counts returns the sizes of both collections.
func (p *WritePartition) Counts() (successes, errors int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.successes), len(p.errors)
}

// upsertOutcome replaces the entry with the same guid in place, or appends.
// Replacement applies at any index, including 0.
func upsertOutcome(list []WriteOutcome, entry WriteOutcome) []WriteOutcome {
	for i := range list {
		if list[i].Guid == entry.Guid {
			list[i] = entry
			return list
		}
	}
	return append(list, entry)
}

func removeOutcome(list []WriteOutcome, guid string) []WriteOutcome {
	for i := range list {
		if list[i].Guid == guid {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
