package domain_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"mapmarks/internal/core/domain"
)

func TestWritePartition_LaterFailureMovesRecordToErrors(t *testing.T) {
	p := domain.NewWritePartition()
	loc := &domain.MapLocation{Guid: "z", Title: "Z"}

	p.Record(domain.WriteResult{Data: loc})
	p.Record(domain.WriteResult{Data: loc, Err: errors.New("write refused")})

	if got := p.Successes(); len(got) != 0 {
		t.Errorf("z must be absent from successes after the failed rewrite, got %+v", got)
	}
	errsOut := p.Errors()
	if len(errsOut) != 1 || errsOut[0].Guid != "z" {
		t.Fatalf("expected z only in errors, got %+v", errsOut)
	}
	if errsOut[0].Error == "" {
		t.Error("expected error detail on the outcome")
	}
}

func TestWritePartition_LaterSuccessMovesRecordToSuccesses(t *testing.T) {
	p := domain.NewWritePartition()
	loc := &domain.MapLocation{Guid: "z"}

	p.Record(domain.WriteResult{Data: loc, Err: errors.New("transient")})
	p.Record(domain.WriteResult{Data: loc})

	if got := p.Errors(); len(got) != 0 {
		t.Errorf("z must leave errors after a successful rewrite, got %+v", got)
	}
	if got := p.Successes(); len(got) != 1 || got[0].Guid != "z" {
		t.Fatalf("expected z only in successes, got %+v", got)
	}
}

func TestWritePartition_UpdateInPlaceAppliesAtIndexZero(t *testing.T) {
	// The first entry of a collection is replaceable like any other; a
	// rewrite of the very first recorded guid must not append a duplicate.
	p := domain.NewWritePartition()

	p.Record(domain.WriteResult{Data: &domain.MapLocation{Guid: "first", Title: "v1"}})
	p.Record(domain.WriteResult{Data: &domain.MapLocation{Guid: "second"}})
	p.Record(domain.WriteResult{Data: &domain.MapLocation{Guid: "first", Title: "v2"}})

	got := p.Successes()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries after in-place update, got %d", len(got))
	}
	if got[0].Guid != "first" || got[0].Location.Title != "v2" {
		t.Errorf("expected index 0 updated in place, got %+v", got[0])
	}
}

func TestWritePartition_ConcurrentRecordsNoLostUpdates(t *testing.T) {
	p := domain.NewWritePartition()

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := domain.WriteResult{Data: &domain.MapLocation{Guid: fmt.Sprintf("loc-%d", i)}}
			if i%3 == 0 {
				res.Err = errors.New("failed")
			}
			p.Record(res)
		}(i)
	}
	wg.Wait()

	successes, errs := p.Counts()
	if successes+errs != n {
		t.Fatalf("expected %d outcomes, got %d successes + %d errors", n, successes, errs)
	}

	seen := make(map[string]bool, n)
	for _, o := range p.Successes() {
		if seen[o.Guid] {
			t.Errorf("duplicate outcome for %s", o.Guid)
		}
		seen[o.Guid] = true
	}
	for _, o := range p.Errors() {
		if seen[o.Guid] {
			t.Errorf("record %s present in both partitions", o.Guid)
		}
		seen[o.Guid] = true
	}
}
