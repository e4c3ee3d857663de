package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/fivetide/phiremock-server/pkg/expectation"
)

func newExpectation(id string, priority int) *expectation.Expectation {
	body := "body-" + id
	return &expectation.Expectation{
		ID:       id,
		Priority: priority,
		Request:  &expectation.RequestPattern{},
		Response: &expectation.Response{Body: body},
	}
}

func TestInMemory_AddAndGet(t *testing.T) {
	store := NewInMemoryStore()

	id := store.Add(newExpectation("e-1", 0))
	if id != "e-1" {
		t.Fatalf("Add() = %q, want %q", id, "e-1")
	}

	got := store.Get("e-1")
	if got == nil {
		t.Fatal("Get() returned nil")
	}
	if got.ID != "e-1" {
		t.Errorf("Get().ID = %q, want %q", got.ID, "e-1")
	}
	if store.Get("absent") != nil {
		t.Error("Get(absent) should return nil")
	}
}

func TestInMemory_AddAssignsContentID(t *testing.T) {
	store := NewInMemoryStore()
	e := newExpectation("", 0)

	id := store.Add(e)
	if id == "" {
		t.Fatal("Add() assigned no id")
	}
	if e.ID != id {
		t.Errorf("expectation id = %q, want %q", e.ID, id)
	}
}

func TestInMemory_ReplaceKeepsInsertionOrder(t *testing.T) {
	store := NewInMemoryStore()
	store.Add(newExpectation("first", 0))
	store.Add(newExpectation("second", 0))

	replacement := newExpectation("first", 5)
	store.Add(replacement)

	list := store.List()
	if len(list) != 2 {
		t.Fatalf("Count = %d, want 2", len(list))
	}
	if list[0].ID != "first" || list[0].Priority != 5 {
		t.Errorf("list[0] = %q prio %d, want replaced 'first' prio 5", list[0].ID, list[0].Priority)
	}
	if list[1].ID != "second" {
		t.Errorf("list[1] = %q, want 'second'", list[1].ID)
	}
}

func TestInMemory_DeleteIdempotent(t *testing.T) {
	store := NewInMemoryStore()
	store.Add(newExpectation("e-1", 0))

	if !store.Delete("e-1") {
		t.Error("Delete(existing) = false, want true")
	}
	if store.Delete("e-1") {
		t.Error("Delete(deleted) = true, want false")
	}
	if store.Count() != 0 {
		t.Errorf("Count = %d, want 0", store.Count())
	}
}

func TestInMemory_ListInsertionOrder(t *testing.T) {
	store := NewInMemoryStore()
	for i := 0; i < 10; i++ {
		store.Add(newExpectation(fmt.Sprintf("e-%02d", i), 0))
	}

	list := store.List()
	for i, e := range list {
		want := fmt.Sprintf("e-%02d", i)
		if e.ID != want {
			t.Fatalf("list[%d] = %q, want %q", i, e.ID, want)
		}
	}
}

func TestInMemory_ResetIdempotent(t *testing.T) {
	store := NewInMemoryStore()
	store.Add(newExpectation("e-1", 0))

	store.Reset()
	if store.Count() != 0 {
		t.Fatalf("Count after Reset = %d, want 0", store.Count())
	}
	store.Reset()
	if store.Count() != 0 {
		t.Fatalf("Count after double Reset = %d, want 0", store.Count())
	}
}

func TestInMemory_ListIsSnapshot(t *testing.T) {
	store := NewInMemoryStore()
	store.Add(newExpectation("e-1", 0))

	list := store.List()
	store.Reset()

	if len(list) != 1 {
		t.Fatalf("snapshot len = %d after Reset, want 1", len(list))
	}
}

func TestInMemory_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Add(newExpectation(fmt.Sprintf("e-%d-%d", n, j), j))
				store.List()
				store.Get(fmt.Sprintf("e-%d-%d", n, j))
			}
		}(i)
	}
	wg.Wait()

	if store.Count() != 800 {
		t.Errorf("Count = %d, want 800", store.Count())
	}
}
