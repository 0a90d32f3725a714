package core

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSubjectReplaysAndUnsubscribes(t *testing.T) {
	s := NewSubject(1)
	var first, second []int
	unsubFirst := s.Subscribe(func(v int) { first = append(first, v) })
	s.Publish(2)
	unsubSecond := s.Subscribe(func(v int) { second = append(second, v) })
	s.Publish(3)
	unsubFirst()
	unsubFirst()
	s.Publish(4)
	unsubSecond()
	s.Publish(5)

	if diff := cmp.Diff([]int{1, 2, 3}, first); diff != "" {
		t.Fatalf("first subscriber (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 3, 4}, second); diff != "" {
		t.Fatalf("second subscriber (-want +got):\n%s", diff)
	}
	if s.Value() != 5 {
		t.Fatalf("expected current value 5, got %d", s.Value())
	}
}

func TestSubjectNotifiesInSubscriptionOrder(t *testing.T) {
	s := NewSubject("")
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		s.Subscribe(func(v string) {
			if v != "" {
				order = append(order, name+v)
			}
		})
	}
	s.Publish("!")
	if diff := cmp.Diff([]string{"a!", "b!", "c!"}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSubjectCallbackMayReadValue(t *testing.T) {
	s := NewSubject(0)
	var seen int
	s.Subscribe(func(int) { seen = s.Value() })
	s.Publish(7)
	if seen != 7 {
		t.Fatalf("expected callback to observe 7, got %d", seen)
	}
}

func TestSubjectConcurrentPublish(t *testing.T) {
	s := NewSubject(0)
	var mu sync.Mutex
	calls := 0
	s.Subscribe(func(int) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			s.Publish(v)
		}(i)
	}
	wg.Wait()
	if calls != 21 {
		t.Fatalf("expected 21 notifications, got %d", calls)
	}
}
