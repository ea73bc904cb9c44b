package event

import (
	"sync"
	"testing"
)

func TestEmitterDeliversInOrder(t *testing.T) {
	var em Emitter[int]
	var got []int

	em.Subscribe(func(v int) { got = append(got, v) })
	em.Subscribe(func(v int) { got = append(got, v*10) })

	em.Emit(1)
	em.Emit(2)

	want := []int{1, 10, 2, 20}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestEmitterSubscribeDuringEmit(t *testing.T) {
	var em Emitter[string]
	var count int

	em.Subscribe(func(string) {
		count++
		// Subscribing mid-emission must not deadlock or affect this emit.
		em.Subscribe(func(string) { count++ })
	})

	em.Emit("a")
	if count != 1 {
		t.Errorf("first emit reached %d handlers, want 1", count)
	}

	em.Emit("b")
	if count != 3 {
		t.Errorf("second emit total %d, want 3", count)
	}
}

func TestEmitterConcurrent(t *testing.T) {
	var em Emitter[int]
	var mu sync.Mutex
	var total int

	em.Subscribe(func(v int) {
		mu.Lock()
		total += v
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			em.Emit(1)
		}()
	}
	wg.Wait()

	if total != 50 {
		t.Errorf("total = %d, want 50", total)
	}
}
