package syncmap

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestLoadAndDeleteOnce(t *testing.T) {
	m := New[string, int]()
	m.Store("bocchi", 1)
	const goroutines = 64
	var wins atomic.Int32
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			if _, ok := m.LoadAndDelete("bocchi"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := wins.Load(); got != 1 {
		t.Errorf("wrong number of successful deletes: want 1, got %d", got)
	}
	if _, ok := m.Load("bocchi"); ok {
		t.Errorf("key survived LoadAndDelete")
	}
}

func TestUpdate(t *testing.T) {
	m := New[string, int]()
	inc := func(old int, ok bool) (int, bool) { return old + 1, true }
	const goroutines = 32
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			m.Update("ryo", inc)
		}()
	}
	wg.Wait()
	if v, _ := m.Load("ryo"); v != goroutines {
		t.Errorf("lost updates: want %d, got %d", goroutines, v)
	}
	m.Update("ryo", func(int, bool) (int, bool) { return 0, false })
	if _, ok := m.Load("ryo"); ok {
		t.Errorf("update returning false didn't delete")
	}
	if m.Len() != 0 {
		t.Errorf("map not empty: %d", m.Len())
	}
}
