package registry

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/reactord/internal/config"
	"github.com/yourusername/reactord/internal/httpproto"
)

func newConn(fd int) *httpproto.Connection {
	return httpproto.New(fd, "test", config.DefaultConfig(), logrus.NewEntry(logrus.New()))
}

func TestInsertGetErase(t *testing.T) {
	r := New()
	c := newConn(5)

	if got := r.Get(5); got != nil {
		t.Fatal("Get on empty registry returned non-nil")
	}

	r.Insert(5, c)
	if got := r.Get(5); got != c {
		t.Fatalf("Get(5) = %v, want %v", got, c)
	}
	if r.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", r.Size())
	}

	r.Erase(5)
	if got := r.Get(5); got != nil {
		t.Fatal("Get after Erase returned non-nil, want nil (late wakeups must see nil)")
	}
	if r.Size() != 0 {
		t.Fatalf("Size() after Erase = %d, want 0", r.Size())
	}
}

func TestInsertReplacesPriorEntry(t *testing.T) {
	r := New()
	first := newConn(5)
	second := newConn(5)

	r.Insert(5, first)
	r.Insert(5, second)

	if got := r.Get(5); got != second {
		t.Fatal("Insert with an existing fd did not replace the prior entry")
	}
	if r.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", r.Size())
	}
}

func TestClearRemovesEverything(t *testing.T) {
	r := New()
	for fd := 1; fd <= 5; fd++ {
		r.Insert(fd, newConn(fd))
	}
	r.Clear()
	if r.Size() != 0 {
		t.Fatalf("Size() after Clear = %d, want 0", r.Size())
	}
	for fd := 1; fd <= 5; fd++ {
		if r.Get(fd) != nil {
			t.Fatalf("Get(%d) after Clear returned non-nil", fd)
		}
	}
}

func TestForEachDoesNotRaceWithConcurrentReaders(t *testing.T) {
	r := New()
	for fd := 1; fd <= 50; fd++ {
		r.Insert(fd, newConn(fd))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			count := 0
			r.ForEach(func(fd int, conn *httpproto.Connection) { count++ })
		}
	}()
	go func() {
		defer wg.Done()
		for fd := 1; fd <= 50; fd++ {
			_ = r.Get(fd)
		}
	}()
	wg.Wait()
}

func TestForEachVisitsEveryEntry(t *testing.T) {
	r := New()
	want := map[int]bool{}
	for fd := 1; fd <= 10; fd++ {
		r.Insert(fd, newConn(fd))
		want[fd] = true
	}

	got := map[int]bool{}
	r.ForEach(func(fd int, conn *httpproto.Connection) { got[fd] = true })

	if len(got) != len(want) {
		t.Fatalf("ForEach visited %d entries, want %d", len(got), len(want))
	}
	for fd := range want {
		if !got[fd] {
			t.Errorf("ForEach did not visit fd %d", fd)
		}
	}
}
