package store_test

import (
	"context"
	"strconv"
	"testing"

	"pgregory.net/rapid"

	"todolist/internal/gateway"
	"todolist/internal/store"
	"todolist/internal/testutil"
)

func drawGateway(t *rapid.T) *testutil.FakeGateway {
	n := rapid.IntRange(0, 8).Draw(t, "n")
	gw := testutil.NewFakeGateway()
	for i := 0; i < n; i++ {
		gw.AddTask(gateway.Task{
			ID:        strconv.Itoa(i + 1),
			Title:     rapid.StringMatching(`[A-Za-z][A-Za-z ]{0,12}`).Draw(t, "title"),
			Completed: rapid.Bool().Draw(t, "completed"),
		})
	}
	return gw
}

func openStore(t *rapid.T, gw *testutil.FakeGateway, opts ...store.Option) *store.Store {
	s := store.New(gw, opts...)
	if err := s.FetchInitial(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	return s
}

func TestProperty_AddGrowsTasks(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gw := drawGateway(t)
		duplicate := rapid.Bool().Draw(t, "duplicate")
		title := rapid.StringMatching(`\s*[A-Za-z0-9][A-Za-z0-9 ]{0,20}`).Draw(t, "title")

		s := openStore(t, gw, store.WithDuplicateOnAdd(duplicate))
		defer s.Close()
		before := len(s.Tasks())

		p, err := s.AddTask(context.Background(), title)
		if err != nil {
			t.Fatalf("add %q: %v", title, err)
		}
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("create: %v", err)
		}

		want := before + 1
		if duplicate {
			want = before + 2
		}
		if got := len(s.Tasks()); got != want {
			t.Fatalf("expected %d tasks, got %d", want, got)
		}
	})
}

func TestProperty_BlankTitleIsNoOp(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gw := drawGateway(t)
		title := rapid.StringMatching(`[ \t\n\r]{0,6}`).Draw(t, "title")

		s := openStore(t, gw)
		defer s.Close()
		before := len(s.Tasks())

		if _, err := s.AddTask(context.Background(), title); !store.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if got := len(s.Tasks()); got != before {
			t.Fatalf("expected %d tasks, got %d", before, got)
		}
	})
}

func TestProperty_CompleteUncompleteRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gw := drawGateway(t)
		s := openStore(t, gw)
		defer s.Close()

		tasks := s.Tasks()
		if len(tasks) == 0 {
			return
		}
		i := rapid.IntRange(0, len(tasks)-1).Draw(t, "index")
		want := tasks[i]

		if err := s.CompleteTask(i); err != nil {
			t.Fatalf("complete: %v", err)
		}
		last := len(s.CompletedTasks()) - 1
		if err := s.UncompleteTask(last); err != nil {
			t.Fatalf("uncomplete: %v", err)
		}

		after := s.Tasks()
		if got := after[len(after)-1]; got != want {
			t.Fatalf("expected %+v restored, got %+v", want, got)
		}
		if len(after) != len(tasks) {
			t.Fatalf("expected %d tasks, got %d", len(tasks), len(after))
		}
	})
}

// TestProperty_Invariants runs random operation sequences and checks that
// every key lives in exactly one list, the selection only names active
// entries and at most one entry is editing.
func TestProperty_Invariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gw := drawGateway(t)
		s := openStore(t, gw)
		defer s.Close()

		ops := rapid.SliceOfN(rapid.IntRange(0, 11), 1, 40).Draw(t, "ops")
		for step, op := range ops {
			n := len(s.Displayed())
			idx := 0
			if n > 0 {
				idx = rapid.IntRange(0, n-1).Draw(t, "idx")
			}
			switch op {
			case 0:
				if p, err := s.AddTask(context.Background(), "t"+strconv.Itoa(step)); err == nil {
					_ = p.Wait(context.Background())
				}
			case 1:
				_ = s.BeginEdit(idx)
			case 2:
				_ = s.UpdateEditBuffer(idx, "buf")
			case 3:
				_ = s.CommitEdit(idx, "edited")
			case 4:
				_ = s.CancelEdit(idx)
			case 5:
				_ = s.DeleteTask(idx)
			case 6:
				_ = s.CompleteTask(idx)
			case 7:
				_ = s.UncompleteTask(idx)
			case 8:
				_ = s.ToggleSelection(idx)
			case 9:
				s.DeleteSelected()
			case 10:
				s.CompleteSelected()
			case 11:
				s.ToggleViewMode()
			}
			checkInvariants(t, s.Snapshot())
		}
	})
}

func checkInvariants(t *rapid.T, st store.State) {
	seen := make(map[string]int)
	for _, e := range st.Tasks {
		seen[e.Key]++
	}
	for _, e := range st.CompletedTasks {
		seen[e.Key]++
	}
	for key, n := range seen {
		if n != 1 {
			t.Fatalf("key %s present %d times", key, n)
		}
	}

	active := make(map[string]bool)
	for _, e := range st.Tasks {
		active[e.Key] = true
	}
	for _, key := range st.Selected {
		if !active[key] {
			t.Fatalf("selected key %s is not an active entry", key)
		}
	}
	if st.EditingKey != "" && !active[st.EditingKey] {
		t.Fatalf("editing key %s is not an active entry", st.EditingKey)
	}
}
