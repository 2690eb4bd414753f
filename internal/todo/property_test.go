package todo

import (
	"context"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/mesh-intelligence/todos/internal/prompt"
	"github.com/mesh-intelligence/todos/internal/session"
	"github.com/mesh-intelligence/todos/internal/storetest"
	"github.com/mesh-intelligence/todos/pkg/types"
)

func TestProperty_AddTrimsAndAppendsOne(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		store := storetest.New()
		ctrl := New(store, session.NewMirror(session.NewMemory(), ""))
		if err := ctrl.Load(context.Background()); err != nil {
			t.Fatalf("load: %v", err)
		}

		if err := ctrl.Add(context.Background(), text); err != nil {
			t.Fatalf("add: %v", err)
		}

		trimmed := strings.TrimSpace(text)
		items := ctrl.Items()
		if trimmed == "" {
			if len(items) != 0 || store.Calls(storetest.OpCreate) != 0 {
				t.Fatalf("blank add %q changed the list", text)
			}
			return
		}
		if len(items) != 1 {
			t.Fatalf("expected one item, got %d", len(items))
		}
		if items[0].Text != trimmed || items[0].Completed {
			t.Fatalf("unexpected item %+v for %q", items[0], text)
		}
	})
}

// TestProperty_SnapshotMatchesView drives random operation sequences and
// checks the cache, the view and the store agree after every step.
func TestProperty_SnapshotMatchesView(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store := storetest.New()
		mirror := session.NewMirror(session.NewMemory(), "")
		answer := rapid.StringMatching(`[a-z ]{0,8}`).Draw(t, "answer")
		ctrl := New(store, mirror, WithPrompter(prompt.Fixed(answer)))
		ctx := context.Background()
		if err := ctrl.Load(ctx); err != nil {
			t.Fatalf("load: %v", err)
		}

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			items := ctrl.Items()
			op := rapid.SampledFrom([]string{"add", "delete", "edit", "toggle", "search", "fail"}).Draw(t, "op")
			pick := func() string {
				if len(items) == 0 {
					return "missing"
				}
				return items[rapid.IntRange(0, len(items)-1).Draw(t, "index")].ID
			}

			switch op {
			case "add":
				_ = ctrl.Add(ctx, rapid.StringMatching(`[ a-z]{0,6}`).Draw(t, "text"))
			case "delete":
				_ = ctrl.Delete(ctx, pick())
			case "edit":
				_ = ctrl.EditText(ctx, pick())
			case "toggle":
				_ = ctrl.ToggleCompletion(ctx, pick())
			case "search":
				ctrl.Search(rapid.StringMatching(`[a-z]{0,2}`).Draw(t, "query"))
			case "fail":
				store.Fail(storetest.OpUpdate, nil)
				_ = ctrl.ToggleCompletion(ctx, pick())
				store.Recover(storetest.OpUpdate)
			}

			cached, ok, err := mirror.Read()
			if err != nil || !ok {
				t.Fatalf("read snapshot: ok=%v err=%v", ok, err)
			}
			records := ctrl.Records()
			if len(cached) != len(records) {
				t.Fatalf("snapshot has %d records, view has %d", len(cached), len(records))
			}
			for j := range records {
				if cached[j] != records[j] {
					t.Fatalf("record %d: snapshot %+v, view %+v", j, cached[j], records[j])
				}
			}

			stored, err := store.List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(stored) != len(records) {
				t.Fatalf("store has %d records, view has %d", len(stored), len(records))
			}
			for j := range stored {
				if stored[j] != records[j] {
					t.Fatalf("record %d: store %+v, view %+v", j, stored[j], records[j])
				}
			}
		}
	})
}

func TestProperty_ToggleTwiceRestores(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		completed := rapid.Bool().Draw(t, "completed")
		store := storetest.New(types.Todo{ID: "a", Text: "X", Completed: completed})
		ctrl := New(store, session.NewMirror(session.NewMemory(), ""))
		ctx := context.Background()
		if err := ctrl.Load(ctx); err != nil {
			t.Fatalf("load: %v", err)
		}

		for i := 0; i < 2; i++ {
			if err := ctrl.ToggleCompletion(ctx, "a"); err != nil {
				t.Fatalf("toggle: %v", err)
			}
		}
		doc, _ := store.Get("a")
		if doc.Completed != completed || ctrl.Items()[0].Completed != completed {
			t.Fatalf("toggle twice did not restore completed=%v", completed)
		}
	})
}
