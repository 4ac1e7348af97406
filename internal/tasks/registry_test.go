package tasks

import (
	"context"
	"testing"
)

func TestRegistryOrderAndReplace(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(&Definition{Name: TaskDownloadPending, Title: "first"})
	reg.Register(&Definition{Name: TaskCheckReindex, Title: "second"})

	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("len(All()) = %d, want 2", len(all))
	}
	if all[0].Name != TaskDownloadPending || all[1].Name != TaskCheckReindex {
		t.Errorf("registration order not preserved: %s, %s", all[0].Name, all[1].Name)
	}

	// Re-registering replaces the definition but keeps the position.
	called := false
	reg.Register(&Definition{Name: TaskDownloadPending, Title: "replaced",
		Handler: func(context.Context, *Run) error { called = true; return nil }})

	all = reg.All()
	if len(all) != 2 {
		t.Fatalf("replace grew the registry to %d", len(all))
	}
	if all[0].Title != "replaced" {
		t.Errorf("definition not replaced, title = %q", all[0].Title)
	}
	if err := reg.Get(TaskDownloadPending).Handler(context.Background(), nil); err != nil {
		t.Fatalf("replaced handler: %v", err)
	}
	if !called {
		t.Error("replaced handler not invoked")
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if def := reg.Get("no_such_task"); def != nil {
		t.Errorf("Get(unknown) = %+v, want nil", def)
	}
}
