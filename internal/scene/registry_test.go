package scene

import (
	"errors"
	"sync"
	"testing"

	"github.com/danmuck/igtlctl/internal/geom"
	"github.com/danmuck/igtlctl/internal/testutil/testlog"
)

func TestRegistryOrderAndLookup(t *testing.T) {
	testlog.Start(t)
	r, err := NewRegistry(
		Entity{ID: "Screw-1", Index: 1},
		Entity{ID: "Pointer", Index: 2},
		Entity{ID: "Screw-2", Index: 3},
	)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	snap := r.Snapshot()
	want := []string{"Screw-1", "Pointer", "Screw-2"}
	for i, id := range want {
		if snap[i].ID != id {
			t.Fatalf("order[%d]: got=%q want=%q", i, snap[i].ID, id)
		}
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Fatalf("expected missing lookup to fail")
	}
	e, ok := r.Lookup("Pointer")
	if !ok || e.Index != 2 {
		t.Fatalf("lookup pointer: %+v ok=%v", e, ok)
	}
	if e.Pose != geom.IdentityPose() {
		t.Fatalf("expected identity pose default, got %+v", e.Pose)
	}
}

func TestRegistryRejectsDuplicatesAndEmpty(t *testing.T) {
	testlog.Start(t)
	r, _ := NewRegistry()
	if err := r.Add(Entity{ID: "a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.Add(Entity{ID: "a"}); !errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("expected ErrDuplicateEntity, got %v", err)
	}
	if err := r.Add(Entity{}); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
}

func TestRegistryRemove(t *testing.T) {
	testlog.Start(t)
	r, _ := NewRegistry(Entity{ID: "a"}, Entity{ID: "b"}, Entity{ID: "c"})
	if !r.Remove("b") {
		t.Fatalf("expected remove to succeed")
	}
	if r.Remove("b") {
		t.Fatalf("expected second remove to fail")
	}
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].ID != "a" || snap[1].ID != "c" {
		t.Fatalf("unexpected snapshot after remove: %+v", snap)
	}
}

func TestRegistryUpdatePose(t *testing.T) {
	testlog.Start(t)
	r, _ := NewRegistry(Entity{ID: "a"})
	p := geom.DefaultPose()
	if err := r.UpdatePose("a", p); err != nil {
		t.Fatalf("update: %v", err)
	}
	if e, _ := r.Lookup("a"); e.Pose != p {
		t.Fatalf("pose not stored: %+v", e.Pose)
	}
	if err := r.UpdatePose("zz", p); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	testlog.Start(t)
	r, _ := NewRegistry(Entity{ID: "a"})
	snap := r.Snapshot()
	snap[0].ID = "mutated"
	if _, ok := r.Lookup("a"); !ok {
		t.Fatalf("snapshot mutation leaked into registry")
	}
}

func TestRegistryReplaceKeepsPoses(t *testing.T) {
	testlog.Start(t)
	r, _ := NewRegistry(Entity{ID: "a"}, Entity{ID: "b"})
	moved := geom.DefaultPose()
	_ = r.UpdatePose("a", moved)

	if err := r.Replace([]Entity{{ID: "c"}, {ID: "a", Color: "red"}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].ID != "c" || snap[1].ID != "a" {
		t.Fatalf("unexpected order after replace: %+v", snap)
	}
	if snap[1].Pose != moved || snap[1].Color != "red" {
		t.Fatalf("surviving entity lost pose or update: %+v", snap[1])
	}
	if _, ok := r.Lookup("b"); ok {
		t.Fatalf("expected b removed")
	}
	if err := r.Replace([]Entity{{ID: "x"}, {ID: "x"}}); !errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("failed replace must not modify registry, len=%d", r.Len())
	}
}

func TestApplierUpdatesRegistry(t *testing.T) {
	testlog.Start(t)
	r, _ := NewRegistry(Entity{ID: "a"})
	sink := r.Applier()
	sink.ApplyPose(PoseUpdate{TargetID: "a", Position: geom.Vec3{X: 1}, Rotation: geom.IdentityQuat()})
	sink.ApplyPose(PoseUpdate{TargetID: "nobody"})
	e, _ := r.Lookup("a")
	if e.Pose.Position.X != 1 || e.Pose.Scale != (geom.Vec3{X: 1, Y: 1, Z: 1}) {
		t.Fatalf("applier did not store pose: %+v", e.Pose)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	testlog.Start(t)
	r, _ := NewRegistry(Entity{ID: "a"}, Entity{ID: "b"})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = r.UpdatePose("a", geom.Pose{Position: geom.Vec3{X: float64(i)}})
		}(i)
		go func() {
			defer wg.Done()
			_ = r.Snapshot()
		}()
	}
	wg.Wait()
	if r.Len() != 2 {
		t.Fatalf("len changed under concurrent updates: %d", r.Len())
	}
}

func TestIsScrew(t *testing.T) {
	if !(Entity{ID: "Screw-1"}).IsScrew() {
		t.Fatalf("expected Screw-1 to be a screw")
	}
	if (Entity{ID: "Pointer"}).IsScrew() {
		t.Fatalf("expected Pointer not to be a screw")
	}
}
