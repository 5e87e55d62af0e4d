package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/danmuck/igtlctl/internal/geom"
	logs "github.com/danmuck/igtlctl/internal/logging"
)

var (
	ErrDuplicateEntity = errors.New("scene: duplicate entity id")
	ErrUnknownEntity   = errors.New("scene: unknown entity id")
	ErrEmptyID         = errors.New("scene: empty entity id")
)

// Registry is an ordered, concurrency-safe set of entities keyed by ID.
// Iteration order is insertion order.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Entity
}

func NewRegistry(entities ...Entity) (*Registry, error) {
	r := &Registry{byID: make(map[string]Entity)}
	for _, e := range entities {
		if err := r.Add(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Add(e Entity) error {
	if e.ID == "" {
		return ErrEmptyID
	}
	if e.Pose == (geom.Pose{}) {
		e.Pose = geom.IdentityPose()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateEntity, e.ID)
	}
	r.byID[e.ID] = e
	r.order = append(r.order, e.ID)
	logs.Debugf("scene.Registry.Add id=%q index=%d", e.ID, e.Index)
	return nil
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	logs.Debugf("scene.Registry.Remove id=%q", id)
	return true
}

// Lookup returns the entity for id; ok is false when no such entity exists.
func (r *Registry) Lookup(id string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e, ok
}

func (r *Registry) UpdatePose(id string, p geom.Pose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, id)
	}
	e.Pose = p
	r.byID[id] = e
	return nil
}

// Snapshot copies the current entities in registry order.
func (r *Registry) Snapshot() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Replace swaps the registry contents for entities. Poses of entities that
// survive the swap are kept unless the incoming entity sets one.
func (r *Registry) Replace(entities []Entity) error {
	next := make(map[string]Entity, len(entities))
	order := make([]string, 0, len(entities))
	for _, e := range entities {
		if e.ID == "" {
			return ErrEmptyID
		}
		if _, dup := next[e.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateEntity, e.ID)
		}
		next[e.ID] = e
		order = append(order, e.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range next {
		if e.Pose != (geom.Pose{}) {
			continue
		}
		if prev, ok := r.byID[id]; ok {
			e.Pose = prev.Pose
		} else {
			e.Pose = geom.IdentityPose()
		}
		next[id] = e
	}
	r.byID = next
	r.order = order
	logs.Infof("scene.Registry.Replace entities=%d", len(order))
	return nil
}

// Applier returns a PoseSink that writes inbound poses back into the registry.
// Updates for unknown targets are logged and dropped.
func (r *Registry) Applier() PoseSink {
	return PoseSinkFunc(func(u PoseUpdate) {
		if err := r.UpdatePose(u.TargetID, u.Pose()); err != nil {
			logs.Debugf("scene.Registry.Applier drop target=%q err=%v", u.TargetID, err)
		}
	})
}
