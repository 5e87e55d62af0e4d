// Package scene tracks the tracked entities a link streams and the sinks that
// receive inbound poses and images.
package scene

import (
	"strings"

	"github.com/danmuck/igtlctl/internal/geom"
)

// Entity is one locally tracked object.
type Entity struct {
	ID       string
	Index    int
	Color    string
	Diameter float64
	Length   float64
	Pose     geom.Pose
}

// IsScrew reports whether the entity describes a screw model.
func (e Entity) IsScrew() bool {
	return strings.Contains(e.ID, "Screw")
}

// Source yields the entities to stream on each send tick.
type Source interface {
	Snapshot() []Entity
}

// PoseUpdate is an inbound transform addressed to an entity.
type PoseUpdate struct {
	TargetID string
	Position geom.Vec3
	Rotation geom.Quat
	// Fallback is set when the received pose was rejected and the default pose
	// was substituted.
	Fallback bool
}

// Pose returns the update as a unit-scale pose.
func (u PoseUpdate) Pose() geom.Pose {
	return geom.Pose{Position: u.Position, Rotation: u.Rotation, Scale: geom.Vec3{X: 1, Y: 1, Z: 1}}
}

// ImageUpdate is an inbound single-slice image.
type ImageUpdate struct {
	DeviceName string
	Width      int
	Height     int
	Pixels     []byte
}

type PoseSink interface {
	ApplyPose(PoseUpdate)
}

type ImageSink interface {
	ApplyImage(ImageUpdate)
}

// PoseSinkFunc adapts a function to PoseSink.
type PoseSinkFunc func(PoseUpdate)

func (f PoseSinkFunc) ApplyPose(u PoseUpdate) { f(u) }

// ImageSinkFunc adapts a function to ImageSink.
type ImageSinkFunc func(ImageUpdate)

func (f ImageSinkFunc) ApplyImage(u ImageUpdate) { f(u) }

// Discard drops every update.
var Discard discard

type discard struct{}

func (discard) ApplyPose(PoseUpdate)   {}
func (discard) ApplyImage(ImageUpdate) {}
