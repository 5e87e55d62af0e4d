package config

import (
	"github.com/danmuck/igtlctl/internal/geom"
	"github.com/danmuck/igtlctl/internal/scene"
)

// SceneEntities converts the manifest into registry entities, in file order.
func (m Manifest) SceneEntities() []scene.Entity {
	out := make([]scene.Entity, 0, len(m.Entities))
	for i, e := range m.Entities {
		index := e.Index
		if index == 0 {
			index = i + 1
		}
		scale := geom.Vec3{X: 1, Y: 1, Z: 1}
		if e.Scale != nil {
			scale = geom.Vec3{X: e.Scale[0], Y: e.Scale[1], Z: e.Scale[2]}
		}
		out = append(out, scene.Entity{
			ID:       e.ID,
			Index:    index,
			Color:    e.Color,
			Diameter: e.Diameter,
			Length:   e.Length,
			Pose: geom.Pose{
				Position: geom.Vec3{X: e.Position[0], Y: e.Position[1], Z: e.Position[2]},
				Rotation: geom.FromEulerDegrees(e.Rotation[0], e.Rotation[1], e.Rotation[2]),
				Scale:    scale,
			},
		})
	}
	return out
}
