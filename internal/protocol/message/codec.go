// Package message encodes and decodes TRANSFORM and IMAGE message content.
//
// Outbound poses are mirrored across Codec.Mirror and have their translation
// multiplied by Codec.UnitScale before being written; inbound poses undo both
// steps in reverse order, so a pose survives an encode/decode round trip.
package message

import (
	"github.com/danmuck/igtlctl/internal/geom"
	"github.com/danmuck/igtlctl/internal/protocol/crc64"
)

// Codec carries the conversion parameters shared by both directions.
type Codec struct {
	// UnitScale converts local translation units to wire units.
	UnitScale float64
	// Mirror is the axis reflected between local and wire frames.
	Mirror geom.Axis
	// TranslationLimit bounds decoded translation components, in local units.
	TranslationLimit float64
	Table            *crc64.Table
}

func DefaultCodec() Codec {
	return Codec{
		UnitScale:        1000,
		Mirror:           geom.AxisX,
		TranslationLimit: 10000,
		Table:            crc64.Default(),
	}
}

func (c Codec) withDefaults() Codec {
	d := DefaultCodec()
	if c.UnitScale == 0 {
		c.UnitScale = d.UnitScale
	}
	if c.TranslationLimit == 0 {
		c.TranslationLimit = d.TranslationLimit
	}
	if c.Table == nil {
		c.Table = d.Table
	}
	return c
}
