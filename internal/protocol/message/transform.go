package message

import (
	"fmt"
	"math"
	"strconv"

	"github.com/danmuck/igtlctl/internal/geom"
	logs "github.com/danmuck/igtlctl/internal/logging"
	"github.com/danmuck/igtlctl/internal/protocol"
	"github.com/danmuck/igtlctl/internal/protocol/frame"
	"github.com/danmuck/igtlctl/internal/protocol/metadata"
	"github.com/danmuck/igtlctl/internal/protocol/schema"
	"github.com/danmuck/igtlctl/internal/scene"
)

// Metadata keys attached to outbound transforms.
const (
	KeyModelName   = "ModelName"
	KeyModelColor  = "ModelColor"
	KeyModelNumber = "ModelNumber"
	KeyNumOfScrews = "NumOfScrews"
)

// DeviceSuffix is appended to an entity ID to form its device name.
const DeviceSuffix = "_T"

// EncodeTransformBody writes the 48-byte content for p: the rotation block
// column by column followed by the translation.
func EncodeTransformBody(p geom.Pose, codec Codec) []byte {
	codec = codec.withDefaults()
	m := geom.Compose(p).Mirror(codec.Mirror).ScaleTranslation(codec.UnitScale)

	w := protocol.NewWriter(schema.TransformContentLen)
	for col := 0; col < 4; col++ {
		for row := 0; row < 3; row++ {
			w.F32(float32(m[row][col]))
		}
	}
	return w.Bytes()
}

// EncodeTransform builds a complete version 2 TRANSFORM frame.
func EncodeTransform(device string, p geom.Pose, entries []metadata.Entry, codec Codec) ([]byte, error) {
	codec = codec.withDefaults()
	content := EncodeTransformBody(p, codec)
	body, err := assembleBody(content, entries)
	if err != nil {
		return nil, err
	}
	return frame.Build(schema.TypeTransform, device, body, codec.Table), nil
}

// EncodeEntity encodes e's pose with its model metadata.
func EncodeEntity(e scene.Entity, screwCount int, codec Codec) ([]byte, error) {
	return EncodeTransform(DeviceName(e.ID), e.Pose, EntityMetadata(e, screwCount), codec)
}

func DeviceName(id string) string {
	return id + DeviceSuffix
}

// ModelName is the model file the peer loads for e.
func ModelName(e scene.Entity) string {
	if !e.IsScrew() {
		return "None"
	}
	return "D" + formatDim(e.Diameter) + "L" + formatDim(e.Length) + ".obj"
}

func EntityMetadata(e scene.Entity, screwCount int) []metadata.Entry {
	return []metadata.Entry{
		{Key: KeyModelName, Value: ModelName(e)},
		{Key: KeyModelColor, Value: e.Color},
		{Key: KeyModelNumber, Value: strconv.Itoa(e.Index)},
		{Key: KeyNumOfScrews, Value: strconv.Itoa(screwCount)},
	}
}

func formatDim(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// assembleBody lays out extended header, content and metadata. The metadata
// block is encoded first because its sizes go into the extended header.
func assembleBody(content []byte, entries []metadata.Entry) ([]byte, error) {
	block, err := metadata.Encode(entries)
	if err != nil {
		return nil, err
	}
	ext := frame.EncodeExtendedHeader(frame.ExtendedHeader{
		Size:               frame.ExtHeaderLen,
		MetadataHeaderSize: block.HeaderSize(),
		MetadataSize:       block.Size(),
	})
	w := protocol.NewWriter(len(ext) + len(content) + block.Len())
	w.Raw(ext)
	w.Raw(content)
	w.Raw(block.Header)
	w.Raw(block.Body)
	return w.Bytes(), nil
}

// DecodeTransformBody reads the 48-byte content at offset and converts it to a
// local pose. Translations beyond codec.TranslationLimit fail with
// protocol.ErrOutOfRange.
func DecodeTransformBody(b []byte, offset int, codec Codec) (geom.Pose, error) {
	codec = codec.withDefaults()
	c, err := protocol.NewCursor(b, offset)
	if err != nil {
		return geom.Pose{}, err
	}
	if c.Remaining() < schema.TransformContentLen {
		return geom.Pose{}, fmt.Errorf("%w: transform needs %d bytes, have %d", protocol.ErrTruncatedPayload, schema.TransformContentLen, c.Remaining())
	}

	var m geom.Matrix
	for col := 0; col < 4; col++ {
		for row := 0; row < 3; row++ {
			v, _ := c.F32()
			m[row][col] = float64(v)
		}
	}
	m = m.ScaleTranslation(1 / codec.UnitScale).Mirror(codec.Mirror)

	t := m.Translation()
	if reach := t.MaxAbs(); math.IsNaN(reach) || reach > codec.TranslationLimit {
		return geom.Pose{}, fmt.Errorf("%w: translation %+v exceeds %g", protocol.ErrOutOfRange, t, codec.TranslationLimit)
	}
	return m.Decompose(), nil
}

// DecodeTransform decodes a TRANSFORM frame and its metadata.
func DecodeTransform(f frame.Frame, codec Codec) (geom.Pose, []metadata.Entry, error) {
	if f.Header.Type != schema.TypeTransform {
		return geom.Pose{}, nil, fmt.Errorf("%w: type %q is not %s", protocol.ErrUnsupportedFormat, f.Header.Type, schema.TypeTransform)
	}
	offset, err := f.ContentOffset()
	if err != nil {
		return geom.Pose{}, nil, err
	}
	pose, err := DecodeTransformBody(f.Body, offset, codec)
	if err != nil {
		return geom.Pose{}, nil, err
	}
	mh, mb, err := f.Metadata()
	if err != nil {
		return pose, nil, err
	}
	entries, err := metadata.Decode(mh, mb)
	if err != nil {
		logs.Warnf("message.DecodeTransform device=%q bad metadata err=%v", f.Header.DeviceName, err)
		return pose, nil, nil
	}
	return pose, entries, nil
}
