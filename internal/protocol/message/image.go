package message

import (
	"fmt"

	"github.com/danmuck/igtlctl/internal/protocol"
	"github.com/danmuck/igtlctl/internal/protocol/frame"
	"github.com/danmuck/igtlctl/internal/protocol/schema"
	"github.com/danmuck/igtlctl/internal/scene"
)

// Image scalar and layout constants.
const (
	ImageVersion        uint16 = 1
	ScalarUint8         uint8  = 3
	EndianBig           uint8  = 1
	CoordRAS            uint8  = 1
	ComponentsGrayscale uint8  = 1
)

// Image is a decoded IMAGE message. Pixels holds exactly Size[0]*Size[1]
// display-ready bytes.
type Image struct {
	Version     uint16
	Components  uint8
	ScalarType  uint8
	Endian      uint8
	CoordSystem uint8
	Size        [3]uint16
	// Orientation holds the i, j and k direction vectors followed by the center.
	Orientation    [12]float32
	SubvolumeStart [3]uint16
	SubvolumeSize  [3]uint16
	Pixels         []byte
}

func (img Image) Width() int  { return int(img.Size[0]) }
func (img Image) Height() int { return int(img.Size[1]) }

// Update converts img into the sink form addressed by device.
func (img Image) Update(device string) scene.ImageUpdate {
	return scene.ImageUpdate{
		DeviceName: device,
		Width:      img.Width(),
		Height:     img.Height(),
		Pixels:     img.Pixels,
	}
}

// DecodeImageBody parses an image whose content starts extHeaderSize bytes
// after offset. Only the first slice is read and each pixel is inverted.
func DecodeImageBody(b []byte, offset int, extHeaderSize int) (Image, error) {
	c, err := protocol.NewCursor(b, offset+extHeaderSize)
	if err != nil {
		return Image{}, err
	}
	if c.Remaining() < schema.ImageHeaderContentLen {
		return Image{}, fmt.Errorf("%w: image header needs %d bytes, have %d", protocol.ErrTruncatedPayload, schema.ImageHeaderContentLen, c.Remaining())
	}

	var img Image
	img.Version, _ = c.U16()
	img.Components, _ = c.U8()
	img.ScalarType, _ = c.U8()
	img.Endian, _ = c.U8()
	img.CoordSystem, _ = c.U8()
	for i := range img.Size {
		img.Size[i], _ = c.U16()
	}
	for i := range img.Orientation {
		img.Orientation[i], _ = c.F32()
	}
	for i := range img.SubvolumeStart {
		img.SubvolumeStart[i], _ = c.U16()
	}
	for i := range img.SubvolumeSize {
		img.SubvolumeSize[i], _ = c.U16()
	}

	n := img.Width() * img.Height()
	raw, err := c.Bytes(n)
	if err != nil {
		return Image{}, fmt.Errorf("image %dx%d pixels: %w", img.Width(), img.Height(), err)
	}
	img.Pixels = make([]byte, n)
	for i, v := range raw {
		img.Pixels[i] = 255 - v
	}
	return img, nil
}

// DecodeImage decodes the IMAGE content of f.
func DecodeImage(f frame.Frame) (Image, error) {
	if f.Header.Type != schema.TypeImage {
		return Image{}, fmt.Errorf("%w: type %q is not %s", protocol.ErrUnsupportedFormat, f.Header.Type, schema.TypeImage)
	}
	offset, err := f.ContentOffset()
	if err != nil {
		return Image{}, err
	}
	return DecodeImageBody(f.Body, 0, offset)
}

// EncodeImageBody writes img as IMAGE content. Pixels are inverted on the way
// out so DecodeImageBody returns them unchanged.
func EncodeImageBody(img Image) ([]byte, error) {
	n := img.Width() * img.Height()
	if len(img.Pixels) != n {
		return nil, fmt.Errorf("%w: %d pixels for %dx%d image", protocol.ErrInvalidLength, len(img.Pixels), img.Width(), img.Height())
	}
	if img.Version == 0 {
		img.Version = ImageVersion
	}
	w := protocol.NewWriter(schema.ImageHeaderContentLen + n)
	w.U16(img.Version)
	w.U8(img.Components)
	w.U8(img.ScalarType)
	w.U8(img.Endian)
	w.U8(img.CoordSystem)
	for _, v := range img.Size {
		w.U16(v)
	}
	for _, v := range img.Orientation {
		w.F32(v)
	}
	for _, v := range img.SubvolumeStart {
		w.U16(v)
	}
	for _, v := range img.SubvolumeSize {
		w.U16(v)
	}
	inv := make([]byte, n)
	for i, v := range img.Pixels {
		inv[i] = 255 - v
	}
	w.Raw(inv)
	return w.Bytes(), nil
}

// NewGrayscale fills the layout fields for a single-slice 8-bit image.
func NewGrayscale(width, height uint16, pixels []byte) Image {
	return Image{
		Version:       ImageVersion,
		Components:    ComponentsGrayscale,
		ScalarType:    ScalarUint8,
		Endian:        EndianBig,
		CoordSystem:   CoordRAS,
		Size:          [3]uint16{width, height, 1},
		Orientation:   [12]float32{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0},
		SubvolumeSize: [3]uint16{width, height, 1},
		Pixels:        pixels,
	}
}

// EncodeImage builds a complete version 2 IMAGE frame.
func EncodeImage(device string, img Image, codec Codec) ([]byte, error) {
	codec = codec.withDefaults()
	content, err := EncodeImageBody(img)
	if err != nil {
		return nil, err
	}
	body, err := assembleBody(content, nil)
	if err != nil {
		return nil, err
	}
	return frame.Build(schema.TypeImage, device, body, codec.Table), nil
}
