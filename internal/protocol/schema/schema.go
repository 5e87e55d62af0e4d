package schema

import (
	"fmt"

	logs "github.com/danmuck/igtlctl/internal/logging"
	"github.com/danmuck/igtlctl/internal/protocol/frame"
)

// Message type tags carried in the header type field.
const (
	TypeTransform  = "TRANSFORM"
	TypeImage      = "IMAGE"
	TypeStatus     = "STATUS"
	TypePosition   = "POSITION"
	TypeString     = "STRING"
	TypeCapability = "CAPABILITY"

	TypeGetTransform = "GET_TRANSFORM"
	TypeGetImage     = "GET_IMAGE"
	TypeGetStatus    = "GET_STATUS"
)

// Fixed content sizes.
const (
	TransformContentLen   = 48
	ImageHeaderContentLen = 72
)

type Requirement struct {
	MinContent int
	Handled    bool
}

type ValidationError struct {
	Type   string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("schema: type=%q: %s", e.Type, e.Reason)
}

var requirements = map[string]Requirement{
	TypeTransform:    {MinContent: TransformContentLen, Handled: true},
	TypeImage:        {MinContent: ImageHeaderContentLen, Handled: true},
	TypeStatus:       {MinContent: 30},
	TypePosition:     {MinContent: 12},
	TypeString:       {MinContent: 4},
	TypeCapability:   {},
	TypeGetTransform: {},
	TypeGetImage:     {},
	TypeGetStatus:    {},
}

// Known reports whether tag is a recognised message type.
func Known(tag string) bool {
	_, ok := requirements[tag]
	return ok
}

// LabelOther stands in for unrecognised tags in metric labels.
const LabelOther = "other"

// MetricLabel returns tag when it is a recognised type and LabelOther
// otherwise, bounding the label values a peer can create.
func MetricLabel(tag string) string {
	if Known(tag) {
		return tag
	}
	return LabelOther
}

// Handled reports whether the client decodes and dispatches tag.
func Handled(tag string) bool {
	return requirements[tag].Handled
}

// Validate checks that a frame carries enough content for its type.
// Unrecognised types pass so callers can skip them.
func Validate(f frame.Frame) error {
	req, ok := requirements[f.Header.Type]
	if !ok {
		logs.Debugf("schema.Validate unknown type=%q device=%q", f.Header.Type, f.Header.DeviceName)
		return nil
	}
	if f.Header.BodySize != uint64(len(f.Body)) {
		return ValidationError{Type: f.Header.Type, Reason: fmt.Sprintf("body_size=%d but body has %d bytes", f.Header.BodySize, len(f.Body))}
	}
	content, err := f.Content()
	if err != nil {
		logs.Errf("schema.Validate content type=%q err=%v", f.Header.Type, err)
		return ValidationError{Type: f.Header.Type, Reason: err.Error()}
	}
	if len(content) < req.MinContent {
		logs.Errf("schema.Validate short content type=%q have=%d want>=%d", f.Header.Type, len(content), req.MinContent)
		return ValidationError{Type: f.Header.Type, Reason: fmt.Sprintf("content %d bytes, need at least %d", len(content), req.MinContent)}
	}
	return nil
}
