package link

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/danmuck/igtlctl/internal/geom"
	logs "github.com/danmuck/igtlctl/internal/logging"
	"github.com/danmuck/igtlctl/internal/observability"
	"github.com/danmuck/igtlctl/internal/protocol"
	"github.com/danmuck/igtlctl/internal/protocol/frame"
	"github.com/danmuck/igtlctl/internal/protocol/message"
	"github.com/danmuck/igtlctl/internal/protocol/schema"
	"github.com/danmuck/igtlctl/internal/scene"
)

// RunSendLoop writes one TRANSFORM per entity every SendInterval, in source
// order. The entity list is snapshotted at the start of each tick. It returns
// nil on cancellation and an error wrapping the transport failure otherwise.
func (c *Client) RunSendLoop(ctx context.Context, source scene.Source) error {
	ticker := time.NewTicker(c.cfg.Session.SendInterval)
	defer ticker.Stop()
	logs.Debugf("link.Client.RunSendLoop name=%q interval=%s", c.cfg.Name, c.cfg.Session.SendInterval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := c.sendTick(ctx, source.Snapshot()); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return c.loopFailed(LoopSend, err)
		}
	}
}

func (c *Client) sendTick(ctx context.Context, entities []scene.Entity) error {
	start := time.Now()
	screws := 0
	for _, e := range entities {
		if e.IsScrew() {
			screws++
		}
	}
	for _, e := range entities {
		if ctx.Err() != nil {
			return nil
		}
		b, err := message.EncodeEntity(e, screws, c.cfg.Codec)
		if err != nil {
			logs.Warnf("link.Client.sendTick encode id=%q err=%v", e.ID, err)
			continue
		}
		if err := c.transport.Send(ctx, b); err != nil {
			return err
		}
		observability.RecordMessage(observability.DirectionSent, schema.TypeTransform, len(b))
	}
	observability.RecordSendTick(time.Since(start))
	return nil
}

// RunReceiveLoop polls the transport, reassembles frames and dispatches them.
// Bad frames are dropped; only transport failures end the loop.
func (c *Client) RunReceiveLoop(ctx context.Context, poses scene.PoseSink, images scene.ImageSink) error {
	if poses == nil {
		poses = scene.Discard
	}
	if images == nil {
		images = scene.Discard
	}
	asm := frame.NewAssembler(c.cfg.Session.Limits())
	logs.Debugf("link.Client.RunReceiveLoop name=%q chunk=%d", c.cfg.Name, c.cfg.Session.ReceiveChunk)

	for {
		if ctx.Err() != nil {
			return nil
		}
		b, err := c.transport.Receive(ctx, c.cfg.Session.ReceiveChunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return c.loopFailed(LoopReceive, err)
		}
		if len(b) == 0 {
			continue
		}
		asm.Write(b)
		for {
			f, ok, err := asm.Next()
			if err != nil {
				logs.Warnf("link.Client.RunReceiveLoop name=%q discard buffered err=%v", c.cfg.Name, err)
				observability.RecordDropped(schema.LabelOther, "oversize")
				break
			}
			if !ok {
				break
			}
			c.dispatch(f, poses, images)
		}
	}
}

func (c *Client) dispatch(f frame.Frame, poses scene.PoseSink, images scene.ImageSink) {
	msgType := f.Header.Type
	observability.RecordMessage(observability.DirectionReceived, schema.MetricLabel(msgType), frame.HeaderLen+len(f.Body))
	if !schema.Handled(msgType) {
		logs.Debugf("link.Client.dispatch ignore type=%q device=%q", msgType, f.Header.DeviceName)
		observability.RecordDropped(schema.MetricLabel(msgType), "unhandled")
		return
	}
	if c.cfg.Session.VerifyChecksum {
		if err := f.Verify(c.cfg.Codec.Table); err != nil {
			c.drop(f, "checksum", err)
			return
		}
	}
	if err := schema.Validate(f); err != nil {
		c.drop(f, "invalid", err)
		return
	}

	switch msgType {
	case schema.TypeTransform:
		target := TargetID(f.Header.DeviceName)
		pose, _, err := message.DecodeTransform(f, c.cfg.Codec)
		switch {
		case errors.Is(err, protocol.ErrOutOfRange):
			logs.Warnf("link.Client.dispatch fallback target=%q err=%v", target, err)
			def := geom.DefaultPose()
			poses.ApplyPose(scene.PoseUpdate{TargetID: target, Position: def.Position, Rotation: def.Rotation, Fallback: true})
		case err != nil:
			c.drop(f, "decode", err)
		default:
			poses.ApplyPose(scene.PoseUpdate{TargetID: target, Position: pose.Position, Rotation: pose.Rotation})
		}
	case schema.TypeImage:
		img, err := message.DecodeImage(f)
		if err != nil {
			c.drop(f, "decode", err)
			return
		}
		if len(img.Pixels) == 0 {
			logs.Debugf("link.Client.dispatch skip empty image device=%q", f.Header.DeviceName)
			return
		}
		images.ApplyImage(img.Update(f.Header.DeviceName))
	}
}

func (c *Client) drop(f frame.Frame, reason string, err error) {
	logs.Warnf("link.Client.dispatch drop type=%q device=%q reason=%s err=%v", f.Header.Type, f.Header.DeviceName, reason, err)
	observability.RecordDropped(schema.MetricLabel(f.Header.Type), reason)
}

// TargetID maps an inbound device name to the entity it addresses.
func TargetID(device string) string {
	return strings.TrimSuffix(device, message.DeviceSuffix)
}
