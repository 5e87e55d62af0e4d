package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	logs "github.com/danmuck/igtlctl/internal/logging"
	"github.com/danmuck/igtlctl/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("igtlctl", "GET", "/health", 200, 12*time.Millisecond)
	RecordSendTick(3 * time.Millisecond)

	logs.Logf("observability/metrics: registration idempotent and recording paths executed")
}

func TestRecordMessageCounts(t *testing.T) {
	testlog.Start(t)
	before := testutil.ToFloat64(linkMessages.WithLabelValues(DirectionSent, "TRANSFORM"))
	beforeBytes := testutil.ToFloat64(linkBytes.WithLabelValues(DirectionSent))
	RecordMessage(DirectionSent, "TRANSFORM", 154)
	RecordMessage(DirectionSent, "TRANSFORM", 154)
	if got := testutil.ToFloat64(linkMessages.WithLabelValues(DirectionSent, "TRANSFORM")); got != before+2 {
		t.Fatalf("messages: got=%v want=%v", got, before+2)
	}
	if got := testutil.ToFloat64(linkBytes.WithLabelValues(DirectionSent)); got != beforeBytes+308 {
		t.Fatalf("bytes: got=%v want=%v", got, beforeBytes+308)
	}
}

func TestRecordStateAndDropped(t *testing.T) {
	testlog.Start(t)
	RecordState("test", 2)
	if got := testutil.ToFloat64(linkState.WithLabelValues("test")); got != 2 {
		t.Fatalf("state gauge=%v", got)
	}
	before := testutil.ToFloat64(linkDropped.WithLabelValues("IMAGE", "truncated"))
	RecordDropped("IMAGE", "truncated")
	if got := testutil.ToFloat64(linkDropped.WithLabelValues("IMAGE", "truncated")); got != before+1 {
		t.Fatalf("dropped=%v", got)
	}
}
