package slicing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"printcalc_backend/platform/logger"
)

// fakeChannel scripts engine responses per outbound message type.
type fakeChannel struct {
	mu      sync.Mutex
	sent    []outboundMessage
	respond func(out outboundMessage) *inboundMessage

	inbox     chan inboundMessage
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeChannel(respond func(out outboundMessage) *inboundMessage) *fakeChannel {
	return &fakeChannel{
		respond: respond,
		inbox:   make(chan inboundMessage, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeChannel) WriteJSON(v interface{}) error {
	out, ok := v.(outboundMessage)
	if !ok {
		return errors.New("unexpected outbound type")
	}
	c.mu.Lock()
	c.sent = append(c.sent, out)
	c.mu.Unlock()

	if c.respond != nil {
		if resp := c.respond(out); resp != nil {
			c.inbox <- *resp
		}
	}
	return nil
}

func (c *fakeChannel) ReadJSON(v interface{}) error {
	select {
	case msg := <-c.inbox:
		*(v.(*inboundMessage)) = msg
		return nil
	case <-c.closed:
		return errors.New("channel closed")
	}
}

func (c *fakeChannel) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeChannel) sentTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, len(c.sent))
	for i, m := range c.sent {
		types[i] = m.Type
	}
	return types
}

func echoResponder(out outboundMessage) *inboundMessage {
	resp := inboundMessage{Type: out.Type, CorrelationID: out.CorrelationID}
	if out.Type == msgExport {
		resp.GCode = "G1 X10\n"
		resp.Stats = &RemoteStats{TimeSeconds: 1800, MaterialGrams: 7.5, Layers: 60}
	}
	return &resp
}

func testEngine(t *testing.T, ch Channel, stepTimeout time.Duration) *RemoteEngine {
	t.Helper()
	e := NewRemoteEngine(ch, stepTimeout, logger.New("test"))
	t.Cleanup(func() { e.Close() })
	return e
}

func TestRemoteAdapter_FullSequence(t *testing.T) {
	ch := newFakeChannel(echoResponder)
	adapter := NewRemoteEngineAdapter(testEngine(t, ch, time.Second), logger.New("test"))

	ctx := context.Background()
	req := SliceRequest{Model: []byte("solid"), Filename: "part.stl", Quality: QualityStandard, Material: MaterialPLA}

	staged, err := adapter.Stage(ctx, req)
	if err != nil {
		t.Fatalf("stage failed: %v", err)
	}

	raw, err := adapter.Run(ctx, staged, MapParameters(req, BackendRemote))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if string(raw.GCode) != "G1 X10\n" {
		t.Fatalf("unexpected gcode: %q", raw.GCode)
	}
	if raw.Stats == nil || raw.Stats.MaterialGrams != 7.5 {
		t.Fatalf("unexpected stats: %+v", raw.Stats)
	}

	adapter.Teardown(staged)

	want := []string{msgLoad, msgConfigure, msgSlice, msgPrepare, msgExport, msgClear}
	got := ch.sentTypes()
	if len(got) != len(want) {
		t.Fatalf("expected sequence %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("step %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRemoteEngine_CancellationIsNotATimeout(t *testing.T) {
	// No response ever arrives; the caller gives up first.
	ch := newFakeChannel(func(out outboundMessage) *inboundMessage { return nil })
	engine := testEngine(t, ch, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := engine.request(ctx, msgSlice, nil)
	if FailureKindOf(err) == FailureTimeout {
		t.Fatalf("caller cancellation classified as timeout: %v", err)
	}
	if FailureKindOf(err) != FailureEngine {
		t.Fatalf("expected engine failure for abandoned request, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cancellation cause not wrapped: %v", err)
	}
}

func TestRemoteEngine_DeadlineIsATimeout(t *testing.T) {
	ch := newFakeChannel(func(out outboundMessage) *inboundMessage { return nil })
	engine := testEngine(t, ch, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := engine.request(ctx, msgSlice, nil)
	if FailureKindOf(err) != FailureTimeout {
		t.Fatalf("expected timeout for exceeded deadline, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("deadline cause not wrapped: %v", err)
	}
}

func TestRemoteEngine_StepTimeoutLeavesChannelUsable(t *testing.T) {
	var silent bool
	ch := newFakeChannel(func(out outboundMessage) *inboundMessage {
		if silent {
			return nil
		}
		return echoResponder(out)
	})
	engine := testEngine(t, ch, 50*time.Millisecond)

	silent = true
	_, err := engine.request(context.Background(), msgSlice, nil)
	if FailureKindOf(err) != FailureTimeout {
		t.Fatalf("expected timeout failure, got %v", err)
	}

	// The channel must survive a step timeout; only the pending entry dies.
	silent = false
	if _, err := engine.request(context.Background(), msgPrepare, nil); err != nil {
		t.Fatalf("request after timeout failed: %v", err)
	}
}

func TestRemoteEngine_StaleResponseDropped(t *testing.T) {
	ch := newFakeChannel(nil)
	engine := testEngine(t, ch, 50*time.Millisecond)

	_, err := engine.request(context.Background(), msgSlice, nil)
	if FailureKindOf(err) != FailureTimeout {
		t.Fatalf("expected timeout failure, got %v", err)
	}

	// Deliver the late answer for the timed-out request, then a real one.
	ch.mu.Lock()
	stale := ch.sent[0].CorrelationID
	ch.mu.Unlock()
	ch.inbox <- inboundMessage{Type: msgSlice, CorrelationID: stale}

	ch.respond = echoResponder
	msg, err := engine.request(context.Background(), msgExport, nil)
	if err != nil {
		t.Fatalf("request after stale delivery failed: %v", err)
	}
	if msg.Type != msgExport {
		t.Fatalf("stale response leaked into new request: %+v", msg)
	}
}

func TestRemoteEngine_ErrorResponse(t *testing.T) {
	ch := newFakeChannel(func(out outboundMessage) *inboundMessage {
		return &inboundMessage{Type: out.Type, CorrelationID: out.CorrelationID, Error: "mesh is not manifold"}
	})
	engine := testEngine(t, ch, time.Second)

	_, err := engine.request(context.Background(), msgSlice, nil)
	if FailureKindOf(err) != FailureEngine {
		t.Fatalf("expected engine failure, got %v", err)
	}
}

func TestRemoteAdapter_LoadRejectionIsStagingFailure(t *testing.T) {
	ch := newFakeChannel(func(out outboundMessage) *inboundMessage {
		return &inboundMessage{Type: out.Type, CorrelationID: out.CorrelationID, Error: "unsupported format"}
	})
	adapter := NewRemoteEngineAdapter(testEngine(t, ch, time.Second), logger.New("test"))

	_, err := adapter.Stage(context.Background(), SliceRequest{Model: []byte("x"), Filename: "part.stl"})
	if FailureKindOf(err) != FailureStaging {
		t.Fatalf("expected staging failure, got %v", err)
	}
}

func TestRemoteAdapter_SingleInFlight(t *testing.T) {
	ch := newFakeChannel(echoResponder)
	adapter := NewRemoteEngineAdapter(testEngine(t, ch, time.Second), logger.New("test"))

	req := SliceRequest{Model: []byte("x"), Filename: "a.stl"}
	first, err := adapter.Stage(context.Background(), req)
	if err != nil {
		t.Fatalf("first stage failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := adapter.Stage(ctx, req); FailureKindOf(err) != FailureTimeout {
		t.Fatalf("expected second stage to block until timeout, got %v", err)
	}

	adapter.Teardown(first)

	second, err := adapter.Stage(context.Background(), req)
	if err != nil {
		t.Fatalf("stage after teardown failed: %v", err)
	}
	adapter.Teardown(second)
}

func TestRemoteAdapter_RunWithoutLoadedModel(t *testing.T) {
	adapter := NewRemoteEngineAdapter(testEngine(t, newFakeChannel(echoResponder), time.Second), logger.New("test"))

	if _, err := adapter.Run(context.Background(), nil, EngineParameters{}); FailureKindOf(err) != FailureEngine {
		t.Fatalf("expected engine failure for missing model, got %v", err)
	}
}

func TestBuildConfigurePayload(t *testing.T) {
	params := MapParameters(SliceRequest{
		Quality:       QualityFine,
		Material:      MaterialABS,
		InfillPercent: 30,
		WallCount:     2,
		Brim:          true,
	}, BackendRemote)

	payload := buildConfigurePayload(params)
	if payload.Process.SliceHeight != 0.15 {
		t.Fatalf("expected slice height 0.15, got %v", payload.Process.SliceHeight)
	}
	if payload.Process.SliceFillSparse != 0.3 {
		t.Fatalf("expected fill 0.3, got %v", payload.Process.SliceFillSparse)
	}
	if payload.Process.OutputTemp != 250 || payload.Process.OutputBedTemp != 100 {
		t.Fatalf("unexpected temps: %+v", payload.Process)
	}
	if payload.Process.OutputFeedrate != 50 || payload.Process.OutputSeekrate != 100 {
		t.Fatalf("unexpected speeds: %+v", payload.Process)
	}
	if payload.Process.FirstLayerBrim != prusaBrimWidthMm {
		t.Fatalf("expected brim %d, got %d", prusaBrimWidthMm, payload.Process.FirstLayerBrim)
	}
	if payload.Device.FilamentSize != 1.75 {
		t.Fatalf("expected 1.75mm filament, got %v", payload.Device.FilamentSize)
	}
}
