package slicing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"printcalc_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Protocol step message types, in required sequence order: load must
// complete before slice, slice before prepare, prepare before export.
const (
	msgLoad      = "load"
	msgConfigure = "configure"
	msgSlice     = "slice"
	msgPrepare   = "prepare"
	msgExport    = "export"
	msgClear     = "clear"
)

// Channel is the message transport to a remote slicing engine.
// *websocket.Conn satisfies it directly.
type Channel interface {
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
	Close() error
}

// outboundMessage is the envelope for every request sent to the engine.
type outboundMessage struct {
	Type          string      `json:"type"`
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload,omitempty"`
}

// inboundMessage is the envelope for every engine response, matched back
// to its request by correlation ID.
type inboundMessage struct {
	Type          string       `json:"type"`
	CorrelationID string       `json:"correlationId"`
	Error         string       `json:"error,omitempty"`
	Stats         *RemoteStats `json:"stats,omitempty"`
	GCode         string       `json:"gcode,omitempty"`
}

type loadPayload struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

type processSettings struct {
	SliceHeight         float64 `json:"sliceHeight"`
	SliceShells         int     `json:"sliceShells"`
	SliceFillSparse     float64 `json:"sliceFillSparse"`
	SliceSupport        bool    `json:"sliceSupport"`
	SliceSupportDensity float64 `json:"sliceSupportDensity"`
	FirstLayerBrim      int     `json:"firstLayerBrim"`
	FirstLayerRaft      bool    `json:"firstLayerRaft"`
	OutputTemp          int     `json:"outputTemp"`
	OutputBedTemp       int     `json:"outputBedTemp"`
	OutputFeedrate      float64 `json:"outputFeedrate"`
	OutputSeekrate      float64 `json:"outputSeekrate"`
}

type deviceSettings struct {
	BedWidth     int     `json:"bedWidth"`
	BedDepth     int     `json:"bedDepth"`
	MaxHeight    int     `json:"maxHeight"`
	NozzleSize   float64 `json:"nozzleSize"`
	FilamentSize float64 `json:"filamentSize"`
}

type configurePayload struct {
	Mode    string          `json:"mode"`
	Process processSettings `json:"process"`
	Device  deviceSettings  `json:"device"`
}

// RemoteEngine is an explicit handle to one remote slicing engine instance.
// Requests are correlated to responses through a pending map keyed by
// correlation ID; each outstanding request carries its own timeout, and a
// timeout removes only that entry — the channel itself stays up. Responses
// for IDs no longer pending (already timed out) are dropped silently and
// can never resolve a newer request.
//
// One model may be in flight through the engine's pipeline at a time;
// callers block on the inflight slot until it frees or their context ends.
type RemoteEngine struct {
	ch          Channel
	stepTimeout time.Duration
	log         *logger.Logger

	mu      sync.Mutex
	pending map[string]chan inboundMessage

	inflight chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

// NewRemoteEngine wraps an established channel and starts its read loop.
func NewRemoteEngine(ch Channel, stepTimeout time.Duration, log *logger.Logger) *RemoteEngine {
	if stepTimeout <= 0 {
		stepTimeout = 30 * time.Second
	}
	e := &RemoteEngine{
		ch:          ch,
		stepTimeout: stepTimeout,
		log:         log,
		pending:     make(map[string]chan inboundMessage),
		inflight:    make(chan struct{}, 1),
		closed:      make(chan struct{}),
	}
	go e.readLoop()
	return e
}

// DialRemoteEngine connects to the engine host over websocket.
func DialRemoteEngine(ctx context.Context, url string, stepTimeout time.Duration, log *logger.Logger) (*RemoteEngine, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial remote engine: %w", err)
	}
	return NewRemoteEngine(conn, stepTimeout, log), nil
}

// Close shuts the channel down and fails every pending request.
func (e *RemoteEngine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.closed)
		err = e.ch.Close()
	})
	return err
}

func (e *RemoteEngine) readLoop() {
	for {
		var msg inboundMessage
		if err := e.ch.ReadJSON(&msg); err != nil {
			select {
			case <-e.closed:
			default:
				e.log.EngineError(string(BackendRemote), "read", err)
				e.Close()
			}
			return
		}

		e.mu.Lock()
		ch, ok := e.pending[msg.CorrelationID]
		if ok {
			delete(e.pending, msg.CorrelationID)
		}
		e.mu.Unlock()

		if !ok {
			// Stale response for a request that already timed out.
			e.log.Debug("dropping unmatched engine message",
				"type", msg.Type, "correlation_id", msg.CorrelationID)
			continue
		}
		ch <- msg
	}
}

// request sends one protocol step and waits for its correlated response.
func (e *RemoteEngine) request(ctx context.Context, msgType string, payload interface{}) (inboundMessage, error) {
	id := uuid.New().String()
	respCh := make(chan inboundMessage, 1)

	e.mu.Lock()
	e.pending[id] = respCh
	e.mu.Unlock()

	drop := func() {
		e.mu.Lock()
		delete(e.pending, id)
		e.mu.Unlock()
	}

	if err := e.ch.WriteJSON(outboundMessage{Type: msgType, CorrelationID: id, Payload: payload}); err != nil {
		drop()
		return inboundMessage{}, engineFailure(BackendRemote, msgType, "channel write failed", err)
	}

	timer := time.NewTimer(e.stepTimeout)
	defer timer.Stop()

	select {
	case msg := <-respCh:
		if msg.Error != "" {
			return inboundMessage{}, engineFailure(BackendRemote, msgType, "engine reported an error",
				fmt.Errorf("%s", msg.Error))
		}
		return msg, nil

	case <-timer.C:
		drop()
		return inboundMessage{}, timeoutFailure(BackendRemote, msgType,
			fmt.Sprintf("no response within %s", e.stepTimeout))

	case <-ctx.Done():
		drop()
		return inboundMessage{}, contextFailure(BackendRemote, msgType, ctx.Err())

	case <-e.closed:
		drop()
		return inboundMessage{}, engineFailure(BackendRemote, msgType, "engine channel closed", nil)
	}
}

// RemoteEngineAdapter drives a RemoteEngine through the slicing protocol.
type RemoteEngineAdapter struct {
	engine *RemoteEngine
	log    *logger.Logger
}

// NewRemoteEngineAdapter creates the remote backend around an engine handle.
// The handle's lifecycle (dial/close) belongs to the composition root, not
// to this adapter.
func NewRemoteEngineAdapter(engine *RemoteEngine, log *logger.Logger) *RemoteEngineAdapter {
	return &RemoteEngineAdapter{engine: engine, log: log}
}

func (a *RemoteEngineAdapter) Kind() BackendKind { return BackendRemote }

// Stage acquires the engine's single in-flight slot and loads the model.
func (a *RemoteEngineAdapter) Stage(ctx context.Context, req SliceRequest) (*StagedModel, error) {
	select {
	case a.engine.inflight <- struct{}{}:
	case <-ctx.Done():
		return nil, contextFailure(BackendRemote, "stage", ctx.Err())
	case <-a.engine.closed:
		return nil, stagingFailure(BackendRemote, "engine channel closed", nil)
	}

	if _, err := a.engine.request(ctx, msgLoad, loadPayload{Filename: req.Filename, Data: req.Model}); err != nil {
		a.release()
		if se, ok := err.(*SliceError); ok && se.Kind == FailureEngine {
			return nil, stagingFailure(BackendRemote, "model load rejected", se)
		}
		return nil, err
	}

	return &StagedModel{RemoteLoaded: true}, nil
}

// Run executes the awaited protocol sequence: configure, slice, prepare,
// export. Each step must complete before the next is sent.
func (a *RemoteEngineAdapter) Run(ctx context.Context, staged *StagedModel, params EngineParameters) (RawOutput, error) {
	if staged == nil || !staged.RemoteLoaded {
		return RawOutput{}, engineFailure(BackendRemote, "run", "no model loaded", nil)
	}

	if _, err := a.engine.request(ctx, msgConfigure, buildConfigurePayload(params)); err != nil {
		return RawOutput{}, err
	}
	if _, err := a.engine.request(ctx, msgSlice, nil); err != nil {
		return RawOutput{}, err
	}
	if _, err := a.engine.request(ctx, msgPrepare, nil); err != nil {
		return RawOutput{}, err
	}

	msg, err := a.engine.request(ctx, msgExport, nil)
	if err != nil {
		return RawOutput{}, err
	}

	return RawOutput{GCode: []byte(msg.GCode), Stats: msg.Stats}, nil
}

// Teardown clears the engine workspace and frees the in-flight slot.
func (a *RemoteEngineAdapter) Teardown(staged *StagedModel) {
	if staged == nil || !staged.RemoteLoaded {
		return
	}
	staged.RemoteLoaded = false

	// Best effort: the slot is released even when the clear fails.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.engine.request(ctx, msgClear, nil); err != nil {
		a.log.Warn("remote engine clear failed", "error", err.Error())
	}

	a.release()
}

func (a *RemoteEngineAdapter) release() {
	select {
	case <-a.engine.inflight:
	default:
	}
}

func buildConfigurePayload(p EngineParameters) configurePayload {
	feedrate := p.SpeedMmS
	if feedrate <= 0 {
		feedrate = 50
	}

	supportDensity := 0.0
	if p.Supports {
		supportDensity = 0.25
	}

	brim := 0
	if p.Brim {
		brim = prusaBrimWidthMm
	}

	return configurePayload{
		Mode: "FDM",
		Process: processSettings{
			SliceHeight:         p.LayerHeightMm,
			SliceShells:         p.WallCount,
			SliceFillSparse:     float64(p.InfillPercent) / 100,
			SliceSupport:        p.Supports,
			SliceSupportDensity: supportDensity,
			FirstLayerBrim:      brim,
			FirstLayerRaft:      p.Raft,
			OutputTemp:          p.NozzleTempC,
			OutputBedTemp:       p.BedTempC,
			OutputFeedrate:      feedrate,
			OutputSeekrate:      feedrate * 2,
		},
		Device: deviceSettings{
			BedWidth:     256,
			BedDepth:     256,
			MaxHeight:    256,
			NozzleSize:   p.NozzleDiameterMm,
			FilamentSize: p.FilamentDiameterMm,
		},
	}
}

// Compile-time check that RemoteEngineAdapter implements EngineAdapter.
var _ EngineAdapter = (*RemoteEngineAdapter)(nil)
