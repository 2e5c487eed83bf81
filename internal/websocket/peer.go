package websocket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"ai-interview-be/internal/pkg/logger"
	"ai-interview-be/pkg/interview/landmark"
	"ai-interview-be/pkg/interview/session"
	"ai-interview-be/pkg/interview/speech"
	"ai-interview-be/pkg/interview/voice"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const peerModule = "DevicePeer"

const (
	peerReadLimit     = 64 * 1024
	peerSendBuffer    = 64
	peerControlBuffer = 16
)

var (
	ErrPeerClosed     = errors.New("device peer disconnected")
	ErrDeviceTimeout  = errors.New("device peer did not answer in time")
	ErrPlaybackFailed = errors.New("playback failed")
	ErrSendTimeout    = errors.New("device peer is not draining frames")
)

// Conn is the subset of *websocket.Conn the peer uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Recognizer receives speech engine events.
type Recognizer interface {
	HandleResults(index int, results []speech.Result)
	HandleEnded()
	HandleError(code string)
}

// Controls are the user commands a live session accepts.
type Controls interface {
	HandleNextQuestion(ctx context.Context) error
	BeginEndCall() func(ctx context.Context) string
	SetMuted(muted bool)
	SetVideoEnabled(ctx context.Context, enabled bool) bool
}

type PeerOptions struct {
	PlaybackTimeout time.Duration
	DeviceTimeout   time.Duration
	// WriteTimeout bounds how long a control frame waits for queue space.
	WriteTimeout time.Duration
	MimeType     string
}

// Peer is the browser side of a live session. It stands in for the camera,
// microphone, landmark model, recognizer and audio output, all of which run in
// the browser and are driven over one websocket.
type Peer struct {
	conn      Conn
	sessionID uuid.UUID
	logger    logger.ILogger
	opts      PeerOptions

	// send carries state and transcript snapshots, which may be dropped.
	// control carries everything else and is never dropped.
	send      chan []byte
	control   chan []byte
	done      chan struct{}
	closeOnce sync.Once

	modelOnce  sync.Once
	modelReady chan struct{}

	mu        sync.Mutex
	modelErr  error
	playing   bool
	scores    map[string]float64
	devices   chan error
	playbacks map[string]chan error
	seq       int
}

var (
	_ speech.Engine        = (*Peer)(nil)
	_ landmark.Detector    = (*Peer)(nil)
	_ landmark.VideoSource = (*Peer)(nil)
	_ session.Devices      = (*Peer)(nil)
	_ session.Navigator    = (*Peer)(nil)
	_ voice.Player         = (*Peer)(nil)
)

func NewPeer(conn Conn, sessionID uuid.UUID, log logger.ILogger, opts PeerOptions) *Peer {
	if opts.PlaybackTimeout <= 0 {
		opts.PlaybackTimeout = 2 * time.Minute
	}
	if opts.DeviceTimeout <= 0 {
		opts.DeviceTimeout = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = writeWait
	}
	if opts.MimeType == "" {
		opts.MimeType = "audio/mpeg"
	}
	return &Peer{
		conn:       conn,
		sessionID:  sessionID,
		logger:     log,
		opts:       opts,
		send:       make(chan []byte, peerSendBuffer),
		control:    make(chan []byte, peerControlBuffer),
		done:       make(chan struct{}),
		modelReady: make(chan struct{}),
		playbacks:  make(map[string]chan error),
	}
}

// Serve pumps frames until the socket closes. Capture events are applied
// inline; user commands run on their own goroutines because they block on
// the remote model and on playback acknowledgements read by this loop.
func (p *Peer) Serve(ctx context.Context, capture Recognizer, controls Controls) {
	go p.writePump()
	defer p.Close()

	p.conn.SetReadLimit(peerReadLimit)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.logger.Warn(peerModule, "Peer connection lost", p.fields(map[string]interface{}{"error": err.Error()}))
			}
			return
		}
		_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))

		env, err := Decode(frame)
		if err != nil {
			p.logger.Warn(peerModule, "Dropping malformed frame", p.fields(map[string]interface{}{"error": err.Error()}))
			continue
		}
		if err := p.dispatch(ctx, env, capture, controls); err != nil {
			p.logger.Warn(peerModule, "Dropping frame", p.fields(map[string]interface{}{
				"type":  env.Type,
				"error": err.Error(),
			}))
		}
	}
}

func (p *Peer) dispatch(ctx context.Context, env Envelope, capture Recognizer, controls Controls) error {
	switch env.Type {
	case TypeModelReady:
		p.resolveModel(nil)

	case TypeModelError:
		var d errorData
		if err := env.DecodeData(&d); err != nil {
			return err
		}
		p.resolveModel(fmt.Errorf("landmark model: %s", orUnknown(d.Error)))

	case TypeLandmarks:
		var d landmarksData
		if err := env.DecodeData(&d); err != nil {
			return err
		}
		p.mu.Lock()
		p.scores = d.Scores
		p.mu.Unlock()

	case TypeVideoState:
		var d videoStateData
		if err := env.DecodeData(&d); err != nil {
			return err
		}
		p.mu.Lock()
		p.playing = d.Playing
		p.mu.Unlock()

	case TypeDevicesReady:
		p.resolveDevices(nil)

	case TypeDevicesError:
		var d errorData
		if err := env.DecodeData(&d); err != nil {
			return err
		}
		p.resolveDevices(fmt.Errorf("devices: %s", orUnknown(d.Error)))

	case TypeSTTResult:
		var d sttResultData
		if err := env.DecodeData(&d); err != nil {
			return err
		}
		results := make([]speech.Result, len(d.Results))
		for i, r := range d.Results {
			results[i] = speech.Result{Text: r.Text, Final: r.Final}
		}
		capture.HandleResults(d.Index, results)

	case TypeSTTEnd:
		capture.HandleEnded()

	case TypeSTTError:
		var d errorData
		if err := env.DecodeData(&d); err != nil {
			return err
		}
		capture.HandleError(d.Error)

	case TypePlaybackEnded, TypePlaybackError:
		var d playbackData
		if err := env.DecodeData(&d); err != nil {
			return err
		}
		var result error
		if env.Type == TypePlaybackError {
			result = fmt.Errorf("%w: %s", ErrPlaybackFailed, orUnknown(d.Error))
		}
		p.resolvePlayback(d.ID, result)

	case TypeNextQuestion:
		go func() {
			if err := controls.HandleNextQuestion(ctx); err != nil {
				p.SendError(err.Error())
			}
		}()

	case TypeMute:
		var d muteData
		if err := env.DecodeData(&d); err != nil {
			return err
		}
		controls.SetMuted(d.Muted)

	case TypeVideo:
		var d videoData
		if err := env.DecodeData(&d); err != nil {
			return err
		}
		go controls.SetVideoEnabled(ctx, d.Enabled)

	case TypeEndCall:
		// The call ends before the next frame is read; saving continues
		// even if the peer hangs up right after asking.
		if finish := controls.BeginEndCall(); finish != nil {
			go finish(context.WithoutCancel(ctx))
		}

	default:
		return fmt.Errorf("unknown frame type %q", env.Type)
	}
	return nil
}

// Close tears the socket down and fails every pending wait.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

func (p *Peer) Done() <-chan struct{} {
	return p.done
}

func (p *Peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.Close()
	}()

	for {
		// Control frames go out ahead of queued snapshots.
		select {
		case frame := <-p.control:
			if !p.write(frame) {
				return
			}
			continue
		default:
		}

		select {
		case frame := <-p.control:
			if !p.write(frame) {
				return
			}
		case frame := <-p.send:
			if !p.write(frame) {
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-p.done:
			return
		}
	}
}

func (p *Peer) write(frame []byte) bool {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, frame) == nil
}

// emit queues a control frame. It waits up to WriteTimeout for queue space;
// a peer that stays stalled past that is closed, since the session can no
// longer drive its devices.
func (p *Peer) emit(msgType string, data any) error {
	frame, err := Encode(msgType, data)
	if err != nil {
		return err
	}
	select {
	case <-p.done:
		return ErrPeerClosed
	default:
	}
	select {
	case p.control <- frame:
		return nil
	default:
	}

	timer := time.NewTimer(p.opts.WriteTimeout)
	defer timer.Stop()
	select {
	case p.control <- frame:
		return nil
	case <-p.done:
		return ErrPeerClosed
	case <-timer.C:
		p.logger.Error(peerModule, "Peer stalled, closing", p.fields(map[string]interface{}{"type": msgType}))
		p.Close()
		return ErrSendTimeout
	}
}

// emitSnapshot queues a state or transcript frame without blocking. A newer
// snapshot supersedes a dropped one.
func (p *Peer) emitSnapshot(msgType string, data any) {
	frame, err := Encode(msgType, data)
	if err != nil {
		return
	}
	select {
	case <-p.done:
		return
	default:
	}
	select {
	case p.send <- frame:
	default:
		p.logger.Debug(peerModule, "Send buffer full, dropping snapshot", p.fields(map[string]interface{}{"type": msgType}))
	}
}

// speech.Engine

func (p *Peer) Start() error {
	return p.emit(TypeSTTStart, nil)
}

func (p *Peer) Stop() error {
	return p.emit(TypeSTTStop, nil)
}

// landmark.Detector

func (p *Peer) Load(ctx context.Context) error {
	select {
	case <-p.modelReady:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.modelErr
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPeerClosed
	}
}

// Detect returns the latest face reported by the browser model.
func (p *Peer) Detect(_ context.Context, at time.Time) (*landmark.Snapshot, error) {
	p.mu.Lock()
	scores := p.scores
	p.mu.Unlock()

	if scores == nil {
		return nil, nil
	}
	return landmark.NewSnapshot(scores, at), nil
}

func (p *Peer) resolveModel(err error) {
	p.modelOnce.Do(func() {
		p.mu.Lock()
		p.modelErr = err
		p.mu.Unlock()
		close(p.modelReady)
	})
}

// landmark.VideoSource

func (p *Peer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// session.Devices

func (p *Peer) Acquire(ctx context.Context, video bool) (func(), error) {
	wait := make(chan error, 1)
	p.mu.Lock()
	p.devices = wait
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.devices == wait {
			p.devices = nil
		}
		p.mu.Unlock()
	}()

	if err := p.emit(TypeAcquireDevices, acquireData{Video: video, Audio: true}); err != nil {
		return nil, err
	}

	timer := time.NewTimer(p.opts.DeviceTimeout)
	defer timer.Stop()

	select {
	case err := <-wait:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, ErrPeerClosed
	case <-timer.C:
		return nil, ErrDeviceTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() { _ = p.emit(TypeReleaseDevices, nil) })
	}, nil
}

func (p *Peer) resolveDevices(err error) {
	p.mu.Lock()
	wait := p.devices
	p.devices = nil
	p.mu.Unlock()

	if wait != nil {
		wait <- err
	}
}

// voice.Player

func (p *Peer) Play(ctx context.Context, audio []byte) error {
	p.mu.Lock()
	p.seq++
	id := strconv.Itoa(p.seq)
	wait := make(chan error, 1)
	p.playbacks[id] = wait
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.playbacks, id)
		p.mu.Unlock()
	}()

	if err := p.emit(TypePlayAudio, playAudioData{ID: id, Mime: p.opts.MimeType, Audio: audio}); err != nil {
		return err
	}

	timer := time.NewTimer(p.opts.PlaybackTimeout)
	defer timer.Stop()

	select {
	case err := <-wait:
		return err
	case <-ctx.Done():
		_ = p.emit(TypeStopAudio, playbackData{ID: id})
		return ctx.Err()
	case <-p.done:
		return ErrPeerClosed
	case <-timer.C:
		_ = p.emit(TypeStopAudio, playbackData{ID: id})
		return ErrDeviceTimeout
	}
}

func (p *Peer) resolvePlayback(id string, err error) {
	p.mu.Lock()
	wait, ok := p.playbacks[id]
	delete(p.playbacks, id)
	p.mu.Unlock()

	if ok {
		wait <- err
	}
}

// session.Navigator

func (p *Peer) Navigate(_ context.Context, path string) {
	if err := p.emit(TypeNavigate, navigateData{Path: path}); err != nil {
		p.logger.Warn(peerModule, "Navigate not delivered", p.fields(map[string]interface{}{"path": path}))
	}
}

// Observers

func (p *Peer) SendState(state session.State) {
	p.emitSnapshot(TypeState, state)
}

func (p *Peer) SendTranscript(final, interim string) {
	p.emitSnapshot(TypeTranscript, transcriptData{Final: final, Interim: interim})
}

func (p *Peer) SendError(message string) {
	_ = p.emit(TypeError, messageData{Message: message})
}

func (p *Peer) fields(extra map[string]interface{}) map[string]interface{} {
	f := map[string]interface{}{"session_id": p.sessionID.String()}
	for k, v := range extra {
		f[k] = v
	}
	return f
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown error"
	}
	return s
}
