package websocket

import (
	"encoding/json"
	"fmt"
)

// Envelope is the frame format of both sockets.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Peer to server.
const (
	TypeModelReady    = "model_ready"
	TypeModelError    = "model_error"
	TypeLandmarks     = "landmarks"
	TypeVideoState    = "video_state"
	TypeDevicesReady  = "devices_ready"
	TypeDevicesError  = "devices_error"
	TypeSTTResult     = "stt_result"
	TypeSTTEnd        = "stt_end"
	TypeSTTError      = "stt_error"
	TypePlaybackEnded = "playback_ended"
	TypePlaybackError = "playback_error"
	TypeNextQuestion  = "next_question"
	TypeMute          = "mute"
	TypeVideo         = "video"
	TypeEndCall       = "end_call"
)

// Server to peer.
const (
	TypeAcquireDevices = "acquire_devices"
	TypeReleaseDevices = "release_devices"
	TypeSTTStart       = "stt_start"
	TypeSTTStop        = "stt_stop"
	TypePlayAudio      = "play_audio"
	TypeStopAudio      = "stop_audio"
	TypeState          = "state"
	TypeTranscript     = "transcript"
	TypeNavigate       = "navigate"
	TypeError          = "error"
	TypeNotification   = "notification"
)

type errorData struct {
	Error string `json:"error"`
}

type landmarksData struct {
	// Scores is null when no face was found in the frame.
	Scores map[string]float64 `json:"scores"`
}

type videoStateData struct {
	Playing bool `json:"playing"`
}

type sttResultData struct {
	Index   int          `json:"index"`
	Results []resultData `json:"results"`
}

type resultData struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type playbackData struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

type muteData struct {
	Muted bool `json:"muted"`
}

type videoData struct {
	Enabled bool `json:"enabled"`
}

type acquireData struct {
	Video bool `json:"video"`
	Audio bool `json:"audio"`
}

type playAudioData struct {
	ID    string `json:"id"`
	Mime  string `json:"mime"`
	Audio []byte `json:"audio"` // base64 in JSON
}

type transcriptData struct {
	Final   string `json:"final"`
	Interim string `json:"interim"`
}

type navigateData struct {
	Path string `json:"path"`
}

type messageData struct {
	Message string `json:"message"`
}

// Encode builds a frame. A nil data yields a frame without a data field.
func Encode(msgType string, data any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", msgType, err)
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode frame: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode frame: missing type")
	}
	return env, nil
}

// DecodeData unmarshals the payload into v. An absent payload leaves v untouched.
func (e Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
