package replay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/ginput/internal/domain/model"
)

// ErrInvalidScript reports a script that cannot be replayed.
var ErrInvalidScript = errors.New("invalid script")

// Script is a recorded interaction: an optional session to start and the
// events to feed it.
type Script struct {
	Session *SessionSpec `koanf:"session"`
	Events  []Step       `koanf:"events"`
}

// SessionSpec mirrors the POST /sessions body.
type SessionSpec struct {
	Mode       string `koanf:"mode" json:"mode"`
	Count      int    `koanf:"count" json:"count,omitempty"`
	TimeoutMS  int    `koanf:"timeout_ms" json:"timeout_ms,omitempty"`
	ShowClicks *bool  `koanf:"show_clicks" json:"show_clicks,omitempty"`
	Inline     bool   `koanf:"inline" json:"inline,omitempty"`
}

// Step is one event in screen coordinates. Kind defaults to a key press
// when Key is set and to a button press otherwise.
type Step struct {
	ID      string  `koanf:"id"`
	Kind    string  `koanf:"kind"`
	X       float64 `koanf:"x"`
	Y       float64 `koanf:"y"`
	Button  string  `koanf:"button"`
	Key     string  `koanf:"key"`
	DelayMS int     `koanf:"delay_ms"`
}

// eventPayload is the POST /events wire shape.
type eventPayload struct {
	EventID string  `json:"event_id"`
	Kind    string  `json:"kind"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Button  int     `json:"button,omitempty"`
	Key     string  `json:"key,omitempty"`
}

// LoadScript reads a YAML script from path.
func LoadScript(path string) (*Script, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ErrInvalidScript, path, err)
	}
	var s Script
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalidScript, path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every step and the session spec.
func (s *Script) Validate() error {
	if s.Session != nil && !model.ValidMode(s.Session.Mode) {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidScript, s.Session.Mode)
	}
	if s.Session == nil && len(s.Events) == 0 {
		return fmt.Errorf("%w: nothing to replay", ErrInvalidScript)
	}
	for i, st := range s.Events {
		if _, err := st.payload(""); err != nil {
			return fmt.Errorf("%w: event %d: %w", ErrInvalidScript, i, err)
		}
		if st.DelayMS < 0 {
			return fmt.Errorf("%w: event %d: negative delay_ms", ErrInvalidScript, i)
		}
	}
	return nil
}

// payloads converts the steps, naming unnamed ones after runID so separate
// runs are not deduplicated against each other.
func (s *Script) payloads(runID string) ([]eventPayload, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	out := make([]eventPayload, 0, len(s.Events))
	for i, st := range s.Events {
		p, err := st.payload(fmt.Sprintf("%s-%d", runID, i))
		if err != nil {
			return nil, fmt.Errorf("%w: event %d: %w", ErrInvalidScript, i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (st Step) payload(fallbackID string) (eventPayload, error) {
	p := eventPayload{EventID: st.ID, Kind: st.Kind, X: st.X, Y: st.Y, Key: st.Key}
	if p.EventID == "" {
		p.EventID = fallbackID
	}
	if p.Kind == "" {
		p.Kind = string(model.KindButtonPress)
		if st.Key != "" {
			p.Kind = string(model.KindKeyPress)
		}
	}

	switch model.EventKind(p.Kind) {
	case model.KindButtonPress:
		name := st.Button
		if strings.TrimSpace(name) == "" {
			name = "left"
		}
		b, err := model.ParseButton(name)
		if err != nil {
			return eventPayload{}, err
		}
		p.Button = int(b)
	case model.KindKeyPress:
		if st.Key == "" {
			return eventPayload{}, errors.New("key_press_event needs a key")
		}
	default:
		return eventPayload{}, fmt.Errorf("unknown kind %q", p.Kind)
	}
	return p, nil
}
