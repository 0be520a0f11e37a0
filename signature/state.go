package signature

import "time"

// Source names the tier that confirmed a State.
type Source string

const (
	// SourceRemote means the state was read from the durable remote store.
	SourceRemote Source = "remote"
	// SourceMirror means the remote store was unreachable and the state was
	// rebuilt from the device-local mirror.
	SourceMirror Source = "mirror"
	// SourceDefault means no tier could answer and the state is the unsigned default.
	SourceDefault Source = "default"
)

// Authoritative reports whether the source is the remote store.
func (s Source) Authoritative() bool {
	return s == SourceRemote
}

// State is the resolved signature view of one contract at one point in time.
//
// Has*Signature is true if and only if the matching record is present. Build
// states with NewState or Unsigned so the invariant cannot drift.
type State struct {
	HasDesignerSignature bool      `json:"has_designer_signature"`
	HasClientSignature   bool      `json:"has_client_signature"`
	DesignerSignature    *Record   `json:"designer_signature,omitempty"`
	ClientSignature      *Record   `json:"client_signature,omitempty"`
	LastChecked          time.Time `json:"last_checked"`
	Source               Source    `json:"source"`
}

// NewState derives a State from raw records.
func NewState(records Records, source Source, checkedAt time.Time) State {
	return State{
		HasDesignerSignature: records.Designer != nil,
		HasClientSignature:   records.Client != nil,
		DesignerSignature:    records.Designer,
		ClientSignature:      records.Client,
		LastChecked:          checkedAt,
		Source:               source,
	}
}

// Unsigned returns the fail-safe default: no signatures from anyone.
func Unsigned(checkedAt time.Time) State {
	return NewState(Records{}, SourceDefault, checkedAt)
}

// Signature returns the record for role, or nil.
func (s State) Signature(role Role) *Record {
	switch role {
	case RoleDesigner:
		return s.DesignerSignature
	case RoleClient:
		return s.ClientSignature
	default:
		return nil
	}
}

// Records returns the records backing the state.
func (s State) Records() Records {
	return Records{Designer: s.DesignerSignature, Client: s.ClientSignature}
}

// Clone returns a deep copy so callers cannot mutate cached records.
func (s State) Clone() State {
	s.DesignerSignature = s.DesignerSignature.Clone()
	s.ClientSignature = s.ClientSignature.Clone()
	return s
}
