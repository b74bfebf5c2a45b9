package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// stateTypeKey marks an encoded value as carrying type information; the
// payload sits under stateValueKey. The "$" prefix keeps the envelope
// keys out of the way of ordinary state field names.
const (
	stateTypeKey  = "$state_type"
	stateValueKey = "$state_value"
)

type codecEntry struct {
	typ       reflect.Type
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte) (any, error)
}

// StateCodec round-trips typed state values through JSON checkpoints.
// Values of unregistered types pass through plain JSON encoding, so a
// codec with no registrations behaves exactly like encoding/json.
type StateCodec struct {
	mu     sync.RWMutex
	byName map[string]codecEntry
	byType map[reflect.Type]string
}

// NewStateCodec returns an empty codec.
func NewStateCodec() *StateCodec {
	return &StateCodec{
		byName: make(map[string]codecEntry),
		byType: make(map[reflect.Type]string),
	}
}

// Register associates value's concrete type with a stable name. Only
// struct types (or pointers to structs) are accepted: scalar and map
// values already survive a JSON round-trip unchanged. Re-registering
// the same type under a different name is an error.
func (c *StateCodec) Register(value any, name string) error {
	if name == "" {
		return fmt.Errorf("store: state type name must be non-empty")
	}
	t := reflect.TypeOf(value)
	if t == nil {
		return fmt.Errorf("store: cannot register nil state value")
	}
	base := t
	if base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	if base.Kind() != reflect.Struct {
		return fmt.Errorf("store: state type %s must be a struct or pointer to struct", t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.byType[t]; ok && existing != name {
		return fmt.Errorf("store: type %s already registered as %q", t, existing)
	}
	c.byName[name] = codecEntry{typ: t}
	c.byType[t] = name
	return nil
}

// RegisterWithFuncs is Register with custom marshal/unmarshal hooks, for
// state types whose natural JSON form loses information.
func (c *StateCodec) RegisterWithFuncs(value any, name string, marshal func(any) ([]byte, error), unmarshal func([]byte) (any, error)) error {
	if err := c.Register(value, name); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.byName[name]
	entry.marshal = marshal
	entry.unmarshal = unmarshal
	c.byName[name] = entry
	return nil
}

// TypeName reports the registered name for value's concrete type.
func (c *StateCodec) TypeName(value any) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.byType[reflect.TypeOf(value)]
	return name, ok
}

// Encode serializes a state value. Registered types are wrapped in an
// envelope carrying the type name; everything else is plain JSON.
func (c *StateCodec) Encode(value any) ([]byte, error) {
	if value == nil {
		return json.Marshal(nil)
	}
	c.mu.RLock()
	name, registered := c.byType[reflect.TypeOf(value)]
	var entry codecEntry
	if registered {
		entry = c.byName[name]
	}
	c.mu.RUnlock()

	if !registered {
		return json.Marshal(value)
	}

	var payload []byte
	var err error
	if entry.marshal != nil {
		payload, err = entry.marshal(value)
	} else {
		payload, err = json.Marshal(value)
	}
	if err != nil {
		return nil, fmt.Errorf("store: encode state value %q: %w", name, err)
	}
	return json.Marshal(map[string]json.RawMessage{
		stateTypeKey:  mustJSON(name),
		stateValueKey: payload,
	})
}

// Decode reverses Encode: envelopes are re-hydrated into their registered
// concrete type; anything else decodes as plain JSON.
func (c *StateCodec) Decode(data []byte) (any, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err == nil {
		if rawName, ok := envelope[stateTypeKey]; ok {
			var name string
			if err := json.Unmarshal(rawName, &name); err != nil {
				return nil, fmt.Errorf("store: decode state type name: %w", err)
			}
			payload, ok := envelope[stateValueKey]
			if !ok {
				return nil, fmt.Errorf("store: state envelope %q has no value", name)
			}
			return c.decodeNamed(name, payload)
		}
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func (c *StateCodec) decodeNamed(name string, payload []byte) (any, error) {
	c.mu.RLock()
	entry, ok := c.byName[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: unknown state type %q", name)
	}
	if entry.unmarshal != nil {
		return entry.unmarshal(payload)
	}

	t := entry.typ
	ptr := t.Kind() == reflect.Ptr
	if ptr {
		t = t.Elem()
	}
	instance := reflect.New(t)
	if err := json.Unmarshal(payload, instance.Interface()); err != nil {
		return nil, fmt.Errorf("store: decode state value %q: %w", name, err)
	}
	if ptr {
		return instance.Interface(), nil
	}
	return instance.Elem().Interface(), nil
}

// EncodeState serializes a whole state map, enveloping each registered
// value individually.
func (c *StateCodec) EncodeState(state map[string]any) ([]byte, error) {
	encoded := make(map[string]json.RawMessage, len(state))
	for key, value := range state {
		data, err := c.Encode(value)
		if err != nil {
			return nil, fmt.Errorf("store: encode state field %q: %w", key, err)
		}
		encoded[key] = data
	}
	return json.Marshal(encoded)
}

// DecodeState reverses EncodeState.
func (c *StateCodec) DecodeState(data []byte) (map[string]any, error) {
	var encoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, fmt.Errorf("store: decode state map: %w", err)
	}
	state := make(map[string]any, len(encoded))
	for key, raw := range encoded {
		value, err := c.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("store: decode state field %q: %w", key, err)
		}
		state[key] = value
	}
	return state, nil
}

func mustJSON(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

// defaultCodec backs the package-level helpers, for callers that share
// one registration set process-wide.
var defaultCodec = NewStateCodec()

// DefaultStateCodec returns the process-wide codec.
func DefaultStateCodec() *StateCodec { return defaultCodec }

// RegisterStateType registers a type with the process-wide codec.
func RegisterStateType(value any, name string) error {
	return defaultCodec.Register(value, name)
}
