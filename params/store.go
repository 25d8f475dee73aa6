package params

import "fmt"

// Setting pairs an option with a value.
type Setting struct {
	Option Option
	Value  Value
}

// NewSetting returns a Setting for opt.
func NewSetting(opt Option, v Value) Setting {
	return Setting{Option: opt, Value: v}
}

// Validate checks that the option is known and the value has the kind the
// option accepts.
func (s Setting) Validate() error {
	if !s.Option.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOption, string(s.Option))
	}

	if s.Option.Kind() != s.Value.Kind() {
		return fmt.Errorf("%w: %s wants %s, got %s",
			ErrKindMismatch, s.Option, s.Option.Kind(), s.Value.Kind())
	}

	return nil
}

// Store holds the last value applied for each option. It is not safe for
// concurrent use; one Store belongs to exactly one harness.
type Store struct {
	values map[Option]Value
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{values: make(map[Option]Value)}
}

// Set records v under opt and reports whether this changed the recorded
// state, i.e. opt was unset or held a different value.
func (s *Store) Set(opt Option, v Value) (bool, error) {
	if err := NewSetting(opt, v).Validate(); err != nil {
		return false, err
	}

	if prev, ok := s.values[opt]; ok && prev.Equal(v) {
		return false, nil
	}

	s.values[opt] = v

	return true, nil
}

// Get returns the last value recorded for opt.
func (s *Store) Get(opt Option) (Value, bool) {
	v, ok := s.values[opt]
	return v, ok
}

// Reset forgets every recorded value.
func (s *Store) Reset() {
	clear(s.values)
}

// Len returns the number of options currently set.
func (s *Store) Len() int {
	return len(s.values)
}

// Snapshot returns the recorded settings in canonical option order.
func (s *Store) Snapshot() []Setting {
	out := make([]Setting, 0, len(s.values))

	for _, opt := range Options() {
		if v, ok := s.values[opt]; ok {
			out = append(out, Setting{Option: opt, Value: v})
		}
	}

	return out
}
