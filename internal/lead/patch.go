package lead

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Field is a tri-state optional value for partial updates: absent from the
// payload (Set=false), explicitly null (Set=true, Valid=false), or present
// with a value (Set=true, Valid=true). The distinction matters because
// patching `{"notes": null}` clears the field while omitting `notes`
// leaves it untouched.
type Field[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// NewField builds a present field, the programmatic equivalent of a JSON
// key carrying a value.
func NewField[T any](v T) Field[T] {
	return Field[T]{Set: true, Valid: true, Value: v}
}

// UnmarshalJSON records that the key was present and whether it carried a
// value or an explicit null.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		f.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &f.Value); err != nil {
		return err
	}
	f.Valid = true
	return nil
}

// MarshalJSON renders the field as its value, or null when cleared/absent.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Ptr returns the value as a pointer, nil for null or absent.
func (f Field[T]) Ptr() *T {
	if !f.Set || !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// Patch is a partial lead update. Name cannot be cleared (a lead always has
// a name); the handler rejects an explicit null there before the store runs.
type Patch struct {
	Name       Field[string]    `json:"name"`
	Email      Field[string]    `json:"email"`
	Phone      Field[string]    `json:"phone"`
	Status     Field[Status]    `json:"status"`
	Source     Field[string]    `json:"source"`
	Notes      Field[string]    `json:"notes"`
	AssignedTo Field[uuid.UUID] `json:"assigned_to"`
}

// ChangesAssignee reports whether applying this patch would alter the
// assignee relative to the stored value. A payload that merely echoes the
// current assignee (or omits the key) is not a reassignment.
func (p Patch) ChangesAssignee(current *uuid.UUID) bool {
	if !p.AssignedTo.Set {
		return false
	}
	return !uuidPtrEqual(current, p.AssignedTo.Ptr())
}
