package lead

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestFieldTriState(t *testing.T) {
	var p Patch
	if err := json.Unmarshal([]byte(`{"email": "a@b.test", "phone": null}`), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Present with a value.
	if !p.Email.Set || !p.Email.Valid || p.Email.Value != "a@b.test" {
		t.Errorf("email: got %+v", p.Email)
	}
	// Explicitly null.
	if !p.Phone.Set || p.Phone.Valid {
		t.Errorf("phone: got %+v", p.Phone)
	}
	// Absent.
	if p.Notes.Set {
		t.Errorf("notes should be absent, got %+v", p.Notes)
	}
}

func TestFieldUnmarshalUUID(t *testing.T) {
	id := uuid.New()
	var p Patch
	if err := json.Unmarshal([]byte(`{"assigned_to": "`+id.String()+`"}`), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.AssignedTo.Set || !p.AssignedTo.Valid || p.AssignedTo.Value != id {
		t.Errorf("assigned_to: got %+v", p.AssignedTo)
	}
}

func TestFieldUnmarshalInvalid(t *testing.T) {
	var p Patch
	if err := json.Unmarshal([]byte(`{"assigned_to": "not-a-uuid"}`), &p); err == nil {
		t.Error("expected error for malformed uuid")
	}
}

func TestFieldMarshal(t *testing.T) {
	b, err := json.Marshal(set("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `"hello"` {
		t.Errorf("got %s", b)
	}

	b, err = json.Marshal(null[string]())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "null" {
		t.Errorf("got %s", b)
	}
}

func TestChangesAssignee(t *testing.T) {
	me := uuid.New()
	other := uuid.New()

	tests := []struct {
		name    string
		current *uuid.UUID
		field   Field[uuid.UUID]
		want    bool
	}{
		{"absent key", &me, Field[uuid.UUID]{}, false},
		{"echoes current", &me, set(me), false},
		{"null on unassigned", nil, null[uuid.UUID](), false},
		{"reassign", &me, set(other), true},
		{"assign from unassigned", nil, set(me), true},
		{"clear existing", &me, null[uuid.UUID](), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Patch{AssignedTo: tt.field}
			if got := p.ChangesAssignee(tt.current); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFieldPtr(t *testing.T) {
	f := set("x")
	if p := f.Ptr(); p == nil || *p != "x" {
		t.Errorf("got %v", p)
	}
	if p := null[string]().Ptr(); p != nil {
		t.Errorf("null field should yield nil, got %v", p)
	}
	var absent Field[string]
	if p := absent.Ptr(); p != nil {
		t.Errorf("absent field should yield nil, got %v", p)
	}
}
