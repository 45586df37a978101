package lead

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Diff is the sparse change set computed from a patch against the stored
// lead. Old and New contain only keys whose values actually differ; UUIDs
// are normalized to strings before they land in the maps so the stored
// JSON never depends on driver-specific encodings.
type Diff struct {
	Old     map[string]any
	New     map[string]any
	changes []string
}

// Empty reports whether the patch changed nothing.
func (d *Diff) Empty() bool { return len(d.changes) == 0 }

// Touches reports whether the named field changed.
func (d *Diff) Touches(key string) bool {
	_, ok := d.New[key]
	return ok
}

// Description renders the human-readable change summary stored alongside
// the diff maps.
func (d *Diff) Description() string {
	return "Lead updated: " + strings.Join(d.changes, ", ")
}

// Action selects the history tag for this diff. Only one tag is stored per
// entry even when several categories of field changed: assignment outranks
// a status change, which outranks everything else.
func (d *Diff) Action() Action {
	switch {
	case d.Touches("assigned_to"):
		return ActionAssigned
	case d.Touches("status"):
		return ActionStatusChanged
	default:
		return ActionUpdated
	}
}

func (d *Diff) record(key string, oldVal, newVal any) {
	d.Old[key] = oldVal
	d.New[key] = newVal
	d.changes = append(d.changes, fmt.Sprintf("%s: %s -> %s", key, display(oldVal), display(newVal)))
}

func display(v any) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%v", v)
}

// computeDiff inspects only the fields present in the patch and records
// those whose new value differs from the stored one. Fields absent from
// the payload never contribute, even if their stored value is unusual.
func computeDiff(current *Lead, p Patch) *Diff {
	d := &Diff{Old: map[string]any{}, New: map[string]any{}}

	if p.Name.Set && p.Name.Valid && p.Name.Value != current.Name {
		d.record("name", current.Name, p.Name.Value)
	}
	diffNullableString(d, "email", current.Email, p.Email)
	diffNullableString(d, "phone", current.Phone, p.Phone)
	if p.Status.Set && p.Status.Valid && p.Status.Value != current.Status {
		d.record("status", string(current.Status), string(p.Status.Value))
	}
	diffNullableString(d, "source", current.Source, p.Source)
	diffNullableString(d, "notes", current.Notes, p.Notes)
	diffAssignee(d, current.AssignedTo, p.AssignedTo)

	return d
}

func diffNullableString(d *Diff, key string, current *string, f Field[string]) {
	if !f.Set {
		return
	}
	next := f.Ptr()
	if strPtrEqual(current, next) {
		return
	}
	d.record(key, deref(current), deref(next))
}

func diffAssignee(d *Diff, current *uuid.UUID, f Field[uuid.UUID]) {
	if !f.Set {
		return
	}
	next := f.Ptr()
	if uuidPtrEqual(current, next) {
		return
	}
	d.record("assigned_to", uuidString(current), uuidString(next))
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func uuidString(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

// createdFields builds the "new" map for a creation entry: only the fields
// the caller explicitly supplied, plus the owning organization. Defaulted
// values (like status falling back to "new") are not recorded.
func createdFields(in CreateInput, orgID uuid.UUID) map[string]any {
	fields := map[string]any{
		"name":            in.Name,
		"organization_id": orgID.String(),
	}
	if in.Email.Set {
		fields["email"] = deref(in.Email.Ptr())
	}
	if in.Phone.Set {
		fields["phone"] = deref(in.Phone.Ptr())
	}
	if in.Status.Set && in.Status.Valid {
		fields["status"] = string(in.Status.Value)
	}
	if in.Source.Set {
		fields["source"] = deref(in.Source.Ptr())
	}
	if in.Notes.Set {
		fields["notes"] = deref(in.Notes.Ptr())
	}
	if in.AssignedTo.Set {
		fields["assigned_to"] = uuidString(in.AssignedTo.Ptr())
	}
	return fields
}
