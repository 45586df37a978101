package lead

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func set[T any](v T) Field[T] {
	return Field[T]{Set: true, Valid: true, Value: v}
}

func null[T any]() Field[T] {
	return Field[T]{Set: true}
}

func testLead() *Lead {
	email := "contact@acme.test"
	return &Lead{
		ID:     uuid.New(),
		OrgID:  uuid.New(),
		Name:   "Acme",
		Email:  &email,
		Status: StatusNew,
	}
}

func TestDiffOnlyChangedKeys(t *testing.T) {
	l := testLead()
	d := computeDiff(l, Patch{
		Name:   set(l.Name), // supplied but unchanged
		Status: set(StatusQualified),
	})

	if d.Empty() {
		t.Fatal("expected a non-empty diff")
	}
	wantOld := map[string]any{"status": "new"}
	wantNew := map[string]any{"status": "qualified"}
	if !reflect.DeepEqual(d.Old, wantOld) {
		t.Errorf("old map: got %v, want %v", d.Old, wantOld)
	}
	if !reflect.DeepEqual(d.New, wantNew) {
		t.Errorf("new map: got %v, want %v", d.New, wantNew)
	}
	if got := d.Action(); got != ActionStatusChanged {
		t.Errorf("action: got %s, want %s", got, ActionStatusChanged)
	}
}

func TestDiffNoOp(t *testing.T) {
	l := testLead()
	d := computeDiff(l, Patch{
		Name:   set("Acme"),
		Email:  set("contact@acme.test"),
		Status: set(StatusNew),
	})
	if !d.Empty() {
		t.Errorf("expected empty diff, got old=%v new=%v", d.Old, d.New)
	}
}

func TestDiffAbsentFieldsIgnored(t *testing.T) {
	l := testLead()
	d := computeDiff(l, Patch{})
	if !d.Empty() {
		t.Errorf("expected empty diff for empty patch, got %v", d.New)
	}
}

func TestDiffAssignmentPrecedence(t *testing.T) {
	l := testLead()
	assignee := uuid.New()
	d := computeDiff(l, Patch{
		Status:     set(StatusContacted),
		AssignedTo: set(assignee),
	})

	if got := d.Action(); got != ActionAssigned {
		t.Errorf("action: got %s, want %s (assignment outranks status)", got, ActionAssigned)
	}
	if len(d.New) != 2 {
		t.Errorf("expected both fields in diff, got %v", d.New)
	}
}

// Supplying an unchanged assigned_to alongside a status change must not
// steal the tag: precedence is judged on the diff, not the payload.
func TestDiffUnchangedAssigneeDoesNotTag(t *testing.T) {
	assignee := uuid.New()
	l := testLead()
	l.AssignedTo = &assignee

	d := computeDiff(l, Patch{
		Status:     set(StatusContacted),
		AssignedTo: set(assignee),
	})
	if got := d.Action(); got != ActionStatusChanged {
		t.Errorf("action: got %s, want %s", got, ActionStatusChanged)
	}
	if d.Touches("assigned_to") {
		t.Error("unchanged assigned_to must not appear in the diff")
	}
}

func TestDiffUUIDNormalizedToString(t *testing.T) {
	l := testLead()
	assignee := uuid.New()
	d := computeDiff(l, Patch{AssignedTo: set(assignee)})

	got, ok := d.New["assigned_to"].(string)
	if !ok {
		t.Fatalf("assigned_to should be stored as a string, got %T", d.New["assigned_to"])
	}
	if got != assignee.String() {
		t.Errorf("got %q, want %q", got, assignee.String())
	}
	if d.Old["assigned_to"] != nil {
		t.Errorf("old assigned_to should be nil, got %v", d.Old["assigned_to"])
	}
}

func TestDiffExplicitNullClearsField(t *testing.T) {
	l := testLead()
	d := computeDiff(l, Patch{Email: null[string]()})

	if d.Empty() {
		t.Fatal("clearing a populated field must produce a diff")
	}
	if d.Old["email"] != "contact@acme.test" {
		t.Errorf("old email: got %v", d.Old["email"])
	}
	if d.New["email"] != nil {
		t.Errorf("new email should be nil, got %v", d.New["email"])
	}
}

func TestDiffNullOnNullIsNoOp(t *testing.T) {
	l := testLead()
	l.Email = nil
	d := computeDiff(l, Patch{Email: null[string]()})
	if !d.Empty() {
		t.Errorf("null over null should be a no-op, got %v", d.New)
	}
}

func TestDiffUnassign(t *testing.T) {
	assignee := uuid.New()
	l := testLead()
	l.AssignedTo = &assignee

	d := computeDiff(l, Patch{AssignedTo: null[uuid.UUID]()})
	if got := d.Action(); got != ActionAssigned {
		t.Errorf("unassigning should tag %s, got %s", ActionAssigned, got)
	}
	if d.Old["assigned_to"] != assignee.String() {
		t.Errorf("old assigned_to: got %v", d.Old["assigned_to"])
	}
	if d.New["assigned_to"] != nil {
		t.Errorf("new assigned_to should be nil, got %v", d.New["assigned_to"])
	}
}

func TestDiffDescription(t *testing.T) {
	l := testLead()
	d := computeDiff(l, Patch{Status: set(StatusWon)})
	want := "Lead updated: status: new -> won"
	if got := d.Description(); got != want {
		t.Errorf("description: got %q, want %q", got, want)
	}
}

func TestCreatedFieldsOnlySupplied(t *testing.T) {
	orgID := uuid.New()
	in := CreateInput{
		Name:  "Acme",
		Email: set("contact@acme.test"),
		// Status deliberately not set: defaulting must not leak into history.
	}

	fields := createdFields(in, orgID)
	want := map[string]any{
		"name":            "Acme",
		"organization_id": orgID.String(),
		"email":           "contact@acme.test",
	}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("got %v, want %v", fields, want)
	}
}

func TestCreatedFieldsWithAssignee(t *testing.T) {
	orgID := uuid.New()
	assignee := uuid.New()
	fields := createdFields(CreateInput{
		Name:       "Acme",
		Status:     set(StatusContacted),
		AssignedTo: set(assignee),
	}, orgID)

	if fields["status"] != "contacted" {
		t.Errorf("status: got %v", fields["status"])
	}
	if fields["assigned_to"] != assignee.String() {
		t.Errorf("assigned_to should be the uuid string, got %v", fields["assigned_to"])
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusContacted, StatusQualified, StatusLost, StatusWon} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Status("converted").Valid() {
		t.Error("unknown status should be invalid")
	}
}
