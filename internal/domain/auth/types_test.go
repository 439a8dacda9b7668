package auth

import (
	"testing"
)

func TestSession_IsGuest(t *testing.T) {
	s := Session{Role: RoleGuest}
	if !s.IsGuest() {
		t.Fatalf("expected guest")
	}
	if (Session{Role: RoleOperations}).IsGuest() {
		t.Fatalf("did not expect guest")
	}
}

func TestSession_Actor(t *testing.T) {
	a := Session{UserID: "u1", Role: RoleTraining}.Actor()
	if a.ID != "u1" || a.Role != RoleTraining {
		t.Fatalf("unexpected actor: %+v", a)
	}
	if !a.Authenticated() {
		t.Fatalf("actor with id should be authenticated")
	}
	if (Actor{Role: RoleAdmin}).Authenticated() {
		t.Fatalf("actor without id should not be authenticated")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in    string
		want  Role
		valid bool
	}{
		{in: "admin", want: RoleAdmin, valid: true},
		{in: " QC_Manager ", want: RoleQCManager, valid: true},
		{in: "operations", want: RoleOperations, valid: true},
		{in: "user", want: Role("user"), valid: false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if got != tt.want || ok != tt.valid {
			t.Errorf("ParseRole(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.valid)
		}
	}
}

func TestRole_IsStaff(t *testing.T) {
	for _, r := range []Role{RoleOperations, RoleTraining, RoleQCManager} {
		if !r.IsStaff() {
			t.Errorf("%s should be staff", r)
		}
	}
	for _, r := range []Role{RoleAdmin, RoleGuest} {
		if r.IsStaff() {
			t.Errorf("%s should not be staff", r)
		}
	}
}
