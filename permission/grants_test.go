package permission

import (
	"reflect"
	"testing"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		perms []string
		anyOf []string
		want  bool
	}{
		{"wildcard permission", nil, []string{"*"}, []string{"iam.users.manage"}, true},
		{"admin role", []string{"Admin"}, nil, []string{"iam.users.manage"}, true},
		{"exact permission", nil, []string{"iam.users.manage"}, []string{"iam.users.manage"}, true},
		{"case-insensitive permission", nil, []string{"IAM.Users.Manage"}, []string{"iam.users.manage"}, true},
		{"any of second", nil, []string{"iam.users.manage"}, []string{"iam.roles.manage", "iam.users.manage"}, true},
		{"role token", []string{"Guardia"}, nil, []string{"guardia"}, true},
		{"missing", []string{"viewer"}, []string{"iam.audit.read"}, []string{"iam.users.manage"}, false},
		{"no grants", nil, nil, []string{"iam.users.manage"}, false},
		{"empty requirement", nil, nil, nil, true},
		{"blank requirement", nil, nil, []string{" "}, true},
		{"wildcard requirement without wildcard grant", nil, []string{"iam.users.manage"}, []string{"*"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Allowed(tc.roles, tc.perms, tc.anyOf...); got != tc.want {
				t.Fatalf("Allowed = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestUnion(t *testing.T) {
	got := Union([]string{"a", "B", " "}, []string{"b", "c", "A"})
	if !reflect.DeepEqual(got, []string{"a", "B", "c"}) {
		t.Fatalf("Union = %v", got)
	}
}

func TestOverridesApply(t *testing.T) {
	o := Overrides{SuperadminEmails: []string{"Root@X.com"}}

	g := o.Apply("root@x.com", Grants{Roles: []string{"viewer"}})
	if !g.IsWildcard() {
		t.Fatalf("expected superadmin to gain wildcard, got %+v", g)
	}
	if !reflect.DeepEqual(g.Roles, []string{"viewer", "admin"}) {
		t.Fatalf("unexpected roles %v", g.Roles)
	}

	plain := o.Apply("ana@x.com", Grants{Roles: []string{"viewer"}})
	if plain.IsWildcard() {
		t.Fatal("expected non-superadmin to be unchanged")
	}
	if o.IsSuperadmin("") {
		t.Fatal("empty email must never match")
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		key, group, want string
	}{
		{"Create", "Rondas", "rondas.create"},
		{"iam.users.manage", "iam", "iam.users.manage"},
		{" read ", "", "read"},
	}
	for _, tc := range tests {
		if got := NormalizeKey(tc.key, tc.group); got != tc.want {
			t.Fatalf("NormalizeKey(%q,%q) = %q, want %q", tc.key, tc.group, got, tc.want)
		}
	}

	if err := ValidateKey("iam.users manage"); err != ErrInvalidKey {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if err := ValidateKey(""); err == nil {
		t.Fatal("expected empty key to fail")
	}
}

func TestNormalizeGrants(t *testing.T) {
	got, err := NormalizeGrants([]string{"*", "IAM.Users.Manage", "iam.users.manage", ""})
	if err != nil {
		t.Fatalf("NormalizeGrants: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"*", "iam.users.manage"}) {
		t.Fatalf("unexpected grants %v", got)
	}
	if _, err := NormalizeGrants([]string{"bad key"}); err == nil {
		t.Fatal("expected invalid grant to fail")
	}
}
