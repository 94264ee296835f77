package router

import (
	"testing"

	"modelvault/pkg/types"
)

func TestRouteBoundRoles(t *testing.T) {
	r := New(Bindings{General: "llama3.2:3b", Coding: "qwen2.5-coder:3b", Vision: "llava-phi3"})
	cases := map[types.Role]string{
		types.RoleGeneral: "llama3.2:3b",
		types.RoleCoding:  "qwen2.5-coder:3b",
		types.RoleVision:  "llava-phi3",
	}
	for role, want := range cases {
		dec, err := r.Route(role)
		if err != nil {
			t.Fatalf("route %s: %v", role, err)
		}
		if dec.Role != role || dec.ModelName != want {
			t.Fatalf("route %s: got %+v", role, dec)
		}
	}
}

func TestRouteIsPure(t *testing.T) {
	r := New(Bindings{General: "m1", Coding: "m2", Vision: "m3"})
	first, err := r.Route(types.RoleCoding)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	second, err := r.Route(types.RoleCoding)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if first != second {
		t.Fatalf("routing not deterministic: %+v vs %+v", first, second)
	}
}

func TestRouteUnboundRole(t *testing.T) {
	r := New(Bindings{General: "m1", Coding: "m2"})
	_, err := r.Route(types.RoleVision)
	if err == nil {
		t.Fatalf("expected error for unbound vision role")
	}
	if !IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %T", err)
	}
}

func TestRouteUnknownRole(t *testing.T) {
	r := New(Bindings{General: "m1"})
	if _, err := r.Route(types.Role("banana")); !IsConfigurationError(err) {
		t.Fatalf("expected configuration error for unknown role, got %v", err)
	}
}

func TestErrRoleNotBound(t *testing.T) {
	err := ErrRoleNotBound(types.RoleVision)
	if !IsConfigurationError(err) {
		t.Fatalf("constructor did not produce a configuration error")
	}
	if err.Error() != "no model configured for role: vision" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
