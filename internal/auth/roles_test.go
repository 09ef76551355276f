package auth

import (
	"testing"

	"github.com/spec-kit/auth-engine/internal/domain"
)

func claimsWith(roles ...string) *domain.TokenClaims {
	return &domain.TokenClaims{Subject: "test@test.com", Roles: roles}
}

func TestEvaluate_RoleGate(t *testing.T) {
	req := RequireAll("test-admin")

	if !Evaluate(claimsWith("test-admin", "test-super-admin"), req) {
		t.Error("admin claims should satisfy {all: test-admin}")
	}
	if Evaluate(claimsWith("test-moderator"), req) {
		t.Error("moderator claims should not satisfy {all: test-admin}")
	}
}

func TestEvaluate_CombinedGate(t *testing.T) {
	req := RoleRequirement{
		All:  domain.NewRoleSet("test"),
		Some: domain.NewRoleSet("test-some-1", "test-some-2"),
		None: domain.NewRoleSet("test-none-1"),
	}

	if !Evaluate(claimsWith("test", "test-some-1"), req) {
		t.Error("[test test-some-1] should satisfy the combined gate")
	}
	if Evaluate(claimsWith("test", "test-some-1", "test-none-1"), req) {
		t.Error("a forbidden role should fail the combined gate")
	}
	if Evaluate(claimsWith("test"), req) {
		t.Error("missing every some-role should fail the combined gate")
	}
	if Evaluate(claimsWith("test-some-2"), req) {
		t.Error("missing an all-role should fail the combined gate")
	}
}

// Each clause is checked for the empty, satisfied and unsatisfied case, and
// the result must be the conjunction of the three.
func TestEvaluate_TruthTable(t *testing.T) {
	const held = "held"
	const absent = "absent"
	claims := claimsWith(held)

	type clause struct {
		name string
		set  domain.RoleSet
		ok   bool
	}
	all := []clause{
		{"all=empty", nil, true},
		{"all=held", domain.NewRoleSet(held), true},
		{"all=held+absent", domain.NewRoleSet(held, absent), false},
	}
	some := []clause{
		{"some=empty", nil, true},
		{"some=held+absent", domain.NewRoleSet(held, absent), true},
		{"some=absent", domain.NewRoleSet(absent), false},
	}
	none := []clause{
		{"none=empty", nil, true},
		{"none=absent", domain.NewRoleSet(absent), true},
		{"none=held", domain.NewRoleSet(held), false},
	}

	for _, a := range all {
		for _, s := range some {
			for _, n := range none {
				want := a.ok && s.ok && n.ok
				req := RoleRequirement{All: a.set, Some: s.set, None: n.set}
				if got := Evaluate(claims, req); got != want {
					t.Errorf("%s %s %s: Evaluate() = %v, want %v", a.name, s.name, n.name, got, want)
				}
			}
		}
	}
}

func TestEvaluate_EmptyRequirementAndClaims(t *testing.T) {
	if !Evaluate(claimsWith(), RoleRequirement{}) {
		t.Error("an empty requirement should be satisfied by any claims")
	}
	if Evaluate(nil, RoleRequirement{}) {
		t.Error("nil claims should never satisfy a requirement")
	}
	if Evaluate(claimsWith(), RequireSome("a")) {
		t.Error("no roles cannot satisfy a non-empty some clause")
	}
	if !Evaluate(claimsWith(), RequireNone("banned")) {
		t.Error("no roles trivially satisfy a none clause")
	}
}

func TestEvaluate_RolesCompareByValue(t *testing.T) {
	claims := claimsWith(string([]byte("admin")))
	if !Evaluate(claims, RequireAll(domain.RoleAdmin)) {
		t.Error("roles built from equal strings should be equal")
	}
	if Evaluate(claims, RequireAll("Admin")) {
		t.Error("role comparison is case-sensitive")
	}
}

func TestEvaluateAll(t *testing.T) {
	claims := claimsWith("admin", "moderator")

	if !EvaluateAll(claims) {
		t.Error("no requirements should pass")
	}
	if !EvaluateAll(claims, RequireAll("admin"), RequireNone(domain.RoleBanned)) {
		t.Error("chained satisfied requirements should pass")
	}
	if EvaluateAll(claims, RequireAll("admin"), RequireNone("moderator")) {
		t.Error("any failing requirement should fail the chain")
	}
	if EvaluateAll(nil) {
		t.Error("nil claims should fail")
	}
}
