package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"volunteer-platform/backend/internal/policy/domain"
)

const policyQuery = "data.volunteer.authz"

// regoDecisionLogic evaluates the `rules` object defined alongside it. It mirrors
// TableEvaluator: any satisfied disjunct allows, status disjuncts need a persisted resource,
// self_owned disjuncts apply only on create.
const regoDecisionLogic = `
default allow := false

default has_rule := false

has_rule if rules[input.class][input.action]

matched contains i if {
	some i, req in rules[input.class][input.action]
	satisfied(req)
}

allow if count(matched) > 0

satisfied(req) if object.get(req, "public", false)

satisfied(req) if {
	not object.get(req, "public", false)
	self_ok(req)
	role_ok(req)
	status_ok(req)
	has_condition(req)
}

has_condition(req) if object.get(req, "self_owned", false)

has_condition(req) if object.get(req, "role", "") != ""

self_ok(req) if not object.get(req, "self_owned", false)

self_ok(req) if {
	object.get(req, "self_owned", false)
	input.action == "create"
	input.actor_id != ""
	input.proposed.owner_id == input.actor_id
}

role_ok(req) if object.get(req, "role", "") == ""

role_ok(req) if {
	role := object.get(req, "role", "")
	role != ""
	role in input.roles
}

status_ok(req) if object.get(req, "status", "") == ""

status_ok(req) if {
	status := object.get(req, "status", "")
	status != ""
	input.action != "create"
	input.resource.status == status
}
`

// DefaultRegoModule renders rules and the decision logic as a Rego module in package
// volunteer.authz.
func DefaultRegoModule(rules domain.RuleSet) (string, error) {
	data, err := json.Marshal(rules)
	if err != nil {
		return "", fmt.Errorf("encode rules: %w", err)
	}
	return "package volunteer.authz\n\nrules := " + string(data) + "\n" + regoDecisionLogic, nil
}

// OPAEvaluator evaluates authorization rules with an in-process OPA Rego query. A custom
// module must live in package volunteer.authz and define allow, has_rule and matched.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles module and prepares the decision query.
func NewOPAEvaluator(ctx context.Context, module string) (*OPAEvaluator, error) {
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": module})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// NewOPAEvaluatorFromFile loads a Rego module from path, or renders the default rules when path is empty.
func NewOPAEvaluatorFromFile(ctx context.Context, path string) (*OPAEvaluator, error) {
	if path == "" {
		module, err := DefaultRegoModule(DefaultRules())
		if err != nil {
			return nil, err
		}
		return NewOPAEvaluator(ctx, module)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return NewOPAEvaluator(ctx, string(b))
}

// Evaluate runs the prepared query against in.
func (e *OPAEvaluator) Evaluate(ctx context.Context, in Input) (Result, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(in)))
	if err != nil {
		return Result{Matched: -1}, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Result{Matched: -1}, fmt.Errorf("policy query returned no result")
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Result{Matched: -1}, fmt.Errorf("policy result has unexpected type %T", rs[0].Expressions[0].Value)
	}
	out := Result{Matched: -1}
	out.HasRule, _ = doc["has_rule"].(bool)
	out.Allowed, _ = doc["allow"].(bool)
	if idx := matchedIndexes(doc["matched"]); len(idx) > 0 {
		out.Matched = idx[0]
	}
	return out, nil
}

// HealthCheck evaluates a public rule to confirm the compiled policy answers.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.Evaluate(ctx, Input{Class: "page", Action: domain.ActionList, Roles: domain.NewRoleSet(domain.RoleAnonymous)})
	return err
}

func buildInput(in Input) map[string]interface{} {
	m := map[string]interface{}{
		"class":    string(in.Class),
		"action":   string(in.Action),
		"roles":    in.Roles.Names(),
		"actor_id": in.ActorID,
	}
	if in.Resource != nil {
		m["resource"] = map[string]interface{}{
			"id":       in.Resource.ID,
			"owner_id": in.Resource.OwnerID,
			"cell_id":  in.Resource.CellID,
			"status":   string(in.Resource.Status),
		}
	}
	if in.Proposed != nil {
		m["proposed"] = map[string]interface{}{
			"owner_id": in.Proposed.OwnerID,
			"cell_id":  in.Proposed.CellID,
		}
	}
	return m
}

func matchedIndexes(v interface{}) []int {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		switch n := item.(type) {
		case json.Number:
			if i, err := n.Int64(); err == nil {
				out = append(out, int(i))
			}
		case float64:
			out = append(out, int(n))
		case int:
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}
