package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"

	"tenant-messaging-api/backend/internal/policy/repository"
)

const denyQuery = "data.msgapi.write.deny"

// Default Rego policy. Org policies are compiled alongside it and may add further deny rules.
const defaultRegoPolicy = `package msgapi.write

deny contains "Cannot update contacts on anonymous organizations" if {
	input.org.anonymous
	input.resource == "contact"
}

deny contains "Cannot start flows for anonymous organizations" if {
	input.org.anonymous
	input.resource == "flow_start"
	input.raw_addresses
}

deny contains "Cannot create messages for anonymous organizations" if {
	input.org.anonymous
	input.resource in {"message", "broadcast"}
	input.raw_addresses
}
`

// OPAEvaluator evaluates write policies using OPA Rego.
type OPAEvaluator struct {
	policyRepo repository.Repository
	log        *zap.Logger
}

// NewOPAEvaluator returns an OPA-based policy evaluator. policyRepo may be nil, in which case only the default
// policy applies.
func NewOPAEvaluator(policyRepo repository.Repository, log *zap.Logger) *OPAEvaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &OPAEvaluator{policyRepo: policyRepo, log: log}
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and evaluate the default policy.
// Does not call the policy repo or database. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.evaluate(ctx, defaultModules(), buildInput(WriteInput{Resource: "contact"}))
	return err
}

// DenyWrite evaluates the default policy and the enabled policies of the org. If the org policies fail to load
// or compile, the default policy is evaluated alone.
func (e *OPAEvaluator) DenyWrite(ctx context.Context, in WriteInput) ([]string, error) {
	input := buildInput(in)

	modules := defaultModules()
	if e.policyRepo != nil && in.OrgID != "" {
		enabled, err := e.policyRepo.GetEnabledPoliciesByOrg(ctx, in.OrgID)
		if err != nil {
			e.log.Warn("policy: failed to load org policies", zap.String("org_id", in.OrgID), zap.Error(err))
		}
		for _, p := range enabled {
			if p.Enabled && p.Rules != "" {
				modules[p.ModuleName()] = p.Rules
			}
		}
	}

	out, err := e.evaluate(ctx, modules, input)
	if err != nil && len(modules) > 1 {
		e.log.Warn("policy: org policy evaluation failed, using default", zap.String("org_id", in.OrgID), zap.Error(err))
		out, err = e.evaluate(ctx, defaultModules(), input)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func buildInput(in WriteInput) map[string]interface{} {
	return map[string]interface{}{
		"org": map[string]interface{}{
			"id":        in.OrgID,
			"anonymous": in.Anonymous,
		},
		"user": map[string]interface{}{
			"id": in.UserID,
		},
		"resource":      in.Resource,
		"raw_addresses": in.RawAddresses,
	}
}

const defaultModuleName = "msgapi/write.rego"

func defaultModules() map[string]string {
	return map[string]string{defaultModuleName: defaultRegoPolicy}
}

func (e *OPAEvaluator) evaluate(ctx context.Context, modules map[string]string, input map[string]interface{}) ([]string, error) {
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}

	q := rego.New(
		rego.Query(denyQuery),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return nil, fmt.Errorf("eval policies: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, fmt.Errorf("policy query returned no result")
	}

	var out []string
	switch v := rs[0].Expressions[0].Value.(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case nil:
	default:
		return nil, fmt.Errorf("deny is %T, want a set of strings", v)
	}
	sort.Strings(out)
	return out, nil
}
