package alertrules

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"

	"github.com/liamcoop/fieldinsights/insights"
)

// costLimit caps the work a single expression may do per evaluation
const costLimit = 1000000

// ConditionsVar is the CEL variable rule expressions read from
const ConditionsVar = "conditions"

// NewEnv returns the CEL environment rules compile against. conditions is a
// map<string, double> keyed by temperature, humidity, soil_moisture,
// rainfall_forecast and wind_speed.
func NewEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(ConditionsVar, cel.MapType(cel.StringType, cel.DoubleType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// ConditionFacts wraps conditions into the activation rules evaluate against
func ConditionFacts(c insights.Conditions) map[string]any {
	return map[string]any{ConditionsVar: c.Facts()}
}

// Engine compiles and evaluates custom alert rules. It is safe for
// concurrent use and plugs into insights.AlertSynthesizer as an AlertSource.
type Engine struct {
	env      *cel.Env
	store    RuleStore
	cache    RulesCache
	logger   *slog.Logger
	programs map[string]cel.Program // ruleID -> compiled program
	mu       sync.RWMutex

	// refillMu orders cache refills against invalidations so a refill
	// racing a mutation cannot cache a stale list.
	refillMu sync.Mutex
}

var _ insights.AlertSource = (*Engine)(nil)

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithCache replaces the default never-expiring rules cache
func WithCache(c RulesCache) EngineOption {
	return func(en *Engine) { en.cache = c }
}

// WithLogger sets the logger evaluation failures are reported to
func WithLogger(l *slog.Logger) EngineOption {
	return func(en *Engine) { en.logger = l }
}

// NewEngine creates an engine over store and compiles its active rules
func NewEngine(store RuleStore, opts ...EngineOption) (*Engine, error) {
	env, err := NewEnv()
	if err != nil {
		return nil, err
	}

	en := &Engine{
		env:      env,
		store:    store,
		cache:    NewInMemoryRulesCache(DefaultCacheConfig()),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		programs: make(map[string]cel.Program),
	}
	for _, opt := range opts {
		opt(en)
	}

	if err := en.CompileAllRules(); err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}

	return en, nil
}

// compile type-checks expression and builds a program without installing it
func (en *Engine) compile(expression string) (cel.Program, error) {
	ast, issues := en.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: compile error: %v", ErrInvalidRule, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: expression must evaluate to bool, got %s", ErrInvalidRule, ast.OutputType())
	}

	prog, err := en.env.Program(ast,
		cel.EvalOptions(cel.OptTrackState),
		cel.CostLimit(costLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// CheckExpression reports whether expression would compile as a rule
func (en *Engine) CheckExpression(expression string) error {
	_, err := en.compile(expression)
	return err
}

// CompileRule compiles expression and caches the program under ruleID
func (en *Engine) CompileRule(ruleID, expression string) error {
	prog, err := en.compile(expression)
	if err != nil {
		return err
	}

	en.mu.Lock()
	en.programs[ruleID] = prog
	en.mu.Unlock()

	return nil
}

// CompileAllRules compiles all active rules from the store and primes the cache
func (en *Engine) CompileAllRules() error {
	rules, err := en.store.ListActive()
	if err != nil {
		return err
	}

	for _, rule := range rules {
		if err := en.CompileRule(rule.ID, rule.Expression); err != nil {
			return fmt.Errorf("failed to compile rule %s: %w", rule.ID, err)
		}
	}

	en.cache.Set(rules)
	return nil
}

// AddRule validates, compiles and stores a new rule. An empty ID is
// replaced with a fresh UUID.
func (en *Engine) AddRule(r *Rule) error {
	if err := ValidateRule(r); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	if _, err := en.store.Get(r.ID); err == nil {
		return fmt.Errorf("%w: %s", ErrRuleExists, r.ID)
	} else if !errors.Is(err, ErrRuleNotFound) {
		return err
	}

	if err := en.CompileRule(r.ID, r.Expression); err != nil {
		return err
	}

	if err := en.store.Add(r); err != nil {
		en.mu.Lock()
		delete(en.programs, r.ID)
		en.mu.Unlock()
		return err
	}

	en.invalidate()
	return nil
}

// UpdateRule validates and recompiles r, then replaces the stored rule.
// The previous program stays live if the store update fails.
func (en *Engine) UpdateRule(r *Rule) error {
	if err := ValidateRule(r); err != nil {
		return err
	}

	prog, err := en.compile(r.Expression)
	if err != nil {
		return err
	}

	if err := en.store.Update(r); err != nil {
		return err
	}

	en.mu.Lock()
	en.programs[r.ID] = prog
	en.mu.Unlock()

	en.invalidate()
	return nil
}

// DeleteRule removes a rule from the store and drops its program
func (en *Engine) DeleteRule(ruleID string) error {
	if err := en.store.Delete(ruleID); err != nil {
		return err
	}

	en.mu.Lock()
	delete(en.programs, ruleID)
	en.mu.Unlock()

	en.invalidate()
	return nil
}

// GetRule returns a stored rule
func (en *Engine) GetRule(ruleID string) (*Rule, error) {
	return en.store.Get(ruleID)
}

// ListRules returns every stored rule, including inactive ones
func (en *Engine) ListRules() ([]*Rule, error) {
	return en.store.List()
}

func (en *Engine) invalidate() {
	en.refillMu.Lock()
	en.cache.Invalidate()
	en.refillMu.Unlock()
}

// activeRules serves the active list from cache, refilling it on a miss
func (en *Engine) activeRules() ([]*Rule, error) {
	if rules := en.cache.Get(); rules != nil {
		return rules, nil
	}

	en.refillMu.Lock()
	defer en.refillMu.Unlock()
	if rules := en.cache.Get(); rules != nil {
		return rules, nil
	}

	rules, err := en.store.ListActive()
	if err != nil {
		return nil, err
	}
	en.cache.Set(rules)
	return rules, nil
}

func (en *Engine) evalRule(rule *Rule, facts map[string]any) *EvaluationResult {
	en.mu.RLock()
	prog, exists := en.programs[rule.ID]
	en.mu.RUnlock()

	if !exists {
		return &EvaluationResult{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Error:    fmt.Errorf("rule %s is not compiled", rule.ID),
		}
	}

	out, details, err := prog.Eval(facts)
	if err != nil {
		return &EvaluationResult{RuleID: rule.ID, RuleName: rule.Name, Error: err}
	}

	matched := false
	if b, ok := out.Value().(bool); ok {
		matched = b
	}

	res := &EvaluationResult{RuleID: rule.ID, RuleName: rule.Name, Matched: matched}
	if details != nil {
		res.Trace = details.State()
	}
	return res
}

// Evaluate runs a single stored rule against facts
func (en *Engine) Evaluate(ruleID string, facts map[string]any) (*EvaluationResult, error) {
	rule, err := en.store.Get(ruleID)
	if err != nil {
		return nil, err
	}

	res := en.evalRule(rule, facts)
	return res, res.Error
}

// EvaluateAll runs every active rule. A failing rule is reported in its
// result and does not stop the others.
func (en *Engine) EvaluateAll(facts map[string]any) ([]*EvaluationResult, error) {
	rules, err := en.activeRules()
	if err != nil {
		return nil, err
	}

	results := make([]*EvaluationResult, 0, len(rules))
	for _, rule := range rules {
		results = append(results, en.evalRule(rule, facts))
	}
	return results, nil
}

// Alerts returns the alerts of every active rule matching c, in rule order.
// Store and evaluation errors are logged and skipped.
func (en *Engine) Alerts(c insights.Conditions) []insights.Alert {
	rules, err := en.activeRules()
	if err != nil {
		en.logger.Error("failed to load custom alert rules", slog.Any("error", err))
		return nil
	}

	facts := ConditionFacts(c)
	var alerts []insights.Alert
	for _, rule := range rules {
		res := en.evalRule(rule, facts)
		if res.Error != nil {
			en.logger.Warn("custom alert rule evaluation failed",
				slog.String("rule_id", rule.ID),
				slog.String("rule_name", rule.Name),
				slog.Any("error", res.Error),
			)
			continue
		}
		if res.Matched {
			alerts = append(alerts, rule.Alert())
		}
	}
	return alerts
}
