package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/liamcoop/fieldinsights/alertrules"
	"github.com/liamcoop/fieldinsights/insights"
)

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.engine.ListRules()
	if err != nil {
		fail(w, r, "failed to list alert rules", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
	})
}

// handleCreateRule adds a custom alert rule. Rules are active unless the
// request says otherwise.
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req AlertRuleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, "invalid request body", err)
		return
	}

	rule := &alertrules.Rule{
		Active:          true,
		Recommendations: []string{},
		CreatedBy:       currentUser(r).ID,
	}
	req.apply(rule)

	if err := s.engine.AddRule(rule); err != nil {
		fail(w, r, "failed to add alert rule", err)
		return
	}

	respondJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.engine.GetRule(chi.URLParam(r, "ruleId"))
	if err != nil {
		fail(w, r, "alert rule not found", err)
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var req AlertRuleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, "invalid request body", err)
		return
	}

	rule, err := s.engine.GetRule(chi.URLParam(r, "ruleId"))
	if err != nil {
		fail(w, r, "alert rule not found", err)
		return
	}
	req.apply(rule)

	if err := s.engine.UpdateRule(rule); err != nil {
		fail(w, r, "failed to update alert rule", err)
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteRule(chi.URLParam(r, "ruleId")); err != nil {
		fail(w, r, "alert rule not found", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleEvaluateRules dry-runs every active custom rule against a conditions
// snapshot
func (s *Server) handleEvaluateRules(w http.ResponseWriter, r *http.Request) {
	var cond insights.Conditions
	if err := decodeJSON(w, r, &cond); err != nil {
		fail(w, r, "invalid request body", err)
		return
	}
	if err := insights.ValidateConditions(cond); err != nil {
		fail(w, r, "evaluation failed", err)
		return
	}

	results, err := s.engine.EvaluateAll(alertrules.ConditionFacts(cond))
	if err != nil {
		fail(w, r, "evaluation failed", err)
		return
	}

	out := make([]RuleEvaluation, 0, len(results))
	for _, res := range results {
		ev := RuleEvaluation{RuleID: res.RuleID, RuleName: res.RuleName, Matched: res.Matched}
		if res.Error != nil {
			msg := res.Error.Error()
			ev.Error = &msg
		}
		out = append(out, ev)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"results": out,
	})
}
