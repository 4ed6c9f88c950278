package alertrules

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	minPriority = 1
	maxPriority = 10
	maxNameLen  = 100
)

var ruleNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_ -]*$`)

// ValidateRule checks the rule's metadata. The expression itself is checked
// by Engine.CompileRule. Every failure wraps ErrInvalidRule.
func ValidateRule(r *Rule) error {
	if err := validateName(r.Name); err != nil {
		return fmt.Errorf("%w: name %q: %v", ErrInvalidRule, r.Name, err)
	}

	if strings.TrimSpace(r.Expression) == "" {
		return fmt.Errorf("%w: expression cannot be empty", ErrInvalidRule)
	}

	if !r.AlertType.Valid() {
		return fmt.Errorf("%w: unknown alert type %q (must be one of: irrigation, pest, weather, disease)", ErrInvalidRule, r.AlertType)
	}

	if !r.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q (must be one of: low, medium, high, critical)", ErrInvalidRule, r.Severity)
	}

	if r.Priority < minPriority || r.Priority > maxPriority {
		return fmt.Errorf("%w: priority %d out of range %d-%d", ErrInvalidRule, r.Priority, minPriority, maxPriority)
	}

	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidRule)
	}
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("%w: message cannot be empty", ErrInvalidRule)
	}

	for i, rec := range r.Recommendations {
		if strings.TrimSpace(rec) == "" {
			return fmt.Errorf("%w: recommendation %d is blank", ErrInvalidRule, i)
		}
	}

	return nil
}

func validateName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("cannot be empty")
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("length %d exceeds maximum of %d characters", len(name), maxNameLen)
	}
	if !ruleNamePattern.MatchString(name) {
		return fmt.Errorf("must start with a letter or underscore, followed by letters, digits, spaces, underscores or hyphens")
	}
	if isReservedKeyword(name) {
		return fmt.Errorf("cannot use reserved keyword %q", name)
	}
	return nil
}

// isReservedKeyword reports CEL keywords, which would make rule names
// ambiguous in exported expression bundles.
func isReservedKeyword(name string) bool {
	switch name {
	case "true", "false", "null",
		"in", "as", "import", "package", "namespace",
		"if", "else", "for", "while", "break", "continue", "return",
		"var", "let", "const", "function", "loop", "void":
		return true
	}
	return false
}
