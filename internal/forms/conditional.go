package forms

import (
	"fmt"
	"strings"

	"github.com/RovierrHQ/rovierr/internal/models"
)

// EvaluateCondition evaluates one visibility rule. actual is the
// respondent's answer to the source question (scalar or list), expected the
// rule's comparison value.
//
//   - nil actual is "not equal to anything": true only for not_equals.
//   - equals/not_equals on a list test membership rather than equality.
//   - contains/not_contains on strings is a case-insensitive substring test,
//     on lists a membership test, and false/true respectively otherwise.
//   - an unknown operator evaluates false.
func EvaluateCondition(condition string, actual interface{}, expected string) bool {
	if actual == nil {
		return condition == models.CondNotEquals
	}

	switch condition {
	case models.CondEquals:
		if list, ok := asList(actual); ok {
			return listContains(list, expected)
		}
		return stringify(actual) == expected

	case models.CondNotEquals:
		if list, ok := asList(actual); ok {
			return !listContains(list, expected)
		}
		return stringify(actual) != expected

	case models.CondContains:
		if list, ok := asList(actual); ok {
			return listContains(list, expected)
		}
		if s, ok := actual.(string); ok {
			return strings.Contains(strings.ToLower(s), strings.ToLower(expected))
		}
		return false

	case models.CondNotContains:
		if list, ok := asList(actual); ok {
			return !listContains(list, expected)
		}
		if s, ok := actual.(string); ok {
			return !strings.Contains(strings.ToLower(s), strings.ToLower(expected))
		}
		return true

	default:
		return false
	}
}

// ResolveVisibility returns, for every question, whether it should be shown
// given the responses collected so far. Resolution is topological: a
// question's source resolves first, and a question whose source is hidden is
// hidden regardless of its local condition. Questions without conditional
// logic are always visible.
//
// The dependency graph is assumed acyclic (ValidateConditionalLogic rejects
// cycles before a form can be published); if a cycle is present anyway,
// every question on it resolves hidden.
func ResolveVisibility(questions []models.Question, responses map[uint]interface{}) map[uint]bool {
	byID := make(map[uint]*models.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	const (
		unresolved = 0
		resolving  = 1
		done       = 2
	)
	state := make(map[uint]int, len(questions))
	visible := make(map[uint]bool, len(questions))

	var resolve func(id uint) bool
	resolve = func(id uint) bool {
		if state[id] == done {
			return visible[id]
		}
		if state[id] == resolving {
			// on a cycle; force hidden
			return false
		}
		state[id] = resolving

		q := byID[id]
		result := true
		if q.ConditionalLogicEnabled {
			src := q.SourceQuestionID
			if src == nil || byID[*src] == nil {
				result = false
			} else if !resolve(*src) {
				// hidden source forces the dependent hidden
				result = false
			} else {
				result = EvaluateCondition(q.Condition, responses[*src], q.ConditionValue)
			}
		}

		state[id] = done
		visible[id] = result
		return result
	}

	for id := range byID {
		resolve(id)
	}
	return visible
}

// ResolvePageVisibility evaluates page-level rules against the question
// visibility already resolved for the same responses. A page whose source
// question is hidden is hidden.
func ResolvePageVisibility(pages []models.Page, questions []models.Question, responses map[uint]interface{}) map[uint]bool {
	questionVisible := ResolveVisibility(questions, responses)

	out := make(map[uint]bool, len(pages))
	for _, p := range pages {
		if !p.ConditionalLogicEnabled {
			out[p.ID] = true
			continue
		}
		if p.SourceQuestionID == nil || !questionVisible[*p.SourceQuestionID] {
			out[p.ID] = false
			continue
		}
		out[p.ID] = EvaluateCondition(p.Condition, responses[*p.SourceQuestionID], p.ConditionValue)
	}
	return out
}

// CycleReport is the result of circular-dependency detection.
type CycleReport struct {
	HasCircular bool     `json:"has_circular"`
	Cycles      [][]uint `json:"cycles,omitempty"`
}

// DetectCircularDependencies searches the question dependency graph (edge:
// question → its source question) for cycles. Every unvisited node roots a
// new depth-first search, so independent cycles in disconnected components
// are all found.
func DetectCircularDependencies(questions []models.Question) CycleReport {
	// arena: stable integer index per question, edges as index pairs
	index := make(map[uint]int, len(questions))
	ids := make([]uint, len(questions))
	for i := range questions {
		index[questions[i].ID] = i
		ids[i] = questions[i].ID
	}

	adj := make([][]int, len(questions))
	for i := range questions {
		q := &questions[i]
		if !q.ConditionalLogicEnabled || q.SourceQuestionID == nil {
			continue
		}
		if j, ok := index[*q.SourceQuestionID]; ok {
			adj[i] = append(adj[i], j)
		}
	}

	const (
		white = 0 // unvisited
		gray  = 1 // on the current stack
		black = 2 // fully explored
	)
	color := make([]int, len(questions))
	stack := make([]int, 0, len(questions))
	pos := make([]int, len(questions)) // stack position while gray

	var report CycleReport

	var visit func(n int)
	visit = func(n int) {
		color[n] = gray
		pos[n] = len(stack)
		stack = append(stack, n)

		for _, m := range adj[n] {
			switch color[m] {
			case white:
				visit(m)
			case gray:
				// cycle: the stack slice from m's position through n
				cycle := make([]uint, 0, len(stack)-pos[m])
				for _, k := range stack[pos[m]:] {
					cycle = append(cycle, ids[k])
				}
				report.HasCircular = true
				report.Cycles = append(report.Cycles, cycle)
			}
		}

		stack = stack[:len(stack)-1]
		color[n] = black
	}

	for n := range questions {
		if color[n] == white {
			visit(n)
		}
	}
	return report
}

// ValidationResult accumulates every conditional-logic violation found.
// Callers decide whether a non-empty Errors list is fatal.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateConditionalLogic checks the full rule set of a form: no cycles,
// every source question exists, and every enabled rule carries all three of
// source, condition and value. All violations are reported, not just the
// first.
func ValidateConditionalLogic(questions []models.Question) ValidationResult {
	var errs []string

	report := DetectCircularDependencies(questions)
	for _, cycle := range report.Cycles {
		parts := make([]string, len(cycle))
		for i, id := range cycle {
			parts[i] = fmt.Sprintf("%d", id)
		}
		errs = append(errs, fmt.Sprintf("circular dependency: %s", strings.Join(parts, " -> ")))
	}

	known := make(map[uint]bool, len(questions))
	for i := range questions {
		known[questions[i].ID] = true
	}

	for i := range questions {
		q := &questions[i]
		if !q.ConditionalLogicEnabled {
			continue
		}
		if q.SourceQuestionID == nil {
			errs = append(errs, fmt.Sprintf("question %d: conditional logic enabled but no source question", q.ID))
		} else if !known[*q.SourceQuestionID] {
			errs = append(errs, fmt.Sprintf("question %d: source question %d does not exist", q.ID, *q.SourceQuestionID))
		}
		if q.Condition == "" {
			errs = append(errs, fmt.Sprintf("question %d: conditional logic enabled but no condition", q.ID))
		}
		if q.ConditionValue == "" {
			errs = append(errs, fmt.Sprintf("question %d: conditional logic enabled but no condition value", q.ID))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// CleanupResponses returns a copy of responses with every entry for a
// non-visible question removed, so stale hidden-question answers are never
// submitted.
func CleanupResponses(responses map[uint]interface{}, visible map[uint]bool) map[uint]interface{} {
	out := make(map[uint]interface{}, len(responses))
	for id, v := range responses {
		if visible[id] {
			out[id] = v
		}
	}
	return out
}

// asList normalizes list-valued answers.
func asList(v interface{}) ([]interface{}, bool) {
	switch l := v.(type) {
	case []interface{}:
		return l, true
	case []string:
		out := make([]interface{}, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func listContains(list []interface{}, expected string) bool {
	for _, item := range list {
		if stringify(item) == expected {
			return true
		}
	}
	return false
}

// stringify renders a scalar answer for comparison against the rule's
// string-typed expected value.
func stringify(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		// JSON numbers decode as float64; render integers without a point
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%v", x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", x)
	}
}
