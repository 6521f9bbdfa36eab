package forms

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/RovierrHQ/rovierr/internal/models"
)

var (
	// default E.164-like phone pattern, used when a question supplies none
	defaultPhoneRe = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	emailRe        = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	timeRe         = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// Schema is the runtime validator derived from one question's type, required
// flag, validation rules and options.
type Schema struct {
	QuestionID uint
	Optional   bool
	check      func(value interface{}) error
}

// Validate checks a single answer against the schema. nil means the
// respondent left the question unanswered.
func (s *Schema) Validate(value interface{}) error {
	if value == nil {
		if s.Optional {
			return nil
		}
		return fmt.Errorf("answer is required")
	}
	return s.check(value)
}

// Compile derives a validator from the question definition. Unknown question
// types validate as unconstrained passthrough.
func Compile(q *models.Question) *Schema {
	s := &Schema{QuestionID: q.ID, Optional: !q.Required}

	switch q.Type {
	case models.QShortText, models.QLongText:
		s.check = textCheck(q)
	case models.QEmail:
		s.check = func(v interface{}) error {
			str, ok := v.(string)
			if !ok {
				return fmt.Errorf("expected a string")
			}
			if !emailRe.MatchString(str) {
				return fmt.Errorf("invalid email address")
			}
			return nil
		}
	case models.QPhone:
		re := defaultPhoneRe
		msg := "invalid phone number"
		if q.Pattern != "" {
			if custom, err := regexp.Compile(q.Pattern); err == nil {
				re = custom
				if q.PatternError != "" {
					msg = q.PatternError
				}
			}
		}
		s.check = func(v interface{}) error {
			str, ok := v.(string)
			if !ok {
				return fmt.Errorf("expected a string")
			}
			if !re.MatchString(str) {
				return fmt.Errorf("%s", msg)
			}
			return nil
		}
	case models.QNumber:
		s.check = numberCheck(q.MinValue, q.MaxValue)
	case models.QRating:
		one, five := 1.0, 5.0
		s.check = numberCheck(&one, &five)
	case models.QDate:
		s.check = func(v interface{}) error {
			str, ok := v.(string)
			if !ok {
				return fmt.Errorf("expected a string")
			}
			if _, err := time.Parse(time.RFC3339, str); err != nil {
				return fmt.Errorf("invalid ISO-8601 datetime")
			}
			return nil
		}
	case models.QTime:
		s.check = func(v interface{}) error {
			str, ok := v.(string)
			if !ok {
				return fmt.Errorf("expected a string")
			}
			if !timeRe.MatchString(str) {
				return fmt.Errorf("invalid time, expected HH:MM")
			}
			return nil
		}
	case models.QMultipleChoice, models.QDropdown:
		options := parseOptions(q.Options)
		s.check = func(v interface{}) error {
			str, ok := v.(string)
			if !ok {
				return fmt.Errorf("expected a string")
			}
			if len(options) == 0 {
				return nil
			}
			for _, opt := range options {
				if str == opt {
					return nil
				}
			}
			return fmt.Errorf("%q is not one of the options", str)
		}
	case models.QCheckboxes:
		s.check = checkboxCheck(q)
	case models.QFileUpload:
		s.check = fileUploadCheck
	default:
		s.check = func(interface{}) error { return nil }
	}
	return s
}

// CompileForm derives the aggregate schema for a form. Conditionally-visible
// questions compile to an always-optional passthrough: their requiredness
// depends on runtime visibility, so they are validated separately against
// the resolved visibility at submission time.
func CompileForm(questions []models.Question) map[uint]*Schema {
	out := make(map[uint]*Schema, len(questions))
	for i := range questions {
		q := &questions[i]
		if q.ConditionalLogicEnabled {
			out[q.ID] = &Schema{
				QuestionID: q.ID,
				Optional:   true,
				check:      func(interface{}) error { return nil },
			}
			continue
		}
		out[q.ID] = Compile(q)
	}
	return out
}

func textCheck(q *models.Question) func(interface{}) error {
	var re *regexp.Regexp
	if q.Pattern != "" {
		re, _ = regexp.Compile(q.Pattern)
	}
	return func(v interface{}) error {
		str, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected a string")
		}
		if q.MinLength != nil && len(str) < *q.MinLength {
			return fmt.Errorf("must be at least %d characters", *q.MinLength)
		}
		if q.MaxLength != nil && len(str) > *q.MaxLength {
			return fmt.Errorf("must be at most %d characters", *q.MaxLength)
		}
		if re != nil && !re.MatchString(str) {
			if q.PatternError != "" {
				return fmt.Errorf("%s", q.PatternError)
			}
			return fmt.Errorf("does not match the required pattern")
		}
		return nil
	}
}

func numberCheck(min, max *float64) func(interface{}) error {
	return func(v interface{}) error {
		n, ok := asNumber(v)
		if !ok {
			return fmt.Errorf("expected a number")
		}
		if min != nil && n < *min {
			return fmt.Errorf("must be at least %v", *min)
		}
		if max != nil && n > *max {
			return fmt.Errorf("must be at most %v", *max)
		}
		return nil
	}
}

func checkboxCheck(q *models.Question) func(interface{}) error {
	options := parseOptions(q.Options)
	return func(v interface{}) error {
		list, ok := asList(v)
		if !ok {
			return fmt.Errorf("expected a list of selections")
		}
		if q.MinSelections != nil && len(list) < *q.MinSelections {
			return fmt.Errorf("select at least %d options", *q.MinSelections)
		}
		if q.MaxSelections != nil && len(list) > *q.MaxSelections {
			return fmt.Errorf("select at most %d options", *q.MaxSelections)
		}
		for _, item := range list {
			str, ok := item.(string)
			if !ok {
				return fmt.Errorf("selections must be strings")
			}
			if len(options) == 0 {
				continue
			}
			found := false
			for _, opt := range options {
				if str == opt {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("%q is not one of the options", str)
			}
		}
		return nil
	}
}

func fileUploadCheck(v interface{}) error {
	m, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Errorf("expected a file descriptor")
	}
	for _, key := range []string{"fileName", "fileSize", "fileType", "fileUrl"} {
		if _, ok := m[key]; !ok {
			return fmt.Errorf("file descriptor missing %q", key)
		}
	}
	if _, ok := asNumber(m["fileSize"]); !ok {
		return fmt.Errorf("fileSize must be a number")
	}
	return nil
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func parseOptions(raw string) []string {
	if raw == "" {
		return nil
	}
	var opts []string
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return nil
	}
	return opts
}
