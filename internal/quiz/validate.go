package quiz

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const pointsEpsilon = 1e-9

var (
	validateOnce sync.Once
	validate     *validator.Validate
	translator   ut.Translator
)

func initValidator() {
	validateOnce.Do(func() {
		locale := en.New()
		translator, _ = ut.New(locale, locale).GetTranslator("en")

		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = en_translations.RegisterDefaultTranslations(validate, translator)

		// Report json names, not Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// SumPoints adds up question points.
func SumPoints(qs []Question) float64 {
	total := 0.0
	for _, q := range qs {
		total += q.Points
	}
	return total
}

// Validate checks the quiz struct tags, the per-type question shapes and the
// total-points invariant.
func Validate(q Quiz) error {
	initValidator()

	var fields []FieldError
	if err := validate.Struct(q); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return NewValidationError(err.Error())
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   trimNamespace(fe.Namespace()),
				Message: fe.Translate(translator),
			})
		}
	}

	seen := make(map[string]struct{}, len(q.Questions))
	for i, qu := range q.Questions {
		prefix := fmt.Sprintf("questions[%d]", i)
		if qu.ID != "" {
			if _, dup := seen[qu.ID]; dup {
				fields = append(fields, FieldError{Field: prefix + ".id", Message: "duplicate question id " + qu.ID})
			}
			seen[qu.ID] = struct{}{}
		}
		fields = append(fields, questionShape(prefix, qu)...)
	}

	if len(q.Questions) > 0 && math.Abs(SumPoints(q.Questions)-q.TotalPoints) > pointsEpsilon {
		fields = append(fields, FieldError{
			Field:   "total_points",
			Message: fmt.Sprintf("total_points %.2f does not match question sum %.2f", q.TotalPoints, SumPoints(q.Questions)),
		})
	}

	if len(fields) > 0 {
		return NewValidationError("invalid quiz", fields...)
	}
	return nil
}

// questionShape enforces that exactly the fields relevant to the type are populated.
func questionShape(prefix string, q Question) []FieldError {
	var out []FieldError
	add := func(field, msg string) {
		out = append(out, FieldError{Field: prefix + field, Message: msg})
	}

	switch q.Type {
	case SingleChoice, MultipleChoice:
		if len(q.Options) < 2 {
			add(".options", "choice questions need at least two options")
		}
		if q.CanonicalAnswer != "" {
			add(".canonical_answer", "must be empty for choice questions")
		}
		ids := make(map[string]struct{}, len(q.Options))
		correct := 0
		for _, o := range q.Options {
			if _, dup := ids[o.ID]; dup && o.ID != "" {
				add(".options", "duplicate option id "+o.ID)
			}
			ids[o.ID] = struct{}{}
			if o.IsCorrect {
				correct++
			}
		}
		if q.Type == SingleChoice && correct != 1 {
			add(".options", "single_choice needs exactly one correct option")
		}
		if q.Type == MultipleChoice && correct < 1 {
			add(".options", "multiple_choice needs at least one correct option")
		}
	case TrueFalse:
		if len(q.Options) > 0 {
			add(".options", "must be empty for true_false")
		}
		if _, ok := parseBool(q.CanonicalAnswer); !ok {
			add(".canonical_answer", `must be "true" or "false"`)
		}
	case ShortAnswer:
		if len(q.Options) > 0 {
			add(".options", "must be empty for short_answer")
		}
		if strings.TrimSpace(q.CanonicalAnswer) == "" {
			add(".canonical_answer", "is required for short_answer")
		}
	}
	return out
}

// ValidateAnswers rejects malformed answer shapes before grading.
func ValidateAnswers(answers []Answer) error {
	var fields []FieldError
	for i, a := range answers {
		prefix := fmt.Sprintf("answers[%d]", i)
		if strings.TrimSpace(a.QuestionID) == "" {
			fields = append(fields, FieldError{Field: prefix + ".question_id", Message: "question_id is a required field"})
		}
		if len(a.Selected) > 0 && a.Text != "" {
			fields = append(fields, FieldError{Field: prefix, Message: "set either selected or text, not both"})
		}
	}
	if len(fields) > 0 {
		return NewValidationError("invalid answers", fields...)
	}
	return nil
}

func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
