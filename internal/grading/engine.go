package grading

// Q is a minimal view of a question needed for grading.
type Q struct {
	ID        string
	Type      string
	Points    float64
	Correct   []string // ids of options flagged correct (choice types)
	Canonical string   // true_false and short_answer
}

// Response is one submitted answer.
type Response struct {
	QuestionID string
	Selected   []string
	Text       string
}

// Result is the outcome of grading a single response.
type Result struct {
	QuestionID string
	Selected   []string
	Text       string
	Correct    bool
	Points     float64
}

// Strategy decides whether a response is correct for one question type.
type Strategy interface {
	Correct(q Q, r Response) bool
}

type Engine struct {
	strategies map[string]Strategy
}

// NewEngine installs the built-in strategies.
func NewEngine() *Engine {
	return &Engine{
		strategies: map[string]Strategy{
			"single_choice":   choiceStrategy{},
			"multiple_choice": choiceStrategy{},
			"true_false":      trueFalseStrategy{},
			"short_answer":    shortAnswerStrategy{},
		},
	}
}

// Grade is pure: identical inputs give identical outputs. Responses whose
// question id is unknown are skipped, and each question scores at most once
// (first response wins), so the total never exceeds the sum of points.
func (e *Engine) Grade(questions []Q, responses []Response) ([]Result, float64) {
	byID := make(map[string]Q, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	graded := make(map[string]struct{}, len(responses))
	results := make([]Result, 0, len(responses))
	total := 0.0
	for _, r := range responses {
		q, ok := byID[r.QuestionID]
		if !ok {
			continue
		}
		if _, dup := graded[q.ID]; dup {
			continue
		}
		graded[q.ID] = struct{}{}

		res := Result{
			QuestionID: r.QuestionID,
			Selected:   append([]string(nil), r.Selected...),
			Text:       r.Text,
		}
		if s, ok := e.strategies[q.Type]; ok && s.Correct(q, r) {
			res.Correct = true
			res.Points = q.Points
			total += q.Points
		}
		results = append(results, res)
	}
	return results, total
}

// --- Strategies ---

// choiceStrategy: the selection set must equal the correct set exactly.
type choiceStrategy struct{}

func (choiceStrategy) Correct(q Q, r Response) bool {
	if len(r.Selected) == 0 {
		return false
	}
	return setEqual(toSet(q.Correct), toSet(r.Selected))
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Correct(q Q, r Response) bool {
	want, ok := parseBool(q.Canonical)
	if !ok {
		return false
	}
	got, ok := parseBool(r.Text)
	return ok && got == want
}

type shortAnswerStrategy struct{}

func (shortAnswerStrategy) Correct(q Q, r Response) bool {
	key := normalize(q.Canonical)
	return key != "" && key == normalize(r.Text)
}
