package quiz

import "strings"

// normalizeAnswers coerces each answer to the shape its question type grades:
// a lone text value on a choice question becomes a selection, and a single
// selection on a true/false or short-answer question becomes text.
func normalizeAnswers(qs []Question, answers []Answer) []Answer {
	types := make(map[string]QuestionType, len(qs))
	for _, q := range qs {
		types[q.ID] = q.Type
	}
	out := make([]Answer, len(answers))
	for i, a := range answers {
		switch t := types[a.QuestionID]; {
		case t.IsChoice() && len(a.Selected) == 0 && strings.TrimSpace(a.Text) != "":
			a.Selected = splitSelection(a.Text, t)
			a.Text = ""
		case (t == TrueFalse || t == ShortAnswer) && a.Text == "" && len(a.Selected) == 1:
			a.Text = a.Selected[0]
			a.Selected = nil
		}
		out[i] = a
	}
	return out
}

func splitSelection(s string, t QuestionType) []string {
	if t == SingleChoice {
		return []string{strings.TrimSpace(s)}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
