package exam

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is one uploaded question row, keyed by whatever column names the
// spreadsheet or JSON payload used.
type Row map[string]any

// Accepted aliases per canonical field, in precedence order: snake_case
// before camelCase, first non-empty value wins.
var (
	textAliases    = []string{"question_text", "questionText", "question"}
	typeAliases    = []string{"question_type", "questionType", "type"}
	correctAliases = []string{"correct_option", "correctOption", "correct"}
	noAliases      = []string{"question_no", "questionNo"}

	optionAliases = map[string][]string{
		"A": {"option_a", "optionA"},
		"B": {"option_b", "optionB"},
		"C": {"option_c", "optionC"},
		"D": {"option_d", "optionD"},
	}
)

type normalizedQuestion struct {
	Text          string
	Type          string
	Options       map[string]string
	CorrectOption string
}

func normalizeRow(r Row) normalizedQuestion {
	n := normalizedQuestion{
		Text:          fieldString(r, textAliases),
		Type:          fieldString(r, typeAliases),
		CorrectOption: strings.ToUpper(fieldString(r, correctAliases)),
		Options:       make(map[string]string, len(OptionKeys)),
	}
	if n.Type == "" {
		n.Type = "MCQ"
	}
	for _, key := range OptionKeys {
		n.Options[key] = fieldString(r, optionAliases[key])
	}
	return n
}

// questionNo returns the row's explicit question number when present and
// numeric, else the 1-based fallback.
func questionNo(r Row, fallback int) int {
	for _, k := range noAliases {
		v, ok := r[k]
		if !ok {
			continue
		}
		switch x := v.(type) {
		case float64:
			if x > 0 {
				return int(x)
			}
		case int:
			if x > 0 {
				return x
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil && n > 0 {
				return n
			}
		}
	}
	return fallback
}

func fieldString(r Row, aliases []string) string {
	for _, k := range aliases {
		v, ok := r[k]
		if !ok {
			continue
		}
		var s string
		switch x := v.(type) {
		case string:
			s = x
		case float64:
			s = strconv.FormatFloat(x, 'f', -1, 64)
		case int:
			s = strconv.Itoa(x)
		case nil:
			continue
		default:
			s = fmt.Sprintf("%v", x)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
