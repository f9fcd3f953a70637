package exam

import "testing"

func TestNormalizeRow_SnakeBeatsCamel(t *testing.T) {
	n := normalizeRow(Row{
		"question_text": "snake",
		"questionText":  "camel",
		"option_a":      "snake-a",
		"optionA":       "camel-a",
	})
	if n.Text != "snake" {
		t.Fatalf("text = %q, want snake value", n.Text)
	}
	if n.Options["A"] != "snake-a" {
		t.Fatalf("option A = %q, want snake value", n.Options["A"])
	}
}

func TestNormalizeRow_FallsThroughEmptyAliases(t *testing.T) {
	n := normalizeRow(Row{
		"question_text": "  ",
		"question":      "the question",
		"correct":       " b ",
	})
	if n.Text != "the question" {
		t.Fatalf("text = %q", n.Text)
	}
	if n.CorrectOption != "B" {
		t.Fatalf("correct = %q, want B", n.CorrectOption)
	}
}

func TestNormalizeRow_Defaults(t *testing.T) {
	n := normalizeRow(Row{"question": "q"})
	if n.Type != "MCQ" {
		t.Fatalf("type = %q, want MCQ", n.Type)
	}
	for _, k := range OptionKeys {
		if v, ok := n.Options[k]; !ok || v != "" {
			t.Fatalf("option %s = %q (present=%v), want empty string", k, v, ok)
		}
	}
	if n.CorrectOption != "" {
		t.Fatalf("correct = %q, want empty", n.CorrectOption)
	}
}

func TestNormalizeRow_BankEntryShape(t *testing.T) {
	n := normalizeRow(Row{
		"question_text":  "2+2=?",
		"option_a":       "3",
		"option_b":       "4",
		"correct_option": "b",
	})
	if n.Options["B"] != "4" {
		t.Fatalf("option B = %q, want 4", n.Options["B"])
	}
	if n.CorrectOption != "B" {
		t.Fatalf("correct = %q, want B", n.CorrectOption)
	}
}

func TestQuestionNo(t *testing.T) {
	if got := questionNo(Row{"question_no": float64(7)}, 3); got != 7 {
		t.Fatalf("explicit float no = %d, want 7", got)
	}
	if got := questionNo(Row{"questionNo": "12"}, 3); got != 12 {
		t.Fatalf("explicit string no = %d, want 12", got)
	}
	if got := questionNo(Row{"question_no": "abc"}, 3); got != 3 {
		t.Fatalf("non-numeric no = %d, want fallback 3", got)
	}
	if got := questionNo(Row{}, 5); got != 5 {
		t.Fatalf("missing no = %d, want fallback 5", got)
	}
}
