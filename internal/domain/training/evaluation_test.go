package training

import "testing"

func TestEvaluationState(t *testing.T) {
	cases := []struct {
		eval *Evaluation
		want EvaluationState
	}{
		{&Evaluation{Active: true}, EvaluationDraft},
		{&Evaluation{Active: true, Finalised: true}, EvaluationFinalised},
		{&Evaluation{Active: false, Finalised: true}, EvaluationSuperseded},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := tc.eval.State(); got != tc.want {
			t.Fatalf("State(%+v): want=%q got=%q", tc.eval, tc.want, got)
		}
	}
}

func TestItemTypeValid(t *testing.T) {
	for _, it := range ItemTypes {
		if !it.Valid() {
			t.Fatalf("%q should be valid", it)
		}
	}
	if ItemType("richtext").Valid() {
		t.Fatalf("unknown type reported valid")
	}
}
