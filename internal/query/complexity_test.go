package query

import (
	"reflect"
	"testing"
)

func TestScoreDeterministic(t *testing.T) {
	q := "Compare the latest research on neural architecture search?"
	a := Score(q)
	b := Score(q)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("Score is not deterministic: %+v vs %+v", a, b)
	}
}

func TestScoreSimple(t *testing.T) {
	a := Score("What is the price?")
	if a.Level != LevelSimple {
		t.Fatalf("expected simple, got %s (score %d, triggers %v)", a.Level, a.Score, a.Triggers)
	}
	if !contains(a.Triggers, "basic") {
		t.Fatalf("expected basic trigger, got %v", a.Triggers)
	}
}

func TestScoreDeep(t *testing.T) {
	a := Score("Compare and contrast the research methodology and theoretical framework implications across multiple perspectives?")
	if a.Level != LevelDeep {
		t.Fatalf("expected deep, got %s (score %d)", a.Level, a.Score)
	}
	for _, want := range []string{"academic", "technical", "analytical", "multifaceted"} {
		if !contains(a.Triggers, want) {
			t.Fatalf("expected trigger %q, got %v", want, a.Triggers)
		}
	}
	if a.Score < 5 {
		t.Fatalf("expected score >= 5, got %d", a.Score)
	}
}

func TestScoreCurrentEvents(t *testing.T) {
	a := Score("latest AI research trends")
	if a.Level != LevelDeep {
		t.Fatalf("expected deep, got %s (score %d)", a.Level, a.Score)
	}
	if !contains(a.Triggers, "academic") || !contains(a.Triggers, "current") {
		t.Fatalf("unexpected triggers %v", a.Triggers)
	}
}

func TestScoreClampsAtZero(t *testing.T) {
	a := Score("price where")
	if a.Score < 0 {
		t.Fatalf("score must never be negative, got %d", a.Score)
	}
	if a.Level != LevelSimple {
		t.Fatalf("expected simple, got %s", a.Level)
	}
}

func TestScoreWordCountBonusesStack(t *testing.T) {
	short := Score("how it works now for people everywhere in big cities")                                                                                // 10 words, no bonus
	long := Score("how it works now for people everywhere in big cities and small towns and villages across many different countries of the world today") // >20 words, +3
	if long.Score <= short.Score {
		t.Fatalf("expected long query to outscore short: %d vs %d", long.Score, short.Score)
	}
}

func TestScoreMultipleQuestionMarks(t *testing.T) {
	one := Score("is it raining?")
	two := Score("is it raining? or snowing?")
	if two.Score <= one.Score {
		t.Fatalf("expected extra question mark to add a point: %d vs %d", two.Score, one.Score)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
