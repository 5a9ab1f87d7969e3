package narrative

import (
	"strings"
	"testing"
	"time"
)

func TestBuildPrompt_Deterministic(t *testing.T) {
	b := Briefing{
		RunID: "run-1",
		Placements: []PlacementSummary{{
			RequestID:  "req-001",
			RecipeName: "Strawberry Yogurt",
			Line:       "line-1",
			Start:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			End:        time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC),
			Additives:  []AdditiveUse{{Name: "strawberry-puree", Amount: "100 g"}},
		}},
		Infeasible: []ShortfallSummary{{
			RequestID: "req-002",
			Reason:    "InsufficientAdditive",
			Detail:    "short 50 g of strawberry-puree",
		}},
	}

	first := BuildPrompt(b)
	second := BuildPrompt(b)
	if first != second {
		t.Error("identical briefings produced different prompts")
	}

	for _, want := range []string{
		"run-1",
		"req-001: Strawberry Yogurt on line-1",
		"reserves 100 g of strawberry-puree",
		"req-002: InsufficientAdditive (short 50 g of strawberry-puree)",
	} {
		if !strings.Contains(first, want) {
			t.Errorf("prompt missing %q\nprompt:\n%s", want, first)
		}
	}
}

func TestBuildPrompt_EmptyRun(t *testing.T) {
	prompt := BuildPrompt(Briefing{RunID: "run-2"})
	if !strings.Contains(prompt, "(none)") {
		t.Errorf("empty run prompt should mark empty sections:\n%s", prompt)
	}
}
