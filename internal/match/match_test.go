package match

import (
	"errors"
	"strings"
	"testing"

	"github.com/flemzord/tdsta/internal/knowledge"
)

func ptr(s string) *string { return &s }

func TestMatch_Examples(t *testing.T) {
	t.Parallel()

	store := knowledge.DefaultStore()

	tests := []struct {
		question  string
		wantTopic string
		wantLinks int
	}{
		{"Should I use gpt-4o-mini which AI proxy supports, or gpt3.5 turbo?", "gpt_models", 2},
		{"If a student scores 10/10 on GA4 as well as a bonus, how would it appear on the dashboard?", "ga4_dashboard", 1},
		{"I know Docker but have not used Podman before. Should I use Docker for this course?", "docker_podman", 1},
		{"When is the TDS Sep 2025 end-term exam?", "future_exams", 0},
		{"What is the meaning of life?", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			t.Parallel()

			got, err := Match(ptr(tt.question), store)
			if err != nil {
				t.Fatalf("Match: %v", err)
			}
			if got.TopicID != tt.wantTopic {
				t.Errorf("topic = %q, want %q", got.TopicID, tt.wantTopic)
			}
			if got.Matched != (tt.wantTopic != "") {
				t.Errorf("Matched = %v", got.Matched)
			}
			if len(got.Links) != tt.wantLinks {
				t.Errorf("links = %d, want %d", len(got.Links), tt.wantLinks)
			}
		})
	}
}

func TestMatch_GPTAnswer(t *testing.T) {
	t.Parallel()

	got := Text("Should I use gpt-4o-mini which AI proxy supports, or gpt3.5 turbo?", knowledge.DefaultStore())
	if !strings.Contains(got.Answer, "gpt-3.5-turbo-0125") {
		t.Errorf("answer = %q, want it to mention gpt-3.5-turbo-0125", got.Answer)
	}
}

func TestMatch_EarlierTopicWins(t *testing.T) {
	t.Parallel()

	// "docker" belongs to docker_podman, "dashboard" to ga4_dashboard which
	// is declared first.
	got := Text("Can I see docker usage on the dashboard?", knowledge.DefaultStore())
	if got.TopicID != "ga4_dashboard" {
		t.Errorf("topic = %q, want ga4_dashboard", got.TopicID)
	}

	// "course" (docker_podman) shadows future_exams.
	got = Text("When is the end-term exam for this course?", knowledge.DefaultStore())
	if got.TopicID != "docker_podman" {
		t.Errorf("topic = %q, want docker_podman", got.TopicID)
	}
}

func TestMatch_ReorderingChangesWinner(t *testing.T) {
	t.Parallel()

	a := knowledge.TopicEntry{ID: "a", Patterns: []string{"alpha"}, Answer: "A"}
	b := knowledge.TopicEntry{ID: "b", Patterns: []string{"beta"}, Answer: "B"}
	question := "alpha and beta"

	ab, _ := knowledge.NewStore([]knowledge.TopicEntry{a, b})
	ba, _ := knowledge.NewStore([]knowledge.TopicEntry{b, a})

	if got := Text(question, ab).TopicID; got != "a" {
		t.Errorf("[a b] winner = %q, want a", got)
	}
	if got := Text(question, ba).TopicID; got != "b" {
		t.Errorf("[b a] winner = %q, want b", got)
	}
}

func TestMatch_PatternCaseInsensitive(t *testing.T) {
	t.Parallel()

	store, err := knowledge.NewStore([]knowledge.TopicEntry{{ID: "x", Patterns: []string{"OpenAI API"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := Text("how do I call the openai api?", store); !got.Matched {
		t.Error("mixed-case pattern should match lowercase question")
	}
}

func TestMatch_InvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := Match(nil, knowledge.DefaultStore()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil question: err = %v, want ErrInvalidInput", err)
	}
	if _, err := Match(ptr("docker"), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil store: err = %v, want ErrInvalidInput", err)
	}
}

func TestMatch_EmptyQuestion(t *testing.T) {
	t.Parallel()

	got, err := Match(ptr(""), knowledge.DefaultStore())
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got.Matched {
		t.Errorf("empty question matched %q", got.TopicID)
	}
}

func TestMatch_LinksAreCopies(t *testing.T) {
	t.Parallel()

	store := knowledge.DefaultStore()
	got := Text("docker", store)
	got.Links[0].URL = "https://mutated"

	if again := Text("docker", store); again.Links[0].URL == "https://mutated" {
		t.Error("result links must not alias the store")
	}
}
