package knowledge

const (
	forumThreadGA5Q8 = "https://discourse.onlinedegree.iitm.ac.in/t/ga5-question-8-clarification/155939"
	forumThreadGA4   = "https://discourse.onlinedegree.iitm.ac.in/t/ga4-data-sourcing-discussion-thread-tds-jan-2025/165959"
)

// DefaultEntries returns the built-in course topics in their canonical order.
// The order matters: "docker_podman" claims the generic "course" pattern, so
// any topic declared after it loses questions that mention the course.
func DefaultEntries() []TopicEntry {
	return []TopicEntry{
		{
			ID:       "gpt_models",
			Patterns: []string{"gpt-3.5-turbo", "gpt-4o-mini", "ai-proxy", "openai api"},
			Answer:   "You must use `gpt-3.5-turbo-0125`, even if the AI Proxy only supports `gpt-4o-mini`. Use the OpenAI API directly for this question.",
			Links: []Link{
				{
					URL:  forumThreadGA5Q8 + "/4",
					Text: "Use the model that's mentioned in the question.",
				},
				{
					URL:  forumThreadGA5Q8 + "/3",
					Text: "My understanding is that you just have to use a tokenizer, similar to what Prof. Anand used, to get the number of tokens and multiply that by the given rate.",
				},
			},
		},
		{
			ID:       "ga4_dashboard",
			Patterns: []string{"ga4", "dashboard", "bonus", "10/10", "110"},
			Answer:   `If a student scores 10/10 on GA4 as well as a bonus, it would appear as "110" on the dashboard. The system shows the base score plus bonus points as a combined display.`,
			Links: []Link{
				{
					URL:  forumThreadGA4 + "/388",
					Text: "GA4 dashboard scoring explanation with bonus points display.",
				},
			},
		},
		{
			ID:       "docker_podman",
			Patterns: []string{"docker", "podman", "container", "course"},
			Answer:   "While you know Docker and haven't used Podman before, I recommend using Podman for this course as it's the preferred containerization tool. However, Docker is also acceptable and will work fine for the course requirements.",
			Links: []Link{
				{
					URL:  "https://tds.s-anand.net/#/docker",
					Text: "TDS course container tools documentation.",
				},
			},
		},
		{
			ID:       "future_exams",
			Patterns: []string{"tds sep 2025", "end-term exam", "september 2025"},
			Answer:   "I don't have information about the TDS Sep 2025 end-term exam date as this information is not available yet. Please check the official course announcements or contact the course administrators for future exam schedules.",
			Links:    []Link{},
		},
	}
}

// DefaultStore builds a Store from DefaultEntries.
func DefaultStore() *Store {
	s, err := NewStore(DefaultEntries())
	if err != nil {
		panic("knowledge: built-in topics are invalid: " + err.Error())
	}
	return s
}
