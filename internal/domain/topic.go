package domain

// Option is a possible answer for a bank question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is one slot of a topic's question bank. Questions are addressed
// by their position in the bank, which matches the players' question index.
type Question struct {
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

// TopicBank is the server-side question set for a topic. When a bank is
// available the server grades submissions itself instead of trusting the
// client's correctness claim.
type TopicBank struct {
	Topic     string     `json:"topic"`
	Subtopic  string     `json:"subtopic,omitempty"`
	Questions []Question `json:"questions"`
}

// Grade resolves whether the chosen option answers the question correctly.
func (b TopicBank) Grade(questionIndex int, optionID string) (bool, error) {
	if questionIndex < 0 || questionIndex >= len(b.Questions) {
		return false, ErrQuestionNotFound
	}
	for _, opt := range b.Questions[questionIndex].Options {
		if opt.ID == optionID {
			return opt.Correct, nil
		}
	}
	return false, ErrOptionNotFound
}
