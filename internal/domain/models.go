package domain

import (
	"errors"
	"strings"
	"time"
)

// ChoiceKey labels one of the four answer options of a question.
type ChoiceKey string

const (
	ChoiceA ChoiceKey = "A"
	ChoiceB ChoiceKey = "B"
	ChoiceC ChoiceKey = "C"
	ChoiceD ChoiceKey = "D"
)

// ChoiceKeys is the fixed, ordered set of keys every question carries.
var ChoiceKeys = [4]ChoiceKey{ChoiceA, ChoiceB, ChoiceC, ChoiceD}

// ParseChoiceKey accepts the literal one-character labels A-D after trimming.
func ParseChoiceKey(raw string) (ChoiceKey, bool) {
	key := ChoiceKey(strings.TrimSpace(raw))
	for _, k := range ChoiceKeys {
		if k == key {
			return k, true
		}
	}
	return "", false
}

// User is read-only to the quiz core; accounts are provisioned out of band.
type User struct {
	ID           string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

// Name returns the display name, falling back to the identifier.
func (u User) Name() string {
	if strings.TrimSpace(u.DisplayName) == "" {
		return u.ID
	}
	return u.DisplayName
}

// Identity is the authenticated session user handed to every service call.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// Chapter is a named quiz set. It never changes after creation.
type Chapter struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// QuestionDraft is one author-entered question. Options are indexed in ChoiceKeys order.
type QuestionDraft struct {
	Text    string
	Options [4]string
	Correct string
}

// Option returns the option text stored under key.
func (d QuestionDraft) Option(key ChoiceKey) string {
	for i, k := range ChoiceKeys {
		if k == key {
			return d.Options[i]
		}
	}
	return ""
}

// Normalized returns a copy with every field trimmed.
func (d QuestionDraft) Normalized() QuestionDraft {
	out := QuestionDraft{
		Text:    strings.TrimSpace(d.Text),
		Correct: strings.TrimSpace(d.Correct),
	}
	for i, opt := range d.Options {
		out.Options[i] = strings.TrimSpace(opt)
	}
	return out
}

// Validate checks a single draft; index is its 0-based position in the chapter.
func (d QuestionDraft) Validate(index int) error {
	n := d.Normalized()
	if n.Text == "" {
		return invalidQuestion(index, "question text is required")
	}
	for i, opt := range n.Options {
		if opt == "" {
			return invalidQuestion(index, "option "+string(ChoiceKeys[i])+" is required")
		}
	}
	if _, ok := ParseChoiceKey(n.Correct); !ok {
		return invalidQuestion(index, "correct choice must be one of A, B, C, D")
	}
	return nil
}

// ChapterDraft is the full authoring input for one chapter.
type ChapterDraft struct {
	Title       string
	Description string
	Questions   []QuestionDraft
}

// Normalized trims the title, description and every question draft.
func (d ChapterDraft) Normalized() ChapterDraft {
	out := ChapterDraft{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Questions:   make([]QuestionDraft, len(d.Questions)),
	}
	for i, q := range d.Questions {
		out.Questions[i] = q.Normalized()
	}
	return out
}

// Validate checks the whole draft before anything is written.
func (d ChapterDraft) Validate() error {
	n := d.Normalized()
	if n.Title == "" || len(n.Questions) == 0 {
		return &ValidationError{
			Kind:        ValidationMissingFields,
			Index:       -1,
			Reason:      "a chapter title and at least one question are required",
			Title:       n.Title,
			Description: n.Description,
		}
	}
	for i, q := range n.Questions {
		if err := q.Validate(i); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				verr.Title = n.Title
				verr.Description = n.Description
			}
			return err
		}
	}
	return nil
}

// QuizRow is one choice of one question as read for delivery. Correctness is never included.
type QuizRow struct {
	QuestionID   int64
	QuestionText string
	Key          ChoiceKey
	ChoiceText   string
}

// QuizChoice is a presentable answer option.
type QuizChoice struct {
	Key  ChoiceKey `json:"key"`
	Text string    `json:"text"`
}

// QuizQuestion groups a question with its ordered choices.
type QuizQuestion struct {
	ID      int64        `json:"id"`
	Text    string       `json:"text"`
	Choices []QuizChoice `json:"choices"`
}

// Quiz is the delivery payload for a chapter.
type Quiz struct {
	Chapter   Chapter        `json:"chapter"`
	Questions []QuizQuestion `json:"questions"`
}

// AnswerKey is the correct choice of a single question.
type AnswerKey struct {
	QuestionID int64     `json:"questionId"`
	Correct    ChoiceKey `json:"correct"`
}

// AnswerSheet maps question ids to the submitted choice keys.
type AnswerSheet map[int64]ChoiceKey

// ScoreRecord is the best result of one user in one chapter.
type ScoreRecord struct {
	ChapterID    int64
	UserID       string
	CorrectCount int
	UpdatedAt    time.Time
}

// RankingEntry is one leaderboard line.
type RankingEntry struct {
	Rank         int       `json:"rank"`
	UserID       string    `json:"userId"`
	DisplayName  string    `json:"displayName"`
	CorrectCount int       `json:"correctCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Ranking captures the ordered leaderboard for a chapter.
type Ranking struct {
	Chapter Chapter        `json:"chapter"`
	Entries []RankingEntry `json:"entries"`
}
