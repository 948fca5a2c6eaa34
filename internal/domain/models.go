package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// StartingPositionFEN is the standard initial chess position. The keywords
// "startpos" and "start" in authored content expand to this string.
const StartingPositionFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Question types supported by authored content.
const (
	QuestionMultipleChoice = "multiple-choice"
	QuestionMoveSelection  = "move-selection"
	QuestionMoveBased      = "move-based"
)

// AnswerSet holds the accepted answers for a question. Authors may write a
// single string or a list; both decode to a list.
type AnswerSet []string

func (a *AnswerSet) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*a = AnswerSet{single}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*a = AnswerSet(many)
		return nil
	default:
		return fmt.Errorf("correctAnswer must be a string or a list of strings")
	}
}

func (a *AnswerSet) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = AnswerSet{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*a = AnswerSet(many)
	return nil
}

// Contains reports whether answer is one of the accepted strings.
// Case-sensitive, exact match.
func (a AnswerSet) Contains(answer string) bool {
	for _, accepted := range a {
		if accepted == answer {
			return true
		}
	}
	return false
}

// QuestionMetadata describes a quiz question attached to a chapter.
type QuestionMetadata struct {
	Type            string    `yaml:"type" json:"type"`
	Prompt          string    `yaml:"prompt" json:"prompt"`
	Options         []string  `yaml:"options,omitempty" json:"options,omitempty"`
	CorrectAnswer   AnswerSet `yaml:"correctAnswer" json:"correctAnswer"`
	Explanation     string    `yaml:"explanation" json:"explanation"`
	InitialPosition string    `yaml:"initialPosition,omitempty" json:"initialPosition,omitempty"`
}

// Renderable reports whether the question carries enough data to show.
// A multiple-choice question without options degrades to "no question"
// rather than failing the parse.
func (q QuestionMetadata) Renderable() bool {
	if q.Type == QuestionMultipleChoice {
		return len(q.Options) > 0
	}
	return true
}

// ChapterMetadata is the per-chapter front-matter block inside a story file.
type ChapterMetadata struct {
	ID            string            `yaml:"id" json:"id"`
	Title         string            `yaml:"title,omitempty" json:"title,omitempty"`
	Image         string            `yaml:"image,omitempty" json:"image,omitempty"`
	ChessPosition string            `yaml:"chessPosition,omitempty" json:"chessPosition,omitempty"`
	Question      *QuestionMetadata `yaml:"question,omitempty" json:"question,omitempty"`
}

// StoryFrontmatter is the metadata block of a story document. The order of
// Chapters is semantic: it defines chapter numbering and traversal order.
type StoryFrontmatter struct {
	ID            string            `yaml:"id" json:"id"`
	Title         string            `yaml:"title" json:"title"`
	Chapters      []ChapterMetadata `yaml:"chapters" json:"chapters"`
	PreviousStory string            `yaml:"previousStory,omitempty" json:"previousStory,omitempty"`
	NextStory     string            `yaml:"nextStory,omitempty" json:"nextStory,omitempty"`
	KeyConcepts   []string          `yaml:"keyConcepts,omitempty" json:"keyConcepts,omitempty"`
}

// ChapterData is a fully resolved chapter: metadata joined with its content
// slice, title precedence applied, and position keywords expanded.
type ChapterData struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	ChapterNumber int               `json:"chapterNumber"`
	StoryID       string            `json:"storyId"`
	Content       string            `json:"content"`
	Question      *QuestionMetadata `json:"question,omitempty"`
	ChessPosition string            `json:"chessPosition,omitempty"`
	Image         string            `json:"image,omitempty"`
}

// Story is a fully resolved story document.
type Story struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Chapters      []ChapterData `json:"chapters"`
	PreviousStory string        `json:"previousStory,omitempty"`
	NextStory     string        `json:"nextStory,omitempty"`
	KeyConcepts   []string      `json:"keyConcepts,omitempty"`
}

// Chapter returns the chapter with the given id.
func (s Story) Chapter(chapterID string) (ChapterData, bool) {
	for _, chapter := range s.Chapters {
		if chapter.ID == chapterID {
			return chapter, true
		}
	}
	return ChapterData{}, false
}

// ChapterTitle is the lightweight id/title pair carried by the index.
type ChapterTitle struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// StoryIndexEntry is the cross-story navigation record: ids, titles and
// story linkage, without chapter bodies.
type StoryIndexEntry struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Chapters      []ChapterTitle `json:"chapters"`
	PreviousStory string         `json:"previousStory,omitempty"`
	NextStory     string         `json:"nextStory,omitempty"`
	KeyConcepts   []string       `json:"keyConcepts,omitempty"`
}

// StoryIndex is the full catalog in authored order. Authored order plus the
// explicit previousStory/nextStory links define the learning path; entries
// are never re-sorted.
type StoryIndex []StoryIndexEntry

// Entry returns the index entry for a story id.
func (idx StoryIndex) Entry(storyID string) (StoryIndexEntry, bool) {
	for _, entry := range idx {
		if entry.ID == storyID {
			return entry, true
		}
	}
	return StoryIndexEntry{}, false
}

// IndexEntry derives the lightweight index record for a parsed story.
func (s Story) IndexEntry() StoryIndexEntry {
	chapters := make([]ChapterTitle, len(s.Chapters))
	for i, chapter := range s.Chapters {
		chapters[i] = ChapterTitle{ID: chapter.ID, Title: chapter.Title}
	}
	return StoryIndexEntry{
		ID:            s.ID,
		Title:         s.Title,
		Chapters:      chapters,
		PreviousStory: s.PreviousStory,
		NextStory:     s.NextStory,
		KeyConcepts:   s.KeyConcepts,
	}
}

// ChapterRef addresses one chapter across the whole corpus.
type ChapterRef struct {
	StoryID   string `json:"storyId"`
	ChapterID string `json:"chapterId"`
}

// ProgressSnapshot is an observer-facing view of learner progress.
// CompletedChapters holds composite "<storyId>-<chapterId>" keys.
type ProgressSnapshot struct {
	CompletedChapters []string `json:"completedChapters"`
	CurrentStory      string   `json:"currentStory,omitempty"`
	CurrentChapter    string   `json:"currentChapter,omitempty"`
}

// QuestionState is the transient state of the in-progress question.
type QuestionState struct {
	SelectedAnswer *string `json:"selectedAnswer"`
	IsCorrect      *bool   `json:"isCorrect"`
	Submitted      bool    `json:"submitted"`
}

// StoryStats counts question attempts per story, repeats included.
type StoryStats struct {
	TotalQuestions int `json:"totalQuestions"`
	CorrectAnswers int `json:"correctAnswers"`
}

// BoardSnapshot is the display state of the chessboard.
type BoardSnapshot struct {
	Position       string `json:"position"`
	SelectedSquare string `json:"selectedSquare,omitempty"`
	Interactive    bool   `json:"interactive"`
}
