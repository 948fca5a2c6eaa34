package markdown

import (
	"strings"
	"testing"

	"chess-story-service/internal/domain"
)

const storyDoc = `---
id: 01-introduction
title: Welcome to Chess
nextStory: 02-the-pieces
keyConcepts:
  - The board has 64 squares
chapters:
  - id: 01-the-board
    title: Le plateau de jeu
    chessPosition: startpos
  - id: 02-first-moves
    question:
      type: move-selection
      prompt: Play a pawn forward.
      correctAnswer:
        - e2e4
        - d2d4
      explanation: Pawns may advance two squares on their first move.
      initialPosition: start
  - id: 03-no-heading
---

Intro text before the first heading belongs to no chapter.

## The Board

Soixante-quatre cases, moitié claires, moitié foncées.

## Premiers coups

Les blancs jouent toujours en premier.
`

func TestParseStoryResolvesChapters(t *testing.T) {
	story, err := ParseStory(storyDoc)
	if err != nil {
		t.Fatalf("parse story: %v", err)
	}

	if story.ID != "01-introduction" || story.Title != "Welcome to Chess" {
		t.Fatalf("unexpected story metadata: %+v", story)
	}
	if story.NextStory != "02-the-pieces" {
		t.Fatalf("expected nextStory link, got %q", story.NextStory)
	}
	if len(story.KeyConcepts) != 1 {
		t.Fatalf("expected key concepts, got %v", story.KeyConcepts)
	}
	if len(story.Chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %d", len(story.Chapters))
	}

	for i, chapter := range story.Chapters {
		if chapter.ChapterNumber != i+1 {
			t.Fatalf("chapter %d has number %d", i, chapter.ChapterNumber)
		}
		if chapter.StoryID != "01-introduction" {
			t.Fatalf("chapter %d has storyId %q", i, chapter.StoryID)
		}
	}

	// Explicit metadata title beats the heading.
	if story.Chapters[0].Title != "Le plateau de jeu" {
		t.Fatalf("expected explicit title, got %q", story.Chapters[0].Title)
	}
	// No metadata title: first heading of the chapter's own slice.
	if story.Chapters[1].Title != "Premiers coups" {
		t.Fatalf("expected heading title, got %q", story.Chapters[1].Title)
	}
	// Neither: positional fallback.
	if story.Chapters[2].Title != "Chapter 3" {
		t.Fatalf("expected fallback title, got %q", story.Chapters[2].Title)
	}

	if !strings.HasPrefix(story.Chapters[0].Content, "## The Board") {
		t.Fatalf("slice must start at its heading: %q", story.Chapters[0].Content)
	}
	if !strings.Contains(story.Chapters[0].Content, "moitié foncées") {
		t.Fatalf("accented content corrupted: %q", story.Chapters[0].Content)
	}
	if strings.Contains(story.Chapters[0].Content, "Premiers coups") {
		t.Fatalf("slice leaked into next chapter: %q", story.Chapters[0].Content)
	}
	if story.Chapters[2].Content != "" {
		t.Fatalf("chapter without a slice must have empty content, got %q", story.Chapters[2].Content)
	}

	if story.Chapters[0].ChessPosition != domain.StartingPositionFEN {
		t.Fatalf("startpos not expanded: %q", story.Chapters[0].ChessPosition)
	}

	question := story.Chapters[1].Question
	if question == nil {
		t.Fatalf("expected question on chapter 2")
	}
	if question.Type != domain.QuestionMoveSelection {
		t.Fatalf("unexpected question type %q", question.Type)
	}
	if len(question.CorrectAnswer) != 2 || question.CorrectAnswer[0] != "e2e4" {
		t.Fatalf("expected answer list, got %v", question.CorrectAnswer)
	}
	if question.InitialPosition != domain.StartingPositionFEN {
		t.Fatalf("start keyword not expanded: %q", question.InitialPosition)
	}
}

func TestParseStoryScalarAnswerNormalizesToList(t *testing.T) {
	doc := `---
id: s1
title: T
chapters:
  - id: c1
    question:
      type: multiple-choice
      prompt: Pick one.
      options:
        - a
        - b
      correctAnswer: b
      explanation: Because.
---
## One
`
	story, err := ParseStory(doc)
	if err != nil {
		t.Fatalf("parse story: %v", err)
	}
	answers := story.Chapters[0].Question.CorrectAnswer
	if len(answers) != 1 || answers[0] != "b" {
		t.Fatalf("expected single-element list, got %v", answers)
	}
}

func TestParseStoryMissingRequiredFields(t *testing.T) {
	for _, doc := range []string{
		"---\ntitle: T\nchapters:\n  - id: c1\n---\nbody",
		"---\nid: s1\nchapters:\n  - id: c1\n---\nbody",
		"---\nid: s1\ntitle: T\n---\nbody",
		"no frontmatter at all",
	} {
		_, err := ParseStory(doc)
		if err == nil {
			t.Fatalf("expected validation error for %q", doc)
		}
		if !domain.IsValidationError(err) {
			t.Fatalf("expected ValidationError, got %T", err)
		}
		if !strings.Contains(err.Error(), "must include id, title, and chapters") {
			t.Fatalf("unexpected message: %v", err)
		}
	}
}

func TestParseStoryBodyWithoutHeadings(t *testing.T) {
	doc := `---
id: s1
title: T
chapters:
  - id: c1
  - id: c2
---

All of this text is chapter one. There are no second-level headings.
`
	story, err := ParseStory(doc)
	if err != nil {
		t.Fatalf("parse story: %v", err)
	}
	if !strings.HasPrefix(story.Chapters[0].Content, "All of this text") {
		t.Fatalf("expected whole body as first slice, got %q", story.Chapters[0].Content)
	}
	if story.Chapters[0].Title != "Chapter 1" {
		t.Fatalf("expected fallback title, got %q", story.Chapters[0].Title)
	}
	if story.Chapters[1].Content != "" {
		t.Fatalf("expected empty content for chapter 2, got %q", story.Chapters[1].Content)
	}
}

func TestParseChapterAppliesFallbacks(t *testing.T) {
	chapter := ParseChapter("Just body text.\n", "01-introduction", "02-first-moves")

	if chapter.ID != "02-first-moves" || chapter.StoryID != "01-introduction" {
		t.Fatalf("expected ids from caller, got %+v", chapter)
	}
	if chapter.Title != "Chapter" || chapter.ChapterNumber != 1 {
		t.Fatalf("expected default title/number, got %+v", chapter)
	}
	if chapter.Content != "Just body text.\n" {
		t.Fatalf("unexpected content: %q", chapter.Content)
	}
}

func TestParseChapterReadsFrontmatter(t *testing.T) {
	doc := `---
id: 03-castling
title: Castling
chapterNumber: 3
storyId: 02-the-pieces
chessPosition: startpos
question:
  type: move-based
  prompt: Castle kingside.
  correctAnswer: e1g1
  explanation: Short castling tucks the king away.
---
## Castling

The king and rook move together.
`
	chapter := ParseChapter(doc, "ignored", "ignored")

	if chapter.ID != "03-castling" || chapter.StoryID != "02-the-pieces" || chapter.ChapterNumber != 3 {
		t.Fatalf("unexpected chapter metadata: %+v", chapter)
	}
	if chapter.ChessPosition != domain.StartingPositionFEN {
		t.Fatalf("startpos not expanded: %q", chapter.ChessPosition)
	}
	if chapter.Question == nil || chapter.Question.CorrectAnswer[0] != "e1g1" {
		t.Fatalf("question not decoded: %+v", chapter.Question)
	}
}

func TestExpandPosition(t *testing.T) {
	if ExpandPosition("startpos") != domain.StartingPositionFEN {
		t.Fatalf("startpos should expand")
	}
	if ExpandPosition("start") != domain.StartingPositionFEN {
		t.Fatalf("start should expand")
	}
	custom := "8/8/8/4k3/8/8/4K3/4R3 w - - 0 1"
	if ExpandPosition(custom) != custom {
		t.Fatalf("FEN must pass through unchanged")
	}
	if ExpandPosition("") != "" {
		t.Fatalf("absent stays absent")
	}
}
