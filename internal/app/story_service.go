package app

import (
	"context"
	"fmt"
	"log"

	"chess-story-service/internal/domain"
	"chess-story-service/internal/navigation"
)

// StoryRepository loads parsed story content and the cross-story index
// (from cache/backing store).
type StoryRepository interface {
	GetStory(ctx context.Context, storyID string) (domain.Story, error)
	GetIndex(ctx context.Context) (domain.StoryIndex, error)
}

// ChapterProvider is implemented by repositories whose backing store keeps
// chapters split out into their own files.
type ChapterProvider interface {
	GetChapter(ctx context.Context, storyID, chapterID string) (domain.ChapterData, error)
}

// StoryService contains the chapter-viewing use cases: loading chapters with
// their side effects, answering questions, and navigating the learning path.
// Each learner session gets its own StoryService, so the observable state
// containers for progress, question state and the board are private to that
// learner; only the content repository behind the service is shared.
type StoryService struct {
	stories   StoryRepository
	engine    MoveEngine
	progress  *ProgressTracker
	questions *QuestionTracker
	board     *BoardState
}

// NewStoryService wires a service around a content repository. engine may be
// nil; post-move positions are then omitted.
func NewStoryService(stories StoryRepository, engine MoveEngine) *StoryService {
	return &StoryService{
		stories:   stories,
		engine:    engine,
		progress:  NewProgressTracker(),
		questions: NewQuestionTracker(),
		board:     NewBoardState(),
	}
}

func (s *StoryService) Progress() *ProgressTracker  { return s.progress }
func (s *StoryService) Questions() *QuestionTracker { return s.questions }
func (s *StoryService) Board() *BoardState          { return s.board }

// StoryIndex loads the navigation catalog. Index loading is best-effort: any
// failure degrades to an empty index with a logged diagnostic, never an error
// to the caller. Navigation then simply has nothing to offer.
func (s *StoryService) StoryIndex(ctx context.Context) domain.StoryIndex {
	index, err := s.stories.GetIndex(ctx)
	if err != nil {
		log.Printf("app: story index load failed, navigation unavailable: %v", err)
		return domain.StoryIndex{}
	}
	return index
}

// LoadChapter loads a chapter without touching any shared state. Load
// failures surface to the caller; unlike the index, a chapter the learner
// asked for must report its error. A chapter missing from the story body is
// retried against the one-file-per-chapter layout when the repository
// supports it.
func (s *StoryService) LoadChapter(ctx context.Context, storyID, chapterID string) (domain.ChapterData, error) {
	story, err := s.stories.GetStory(ctx, storyID)
	if err != nil {
		return domain.ChapterData{}, fmt.Errorf("load chapter %s/%s: %w", storyID, chapterID, err)
	}
	chapter, ok := story.Chapter(chapterID)
	if !ok {
		if provider, ok := s.stories.(ChapterProvider); ok {
			if chapter, err := provider.GetChapter(ctx, storyID, chapterID); err == nil {
				return chapter, nil
			}
		}
		return domain.ChapterData{}, fmt.Errorf("load chapter %s/%s: %w", storyID, chapterID, domain.ErrChapterNotFound)
	}
	return chapter, nil
}

// ViewChapter applies the chapter-viewing side effects: the current position
// is overwritten, the question state is reset so nothing carries over from
// the previous chapter, and the board shows the chapter's position. Callers
// racing concurrent loads must drop stale results before calling this
// (last request wins), or an old load overwrites newer state.
func (s *StoryService) ViewChapter(chapter domain.ChapterData) {
	s.progress.SetCurrentChapter(chapter.StoryID, chapter.ID)
	s.questions.ResetQuestionState()

	position := chapter.ChessPosition
	if chapter.Question != nil && chapter.Question.InitialPosition != "" {
		position = chapter.Question.InitialPosition
	}
	if position != "" {
		s.board.SetPosition(position)
	}
	s.board.SetInteractive(hasMoveQuestion(chapter))
}

// OpenChapter is LoadChapter followed by ViewChapter.
func (s *StoryService) OpenChapter(ctx context.Context, storyID, chapterID string) (domain.ChapterData, error) {
	chapter, err := s.LoadChapter(ctx, storyID, chapterID)
	if err != nil {
		return domain.ChapterData{}, err
	}
	s.ViewChapter(chapter)
	return chapter, nil
}

// AnswerOutcome summarizes a question submission.
type AnswerOutcome struct {
	Correct     bool              `json:"correct"`
	Explanation string            `json:"explanation,omitempty"`
	Stats       domain.StoryStats `json:"stats"`
	Position    string            `json:"position,omitempty"`
}

// SubmitAnswer evaluates a submission against the chapter's question,
// records the transient question state and the story's attempt counters, and
// returns the outcome. Multiple-choice answers match exactly; move answers go
// through ValidateMove. Moves are expected already normalized by the caller.
func (s *StoryService) SubmitAnswer(ctx context.Context, storyID, chapterID, answer string) (AnswerOutcome, error) {
	story, err := s.stories.GetStory(ctx, storyID)
	if err != nil {
		return AnswerOutcome{}, fmt.Errorf("submit answer %s/%s: %w", storyID, chapterID, err)
	}
	chapter, ok := story.Chapter(chapterID)
	if !ok {
		return AnswerOutcome{}, domain.ErrChapterNotFound
	}
	question := chapter.Question
	if question == nil || !question.Renderable() {
		return AnswerOutcome{}, domain.ErrNoQuestion
	}

	var correct bool
	if question.Type == domain.QuestionMultipleChoice {
		correct = question.CorrectAnswer.Contains(answer)
	} else {
		correct = ValidateMove(answer, question.CorrectAnswer)
	}

	s.questions.SetQuestionAnswer(answer, correct)
	s.questions.RecordQuestionResult(storyID, correct)

	outcome := AnswerOutcome{
		Correct:     correct,
		Explanation: question.Explanation,
		Stats:       s.questions.GetStoryStats(storyID),
	}

	if correct && s.engine != nil && question.Type != domain.QuestionMultipleChoice {
		position, err := s.engine.PositionAfter(s.board.Snapshot().Position, answer)
		if err != nil {
			log.Printf("app: move engine position update skipped: %v", err)
		} else {
			s.board.SetPosition(position)
			outcome.Position = position
		}
	}

	return outcome, nil
}

// NextChapter resolves the chapter after the given position.
func (s *StoryService) NextChapter(ctx context.Context, storyID, chapterID string) (domain.ChapterRef, bool) {
	return navigation.NextChapter(s.StoryIndex(ctx), storyID, chapterID)
}

// PreviousChapter resolves the chapter before the given position.
func (s *StoryService) PreviousChapter(ctx context.Context, storyID, chapterID string) (domain.ChapterRef, bool) {
	return navigation.PreviousChapter(s.StoryIndex(ctx), storyID, chapterID)
}

// Advance describes what happens when the learner moves on from a chapter.
type Advance struct {
	Next          *domain.ChapterRef `json:"next,omitempty"`
	StoryComplete bool               `json:"storyComplete"`
	KeyConcepts   []string           `json:"keyConcepts,omitempty"`
}

// AdvanceFrom marks the chapter complete (when it has no renderable question,
// or its question has been answered) and resolves the next step. Leaving the
// story, or running out of content, signals the completion flow with the
// story's key concepts.
func (s *StoryService) AdvanceFrom(ctx context.Context, storyID, chapterID string) Advance {
	hasQuestion := false
	if story, err := s.stories.GetStory(ctx, storyID); err == nil {
		if chapter, ok := story.Chapter(chapterID); ok {
			hasQuestion = chapter.Question != nil && chapter.Question.Renderable()
		}
	}
	if !hasQuestion || s.questions.State().Submitted {
		s.progress.MarkChapterComplete(storyID, chapterID)
	}

	index := s.StoryIndex(ctx)
	next, ok := navigation.NextChapter(index, storyID, chapterID)
	if !ok || next.StoryID != storyID {
		advance := Advance{StoryComplete: true}
		if ok {
			advance.Next = &next
		}
		if entry, found := index.Entry(storyID); found {
			advance.KeyConcepts = entry.KeyConcepts
		}
		return advance
	}
	return Advance{Next: &next}
}

func hasMoveQuestion(chapter domain.ChapterData) bool {
	q := chapter.Question
	if q == nil {
		return false
	}
	return q.Type == domain.QuestionMoveSelection || q.Type == domain.QuestionMoveBased
}
