package navigation

import "chess-story-service/internal/domain"

// NextChapter resolves the chapter after (storyID, chapterID): the next
// chapter in authored order, or the first chapter of the linked next story
// when at the last one. ok is false at the end of the learning path, which
// callers surface as the story-completion flow.
//
// An unknown story or chapter id resolves to no result in both directions.
func NextChapter(index domain.StoryIndex, storyID, chapterID string) (domain.ChapterRef, bool) {
	story, ok := index.Entry(storyID)
	if !ok {
		return domain.ChapterRef{}, false
	}

	pos := chapterPosition(story, chapterID)
	if pos < 0 {
		return domain.ChapterRef{}, false
	}

	if pos < len(story.Chapters)-1 {
		return domain.ChapterRef{StoryID: storyID, ChapterID: story.Chapters[pos+1].ID}, true
	}

	if story.NextStory != "" {
		next, ok := index.Entry(story.NextStory)
		if ok && len(next.Chapters) > 0 {
			return domain.ChapterRef{StoryID: next.ID, ChapterID: next.Chapters[0].ID}, true
		}
	}

	return domain.ChapterRef{}, false
}

// PreviousChapter is the mirror of NextChapter: the preceding chapter in
// authored order, or the last chapter of the linked previous story when at
// the first one.
func PreviousChapter(index domain.StoryIndex, storyID, chapterID string) (domain.ChapterRef, bool) {
	story, ok := index.Entry(storyID)
	if !ok {
		return domain.ChapterRef{}, false
	}

	pos := chapterPosition(story, chapterID)
	if pos < 0 {
		return domain.ChapterRef{}, false
	}

	if pos > 0 {
		return domain.ChapterRef{StoryID: storyID, ChapterID: story.Chapters[pos-1].ID}, true
	}

	if story.PreviousStory != "" {
		previous, ok := index.Entry(story.PreviousStory)
		if ok && len(previous.Chapters) > 0 {
			return domain.ChapterRef{StoryID: previous.ID, ChapterID: previous.Chapters[len(previous.Chapters)-1].ID}, true
		}
	}

	return domain.ChapterRef{}, false
}

func chapterPosition(story domain.StoryIndexEntry, chapterID string) int {
	for i, chapter := range story.Chapters {
		if chapter.ID == chapterID {
			return i
		}
	}
	return -1
}
