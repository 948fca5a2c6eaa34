package markdown

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"chess-story-service/internal/domain"
	"gopkg.in/yaml.v3"
)

var headingRE = regexp.MustCompile(`(?m)^##\s+(.+)$`)

// ParseStory parses a multi-chapter story document into a fully resolved
// domain.Story.
//
// The front-matter supplies story metadata and the ordered chapter list; the
// body is sliced into per-chapter content on "## " headings and paired with
// chapter metadata by position. The only hard failure is missing id, title
// or chapters, which returns a domain.ValidationError.
func ParseStory(src string) (domain.Story, error) {
	raw, body, ok := splitFrontmatter(src)

	var fm domain.StoryFrontmatter
	if ok {
		if err := yaml.Unmarshal(raw, &fm); err != nil {
			log.Printf("markdown: story frontmatter decode: %v", err)
		}
	}
	if fm.ID == "" || fm.Title == "" || len(fm.Chapters) == 0 {
		return domain.Story{}, domain.NewValidationError("Story frontmatter must include id, title, and chapters")
	}

	slices := chapterSlices(body)
	chapters := make([]domain.ChapterData, len(fm.Chapters))
	for i, meta := range fm.Chapters {
		content := ""
		if i < len(slices) {
			content = slices[i]
		}
		if meta.Question != nil {
			meta.Question.InitialPosition = ExpandPosition(meta.Question.InitialPosition)
		}
		chapters[i] = domain.ChapterData{
			ID:            meta.ID,
			Title:         resolveTitle(meta.Title, content, i+1),
			ChapterNumber: i + 1,
			StoryID:       fm.ID,
			Content:       content,
			Question:      meta.Question,
			ChessPosition: ExpandPosition(meta.ChessPosition),
			Image:         meta.Image,
		}
	}

	return domain.Story{
		ID:            fm.ID,
		Title:         fm.Title,
		Chapters:      chapters,
		PreviousStory: fm.PreviousStory,
		NextStory:     fm.NextStory,
		KeyConcepts:   fm.KeyConcepts,
	}, nil
}

// chapterFrontmatter is the metadata of a single-chapter document, used by
// the one-file-per-chapter loading mode.
type chapterFrontmatter struct {
	ID            string                   `yaml:"id"`
	Title         string                   `yaml:"title"`
	ChapterNumber int                      `yaml:"chapterNumber"`
	StoryID       string                   `yaml:"storyId"`
	ChessPosition string                   `yaml:"chessPosition"`
	Image         string                   `yaml:"image"`
	Question      *domain.QuestionMetadata `yaml:"question"`
}

// ParseChapter parses a single-chapter document. Missing metadata falls back
// to the ids the caller navigated with, so a bare markdown file still renders.
func ParseChapter(src, storyID, chapterID string) domain.ChapterData {
	raw, body, ok := splitFrontmatter(src)

	var fm chapterFrontmatter
	if ok {
		if err := yaml.Unmarshal(raw, &fm); err != nil {
			log.Printf("markdown: chapter frontmatter decode: %v", err)
		}
	}
	if fm.Question != nil {
		fm.Question.InitialPosition = ExpandPosition(fm.Question.InitialPosition)
	}

	chapter := domain.ChapterData{
		ID:            fm.ID,
		Title:         fm.Title,
		ChapterNumber: fm.ChapterNumber,
		StoryID:       fm.StoryID,
		Content:       body,
		Question:      fm.Question,
		ChessPosition: ExpandPosition(fm.ChessPosition),
		Image:         fm.Image,
	}
	if chapter.ID == "" {
		chapter.ID = chapterID
	}
	if chapter.Title == "" {
		chapter.Title = "Chapter"
	}
	if chapter.ChapterNumber == 0 {
		chapter.ChapterNumber = 1
	}
	if chapter.StoryID == "" {
		chapter.StoryID = storyID
	}
	return chapter
}

// ExpandPosition resolves the "startpos"/"start" keywords to the standard
// initial position. Any other value passes through unchanged.
func ExpandPosition(position string) string {
	switch position {
	case "startpos", "start":
		return domain.StartingPositionFEN
	}
	return position
}

// chapterSlices splits the body on second-level headings. Each slice starts
// at a "## " line and runs to the next one. A body without "## " headings is
// a single slice; text before the first heading belongs to no chapter.
func chapterSlices(body string) []string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil
	}

	lines := strings.Split(body, "\n")
	var starts []int
	for i, line := range lines {
		if strings.HasPrefix(line, "## ") {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		return []string{trimmed}
	}

	slices := make([]string, 0, len(starts))
	for n, start := range starts {
		end := len(lines)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		slices = append(slices, strings.TrimSpace(strings.Join(lines[start:end], "\n")))
	}
	return slices
}

// resolveTitle applies the title precedence: explicit metadata title, then
// the first "## " heading inside the chapter's own slice, then "Chapter <n>".
func resolveTitle(explicit, content string, number int) string {
	if explicit != "" {
		return explicit
	}
	if m := headingRE.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return fmt.Sprintf("Chapter %d", number)
}
