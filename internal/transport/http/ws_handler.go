package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"chess-story-service/internal/app"
	"chess-story-service/internal/domain"
	"github.com/gorilla/websocket"
)

// LearnerPresence marks learner sessions as live in an external store.
type LearnerPresence interface {
	Connected(learnerID string)
	Disconnected(learnerID string)
}

type WSHandler struct {
	stories  app.StoryRepository
	engine   app.MoveEngine
	presence LearnerPresence
	upgrader websocket.Upgrader
}

// NewWSHandler builds the learner-session handler. Each connection gets its
// own StoryService, so progress, question state and the board are private to
// the learner; only the content repository is shared. engine and presence may
// be nil.
func NewWSHandler(stories app.StoryRepository, engine app.MoveEngine, presence LearnerPresence) *WSHandler {
	return &WSHandler{
		stories:  stories,
		engine:   engine,
		presence: presence,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type chapterPayload struct {
	StoryID   string `json:"storyId"`
	ChapterID string `json:"chapterId"`
}

type answerPayload struct {
	StoryID   string `json:"storyId"`
	ChapterID string `json:"chapterId"`
	Answer    string `json:"answer"`
}

type statsPayload struct {
	StoryID string `json:"storyId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type chapterErrorPayload struct {
	Message  string             `json:"message"`
	Previous *domain.ChapterRef `json:"previous,omitempty"`
}

type statsResult struct {
	StoryID string            `json:"storyId"`
	Stats   domain.StoryStats `json:"stats"`
}

type storyCompletePayload struct {
	StoryID     string             `json:"storyId"`
	KeyConcepts []string           `json:"keyConcepts,omitempty"`
	Next        *domain.ChapterRef `json:"next,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and drives one learner
// session: chapter viewing, question submission, navigation and progress
// pushes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	learnerID := r.URL.Query().Get("learnerId")
	if learnerID == "" {
		http.Error(w, "missing learnerId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if h.presence != nil {
		h.presence.Connected(learnerID)
		defer h.presence.Disconnected(learnerID)
	}

	session := app.NewStoryService(h.stories, h.engine)

	updates, cancel := session.Progress().Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	var loads sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "progress", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	trySend(send, writerDone, outboundMessage[any]{Type: "index", Payload: session.StoryIndex(r.Context())})

	// Chapter loads run concurrently with the read loop; chapterSeq makes the
	// last requested chapter win when the learner navigates again before a
	// prior load resolves. viewMu serializes the staleness re-check with
	// view-and-send, so a load that passes the check cannot be overtaken
	// between checking and applying.
	var chapterSeq int64
	var viewMu sync.Mutex

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "chapter":
			var payload chapterPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				trySend(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid chapter payload"}})
				continue
			}
			seq := atomic.AddInt64(&chapterSeq, 1)
			loads.Add(1)
			go func(payload chapterPayload, seq int64) {
				defer loads.Done()
				chapter, err := session.LoadChapter(r.Context(), payload.StoryID, payload.ChapterID)

				viewMu.Lock()
				defer viewMu.Unlock()
				if atomic.LoadInt64(&chapterSeq) != seq {
					// A newer chapter request superseded this load.
					return
				}
				if err != nil {
					var previous *domain.ChapterRef
					if ref, ok := session.PreviousChapter(r.Context(), payload.StoryID, payload.ChapterID); ok {
						previous = &ref
					}
					trySend(send, closeSignals, outboundMessage[any]{Type: "chapterError", Payload: chapterErrorPayload{
						Message:  err.Error(),
						Previous: previous,
					}})
					return
				}
				session.ViewChapter(chapter)
				trySend(send, closeSignals, outboundMessage[any]{Type: "chapter", Payload: chapter})
			}(payload, seq)
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				trySend(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			outcome, err := session.SubmitAnswer(r.Context(), payload.StoryID, payload.ChapterID, payload.Answer)
			if err != nil {
				trySend(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: answerErrorMessage(err)}})
				continue
			}
			trySend(send, writerDone, outboundMessage[any]{Type: "answerResult", Payload: outcome})
		case "complete":
			var payload chapterPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				trySend(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid complete payload"}})
				continue
			}
			session.Progress().MarkChapterComplete(payload.StoryID, payload.ChapterID)
		case "advance":
			var payload chapterPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				trySend(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid advance payload"}})
				continue
			}
			advance := session.AdvanceFrom(r.Context(), payload.StoryID, payload.ChapterID)
			if advance.StoryComplete {
				trySend(send, writerDone, outboundMessage[any]{Type: "storyComplete", Payload: storyCompletePayload{
					StoryID:     payload.StoryID,
					KeyConcepts: advance.KeyConcepts,
					Next:        advance.Next,
				}})
				continue
			}
			trySend(send, writerDone, outboundMessage[any]{Type: "navigate", Payload: advance.Next})
		case "previous":
			var payload chapterPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				trySend(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid previous payload"}})
				continue
			}
			ref, ok := session.PreviousChapter(r.Context(), payload.StoryID, payload.ChapterID)
			if !ok {
				trySend(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "no previous chapter"}})
				continue
			}
			trySend(send, writerDone, outboundMessage[any]{Type: "navigate", Payload: ref})
		case "stats":
			var payload statsPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				trySend(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid stats payload"}})
				continue
			}
			trySend(send, writerDone, outboundMessage[any]{Type: "stats", Payload: statsResult{
				StoryID: payload.StoryID,
				Stats:   session.Questions().GetStoryStats(payload.StoryID),
			}})
		case "resetStats":
			var payload statsPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				trySend(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid resetStats payload"}})
				continue
			}
			session.Questions().ResetStoryStats(payload.StoryID)
		default:
			trySend(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-updatesDone
	loads.Wait()
	close(send)
	<-writerDone
}

// trySend enqueues msg unless done is closed. The read loop passes writerDone
// so a dead writer with a full buffer never blocks it; load goroutines pass
// closeSignals so a closing session releases them.
func trySend(send chan<- outboundMessage[any], done <-chan struct{}, msg outboundMessage[any]) {
	select {
	case send <- msg:
	case <-done:
	}
}

func answerErrorMessage(err error) string {
	if errors.Is(err, domain.ErrNoQuestion) {
		return "chapter has no question"
	}
	return err.Error()
}
