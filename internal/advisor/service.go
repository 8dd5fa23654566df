package advisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"saralfin/internal/cache"
)

var (
	ErrEmptyMessage    = errors.New("empty message")
	ErrEmptyData       = errors.New("empty transaction data")
	ErrSessionNotFound = errors.New("advisor session not found")
)

// Session is one conversation. Transcript is what the user sees; history is
// what the model sees, which differs only in the seed turn.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	transcript []Message
	history    []Message
}

// Transcript returns a copy of the visible conversation.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.transcript...)
}

// Reply is the outcome of one turn. Fallback is set when Text is a canned
// message instead of model output.
type Reply struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Fallback  bool   `json:"fallback"`
}

// Service owns the advisor sessions.
type Service struct {
	model    ChatModel
	sessions *cache.LRUCache[*Session]
	timeout  time.Duration
	now      func() time.Time
}

// NewService keeps at most maxSessions conversations, each expiring after ttl
// of inactivity.
func NewService(model ChatModel, maxSessions int, ttl, timeout time.Duration) *Service {
	return &Service{
		model:    model,
		sessions: cache.NewLRUCache[*Session](maxSessions, ttl, cache.WithSlidingExpiry()),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Sessions exposes the session cache so it can be swept with the others.
func (s *Service) Sessions() *cache.LRUCache[*Session] {
	return s.sessions
}

// Start opens a session seeded with csv and streams the analysis. source names
// the upload in the transcript. onChunk, when not nil, receives reply text as
// it streams.
func (s *Service) Start(ctx context.Context, csv, source string, onChunk func(string)) (Reply, error) {
	sess, err := s.Open(ctx, csv, source)
	if err != nil {
		return Reply{}, err
	}
	return s.Analyze(ctx, sess.ID, onChunk)
}

// Open creates a session without contacting the model yet.
func (s *Service) Open(ctx context.Context, csv, source string) (*Session, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, ErrEmptyData
	}
	if source == "" {
		source = "transactions.csv"
	}

	sess := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  s.now(),
		transcript: []Message{{Role: RoleModel, Text: Greeting}, {Role: RoleUser, Text: UploadNotice(source)}},
		history:    []Message{{Role: RoleUser, Text: SeedPrompt(csv)}},
	}
	s.sessions.Set(sess.ID, sess)

	slog.InfoContext(ctx, "Advisor session started", "session_id", sess.ID, "source", source, "csv_bytes", len(csv))
	return sess, nil
}

// Analyze streams the model's reply to the seed turn of session id.
func (s *Service) Analyze(ctx context.Context, id string, onChunk func(string)) (Reply, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return Reply{}, ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	reply := s.turn(ctx, sess, AnalysisFallback, onChunk)
	reply.SessionID = sess.ID
	return reply, nil
}

// Send appends text as the user's next turn and streams the reply.
func (s *Service) Send(ctx context.Context, id, text string, onChunk func(string)) (Reply, error) {
	if strings.TrimSpace(text) == "" {
		return Reply{}, ErrEmptyMessage
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return Reply{}, ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	msg := Message{Role: RoleUser, Text: text}
	sess.transcript = append(sess.transcript, msg)
	sess.history = append(sess.history, msg)

	reply := s.turn(ctx, sess, ConversationFallback, onChunk)
	reply.SessionID = sess.ID
	return reply, nil
}

// Session looks up a live session.
func (s *Service) Session(id string) (*Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// turn runs one model exchange with sess locked. Model failures never escape:
// they become the fallback text.
func (s *Service) turn(ctx context.Context, sess *Session, fallback string, onChunk func(string)) Reply {
	text, err := s.stream(ctx, sess.history, onChunk)
	if err == nil {
		msg := Message{Role: RoleModel, Text: text}
		sess.transcript = append(sess.transcript, msg)
		sess.history = append(sess.history, msg)
		return Reply{Text: text}
	}

	slog.ErrorContext(ctx, "Advisor reply failed", "session_id", sess.ID, "error", err)
	if text != "" {
		// keep what already reached the user
		sess.transcript = append(sess.transcript, Message{Role: RoleModel, Text: text})
	}
	sess.transcript = append(sess.transcript, Message{Role: RoleModel, Text: fallback})
	if onChunk != nil {
		onChunk(fallback)
	}
	return Reply{Text: fallback, Fallback: true}
}

func (s *Service) stream(ctx context.Context, history []Message, onChunk func(string)) (string, error) {
	if s.model == nil {
		return "", errors.New("no chat model configured")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	st, err := s.model.Stream(ctx, Request{System: SystemInstruction, History: append([]Message(nil), history...)})
	if err != nil {
		return "", err
	}
	defer st.Close()

	var b strings.Builder
	for {
		chunk, err := st.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return b.String(), fmt.Errorf("stream reply: %w", err)
		}
		b.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("empty reply")
	}
	return b.String(), nil
}
