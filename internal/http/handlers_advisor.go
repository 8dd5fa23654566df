package http

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"saralfin/internal/advisor"
	"saralfin/internal/export"
)

const storeSource = "saved transactions"

type transcriptView struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Messages  []advisor.Message `json:"messages"`
}

// textStream writes streamed reply text, sending headers with the first chunk
// and flushing after each one.
type textStream struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	status int
	wrote  bool
}

func newTextStream(w http.ResponseWriter, status int) *textStream {
	return &textStream{w: w, rc: http.NewResponseController(w), status: status}
}

func (ts *textStream) start() {
	if ts.wrote {
		return
	}
	ts.wrote = true
	ts.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	ts.w.Header().Set("Cache-Control", "no-store")
	ts.w.Header().Set("X-Accel-Buffering", "no")
	ts.w.WriteHeader(ts.status)
}

func (ts *textStream) chunk(text string) {
	ts.start()
	if _, err := ts.w.Write([]byte(text)); err != nil {
		return
	}
	_ = ts.rc.Flush()
}

// handleStartAdvisor opens a session seeded with either the uploaded CSV body,
// a JSON {"csv","source"} object, or the saved transactions when the body is
// empty. The analysis streams back as plain text.
func (s *Server) handleStartAdvisor(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		ServiceUnavailableError("advisor is not configured").Write(w)
		return
	}

	p := NewRequestBodyParser(r)
	if p.err != nil {
		BadRequestError(p.err.Error()).Write(w)
		return
	}

	var csv, source string
	raw := bytes.TrimSpace(p.GetRaw())
	switch {
	case len(raw) == 0:
		csv, source = export.CSV(s.svc.Store().Transactions()), storeSource
	case raw[0] == '{':
		if err := p.Parse(); err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		csv, source = p.Get("csv"), p.Get("source")
	default:
		csv, source = string(raw), sanitizeInput(r.URL.Query().Get("source"))
	}

	sess, err := s.advisor.Open(r.Context(), csv, source)
	if err != nil {
		if errors.Is(err, advisor.ErrEmptyData) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		InternalServerError("could not start advisor session").Write(w)
		return
	}

	w.Header().Set("X-Session-ID", sess.ID)
	w.Header().Set("Location", "/api/advisor/sessions/"+sess.ID)
	ts := newTextStream(w, http.StatusCreated)
	reply, err := s.advisor.Analyze(r.Context(), sess.ID, ts.chunk)
	if err != nil {
		logFor(r).ErrorContext(r.Context(), "Advisor analysis failed", "session_id", sess.ID, "error", err)
	}
	ts.start()
	if reply.Fallback {
		logFor(r).WarnContext(r.Context(), "Advisor analysis fell back", "session_id", sess.ID)
	}
}

// handleAdvisorMessage accepts the message as JSON {"message"}, a form field
// or a plain text body.
func (s *Server) handleAdvisorMessage(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		ServiceUnavailableError("advisor is not configured").Write(w)
		return
	}

	p := NewRequestBodyParser(r)
	var text string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
		if p.err != nil {
			BadRequestError(p.err.Error()).Write(w)
			return
		}
		text = sanitizeInput(string(p.GetRaw()))
	} else {
		if err := p.Parse(); err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		text = p.Get("message")
	}

	id := r.PathValue("id")
	ts := newTextStream(w, http.StatusOK)
	_, err := s.advisor.Send(r.Context(), id, text, ts.chunk)
	switch {
	case errors.Is(err, advisor.ErrEmptyMessage):
		UnprocessableEntityError(err.Error()).Write(w)
		return
	case errors.Is(err, advisor.ErrSessionNotFound):
		NotFoundError(err.Error()).Write(w)
		return
	case err != nil:
		logFor(r).ErrorContext(r.Context(), "Advisor message failed", "session_id", id, "error", err)
		if !ts.wrote {
			InternalServerError("could not reach advisor").Write(w)
		}
		return
	}
	ts.start()
}

func (s *Server) handleAdvisorTranscript(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		ServiceUnavailableError("advisor is not configured").Write(w)
		return
	}

	sess, err := s.advisor.Session(r.PathValue("id"))
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	NewJSONResponse().Data(transcriptView{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		Messages:  sess.Transcript(),
	}).Write(w)
}
