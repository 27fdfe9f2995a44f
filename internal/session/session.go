package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"pdfchat/internal/domain"
	"pdfchat/internal/pipeline"
)

// Guidance replies shown when the session cannot act yet.
const (
	MsgNotProcessed = "Please upload PDF files and process them before asking a question."
	MsgNoDocuments  = "Please upload at least one PDF file."
)

// Report describes the result of a successful Process.
type Report struct {
	Documents int
	Chunks    int
	Summary   string
}

// Builder constructs a complete pipeline from a batch of documents.
type Builder interface {
	Build(ctx context.Context, docs []domain.Document) (pipeline.Pipeline, Report, error)
}

// installed is a pipeline together with the answers still running on it.
type installed struct {
	pipeline pipeline.Pipeline
	inflight sync.WaitGroup
}

// Session owns the live pipeline and the conversation history.
type Session struct {
	id      string
	builder Builder
	logger  *slog.Logger

	mu      sync.RWMutex
	current *installed
	history []domain.Turn
	// epoch changes on Reset; answers started before it are not recorded.
	epoch uint64
}

// New creates an empty session.
func New(builder Builder, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Session{id: id, builder: builder, logger: logger.With("session", id)}
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Process builds a new pipeline from docs and installs it in place of the
// current one. On failure the session is left unchanged.
func (s *Session) Process(ctx context.Context, docs []domain.Document) (Report, error) {
	if len(docs) == 0 {
		return Report{}, domain.ErrNoDocuments
	}
	p, report, err := s.builder.Build(ctx, docs)
	if err != nil {
		s.logger.Error("processing documents failed", "documents", len(docs), "error", err)
		return Report{}, err
	}

	s.mu.Lock()
	old := s.current
	s.current = &installed{pipeline: p}
	s.mu.Unlock()

	s.retire(old)
	s.logger.Info("documents processed", "documents", report.Documents, "chunks", report.Chunks)
	return report, nil
}

// Ask answers question with the current pipeline and records the exchange.
// Without a pipeline the guidance reply is returned and history is unchanged.
func (s *Session) Ask(ctx context.Context, question string) []domain.Turn {
	s.mu.RLock()
	cur, epoch := s.current, s.epoch
	if cur != nil {
		cur.inflight.Add(1)
	}
	s.mu.RUnlock()

	if cur == nil {
		s.logger.Warn("question asked before processing documents")
		return []domain.Turn{domain.UserTurn(question), domain.AssistantTurn(MsgNotProcessed)}
	}
	defer cur.inflight.Done()

	turns := cur.pipeline.Answer(ctx, question)

	s.mu.Lock()
	if s.epoch == epoch {
		s.history = append(s.history, turns...)
	}
	s.mu.Unlock()
	return turns
}

// Ready reports whether documents have been processed.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// History returns a copy of the conversation so far.
func (s *Session) History() []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Turn(nil), s.history...)
}

// Reset drops the pipeline and clears the history.
func (s *Session) Reset() {
	s.mu.Lock()
	old := s.current
	s.current = nil
	s.history = nil
	s.epoch++
	s.mu.Unlock()

	s.retire(old)
	s.logger.Info("session reset")
}

// retire closes a replaced pipeline once the answers running on it return.
func (s *Session) retire(old *installed) {
	if old == nil {
		return
	}
	old.inflight.Wait()
	if err := old.pipeline.Close(); err != nil {
		s.logger.Warn("closing pipeline failed", "error", err)
	}
}
