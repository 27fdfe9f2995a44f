package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"pdfchat/internal/domain"
	"pdfchat/internal/llm"
)

// Replies surfaced to the user instead of a model answer.
const (
	MsgInvalidQuestion  = "Please provide a valid question."
	MsgRetrievalFailed  = "Error retrieving relevant information from documents."
	MsgGenerationFailed = "An error occurred while processing your question. Please try again."
	MsgUnexpectedPrefix = "An unexpected error occurred: "
	MsgNotConfigured    = "The language model API key is not configured. Please check your environment variables."
)

// SystemPrompt precedes the retrieved context in the system message.
const SystemPrompt = "You are a helpful assistant analyzing documents. Use the following context to answer the question, but be concise and focused in your response."

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 3

// Pipeline answers questions against one processed document set.
// Answer always returns the user turn followed by the assistant turn.
type Pipeline interface {
	Answer(ctx context.Context, question string) []domain.Turn
	Close() error
}

// Retriever finds the chunks most relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]domain.SearchResult, error)
	Close() error
}

// Options tunes retrieval.
type Options struct {
	TopK int
	// ScoreThreshold drops results whose similarity is below it; 0 disables it.
	ScoreThreshold float64
}

// New returns a Working pipeline, or an Unconfigured one when model is nil.
func New(kb Retriever, model llm.ChatModel, opts Options, logger *slog.Logger) Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if model == nil {
		return &Unconfigured{kb: kb, logger: logger}
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &Working{kb: kb, model: model, opts: opts, logger: logger}
}

// Working answers with retrieval followed by generation.
type Working struct {
	kb     Retriever
	model  llm.ChatModel
	opts   Options
	logger *slog.Logger
}

// Answer runs validate, retrieve, compose and generate. Failures become
// apology replies; panics are recovered.
func (p *Working) Answer(ctx context.Context, question string) (turns []domain.Turn) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("unexpected failure answering question", "panic", r)
			turns = pair(question, fmt.Sprintf("%s%v", MsgUnexpectedPrefix, r))
		}
	}()

	if strings.TrimSpace(question) == "" {
		return pair(question, MsgInvalidQuestion)
	}

	results, err := p.kb.Retrieve(ctx, question, p.opts.TopK)
	if err != nil {
		p.logger.Error("retrieval failed", "error", err)
		return pair(question, MsgRetrievalFailed)
	}
	results = p.filter(results)

	messages := []domain.Turn{
		{Role: domain.RoleSystem, Content: SystemPrompt + "\n\nContext:\n" + FormatContext(results)},
		domain.UserTurn(question),
	}

	reply, err := p.model.Chat(ctx, messages)
	if err != nil {
		p.logger.Error("generation failed", "model", p.model.Name(), "error", err)
		return pair(question, MsgGenerationFailed)
	}
	p.logger.Debug("question answered", "sections", len(results), "model", p.model.Name())
	return pair(question, reply)
}

// Close releases the knowledge base.
func (p *Working) Close() error { return closeRetriever(p.kb) }

func (p *Working) filter(results []domain.SearchResult) []domain.SearchResult {
	if p.opts.ScoreThreshold <= 0 {
		return results
	}
	kept := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Similarity() >= p.opts.ScoreThreshold {
			kept = append(kept, r)
		}
	}
	return kept
}

// FormatContext renders results as numbered sections in rank order.
func FormatContext(results []domain.SearchResult) string {
	sections := make([]string, len(results))
	for i, r := range results {
		sections[i] = fmt.Sprintf("Section %d:\n%s", i+1, r.Chunk.Text)
	}
	return strings.Join(sections, "\n\n")
}

// Unconfigured is used when no language model credential is available.
type Unconfigured struct {
	kb     Retriever
	logger *slog.Logger
}

// Answer always reports the missing configuration.
func (p *Unconfigured) Answer(_ context.Context, question string) []domain.Turn {
	p.logger.Warn("question asked without a configured language model")
	return pair(question, MsgNotConfigured)
}

// Close releases the knowledge base, if any.
func (p *Unconfigured) Close() error { return closeRetriever(p.kb) }

func closeRetriever(kb Retriever) error {
	if kb == nil {
		return nil
	}
	return kb.Close()
}

func pair(question, reply string) []domain.Turn {
	return []domain.Turn{domain.UserTurn(question), domain.AssistantTurn(reply)}
}
