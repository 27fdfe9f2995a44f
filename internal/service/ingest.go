package service

import (
	"context"
	"log/slog"
	"strings"

	"pdfchat/internal/chunker"
	"pdfchat/internal/domain"
	"pdfchat/internal/extractor"
	"pdfchat/internal/indexer"
	"pdfchat/internal/llm"
	"pdfchat/internal/pipeline"
	"pdfchat/internal/session"
	"pdfchat/internal/summarizer"
)

// Verify interface compliance
var _ session.Builder = (*Ingestor)(nil)

// Ingestor turns uploaded documents into a ready pipeline:
// extract, split, index, summarise, then wire the model.
type Ingestor struct {
	extractor  *extractor.PDFExtractor
	chunker    *chunker.Chunker
	indexer    *indexer.Indexer
	summarizer summarizer.Summarizer
	model      llm.ChatModel
	opts       pipeline.Options
	logger     *slog.Logger
}

// NewIngestor wires the ingest stages. model may be nil when no credential is set.
func NewIngestor(
	ext *extractor.PDFExtractor,
	ch *chunker.Chunker,
	ix *indexer.Indexer,
	sum summarizer.Summarizer,
	model llm.ChatModel,
	opts pipeline.Options,
	logger *slog.Logger,
) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	if sum == nil {
		sum = summarizer.None{}
	}
	return &Ingestor{
		extractor:  ext,
		chunker:    ch,
		indexer:    ix,
		summarizer: sum,
		model:      model,
		opts:       opts,
		logger:     logger,
	}
}

// Build implements session.Builder.
func (in *Ingestor) Build(ctx context.Context, docs []domain.Document) (pipeline.Pipeline, session.Report, error) {
	if len(docs) == 0 {
		return nil, session.Report{}, domain.ErrNoDocuments
	}
	text, err := in.extractor.Extract(docs)
	if err != nil {
		return nil, session.Report{}, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, session.Report{}, domain.ErrNoContent
	}
	if in.model == nil {
		in.logger.Warn("language model not configured; skipping indexing")
		report := session.Report{Documents: len(docs), Summary: in.summarizer.Summarize(text)}
		return pipeline.New(nil, nil, in.opts, in.logger), report, nil
	}

	chunks := in.chunker.Split(text)
	in.logger.Debug("text split", "runes", len([]rune(text)), "chunks", len(chunks))

	kb, err := in.indexer.Build(ctx, chunks)
	if err != nil {
		return nil, session.Report{}, err
	}

	report := session.Report{
		Documents: len(docs),
		Chunks:    kb.Len(),
		Summary:   in.summarizer.Summarize(text),
	}
	return pipeline.New(kb, in.model, in.opts, in.logger), report, nil
}
