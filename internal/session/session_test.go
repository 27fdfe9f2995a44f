package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/domain"
	"pdfchat/internal/pipeline"
)

type echoPipeline struct {
	name   string
	closed bool
}

func (p *echoPipeline) Answer(_ context.Context, q string) []domain.Turn {
	return []domain.Turn{domain.UserTurn(q), domain.AssistantTurn(p.name + ": " + q)}
}

func (p *echoPipeline) Close() error {
	p.closed = true
	return nil
}

type fakeBuilder struct {
	next  []*echoPipeline
	err   error
	calls int
}

func (b *fakeBuilder) Build(_ context.Context, docs []domain.Document) (pipeline.Pipeline, Report, error) {
	b.calls++
	if b.err != nil {
		return nil, Report{}, b.err
	}
	p := b.next[0]
	b.next = b.next[1:]
	return p, Report{Documents: len(docs), Chunks: 1}, nil
}

var docs = []domain.Document{{Name: "a.pdf", Data: []byte("x")}}

func TestAsk_BeforeProcess(t *testing.T) {
	s := New(&fakeBuilder{}, nil)
	assert.False(t, s.Ready())

	turns := s.Ask(context.Background(), "hello?")
	assert.Equal(t, []domain.Turn{domain.UserTurn("hello?"), domain.AssistantTurn(MsgNotProcessed)}, turns)
	assert.Empty(t, s.History())
}

func TestProcess_NoDocuments(t *testing.T) {
	b := &fakeBuilder{}
	_, err := New(b, nil).Process(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNoDocuments)
	assert.Zero(t, b.calls)
}

func TestProcess_ThenAsk(t *testing.T) {
	first := &echoPipeline{name: "first"}
	s := New(&fakeBuilder{next: []*echoPipeline{first}}, nil)

	report, err := s.Process(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, Report{Documents: 1, Chunks: 1}, report)
	assert.True(t, s.Ready())

	s.Ask(context.Background(), "q1")
	s.Ask(context.Background(), "q2")
	assert.Equal(t, []domain.Turn{
		domain.UserTurn("q1"), domain.AssistantTurn("first: q1"),
		domain.UserTurn("q2"), domain.AssistantTurn("first: q2"),
	}, s.History())
}

func TestProcess_ReplacesAndClosesPrevious(t *testing.T) {
	first, second := &echoPipeline{name: "first"}, &echoPipeline{name: "second"}
	s := New(&fakeBuilder{next: []*echoPipeline{first, second}}, nil)

	_, err := s.Process(context.Background(), docs)
	require.NoError(t, err)
	_, err = s.Process(context.Background(), docs)
	require.NoError(t, err)

	assert.True(t, first.closed)
	assert.False(t, second.closed)
	assert.Equal(t, "second: q", s.Ask(context.Background(), "q")[1].Content)
}

func TestProcess_FailureLeavesStateUntouched(t *testing.T) {
	first := &echoPipeline{name: "first"}
	b := &fakeBuilder{next: []*echoPipeline{first}}
	s := New(b, nil)
	_, err := s.Process(context.Background(), docs)
	require.NoError(t, err)
	s.Ask(context.Background(), "q1")

	b.err = errors.New("boom")
	_, err = s.Process(context.Background(), docs)
	require.Error(t, err)

	assert.False(t, first.closed)
	assert.Len(t, s.History(), 2)
	assert.Equal(t, "first: q2", s.Ask(context.Background(), "q2")[1].Content)
}

func TestReset(t *testing.T) {
	first := &echoPipeline{name: "first"}
	s := New(&fakeBuilder{next: []*echoPipeline{first}}, nil)
	_, err := s.Process(context.Background(), docs)
	require.NoError(t, err)
	s.Ask(context.Background(), "q")

	s.Reset()
	assert.True(t, first.closed)
	assert.False(t, s.Ready())
	assert.Empty(t, s.History())
	assert.Equal(t, MsgNotProcessed, s.Ask(context.Background(), "q")[1].Content)
}

func TestHistory_ReturnsCopy(t *testing.T) {
	s := New(&fakeBuilder{next: []*echoPipeline{{name: "p"}}}, nil)
	_, err := s.Process(context.Background(), docs)
	require.NoError(t, err)
	s.Ask(context.Background(), "q")

	h := s.History()
	h[0].Content = "changed"
	assert.Equal(t, "q", s.History()[0].Content)
}

func TestAsk_Concurrent(t *testing.T) {
	s := New(&fakeBuilder{next: []*echoPipeline{{name: "p"}}}, nil)
	_, err := s.Process(context.Background(), docs)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Ask(context.Background(), "q")
		}()
	}
	wg.Wait()
	assert.Len(t, s.History(), 40)
	assert.NotEmpty(t, s.ID())
}

type blockingPipeline struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	closed  bool
}

func (p *blockingPipeline) Answer(_ context.Context, q string) []domain.Turn {
	close(p.started)
	<-p.release
	p.mu.Lock()
	defer p.mu.Unlock()
	content := "answered"
	if p.closed {
		content = "closed mid-answer"
	}
	return []domain.Turn{domain.UserTurn(q), domain.AssistantTurn(content)}
}

func (p *blockingPipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type onceBuilder struct{ p pipeline.Pipeline }

func (b onceBuilder) Build(_ context.Context, docs []domain.Document) (pipeline.Pipeline, Report, error) {
	return b.p, Report{Documents: len(docs)}, nil
}

func TestReset_WaitsForInflightAnswer(t *testing.T) {
	p := &blockingPipeline{started: make(chan struct{}), release: make(chan struct{})}
	s := New(onceBuilder{p: p}, nil)
	_, err := s.Process(context.Background(), docs)
	require.NoError(t, err)

	answered := make(chan []domain.Turn)
	go func() { answered <- s.Ask(context.Background(), "q") }()
	<-p.started

	reset := make(chan struct{})
	go func() {
		s.Reset()
		close(reset)
	}()

	select {
	case <-reset:
		t.Fatal("reset closed the pipeline while an answer was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(p.release)
	turns := <-answered
	<-reset
	assert.Equal(t, "answered", turns[1].Content)
	assert.True(t, p.closed)
	assert.Empty(t, s.History(), "answers started before reset are not recorded")
	assert.False(t, s.Ready())
}
