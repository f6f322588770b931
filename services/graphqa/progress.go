package graphqa

import "context"

// Progress receives the pipeline's intermediate artifacts as they are
// produced: first the generated graph query, then the result context
// handed to answer synthesis. Implementations must not block; they are
// called inline on the answering path.
type Progress interface {
	OnGeneratedQuery(ctx context.Context, statement string)
	OnResultContext(ctx context.Context, resultContext string)
}

// NopProgress discards all notifications. It is the default sink.
type NopProgress struct{}

func (NopProgress) OnGeneratedQuery(context.Context, string) {}
func (NopProgress) OnResultContext(context.Context, string)  {}

// MultiProgress fans every notification out to each sink in order.
type MultiProgress []Progress

func (m MultiProgress) OnGeneratedQuery(ctx context.Context, statement string) {
	for _, p := range m {
		p.OnGeneratedQuery(ctx, statement)
	}
}

func (m MultiProgress) OnResultContext(ctx context.Context, resultContext string) {
	for _, p := range m {
		p.OnResultContext(ctx, resultContext)
	}
}

// Recorder retains the notifications of a single run so callers can
// attach the generated query and context to responses or history.
// It is meant for one Answer call at a time; it is not synchronized.
type Recorder struct {
	GeneratedQuery string
	ResultContext  string
}

func (r *Recorder) OnGeneratedQuery(_ context.Context, statement string) {
	r.GeneratedQuery = statement
}

func (r *Recorder) OnResultContext(_ context.Context, resultContext string) {
	r.ResultContext = resultContext
}
