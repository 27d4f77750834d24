// Package chatstream coordinates one chat job from token redemption to the
// terminal stream event. It merges three concurrent workstreams (answer
// generation, detail-page preparation, history recording) into a single
// strictly-ordered event stream.
package chatstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/pkg/logger"
	"trade-intel-be/pkg/extract"
	"trade-intel-be/pkg/generation"
	"trade-intel-be/pkg/intent"
	"trade-intel-be/pkg/llm"
	"trade-intel-be/pkg/retrieval"
	"trade-intel-be/pkg/token"
)

var (
	// ErrTokenInvalid covers missing, expired, and replayed stream tokens.
	ErrTokenInvalid = errors.New("invalid stream token")
	// ErrJobNotFound means the token resolved but the job is gone or was
	// already streamed.
	ErrJobNotFound = errors.New("chat job not found")
)

// Collaborators. Each is an explicit interface injected into the
// orchestrator's constructor.

type TokenConsumer interface {
	Consume(ctx context.Context, streamToken string) (uuid.UUID, error)
}

type JobRegistry interface {
	Get(jobId uuid.UUID) (*entity.ChatJob, bool)
	Save(job *entity.ChatJob)
}

type Classifier interface {
	Classify(ctx context.Context, query string) (*intent.Classification, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]retrieval.Candidate, error)
}

type Generator interface {
	Stream(ctx context.Context, label intent.Label, query string, history []llm.Message, candidates []retrieval.Candidate, onFragment func(fragment string) error) (*generation.Result, error)
}

type Preparer interface {
	Prepare(ctx context.Context, label intent.Label, candidates []retrieval.Candidate) []entity.DetailButton
}

// Recorder persists the exchange for authenticated callers and is a strict
// no-op for anonymous ones.
type Recorder interface {
	// Context returns prior conversation messages for grounding, oldest
	// first. Empty for anonymous callers and fresh sessions.
	Context(ctx context.Context, job *entity.ChatJob) ([]llm.Message, error)
	// Record persists the user and assistant messages. The job's Answer and
	// Metadata fields are set before the call.
	Record(ctx context.Context, job *entity.ChatJob) error
}

type Config struct {
	JobTimeout       time.Duration
	BookmarkMinScore float64
}

type Orchestrator struct {
	tokens     TokenConsumer
	jobs       JobRegistry
	classifier Classifier
	retriever  Retriever
	generator  Generator
	preparer   Preparer
	recorder   Recorder
	pool       *Pool
	log        logger.ILogger
	cfg        Config
}

func NewOrchestrator(
	tokens TokenConsumer,
	jobs JobRegistry,
	classifier Classifier,
	retriever Retriever,
	generator Generator,
	preparer Preparer,
	recorder Recorder,
	pool *Pool,
	log logger.ILogger,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		tokens:     tokens,
		jobs:       jobs,
		classifier: classifier,
		retriever:  retriever,
		generator:  generator,
		preparer:   preparer,
		recorder:   recorder,
		pool:       pool,
		log:        log,
		cfg:        cfg,
	}
}

// Admit redeems the stream token and returns the job it authorizes. The
// token is consumed even when a later stage fails; a capability spends
// itself on first use.
func (o *Orchestrator) Admit(ctx context.Context, streamToken string) (*entity.ChatJob, error) {
	jobId, err := o.tokens.Consume(ctx, streamToken)
	if err != nil {
		if errors.Is(err, token.ErrTokenNotFound) {
			// Distinct from validation errors: a rejected token can signal
			// a replay attempt.
			o.log.Warn("chatstream", "stream token rejected", map[string]interface{}{
				"reason": "not found, expired, or already consumed",
			})
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("token store: %w", err)
	}

	job, ok := o.jobs.Get(jobId)
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Status != entity.JobStatusPending {
		o.log.Warn("chatstream", "job already streamed", map[string]interface{}{
			"job_id": job.Id.String(),
			"status": string(job.Status),
		})
		return nil, ErrJobNotFound
	}
	return job, nil
}

// Stream runs the full pipeline for an admitted job, emitting events to the
// sink. It occupies one worker-pool slot for the job's duration; when the
// pool is saturated the call fails fast with ErrPoolSaturated before any
// event is emitted.
func (o *Orchestrator) Stream(ctx context.Context, job *entity.ChatJob, sink Sink) error {
	done := make(chan error, 1)
	if err := o.pool.TrySubmit(func() {
		done <- o.run(ctx, job, sink)
	}); err != nil {
		return err
	}
	return <-done
}

func (o *Orchestrator) run(ctx context.Context, job *entity.ChatJob, sink Sink) error {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.JobTimeout)
	defer cancel()

	em := newEmitter(sink)

	cls, err := o.classifier.Classify(ctx, job.Query)
	if err != nil {
		return o.hardFail(em, job, "intent classification failed", err)
	}
	job.Intent = string(cls.Label)
	job.Confidence = cls.Confidence
	label := cls.Label

	if label == intent.OutOfScope {
		job.Fail("query out of scope")
		o.jobs.Save(job)
		o.emitSafe(em, StreamEvent{
			EventType:  EventError,
			Content:    "This assistant only answers questions about international trade, HS codes, and shipments.",
			IsComplete: true,
		})
		return nil
	}

	if !job.MarkProcessing() {
		return o.hardFail(em, job, "job in unexpected state", fmt.Errorf("status %s", job.Status))
	}
	o.jobs.Save(job)

	// Preamble: classification result, then session/auth notice, always
	// before any generation or detail events.
	authed := job.IsAuthenticated()
	if err := em.emit(StreamEvent{
		EventType:      EventInitialMetadata,
		Intent:         job.Intent,
		Confidence:     floatPtr(job.Confidence),
		IsTradeRelated: boolPtr(true),
	}); err != nil {
		return o.disconnect(cancel, job, err)
	}
	if err := em.emit(StreamEvent{
		EventType:        EventSessionInfo,
		IsAuthenticated:  boolPtr(authed),
		RecordingEnabled: boolPtr(authed),
	}); err != nil {
		return o.disconnect(cancel, job, err)
	}

	// Thinking band: retrieval happens here because its output feeds
	// generation. Best effort throughout.
	if err := em.emit(StreamEvent{EventType: EventThinkingStart, Content: "Analyzing your question"}); err != nil {
		return o.disconnect(cancel, job, err)
	}
	candidates := o.retrieve(ctx, job, em)
	if err := em.emit(StreamEvent{EventType: EventThinkingComplete}); err != nil {
		return o.disconnect(cancel, job, err)
	}

	history, err := o.recorder.Context(ctx, job)
	if err != nil {
		// Soft: an ungrounded-in-history answer beats no answer.
		o.log.Warn("chatstream", "conversation context unavailable", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  err.Error(),
		})
		history = nil
	}

	// Launch the concurrent workstreams.
	fragments := make(chan string)
	genCh := make(chan generationDone, 1)
	detailCh := make(chan detailDone, 1)

	go func() {
		result, genErr := o.generator.Stream(ctx, label, job.Query, history, candidates, func(f string) error {
			select {
			case fragments <- f:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		close(fragments)
		if genErr != nil {
			genCh <- generationDone{outcome: OutcomeFailed, err: genErr}
			return
		}
		genCh <- generationDone{outcome: OutcomeSuccess, result: result}
	}()

	go func() {
		detailCh <- detailDone{buttons: o.preparer.Prepare(ctx, label, candidates)}
	}()

	// Merge loop: first-available-wins across the two event-producing
	// lanes, with button events held back until answer text is flowing.
	scanner := extract.NewScanner()
	var bookmark entity.BookmarkSuggestion
	var buttons, pendingButtons []entity.DetailButton
	started, anyFragment := false, false
	fragmentsOpen, buttonsPending := true, true

	for fragmentsOpen || buttonsPending {
		select {
		case f, ok := <-fragments:
			if !ok {
				fragmentsOpen = false
				fragments = nil
				continue
			}
			if !started {
				if err := em.emit(StreamEvent{EventType: EventMainMessageStart}); err != nil {
					return o.disconnect(cancel, job, err)
				}
				started = true
			}
			ev := StreamEvent{EventType: EventMainMessageData, Content: f}
			if !bookmark.Available {
				if codes := scanner.Scan(f); len(codes) > 0 {
					bookmark = entity.BookmarkSuggestion{Available: true, Code: codes[0]}
					ev.BookmarkData = &bookmark
				}
			}
			if err := em.emit(ev); err != nil {
				return o.disconnect(cancel, job, err)
			}
			anyFragment = true

			for _, b := range pendingButtons {
				b := b
				if err := em.emit(StreamEvent{EventType: EventDetailButtonReady, Button: &b}); err != nil {
					return o.disconnect(cancel, job, err)
				}
			}
			buttons = append(buttons, pendingButtons...)
			pendingButtons = nil

		case d := <-detailCh:
			buttonsPending = false
			detailCh = nil
			if anyFragment {
				for _, b := range d.buttons {
					b := b
					if err := em.emit(StreamEvent{EventType: EventDetailButtonReady, Button: &b}); err != nil {
						return o.disconnect(cancel, job, err)
					}
				}
				buttons = append(buttons, d.buttons...)
			} else {
				pendingButtons = d.buttons
			}

		case <-ctx.Done():
			return o.timedOut(em, job, ctx.Err())
		}
	}

	var gen generationDone
	select {
	case gen = <-genCh:
	case <-ctx.Done():
		return o.timedOut(em, job, ctx.Err())
	}

	if gen.outcome == OutcomeFailed {
		if ctx.Err() != nil {
			return o.timedOut(em, job, ctx.Err())
		}
		return o.hardFail(em, job, "answer generation failed", gen.err)
	}

	// Buttons that arrived before any text, on an answer that produced no
	// fragments at all, still go out before the terminal event.
	for _, b := range pendingButtons {
		b := b
		if err := em.emit(StreamEvent{EventType: EventDetailButtonReady, Button: &b}); err != nil {
			return o.disconnect(cancel, job, err)
		}
	}
	buttons = append(buttons, pendingButtons...)

	if !bookmark.Available {
		if codes := scanner.Flush(); len(codes) > 0 {
			bookmark = entity.BookmarkSuggestion{Available: true, Code: codes[0]}
		}
	}
	if !bookmark.Available && len(candidates) > 0 && candidates[0].Score >= o.cfg.BookmarkMinScore {
		bookmark = entity.BookmarkSuggestion{Available: true, Code: candidates[0].Code}
	}

	meta := entity.JobMetadata{
		Citations: gen.result.Citations,
		Buttons:   buttons,
		Bookmark:  bookmark,
	}

	// History write is awaited before the terminal event so completion only
	// ever follows the durable-write attempt. Failure is soft.
	job.Answer = gen.result.Text
	job.Metadata = meta
	recorded := false
	if recErr := o.recorder.Record(ctx, job); recErr != nil {
		o.log.Warn("chatstream", "history not recorded", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  recErr.Error(),
		})
	} else {
		recorded = authed
	}

	job.Complete(gen.result.Text, meta)
	o.jobs.Save(job)

	return em.emit(StreamEvent{
		EventType:       EventMainMessageComplete,
		FullMessage:     gen.result.Text,
		Metadata:        &meta,
		HistoryRecorded: boolPtr(recorded),
		IsComplete:      true,
	})
}

// retrieve runs semantic retrieval as best-effort augmentation. Failure
// degrades to ungrounded generation, logged but never raised to the client.
func (o *Orchestrator) retrieve(ctx context.Context, job *entity.ChatJob, em *emitter) []retrieval.Candidate {
	candidates, err := o.retriever.Retrieve(ctx, job.Query)
	if err != nil {
		o.log.Warn("chatstream", "retrieval degraded", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  err.Error(),
		})
		return nil
	}
	if len(candidates) > 0 {
		o.emitSafe(em, StreamEvent{
			EventType: EventThinkingData,
			Content:   fmt.Sprintf("Found %d related HS code records", len(candidates)),
		})
	}
	return candidates
}

// hardFail marks the job Failed and closes the stream with the single
// terminal error event.
func (o *Orchestrator) hardFail(em *emitter, job *entity.ChatJob, msg string, err error) error {
	o.log.Error("chatstream", msg, map[string]interface{}{
		"job_id": job.Id.String(),
		"error":  err.Error(),
	})
	job.Fail(msg)
	o.jobs.Save(job)
	o.emitSafe(em, StreamEvent{
		EventType:  EventError,
		Content:    "Something went wrong while answering your question. Please try again.",
		IsComplete: true,
	})
	return fmt.Errorf("%s: %w", msg, err)
}

func (o *Orchestrator) timedOut(em *emitter, job *entity.ChatJob, err error) error {
	reason := "job timed out"
	if errors.Is(err, context.Canceled) {
		reason = "job cancelled"
	}
	job.Fail(reason)
	o.jobs.Save(job)
	o.emitSafe(em, StreamEvent{
		EventType:  EventError,
		Content:    "The request took too long and was aborted.",
		IsComplete: true,
	})
	return fmt.Errorf("%s: %w", reason, err)
}

// disconnect handles a dead sink: cancel everything in flight; the token
// was already consumed, so the job is unrecoverable.
func (o *Orchestrator) disconnect(cancel context.CancelFunc, job *entity.ChatJob, err error) error {
	cancel()
	job.Fail("client disconnected")
	o.jobs.Save(job)
	o.log.Info("chatstream", "client disconnected mid-stream", map[string]interface{}{
		"job_id": job.Id.String(),
	})
	return fmt.Errorf("client disconnected: %w", err)
}

// emitSafe emits where a sink failure no longer changes the outcome.
func (o *Orchestrator) emitSafe(em *emitter, ev StreamEvent) {
	if err := em.emit(ev); err != nil {
		o.log.Debug("chatstream", "emit after sink failure", map[string]interface{}{
			"event": string(ev.EventType),
		})
	}
}
