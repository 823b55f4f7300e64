package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fpang/cinegen/internal/chat"
	"github.com/fpang/cinegen/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrBusy is returned when a run is already in progress.
	ErrBusy = errors.New("a generation is already in progress")
	// ErrCredentialMissing is returned when no API key is selected and selection was declined.
	ErrCredentialMissing = errors.New("no API key selected")
	// ErrNoVariation is returned when the requested variation does not exist.
	ErrNoVariation = errors.New("no such variation; enhance a prompt first")
	// ErrEmptyPrompt is returned for a blank prompt without a usable reference image.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrInvalidMode is returned for an unknown media mode.
	ErrInvalidMode = errors.New("invalid mode")
)

// Orchestrator owns the studio state and runs one generation at a time.
type Orchestrator struct {
	creds   CredentialSelector
	factory GeneratorFactory
	now     func() time.Time
	// slot admits one run at a time; a second caller is rejected, not queued.
	slot *semaphore.Weighted

	mu          sync.Mutex
	runID       string
	status      Status
	media       *MediaResult
	enhancement *chat.Enhancement
	updatedAt   time.Time

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// New creates an Orchestrator.
func New(creds CredentialSelector, factory GeneratorFactory) *Orchestrator {
	return &Orchestrator{
		creds:   creds,
		factory: factory,
		now:     time.Now,
		slot:    semaphore.NewWeighted(1),
		subs:    make(map[int]func(Snapshot)),
	}
}

// Subscribe registers fn to receive a snapshot after every transition.
// The returned function unregisters it.
func (o *Orchestrator) Subscribe(fn func(Snapshot)) func() {
	o.subMu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	o.subMu.Unlock()

	return func() {
		o.subMu.Lock()
		delete(o.subs, id)
		o.subMu.Unlock()
	}
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	s := Snapshot{
		RunID:     o.runID,
		Status:    o.status,
		UpdatedAt: o.updatedAt,
	}
	if o.media != nil {
		m := *o.media
		s.Media = &m
	}
	if o.enhancement != nil {
		e := *o.enhancement
		e.Suggestions = append([]string(nil), o.enhancement.Suggestions...)
		s.Enhancement = &e
	}
	return s
}

// update applies fn under the lock and then notifies subscribers.
func (o *Orchestrator) update(fn func()) Snapshot {
	o.mu.Lock()
	fn()
	o.updatedAt = o.now()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(o.subs))
	for _, s := range o.subs {
		subs = append(subs, s)
	}
	o.subMu.Unlock()
	for _, s := range subs {
		s(snap)
	}
	return snap
}

// acquire claims the single run slot and makes sure a credential is
// selected. On error the slot is released and no state has changed.
func (o *Orchestrator) acquire(ctx context.Context) (string, error) {
	if !o.slot.TryAcquire(1) {
		return "", ErrBusy
	}

	key, err := o.credential(ctx)
	if err != nil {
		o.release()
		return "", err
	}
	return key, nil
}

func (o *Orchestrator) release() {
	o.slot.Release(1)
}

func (o *Orchestrator) credential(ctx context.Context) (string, error) {
	if !o.creds.HasSelected(ctx) {
		if err := o.creds.Select(ctx); err != nil {
			log.Info().Err(err).Msg("Credential selection did not complete")
			return "", fmt.Errorf("%w: %w", ErrCredentialMissing, err)
		}
		if !o.creds.HasSelected(ctx) {
			return "", ErrCredentialMissing
		}
	}
	key, err := o.creds.Key(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCredentialMissing, err)
	}
	return key, nil
}

// Run performs one generation. Precondition failures (ErrBusy,
// ErrCredentialMissing, ErrEmptyPrompt, ErrInvalidMode) leave the state
// untouched. Any other returned error has already been recorded in the
// snapshot's status.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Snapshot, error) {
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return o.Snapshot(), err
	}
	hasReference := strings.TrimSpace(req.ReferenceImage) != ""
	blank := strings.TrimSpace(req.Input) == ""
	if blank && !hasReference {
		return o.Snapshot(), ErrEmptyPrompt
	}
	// Only video generation consumes the reference image.
	reference := ""
	if mode == ModeVideo {
		reference = strings.TrimSpace(req.ReferenceImage)
	}
	enhance := !req.SkipEnhancement && !blank

	key, err := o.acquire(ctx)
	if err != nil {
		return o.Snapshot(), err
	}
	defer o.release()

	runID := uuid.NewString()
	start := time.Now()
	rec := metrics.New(metrics.Namespace).
		Dimension("Mode", string(mode)).
		Property("runId", runID).
		Property("skipEnhancement", req.SkipEnhancement).
		Property("imageToVideo", reference != "")

	logger := log.With().Str("runId", runID).Str("mode", string(mode)).Logger()
	logger.Info().
		Int("input_length", len(req.Input)).
		Bool("reference", reference != "").
		Bool("skip_enhancement", req.SkipEnhancement).
		Msg("Generation started")

	progress := MsgRenderingImage
	if mode == ModeVideo {
		progress = MsgRenderingVideo
		if reference != "" {
			progress = MsgAnimatingImage
		}
	}
	generating := Status{Generating: true, ProgressMessage: progress}

	o.update(func() {
		o.runID = runID
		o.media = nil
		if enhance {
			o.status = Status{Enhancing: true, ProgressMessage: MsgAnalyzing}
		} else {
			o.status = generating
		}
	})

	fail := func(err error) (Snapshot, error) {
		kind := chat.KindOf(err)
		logger.Error().Err(err).Str("kind", kind.String()).Msg("Generation failed")
		rec.Dimension("Outcome", kind.String()).
			Duration("RunLatencyMs", time.Since(start)).
			Count("GenerationRuns").
			Flush()
		snap := o.update(func() {
			o.status = Status{
				Error:           chat.UserMessage(err),
				CredentialIssue: chat.IsCredentialIssue(err),
			}
		})
		return snap, err
	}

	gen, err := o.factory(ctx, key)
	if err != nil {
		return fail(err)
	}

	var finalPrompt string
	switch {
	case req.SkipEnhancement:
		finalPrompt = req.Input
	case blank:
		finalPrompt = FallbackVideoPrompt
	default:
		enhanceStart := time.Now()
		enh, err := gen.EnhancePrompt(ctx, req.Input)
		rec.Duration("EnhanceLatencyMs", time.Since(enhanceStart))
		if err != nil {
			return fail(err)
		}
		finalPrompt = enh.FinalPrompt
		o.update(func() {
			o.enhancement = enh
			o.status = generating
		})
	}

	generateStart := time.Now()
	var url string
	if mode == ModeVideo {
		url, err = gen.GenerateVideo(ctx, finalPrompt, reference)
	} else {
		url, err = gen.GenerateImage(ctx, finalPrompt)
	}
	rec.Duration("GenerateLatencyMs", time.Since(generateStart))
	if err != nil {
		return fail(err)
	}

	snap := o.update(func() {
		o.media = &MediaResult{Kind: mode, URL: url, Prompt: finalPrompt}
		o.status = Status{}
	})

	rec.Dimension("Outcome", "success").
		Duration("RunLatencyMs", time.Since(start)).
		Count("GenerationRuns").
		Flush()
	logger.Info().Dur("duration", time.Since(start)).Msg("Generation complete")
	return snap, nil
}

// SelectVariation generates variation n (1 or 2) of the latest enhancement
// without enhancing again. The reference image of the original request is
// not carried over, so a video variation is always text-to-video.
func (o *Orchestrator) SelectVariation(ctx context.Context, n int, mode Mode) (Snapshot, error) {
	o.mu.Lock()
	enh := o.enhancement
	o.mu.Unlock()

	text, ok := enh.Variation(n)
	if !ok {
		return o.Snapshot(), fmt.Errorf("%w: %d", ErrNoVariation, n)
	}
	return o.Run(ctx, Request{Input: text, Mode: mode, SkipEnhancement: true})
}

// Enhance runs only the enhancement step. The result replaces the stored
// enhancement so its variations can be selected; media is left alone.
func (o *Orchestrator) Enhance(ctx context.Context, input string) (*chat.Enhancement, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyPrompt
	}
	key, err := o.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer o.release()

	o.update(func() {
		o.status = Status{Enhancing: true, ProgressMessage: MsgAnalyzing}
	})

	gen, err := o.factory(ctx, key)
	var enh *chat.Enhancement
	if err == nil {
		enh, err = gen.EnhancePrompt(ctx, input)
	}
	if err != nil {
		log.Error().Err(err).Msg("Enhancement failed")
		o.update(func() {
			o.status = Status{Error: chat.UserMessage(err), CredentialIssue: chat.IsCredentialIssue(err)}
		})
		return nil, err
	}

	o.update(func() {
		o.enhancement = enh
		o.status = Status{}
	})
	copied := *enh
	copied.Suggestions = append([]string(nil), enh.Suggestions...)
	return &copied, nil
}
