/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package receive implements the secure message receive pipeline: envelopes
// delivered by the relay are deduplicated, cryptographically unwrapped,
// resolved onto a conversation and persisted exactly once.
package receive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"courier/internal/data"
	"courier/internal/event"
	"courier/internal/keys"
	"courier/internal/nlog"
	"courier/internal/relay"
	"courier/internal/wrap"
)

// Options tune the pipeline. Zero values fall back to the defaults below.
type Options struct {
	DedupCapacity   int           // Size of the envelope id guard
	LiveLookback    time.Duration // How far back the live subscription reaches
	HistoryLookback time.Duration // Default window for history catch-up
	HistoryTimeout  time.Duration // Deadline for one bulk history query
	HistoryWorkers  int           // Concurrent envelope processors during catch-up
}

const (
	defaultDedupCapacity   = 4096
	defaultLiveLookback    = 7 * 24 * time.Hour
	defaultHistoryLookback = 30 * 24 * time.Hour
	defaultHistoryTimeout  = 30 * time.Second
	defaultHistoryWorkers  = 4
)

func (o Options) withDefaults() Options {
	if o.DedupCapacity <= 0 {
		o.DedupCapacity = defaultDedupCapacity
	}
	if o.LiveLookback <= 0 {
		o.LiveLookback = defaultLiveLookback
	}
	if o.HistoryLookback <= 0 {
		o.HistoryLookback = defaultHistoryLookback
	}
	if o.HistoryTimeout <= 0 {
		o.HistoryTimeout = defaultHistoryTimeout
	}
	if o.HistoryWorkers <= 0 {
		o.HistoryWorkers = defaultHistoryWorkers
	}
	return o
}

// Receiver owns the live subscription and runs every delivered envelope
// through the unwrap/resolve/persist chain. One receiver serves one local
// identity at a time; all collaborators are injected so that tests and
// multi-identity setups need no shared globals.
type Receiver struct {
	transport relay.Transport
	keyring   *keys.Keyring
	store     Store
	logger    nlog.Logger
	opts      Options

	dedup      *DedupGuard
	resolver   *Resolver
	reconciler *Reconciler

	mu       sync.Mutex
	identity string // bound identity pubkey, empty while stopped
	handle   relay.Handle
	inflight sync.WaitGroup
}

func NewReceiver(transport relay.Transport, keyring *keys.Keyring, store Store, notifier *data.Notifier, logger nlog.Logger, opts Options) *Receiver {
	opts = opts.withDefaults()
	return &Receiver{
		transport:  transport,
		keyring:    keyring,
		store:      store,
		logger:     logger,
		opts:       opts,
		dedup:      NewDedupGuard(opts.DedupCapacity),
		resolver:   NewResolver(store, logger),
		reconciler: NewReconciler(store, notifier, logger),
	}
}

// Start binds the receiver to an identity and opens the live subscription.
// Starting twice for the same identity is a no-op; starting for a different
// identity tears the previous subscription down first.
func (r *Receiver) Start(identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.identity == identity && r.handle != "" {
		return nil
	}
	if r.handle != "" {
		if err := r.transport.Unsubscribe(r.handle); err != nil {
			r.logger.Logf("Error while closing subscription for %s: %v", r.identity, err)
		}
		r.handle = ""
		r.identity = ""
	}

	filters := []relay.Filter{{
		Kinds: []int{event.KindGiftWrap},
		PTags: []string{identity},
		Since: time.Now().Add(-r.opts.LiveLookback).Unix(),
	}}

	handle, err := r.transport.Subscribe(filters, func(ev *event.Event) {
		// Envelopes are independent: process each without blocking the
		// delivery of the next one.
		r.inflight.Add(1)
		go func() {
			defer r.inflight.Done()
			r.ProcessEnvelope(ev)
		}()
	}, func() {
		r.logger.Logf("Relay drained stored envelopes for %s", identity)
	})
	if err != nil {
		return fmt.Errorf("subscribe for %s: %w", identity, err)
	}

	r.identity = identity
	r.handle = handle
	r.logger.Logf("Receive pipeline running for %s", identity)
	return nil
}

// Stop cancels the subscription and unbinds the identity. In-flight envelopes
// are allowed to finish: they are cheap and idempotent, and aborting between
// the message insert and the summary update would break their atomicity.
func (r *Receiver) Stop() {
	r.mu.Lock()
	if r.handle != "" {
		if err := r.transport.Unsubscribe(r.handle); err != nil {
			r.logger.Logf("Error while closing subscription for %s: %v", r.identity, err)
		}
	}
	r.handle = ""
	r.identity = ""
	r.mu.Unlock()

	r.inflight.Wait()
}

// Identity returns the currently bound identity, empty while stopped.
func (r *Receiver) Identity() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity
}

// HandleRaw decodes a raw transport record and processes it.
func (r *Receiver) HandleRaw(raw []byte) bool {
	ev, err := event.DecodeEnvelope(raw)
	if err != nil {
		r.logger.Logf("Discarding malformed envelope: %v", err)
		return false
	}
	return r.ProcessEnvelope(ev)
}

// ProcessEnvelope runs one envelope through the full pipeline, reporting
// whether a new message was persisted. Every failure is terminal for this
// envelope only and is never surfaced to the sender.
func (r *Receiver) ProcessEnvelope(envelope *event.Event) bool {
	keypair, ok := r.keyring.CurrentKeypair()
	if !ok {
		// Locked: drop without touching the dedup guard, so the envelope can
		// be reprocessed legitimately after unlock.
		r.logger.Logf("Identity locked, dropping envelope %s", envelope.ID)
		return false
	}

	if err := event.ValidateEnvelope(envelope); err != nil {
		r.logger.Logf("Discarding malformed envelope: %v", err)
		return false
	}

	if r.dedup.Seen(envelope.ID) {
		return false
	}

	unwrapped, err := wrap.Unwrap(envelope, keypair)
	if err != nil {
		r.logUnwrapFailure(envelope.ID, err)
		return false
	}

	conversation, err := r.resolver.Resolve(unwrapped.Rumor, unwrapped.SenderPubkey, keypair.PublicHex())
	if err != nil {
		if errors.Is(err, ErrNotAddressedToLocalUser) || errors.Is(err, ErrNoConversationContext) {
			r.logger.Logf("Unroutable envelope %s: %v", envelope.ID, err)
		} else {
			r.logger.Logf("Store failure while resolving envelope %s: %v", envelope.ID, err)
		}
		return false
	}

	inserted, err := r.reconciler.Persist(conversation, unwrapped.Rumor, unwrapped.SenderPubkey, envelope.ID)
	if err != nil {
		// Infrastructure failure on an already-authenticated message: leave
		// the id unmarked so a re-delivery gets another chance.
		r.logger.Logf("Persist failure for envelope %s: %v", envelope.ID, err)
		return false
	}

	r.dedup.Mark(envelope.ID)
	return inserted
}

// logUnwrapFailure sorts the unwrap errors into the misrouted kind (someone
// else's traffic, informational) and the security-relevant kind. Only the
// envelope id is ever logged, never key material or plaintext.
func (r *Receiver) logUnwrapFailure(envelopeID string, err error) {
	if errors.Is(err, wrap.ErrNotAddressedToUs) {
		r.logger.Logf("Envelope %s is not addressed to us", envelopeID)
		return
	}
	r.logger.Logf("Rejected envelope %s: %v", envelopeID, err)
}

// FetchHistory performs a one-shot bulk catch-up: it queries the relay for
// stored envelopes since the given time and feeds each through the same
// per-envelope pipeline. Overlap with the live subscription is expected; the
// idempotent persistence collapses duplicates. Returns the number of newly
// accepted messages.
func (r *Receiver) FetchHistory(ctx context.Context, since time.Time) (int, error) {
	keypair, ok := r.keyring.CurrentKeypair()
	if !ok {
		return 0, errors.New("identity is locked")
	}

	if since.IsZero() {
		since = time.Now().Add(-r.opts.HistoryLookback)
	}
	filters := []relay.Filter{{
		Kinds: []int{event.KindGiftWrap},
		PTags: []string{keypair.PublicHex()},
		Since: since.Unix(),
	}}

	envelopes, err := r.transport.Query(filters, r.opts.HistoryTimeout)
	if err != nil {
		if len(envelopes) == 0 {
			return 0, fmt.Errorf("history query: %w", err)
		}
		r.logger.Logf("History query ended early after %d envelopes: %v", len(envelopes), err)
	}
	r.logger.Logf("History catch-up fetched %d envelopes", len(envelopes))

	var accepted atomic.Int64
	jobs := make(chan *event.Event)

	var workers sync.WaitGroup
	for range r.opts.HistoryWorkers {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for envelope := range jobs {
				if r.ProcessEnvelope(envelope) {
					accepted.Add(1)
				}
			}
		}()
	}

feed:
	for _, envelope := range envelopes {
		select {
		case jobs <- envelope:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	workers.Wait()

	return int(accepted.Load()), nil
}
