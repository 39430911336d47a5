package roblox

import (
	"context"
	"time"

	"capedash/internal/domain"
	"capedash/internal/infra"
)

// Outcome classifies the result of an image id resolution.
type Outcome int

const (
	// OutcomePending means no image id was found within the budget. The
	// asset is most likely still in moderation; this is not a failure.
	OutcomePending Outcome = iota
	// OutcomeResolved carries an image id.
	OutcomeResolved
	// OutcomeInvalid means the asset id was rejected before any lookup.
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "pending"
	}
}

// Resolution is the result of Resolver.Resolve.
type Resolution struct {
	Outcome  Outcome
	AssetID  domain.AssetID
	ImageID  domain.ImageID
	Source   string
	Attempts int
}

// Resolved reports whether an image id was found.
func (r Resolution) Resolved() bool { return r.Outcome == OutcomeResolved }

// Lookup is the pair of remote calls the resolver polls.
type Lookup interface {
	Thumbnails(ctx context.Context, assetID string) ([]ThumbnailEntry, error)
	DeliveryURL(ctx context.Context, assetID string) (string, error)
}

// BackoffFunc returns how long to wait before the given attempt (2 or more).
type BackoffFunc func(attempt int) time.Duration

// DefaultBackoff grows linearly with the attempt number: 7s before the second
// attempt, then 9s, 11s, ... and never more than 30s.
func DefaultBackoff(attempt int) time.Duration {
	return min(3*time.Second+time.Duration(attempt)*2*time.Second, 30*time.Second)
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	Backoff BackoffFunc
	Logger  *infra.Logger
}

// Resolver maps asset ids to image ids. It holds no per-call state and is
// safe for concurrent use.
type Resolver struct {
	lookup  Lookup
	backoff BackoffFunc
	logger  *infra.Logger
}

// NewResolver builds a resolver over lookup.
func NewResolver(lookup Lookup, opts ResolverOptions) *Resolver {
	backoff := opts.Backoff
	if backoff == nil {
		backoff = DefaultBackoff
	}
	return &Resolver{
		lookup:  lookup,
		backoff: backoff,
		logger:  infra.LoggerOrDiscard(opts.Logger),
	}
}

type lookupKind int

const (
	lookupTransient lookupKind = iota
	lookupHit
)

type lookupResult struct {
	kind    lookupKind
	imageID domain.ImageID
	source  string
}

// Resolve polls the thumbnails API up to maxRetries times, then asks the
// asset delivery service once. Transport errors never escape; the caller
// only sees resolved, pending or invalid. maxRetries below 1 is treated as 1.
// Cancelling ctx stops polling and yields a pending resolution.
func (r *Resolver) Resolve(ctx context.Context, rawAssetID string, maxRetries int) Resolution {
	assetID, err := domain.ParseAssetID(rawAssetID)
	if err != nil {
		r.logger.Debug().Str("asset_id", rawAssetID).Msg("roblox: rejected invalid asset id")
		return Resolution{Outcome: OutcomeInvalid}
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	res := Resolution{Outcome: OutcomePending, AssetID: assetID}
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 && !r.wait(ctx, r.backoff(attempt)) {
			r.logger.Debug().Str("asset_id", assetID.String()).Int("attempt", attempt).Msg("roblox: resolution cancelled")
			return res
		}
		res.Attempts = attempt
		found := r.thumbnailAttempt(ctx, assetID)
		if found.kind == lookupHit {
			r.logger.Info().
				Str("asset_id", assetID.String()).
				Str("image_id", found.imageID.String()).
				Str("source", found.source).
				Int("attempt", attempt).
				Msg("roblox: resolved image id")
			res.Outcome, res.ImageID, res.Source = OutcomeResolved, found.imageID, found.source
			return res
		}
		r.logger.Debug().
			Str("asset_id", assetID.String()).
			Int("attempt", attempt).
			Int("max_retries", maxRetries).
			Msg("roblox: image id not available yet")
	}

	if ctx.Err() != nil {
		return res
	}
	found := r.deliveryAttempt(ctx, assetID)
	if found.kind == lookupHit {
		r.logger.Info().
			Str("asset_id", assetID.String()).
			Str("image_id", found.imageID.String()).
			Str("source", found.source).
			Msg("roblox: resolved image id")
		res.Outcome, res.ImageID, res.Source = OutcomeResolved, found.imageID, found.source
		return res
	}
	r.logger.Info().
		Str("asset_id", assetID.String()).
		Int("attempts", res.Attempts).
		Msg("roblox: image id still pending")
	return res
}

func (r *Resolver) thumbnailAttempt(ctx context.Context, assetID domain.AssetID) lookupResult {
	entries, err := r.lookup.Thumbnails(ctx, assetID.String())
	if err != nil {
		r.logger.Debug().Err(err).Str("asset_id", assetID.String()).Msg("roblox: thumbnails lookup failed")
		return lookupResult{kind: lookupTransient}
	}
	if len(entries) == 0 {
		return lookupResult{kind: lookupTransient}
	}
	id, source, ok := extractFromEntry(assetID, entries[0])
	if !ok {
		return lookupResult{kind: lookupTransient}
	}
	return lookupResult{kind: lookupHit, imageID: id, source: source}
}

func (r *Resolver) deliveryAttempt(ctx context.Context, assetID domain.AssetID) lookupResult {
	finalURL, err := r.lookup.DeliveryURL(ctx, assetID.String())
	if err != nil {
		r.logger.Debug().Err(err).Str("asset_id", assetID.String()).Msg("roblox: asset delivery lookup failed")
		return lookupResult{kind: lookupTransient}
	}
	id, ok := extractFromDeliveryURL(assetID, finalURL)
	if !ok {
		return lookupResult{kind: lookupTransient}
	}
	return lookupResult{kind: lookupHit, imageID: id, source: SourceDeliveryURL}
}

func (r *Resolver) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
