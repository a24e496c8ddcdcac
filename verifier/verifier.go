package verifier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"listinglens/features"
	"listinglens/logging"
	"listinglens/matching"
	"listinglens/reference"
	"listinglens/types"
)

const (
	issueNoMatch = "uploaded images do not match reference imagery at the given coordinate"

	recommendationVerified = "Uploaded images match reference imagery for the listed location."
	recommendationNoMatch  = "Request additional photographic proof or schedule a manual inspection."
	recommendationNoRef    = "Could not verify the location; check the coordinate or inspect manually."
)

// Candidate is one uploaded photo, identified by name for logging and audit
type Candidate struct {
	Name string
	Data []byte
}

// LoadCandidates reads candidate images from disk. Unreadable files are
// logged and dropped; they reduce the candidate pool rather than abort.
func LoadCandidates(paths []string) []Candidate {
	candidates := make([]Candidate, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			logging.LogWarning("cannot read candidate image %s: %v", path, err)
			continue
		}
		candidates = append(candidates, Candidate{Name: filepath.Base(path), Data: data})
	}
	return candidates
}

// FeatureSource turns raw image bytes into a feature set
type FeatureSource interface {
	FromBytes(data []byte) (features.FeatureSet, error)
}

// Options carries the scoring policy values. All of them are configuration,
// not hidden constants.
type Options struct {
	// MinMatches is the minimum surviving correspondence count for acceptance
	MinMatches int

	// CrossCheck requires mutually nearest descriptor pairs
	CrossCheck bool

	// NoMatchScore is assigned when no candidate is accepted
	NoMatchScore int

	// Workers bounds parallel candidate evaluation; 1 runs sequentially
	Workers int

	// DedupDistance skips candidates perceptually identical to an already
	// rejected one (difference-hash Hamming distance); negative disables
	DedupDistance int

	// OnExtract, when set, is invoked with the candidate name before each
	// feature extraction. Used to observe the early-exit behavior. With
	// Workers > 1 it is called from worker goroutines and must be safe
	// for concurrent use.
	OnExtract func(name string)
}

// Scorer orchestrates reference acquisition, feature extraction and matching
// into the final authenticity result
type Scorer struct {
	acquirer  reference.Acquirer
	extractor FeatureSource
	matcher   *matching.Matcher
	evaluator matching.Evaluator
	opts      Options
}

// NewScorer creates a scorer with explicit collaborators. The caller owns
// the lifecycle of the acquirer and extractor.
func NewScorer(acquirer reference.Acquirer, extractor FeatureSource, opts Options) *Scorer {
	if opts.MinMatches < 1 {
		opts.MinMatches = 11
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	return &Scorer{
		acquirer:  acquirer,
		extractor: extractor,
		matcher:   matching.NewMatcher(opts.CrossCheck),
		evaluator: matching.Evaluator{MinMatches: opts.MinMatches},
		opts:      opts,
	}
}

// VerifyAuthenticity decides whether any candidate image plausibly depicts
// the location at the given coordinate. The result always carries a score,
// an issues list and a recommendation; no error escapes to the caller.
func (s *Scorer) VerifyAuthenticity(ctx context.Context, candidates []Candidate, lat, lng float64) types.AuthenticityResult {
	refBytes, err := s.acquirer.FetchReferenceImage(ctx, lat, lng)
	if err != nil {
		logging.LogError("reference acquisition failed: %v", err)
		return types.AuthenticityResult{
			Score:          0,
			Issues:         []string{fmt.Sprintf("could not acquire reference imagery: %v", err)},
			Recommendation: recommendationNoRef,
		}
	}

	// Extract the reference feature set once, before any candidate work.
	// Undecodable reference bytes mean there is effectively no imagery at
	// the coordinate, so this degrades like an acquisition failure.
	refSet, err := s.extractor.FromBytes(refBytes)
	if err != nil {
		logging.LogError("reference image undecodable: %v", err)
		return types.AuthenticityResult{
			Score:          0,
			Issues:         []string{fmt.Sprintf("could not acquire reference imagery: %v", err)},
			Recommendation: recommendationNoRef,
		}
	}

	logging.DebugLog("reference feature set: %d keypoints", len(refSet))

	verdict := s.search(ctx, candidates, refSet)
	if verdict.Matched {
		logging.LogInfo("candidate %s accepted with %d supporting matches", verdict.Source, verdict.SupportingMatches)
		return types.AuthenticityResult{
			Score:          100,
			Issues:         []string{},
			Recommendation: recommendationVerified,
			MatchedImage:   verdict.Source,
		}
	}

	return types.AuthenticityResult{
		Score:          s.opts.NoMatchScore,
		Issues:         []string{issueNoMatch},
		Recommendation: recommendationNoMatch,
	}
}

// search evaluates candidates in supplied order, stopping at the first
// accepted match. One confirmed match is sufficient corroboration.
func (s *Scorer) search(ctx context.Context, candidates []Candidate, refSet features.FeatureSet) types.AuthenticityVerdict {
	if s.opts.Workers <= 1 {
		return s.searchSequential(ctx, candidates, refSet)
	}
	return s.searchParallel(ctx, candidates, refSet)
}

func (s *Scorer) searchSequential(ctx context.Context, candidates []Candidate, refSet features.FeatureSet) types.AuthenticityVerdict {
	dedup := newDedupFilter(s.opts.DedupDistance)

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		if verdict, accepted := s.evaluateCandidate(candidate, refSet, dedup); accepted {
			return verdict
		}
	}

	return types.AuthenticityVerdict{}
}

// searchParallel fans candidates out over a bounded worker set. The first
// acceptance cancels the shared context; cancellation is advisory, so an
// already-started extraction is allowed to finish.
func (s *Scorer) searchParallel(ctx context.Context, candidates []Candidate, refSet features.FeatureSet) types.AuthenticityVerdict {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.opts.Workers)

	dedup := newDedupFilter(s.opts.DedupDistance)

	var mu sync.Mutex
	var accepted types.AuthenticityVerdict

	for _, candidate := range candidates {
		if groupCtx.Err() != nil {
			break
		}

		candidate := candidate
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}

			if verdict, ok := s.evaluateCandidate(candidate, refSet, dedup); ok {
				mu.Lock()
				if !accepted.Matched {
					accepted = verdict
				}
				mu.Unlock()
				cancel()
			}
			return nil
		})
	}

	group.Wait()
	return accepted
}

// evaluateCandidate runs decode, extraction, matching and evaluation for one
// candidate. Failures are absorbed: they shrink the candidate pool, never
// abort the batch.
func (s *Scorer) evaluateCandidate(candidate Candidate, refSet features.FeatureSet, dedup *dedupFilter) (types.AuthenticityVerdict, bool) {
	if dedup.seenRejected(candidate.Data) {
		logging.LogCandidateSkipped(candidate.Name, "perceptual duplicate of a rejected candidate")
		return types.AuthenticityVerdict{Source: candidate.Name}, false
	}

	if s.opts.OnExtract != nil {
		s.opts.OnExtract(candidate.Name)
	}

	candidateSet, err := s.extractor.FromBytes(candidate.Data)
	if err != nil {
		logging.LogCandidateSkipped(candidate.Name, err.Error())
		return types.AuthenticityVerdict{Source: candidate.Name}, false
	}

	result := s.matcher.Match(candidateSet, refSet)
	evaluation := s.evaluator.Evaluate(result)

	logging.DebugLog("candidate %s: %d keypoints, %d surviving pairs, accepted=%v",
		candidate.Name, len(candidateSet), evaluation.Strength, evaluation.Accepted)

	if !evaluation.Accepted {
		dedup.remember(candidate.Data)
		return types.AuthenticityVerdict{Source: candidate.Name, SupportingMatches: evaluation.Strength}, false
	}

	return types.AuthenticityVerdict{
		Matched:           true,
		SupportingMatches: evaluation.Strength,
		Source:            candidate.Name,
	}, true
}
