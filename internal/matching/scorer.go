package matching

import (
	"log/slog"
	"sort"

	"sourcelink/internal/logging"
	"sourcelink/internal/textutil"
)

// DefaultHighConfidenceThreshold is the score above which an accepted match
// is persisted without review.
const DefaultHighConfidenceThreshold = 65

// ScorerOptions tune a Scorer. Zero Weights select DefaultWeights and a zero
// HighConfidenceThreshold selects DefaultHighConfidenceThreshold.
type ScorerOptions struct {
	Weights                 Weights
	AcceptThreshold         int
	HighConfidenceThreshold int
}

// Scorer ranks candidates against a target record.
type Scorer struct {
	weights Weights
	accept  int
	high    int
	logger  *slog.Logger
}

// NewScorer constructs a scorer.
func NewScorer(opts ScorerOptions, logger *slog.Logger) *Scorer {
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights()
	}
	if opts.HighConfidenceThreshold == 0 {
		opts.HighConfidenceThreshold = DefaultHighConfidenceThreshold
	}
	return &Scorer{
		weights: opts.Weights,
		accept:  opts.AcceptThreshold,
		high:    opts.HighConfidenceThreshold,
		logger:  logging.NewComponentLogger(logger, "scorer"),
	}
}

// Score returns the signed score of cand against target.
func (s *Scorer) Score(cand Candidate, target TargetRecord) int {
	return s.Evaluate(cand, target).Score
}

// Evaluate scores cand and records each signal's contribution.
func (s *Scorer) Evaluate(cand Candidate, target TargetRecord) ScoredCandidate {
	var b Breakdown
	b.Containment = textSimilarity(s.weights, target, cand)
	b.Season, b.SeasonReason = seasonAgreement(s.weights, target, cand)
	b.Year = yearProximity(s.weights, target, cand)
	b.Type = typeAgreement(s.weights, target, cand)
	return ScoredCandidate{Candidate: cand, Score: b.Total(), Breakdown: b}
}

// Rank scores every candidate and orders them by descending score. Equal
// scores keep their input order, so Rank(...)[0] is the candidate PickBest
// considers.
func (s *Scorer) Rank(candidates []Candidate, target TargetRecord) []ScoredCandidate {
	ranked := make([]ScoredCandidate, 0, len(candidates))
	for _, cand := range candidates {
		ranked = append(ranked, s.Evaluate(cand, target))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// PickBest returns the candidate with the strictly highest score. The first
// candidate wins a tie. The result is reported only when its score exceeds
// the acceptance threshold.
func (s *Scorer) PickBest(candidates []Candidate, target TargetRecord) (ScoredCandidate, bool) {
	if len(candidates) == 0 {
		return ScoredCandidate{}, false
	}

	logger := s.logger.With(logging.String(logging.FieldCanonicalID, target.CanonicalID))
	logger.Debug("scoring candidates",
		logging.String("target_title", target.PrimaryTitle()),
		logging.Int("candidate_count", len(candidates)))

	var best ScoredCandidate
	found := false
	for idx, cand := range candidates {
		scored := s.Evaluate(cand, target)
		attrs := append(logging.CandidateAttrs(cand.SourceID, cand.Title, scored.Score),
			logging.Int("candidate_index", idx),
			logging.Int("containment", scored.Breakdown.Containment),
			logging.Int("season", scored.Breakdown.Season),
			logging.String("season_reason", scored.Breakdown.SeasonReason),
			logging.Int("year", scored.Breakdown.Year),
			logging.Int("type", scored.Breakdown.Type),
			logging.Float64("title_similarity", textutil.Similarity(cand.Title, target.PrimaryTitle())))
		logger.Info("candidate scored", logging.Args(attrs...)...)
		if !found || scored.Score > best.Score {
			best = scored
			found = true
		}
	}

	result, reason, msg := "accepted", "score above acceptance threshold", "best candidate accepted"
	if !s.Accepted(best.Score) {
		result, reason, msg = "rejected", "score at or below acceptance threshold", "best candidate rejected"
	}
	attrs := append(logging.DecisionAttrs("match_selection", result, reason),
		logging.CandidateAttrs(best.Candidate.SourceID, best.Candidate.Title, best.Score)...)
	attrs = append(attrs, logging.Int("threshold", s.accept))
	logger.Info(msg, logging.Args(attrs...)...)
	if !s.Accepted(best.Score) {
		return ScoredCandidate{}, false
	}
	return best, true
}

// Accepted reports whether score clears the acceptance threshold.
func (s *Scorer) Accepted(score int) bool {
	return score > s.accept
}

// IsHighConfidence reports whether an accepted match may be persisted without
// review: either its score exceeds the high-confidence threshold or its title
// equals one of the target's titles or synonyms after normalization.
func (s *Scorer) IsHighConfidence(scored ScoredCandidate, target TargetRecord) bool {
	if !s.Accepted(scored.Score) {
		return false
	}
	return scored.Score > s.high || aliasEqual(target, scored.Candidate)
}

// Thresholds returns the acceptance and high-confidence thresholds.
func (s *Scorer) Thresholds() (accept, high int) {
	return s.accept, s.high
}
