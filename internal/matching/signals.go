package matching

import (
	"strings"

	"sourcelink/internal/textutil"
)

// Weights are the signed contributions of each scoring signal. Only their
// relative order matters: a season mismatch outweighs everything else, the
// year gap is secondary and type agreement breaks near-ties.
type Weights struct {
	Containment    int `json:"containment"`
	SeasonMatch    int `json:"season_match"`
	SeasonRescue   int `json:"season_rescue"`
	SeasonMismatch int `json:"season_mismatch"`
	YearClose      int `json:"year_close"`
	YearFar        int `json:"year_far"`
	TypeMatch      int `json:"type_match"`
}

// DefaultWeights returns the stock signal weights.
func DefaultWeights() Weights {
	return Weights{
		Containment:    10,
		SeasonMatch:    50,
		SeasonRescue:   30,
		SeasonMismatch: -50,
		YearClose:      5,
		YearFar:        -10,
		TypeMatch:      3,
	}
}

// Season agreement outcomes reported in Breakdown.SeasonReason.
const (
	SeasonReasonMatch    = "match"
	SeasonReasonRescued  = "rescued"
	SeasonReasonImplicit = "implicit_mismatch"
	SeasonReasonMismatch = "mismatch"
)

// textSimilarity awards the containment weight when either normalized title
// contains the other. Every non-native target title is tried; the weight is
// awarded at most once.
func textSimilarity(w Weights, target TargetRecord, cand Candidate) int {
	candKey := textutil.NormalizeTitle(cand.Title)
	if candKey == "" {
		return 0
	}
	for _, title := range []string{target.PrimaryTitle(), target.TitleEnglish, target.TitleRomaji} {
		targetKey := textutil.NormalizeTitle(title)
		if targetKey == "" {
			continue
		}
		if strings.Contains(candKey, targetKey) || strings.Contains(targetKey, candKey) {
			return w.Containment
		}
	}
	return 0
}

// seasonAgreement compares the target's season with the candidate's. A
// candidate with no season marker facing a sequel target is rescued when both
// years are known and at most one year apart.
func seasonAgreement(w Weights, target TargetRecord, cand Candidate) (int, string) {
	want, _ := targetSeason(target)
	got, explicit := seasonInfo(cand.Title)
	switch {
	case got == want:
		return w.SeasonMatch, SeasonReasonMatch
	case want > 1 && !explicit:
		if target.Year > 0 && cand.Year > 0 && absInt(target.Year-cand.Year) <= 1 {
			return w.SeasonRescue, SeasonReasonRescued
		}
		return w.SeasonMismatch, SeasonReasonImplicit
	default:
		return w.SeasonMismatch, SeasonReasonMismatch
	}
}

// yearProximity is neutral when either year is unknown or the gap is exactly two.
func yearProximity(w Weights, target TargetRecord, cand Candidate) int {
	if target.Year <= 0 || cand.Year <= 0 {
		return 0
	}
	switch diff := absInt(target.Year - cand.Year); {
	case diff <= 1:
		return w.YearClose
	case diff > 2:
		return w.YearFar
	default:
		return 0
	}
}

func typeAgreement(w Weights, target TargetRecord, cand Candidate) int {
	want := strings.TrimSpace(target.ContentType)
	got := strings.TrimSpace(cand.ContentType)
	if want == "" || got == "" {
		return 0
	}
	if strings.EqualFold(want, got) {
		return w.TypeMatch
	}
	return 0
}

// aliasEqual reports whether the candidate title equals any of the target's
// titles or synonyms after normalization.
func aliasEqual(target TargetRecord, cand Candidate) bool {
	candKey := textutil.NormalizeTitle(cand.Title)
	if candKey == "" {
		return false
	}
	for _, title := range append(target.Titles(), target.Synonyms...) {
		if textutil.NormalizeTitle(title) == candKey {
			return true
		}
	}
	return false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
