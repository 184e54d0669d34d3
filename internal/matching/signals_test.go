package matching

import "testing"

func TestTextSimilarity(t *testing.T) {
	w := DefaultWeights()
	tests := []struct {
		name   string
		target TargetRecord
		cand   string
		want   int
	}{
		{name: "candidate contains target", target: TargetRecord{Title: "Naruto"}, cand: "Naruto Shippuden", want: 10},
		{name: "target contains candidate", target: TargetRecord{Title: "Jujutsu Kaisen Season 2"}, cand: "Jujutsu Kaisen", want: 10},
		{name: "punctuation ignored", target: TargetRecord{Title: "Re:Zero"}, cand: "re zero", want: 10},
		{name: "english title", target: TargetRecord{Title: "Shingeki no Kyojin", TitleEnglish: "Attack on Titan"}, cand: "Attack on Titan Final", want: 10},
		{name: "unrelated", target: TargetRecord{Title: "One Piece"}, cand: "One Punch Man", want: 0},
		{name: "punctuation-only candidate", target: TargetRecord{Title: "One Piece"}, cand: "!!!", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textSimilarity(w, tt.target, Candidate{Title: tt.cand}); got != tt.want {
				t.Fatalf("textSimilarity() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestYearProximity(t *testing.T) {
	w := DefaultWeights()
	tests := []struct {
		target, cand, want int
	}{
		{2002, 2002, 5},
		{2002, 2003, 5},
		{2002, 2004, 0},
		{2002, 2005, -10},
		{2002, 1990, -10},
		{0, 2002, 0},
		{2002, 0, 0},
	}
	for _, tt := range tests {
		got := yearProximity(w, TargetRecord{Year: tt.target}, Candidate{Year: tt.cand})
		if got != tt.want {
			t.Fatalf("yearProximity(%d, %d) = %d, want %d", tt.target, tt.cand, got, tt.want)
		}
	}
}

func TestTypeAgreement(t *testing.T) {
	w := DefaultWeights()
	tests := []struct {
		target, cand string
		want         int
	}{
		{"TV", "tv", 3},
		{"Movie", " MOVIE ", 3},
		{"TV", "OVA", 0},
		{"", "TV", 0},
		{"TV", "", 0},
	}
	for _, tt := range tests {
		got := typeAgreement(w, TargetRecord{ContentType: tt.target}, Candidate{ContentType: tt.cand})
		if got != tt.want {
			t.Fatalf("typeAgreement(%q, %q) = %d, want %d", tt.target, tt.cand, got, tt.want)
		}
	}
}

func TestSeasonAgreement(t *testing.T) {
	w := DefaultWeights()
	tests := []struct {
		name       string
		target     TargetRecord
		cand       Candidate
		want       int
		wantReason string
	}{
		{name: "both implicit", target: TargetRecord{Title: "Naruto"}, cand: Candidate{Title: "Naruto"}, want: 50, wantReason: SeasonReasonMatch},
		{name: "explicit match", target: TargetRecord{Title: "Show Season 2"}, cand: Candidate{Title: "Show 2nd Season"}, want: 50, wantReason: SeasonReasonMatch},
		{name: "rescued", target: TargetRecord{Title: "Show Season 2", Year: 2021}, cand: Candidate{Title: "Show: Arc", Year: 2022}, want: 30, wantReason: SeasonReasonRescued},
		{name: "rescue year too far", target: TargetRecord{Title: "Show Season 2", Year: 2021}, cand: Candidate{Title: "Show", Year: 2018}, want: -50, wantReason: SeasonReasonImplicit},
		{name: "explicit mismatch", target: TargetRecord{Title: "Show Season 2", Year: 2021}, cand: Candidate{Title: "Show Season 3", Year: 2021}, want: -50, wantReason: SeasonReasonMismatch},
		{name: "sequel against first season target", target: TargetRecord{Title: "Show"}, cand: Candidate{Title: "Show Season 2"}, want: -50, wantReason: SeasonReasonMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := seasonAgreement(w, tt.target, tt.cand)
			if got != tt.want || reason != tt.wantReason {
				t.Fatalf("seasonAgreement() = %d/%s, want %d/%s", got, reason, tt.want, tt.wantReason)
			}
		})
	}
}

func TestAliasEqual(t *testing.T) {
	target := TargetRecord{Title: "Sousou no Frieren", TitleEnglish: "Frieren: Beyond Journey's End", Synonyms: []string{"Frieren"}}
	for _, title := range []string{"sousou no frieren", "FRIEREN", "Frieren - Beyond Journey's End"} {
		if !aliasEqual(target, Candidate{Title: title}) {
			t.Fatalf("expected %q to equal an alias", title)
		}
	}
	if aliasEqual(target, Candidate{Title: "Frieren Season 2"}) {
		t.Fatal("expected sequel title not to equal an alias")
	}
	if aliasEqual(target, Candidate{Title: "..."}) {
		t.Fatal("expected empty normalized title not to equal an alias")
	}
}
