package matching

// Ranker computes the self-consistency rating of every feed stop from the
// feed population alone: each stop is scored against a profile of its own
// station complex using the feed-internal scoring parameters.
type Ranker struct {
	scorer     *Scorer
	neighbours int
}

// NewRanker returns a Ranker that inspects up to neighbours nearby feed stops
// when building a station complex.
func NewRanker(params ScoringParams, neighbours int) (*Ranker, error) {
	scorer, err := NewScorer(params)
	if err != nil {
		return nil, err
	}
	if neighbours < 0 {
		neighbours = 0
	}
	return &Ranker{scorer: scorer, neighbours: neighbours}, nil
}

// Rank returns one Candidate per stop, in input order. The input is not modified.
func (r *Ranker) Rank(stops []Stop) []Candidate {
	entries := make([]IndexEntry[int], len(stops))
	for i, s := range stops {
		entries[i] = IndexEntry[int]{Lat: s.Lat, Lon: s.Lon, Value: i}
	}
	idx := BuildIndex(entries)

	candidates := make([]Candidate, len(stops))
	for i, s := range stops {
		var peers []Stop
		// One extra slot because the stop finds itself.
		for _, j := range idx.Nearest(s.Lat, s.Lon, r.neighbours+1) {
			if j != i && sameComplex(s, stops[j]) {
				peers = append(peers, stops[j])
			}
		}
		candidates[i] = Candidate{Stop: s, SelfRating: r.SelfRating(s, peers)}
	}
	return candidates
}

// SelfRating scores stop against the profile of its station complex peers.
func (r *Ranker) SelfRating(stop Stop, peers []Stop) float64 {
	return r.scorer.Rate(complexProfile(stop, peers), Candidate{Stop: stop})
}

// sameComplex reports whether two feed stops belong to one station complex:
// equal parent stations when both carry a code, equal names otherwise.
func sameComplex(a, b Stop) bool {
	if a.ReferenceCode != "" && b.ReferenceCode != "" {
		return ParentStation(a.ReferenceCode) == ParentStation(b.ReferenceCode)
	}
	return a.Name != "" && a.Name == b.Name
}

// complexProfile summarizes what the rest of a station complex says about stop.
// Without peers the profile is the stop itself.
func complexProfile(stop Stop, peers []Stop) Stop {
	profile := stop
	profile.Lines = append([]string(nil), stop.Lines...)
	if len(peers) == 0 {
		return profile
	}

	lat, lon := stop.Lat, stop.Lon
	for _, p := range peers {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(peers) + 1)
	profile.Lat = lat / n
	profile.Lon = lon / n

	if m := majorityMode(peers); m.Known() {
		profile.Mode = m
	}
	profile.Lines = unionLines(peers)
	return profile
}

// majorityMode returns the most frequent known mode; ties go to the mode seen first.
func majorityMode(stops []Stop) Mode {
	counts := make(map[Mode]int)
	var order []Mode
	for _, s := range stops {
		if !s.Mode.Known() {
			continue
		}
		if counts[s.Mode] == 0 {
			order = append(order, s.Mode)
		}
		counts[s.Mode]++
	}
	best := ModeUnknown
	for _, m := range order {
		if counts[m] > counts[best] {
			best = m
		}
	}
	return best
}

func unionLines(stops []Stop) []string {
	seen := make(map[string]struct{})
	var lines []string
	for _, s := range stops {
		for _, l := range s.Lines {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			lines = append(lines, l)
		}
	}
	return lines
}
