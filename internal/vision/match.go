package vision

// descriptorMatch links a query descriptor to its best train descriptor.
type descriptorMatch struct {
	query    int
	train    int
	distance int
}

// matchDescriptors runs 2-nearest-neighbor matching with the ratio test: a
// query descriptor produces a match only when its best distance is below
// ratio times its second-best distance, which rejects ambiguous matches.
// Fewer than two train descriptors leave every query unverifiable.
func matchDescriptors(query, train []Descriptor, ratio float64) []descriptorMatch {
	if len(train) < 2 {
		return nil
	}
	matches := make([]descriptorMatch, 0, len(query))
	for qi := range query {
		best, second := -1, -1
		bestIdx := -1
		for ti := range train {
			d := query[qi].HammingDistance(train[ti])
			switch {
			case best < 0 || d < best:
				second = best
				best = d
				bestIdx = ti
			case second < 0 || d < second:
				second = d
			}
		}
		if float64(best) < ratio*float64(second) {
			matches = append(matches, descriptorMatch{query: qi, train: bestIdx, distance: best})
		}
	}
	return matches
}
