package textutil

// Ratio computes a fuzzy similarity score between two strings on a 0-100
// scale: 100 for identical strings, 0 for strings sharing no subsequence.
// The score is the indel similarity 2*LCS/(len(a)+len(b))*100, which
// tolerates the dropped or doubled characters typical of OCR output.
// Callers fold case and accents first (see NormalizeName).
func Ratio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return float64(2*lcsLength(ra, rb)) / float64(total) * 100
}

// lcsLength returns the longest-common-subsequence length using a rolling
// single-row table.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) > len(a) {
		a, b = b, a
	}
	row := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		prev := 0
		for j := 1; j <= len(b); j++ {
			cur := row[j]
			if a[i-1] == b[j-1] {
				row[j] = prev + 1
			} else if row[j-1] > row[j] {
				row[j] = row[j-1]
			}
			prev = cur
		}
	}
	return row[len(b)]
}
