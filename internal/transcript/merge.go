package transcript

import "strings"

// maxOverlapWords caps how many trailing/leading words are compared when
// stitching adjacent chunk transcripts.
const maxOverlapWords = 5

// Merge folds per-chunk transcripts into one transcript, removing the words
// duplicated by the audio overlap between adjacent chunks. Empty entries are
// skipped.
func Merge(texts []string) string {
	merged := ""
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if merged == "" {
			merged = text
			continue
		}
		merged = mergePair(merged, text)
	}
	return merged
}

// mergePair joins two transcripts at their seam. It looks for the longest
// suffix of a (up to maxOverlapWords words) that matches, case-insensitively,
// a prefix of b, and drops the duplicate from b. With no match the texts are
// joined with a single space.
func mergePair(a, b string) string {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)

	max := maxOverlapWords
	if len(wordsA) < max {
		max = len(wordsA)
	}
	if len(wordsB) < max {
		max = len(wordsB)
	}

	for k := max; k >= 1; k-- {
		if wordsEqualFold(wordsA[len(wordsA)-k:], wordsB[:k]) {
			joined := append(wordsA, wordsB[k:]...)
			return strings.Join(joined, " ")
		}
	}
	return a + " " + b
}

func wordsEqualFold(a, b []string) bool {
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
