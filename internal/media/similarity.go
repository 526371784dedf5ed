package media

// Ratio computes the Ratcliff/Obershelp similarity of two strings in [0, 1]:
// twice the number of characters in common (summed over recursively found
// longest matching blocks) divided by the total length. 1.0 means identical.
//
// The duplicate-grouping threshold is calibrated to this algorithm's output
// distribution; do not substitute an edit-distance metric.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	matched := matchingTotal(ra, rb, 0, len(ra), 0, len(rb))
	return 2.0 * float64(matched) / float64(total)
}

// matchingTotal sums the sizes of all matching blocks inside
// a[alo:ahi] vs b[blo:bhi] by finding the longest match and recursing on the
// unmatched regions to its left and right.
func matchingTotal(a, b []rune, alo, ahi, blo, bhi int) int {
	i, j, size := longestMatch(a, b, alo, ahi, blo, bhi)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingTotal(a, b, alo, i, blo, j)
	total += matchingTotal(a, b, i+size, ahi, j+size, bhi)
	return total
}

// longestMatch finds the longest block a[i:i+size] == b[j:j+size] with
// alo <= i < i+size <= ahi and blo <= j < j+size <= bhi. Of all maximal
// blocks it returns the one starting earliest in a, then earliest in b.
func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (besti, bestj, bestsize int) {
	// b2j maps each rune to the positions where it occurs in b[blo:bhi].
	b2j := make(map[rune][]int, bhi-blo)
	for j := blo; j < bhi; j++ {
		b2j[b[j]] = append(b2j[b[j]], j)
	}

	besti, bestj = alo, blo
	// j2len[j] holds the length of the match ending at a[i-1], b[j-1].
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestsize
}
