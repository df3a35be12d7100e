package textutil

// Bigrams returns the multiset of adjacent rune pairs of the normalized text.
func Bigrams(text string) map[string]int {
	runes := []rune(Normalize(text))
	if len(runes) < 2 {
		return nil
	}
	grams := make(map[string]int, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}

// Similarity scores two texts in [0, 1] with the Dice coefficient over
// bigram multisets. It is symmetric, and identical normalized texts score 1.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	ga, gb := Bigrams(na), Bigrams(nb)
	total := 0
	for _, n := range ga {
		total += n
	}
	for _, n := range gb {
		total += n
	}
	if total == 0 {
		return 0
	}
	shared := 0
	for gram, n := range ga {
		shared += min(n, gb[gram])
	}
	return 2 * float64(shared) / float64(total)
}
