package taxonomy

// AssignRanks maps labelset names to ranks. Labelsets are listed from the
// coarsest to the finest: the first of n names gets rank n-1 and the last
// gets rank 0. A duplicated name keeps the rank of its last position.
func AssignRanks(labelsets []string) map[string]int {
	n := len(labelsets)
	ranks := make(map[string]int, n)
	for i, name := range labelsets {
		ranks[name] = n - 1 - i
	}
	return ranks
}
