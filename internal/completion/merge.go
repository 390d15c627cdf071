package completion

// Contribution is what one loader adds to an aggregation round.
type Contribution struct {
	// Source names the loader that produced the contribution.
	Source string
	// Items are the completions, already filtered to the requested categories.
	Items []Item
	// Flags are ORed into the result flags.
	Flags Flags
	// Placeholder marks the contribution of a loader that is still loading.
	Placeholder bool
}

// Result is the merged output of an aggregation round.
type Result struct {
	Items []Item
	Flags Flags
	// Pending counts placeholder contributions, i.e. loaders still loading.
	Pending int
}

// Empty reports whether the result carries no completions.
func (r Result) Empty() bool {
	return len(r.Items) == 0
}

// Merge drains contributions until the channel is closed and returns the
// combined result: items concatenated and sorted, flags ORed together.
// The outcome does not depend on the order contributions arrive in.
func Merge(contributions <-chan Contribution) Result {
	result := Result{Items: []Item{}}
	for c := range contributions {
		result.add(c)
	}
	SortItems(result.Items)
	return result
}

// MergeAll is Merge over a fixed list of contributions.
func MergeAll(contributions ...Contribution) Result {
	ch := make(chan Contribution, len(contributions))
	for _, c := range contributions {
		ch <- c
	}
	close(ch)
	return Merge(ch)
}

func (r *Result) add(c Contribution) {
	r.Flags |= c.Flags
	if c.Placeholder {
		r.Pending++
	}
	r.Items = append(r.Items, c.Items...)
}
