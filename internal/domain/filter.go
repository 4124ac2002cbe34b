package domain

// FilterByAffinity reduces candidates to those sharing at least one tag with
// the post. Both tag sets are assumed normalized (see NormalizeTags); matching
// is exact string equality. An empty postTags set yields an empty result: a
// post with no tags declares no affinity and reaches no one, it never degrades
// into a broadcast. Output order is unspecified.
func FilterByAffinity(postTags []string, candidates []Candidate) []Candidate {
	if len(postTags) == 0 {
		return nil
	}

	want := make(map[string]struct{}, len(postTags))
	for _, t := range postTags {
		want[t] = struct{}{}
	}

	var matched []Candidate
	for _, c := range candidates {
		for _, t := range c.Tags {
			if _, ok := want[t]; ok {
				matched = append(matched, c)
				break
			}
		}
	}
	return matched
}
