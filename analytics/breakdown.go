package analytics

import "sort"

// UnknownKey replaces a null grouping key in failed-attempt breakdowns.
const UnknownKey = "Unknown"

// Count is one row of a Breakdown.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Breakdown is a key → occurrence distribution sorted by count descending.
// Ties keep the order in which keys first appeared in the batch.
type Breakdown []Count

// countBy groups records by key. Records for which key reports false are not
// counted.
func countBy(records []Record, key func(Record) (string, bool)) Breakdown {
	index := make(map[string]int)
	out := Breakdown{}
	for _, r := range records {
		k, ok := key(r)
		if !ok {
			continue
		}
		if i, seen := index[k]; seen {
			out[i].Count++
			continue
		}
		index[k] = len(out)
		out = append(out, Count{Key: k, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// byField groups on a nullable attribute, skipping nulls.
func byField(field string) func(Record) (string, bool) {
	return func(r Record) (string, bool) {
		return r.Get(field)
	}
}

// byFieldOrUnknown groups on a nullable attribute, bucketing nulls under
// UnknownKey.
func byFieldOrUnknown(field string) func(Record) (string, bool) {
	return func(r Record) (string, bool) {
		if v, ok := r.Get(field); ok {
			return v, true
		}
		return UnknownKey, true
	}
}

// Above returns the rows whose count is strictly greater than threshold.
func (b Breakdown) Above(threshold int) Breakdown {
	out := Breakdown{}
	for _, c := range b {
		if c.Count > threshold {
			out = append(out, c)
		}
	}
	return out
}

// Top returns at most n leading rows.
func (b Breakdown) Top(n int) Breakdown {
	if n < 0 {
		n = 0
	}
	if len(b) <= n {
		return append(Breakdown{}, b...)
	}
	return append(Breakdown{}, b[:n]...)
}

// get returns the count for key, or 0.
func (b Breakdown) get(key string) int {
	for _, c := range b {
		if c.Key == key {
			return c.Count
		}
	}
	return 0
}
