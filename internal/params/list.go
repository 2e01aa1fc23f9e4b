package params

import (
	"sort"
	"strings"
)

// List is an ordered parameter list.
type List []Parameter

// Keys returns the keys in order, duplicates included.
func (l List) Keys() []string {
	keys := make([]string, 0, len(l))
	for _, p := range l {
		keys = append(keys, p.Key)
	}
	return keys
}

// Lookup returns the last value written for key.
func (l List) Lookup(key string) (string, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].Key == key {
			return l[i].Value, true
		}
	}
	return "", false
}

// Duplicates returns every key that appears more than once, sorted.
func (l List) Duplicates() []string {
	seen := make(map[string]int, len(l))
	for _, p := range l {
		seen[p.Key]++
	}
	var dups []string
	for key, n := range seen {
		if n > 1 {
			dups = append(dups, key)
		}
	}
	sort.Strings(dups)
	return dups
}

// Collapse keeps one entry per key. The entry stays at the position of the first occurrence
// and carries the value of the last one.
func (l List) Collapse() List {
	index := make(map[string]int, len(l))
	out := make(List, 0, len(l))
	for _, p := range l {
		if i, ok := index[p.Key]; ok {
			out[i].Value = p.Value
			continue
		}
		index[p.Key] = len(out)
		out = append(out, p)
	}
	return out
}

// Zones extracts the AZn parameters in slot order.
func (l List) Zones() []string {
	var zones []string
	for slot := 1; ; slot++ {
		v, ok := l.Lookup(ZoneParam(slot))
		if !ok {
			return zones
		}
		zones = append(zones, v)
	}
}

func (l List) String() string {
	parts := make([]string, 0, len(l))
	for _, p := range l {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, " ")
}
