package analytics

// Alias binds one canonical attribute to the source field names that may carry
// it, highest priority first.
type Alias struct {
	Field   string
	Sources []string
}

// AliasTable is the ordered field mapping used by the Normalizer.
type AliasTable []Alias

// DefaultAliases returns the FortiGate field mapping. src_ip covers the
// variants emitted by traffic, VPN and admin-event logs.
func DefaultAliases() AliasTable {
	return AliasTable{
		{Field: FieldTimestamp, Sources: []string{"@timestamp", "timestamp"}},
		{Field: FieldSrcIP, Sources: []string{"srcip", "remip", "srcaddr", "src"}},
		{Field: FieldDstIP, Sources: []string{"dstip", "dstaddr", "dst"}},
		{Field: FieldSrcPort, Sources: []string{"srcport"}},
		{Field: FieldDstPort, Sources: []string{"dstport"}},
		{Field: FieldUser, Sources: []string{"user", "srcuser"}},
		{Field: FieldAction, Sources: []string{"action"}},
		{Field: FieldEventType, Sources: []string{"type"}},
		{Field: FieldMsg, Sources: []string{"msg", "message"}},
		{Field: FieldSeverity, Sources: []string{"severity"}},
		{Field: FieldPolicyID, Sources: []string{"policyid", "policy_id"}},
	}
}

// Extend returns a copy of the table with extra source names appended to the
// end of each attribute's list. Unknown attributes and duplicates are skipped.
func (t AliasTable) Extend(extra map[string][]string) AliasTable {
	out := make(AliasTable, len(t))
	for i, a := range t {
		sources := append([]string(nil), a.Sources...)
		seen := make(map[string]bool, len(sources))
		for _, s := range sources {
			seen[s] = true
		}
		for _, s := range extra[a.Field] {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			sources = append(sources, s)
		}
		out[i] = Alias{Field: a.Field, Sources: sources}
	}
	return out
}

// Resolve returns the first source field present in ev with a non-nil value.
// A present empty string wins over later aliases.
func (a Alias) Resolve(ev RawEvent) (string, bool) {
	for _, name := range a.Sources {
		v, ok := ev[name]
		if !ok || v == nil {
			continue
		}
		return stringify(v), true
	}
	return "", false
}

// Normalizer maps RawEvents onto Records. It never fails: fields without a
// canonical slot are ignored and missing attributes stay nil.
type Normalizer struct {
	aliases AliasTable
}

// NewNormalizer creates a Normalizer for the given table. A nil table selects
// DefaultAliases.
func NewNormalizer(aliases AliasTable) *Normalizer {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Normalizer{aliases: aliases}
}

// Normalize produces exactly one Record for ev.
func (n *Normalizer) Normalize(ev RawEvent) Record {
	var rec Record
	for _, a := range n.aliases {
		p := rec.slot(a.Field)
		if p == nil {
			continue
		}
		if v, ok := a.Resolve(ev); ok {
			*p = strPtr(v)
		}
	}
	return rec
}

// NormalizeBatch normalizes events 1:1, preserving order.
func (n *Normalizer) NormalizeBatch(events []RawEvent) []Record {
	records := make([]Record, len(events))
	for i, ev := range events {
		records[i] = n.Normalize(ev)
	}
	return records
}
