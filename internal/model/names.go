package model

import "strings"

// NameQuadruple is the (name, destinations, pronunciation, ref) tuple a
// profile can attach to a way, spec.md §3 "NameTable".
type NameQuadruple struct {
	Name          string
	Destinations  string
	Pronunciation string
	Ref           string
}

func (q NameQuadruple) blob() string {
	var b strings.Builder
	b.WriteString(q.Name)
	b.WriteByte(0)
	b.WriteString(q.Destinations)
	b.WriteByte(0)
	b.WriteString(q.Pronunciation)
	b.WriteByte(0)
	b.WriteString(q.Ref)
	return b.String()
}

// NameTable is an append-only concatenation of name quadruples with a
// prefix-sum offset index, deduplicating identical tuples so repeated
// street names share one entry.
type NameTable struct {
	blob    strings.Builder
	offsets []uint32 // prefix sums, len == count+1
	seen    map[string]NameID
}

// NewNameTable returns an empty table; index 0 is reserved for "no name".
func NewNameTable() *NameTable {
	t := &NameTable{
		offsets: []uint32{0},
		seen:    make(map[string]NameID),
	}
	return t
}

// Intern inserts (if not already present) the quadruple and returns its
// NameID. The empty quadruple always maps to NameID 0.
func (t *NameTable) Intern(q NameQuadruple) NameID {
	if q == (NameQuadruple{}) {
		return 0
	}
	key := q.blob()
	if id, ok := t.seen[key]; ok {
		return id
	}
	t.blob.WriteString(key)
	t.offsets = append(t.offsets, uint32(t.blob.Len()))
	id := NameID(len(t.offsets) - 1)
	t.seen[key] = id
	return id
}

// Lookup returns the quadruple stored under id as a read-only view.
func (t *NameTable) Lookup(id NameID) NameQuadruple {
	if id == 0 || int(id) >= len(t.offsets) {
		return NameQuadruple{}
	}
	full := t.blob.String()
	start := t.offsets[id-1]
	end := t.offsets[id]
	parts := strings.SplitN(full[start:end], "\x00", 4)
	q := NameQuadruple{}
	if len(parts) > 0 {
		q.Name = parts[0]
	}
	if len(parts) > 1 {
		q.Destinations = parts[1]
	}
	if len(parts) > 2 {
		q.Pronunciation = parts[2]
	}
	if len(parts) > 3 {
		q.Ref = parts[3]
	}
	return q
}

// Len returns the number of distinct entries (excluding the reserved 0).
func (t *NameTable) Len() int { return len(t.offsets) - 1 }

// Blob returns the raw concatenated buffer, for serialization.
func (t *NameTable) Blob() []byte { return []byte(t.blob.String()) }

// Offsets returns the prefix-sum offset index, for serialization.
func (t *NameTable) Offsets() []uint32 { return t.offsets }
