// Package statecodec implements the canonical byte encoding for LTS runtime
// states: a total injection such that decode(encode(s)) == s. Encoded bytes
// fix the order used for deduplication inside tau-closures and state stores.
package statecodec

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Tag identifies the runtime-state shape at the head of an encoded record.
type Tag byte

const (
	TagExpr     Tag = 1
	TagParallel Tag = 2
	TagHide     Tag = 3
)

// Binding is one env entry, (name, value), carried in an Expr state.
type Binding struct {
	Name  string
	Value int64
}

// State is the tagged union of runtime-state encodings the codec round-trips.
// internal/lts constructs these from its own richer State type immediately
// before encoding, and reconstructs its own type from these after decoding.
type State struct {
	Tag Tag

	// TagExpr
	ExprId int32
	Env    []Binding // sorted by Name, as produced by Encode's caller

	// TagParallel / TagHide nest full sub-records recursively.
	Sync        []string // TagParallel, sorted; synchronization alphabet
	Left, Right *State   // TagParallel
	Hide        []string // TagHide, sorted
	Inner       *State   // TagHide
}

// Encode renders s as its canonical byte form. Callers must pass Env already
// sorted by Name (internal/lts maintains this invariant on construction) so
// that structurally equal states always encode identically.
func Encode(s *State) []byte {
	var buf []byte
	return appendState(buf, s)
}

func appendState(buf []byte, s *State) []byte {
	buf = append(buf, byte(s.Tag))
	switch s.Tag {
	case TagExpr:
		buf = appendBE32(buf, uint32(s.ExprId))
		buf = appendBE32(buf, uint32(len(s.Env)))
		for _, b := range s.Env {
			buf = appendBE32(buf, uint32(len(b.Name)))
			buf = append(buf, b.Name...)
			buf = appendBE64(buf, uint64(b.Value))
		}
	case TagParallel:
		buf = appendStrings(buf, s.Sync)
		buf = appendState(buf, s.Left)
		buf = appendState(buf, s.Right)
	case TagHide:
		buf = appendStrings(buf, s.Hide)
		buf = appendState(buf, s.Inner)
	default:
		panic(fmt.Sprintf("statecodec: unknown tag %d", s.Tag))
	}
	return buf
}

func appendStrings(buf []byte, items []string) []byte {
	buf = appendBE32(buf, uint32(len(items)))
	for _, item := range items {
		buf = appendBE32(buf, uint32(len(item)))
		buf = append(buf, item...)
	}
	return buf
}

func appendBE32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendBE64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Decode parses the canonical byte form produced by Encode. It returns an
// error rather than panicking on truncated or malformed input, since disk
// store recovery must be able to detect and discard a corrupt trailing
// record.
func Decode(data []byte) (*State, error) {
	s, rest, err := decodeState(data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("statecodec: %d trailing bytes after record", len(rest))
	}
	return s, nil
}

func decodeState(data []byte) (*State, []byte, error) {
	if len(data) < 1 {
		return nil, nil, fmt.Errorf("statecodec: empty record")
	}
	tag := Tag(data[0])
	rest := data[1:]
	switch tag {
	case TagExpr:
		exprId, rest2, err := readBE32(rest)
		if err != nil {
			return nil, nil, err
		}
		envLen, rest3, err := readBE32(rest2)
		if err != nil {
			return nil, nil, err
		}
		env := make([]Binding, 0, envLen)
		cur := rest3
		for i := uint32(0); i < envLen; i++ {
			keyLen, r1, err := readBE32(cur)
			if err != nil {
				return nil, nil, err
			}
			if uint32(len(r1)) < keyLen {
				return nil, nil, fmt.Errorf("statecodec: truncated env key")
			}
			key := string(r1[:keyLen])
			r2 := r1[keyLen:]
			val, r3, err := readBE64(r2)
			if err != nil {
				return nil, nil, err
			}
			env = append(env, Binding{Name: key, Value: int64(val)})
			cur = r3
		}
		return &State{Tag: TagExpr, ExprId: int32(exprId), Env: env}, cur, nil
	case TagParallel:
		sync, rest2, err := readStrings(rest)
		if err != nil {
			return nil, nil, err
		}
		l, rest3, err := decodeState(rest2)
		if err != nil {
			return nil, nil, err
		}
		r, rest4, err := decodeState(rest3)
		if err != nil {
			return nil, nil, err
		}
		return &State{Tag: TagParallel, Sync: sync, Left: l, Right: r}, rest4, nil
	case TagHide:
		hide, rest2, err := readStrings(rest)
		if err != nil {
			return nil, nil, err
		}
		inner, rest3, err := decodeState(rest2)
		if err != nil {
			return nil, nil, err
		}
		return &State{Tag: TagHide, Hide: hide, Inner: inner}, rest3, nil
	default:
		return nil, nil, fmt.Errorf("statecodec: unknown tag %d", tag)
	}
}

func readStrings(data []byte) ([]string, []byte, error) {
	n, rest, err := readBE32(data)
	if err != nil {
		return nil, nil, err
	}
	out := make([]string, 0, n)
	cur := rest
	for i := uint32(0); i < n; i++ {
		l, r1, err := readBE32(cur)
		if err != nil {
			return nil, nil, err
		}
		if uint32(len(r1)) < l {
			return nil, nil, fmt.Errorf("statecodec: truncated string")
		}
		out = append(out, string(r1[:l]))
		cur = r1[l:]
	}
	return out, cur, nil
}

func readBE32(data []byte) (uint32, []byte, error) {
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("statecodec: truncated uint32")
	}
	return binary.BigEndian.Uint32(data[:4]), data[4:], nil
}

func readBE64(data []byte) (uint64, []byte, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("statecodec: truncated uint64")
	}
	return binary.BigEndian.Uint64(data[:8]), data[8:], nil
}

// SortBindings returns a copy of env sorted by Name, the canonical order
// Encode requires.
func SortBindings(env []Binding) []Binding {
	out := append([]Binding(nil), env...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Compare orders two encoded records lexicographically, the canonical order
// used to sort transitions and closure members.
func Compare(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
