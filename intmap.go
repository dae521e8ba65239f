package ftl

import (
	"fmt"
	"strconv"
	"strings"
)

// IntMap is an int32 to int32 mapping that remembers insertion order.
type IntMap struct {
	keys []int32
	vals map[int32]int32
}

func NewIntMap(capacity int) *IntMap {
	return &IntMap{
		keys: make([]int32, 0, capacity),
		vals: make(map[int32]int32, capacity),
	}
}

// Set stores v under k. An existing key keeps its position.
func (m *IntMap) Set(k, v int32) {
	if _, found := m.vals[k]; !found {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
}

func (m *IntMap) Get(k int32) (int32, bool) {
	v, ok := m.vals[k]
	return v, ok
}

func (m *IntMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order. The slice must not be modified.
func (m *IntMap) Keys() []int32 {
	if m == nil {
		return nil
	}
	return m.keys
}

// Map returns a copy of the contents as a plain map.
func (m *IntMap) Map() map[int32]int32 {
	out := make(map[int32]int32, m.Len())
	for _, k := range m.Keys() {
		out[k] = m.vals[k]
	}
	return out
}

// MarshalJSON encodes the map as a JSON object with keys in insertion order.
func (m *IntMap) MarshalJSON() ([]byte, error) {
	var buf strings.Builder
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, `"%d":%d`, k, m.vals[k])
	}
	buf.WriteByte('}')
	return []byte(buf.String()), nil
}

func (m *IntMap) String() string {
	var buf strings.Builder
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(strconv.Itoa(int(k)))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(int(m.vals[k])))
	}
	return buf.String()
}

// ReadIntMap reads a map container of int32 keys and int32 values. The pair
// count comes from the map header, so EOM is never a valid element.
func ReadIntMap(r *Reader) (*IntMap, error) {
	n, err := r.ReadMapLen()
	if err != nil {
		return nil, err
	}
	m := NewIntMap(n)
	for i := 0; i < n; i++ {
		k, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("map entry %d of %d: key: %w", i+1, n, err)
		}
		v, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("map entry %d of %d: value: %w", i+1, n, err)
		}
		m.Set(k, v)
	}
	return m, nil
}
