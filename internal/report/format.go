package report

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// ordered is an insertion-ordered map used for aggregation intermediates.
// It never leaves the package; payloads carry Records instead.
type ordered[K comparable, V any] struct {
	keys []K
	vals map[K]V
}

func newOrdered[K comparable, V any]() *ordered[K, V] {
	return &ordered[K, V]{vals: make(map[K]V)}
}

// update applies fn to the value at k, starting from V's zero value
func (o *ordered[K, V]) update(k K, fn func(V) V) {
	v, ok := o.vals[k]
	if !ok {
		o.keys = append(o.keys, k)
	}
	o.vals[k] = fn(v)
}

func (o *ordered[K, V]) get(k K) (V, bool) {
	v, ok := o.vals[k]
	return v, ok
}

func (o *ordered[K, V]) len() int {
	return len(o.keys)
}

// sortKeys reorders the keys in place
func (o *ordered[K, V]) sortKeys(less func(a, b K) bool) {
	sort.SliceStable(o.keys, func(i, j int) bool { return less(o.keys[i], o.keys[j]) })
}

// record converts o into a Record, keeping key order
func record[K comparable, V any](o *ordered[K, V], key func(K) string, value func(K, V) any) Record {
	r := make(Record, 0, o.len())
	for _, k := range o.keys {
		r = append(r, Field{Key: key(k), Value: value(k, o.vals[k])})
	}
	return r
}

func idKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Field is one entry of a Record
type Field struct {
	Key   string
	Value any
}

// Record is an order-stable string-keyed mapping. It marshals to a plain
// JSON object whose keys appear in Record order.
type Record []Field

// Get returns the value stored under key
func (r Record) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in order
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// MarshalJSON implements json.Marshaler
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Key order follows the input.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	out := Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = append(out, Field{Key: key, Value: v})
	}
	*r = out
	return nil
}

// ratio returns n/d clamped to [0,1], or 0 when d is 0
func ratio(n, d int) float64 {
	if d <= 0 || n <= 0 {
		return 0
	}
	r := float64(n) / float64(d)
	if r > 1 {
		return 1
	}
	return r
}

// mean returns sum/n, or 0 when n is 0
func mean(sum float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return sum / float64(n)
}
