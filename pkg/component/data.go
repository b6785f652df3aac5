// Package component defines the attribute store parsers fill for each bus
// and branch, and the capability interfaces physics payloads implement.
package component

import (
	"fmt"
	"sort"
)

// Standard attribute keys.
const (
	CaseID     = "CASE_ID"
	CaseSBase  = "CASE_SBASE"
	BusNumber  = "BUS_NUMBER"
	BusName    = "BUS_NAME"
	BusType    = "BUS_TYPE"
	BusBaseKV  = "BUS_BASEKV"
	BusVoltMag = "BUS_VOLTAGE_MAG"
	BusVoltAng = "BUS_VOLTAGE_ANG"

	BranchFromBus = "BRANCH_FROMBUS"
	BranchToBus   = "BRANCH_TOBUS"
	BranchR       = "BRANCH_R"
	BranchX       = "BRANCH_X"
	BranchB       = "BRANCH_B"
	BranchStatus  = "BRANCH_STATUS"
	BranchNumElem = "BRANCH_NUM_ELEMENTS"
)

// Kind tags the type held by a Value.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindFloat
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is one typed attribute.
type Value struct {
	Kind  Kind    `msgpack:"k"`
	Int   int64   `msgpack:"i,omitempty"`
	Float float64 `msgpack:"f,omitempty"`
	Str   string  `msgpack:"s,omitempty"`
	Bool  bool    `msgpack:"b,omitempty"`
}

// DataCollection holds the attributes of one bus or branch. Indexed
// attributes, such as the parameters of the n-th generator on a bus, are
// stored under "KEY:n".
type DataCollection struct {
	Values map[string]Value `msgpack:"values"`
}

// NewDataCollection returns an empty collection.
func NewDataCollection() *DataCollection {
	return &DataCollection{Values: make(map[string]Value)}
}

// IndexedKey returns the storage key of the n-th instance of key.
func IndexedKey(key string, n int) string {
	return fmt.Sprintf("%s:%d", key, n)
}

func (d *DataCollection) set(key string, v Value) {
	if d.Values == nil {
		d.Values = make(map[string]Value)
	}
	d.Values[key] = v
}

func (d *DataCollection) SetInt(key string, v int) {
	d.set(key, Value{Kind: KindInt, Int: int64(v)})
}

func (d *DataCollection) SetFloat(key string, v float64) {
	d.set(key, Value{Kind: KindFloat, Float: v})
}

func (d *DataCollection) SetString(key string, v string) {
	d.set(key, Value{Kind: KindString, Str: v})
}

func (d *DataCollection) SetBool(key string, v bool) {
	d.set(key, Value{Kind: KindBool, Bool: v})
}

func (d *DataCollection) SetIntAt(key string, n, v int)           { d.SetInt(IndexedKey(key, n), v) }
func (d *DataCollection) SetFloatAt(key string, n int, v float64) { d.SetFloat(IndexedKey(key, n), v) }
func (d *DataCollection) SetStringAt(key string, n int, v string) { d.SetString(IndexedKey(key, n), v) }
func (d *DataCollection) SetBoolAt(key string, n int, v bool)     { d.SetBool(IndexedKey(key, n), v) }

// GetInt returns an int attribute. ok is false if the key is absent or
// holds another kind.
func (d *DataCollection) GetInt(key string) (int, bool) {
	v, ok := d.lookup(key, KindInt)
	return int(v.Int), ok
}

// GetFloat returns a float attribute. Int attributes are widened.
func (d *DataCollection) GetFloat(key string) (float64, bool) {
	if d == nil {
		return 0, false
	}
	v, ok := d.Values[key]
	switch {
	case !ok:
		return 0, false
	case v.Kind == KindFloat:
		return v.Float, true
	case v.Kind == KindInt:
		return float64(v.Int), true
	default:
		return 0, false
	}
}

func (d *DataCollection) GetString(key string) (string, bool) {
	v, ok := d.lookup(key, KindString)
	return v.Str, ok
}

func (d *DataCollection) GetBool(key string) (bool, bool) {
	v, ok := d.lookup(key, KindBool)
	return v.Bool, ok
}

func (d *DataCollection) GetIntAt(key string, n int) (int, bool) {
	return d.GetInt(IndexedKey(key, n))
}

func (d *DataCollection) GetFloatAt(key string, n int) (float64, bool) {
	return d.GetFloat(IndexedKey(key, n))
}

func (d *DataCollection) GetStringAt(key string, n int) (string, bool) {
	return d.GetString(IndexedKey(key, n))
}

func (d *DataCollection) GetBoolAt(key string, n int) (bool, bool) {
	return d.GetBool(IndexedKey(key, n))
}

func (d *DataCollection) lookup(key string, kind Kind) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	v, ok := d.Values[key]
	if !ok || v.Kind != kind {
		return Value{}, false
	}
	return v, true
}

// Has reports whether key is present, whatever its kind.
func (d *DataCollection) Has(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d.Values[key]
	return ok
}

func (d *DataCollection) Delete(key string) {
	if d != nil {
		delete(d.Values, key)
	}
}

func (d *DataCollection) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Values)
}

// Keys returns the attribute keys in sorted order.
func (d *DataCollection) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.Values))
	for k := range d.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy. Cloning nil yields nil.
func (d *DataCollection) Clone() *DataCollection {
	if d == nil {
		return nil
	}
	c := &DataCollection{Values: make(map[string]Value, len(d.Values))}
	for k, v := range d.Values {
		c.Values[k] = v
	}
	return c
}
