package component

import (
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestDataCollection_TypedAccess(t *testing.T) {
	d := NewDataCollection()
	d.SetInt(BusNumber, 7)
	d.SetFloat(BusBaseKV, 138.0)
	d.SetString(BusName, "NORTH")
	d.SetBool("BUS_ISOLATED", true)

	if v, ok := d.GetInt(BusNumber); !ok || v != 7 {
		t.Errorf("GetInt = %d, %v; want 7, true", v, ok)
	}
	if v, ok := d.GetFloat(BusBaseKV); !ok || v != 138.0 {
		t.Errorf("GetFloat = %f, %v; want 138, true", v, ok)
	}
	if v, ok := d.GetString(BusName); !ok || v != "NORTH" {
		t.Errorf("GetString = %q, %v", v, ok)
	}
	if v, ok := d.GetBool("BUS_ISOLATED"); !ok || !v {
		t.Errorf("GetBool = %v, %v", v, ok)
	}

	// Wrong kind and missing keys report !ok.
	if _, ok := d.GetInt(BusName); ok {
		t.Error("GetInt on a string attribute should fail")
	}
	if _, ok := d.GetString("MISSING"); ok {
		t.Error("GetString on a missing key should fail")
	}
	// Ints widen to floats.
	if v, ok := d.GetFloat(BusNumber); !ok || v != 7 {
		t.Errorf("GetFloat on int = %f, %v; want 7, true", v, ok)
	}
}

func TestDataCollection_Indexed(t *testing.T) {
	d := NewDataCollection()
	d.SetFloatAt("GENERATOR_PG", 0, 1.5)
	d.SetFloatAt("GENERATOR_PG", 1, 2.5)
	d.SetIntAt("GENERATOR_STAT", 1, 1)
	d.SetStringAt("GENERATOR_ID", 0, "G1")
	d.SetBoolAt("GENERATOR_ON", 0, true)

	if v, ok := d.GetFloatAt("GENERATOR_PG", 1); !ok || v != 2.5 {
		t.Errorf("GetFloatAt(1) = %f, %v", v, ok)
	}
	if _, ok := d.GetIntAt("GENERATOR_STAT", 0); ok {
		t.Error("GetIntAt(0) should be absent")
	}
	if !d.Has("GENERATOR_PG:0") {
		t.Error("indexed key not stored under KEY:n")
	}
	if s, _ := d.GetStringAt("GENERATOR_ID", 0); s != "G1" {
		t.Errorf("GetStringAt = %q", s)
	}
	if b, _ := d.GetBoolAt("GENERATOR_ON", 0); !b {
		t.Error("GetBoolAt = false")
	}
	want := []string{"GENERATOR_ID:0", "GENERATOR_ON:0", "GENERATOR_PG:0", "GENERATOR_PG:1", "GENERATOR_STAT:1"}
	keys := d.Keys()
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %s, want %s", i, keys[i], want[i])
		}
	}
}

func TestDataCollection_CloneIsDeep(t *testing.T) {
	d := NewDataCollection()
	d.SetInt(BusNumber, 1)
	c := d.Clone()
	c.SetInt(BusNumber, 2)
	c.SetBool("EXTRA", true)

	if v, _ := d.GetInt(BusNumber); v != 1 {
		t.Errorf("original changed through clone: %d", v)
	}
	if d.Len() != 1 || c.Len() != 2 {
		t.Errorf("Len() = %d, %d; want 1, 2", d.Len(), c.Len())
	}

	var nilData *DataCollection
	if nilData.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
	if _, ok := nilData.GetInt(BusNumber); ok {
		t.Error("nil collection should have no values")
	}
}

func TestDataCollection_Msgpack(t *testing.T) {
	d := NewDataCollection()
	d.SetInt(BranchFromBus, 3)
	d.SetFloat(BranchX, 0.25)
	d.SetString(BusName, "A")
	d.SetBool("FLAG", false)

	b, err := msgpack.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	var got DataCollection
	if err := msgpack.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if v, ok := got.GetFloat(BranchX); !ok || v != 0.25 {
		t.Errorf("GetFloat after decode = %f, %v", v, ok)
	}
	if v, ok := got.GetBool("FLAG"); !ok || v {
		t.Errorf("GetBool after decode = %v, %v", v, ok)
	}
}

func TestBaseComponents_Load(t *testing.T) {
	d := NewDataCollection()
	d.SetInt(BusNumber, 42)
	d.SetInt(BranchFromBus, 1)
	d.SetInt(BranchToBus, 2)

	var bus BaseBus
	if err := bus.Load(d); err != nil {
		t.Fatal(err)
	}
	if bus.OriginalIndex != 42 {
		t.Errorf("OriginalIndex = %d, want 42", bus.OriginalIndex)
	}
	bus.SetReferenceBus(true)
	if !bus.IsReferenceBus() {
		t.Error("reference flag not set")
	}

	var br BaseBranch
	if err := br.Load(d); err != nil {
		t.Fatal(err)
	}
	if br.FromBus != 1 || br.ToBus != 2 {
		t.Errorf("endpoints = %d, %d; want 1, 2", br.FromBus, br.ToBus)
	}
	br.SetMode(ModeJacobian)
	if br.Mode != ModeJacobian {
		t.Error("mode not set")
	}
}
