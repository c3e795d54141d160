package syncvar

import "testing"

func TestSetRequiresAuthority(t *testing.T) {
	auth := NewAuthority()
	v := NewVar(auth, int32(100))

	fired := false
	v.OnChange(func(_, _ int32) { fired = true })

	if err := v.Set(nil, 50); err != ErrNotAuthorized {
		t.Fatalf("nil authority: err = %v, want ErrNotAuthorized", err)
	}
	if err := v.Set(NewAuthority(), 50); err != ErrNotAuthorized {
		t.Fatalf("foreign authority: err = %v, want ErrNotAuthorized", err)
	}
	if v.Get() != 100 {
		t.Fatalf("value changed to %d by unauthorized caller", v.Get())
	}
	if fired {
		t.Fatal("handler fired on rejected write")
	}
}

func TestSetEqualValueIsSilent(t *testing.T) {
	auth := NewAuthority()
	v := NewVar(auth, int32(100))
	fired := false
	v.OnChange(func(_, _ int32) { fired = true })

	if err := v.Set(auth, 100); err != nil {
		t.Fatalf("set equal: %v", err)
	}
	if fired {
		t.Fatal("handler fired for equal-value write")
	}
	if v.Seq() != 0 {
		t.Fatalf("seq = %d, want 0", v.Seq())
	}
}

func TestHandlersFireAfterCommit(t *testing.T) {
	auth := NewAuthority()
	v := NewVar(auth, int32(100))

	var gotOld, gotNew, seen int32
	v.OnChange(func(old, nv int32) {
		gotOld, gotNew = old, nv
		seen = v.Get() // value must already be committed
	})

	if err := v.Set(auth, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if gotOld != 100 || gotNew != 60 {
		t.Fatalf("handler saw (%d, %d), want (100, 60)", gotOld, gotNew)
	}
	if seen != 60 {
		t.Fatalf("Get inside handler = %d, want 60", seen)
	}
	if v.Seq() != 1 {
		t.Fatalf("seq = %d, want 1", v.Seq())
	}
}

func TestMirrorLastWriteWins(t *testing.T) {
	m := NewMirror()

	if !m.Apply(FieldUpdate{Entity: 1, Field: 2, Value: 80, Seq: 3}) {
		t.Fatal("first update not applied")
	}
	// Duplicate delivery is idempotent.
	if m.Apply(FieldUpdate{Entity: 1, Field: 2, Value: 80, Seq: 3}) {
		t.Fatal("duplicate update applied")
	}
	// A stale (lower-seq) update after a newer one must not regress.
	if m.Apply(FieldUpdate{Entity: 1, Field: 2, Value: 95, Seq: 2}) {
		t.Fatal("stale update applied")
	}
	if v, _ := m.Get(1, 2); v != 80 {
		t.Fatalf("mirror value = %d, want 80", v)
	}
	if !m.Apply(FieldUpdate{Entity: 1, Field: 2, Value: 60, Seq: 4}) {
		t.Fatal("newer update not applied")
	}
	if v, _ := m.Get(1, 2); v != 60 {
		t.Fatalf("mirror value = %d, want 60", v)
	}
}

func TestFieldUpdateWireRoundTrip(t *testing.T) {
	in := FieldUpdate{Entity: 0x0102030405060708, Field: 2, Value: -45, Seq: 9}
	buf := in.Encode(nil)

	out, n, ok := DecodeFieldUpdate(buf)
	if !ok || n != len(buf) {
		t.Fatalf("decode: ok=%v n=%d", ok, n)
	}
	if out != in {
		t.Fatalf("round trip: got %+v, want %+v", out, in)
	}

	if _, _, ok := DecodeFieldUpdate(buf[:len(buf)-1]); ok {
		t.Fatal("short buffer decoded")
	}
}
