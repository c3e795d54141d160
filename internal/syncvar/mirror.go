package syncvar

import "encoding/binary"

// FieldUpdate is one replicated change: (entity, field, value) plus the
// per-field sequence number the authority committed it at.
type FieldUpdate struct {
	Entity uint64
	Field  uint16
	Value  int64
	Seq    uint32
}

const fieldUpdateSize = 8 + 2 + 8 + 4

// Encode appends the little-endian wire form of u to dst.
func (u FieldUpdate) Encode(dst []byte) []byte {
	var buf [fieldUpdateSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], u.Entity)
	binary.LittleEndian.PutUint16(buf[8:10], u.Field)
	binary.LittleEndian.PutUint64(buf[10:18], uint64(u.Value))
	binary.LittleEndian.PutUint32(buf[18:22], u.Seq)
	return append(dst, buf[:]...)
}

// DecodeFieldUpdate reads one update from src. ok is false if src is short.
func DecodeFieldUpdate(src []byte) (u FieldUpdate, n int, ok bool) {
	if len(src) < fieldUpdateSize {
		return FieldUpdate{}, 0, false
	}
	u.Entity = binary.LittleEndian.Uint64(src[0:8])
	u.Field = binary.LittleEndian.Uint16(src[8:10])
	u.Value = int64(binary.LittleEndian.Uint64(src[10:18]))
	u.Seq = binary.LittleEndian.Uint32(src[18:22])
	return u, fieldUpdateSize, true
}

type fieldKey struct {
	entity uint64
	field  uint16
}

// Mirror is the observer-side view of replicated fields. The channel is
// at-least-once, so Apply drops updates that are not newer than what the
// mirror already holds (last-write-wins per field).
type Mirror struct {
	values map[fieldKey]int64
	seqs   map[fieldKey]uint32
}

func NewMirror() *Mirror {
	return &Mirror{
		values: make(map[fieldKey]int64),
		seqs:   make(map[fieldKey]uint32),
	}
}

// Apply commits the update unless a same-or-newer sequence was already seen
// for that (entity, field). Returns whether the update changed the mirror.
func (m *Mirror) Apply(u FieldUpdate) bool {
	k := fieldKey{u.Entity, u.Field}
	if seen, ok := m.seqs[k]; ok && u.Seq <= seen {
		return false
	}
	m.values[k] = u.Value
	m.seqs[k] = u.Seq
	return true
}

// Get returns the mirrored value for (entity, field).
func (m *Mirror) Get(entity uint64, field uint16) (int64, bool) {
	v, ok := m.values[fieldKey{entity, field}]
	return v, ok
}
