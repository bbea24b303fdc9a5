package chip

import (
	"errors"
	"testing"

	"github.com/Southclaws/fault/ftag"
)

func TestRing_AppliedExactlyOnceAtOffset(t *testing.T) {
	for _, length := range []int{1, 2, 4, 7, 64} {
		for offset := 0; offset < length; offset++ {
			r := NewRing(length)
			w := WriteSet{Setting{5, 0xFF}, uint8(offset)}
			if err := r.Schedule(offset, w); err != nil {
				t.Fatalf("len %d offset %d: %v", length, offset, err)
			}
			applied := 0
			for adv := 1; adv <= length+1; adv++ {
				r.CommitAndAdvance(func(got WriteSet) {
					if got != w {
						t.Fatalf("applied %s, want %s", got, w)
					}
					applied++
					if adv != offset+1 {
						t.Fatalf("len %d offset %d: applied at advance %d, want %d", length, offset, adv, offset+1)
					}
				})
			}
			if applied != 1 {
				t.Fatalf("len %d offset %d: applied %d times, want 1", length, offset, applied)
			}
		}
	}
}

func TestRing_PressReleaseScenario(t *testing.T) {
	r := NewRing(4)
	press := MustWriteSet(Gate(0), CtrlGate)
	release := MustWriteSet(Gate(0), 0)
	if err := r.Schedule(0, press); err != nil {
		t.Fatal(err)
	}
	if err := r.Schedule(3, release); err != nil {
		t.Fatal(err)
	}

	var applied []WriteSet
	collect := func(w WriteSet) { applied = append(applied, w) }

	r.CommitAndAdvance(collect)
	if len(applied) != 1 || applied[0] != press {
		t.Fatalf("after 1 advance applied %v, want only press", applied)
	}
	r.CommitAndAdvance(collect)
	r.CommitAndAdvance(collect)
	if len(applied) != 1 {
		t.Fatalf("after 3 advances applied %v, want only press", applied)
	}
	r.CommitAndAdvance(collect)
	if len(applied) != 2 || applied[1] != release {
		t.Fatalf("after 4 advances applied %v, want press then release", applied)
	}
	if r.Pending() != 0 {
		t.Errorf("pending = %d, want 0", r.Pending())
	}
	for off := 0; off < r.Len(); off++ {
		if n := len(r.Slot(off)); n != 0 {
			t.Errorf("slot %d holds %d writes, want 0", off, n)
		}
	}
}

func TestRing_SameAddressMergesInPlace(t *testing.T) {
	r := NewRing(2)
	r.Schedule(0, MustWriteSet(FreqLo(0), 0x10))
	r.Schedule(0, MustWriteSet(Gate(0), CtrlGate))
	r.Schedule(0, MustWriteSet(Waveform(0), 0x04))

	slot := r.Slot(0)
	if len(slot) != 2 {
		t.Fatalf("slot holds %d writes, want 2", len(slot))
	}
	if slot[0].Address != FreqLo(0).Address {
		t.Errorf("first write %s, want FREQ_LO kept first", slot[0])
	}
	want := WriteSet{Setting{VoiceBase(0) + RegCtrl, CtrlGate | CtrlWave}, CtrlGate | 0x04}
	if slot[1] != want {
		t.Errorf("merged CTRL = %s, want %s", slot[1], want)
	}
}

func TestRing_InsertionOrderPreserved(t *testing.T) {
	r := NewRing(1)
	addrs := []uint16{3, 1, 2, 0}
	for _, a := range addrs {
		r.Schedule(0, WriteSet{Setting{a, 0xFF}, 1})
	}
	var got []uint16
	r.CommitAndAdvance(func(w WriteSet) { got = append(got, w.Address) })
	for i := range addrs {
		if got[i] != addrs[i] {
			t.Fatalf("apply order %v, want %v", got, addrs)
		}
	}
}

func TestRing_OutOfRangeClamped(t *testing.T) {
	if strictScheduling {
		t.Skip("chipdebug build panics instead")
	}
	r := NewRing(4)
	err := r.Schedule(9, MustWriteSet(Volume(0), 3))
	if !errors.Is(err, ErrSchedulingOutOfRange) {
		t.Fatalf("err = %v, want ErrSchedulingOutOfRange", err)
	}
	if k := ftag.Get(err); k != KindSchedulingOutOfRange {
		t.Errorf("kind = %q, want %q", k, KindSchedulingOutOfRange)
	}
	if len(r.Slot(3)) != 1 {
		t.Errorf("clamped write not in last slot")
	}
}

func TestRing_SlotFull(t *testing.T) {
	r := NewRing(1)
	for i := 0; i < SlotCapacity; i++ {
		if err := r.Schedule(0, WriteSet{Setting{uint16(i), 0xFF}, 0}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	err := r.Schedule(0, WriteSet{Setting{SlotCapacity, 0xFF}, 0})
	if !errors.Is(err, ErrSlotFull) {
		t.Errorf("err = %v, want ErrSlotFull", err)
	}
	// an address already in the slot still merges
	if err := r.Schedule(0, WriteSet{Setting{0, 0x01}, 1}); err != nil {
		t.Errorf("merge into full slot: %v", err)
	}
}

func TestRing_NoAllocations(t *testing.T) {
	r := NewRing(8)
	w := MustWriteSet(Volume(1), 7)
	apply := func(WriteSet) {}
	allocs := testing.AllocsPerRun(100, func() {
		r.Schedule(3, w)
		r.CommitAndAdvance(apply)
	})
	if allocs != 0 {
		t.Errorf("allocs per frame = %v, want 0", allocs)
	}
}

func TestRing_ScheduleAllIsAllOrNothing(t *testing.T) {
	tests := []struct {
		name    string
		pending int // distinct addresses already in slot 1
		batch   int // distinct addresses in the batch, all at offset 1
		wantErr bool
	}{
		{"fits", 0, SlotCapacity, false},
		{"fits after pending", 10, SlotCapacity - 10, false},
		{"overflows", 0, SlotCapacity + 8, true},
		{"overflows with pending", 10, SlotCapacity - 9, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRing(4)
			for i := 0; i < tt.pending; i++ {
				r.Schedule(1, WriteSet{Setting{uint16(100 + i), 0xFF}, 1})
			}
			batch := []Scheduled{{Offset: 0, Write: MustWriteSet(Volume(0), 1)}}
			for i := 0; i < tt.batch; i++ {
				batch = append(batch, Scheduled{Offset: 1, Write: WriteSet{Setting{uint16(i), 0xFF}, 2}})
			}
			err := r.ScheduleAll(batch)
			if gotErr := errors.Is(err, ErrSlotFull); gotErr != tt.wantErr {
				t.Fatalf("err = %v, want slot full %v", err, tt.wantErr)
			}
			want := tt.pending
			if !tt.wantErr {
				want += len(batch)
			}
			if got := r.Pending(); got != want {
				t.Errorf("pending = %d, want %d", got, want)
			}
			// the scratch counts are cleared for the next batch
			if err := r.ScheduleAll(batch[:1]); err != nil {
				t.Errorf("follow-up batch: %v", err)
			}
		})
	}
}

func TestRing_ScheduleAllMergesRepeatedAddresses(t *testing.T) {
	r := NewRing(2)
	for i := 0; i < SlotCapacity-1; i++ {
		r.Schedule(0, WriteSet{Setting{uint16(i), 0xFF}, 0})
	}
	batch := []Scheduled{
		{Offset: 0, Write: WriteSet{Setting{0, 0x01}, 1}},   // merges into a pending entry
		{Offset: 0, Write: WriteSet{Setting{500, 0x0F}, 1}}, // takes the last entry
		{Offset: 0, Write: WriteSet{Setting{500, 0xF0}, 0x20}},
	}
	if err := r.ScheduleAll(batch); err != nil {
		t.Fatalf("ScheduleAll: %v", err)
	}
	s := r.Slot(0)
	if len(s) != SlotCapacity {
		t.Fatalf("slot holds %d writes, want %d", len(s), SlotCapacity)
	}
	if got, want := s[len(s)-1], (WriteSet{Setting{500, 0xFF}, 0x21}); got != want {
		t.Errorf("merged entry = %s, want %s", got, want)
	}
}

func TestRing_SlotNegativeOffset(t *testing.T) {
	r := NewRing(4)
	r.Schedule(3, MustWriteSet(Volume(0), 5))
	if got := len(r.Slot(-1)); got != 1 {
		t.Errorf("Slot(-1) holds %d writes, want the one at offset 3", got)
	}
	if got := len(r.Slot(-9)); got != 1 {
		t.Errorf("Slot(-9) holds %d writes, want the one at offset 3", got)
	}
}

func TestRing_ScheduleAllNoAllocations(t *testing.T) {
	r := NewRing(8)
	batch := []Scheduled{
		{Offset: 0, Write: MustWriteSet(Volume(1), 7)},
		{Offset: 3, Write: MustWriteSet(Gate(1), CtrlGate)},
	}
	apply := func(WriteSet) {}
	allocs := testing.AllocsPerRun(100, func() {
		r.ScheduleAll(batch)
		r.CommitAndAdvance(apply)
	})
	if allocs != 0 {
		t.Errorf("allocs per frame = %v, want 0", allocs)
	}
}
