package chip

import (
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// SlotCapacity bounds how many distinct register writes one frame can hold.
const SlotCapacity = 32

type slot struct {
	writes [SlotCapacity]WriteSet
	n      int
}

func (s *slot) add(w WriteSet) error {
	for i := 0; i < s.n; i++ {
		if s.writes[i].Address == w.Address {
			s.writes[i] = s.writes[i].merge(w)
			return nil
		}
	}
	if s.n == SlotCapacity {
		return ErrSlotFull
	}
	s.writes[s.n] = w
	s.n++
	return nil
}

// Ring holds register writes for the current frame and the next Len()-1
// frames. It never allocates after NewRing.
type Ring struct {
	slots   []slot
	current int
	// per slot entry counts while ScheduleAll checks a batch
	extra []int
}

func NewRing(length int) *Ring {
	if length < 1 {
		length = 1
	}
	return &Ring{slots: make([]slot, length), extra: make([]int, length)}
}

func (r *Ring) Len() int {
	return len(r.slots)
}

// Schedule merges w into the slot offset frames from now. An offset outside
// the ring is clamped to the last slot and reported; builds with the
// chipdebug tag panic instead.
func (r *Ring) Schedule(offset int, w WriteSet) error {
	offset, rangeErr := r.clamp(offset)
	if err := r.slots[(r.current+offset)%len(r.slots)].add(w); err != nil {
		return fault.Wrap(err, fmsg.With(fmt.Sprintf("offset %d: %s", offset, w)))
	}
	return rangeErr
}

// Scheduled is a write bound for the slot Offset frames from now.
type Scheduled struct {
	Offset int
	Write  WriteSet
}

// ScheduleAll places every write of batch or none of them. Offsets are
// clamped as in Schedule; a batch that would overflow a slot is rejected
// whole with ErrSlotFull.
func (r *Ring) ScheduleAll(batch []Scheduled) error {
	var rangeErr error
	for i := range batch {
		if _, err := r.clamp(batch[i].Offset); err != nil && rangeErr == nil {
			rangeErr = err
		}
	}
	full := -1
	for i := range batch {
		if !r.grows(batch, i) {
			continue
		}
		idx := r.index(batch[i].Offset)
		r.extra[idx]++
		if r.slots[idx].n+r.extra[idx] > SlotCapacity {
			full = i
			break
		}
	}
	for i := range batch {
		r.extra[r.index(batch[i].Offset)] = 0
	}
	if full >= 0 {
		return fault.Wrap(ErrSlotFull,
			fmsg.With(fmt.Sprintf("offset %d: %s", batch[full].Offset, batch[full].Write)))
	}
	for _, b := range batch {
		// cannot fail, room was checked above
		_ = r.slots[r.index(b.Offset)].add(b.Write)
	}
	return rangeErr
}

// grows reports whether batch[i] takes a new entry in its slot: its address
// is neither pending there nor placed by an earlier write of the batch.
func (r *Ring) grows(batch []Scheduled, i int) bool {
	idx, addr := r.index(batch[i].Offset), batch[i].Write.Address
	s := &r.slots[idx]
	for k := 0; k < s.n; k++ {
		if s.writes[k].Address == addr {
			return false
		}
	}
	for j := 0; j < i; j++ {
		if r.index(batch[j].Offset) == idx && batch[j].Write.Address == addr {
			return false
		}
	}
	return true
}

func (r *Ring) index(offset int) int {
	offset = min(max(offset, 0), len(r.slots)-1)
	return (r.current + offset) % len(r.slots)
}

func (r *Ring) clamp(offset int) (int, error) {
	if offset >= 0 && offset < len(r.slots) {
		return offset, nil
	}
	err := fault.Wrap(ErrSchedulingOutOfRange,
		fmsg.With(fmt.Sprintf("offset %d, ring length %d", offset, len(r.slots))),
		ftag.With(KindSchedulingOutOfRange))
	if strictScheduling {
		panic(err)
	}
	if offset < 0 {
		return 0, err
	}
	return len(r.slots) - 1, err
}

// CommitAndAdvance applies the current slot in insertion order, clears it and
// moves to the next frame.
func (r *Ring) CommitAndAdvance(apply func(WriteSet)) {
	s := &r.slots[r.current]
	for i := 0; i < s.n; i++ {
		apply(s.writes[i])
	}
	s.n = 0
	r.current = (r.current + 1) % len(r.slots)
}

// Slot returns the writes pending offset frames from now. The slice aliases
// the ring and is only valid until the next Schedule or CommitAndAdvance.
func (r *Ring) Slot(offset int) []WriteSet {
	n := len(r.slots)
	s := &r.slots[(r.current+(offset%n+n)%n)%n]
	return s.writes[:s.n]
}

// Pending counts writes across all slots.
func (r *Ring) Pending() int {
	n := 0
	for i := range r.slots {
		n += r.slots[i].n
	}
	return n
}

func (r *Ring) Reset() {
	for i := range r.slots {
		r.slots[i].n = 0
	}
	r.current = 0
}
