package instrument

import (
	"errors"
	"testing"

	"github.com/JeanRibes/chiptracker/chip"
	"github.com/JeanRibes/chiptracker/music"
	"github.com/Southclaws/fault/ftag"
)

func press(inst int, note uint8) music.NoteEvent {
	return music.NoteEvent{Instrument: inst, Kind: music.Press, Note: midiNote(note)}
}

func TestCursor_CommitSchedulesAtOffsets(t *testing.T) {
	ring := chip.NewRing(8)
	c := NewCursor()
	c.reset(1)

	c.Write(5, 0x01, 0x01)
	c.Wait(3)
	c.Write(5, 0x01, 0x00)
	if got := c.Offset(); got != 3 {
		t.Errorf("Offset = %d, want 3", got)
	}
	if err := c.Commit(ring); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if n := len(c.Staged()); n != 0 {
		t.Errorf("%d writes still staged after commit", n)
	}

	for offset, want := range map[int]int{0: 1, 1: 0, 2: 0, 3: 1} {
		if got := len(ring.Slot(offset)); got != want {
			t.Errorf("slot %d holds %d writes, want %d", offset, got, want)
		}
	}
	if v := ring.Slot(3)[0].Value; v != 0 {
		t.Errorf("release value = %d, want 0", v)
	}
}

func TestCursor_RejectsBadWrites(t *testing.T) {
	tests := []struct {
		name string
		do   func(c *Cursor) error
		want error
	}{
		{"value outside mask", func(c *Cursor) error { return c.Write(0, 0x0F, 0x10) }, chip.ErrValueOutsideMask},
		{"negative wait", func(c *Cursor) error { return c.Wait(-1) }, ErrNegativeWait},
		{"too many writes", func(c *Cursor) error {
			var err error
			for i := 0; i <= MaxStagedWrites && err == nil; i++ {
				err = c.Write(0, 0xFF, uint8(i))
			}
			return err
		}, ErrTooManyWrites},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor()
			c.reset(0)
			if err := tt.do(c); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if !errors.Is(c.Err(), tt.want) {
				t.Errorf("Err() = %v, want %v", c.Err(), tt.want)
			}
		})
	}
}

func TestCursor_WaitPastRingIsClamped(t *testing.T) {
	ring := chip.NewRing(4)
	c := NewCursor()
	c.reset(0)
	c.Wait(10)
	c.Write(2, 0x01, 0x01)

	defer func() {
		// chipdebug builds panic instead
		recover()
	}()
	err := c.Commit(ring)
	if !errors.Is(err, chip.ErrSchedulingOutOfRange) {
		t.Fatalf("err = %v, want ErrSchedulingOutOfRange", err)
	}
	if got := len(ring.Slot(3)); got != 1 {
		t.Errorf("last slot holds %d writes, want the clamped one", got)
	}
}

func TestTable_FaultDropsWrites(t *testing.T) {
	boom := errors.New("boom")
	table := NewTable(3)
	table.Set(0, "ok", 2, ProgramFunc(func(c *Cursor, ev music.NoteEvent) error {
		if c.Voice() != 2 {
			t.Errorf("voice = %d, want 2", c.Voice())
		}
		return c.Write(chip.VoiceBase(c.Voice())+chip.RegCtrl, chip.CtrlGate, chip.CtrlGate)
	}))
	table.Set(1, "broken", 1, ProgramFunc(func(c *Cursor, ev music.NoteEvent) error {
		c.Write(4, 0xFF, 1)
		return boom
	}))
	// slot 2 failed to load

	ring := chip.NewRing(4)
	c := NewCursor()

	ran, err := table.Trigger(c, press(1, 60))
	if !ran || !errors.Is(err, ErrProgramFault) || !errors.Is(err, boom) {
		t.Fatalf("Trigger(broken) = %v, %v", ran, err)
	}
	if ftag.Get(err) != KindProgramFault {
		t.Errorf("kind = %v, want %v", ftag.Get(err), KindProgramFault)
	}
	c.Commit(ring)
	if n := ring.Pending(); n != 0 {
		t.Errorf("faulted trigger left %d writes", n)
	}

	if ran, err := table.Trigger(c, press(2, 60)); ran || err != nil {
		t.Errorf("Trigger(empty slot) = %v, %v", ran, err)
	}
	if ran, err := table.Trigger(c, press(7, 60)); ran || err != nil {
		t.Errorf("Trigger(unknown) = %v, %v", ran, err)
	}

	if ran, err := table.Trigger(c, press(0, 60)); !ran || err != nil {
		t.Fatalf("Trigger(ok) = %v, %v", ran, err)
	}
	c.Commit(ring)
	if n := ring.Pending(); n != 1 {
		t.Errorf("pending = %d, want 1", n)
	}
	if table.Loaded() != 2 {
		t.Errorf("Loaded = %d, want 2", table.Loaded())
	}
}

func TestTable_HostErrorIsAFault(t *testing.T) {
	table := NewTable(1)
	table.Set(0, "sloppy", 0, ProgramFunc(func(c *Cursor, ev music.NoteEvent) error {
		c.Write(0, 0x01, 0xFF) // error ignored by the program
		return nil
	}))
	_, err := table.Trigger(NewCursor(), press(0, 60))
	if !errors.Is(err, chip.ErrValueOutsideMask) {
		t.Errorf("err = %v, want ErrValueOutsideMask", err)
	}
}

func TestCursor_OverfullCommitSchedulesNothing(t *testing.T) {
	ring := chip.NewRing(4)
	ring.Schedule(2, chip.MustWriteSet(chip.Volume(0), 3))

	table := NewTable(1)
	table.Set(0, "wide", 0, ProgramFunc(func(c *Cursor, ev music.NoteEvent) error {
		c.Write(chip.VoiceBase(0)+chip.RegCtrl, chip.CtrlGate, chip.CtrlGate)
		c.Wait(1)
		for addr := 0; addr < 40; addr++ {
			if err := c.Write(uint16(0x100+addr), 0xFF, 1); err != nil {
				return err
			}
		}
		return nil
	}))
	c := NewCursor()
	if _, err := table.Trigger(c, press(0, 60)); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	err := c.Commit(ring)
	if !errors.Is(err, chip.ErrSlotFull) {
		t.Fatalf("Commit err = %v, want ErrSlotFull", err)
	}
	if n := ring.Pending(); n != 1 {
		t.Errorf("pending = %d, want only the earlier write", n)
	}
	if n := len(c.Staged()); n != 0 {
		t.Errorf("%d writes still staged", n)
	}
}
