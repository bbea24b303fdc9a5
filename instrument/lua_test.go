package instrument

import (
	"errors"
	"testing"

	"github.com/JeanRibes/chiptracker/chip"
	"github.com/JeanRibes/chiptracker/music"
	"gitlab.com/gomidi/midi/v2"
)

func midiNote(n uint8) midi.Note { return midi.Note(n) }

const gateScript = `
function press(freq, p0, p1)
  local ctrl = voice() * 4 + 2
  write(ctrl, 0x01, 1)
  wait(p0 or 3)
  write(ctrl, 0x01, 0)
end
`

func triggerLua(t *testing.T, src string, voice int, ev music.NoteEvent) (*Cursor, error) {
	t.Helper()
	p, err := NewLuaProgram("test", src)
	if err != nil {
		t.Fatalf("NewLuaProgram: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	table := NewTable(1)
	table.Set(0, "test", voice, p)
	c := NewCursor()
	_, err = table.Trigger(c, ev)
	return c, err
}

func TestLua_PressWritesAndWaits(t *testing.T) {
	tests := []struct {
		name     string
		param0   music.Param
		wantWait int
	}{
		{"default wait", music.Param{}, 3},
		{"param wait", music.P(5), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := music.NoteEvent{Kind: music.Press, Note: 69, Param0: tt.param0}
			c, err := triggerLua(t, gateScript, 1, ev)
			if err != nil {
				t.Fatalf("Trigger: %v", err)
			}
			ring := chip.NewRing(8)
			if err := c.Commit(ring); err != nil {
				t.Fatalf("Commit: %v", err)
			}
			on := ring.Slot(0)
			if len(on) != 1 || on[0].Address != 6 || on[0].Value != 1 {
				t.Errorf("slot 0 = %v, want gate on at 0x06", on)
			}
			off := ring.Slot(tt.wantWait)
			if len(off) != 1 || off[0].Value != 0 {
				t.Errorf("slot %d = %v, want gate off", tt.wantWait, off)
			}
		})
	}
}

func TestLua_PeriodAndVoiceGlobals(t *testing.T) {
	src := `
function press(freq)
  local p = period(freq)
  write(VOICE * 4, 0xFF, p % 256)
  write(VOICE * 4 + 1, 0xFF, math.floor(p / 256))
end
`
	c, err := triggerLua(t, src, 2, music.NoteEvent{Kind: music.Press, Note: 69})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	lo, hi := chip.FrequencyWrites(2, 440)
	got := c.Staged()
	if len(got) != 2 || got[0] != lo || got[1] != hi {
		t.Errorf("staged %v, want %v %v", got, lo, hi)
	}
}

func TestLua_ReleaseIsOptional(t *testing.T) {
	c, err := triggerLua(t, gateScript, 0, music.NoteEvent{Kind: music.Release})
	if err != nil || len(c.Staged()) != 0 {
		t.Errorf("release without handler: err %v, %d writes", err, len(c.Staged()))
	}

	src := gateScript + `
function release()
  write(2, 0x01, 0)
end
`
	c, err = triggerLua(t, src, 0, music.NoteEvent{Kind: music.Release})
	if err != nil || len(c.Staged()) != 1 {
		t.Errorf("release handler: err %v, %d writes", err, len(c.Staged()))
	}
}

func TestLua_RuntimeErrorIsAFault(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"error()", `function press() write(0, 0xFF, 1) error("nope") end`},
		{"bad mask", `function press() write(0, 0x01, 3) end`},
		{"nil arithmetic", `function press() local t = {} local x = t.missing + 1 end`},
		{"negative wait", `function press() wait(-2) end`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := triggerLua(t, tt.src, 0, music.NoteEvent{Kind: music.Press, Note: 60})
			if !errors.Is(err, ErrProgramFault) {
				t.Errorf("err = %v, want a program fault", err)
			}
			if n := len(c.Staged()); n != 0 {
				t.Errorf("%d writes survived the fault", n)
			}
		})
	}
}

func TestLua_CompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `function press(`},
		{"no press", `function release() end`},
		{"chip access at load", `write(0, 0xFF, 1) function press() end`},
		{"sandboxed io", `io.write("x") function press() end`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if p, err := NewLuaProgram("bad", tt.src); err == nil {
				p.Close()
				t.Error("NewLuaProgram succeeded")
			}
		})
	}
}

func TestLua_EndlessLoopIsStopped(t *testing.T) {
	p, err := NewLuaProgram("spin", `
function press() while true do end end
function release() write(2, 1, 0) end
`)
	if err != nil {
		t.Fatalf("NewLuaProgram: %v", err)
	}
	defer p.Close()

	table := NewTable(1)
	table.Set(0, "spin", 0, p)
	c := NewCursor()
	err = triggerWithin(t, table, c, music.NoteEvent{Kind: music.Press, Note: 60})
	if !errors.Is(err, ErrProgramFault) || !errors.Is(err, ErrOverBudget) {
		t.Fatalf("err = %v, want a program fault over budget", err)
	}

	// the state is still usable once the budget is lifted
	if _, err := table.Trigger(c, music.NoteEvent{Kind: music.Release}); err != nil {
		t.Fatalf("release after timeout: %v", err)
	}
	if n := len(c.Staged()); n != 1 {
		t.Errorf("staged %d writes, want 1", n)
	}
}
