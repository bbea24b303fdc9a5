package instrument

import (
	"context"

	"github.com/JeanRibes/chiptracker/chip"
	"github.com/JeanRibes/chiptracker/music"
	lua "github.com/yuin/gopher-lua"
)

// LuaProgram runs an instrument script. The script defines
//
//	function press(freq, p0, p1) ... end
//	function release() ... end -- optional
//
// and drives the chip through write(addr, mask, value), wait(frames),
// voice() and period(freq). VOICE holds the assigned voice as well. Missing
// step parameters arrive as nil.
type LuaProgram struct {
	name    string
	L       *lua.LState
	press   *lua.LFunction
	release *lua.LFunction
	cursor  *Cursor
}

var luaLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

func NewLuaProgram(name, source string) (*LuaProgram, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range luaLibs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, err
		}
	}

	p := &LuaProgram{name: name, L: L}
	L.SetGlobal("write", L.NewFunction(p.write))
	L.SetGlobal("wait", L.NewFunction(p.wait))
	L.SetGlobal("voice", L.NewFunction(p.voice))
	L.SetGlobal("period", L.NewFunction(p.period))

	if err := L.DoString(source); err != nil {
		L.Close()
		return nil, err
	}
	press, ok := L.GetGlobal("press").(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, ErrNoPressEntry
	}
	p.press = press
	p.release, _ = L.GetGlobal("release").(*lua.LFunction)
	return p, nil
}

func (p *LuaProgram) Trigger(c *Cursor, ev music.NoteEvent) error {
	if ev.Kind == music.Release && p.release == nil {
		return nil
	}
	p.cursor = c
	defer func() { p.cursor = nil }()
	p.L.SetGlobal("VOICE", lua.LNumber(c.Voice()))

	ctx, cancel := context.WithTimeout(context.Background(), CallBudget)
	defer cancel()
	p.L.SetContext(ctx)
	defer p.L.RemoveContext()

	var err error
	if ev.Kind == music.Release {
		err = p.L.CallByParam(lua.P{Fn: p.release, NRet: 0, Protect: true})
	} else {
		err = p.L.CallByParam(lua.P{Fn: p.press, NRet: 0, Protect: true},
			lua.LNumber(ev.Frequency()), luaParam(ev.Param0), luaParam(ev.Param1))
	}
	return overBudget(ctx, err)
}

func (p *LuaProgram) Close() error {
	p.L.Close()
	return nil
}

func luaParam(v music.Param) lua.LValue {
	if !v.Valid {
		return lua.LNil
	}
	return lua.LNumber(v.Value)
}

// active is the cursor of the running trigger; host calls made while the
// script is loading have none.
func (p *LuaProgram) active(L *lua.LState) *Cursor {
	if p.cursor == nil {
		L.RaiseError("chip access outside press or release")
	}
	return p.cursor
}

func (p *LuaProgram) write(L *lua.LState) int {
	c := p.active(L)
	addr, mask, value := L.CheckInt(1), L.CheckInt(2), L.CheckInt(3)
	if addr < 0 || addr > 0xFFFF {
		L.ArgError(1, "address out of range")
		return 0
	}
	if mask < 0 || mask > 0xFF || value < 0 || value > 0xFF {
		L.ArgError(2, "mask and value must be bytes")
		return 0
	}
	if err := c.Write(uint16(addr), uint8(mask), uint8(value)); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (p *LuaProgram) wait(L *lua.LState) int {
	if err := p.active(L).Wait(L.OptInt(1, 1)); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (p *LuaProgram) voice(L *lua.LState) int {
	L.Push(lua.LNumber(p.active(L).Voice()))
	return 1
}

func (p *LuaProgram) period(L *lua.LState) int {
	L.Push(lua.LNumber(chip.Period(float64(L.CheckNumber(1)))))
	return 1
}
