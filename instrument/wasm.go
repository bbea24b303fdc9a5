package instrument

import (
	"context"

	"github.com/JeanRibes/chiptracker/chip"
	"github.com/JeanRibes/chiptracker/music"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// wasmMemoryPages caps guest memory at 1 MiB.
const wasmMemoryPages = 16

// WasmProgram runs an instrument compiled to WebAssembly. A call that runs
// past CallBudget closes the module; its later notes fault until reload. The guest exports
// press(f32 freq, i32 p0, i32 p1) and optionally release(); missing step
// parameters are -1. It may import from module "env":
//
//	write(i32 addr, i32 mask, i32 value)
//	wait(i32 frames)
//	voice() i32
//	period(f32 freq) i32
type WasmProgram struct {
	name    string
	ctx     context.Context
	rt      wazero.Runtime
	mod     api.Module
	press   api.Function
	release api.Function
	cursor  *Cursor
}

func NewWasmProgram(ctx context.Context, name string, bin []byte) (*WasmProgram, error) {
	rt := wazero.NewRuntimeWithConfig(ctx,
		wazero.NewRuntimeConfig().
			WithMemoryLimitPages(wasmMemoryPages).
			WithCloseOnContextDone(true))
	p := &WasmProgram{name: name, ctx: ctx, rt: rt}

	_, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(p.write).Export("write").
		NewFunctionBuilder().WithFunc(p.wait).Export("wait").
		NewFunctionBuilder().WithFunc(p.voice).Export("voice").
		NewFunctionBuilder().WithFunc(p.period).Export("period").
		Instantiate(ctx)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	mod, err := rt.Instantiate(ctx, bin)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	p.mod = mod
	p.press = mod.ExportedFunction("press")
	if p.press == nil {
		rt.Close(ctx)
		return nil, ErrNoPressEntry
	}
	p.release = mod.ExportedFunction("release")
	return p, nil
}

func (p *WasmProgram) Trigger(c *Cursor, ev music.NoteEvent) error {
	if ev.Kind == music.Release && p.release == nil {
		return nil
	}
	p.cursor = c
	defer func() { p.cursor = nil }()

	ctx, cancel := context.WithTimeout(p.ctx, CallBudget)
	defer cancel()

	var err error
	if ev.Kind == music.Release {
		_, err = p.release.Call(ctx)
	} else {
		_, err = p.press.Call(ctx,
			api.EncodeF32(float32(ev.Frequency())),
			api.EncodeI32(wasmParam(ev.Param0)),
			api.EncodeI32(wasmParam(ev.Param1)))
	}
	return overBudget(ctx, err)
}

func (p *WasmProgram) Close() error {
	return p.rt.Close(p.ctx)
}

func wasmParam(v music.Param) int32 {
	if !v.Valid {
		return -1
	}
	return int32(v.Value)
}

// Host functions record failures on the cursor; Table.Trigger turns them
// into a fault once the guest returns.

func (p *WasmProgram) write(_ context.Context, addr, mask, value uint32) {
	if p.cursor == nil {
		return
	}
	switch {
	case addr > 0xFFFF:
		p.cursor.fail(chip.ErrBadAddress)
		return
	case mask > 0xFF || value > 0xFF:
		p.cursor.fail(chip.ErrValueOutsideMask)
		return
	}
	p.cursor.Write(uint16(addr), uint8(mask), uint8(value))
}

func (p *WasmProgram) wait(_ context.Context, frames uint32) {
	if p.cursor == nil {
		return
	}
	p.cursor.Wait(int(int32(frames)))
}

func (p *WasmProgram) voice(_ context.Context) uint32 {
	if p.cursor == nil {
		return 0
	}
	return uint32(p.cursor.Voice())
}

func (p *WasmProgram) period(_ context.Context, freq float32) uint32 {
	return uint32(chip.Period(float64(freq)))
}
