package instrument

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JeanRibes/chiptracker/chip"
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"gopkg.in/yaml.v3"
)

// Definition is one entry of an instruments file. Exactly one of Lua and
// Wasm is set; Wasm is a path relative to the file.
type Definition struct {
	Name  string `yaml:"name"`
	Voice int    `yaml:"voice"`
	Lua   string `yaml:"lua,omitempty"`
	Wasm  string `yaml:"wasm,omitempty"`
}

type definitionsFile struct {
	Instruments []Definition `yaml:"instruments"`
}

//go:embed default.yaml
var defaultDefinitions []byte

// Default compiles the built-in instrument set.
func Default(ctx context.Context) (*Table, error) {
	return Parse(ctx, defaultDefinitions, ".")
}

// Load reads and compiles an instruments file. The table is always usable:
// instruments that fail to compile are left empty and their errors joined
// into the returned error.
func Load(ctx context.Context, path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("read instruments"))
	}
	return Parse(ctx, data, filepath.Dir(path))
}

func Parse(ctx context.Context, data []byte, dir string) (*Table, error) {
	var f definitionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fault.Wrap(err, fmsg.With("parse instruments"))
	}

	t := NewTable(len(f.Instruments))
	var errs error
	for i, d := range f.Instruments {
		if d.Name == "" {
			d.Name = fmt.Sprintf("instrument %d", i)
		}
		p, err := compile(ctx, d, dir)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", d.Name, err))
		}
		t.Set(i, d.Name, d.Voice, p)
	}
	return t, errs
}

func compile(ctx context.Context, d Definition, dir string) (Program, error) {
	if d.Voice < 0 || d.Voice >= chip.NumVoices {
		return nil, fmt.Errorf("voice %d out of range", d.Voice)
	}
	switch {
	case d.Lua != "" && d.Wasm != "":
		return nil, errors.New("both lua and wasm given")
	case d.Lua != "":
		p, err := NewLuaProgram(d.Name, d.Lua)
		if err != nil {
			return nil, err
		}
		return p, nil
	case d.Wasm != "":
		path := d.Wasm
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		bin, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		p, err := NewWasmProgram(ctx, d.Name, bin)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, errors.New("no program")
}
