package main

import (
	"context"
	"fmt"
	"os"

	"github.com/JeanRibes/chiptracker/config"
	"github.com/JeanRibes/chiptracker/engine"
	"github.com/JeanRibes/chiptracker/instrument"
	"github.com/JeanRibes/chiptracker/music"
	charmlog "github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"
)

// chiprender plays a song offline and writes it to a WAV file.
func main() {
	out := pflag.StringP("out", "o", "song.wav", "WAV file to write")
	seconds := pflag.Float64P("seconds", "t", 0, "length to render; one loop of the song when 0")
	configFile := pflag.StringP("config", "c", config.DefaultPath, "config file")
	instrumentsFile := pflag.StringP("instruments", "i", "", "instrument definitions (YAML); built-in set when empty")
	songFile := pflag.StringP("song", "s", "", "MIDI file to render; the demo song when empty")
	quantize := pflag.Bool("quantize", true, "quantize the MIDI file before mapping notes to steps")
	sync := pflag.Bool("sync", false, "put the sync pulse on the right channel")
	dump := pflag.Bool("dump", false, "print the song and settings instead of rendering")
	pflag.Parse()

	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{Prefix: "chiprender"})
	ctx := charmlog.WithContext(context.Background(), logger)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Fatal(err)
	}
	if *instrumentsFile != "" {
		cfg.Instruments.File = *instrumentsFile
	}
	if *sync {
		cfg.Sync.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal(err)
	}

	var table *instrument.Table
	if cfg.Instruments.File == "" {
		table, err = instrument.Default(ctx)
	} else {
		table, err = instrument.Load(ctx, cfg.Instruments.File)
	}
	if table == nil {
		logger.Fatal(err)
	}
	if err != nil {
		logger.Warn("some instruments failed", "err", err)
	}

	song := music.DemoSong()
	if *songFile != "" {
		f, err := os.Open(*songFile)
		if err != nil {
			logger.Fatal(err)
		}
		tracks, err := music.ImportSMF(f, *quantize)
		f.Close()
		if err != nil {
			logger.Fatal(fmt.Errorf("%s: %w", *songFile, err))
		}
		song = music.SongFromTracks(tracks, max(table.Len(), 1))
	}

	ecfg := cfg.EngineConfig()
	if *dump {
		spew.Dump(ecfg, table.Names(), song)
		table.Close()
		return
	}

	length := *seconds
	if length <= 0 {
		length = float64(song.TotalSteps()) / ecfg.StepsPerSecond()
	}

	e := engine.NewSoundEngine(ecfg, song, table, engine.Links{Logger: logger.WithPrefix("engine")})
	defer e.Close()
	e.SetPlaying(true)

	w, err := os.Create(*out)
	if err != nil {
		logger.Fatal(err)
	}
	if err := engine.RenderWAV(e, w, length); err != nil {
		w.Close()
		logger.Fatal(err)
	}
	if err := w.Close(); err != nil {
		logger.Fatal(err)
	}
	logger.Info("rendered", "file", *out, "seconds", length, "steps", song.TotalSteps())
}
