package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/JeanRibes/chiptracker/chip"
	"github.com/JeanRibes/chiptracker/config"
	"github.com/JeanRibes/chiptracker/engine"
	"github.com/JeanRibes/chiptracker/instrument"
	"github.com/JeanRibes/chiptracker/music"
	"github.com/JeanRibes/chiptracker/ui"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver
)

func main() {
	configFile := pflag.StringP("config", "c", config.DefaultPath, "config file")
	instrumentsFile := pflag.StringP("instruments", "i", "", "instrument definitions (YAML); built-in set when empty")
	songFile := pflag.StringP("song", "s", "", "MIDI file to load as the song")
	quantize := pflag.Bool("quantize", true, "quantize the MIDI file before mapping notes to steps")
	midiIn := pflag.String("midi", "", "MIDI input port")
	serialPort := pflag.String("serial", "", "serial port of a hardware chip")
	logLevel := pflag.String("log-level", "", "debug, info, warn or error")
	listMIDI := pflag.Bool("list-midi", false, "list MIDI inputs and exit")
	exportDir := pflag.String("export-dir", ".", "where x writes MIDI files")
	pflag.Parse()

	if *listMIDI {
		defer midi.CloseDriver()
		for _, p := range ui.InPorts() {
			fmt.Println(p)
		}
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// flags win over the file
	if *instrumentsFile != "" {
		cfg.Instruments.File = *instrumentsFile
	}
	if *midiIn != "" {
		cfg.MIDI.Input = *midiIn
	}
	if *serialPort != "" {
		cfg.Serial.Port = *serialPort
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level, err := charmlog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = charmlog.InfoLevel
	}
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           level,
		ReportCaller:    level == charmlog.DebugLevel,
		ReportTimestamp: false,
		Prefix:          "chiptracker",
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = charmlog.WithContext(ctx, logger)

	if err := run(ctx, cancel, cfg, *songFile, *quantize, *exportDir); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ui.ErrQuit) {
		logger.Error(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel func(), cfg *config.Config, songFile string, quantize bool, exportDir string) error {
	logger := charmlog.FromContext(ctx)

	prefs, err := ui.LoadPreferences(ui.DefaultPreferencesPath)
	if err != nil {
		logger.Warn("preferences", "err", err)
	}

	table, err := loadInstruments(ctx, cfg.Instruments.File)
	if table == nil {
		return err
	}
	if err != nil {
		logger.Warn("some instruments failed", "err", err)
	}
	if cfg.Instruments.File != "" && prefs != nil {
		prefs.AddInstruments(cfg.Instruments.File)
	}

	song := music.DemoSong()
	if songFile != "" {
		song, err = loadSong(songFile, quantize, table.Len())
		if err != nil {
			table.Close()
			return err
		}
		if prefs != nil {
			prefs.AddSong(songFile)
		}
	}
	if prefs != nil {
		if err := prefs.Save(); err != nil {
			logger.Warn("save preferences", "err", err)
		}
	}

	ecfg := cfg.EngineConfig()
	if cfg.Serial.Port != "" {
		bus, err := chip.OpenSerialBus(ctx, cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			table.Close()
			return err
		}
		defer func() {
			if n := bus.Dropped(); n > 0 {
				logger.Warn("serial writes dropped", "count", n)
			}
			bus.Close()
		}()
		ecfg.Buses = append(ecfg.Buses, bus)
	}

	host := engine.NewHost(ctx, ecfg, song, table)
	sink, err := engine.NewOtoSink(host, cfg.AudioBuffer())
	if err != nil {
		host.Close()
		return err
	}
	sink.Start()
	defer func() {
		sink.Close()
		host.Close()
	}()

	ctrl := ui.NewController(ctx, host, song, prefs)
	ctrl.SetInstrumentNames(table.Names())

	if cfg.Instruments.File != "" {
		w, err := instrument.NewWatcher(ctx, cfg.Instruments.File, cfg.Debounce())
		if err != nil {
			logger.Warn("instruments will not reload", "err", err)
		} else {
			go w.Run(ctx, func(t *instrument.Table, err error) {
				if t == nil {
					return
				}
				ctrl.SetInstrumentNames(t.Names())
				host.Reload(t)
			})
		}
	}

	if cfg.MIDI.Input != "" {
		defer midi.CloseDriver()
		stop, err := ui.ListenMIDI(ctx, cfg.MIDI.Input, ctrl)
		if err != nil {
			logger.Error("MIDI input disabled", "err", err)
		} else {
			defer stop()
		}
	}

	keymap := ui.DefaultKeymap()
	if cfg.Keymap.File != "" {
		if keymap, err = ui.LoadKeymap(cfg.Keymap.File); err != nil {
			return err
		}
	}

	go ctrl.Run(ctx, os.Stdout)
	logger.Info("ready", "keys", "space play, r record, l lock bar, 0-3 instrument, z/c octave, x export, q quit")
	err = ui.NewKeyboard(ctx, os.Stdin, keymap, exportDir).Run(ctx, ctrl)
	cancel()
	return err
}

func loadInstruments(ctx context.Context, path string) (*instrument.Table, error) {
	if path == "" {
		return instrument.Default(ctx)
	}
	return instrument.Load(ctx, path)
}

func loadSong(path string, quantize bool, instruments int) (*music.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tracks, err := music.ImportSMF(f, quantize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return music.SongFromTracks(tracks, max(instruments, 1)), nil
}
