package ui

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

const DefaultPreferencesPath = "~/.config/chiptracker/preferences.yaml"

const maxRecent = 20

type RecentFile struct {
	Path string `yaml:"path"`
	Time int64  `yaml:"time"`
}

type RecentFiles []RecentFile

// Preferences remembers recently used files between runs.
type Preferences struct {
	RecentInstruments RecentFiles `yaml:"recent_instruments"`
	RecentSongs       RecentFiles `yaml:"recent_songs"`

	path string
}

// LoadPreferences reads path; a missing file gives empty preferences that
// will be saved there.
func LoadPreferences(path string) (*Preferences, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	prefs := &Preferences{path: expanded}
	data, err := os.ReadFile(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return prefs, nil
	}
	if err != nil {
		return prefs, err
	}
	if err := yaml.Unmarshal(data, prefs); err != nil {
		return prefs, err
	}
	prefs.Refresh()
	return prefs, nil
}

func (p *Preferences) Save() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// unique keeps the latest entry for each path, oldest first, at most
// maxRecent of them.
func unique(sl RecentFiles) RecentFiles {
	seen := map[string]bool{}
	out := RecentFiles{}
	for i := len(sl) - 1; i >= 0; i-- {
		if seen[sl[i].Path] {
			continue
		}
		seen[sl[i].Path] = true
		out = append(out, sl[i])
	}
	if len(out) > maxRecent {
		out = out[:maxRecent]
	}
	slices.Reverse(out)
	return out
}

func (p *Preferences) AddInstruments(path string) {
	p.RecentInstruments = unique(append(p.RecentInstruments, RecentFile{
		Path: path,
		Time: time.Now().Unix(),
	}))
}

func (p *Preferences) AddSong(path string) {
	p.RecentSongs = unique(append(p.RecentSongs, RecentFile{
		Path: path,
		Time: time.Now().Unix(),
	}))
}

// Songs lists recent songs, most recent first.
func (p *Preferences) Songs() RecentFiles {
	s := slices.Clone(p.RecentSongs)
	slices.Reverse(s)
	return s
}

func (p *Preferences) Instruments() RecentFiles {
	s := slices.Clone(p.RecentInstruments)
	slices.Reverse(s)
	return s
}

// Refresh drops entries whose file is gone and updates modification times.
func (p *Preferences) Refresh() {
	refresh := func(rfs RecentFiles) RecentFiles {
		out := rfs[:0]
		for _, rf := range rfs {
			stat, err := os.Stat(rf.Path)
			if err != nil {
				continue
			}
			rf.Time = stat.ModTime().Unix()
			out = append(out, rf)
		}
		return out
	}
	p.RecentInstruments = refresh(p.RecentInstruments)
	p.RecentSongs = refresh(p.RecentSongs)
}
