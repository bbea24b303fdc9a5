package music

import (
	"bytes"
	"testing"
)

func TestSMF_ExportImportKeepsNotePositions(t *testing.T) {
	song := NewSong(2)
	song.SetStep(0, 0, Step{Press: true, Note: 60})
	song.SetStep(4, 0, Step{Release: true})
	song.SetStep(8, 0, Step{Press: true, Release: true, Note: 62})
	song.SetStep(12, 0, Step{Press: true, Note: 64})
	song.SetStep(14, 0, Step{Press: true, Note: 65}) // cuts 64 short

	var buf bytes.Buffer
	if err := ExportSMF(&buf, song, 10, []string{"lead"}); err != nil {
		t.Fatalf("ExportSMF: %v", err)
	}
	tracks, err := ImportSMF(&buf, false)
	if err != nil {
		t.Fatalf("ImportSMF: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("imported %d tracks, want 1 (empty instruments dropped)", len(tracks))
	}

	got := tracks[0]
	want := map[int]Step{
		0:  {Press: true, Note: 60},
		4:  {Release: true},
		8:  {Press: true, Note: 62},
		9:  {Release: true},
		12: {Press: true, Note: 64},
		14: {Press: true, Note: 65},
		64: {Release: true},
	}
	for i, st := range got {
		w, ok := want[i]
		if !ok {
			if !st.Empty() {
				t.Errorf("step %d = %+v, want empty", i, st)
			}
			continue
		}
		if st != w {
			t.Errorf("step %d = %+v, want %+v", i, st, w)
		}
	}
	if len(got) != 65 {
		t.Errorf("imported %d steps, want 65", len(got))
	}
}

func TestSMF_ImportRejectsGarbage(t *testing.T) {
	if _, err := ImportSMF(bytes.NewReader([]byte("not a midi file")), false); err == nil {
		t.Error("ImportSMF accepted garbage")
	}
}
