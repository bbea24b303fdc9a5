package chip

import (
	"errors"
	"testing"
)

func TestMerge_MaskUnionRightBiased(t *testing.T) {
	tests := []struct {
		name      string
		a, b      WriteSet
		wantMask  uint8
		wantValue uint8
	}{
		{"disjoint", WriteSet{Setting{2, 0x01}, 0x01}, WriteSet{Setting{2, 0x06}, 0x04}, 0x07, 0x05},
		{"overlap_b_wins", WriteSet{Setting{2, 0x0F}, 0x0F}, WriteSet{Setting{2, 0x03}, 0x01}, 0x0F, 0x0D},
		{"b_clears", WriteSet{Setting{3, 0xFF}, 0xFF}, WriteSet{Setting{3, 0xF0}, 0x00}, 0xFF, 0x0F},
		{"same_mask", WriteSet{Setting{0, 0xFF}, 0x12}, WriteSet{Setting{0, 0xFF}, 0x34}, 0xFF, 0x34},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Merge(tc.a, tc.b)
			if err != nil {
				t.Fatalf("Merge: %v", err)
			}
			if got.Mask != tc.wantMask {
				t.Errorf("mask = %08b, want %08b", got.Mask, tc.wantMask)
			}
			if got.Value != tc.wantValue {
				t.Errorf("value = %08b, want %08b", got.Value, tc.wantValue)
			}
		})
	}
}

// Exhaustive over every mask/value pair of a single register.
func TestMerge_Properties(t *testing.T) {
	for am := 0; am < 256; am += 5 {
		for bm := 0; bm < 256; bm += 7 {
			a := WriteSet{Setting{1, uint8(am)}, uint8(0xA5 & am)}
			b := WriteSet{Setting{1, uint8(bm)}, uint8(0x5A & bm)}
			got, err := Merge(a, b)
			if err != nil {
				t.Fatal(err)
			}
			if got.Mask != a.Mask|b.Mask {
				t.Fatalf("mask %08b, want %08b", got.Mask, a.Mask|b.Mask)
			}
			if got.Value&b.Mask != b.Value {
				t.Fatalf("bits under b's mask = %08b, want %08b", got.Value&b.Mask, b.Value)
			}
			onlyA := a.Mask &^ b.Mask
			if got.Value&onlyA != a.Value&onlyA {
				t.Fatalf("bits only under a's mask = %08b, want %08b", got.Value&onlyA, a.Value&onlyA)
			}
			if got.Value&^got.Mask != 0 {
				t.Fatalf("value %08b escapes mask %08b", got.Value, got.Mask)
			}
		}
	}
}

func TestMerge_AddressMismatch(t *testing.T) {
	_, err := Merge(WriteSet{Setting{1, 1}, 1}, WriteSet{Setting{2, 1}, 1})
	if !errors.Is(err, ErrAddressMismatch) {
		t.Errorf("err = %v, want ErrAddressMismatch", err)
	}
}

func TestNewWriteSet_ValidatesMask(t *testing.T) {
	if _, err := NewWriteSet(Volume(0), 0x10); !errors.Is(err, ErrValueOutsideMask) {
		t.Errorf("err = %v, want ErrValueOutsideMask", err)
	}
	w, err := Waveform(1).Field(WaveNoise)
	if err != nil {
		t.Fatal(err)
	}
	if w.Value != 0x04 || w.Address != VoiceBase(1)+RegCtrl {
		t.Errorf("got %s, want value 0x04 at CTRL of voice 1", w)
	}
	if _, err := Waveform(1).Field(4); err == nil {
		t.Error("field value 4 fits a 2-bit field")
	}
}

func TestApply(t *testing.T) {
	w := WriteSet{Setting{0, 0x0C}, 0x08}
	if got := w.Apply(0xFF); got != 0xFB {
		t.Errorf("Apply(0xFF) = %#x, want 0xfb", got)
	}
}

func TestPeriod(t *testing.T) {
	tests := []struct {
		freq float64
		want uint16
	}{
		{440, 1136},
		{0, 0xFFFF},
		{1, 0xFFFF},
		{1e7, 1},
	}
	for _, tc := range tests {
		if got := Period(tc.freq); got != tc.want {
			t.Errorf("Period(%v) = %d, want %d", tc.freq, got, tc.want)
		}
	}
}
