package music

import "gitlab.com/gomidi/midi/v2"

// KeySignature lets a player record on the white keys only: naturals that
// the key alters are shifted by a semitone before they reach the pattern.
type KeySignature int

const (
	CMajor KeySignature = iota
	FMajor
	BFlatMajor
	EFlatMajor
	AFlatMajor
	DFlatMajor
	GFlatMajor
	FSharpMajor
	BMajor
	EMajor
	AMajor
	DMajor
	GMajor
)

// relative minors share their major's signature
const (
	AMinor      = CMajor
	DMinor      = FMajor
	GMinor      = BFlatMajor
	CMinor      = EFlatMajor
	FMinor      = AFlatMajor
	BFlatMinor  = DFlatMajor
	EFlatMinor  = GFlatMajor
	DSharpMinor = FSharpMajor
	GSharpMinor = BMajor
	CSharpMinor = EMajor
	FSharpMinor = AMajor
	BMinor      = DMajor
	EMinor      = GMajor
)

// pitch classes of the naturals
const (
	pcC = 0
	pcD = 2
	pcE = 4
	pcF = 5
	pcG = 7
	pcA = 9
	pcB = 11
)

type alteration struct {
	shift int
	notes []int
}

var signatures = map[KeySignature]alteration{
	FMajor:      {-1, []int{pcB}},
	BFlatMajor:  {-1, []int{pcB, pcE}},
	EFlatMajor:  {-1, []int{pcA, pcB, pcE}},
	AFlatMajor:  {-1, []int{pcA, pcB, pcD, pcE}},
	DFlatMajor:  {-1, []int{pcG, pcA, pcB, pcD, pcE}},
	GFlatMajor:  {-1, []int{pcG, pcA, pcB, pcC, pcD, pcE}},
	FSharpMajor: {+1, []int{pcA, pcC, pcD, pcE, pcF, pcG}},
	BMajor:      {+1, []int{pcA, pcC, pcD, pcF, pcG}},
	EMajor:      {+1, []int{pcC, pcD, pcF, pcG}},
	AMajor:      {+1, []int{pcC, pcF, pcG}},
	DMajor:      {+1, []int{pcC, pcF}},
	GMajor:      {+1, []int{pcF}},
}

func (k KeySignature) Apply(n midi.Note) midi.Note {
	alt, ok := signatures[k]
	if !ok {
		return n
	}
	pc := int(n) % 12
	for _, a := range alt.notes {
		if a != pc {
			continue
		}
		v := int(n) + alt.shift
		if v < 0 || v > 127 {
			return n
		}
		return midi.Note(v)
	}
	return n
}
