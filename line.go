package wad

import "strings"

type binLineDef struct {
	VertexStart, VertexEnd int16
	Flags                  int16
	Special                int16
	SectorTag              int16
	SideR, SideL           int16
}

// NoSide marks the missing side of a one-sided line
const NoSide = -1

// LineDef is a line between two vertexes. SideR is the right (front) side, seen when looking
// from V1 towards V2. SideL is NoSide for one-sided lines.
type LineDef struct {
	V1, V2  int
	Flags   LineFlags
	Special int
	Tag     int
	SideR   int
	SideL   int
}

// LineFlags is the bit set stored in a linedef's flags field.
type LineFlags uint16

const (
	Blocking      LineFlags = 1 << iota // Blocks players and monsters
	BlockMonsters                       // Blocks monsters only
	TwoSided                            // Backside will not be present at all if not two sided
	DontPegTop                          // Upper texture is unpegged
	DontPegBottom                       // Lower texture is unpegged
	Secret                              // Shown as one-sided on the automap
	SoundBlock                          // Blocks sound propagation
	DontDraw                            // Never drawn on the automap
	Mapped                              // Already seen, so drawn on the automap
)

var lineFlagNames = []string{
	"blocking", "block-monsters", "two-sided", "dont-peg-top", "dont-peg-bottom",
	"secret", "sound-block", "dont-draw", "mapped",
}

// Has reports whether all of the given flags are set
func (f LineFlags) Has(flags LineFlags) bool {
	return f&flags == flags
}

// Any reports whether any of the given flags are set
func (f LineFlags) Any(flags LineFlags) bool {
	return f&flags != 0
}

func (f LineFlags) String() string {
	names := make([]string, 0, len(lineFlagNames))
	for i, name := range lineFlagNames {
		if f&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Front returns the right sidedef, or nil
func (l *LineDef) Front(level *Level) *SideDef {
	return level.sideDef(l.SideR)
}

// Back returns the left sidedef, or nil for one-sided lines
func (l *LineDef) Back(level *Level) *SideDef {
	return level.sideDef(l.SideL)
}

// IsTwoSided reports whether the line has sidedefs on both sides
func (l *LineDef) IsTwoSided() bool {
	return l.SideR != NoSide && l.SideL != NoSide
}
