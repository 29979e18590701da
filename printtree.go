package wad

import (
	"fmt"
	"io"
)

// PrintTree prints the level's BSP tree, root first, one node or subsector per line
func PrintTree(w io.Writer, level *Level) {
	if len(level.Nodes) == 0 {
		fmt.Fprintln(w, "- subsector 0")
		return
	}

	var printRecursive func(child uint16, prefix string)
	printRecursive = func(child uint16, prefix string) {
		idx := ChildIndex(child)
		if IsSubSector(child) {
			ss := level.SubSectors[idx]
			fmt.Fprintf(w, "%s- subsector %d segs %d+%d\n", prefix, idx, ss.FirstSeg, ss.NumSegs)
			return
		}
		n := level.Nodes[idx]
		fmt.Fprintf(w, "%s- node %d partition (%d,%d) delta (%d,%d)\n", prefix, idx, n.X, n.Y, n.DX, n.DY)
		printRecursive(n.ChildR, prefix+"   ")
		printRecursive(n.ChildL, prefix+"   ")
	}

	printRecursive(uint16(len(level.Nodes)-1), "")
}
