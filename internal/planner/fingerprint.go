package planner

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"sort"

	"github.com/flexinfer/scrapeflow/pkg/types"
)

// Fingerprint computes a stable SHA-256 of a graph. Node and edge order is
// significant because it decides order within phases; input map order is
// not. Any change to a node, edge or literal changes the fingerprint.
func Fingerprint(nodes []types.Node, edges []types.Edge) string {
	h := sha256.New()

	writeInt(h, len(nodes))
	for _, n := range nodes {
		writeString(h, n.ID)
		writeString(h, string(n.TaskType))
		writeFloat(h, n.Position.X)
		writeFloat(h, n.Position.Y)

		keys := make([]string, 0, len(n.Inputs))
		for k := range n.Inputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		writeInt(h, len(keys))
		for _, k := range keys {
			writeString(h, k)
			writeString(h, n.Inputs[k])
		}
	}

	writeInt(h, len(edges))
	for _, e := range edges {
		writeString(h, e.ID)
		writeString(h, e.Source)
		writeString(h, e.SourceHandle)
		writeString(h, e.Target)
		writeString(h, e.TargetHandle)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Strings are length-prefixed so adjacent fields cannot run together.
func writeString(h hash.Hash, s string) {
	writeInt(h, len(s))
	h.Write([]byte(s))
}

func writeInt(h hash.Hash, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}

func writeFloat(h hash.Hash, f float64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
	h.Write(buf[:])
}
