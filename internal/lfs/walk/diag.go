package walk

import (
	"encoding/hex"
	"fmt"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
)

// Kind is a diagnostic category
type Kind string

const (
	KindCorruptedMdir    Kind = "corrupted_mdir"
	KindMissingDirTarget Kind = "missing_dir_target"
	KindBadGlobalState   Kind = "bad_gstate"
	KindCycleDetected    Kind = "cycle_detected"
)

// Exit status bits, combinable
const (
	ExitCorrupted  = 1
	ExitMissingDir = 2
	ExitBadGState  = 4
	ExitCycle      = 8
)

var kindBits = map[Kind]int{
	KindCorruptedMdir:    ExitCorrupted,
	KindMissingDirTarget: ExitMissingDir,
	KindBadGlobalState:   ExitBadGState,
	KindCycleDetected:    ExitCycle,
}

var kindErrors = map[Kind]error{
	KindCorruptedMdir:    types.ErrCorruptedMdir,
	KindMissingDirTarget: types.ErrMissingDirTarget,
	KindBadGlobalState:   types.ErrBadGlobalState,
	KindCycleDetected:    types.ErrCycleDetected,
}

// Diagnostic is one problem found during a traversal
type Diagnostic struct {
	Kind   Kind
	Path   string
	Pair   types.Pair
	GState []byte
	Detail string
}

// Err returns the diagnostic as an error wrapping its sentinel
func (d Diagnostic) Err() error {
	obj := d.Pair.String()
	if d.Path != "" {
		obj = d.Path + " " + obj
	}
	return types.NewLFSError(kindErrors[d.Kind], "walk", obj, d.Detail)
}

func (d Diagnostic) String() string {
	switch d.Kind {
	case KindMissingDirTarget:
		return fmt.Sprintf("missing dir target %s -> %v", d.Path, d.Pair)
	case KindBadGlobalState:
		return fmt.Sprintf("bad gstate %s (%s)", hex.EncodeToString(d.GState), d.Detail)
	case KindCycleDetected:
		return fmt.Sprintf("cycle detected at %v", d.Pair)
	default:
		if d.Detail != "" {
			return fmt.Sprintf("corrupted mdir %v: %s", d.Pair, d.Detail)
		}
		return fmt.Sprintf("corrupted mdir %v", d.Pair)
	}
}

// diagKey identifies a diagnostic for deduplication. Missing directory
// targets are also keyed by path: a directory with no dir struct names the
// null pair, so the pair alone cannot tell two of them apart.
type diagKey struct {
	kind Kind
	pair types.Pair
	path string
}

// diagnostics collects problems, at most once per kind and pair (and path,
// for missing directory targets)
type diagnostics struct {
	seen map[diagKey]bool
	list []Diagnostic
}

func (d *diagnostics) add(diag Diagnostic) bool {
	if d.seen == nil {
		d.seen = map[diagKey]bool{}
	}
	k := diagKey{kind: diag.Kind, pair: diag.Pair.Key()}
	if diag.Kind == KindMissingDirTarget {
		k.path = diag.Path
	}
	if d.seen[k] {
		return false
	}
	d.seen[k] = true
	d.list = append(d.list, diag)
	return true
}

// ExitCode combines the bits of every diagnostic kind in diags
func ExitCode(diags []Diagnostic) int {
	code := 0
	for _, d := range diags {
		code |= kindBits[d.Kind]
	}
	return code
}
