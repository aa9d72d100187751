// Package walk reconstructs the directory tree of an image by following
// directory, tail and branch pointers from the root pair. It never aborts on
// damage: every problem becomes a Diagnostic and independent branches carry
// on.
package walk

import (
	"errors"
	"fmt"
	"path"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/file"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/mdir"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/logger"
)

// State is a traversal state recorded on the trace
type State string

const (
	FollowingTail   State = "following_tail"
	FollowingBranch State = "following_branch"
	Done            State = "done"
	CycleDetected   State = "cycle_detected"
)

// Step is one entry of the traversal trace
type Step struct {
	State State
	Path  string
	Pair  types.Pair
}

// BlockReader is what a traversal needs from device.Reader
type BlockReader interface {
	ReadBlock(b types.Block) ([]byte, error)
	BlockSize() uint32
	BlockCount() uint32
}

// Options configures a traversal
type Options struct {
	Roots types.Pair
	// MaxMdirs caps the number of pairs parsed; zero means no cap. Hitting
	// the cap is reported as a cycle.
	MaxMdirs int
}

// DefaultOptions starts at the standard root pair with no cap
func DefaultOptions() Options {
	return Options{Roots: types.RootPair}
}

// Dir is one directory and the pairs that make up its metadata log
type Dir struct {
	Path  string
	Pair  types.Pair
	Mdirs []*mdir.MDir
}

// Entries returns the entries of every pair of the directory, in order
func (d *Dir) Entries() []mdir.Entry {
	var out []mdir.Entry
	for _, m := range d.Mdirs {
		out = append(out, m.Entries()...)
	}
	return out
}

// Find returns the entry called name
func (d *Dir) Find(name string) (mdir.Entry, bool) {
	for _, m := range d.Mdirs {
		for _, e := range m.Entries() {
			if e.Name == name {
				return e, true
			}
		}
	}
	return mdir.Entry{}, false
}

// OrphanRun is a chain of pairs reachable from the thread but from no
// directory
type OrphanRun struct {
	Mdirs []*mdir.MDir
}

// Result is everything one traversal found
type Result struct {
	Roots       types.Pair
	Root        *mdir.MDir
	Superblock  *mdir.Superblock
	Dirs        []*Dir
	Orphans     []OrphanRun
	GState      GState
	Diagnostics []Diagnostic
	Trace       []Step
	Mdirs       []*mdir.MDir // every parsed pair, in visit order

	byPath map[string]*Dir
}

// Dir returns the directory at p
func (r *Result) Dir(p string) (*Dir, bool) {
	d, ok := r.byPath[p]
	return d, ok
}

// ExitCode combines the bits of every diagnostic kind observed
func (r *Result) ExitCode() int {
	return ExitCode(r.Diagnostics)
}

// Lookup resolves an absolute path to its entry. The root itself has no
// entry and is reported as ErrNotFile.
func (r *Result) Lookup(p string) (mdir.Entry, error) {
	if !path.IsAbs(p) {
		return mdir.Entry{}, types.NewLFSError(types.ErrInvalidPath, "Lookup", p, "path must be absolute")
	}
	p = path.Clean(p)
	if p == "/" {
		return mdir.Entry{}, types.NewLFSError(types.ErrNotFile, "Lookup", p, "")
	}
	d, ok := r.Dir(path.Dir(p))
	if !ok {
		return mdir.Entry{}, types.NewLFSError(types.ErrNotFound, "Lookup", p, "parent directory not found")
	}
	e, ok := d.Find(path.Base(p))
	if !ok {
		return mdir.Entry{}, types.NewLFSError(types.ErrNotFound, "Lookup", p, "")
	}
	return e, nil
}

type work struct {
	path string
	pair types.Pair
}

// walker is the per-traversal context; nothing in it outlives Walk
type walker struct {
	r       BlockReader
	opts    Options
	res     *Result
	visited map[types.Pair]*mdir.MDir
	diags   diagnostics
	queue   []work
	capHit  bool
}

// Walk traverses the image behind r
func Walk(r BlockReader, opts Options) *Result {
	w := &walker{
		r:       r,
		opts:    opts,
		visited: map[types.Pair]*mdir.MDir{},
		res: &Result{
			Roots:  opts.Roots,
			byPath: map[string]*Dir{},
		},
	}

	w.queue = append(w.queue, work{path: "/", pair: opts.Roots})
	for len(w.queue) > 0 {
		item := w.queue[0]
		w.queue = w.queue[1:]
		w.walkDir(item)
	}
	w.walkThread()
	w.checkGState()

	w.step(Done, "", opts.Roots)
	w.res.Diagnostics = w.diags.list
	logger.LogDebug("Traversal finished", map[string]interface{}{
		"mdirs":       len(w.res.Mdirs),
		"dirs":        len(w.res.Dirs),
		"orphans":     len(w.res.Orphans),
		"diagnostics": len(w.res.Diagnostics),
	})
	return w.res
}

func (w *walker) step(s State, p string, pair types.Pair) {
	w.res.Trace = append(w.res.Trace, Step{State: s, Path: p, Pair: pair})
}

func (w *walker) report(d Diagnostic) {
	if w.diags.add(d) {
		logger.LogDebug("Diagnostic", map[string]interface{}{
			"kind":   string(d.Kind),
			"pair":   d.Pair.String(),
			"detail": d.String(),
		})
	}
}

// fetch parses a pair once. The second return is false when the pair was
// already visited or the cap was hit; both are reported as cycles, the cap
// only the first time.
func (w *walker) fetch(p string, pair types.Pair) (*mdir.MDir, bool) {
	if _, seen := w.visited[pair.Key()]; seen {
		w.step(CycleDetected, p, pair)
		w.report(Diagnostic{Kind: KindCycleDetected, Path: p, Pair: pair})
		return nil, false
	}
	if w.capHit {
		return nil, false
	}
	if w.opts.MaxMdirs > 0 && len(w.res.Mdirs) >= w.opts.MaxMdirs {
		w.capHit = true
		w.step(CycleDetected, p, pair)
		w.report(Diagnostic{Kind: KindCycleDetected, Path: p, Pair: pair,
			Detail: fmt.Sprintf("more than %d metadata pairs", w.opts.MaxMdirs)})
		return nil, false
	}

	m := mdir.Fetch(w.r, pair)
	w.visited[pair.Key()] = m
	w.res.Mdirs = append(w.res.Mdirs, m)
	if m.Valid() {
		w.res.GState.Add(m)
	}
	logger.LogDebug("Parsed metadata pair", map[string]interface{}{
		"path":  p,
		"pair":  pair.String(),
		"valid": m.Valid(),
		"rev":   m.Rev,
	})
	return m, true
}

func (w *walker) corrupted(p string, m *mdir.MDir) {
	detail := "no valid commit in either block"
	for _, err := range m.Errs {
		if err != nil {
			detail = err.Error()
			break
		}
	}
	w.report(Diagnostic{Kind: KindCorruptedMdir, Path: p, Pair: m.Pair, Detail: detail})
}

// walkDir follows one directory's hardtail chain and enqueues its children
func (w *walker) walkDir(item work) {
	dir := &Dir{Path: item.path, Pair: item.pair}
	cur := item.pair
	for head := true; ; head = false {
		w.step(FollowingTail, dir.Path, cur)
		m, ok := w.fetch(dir.Path, cur)
		if !ok {
			break
		}
		if head && dir.Path == "/" {
			w.res.Root = m
		}
		if !m.Valid() {
			if head && dir.Path != "/" {
				w.report(Diagnostic{Kind: KindMissingDirTarget, Path: dir.Path, Pair: cur})
			} else {
				w.corrupted(dir.Path, m)
			}
			break
		}
		if head && dir.Path == "/" {
			w.superblock(m)
		}
		w.addMdir(dir, m)

		tail, hard, ok := m.Tail()
		if !ok || !hard {
			break
		}
		cur = tail
	}

	// a directory whose head never parsed does not exist in the tree
	if len(dir.Mdirs) > 0 || dir.Path == "/" {
		w.res.Dirs = append(w.res.Dirs, dir)
		w.res.byPath[dir.Path] = dir
	}
}

// addMdir attaches m to dir, queues its subdirectories and descends into its
// branch, if any
func (w *walker) addMdir(dir *Dir, m *mdir.MDir) {
	dir.Mdirs = append(dir.Mdirs, m)
	for _, e := range m.Entries() {
		if e.Type != mdir.TypeDir {
			continue
		}
		child := path.Join(dir.Path, e.Name)
		if e.Struct != mdir.StructDir || e.Err != nil {
			w.report(Diagnostic{Kind: KindMissingDirTarget, Path: child, Pair: e.Dir, Detail: "directory has no dir struct"})
			continue
		}
		w.queue = append(w.queue, work{path: child, pair: e.Dir})
	}

	root, ok := m.Branch()
	if !ok {
		return
	}
	w.step(FollowingBranch, dir.Path, m.Pair)
	err := file.Leaves(w.r, root, func(node types.Block, t tag.Tag) error {
		if t.Type&tag.TypeMask != tag.MPair {
			return nil
		}
		pair, ok := mdir.DecodePair(t.Payload)
		if !ok {
			return types.NewLFSError(types.ErrBadStruct, "addMdir", fmt.Sprintf("node 0x%x", uint32(node)), "short mpair")
		}
		child, ok := w.fetch(dir.Path, pair)
		if !ok {
			return nil
		}
		if !child.Valid() {
			w.corrupted(dir.Path, child)
			return nil
		}
		w.addMdir(dir, child)
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, types.ErrCycleDetected):
		w.step(CycleDetected, dir.Path, m.Pair)
		w.report(Diagnostic{Kind: KindCycleDetected, Path: dir.Path, Pair: m.Pair, Detail: err.Error()})
	default:
		w.report(Diagnostic{Kind: KindCorruptedMdir, Path: dir.Path, Pair: m.Pair, Detail: err.Error()})
	}
}

func (w *walker) superblock(m *mdir.MDir) {
	sb, ok := m.Superblock()
	if !ok {
		return
	}
	w.res.Superblock = &sb
	if !sb.Valid() {
		logger.LogWarn("Root pair has a bad magic", map[string]interface{}{"magic": sb.Magic})
	}
	if sb.BlockSize != 0 && sb.BlockSize != w.r.BlockSize() {
		logger.LogWarn("Superblock block size differs from the configured one", map[string]interface{}{
			"superblock": sb.BlockSize,
			"configured": w.r.BlockSize(),
		})
	}
}

// walkThread follows every tail from the root. Pairs on the thread that no
// directory reached are orphans; consecutive ones form a run.
func (w *walker) walkThread() {
	if w.capHit {
		return
	}
	onThread := map[types.Pair]bool{}
	var run []*mdir.MDir
	flush := func() {
		if len(run) > 0 {
			w.res.Orphans = append(w.res.Orphans, OrphanRun{Mdirs: run})
			run = nil
		}
	}
	defer flush()

	cur := w.opts.Roots
	for {
		if onThread[cur.Key()] {
			w.step(CycleDetected, "", cur)
			w.report(Diagnostic{Kind: KindCycleDetected, Pair: cur, Detail: "tail thread loops"})
			return
		}
		onThread[cur.Key()] = true

		m, seen := w.visited[cur.Key()]
		if !seen {
			w.step(FollowingTail, "", cur)
			var ok bool
			if m, ok = w.fetch("", cur); !ok {
				return
			}
			if !m.Valid() {
				w.corrupted("", m)
				return
			}
			run = append(run, m)
		} else {
			flush()
		}
		if !m.Valid() {
			return
		}
		next, _, ok := m.Tail()
		if !ok {
			return
		}
		cur = next
	}
}

// checkGState verifies pending operations name live entries of pairs the
// traversal found
func (w *walker) checkGState() {
	g := w.res.GState
	check := func(what string, p Pending) {
		if !p.Pending {
			return
		}
		m, ok := w.visited[p.Pair.Key()]
		if !ok || !m.Valid() {
			w.report(Diagnostic{Kind: KindBadGlobalState, Pair: p.Pair, GState: g.Bytes(),
				Detail: fmt.Sprintf("pending %s of id %d targets an unfound pair", what, p.ID)})
			return
		}
		if _, ok := m.Entry(p.ID); !ok {
			w.report(Diagnostic{Kind: KindBadGlobalState, Pair: p.Pair, GState: g.Bytes(),
				Detail: fmt.Sprintf("pending %s targets id %d, which %v does not hold", what, p.ID, p.Pair)})
		}
	}
	check("move", g.MoveState())
	check("removal", g.RmState())
}
