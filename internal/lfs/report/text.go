package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

type palette struct {
	dir, file, bad, warn, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		dir:  color.New(color.FgBlue, color.Bold),
		file: color.New(color.FgGreen),
		bad:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow),
		dim:  color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.dir, p.file, p.bad, p.warn, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// textWriter accumulates the first write error so rendering code can stay
// linear
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...interface{}) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func renderText(w io.Writer, doc *Document, opts Options) error {
	t := &textWriter{w: w}
	p := newPalette(opts.Color)

	t.printf("%s  block_size %d  block_count %d  roots %s\n", doc.Image, doc.BlockSize, doc.BlockCount, doc.Roots)
	if sb := doc.Superblock; sb != nil {
		magic := sb.Magic
		if !sb.Valid() {
			magic = p.bad.Sprintf("%q", sb.Magic)
		}
		t.printf("superblock %s v%s  block_size %d  block_count %d  name_max %d  file_max %d\n",
			magic, sb.VersionString(), sb.BlockSize, sb.BlockCount, sb.NameLimit, sb.FileLimit)
	}

	switch doc.Mode {
	case ModeTags:
		renderTags(t, doc, p)
	case ModeLog:
		renderLog(t, doc, p)
	default:
		renderTree(t, doc, p)
	}

	renderOrphans(t, doc, p)
	renderGState(t, doc, p)
	renderDiagnostics(t, doc, p)
	return t.err
}

func renderTree(t *textWriter, doc *Document, p palette) {
	for _, d := range doc.Dirs {
		t.printf("%s %s\n", p.dir.Sprint(d.Path), p.dim.Sprint(strings.Join(d.Pairs, " ")))
		for _, e := range d.Entries {
			name := p.file.Sprint(e.Name)
			if e.Type == "dir" {
				name = p.dir.Sprint(e.Name)
			}
			size := ""
			if e.Type != "dir" {
				size = humanize.IBytes(uint64(e.Size))
			}
			where := e.Struct
			switch {
			case e.Dir != "":
				where += " " + e.Dir
			case e.Head != "":
				where += " " + e.Head
			}
			t.printf("  %4d %-8s %-24s %10s  %-16s", e.ID, e.Type, name, size, where)
			if e.Preview != "" {
				ellipsis := ""
				if e.Truncated {
					ellipsis = "..."
				}
				t.printf(" %s%s", p.dim.Sprint(e.Preview), ellipsis)
			}
			if e.Digest != "" {
				t.printf(" %s", e.Digest)
			}
			if e.Error != "" {
				t.printf(" %s", p.bad.Sprint(e.Error))
			}
			t.printf("\n")
			for _, a := range e.Attrs {
				t.printf("       %s %s\n", a.Type, p.dim.Sprint(a.Data))
			}
		}
	}
}

func mdirHeader(t *textWriter, m Mdir, p palette) {
	state := fmt.Sprintf("rev %d block %s", m.Rev, m.Block)
	if !m.Valid {
		state = p.bad.Sprint("corrupted")
	}
	if m.Erased {
		state += " erased"
	}
	path := ""
	if m.Path != "" {
		path = " " + p.dir.Sprint(m.Path)
	}
	t.printf("mdir %s%s %s\n", m.Pair, path, state)
}

func renderTag(t *textWriter, tg Tag, p palette, mark string) {
	id := "-"
	if tg.ID >= 0 {
		id = fmt.Sprintf("%d", tg.ID)
	}
	weight := ""
	if tg.Weight != 0 {
		weight = fmt.Sprintf("w%d", tg.Weight)
	}
	t.printf("  %s%08x: %-20s id %-4s %-6s size %-5d %s\n", mark, tg.Off, tg.Label, id, weight, tg.Size, p.dim.Sprint(tg.Data))
}

func renderTags(t *textWriter, doc *Document, p palette) {
	for _, m := range doc.Mdirs {
		mdirHeader(t, m, p)
		for _, tg := range m.Tags {
			renderTag(t, tg, p, "")
		}
	}
}

func renderLog(t *textWriter, doc *Document, p palette) {
	for _, m := range doc.Mdirs {
		mdirHeader(t, m, p)
		for _, l := range m.Logs {
			active := ""
			if l.Active {
				active = " (active)"
			}
			t.printf(" block %s rev %d%s\n", l.Block, l.Rev, active)
			if l.Error != "" {
				t.printf("  %s\n", p.bad.Sprint(l.Error))
				continue
			}
			for i, c := range l.Commits {
				t.printf("  commit %d %08x..%08x crc %s\n", i, c.Off, c.End, c.CRC)
			}
			for _, tg := range l.Tags {
				mark := "  "
				if tg.Commit < 0 {
					mark = p.warn.Sprint("x ")
				}
				renderTag(t, tg, p, mark)
			}
			if l.Stop != "" {
				t.printf("  stop at %08x: %s\n", l.StopOff, p.warn.Sprint(l.Stop))
			}
			if l.Erased {
				t.printf("  erased past last commit\n")
			}
		}
	}
}

func renderOrphans(t *textWriter, doc *Document, p palette) {
	if len(doc.Orphans) == 0 {
		t.printf("orphans: none\n")
		return
	}
	t.printf("orphans: %d run(s)\n", len(doc.Orphans))
	for _, o := range doc.Orphans {
		t.printf("  %s\n", p.warn.Sprint(strings.Join(o.Pairs, " -> ")))
	}
}

func renderGState(t *textWriter, doc *Document, p palette) {
	g := doc.GState
	if !g.MovePending && !g.RmPending && g.Orphans == 0 {
		t.printf("gstate: clean\n")
		return
	}
	t.printf("gstate: move %s rm %s\n", g.Move, g.Rm)
	if g.MovePending {
		t.printf("  %s id %d in %s\n", p.warn.Sprint("pending move"), g.MoveID, g.MovePair)
	}
	if g.RmPending {
		t.printf("  %s id %d in %s\n", p.warn.Sprint("pending removal"), g.RmID, g.RmPair)
	}
	if g.Orphans != 0 {
		t.printf("  %d orphan(s) recorded\n", g.Orphans)
	}
}

func renderDiagnostics(t *textWriter, doc *Document, p palette) {
	if len(doc.Diagnostics) == 0 {
		t.printf("diagnostics: none\n")
		return
	}
	t.printf("diagnostics: %d\n", len(doc.Diagnostics))
	for _, d := range doc.Diagnostics {
		t.printf("  %s\n", p.bad.Sprint(d.Message))
	}
	t.printf("exit status %d\n", doc.ExitCode)
}
