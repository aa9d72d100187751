package commit

import (
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/google/btree"
)

type entry struct {
	id  uint16
	key uint16
	tag tag.Tag
}

func entryLess(a, b entry) bool {
	if a.id != b.id {
		return a.id < b.id
	}
	return a.key < b.key
}

// Table is the flattened state of a commit log: the latest payload for every
// (id, key), ordered by id then key. Tags without an id sort last.
type Table struct {
	t *btree.BTreeG[entry]
}

// NewTable returns an empty table
func NewTable() *Table {
	return &Table{t: btree.NewG[entry](16, entryLess)}
}

// Apply folds one committed tag into the table. A zero-size tag deletes its
// key and an rm tag deletes every key of its id.
func (t *Table) Apply(tg tag.Tag) {
	if tg.Type&tag.TypeMask == tag.Rm && tg.Category() == tag.CategoryName {
		t.RemoveID(tg.ID)
		return
	}
	e := entry{id: tg.ID, key: tg.Key(), tag: tg}
	if tg.Size == 0 {
		t.t.Delete(e)
		return
	}
	t.t.ReplaceOrInsert(e)
}

// RemoveID drops every key belonging to id
func (t *Table) RemoveID(id uint16) {
	var doomed []entry
	t.t.AscendRange(entry{id: id}, entry{id: id + 1}, func(e entry) bool {
		doomed = append(doomed, e)
		return true
	})
	for _, e := range doomed {
		t.t.Delete(e)
	}
}

// Get looks up the tag stored under (id, key)
func (t *Table) Get(id, key uint16) (tag.Tag, bool) {
	e, ok := t.t.Get(entry{id: id, key: key})
	return e.tag, ok
}

// Lookup finds the tag a raw type would be stored under
func (t *Table) Lookup(id, typ uint16) (tag.Tag, bool) {
	return t.Get(id, tag.Key(typ, id))
}

// ForID returns the tags of one id in key order
func (t *Table) ForID(id uint16) []tag.Tag {
	var out []tag.Tag
	t.t.AscendRange(entry{id: id}, entry{id: id + 1}, func(e entry) bool {
		out = append(out, e.tag)
		return true
	})
	return out
}

// IDs returns the ids with at least one tag, ascending, excluding noID
func (t *Table) IDs(noID uint16) []uint16 {
	var ids []uint16
	t.t.Ascend(func(e entry) bool {
		if e.id == noID {
			return false
		}
		if len(ids) == 0 || ids[len(ids)-1] != e.id {
			ids = append(ids, e.id)
		}
		return true
	})
	return ids
}

// Tags returns every tag in table order
func (t *Table) Tags() []tag.Tag {
	out := make([]tag.Tag, 0, t.t.Len())
	t.t.Ascend(func(e entry) bool {
		out = append(out, e.tag)
		return true
	})
	return out
}

// Len returns the number of keys
func (t *Table) Len() int {
	return t.t.Len()
}
