package jsontree

// Change records a scalar value transition at one path.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// DiffResult is a structural comparison of two value trees. Paths are dotted
// ("counts.humans"); the root is "".
type DiffResult struct {
	Added   map[string]any    `json:"added,omitempty"`
	Removed map[string]any    `json:"removed,omitempty"`
	Changed map[string]Change `json:"changed,omitempty"`
}

// Empty reports whether the diff carries no additions, removals, or changes.
// An empty diff classifies the write as unchanged.
func (d DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Payload renders the diff as a JSON-ready map for audit attachment, or nil
// when empty.
func (d DiffResult) Payload() map[string]any {
	if d.Empty() {
		return nil
	}
	out := make(map[string]any, 3)
	if len(d.Added) > 0 {
		out["added"] = d.Added
	}
	if len(d.Removed) > 0 {
		out["removed"] = d.Removed
	}
	if len(d.Changed) > 0 {
		changed := make(map[string]any, len(d.Changed))
		for k, c := range d.Changed {
			changed[k] = map[string]any{"from": c.From, "to": c.To}
		}
		out["changed"] = changed
	}
	return out
}

// Diff compares two decoded JSON trees. Keys only in new land in Added, keys
// only in old land in Removed, and differing non-object values land in
// Changed. Objects present on both sides recurse; arrays are compared as
// whole values.
func Diff(oldVal, newVal any) DiffResult {
	d := DiffResult{
		Added:   map[string]any{},
		Removed: map[string]any{},
		Changed: map[string]Change{},
	}
	diffNode(From(oldVal), From(newVal), "", &d)
	return d
}

func diffNode(oldV, newV Value, path string, d *DiffResult) {
	if oldV.Kind == KindObject && newV.Kind == KindObject {
		for _, k := range sortedKeys(oldV.Obj) {
			childPath := joinPath(path, k)
			nv, ok := newV.Obj[k]
			if !ok {
				d.Removed[childPath] = oldV.Obj[k].Interface()
				continue
			}
			diffNode(oldV.Obj[k], nv, childPath, d)
		}
		for _, k := range sortedKeys(newV.Obj) {
			if _, ok := oldV.Obj[k]; !ok {
				d.Added[joinPath(path, k)] = newV.Obj[k].Interface()
			}
		}
		return
	}

	if !Equal(oldV, newV) {
		d.Changed[path] = Change{From: oldV.Interface(), To: newV.Interface()}
	}
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}
