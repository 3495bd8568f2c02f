package jsontree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff_Identity(t *testing.T) {
	doc := map[string]any{
		"primary_subject": "human",
		"counts":          map[string]any{"humans": float64(1), "animals": float64(0)},
		"subjects":        []any{"human"},
	}

	d := Diff(doc, doc)
	assert.True(t, d.Empty())
	assert.Nil(t, d.Payload())
}

func TestDiff_Buckets(t *testing.T) {
	oldDoc := map[string]any{
		"primary_subject": "animal",
		"counts":          map[string]any{"humans": float64(0), "animals": float64(2)},
		"legacy":          "gone",
	}
	newDoc := map[string]any{
		"primary_subject": "human",
		"counts":          map[string]any{"humans": float64(1), "animals": float64(2)},
		"free_caption":    "a rider",
	}

	d := Diff(oldDoc, newDoc)
	require.False(t, d.Empty())

	assert.Equal(t, "a rider", d.Added["free_caption"])
	assert.Equal(t, "gone", d.Removed["legacy"])
	assert.Equal(t, Change{From: "animal", To: "human"}, d.Changed["primary_subject"])
	assert.Equal(t, Change{From: float64(0), To: float64(1)}, d.Changed["counts.humans"])
	assert.NotContains(t, d.Changed, "counts.animals")
}

func TestDiff_ArraysCompareAsWholeValues(t *testing.T) {
	oldDoc := map[string]any{"subjects": []any{"human"}}
	newDoc := map[string]any{"subjects": []any{"human", "animal"}}

	d := Diff(oldDoc, newDoc)
	c, ok := d.Changed["subjects"]
	require.True(t, ok)
	assert.Equal(t, []any{"human"}, c.From)
	assert.Equal(t, []any{"human", "animal"}, c.To)
}

// Reconstructing new from old by applying added + changed.to and deleting
// removed must reproduce new on all scalar leaf paths.
func TestDiff_Reconstruction(t *testing.T) {
	oldDoc := map[string]any{
		"a": "x",
		"b": map[string]any{"c": float64(1), "d": true},
		"e": "drop me",
	}
	newDoc := map[string]any{
		"a": "y",
		"b": map[string]any{"c": float64(2), "d": true, "f": "added"},
	}

	d := Diff(oldDoc, newDoc)

	rebuilt := map[string]any{
		"a": "x",
		"b": map[string]any{"c": float64(1), "d": true},
		"e": "drop me",
	}
	for path, v := range d.Added {
		setPath(rebuilt, path, v)
	}
	for path, c := range d.Changed {
		setPath(rebuilt, path, c.To)
	}
	for path := range d.Removed {
		deletePath(rebuilt, path)
	}

	assert.True(t, Equal(From(newDoc), From(rebuilt)))
}

func setPath(doc map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func deletePath(doc map[string]any, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

func TestEqual_ObjectKeyOrderIrrelevant(t *testing.T) {
	a := From(map[string]any{"x": float64(1), "y": "z"})
	b := From(map[string]any{"y": "z", "x": float64(1)})
	assert.True(t, Equal(a, b))
}

func TestFrom_StructsRoundTripThroughJSON(t *testing.T) {
	type counts struct {
		Humans int `json:"humans"`
	}
	v := From(counts{Humans: 3})
	require.Equal(t, KindObject, v.Kind)
	assert.Equal(t, float64(3), v.Obj["humans"].Num)
}
