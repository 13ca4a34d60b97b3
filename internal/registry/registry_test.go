package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	kindWidget Kind = "widget"
	kindGadget Kind = "gadget"
)

type widget struct {
	Node
	payload string
}

func (*widget) Kind() Kind { return kindWidget }

type gadget struct{ Node }

func (*gadget) Kind() Kind { return kindGadget }

func TestRegisterAndGet(t *testing.T) {
	r := New()
	w := &widget{payload: "a"}
	require.NoError(t, r.Register(w, "A"))

	assert.Equal(t, w, r.Get(kindWidget, "A"))
	assert.Nil(t, r.Get(kindWidget, "B"))
	assert.Equal(t, "A", Key(w))
	assert.True(t, Live(w))

	assert.Error(t, r.Register(w, "A"), "double registration")
	assert.Error(t, r.Register(&widget{}, "A"), "duplicate key")
}

func TestElementsOrderAndRecursive(t *testing.T) {
	r := New()
	r.DeclareSubkind(kindWidget, kindGadget)

	w1, w2 := &widget{}, &widget{}
	g := &gadget{}
	require.NoError(t, r.Register(w1, "W1"))
	require.NoError(t, r.Register(w2, "W2"))
	require.NoError(t, r.Register(g, "G"))

	assert.Equal(t, []Entity{w1, w2}, r.Elements(kindWidget))
	assert.Equal(t, []Entity{w1, w2, g}, r.ElementsRecursive(kindWidget))
	assert.Equal(t, 2, r.Count(kindWidget))
}

func TestUpdateKeyRename(t *testing.T) {
	r := New()
	w := &widget{}
	require.NoError(t, r.Register(w, "A"))

	var notified int
	r.Subscribe(w, func(old, new Entity) {
		notified++
		assert.Same(t, old, new)
	})

	got, err := r.UpdateKey(w, "B")
	require.NoError(t, err)
	assert.Same(t, Entity(w), got)
	assert.Equal(t, "B", Key(w))
	assert.Nil(t, r.Get(kindWidget, "A"))
	assert.Equal(t, 1, notified)

	// Renaming to the current key is a no-op without notification.
	_, err = r.UpdateKey(w, "B")
	require.NoError(t, err)
	assert.Equal(t, 1, notified)
}

func TestUpdateKeyMerges(t *testing.T) {
	r := New()
	a, b := &widget{payload: "a"}, &widget{payload: "b"}
	require.NoError(t, r.Register(a, "A"))
	require.NoError(t, r.Register(b, "B"))

	got, err := r.UpdateKey(a, "B")
	require.NoError(t, err)
	assert.Same(t, Entity(b), got)
	assert.False(t, a.Node.live)
	assert.Same(t, Entity(b), Resolve(a))
	assert.Equal(t, 1, r.Count(kindWidget))
}

func TestReplaceForwardsAndResubscribes(t *testing.T) {
	r := New()
	old, survivor, final := &widget{}, &widget{}, &widget{}
	require.NoError(t, r.Register(old, "OLD"))
	require.NoError(t, r.Register(survivor, "MID"))
	require.NoError(t, r.Register(final, "NEW"))

	var events []string
	r.Subscribe(old, func(o, n Entity) {
		events = append(events, fmt.Sprintf("%s->%s", o.node().key, Key(n)))
	})

	require.NoError(t, r.Replace(old, survivor))
	// The subscriber moved to the survivor; a second merge must notify again.
	require.NoError(t, r.Replace(survivor, final))

	assert.Equal(t, []string{"OLD->MID", "MID->NEW"}, events)
	// Multi-hop forwarding through the original handle.
	assert.Same(t, Entity(final), Resolve(old))
	assert.Equal(t, "NEW", Key(old))
}

func TestReplaceKindMismatch(t *testing.T) {
	r := New()
	w, g := &widget{}, &gadget{}
	require.NoError(t, r.Register(w, "W"))
	require.NoError(t, r.Register(g, "G"))
	assert.Error(t, r.Replace(w, g))
}

func TestReplaceStale(t *testing.T) {
	r := New()
	a, b := &widget{}, &widget{}
	require.NoError(t, r.Register(a, "A"))
	require.NoError(t, r.Register(b, "B"))
	require.NoError(t, r.Discard(a))
	assert.ErrorIs(t, r.Replace(a, b), ErrStaleReference)
}

func TestDiscard(t *testing.T) {
	r := New()
	w := &widget{}
	require.NoError(t, r.Register(w, "A"))
	require.NoError(t, r.Discard(w))
	assert.Nil(t, r.Get(kindWidget, "A"))
	assert.False(t, Live(w))
	assert.ErrorIs(t, r.Discard(w), ErrStaleReference)
}

func TestRemoveDuplicates(t *testing.T) {
	r := New()
	a := &widget{payload: "same"}
	b := &widget{payload: "same"}
	c := &widget{payload: "other"}
	require.NoError(t, r.Register(a, "A"))
	require.NoError(t, r.Register(b, "B"))
	require.NoError(t, r.Register(c, "C"))

	var hooked []string
	err := r.RemoveDuplicates(kindWidget,
		func(e Entity) string { return e.(*widget).payload },
		func(keep, drop Entity) error {
			hooked = append(hooked, Key(keep)+"<-"+drop.node().key)
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, []string{"A<-B"}, hooked)
	assert.Equal(t, 2, r.Count(kindWidget))
	assert.Same(t, Entity(a), Resolve(b))
}

func TestRemoveDuplicatesConvergesUnderCascade(t *testing.T) {
	// The merge hook rewrites the survivor's payload, creating a second
	// duplicate group that only appears after the first pass.
	r := New()
	a := &widget{payload: "g1"}
	b := &widget{payload: "g1"}
	c := &widget{payload: "g2"}
	require.NoError(t, r.Register(a, "A"))
	require.NoError(t, r.Register(b, "B"))
	require.NoError(t, r.Register(c, "C"))

	err := r.RemoveDuplicates(kindWidget,
		func(e Entity) string { return e.(*widget).payload },
		func(keep, drop Entity) error {
			keep.(*widget).payload = "g2"
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Count(kindWidget))
}

func TestBroadcastReachesSurvivorSubscribers(t *testing.T) {
	r := New()
	a, b := &widget{}, &widget{}
	require.NoError(t, r.Register(a, "A"))
	require.NoError(t, r.Register(b, "B"))

	var count int
	r.Subscribe(a, func(_, _ Entity) { count++ })
	require.NoError(t, r.Replace(a, b))
	count = 0

	// Broadcasting through the stale handle reaches the survivor's list.
	r.Broadcast(a)
	assert.Equal(t, 1, count)
}
