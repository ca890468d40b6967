package ot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-engine/internal/domain"
	"collab-engine/internal/ot"
)

func insert(user string, pos int, text string) domain.EditOperation {
	return domain.EditOperation{Kind: domain.OpInsert, UserID: user, Position: pos, Content: text}
}

func del(user string, pos, length int) domain.EditOperation {
	return domain.EditOperation{Kind: domain.OpDelete, UserID: user, Position: pos, Length: length}
}

// applyBoth checks the convergence contract: a then b' must equal b then a'.
// It returns the converged text.
func applyBoth(t *testing.T, base string, a, b domain.EditOperation) string {
	t.Helper()
	ap, bp := ot.Transform(a, b)

	left, err := ot.Apply(base, a)
	require.NoError(t, err)
	left, err = ot.Apply(left, bp)
	require.NoError(t, err)

	right, err := ot.Apply(base, b)
	require.NoError(t, err)
	right, err = ot.Apply(right, ap)
	require.NoError(t, err)

	require.Equal(t, left, right, "transform must converge for %+v and %+v", a, b)
	return left
}

func TestTransform_InsertInsert_DistinctPositions(t *testing.T) {
	got := applyBoth(t, "abcdef", insert("alice", 1, "X"), insert("bob", 4, "Y"))
	assert.Equal(t, "aXbcdYef", got)
}

func TestTransform_InsertInsert_SamePositionTieBreak(t *testing.T) {
	// Lower user ID keeps the position, the other shifts right.
	got := applyBoth(t, "abcdef", insert("alice", 3, "AAA"), insert("bob", 3, "B"))
	assert.Equal(t, "abcAAABdef", got)

	// Order of arguments must not change the outcome.
	got = applyBoth(t, "abcdef", insert("bob", 3, "B"), insert("alice", 3, "AAA"))
	assert.Equal(t, "abcAAABdef", got)
}

func TestTransform_InsertBeforeDelete(t *testing.T) {
	got := applyBoth(t, "abcdef", insert("alice", 0, "X"), del("bob", 2, 3))
	assert.Equal(t, "Xabf", got)
}

func TestTransform_InsertAfterDelete(t *testing.T) {
	got := applyBoth(t, "abcdef", insert("alice", 5, "X"), del("bob", 1, 2))
	assert.Equal(t, "adeXf", got)
}

func TestTransform_InsertAtDeleteStart(t *testing.T) {
	// The insert keeps its text; the delete shifts right past it.
	got := applyBoth(t, "abcdef", insert("alice", 2, "X"), del("bob", 2, 2))
	assert.Equal(t, "abXef", got)
}

func TestTransform_InsertInsideDelete_Swallowed(t *testing.T) {
	a := insert("alice", 3, "XY")
	b := del("bob", 2, 3)
	got := applyBoth(t, "abcdef", a, b)
	assert.Equal(t, "abf", got)

	ap, bp := ot.Transform(a, b)
	assert.Equal(t, domain.OpRetain, ap.Kind)
	assert.Equal(t, 5, bp.Length)
}

func TestTransform_DeleteDelete_Disjoint(t *testing.T) {
	got := applyBoth(t, "abcdef", del("alice", 0, 2), del("bob", 4, 2))
	assert.Equal(t, "cd", got)
}

func TestTransform_DeleteDelete_Overlapping(t *testing.T) {
	got := applyBoth(t, "abcdef", del("alice", 1, 3), del("bob", 2, 3))
	assert.Equal(t, "af", got)
}

func TestTransform_DeleteDelete_Identical(t *testing.T) {
	a := del("alice", 2, 2)
	b := del("bob", 2, 2)
	got := applyBoth(t, "abcdef", a, b)
	assert.Equal(t, "abef", got)

	// Both collapse to retain: the text is already gone.
	ap, bp := ot.Transform(a, b)
	assert.Equal(t, domain.OpRetain, ap.Kind)
	assert.Equal(t, domain.OpRetain, bp.Kind)
}

func TestTransform_DeleteDelete_Containment(t *testing.T) {
	got := applyBoth(t, "abcdef", del("alice", 1, 4), del("bob", 2, 2))
	assert.Equal(t, "af", got)
}

func TestTransform_RetainPassesThrough(t *testing.T) {
	retain := domain.EditOperation{Kind: domain.OpRetain, UserID: "alice"}
	ins := insert("bob", 2, "X")
	ap, bp := ot.Transform(retain, ins)
	assert.Equal(t, retain, ap)
	assert.Equal(t, ins, bp)
}

func TestApply_Insert(t *testing.T) {
	got, err := ot.Apply("abc", insert("alice", 1, "XY"))
	require.NoError(t, err)
	assert.Equal(t, "aXYbc", got)
}

func TestApply_Delete(t *testing.T) {
	got, err := ot.Apply("abcdef", del("alice", 2, 3))
	require.NoError(t, err)
	assert.Equal(t, "abf", got)
}

func TestApply_RejectsMidRunePositions(t *testing.T) {
	// "héllo": é occupies bytes 1-2, so offset 2 is inside the rune.
	const text = "héllo"

	_, err := ot.Apply(text, insert("alice", 2, "X"))
	assert.Error(t, err)

	_, err = ot.Apply(text, del("alice", 2, 1))
	assert.Error(t, err)

	// Starts on a boundary but ends mid-rune.
	_, err = ot.Apply(text, del("alice", 1, 1))
	assert.Error(t, err)

	got, err := ot.Apply(text, insert("alice", 3, "X"))
	require.NoError(t, err)
	assert.Equal(t, "héXllo", got)

	got, err = ot.Apply(text, del("alice", 1, 2))
	require.NoError(t, err)
	assert.Equal(t, "hllo", got)
}

func TestApply_RejectsOutOfRange(t *testing.T) {
	_, err := ot.Apply("abc", insert("alice", 4, "X"))
	assert.Error(t, err)

	_, err = ot.Apply("abc", del("alice", 2, 5))
	assert.Error(t, err)

	_, err = ot.Apply("abc", del("alice", -1, 1))
	assert.Error(t, err)
}
