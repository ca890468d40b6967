// Package ot implements operational transformation for concurrent text
// edits. It is pure and stateless: no I/O, no transport, no storage.
//
// Positions and lengths are byte offsets into UTF-8 text. Transforms shift
// positions by whole operations, so offsets that start on a rune boundary
// stay on one; Apply rejects an operation that would split a multi-byte
// character.
//
// Convergence contract: for operations a and b issued against the same base
// document S, Transform(a, b) = (a', b') such that applying a then b' yields
// the same text as applying b then a'.
//
// Tie-break rule: two inserts at the same position are ordered by
// lexicographic byte comparison of the issuing user IDs. The lower ID keeps
// the position, the other shifts right. Clients must apply the same rule.
package ot

import (
	"fmt"
	"unicode/utf8"

	"collab-engine/internal/domain"
)

// Transform reconciles two operations issued concurrently against the same
// base version. Retain operations never shift others and are never shifted.
func Transform(a, b domain.EditOperation) (domain.EditOperation, domain.EditOperation) {
	if a.Kind == domain.OpRetain || b.Kind == domain.OpRetain {
		return a, b
	}

	switch a.Kind {
	case domain.OpInsert:
		switch b.Kind {
		case domain.OpInsert:
			return transformInsertInsert(a, b)
		case domain.OpDelete:
			return transformInsertDelete(a, b)
		}
	case domain.OpDelete:
		switch b.Kind {
		case domain.OpInsert:
			bp, ap := transformInsertDelete(b, a)
			return ap, bp
		case domain.OpDelete:
			return transformDeleteDelete(a, b)
		}
	}
	return a, b
}

func transformInsertInsert(a, b domain.EditOperation) (domain.EditOperation, domain.EditOperation) {
	switch {
	case a.Position < b.Position:
		b.Position += len(a.Content)
	case a.Position > b.Position:
		a.Position += len(b.Content)
	default:
		// Same position: lower user ID wins the spot.
		if a.UserID < b.UserID {
			b.Position += len(a.Content)
		} else {
			a.Position += len(b.Content)
		}
	}
	return a, b
}

// transformInsertDelete reconciles an insert (ins) against a delete (del).
// An insert landing strictly inside the deleted range is swallowed: the
// insert becomes a retain and the delete grows to cover the inserted text.
// This keeps the pair convergent without splitting the delete in two.
func transformInsertDelete(ins, del domain.EditOperation) (domain.EditOperation, domain.EditOperation) {
	switch {
	case ins.Position <= del.Position:
		del.Position += len(ins.Content)
	case ins.Position >= del.Position+del.Length:
		ins.Position -= del.Length
	default:
		del.Length += len(ins.Content)
		ins = asRetain(ins)
	}
	return ins, del
}

func transformDeleteDelete(a, b domain.EditOperation) (domain.EditOperation, domain.EditOperation) {
	overlap := rangeOverlap(a.Position, a.Length, b.Position, b.Length)

	ap, bp := a, b

	ap.Length = a.Length - overlap
	ap.Position = a.Position - beforeLen(b, a.Position)
	if ap.Length <= 0 {
		ap = asRetain(ap)
	}

	bp.Length = b.Length - overlap
	bp.Position = b.Position - beforeLen(a, b.Position)
	if bp.Length <= 0 {
		bp = asRetain(bp)
	}

	return ap, bp
}

// rangeOverlap is the number of characters covered by both delete ranges.
func rangeOverlap(posA, lenA, posB, lenB int) int {
	start := posA
	if posB > start {
		start = posB
	}
	end := posA + lenA
	if posB+lenB < end {
		end = posB + lenB
	}
	if end < start {
		return 0
	}
	return end - start
}

// beforeLen is how much of delete d lies strictly before position pos.
func beforeLen(d domain.EditOperation, pos int) int {
	if d.Position >= pos {
		return 0
	}
	n := pos - d.Position
	if n > d.Length {
		n = d.Length
	}
	return n
}

// onRuneBoundary reports whether pos does not land inside a multi-byte
// UTF-8 sequence. pos is assumed to be within [0, len(content)].
func onRuneBoundary(content string, pos int) bool {
	return pos == len(content) || utf8.RuneStart(content[pos])
}

func asRetain(op domain.EditOperation) domain.EditOperation {
	op.Kind = domain.OpRetain
	op.Content = ""
	op.Length = 0
	return op
}

// Apply applies a single operation to content and returns the new text.
// Positions out of range are rejected rather than clamped so that a broken
// transform chain surfaces as an error instead of silent corruption.
func Apply(content string, op domain.EditOperation) (string, error) {
	switch op.Kind {
	case domain.OpInsert:
		if op.Position < 0 || op.Position > len(content) {
			return content, fmt.Errorf("ot: invalid insert position %d (content length %d)", op.Position, len(content))
		}
		if !onRuneBoundary(content, op.Position) {
			return content, fmt.Errorf("ot: insert position %d splits a multi-byte character", op.Position)
		}
		return content[:op.Position] + op.Content + content[op.Position:], nil
	case domain.OpDelete:
		if op.Position < 0 || op.Position+op.Length > len(content) {
			return content, fmt.Errorf("ot: invalid delete range [%d,%d) (content length %d)", op.Position, op.Position+op.Length, len(content))
		}
		if !onRuneBoundary(content, op.Position) || !onRuneBoundary(content, op.Position+op.Length) {
			return content, fmt.Errorf("ot: delete range [%d,%d) splits a multi-byte character", op.Position, op.Position+op.Length)
		}
		return content[:op.Position] + content[op.Position+op.Length:], nil
	case domain.OpRetain:
		return content, nil
	}
	return content, fmt.Errorf("ot: unknown operation kind %q", op.Kind)
}
