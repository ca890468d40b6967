// Package docstore owns authoritative file content and version counters and
// reconciles concurrent edit batches through the ot package.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"collab-engine/internal/domain"
	"collab-engine/internal/ot"
	"collab-engine/internal/repository"
)

// DefaultWindow is the number of accepted operations retained per file as
// the transform history. Clients older than the window get a full resync.
const DefaultWindow = 100

// maxTrackedOperationIDs bounds the duplicate-detection set per file.
const maxTrackedOperationIDs = 1024

// ErrFutureBaseVersion is returned when a client declares a base version the
// server has not reached. That only happens with a buggy or malicious client.
var ErrFutureBaseVersion = errors.New("docstore: declared base version is ahead of the server")

// ResyncError tells the caller to send the full current state to the client
// instead of incremental transforms. It is the stale-window outcome, not a
// failure of the edit pipeline.
type ResyncError struct {
	Version int64
	Content string
}

func (e *ResyncError) Error() string {
	return fmt.Sprintf("docstore: base version older than retained window, resync at version %d", e.Version)
}

// Result is the outcome of one accepted edit batch.
type Result struct {
	FileID     string                 `json:"file_id"`
	NewVersion int64                  `json:"new_version"`
	Content    string                 `json:"content"`
	Ops        []domain.EditOperation `json:"operations"`
}

// Store tracks one fileEntry per file ID. Entries are created lazily from
// the file repository and released when their room goes quiet.
type Store struct {
	mu     sync.RWMutex
	files  map[string]*fileEntry
	window int

	fileRepo repository.FileRepository
	opRepo   repository.OperationRepository
}

type fileEntry struct {
	// applyMu serializes the whole apply path for one file. It is distinct
	// from mu so that readers are never blocked behind persistence I/O.
	applyMu sync.Mutex

	mu      sync.RWMutex
	fileID  string
	roomID  uint
	content string
	version int64
	log     []domain.EditOperation

	appliedIDs map[string]*Result
	appliedSeq []string
}

// NewStore creates a Store. window <= 0 selects DefaultWindow.
func NewStore(fileRepo repository.FileRepository, opRepo repository.OperationRepository, window int) *Store {
	if fileRepo == nil || opRepo == nil {
		panic("file and operation repositories must be non-nil for docstore.Store")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{
		files:    make(map[string]*fileEntry),
		window:   window,
		fileRepo: fileRepo,
		opRepo:   opRepo,
	}
}

// Apply reconciles and applies one edit batch.
//
// Fast path: baseVersion equals the current version and the batch is applied
// directly, deletes in descending position order, then inserts ascending.
// Slow path: each incoming operation is transformed against every logged
// operation with server version in (baseVersion, current], in acceptance
// order. A baseVersion older than the retained window yields *ResyncError.
//
// The new content and the accepted operations are persisted before the
// in-memory version advances; a persistence failure leaves the counter
// untouched and is retryable.
func (s *Store) Apply(ctx context.Context, fileID string, roomID uint, ops []domain.EditOperation, baseVersion int64) (*Result, error) {
	if len(ops) == 0 {
		return nil, errors.New("docstore: empty operation batch")
	}
	for _, op := range ops {
		if !op.Kind.Valid() {
			return nil, fmt.Errorf("docstore: unknown operation kind %q", op.Kind)
		}
	}

	entry, err := s.entry(ctx, fileID, roomID)
	if err != nil {
		return nil, err
	}

	entry.applyMu.Lock()
	defer entry.applyMu.Unlock()

	// Copy current state; the state lock is released before any I/O below.
	entry.mu.RLock()
	content := entry.content
	version := entry.version
	window := make([]domain.EditOperation, len(entry.log))
	copy(window, entry.log)
	if prior := entry.duplicateOf(ops); prior != nil {
		entry.mu.RUnlock()
		return prior, nil
	}
	entry.mu.RUnlock()

	if baseVersion > version {
		return nil, ErrFutureBaseVersion
	}

	accepted := make([]domain.EditOperation, len(ops))
	copy(accepted, ops)

	if baseVersion < version {
		// A stale batch may be a retry of one accepted before a restart: the
		// durable log remembers it even though appliedIDs does not. The
		// current state is the idempotent outcome in that case.
		if id := firstOperationID(ops); id != "" {
			seen, err := s.opRepo.ExistsByOperationID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("docstore: check operation %s: %w", id, err)
			}
			if seen {
				return &Result{FileID: fileID, NewVersion: version, Content: content}, nil
			}
		}

		// The log is contiguous in acceptance order, so the window covers
		// the client's base iff its oldest entry is at most base+1.
		if len(window) == 0 || window[0].Version > baseVersion+1 {
			return nil, &ResyncError{Version: version, Content: content}
		}
		missed := opsSince(window, baseVersion)
		for i := range accepted {
			for _, logged := range missed {
				accepted[i], _ = ot.Transform(accepted[i], logged)
			}
		}
	}

	orderBatch(accepted)

	newContent := content
	for _, op := range accepted {
		newContent, err = ot.Apply(newContent, op)
		if err != nil {
			return nil, err
		}
	}

	newVersion := version + 1
	now := time.Now().UTC()
	for i := range accepted {
		accepted[i].FileID = fileID
		accepted[i].RoomID = roomID
		accepted[i].Version = newVersion
		accepted[i].Timestamp = now
	}

	// Durability before acknowledgment: the version counter does not move
	// until the store collaborator confirms both writes.
	if err := s.fileRepo.Save(ctx, &domain.FileVersion{
		FileID:  fileID,
		RoomID:  roomID,
		Content: newContent,
		Version: newVersion,
	}); err != nil {
		return nil, fmt.Errorf("docstore: persist file version: %w", err)
	}
	if err := s.opRepo.SaveBatch(ctx, accepted); err != nil {
		return nil, fmt.Errorf("docstore: persist operation batch: %w", err)
	}

	result := &Result{FileID: fileID, NewVersion: newVersion, Content: newContent, Ops: accepted}

	entry.mu.Lock()
	entry.content = newContent
	entry.version = newVersion
	entry.log = append(entry.log, accepted...)
	if excess := len(entry.log) - s.window; excess > 0 {
		// Trim at a batch boundary; a half-dropped version would make the
		// transform history lie about coverage.
		cut := excess
		for cut < len(entry.log) && entry.log[cut].Version == entry.log[cut-1].Version {
			cut++
		}
		entry.log = append([]domain.EditOperation(nil), entry.log[cut:]...)
	}
	entry.recordApplied(ops, result)
	entry.mu.Unlock()

	return result, nil
}

// Get returns the current content and version for a file, loading it from
// the repository on first access.
func (s *Store) Get(ctx context.Context, fileID string, roomID uint) (string, int64, error) {
	entry, err := s.entry(ctx, fileID, roomID)
	if err != nil {
		return "", 0, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return entry.content, entry.version, nil
}

// TrackedFiles is the number of files with live in-memory state.
func (s *Store) TrackedFiles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// ReleaseRoom drops in-memory entries for a room. Durable state is kept; a
// later access reloads from the repository.
func (s *Store) ReleaseRoom(roomID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.files {
		if entry.roomID == roomID {
			delete(s.files, id)
		}
	}
}

func (s *Store) entry(ctx context.Context, fileID string, roomID uint) (*fileEntry, error) {
	s.mu.RLock()
	entry, ok := s.files[fileID]
	s.mu.RUnlock()
	if ok {
		return entry, nil
	}

	fresh := &fileEntry{fileID: fileID, roomID: roomID, appliedIDs: make(map[string]*Result)}
	stored, err := s.fileRepo.FindByID(ctx, fileID)
	switch {
	case err == nil:
		fresh.content = stored.Content
		fresh.version = stored.Version
		fresh.roomID = stored.RoomID
		window, err := s.opRepo.RecentByFile(ctx, fileID, s.window)
		if err != nil {
			return nil, fmt.Errorf("docstore: load operation log for %s: %w", fileID, err)
		}
		if len(window) == s.window && len(window) > 0 {
			// The limit may have cut through the oldest batch; drop its
			// remainder so the window never claims partial coverage of a
			// version.
			first := window[0].Version
			cut := 0
			for cut < len(window) && window[cut].Version == first {
				cut++
			}
			window = window[cut:]
		}
		fresh.log = window
	case errors.Is(err, repository.ErrFileNotFound):
		// New file, starts empty at version 0.
	default:
		return nil, fmt.Errorf("docstore: load file %s: %w", fileID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.files[fileID]; ok {
		// Lost the load race, another goroutine registered the entry.
		return existing, nil
	}
	s.files[fileID] = fresh
	logrus.WithFields(logrus.Fields{"file_id": fileID, "version": fresh.version}).Debug("Docstore: file entry loaded")
	return fresh, nil
}

// duplicateOf returns the recorded result when any operation in the batch
// was already accepted. Callers hold at least a read lock.
func (e *fileEntry) duplicateOf(ops []domain.EditOperation) *Result {
	for _, op := range ops {
		if op.OperationID == "" {
			continue
		}
		if prior, ok := e.appliedIDs[op.OperationID]; ok {
			return prior
		}
	}
	return nil
}

// recordApplied remembers operation IDs from the client's original batch so
// a retried submission gets the first outcome back. Callers hold the write
// lock.
func (e *fileEntry) recordApplied(ops []domain.EditOperation, result *Result) {
	for _, op := range ops {
		if op.OperationID == "" {
			continue
		}
		if _, ok := e.appliedIDs[op.OperationID]; ok {
			continue
		}
		e.appliedIDs[op.OperationID] = result
		e.appliedSeq = append(e.appliedSeq, op.OperationID)
	}
	for len(e.appliedSeq) > maxTrackedOperationIDs {
		delete(e.appliedIDs, e.appliedSeq[0])
		e.appliedSeq = e.appliedSeq[1:]
	}
}

// firstOperationID returns the first non-empty operation ID of a batch. A
// batch is accepted or rejected as a unit, so one ID identifies all of it.
func firstOperationID(ops []domain.EditOperation) string {
	for _, op := range ops {
		if op.OperationID != "" {
			return op.OperationID
		}
	}
	return ""
}

// opsSince picks logged operations with server version strictly greater than
// base, preserving acceptance order.
func opsSince(window []domain.EditOperation, base int64) []domain.EditOperation {
	out := make([]domain.EditOperation, 0, len(window))
	for _, op := range window {
		if op.Version > base {
			out = append(out, op)
		}
	}
	return out
}

// orderBatch sorts a same-base batch so indices stay valid while it is
// applied: deletes first in descending position order, then inserts
// ascending, retains last.
func orderBatch(ops []domain.EditOperation) {
	rank := func(k domain.OperationKind) int {
		switch k {
		case domain.OpDelete:
			return 0
		case domain.OpInsert:
			return 1
		}
		return 2
	}
	sort.SliceStable(ops, func(i, j int) bool {
		ri, rj := rank(ops[i].Kind), rank(ops[j].Kind)
		if ri != rj {
			return ri < rj
		}
		if ops[i].Kind == domain.OpDelete {
			return ops[i].Position > ops[j].Position
		}
		return ops[i].Position < ops[j].Position
	})
}
