// Package store implements the ceremony control plane's document store: a
// hierarchical, prefixed key-value collection layout on top of
// go.vocdoni.io/dvote/db (pebble-backed), with atomic multi-document
// transactions and in-process change subscriptions standing in for
// Firestore-style document triggers (spec.md §6).
//
// Documents mirror the wire hierarchy from spec.md §6:
//
//	ceremonies/{ceremonyId}
//	ceremonies/{ceremonyId}/circuits/{circuitId}
//	ceremonies/{ceremonyId}/participants/{userId}
//	ceremonies/{ceremonyId}/circuits/{circuitId}/contributions/{contributionId}
//
// Each collection is stored under its own key prefix (ce/, ci/, pa/, co/),
// keyed by the ids above joined with "/" (for example
// ci/{ceremonyId}/{circuitId}).
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/zkceremony/coordinator/clock"
	"github.com/zkceremony/coordinator/log"
	"github.com/zkceremony/coordinator/types"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("store: document not found")

var (
	ceremonyPrefix    = []byte("ce/")
	circuitPrefix     = []byte("ci/")
	participantPrefix = []byte("pa/")
	contributionPrefix = []byte("co/")
)

// ParticipantHook observes a Participant document update, receiving the
// before and after images (spec.md §4.1 trigger contract). before is nil
// on the participant's first write.
type ParticipantHook func(before, after *types.Participant)

// ContributionHook observes the creation of a new Contribution document
// (spec.md §4.3 trigger contract).
type ContributionHook func(doc *types.Contribution)

// Store is the document store backing the ceremony control plane.
type Store struct {
	db    db.Database
	clock clock.Clock

	// mu serializes all Atomic calls and the PutParticipant,
	// PutContribution and CreateContribution writes, giving the single-process store
	// the same per-circuit/per-participant linearizability the teacher's
	// storage package gets from its globalLock (storage/ballot_queue.go).
	mu sync.Mutex

	hooksMu               sync.RWMutex
	participantHooks      []ParticipantHook
	contributionHooks     []ContributionHook
}

// New creates a Store backed by database, using c to timestamp writes.
func New(database db.Database, c clock.Clock) *Store {
	return &Store{db: database, clock: c}
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// OnParticipantUpdate registers a hook invoked synchronously after every
// participant write (PutParticipant or a committed Atomic batch), in the
// writer's goroutine, once the write has committed and s.mu has been
// released.
func (s *Store) OnParticipantUpdate(h ParticipantHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.participantHooks = append(s.participantHooks, h)
}

// OnContributionCreate registers a hook invoked synchronously after every
// new contribution document is committed.
func (s *Store) OnContributionCreate(h ContributionHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.contributionHooks = append(s.contributionHooks, h)
}

func (s *Store) fireParticipantUpdate(before, after *types.Participant) {
	s.hooksMu.RLock()
	hooks := append([]ParticipantHook(nil), s.participantHooks...)
	s.hooksMu.RUnlock()
	for _, h := range hooks {
		h(before, after)
	}
}

func (s *Store) fireContributionCreate(doc *types.Contribution) {
	s.hooksMu.RLock()
	hooks := append([]ContributionHook(nil), s.contributionHooks...)
	s.hooksMu.RUnlock()
	for _, h := range hooks {
		h(doc)
	}
}

// --- key helpers -----------------------------------------------------

func ceremonyKey(id string) []byte {
	return []byte(id)
}

func circuitKey(ceremonyID, circuitID string) []byte {
	return []byte(ceremonyID + "/" + circuitID)
}

func circuitListPrefix(ceremonyID string) []byte {
	return []byte(ceremonyID + "/")
}

func participantKey(ceremonyID, userID string) []byte {
	return []byte(ceremonyID + "/" + userID)
}

func participantListPrefix(ceremonyID string) []byte {
	return []byte(ceremonyID + "/")
}

func contributionKey(ceremonyID, circuitID, id string) []byte {
	return []byte(ceremonyID + "/" + circuitID + "/" + id)
}

func contributionListPrefix(ceremonyID, circuitID string) []byte {
	return []byte(ceremonyID + "/" + circuitID + "/")
}

// --- generic encode/decode, following storage/helpers.go's cbor use ---

func encodeDoc(v any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("store: encode mode: %w", err)
	}
	return em.Marshal(v)
}

func decodeDoc(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

// getDoc reads and decodes a single document, returning ErrNotFound if
// the key is absent.
func getDoc(reader db.Database, prefix, key []byte, out any) error {
	r := prefixeddb.NewPrefixedReader(reader, prefix)
	data, err := r.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeDoc(data, out)
}

func putDoc(database db.Database, prefix, key []byte, v any) error {
	data, err := encodeDoc(v)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(database.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

func listDocs[T any](database db.Database, prefix, listPrefix []byte, decode func([]byte) (T, error)) ([]T, error) {
	r := prefixeddb.NewPrefixedReader(database, prefix)
	var out []T
	err := r.Iterate(listPrefix, func(_, v []byte) bool {
		item, decErr := decode(v)
		if decErr != nil {
			log.Warnw("store: failed to decode document during list", "error", decErr)
			return true
		}
		out = append(out, item)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("store: iterate: %w", err)
	}
	return out, nil
}

// --- Ceremony ----------------------------------------------------------

// GetCeremony loads a ceremony document.
func (s *Store) GetCeremony(ceremonyID string) (*types.Ceremony, error) {
	c := &types.Ceremony{}
	if err := getDoc(s.db, ceremonyPrefix, ceremonyKey(ceremonyID), c); err != nil {
		return nil, err
	}
	return c, nil
}

// PutCeremony creates or overwrites a ceremony document.
func (s *Store) PutCeremony(c *types.Ceremony) error {
	return putDoc(s.db, ceremonyPrefix, ceremonyKey(c.ID), c)
}

// --- Circuit -------------------------------------------------------------

// GetCircuit loads a circuit document.
func (s *Store) GetCircuit(ceremonyID, circuitID string) (*types.Circuit, error) {
	c := &types.Circuit{}
	if err := getDoc(s.db, circuitPrefix, circuitKey(ceremonyID, circuitID), c); err != nil {
		return nil, err
	}
	c.CeremonyID = ceremonyID
	return c, nil
}

// PutCircuit creates or overwrites a circuit document.
func (s *Store) PutCircuit(c *types.Circuit) error {
	return putDoc(s.db, circuitPrefix, circuitKey(c.CeremonyID, c.ID), c)
}

// ListCircuits returns every circuit belonging to a ceremony, in
// arbitrary order; callers needing sequence order should sort by
// SequencePosition.
func (s *Store) ListCircuits(ceremonyID string) ([]*types.Circuit, error) {
	items, err := listDocs(s.db, circuitPrefix, circuitListPrefix(ceremonyID), func(v []byte) (*types.Circuit, error) {
		c := &types.Circuit{}
		if err := decodeDoc(v, c); err != nil {
			return nil, err
		}
		c.CeremonyID = ceremonyID
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Participant ---------------------------------------------------------

// GetParticipant loads a participant document.
func (s *Store) GetParticipant(ceremonyID, userID string) (*types.Participant, error) {
	p := &types.Participant{}
	if err := getDoc(s.db, participantPrefix, participantKey(ceremonyID, userID), p); err != nil {
		return nil, err
	}
	p.CeremonyID = ceremonyID
	return p, nil
}

// ListParticipants returns every participant in a ceremony.
func (s *Store) ListParticipants(ceremonyID string) ([]*types.Participant, error) {
	return listDocs(s.db, participantPrefix, participantListPrefix(ceremonyID), func(v []byte) (*types.Participant, error) {
		p := &types.Participant{}
		if err := decodeDoc(v, p); err != nil {
			return nil, err
		}
		p.CeremonyID = ceremonyID
		return p, nil
	})
}

// PutParticipant creates or overwrites a participant document outside of
// an Atomic call (used for e.g. the initial join write) and fires the
// registered ParticipantHooks with the before/after images.
//
// The write happens under s.mu, but hooks fire only after it is released:
// a hook is free to re-enter the store (e.g. through Atomic), and
// sync.Mutex is not reentrant.
func (s *Store) PutParticipant(after *types.Participant) error {
	before, err := func() (*types.Participant, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		before, err := s.GetParticipant(after.CeremonyID, after.UserID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if errors.Is(err, ErrNotFound) {
			before = nil
		}
		after.LastUpdated = s.clock.NowMillis()
		if err := putDoc(s.db, participantPrefix, participantKey(after.CeremonyID, after.UserID), after); err != nil {
			return nil, err
		}
		return before, nil
	}()
	if err != nil {
		return err
	}
	s.fireParticipantUpdate(before, after)
	return nil
}

// --- Contribution --------------------------------------------------------

// GetContribution loads a contribution document.
func (s *Store) GetContribution(ceremonyID, circuitID, id string) (*types.Contribution, error) {
	c := &types.Contribution{}
	if err := getDoc(s.db, contributionPrefix, contributionKey(ceremonyID, circuitID, id), c); err != nil {
		return nil, err
	}
	c.CeremonyID, c.CircuitID = ceremonyID, circuitID
	return c, nil
}

// ListContributions returns every contribution recorded for a circuit.
func (s *Store) ListContributions(ceremonyID, circuitID string) ([]*types.Contribution, error) {
	return listDocs(s.db, contributionPrefix, contributionListPrefix(ceremonyID, circuitID), func(v []byte) (*types.Contribution, error) {
		c := &types.Contribution{}
		if err := decodeDoc(v, c); err != nil {
			return nil, err
		}
		c.CeremonyID, c.CircuitID = ceremonyID, circuitID
		return c, nil
	})
}

// GetFinalContribution returns the contribution document whose zkeyIndex
// is the literal "final" token for the given circuit.
func (s *Store) GetFinalContribution(ceremonyID, circuitID string) (*types.Contribution, error) {
	all, err := s.ListContributions(ceremonyID, circuitID)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.ZkeyIndex == types.FinalZkeyToken {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

// PutContribution overwrites an existing contribution document. Per
// invariant I7 this is only legitimate for the Finalizer attaching
// beacon/verifier-contract metadata to the final contribution.
func (s *Store) PutContribution(c *types.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.LastUpdated = s.clock.NowMillis()
	return putDoc(s.db, contributionPrefix, contributionKey(c.CeremonyID, c.CircuitID, c.ID), c)
}

// CreateContribution assigns a fresh document id, writes the contribution,
// and fires the registered ContributionHooks (driving the Refresher).
//
// As in PutParticipant, hooks fire only after s.mu is released.
func (s *Store) CreateContribution(c *types.Contribution) (string, error) {
	err := func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.LastUpdated = s.clock.NowMillis()
		return putDoc(s.db, contributionPrefix, contributionKey(c.CeremonyID, c.CircuitID, c.ID), c)
	}()
	if err != nil {
		return "", err
	}
	s.fireContributionCreate(c)
	return c.ID, nil
}

// Now returns the store's clock reading, in milliseconds.
func (s *Store) Now() int64 { return s.clock.NowMillis() }

// Clock returns the clock backing the store's timestamps, letting
// collaborators share a single time source with it in tests and in
// production.
func (s *Store) Clock() clock.Clock { return s.clock }
