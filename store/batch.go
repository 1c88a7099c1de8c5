package store

import (
	"github.com/google/uuid"

	"github.com/zkceremony/coordinator/types"
)

func newContributionID() string { return uuid.NewString() }

// Batch buffers reads and writes for one call to Store.Atomic. Writes are
// only applied to the underlying database if the batch function returns
// nil, giving the "commit in full or commit nothing" guarantee spec.md
// §7 requires of every handler.
type Batch struct {
	s   *Store
	now int64

	circuits     map[string]*types.Circuit
	participants map[string]*types.Participant
	partBefore   map[string]*types.Participant
	partSeen     map[string]bool

	newContributions []*types.Contribution
	contribUpdates   map[string]*types.Contribution
}

func newBatch(s *Store) *Batch {
	return &Batch{
		s:              s,
		now:            s.clock.NowMillis(),
		circuits:       map[string]*types.Circuit{},
		participants:   map[string]*types.Participant{},
		partBefore:     map[string]*types.Participant{},
		partSeen:       map[string]bool{},
		contribUpdates: map[string]*types.Contribution{},
	}
}

// Now returns the timestamp fixed at the start of the batch.
func (b *Batch) Now() int64 { return b.now }

// GetCircuit reads a circuit, preferring a value already staged in this
// batch over the committed store.
func (b *Batch) GetCircuit(ceremonyID, circuitID string) (*types.Circuit, error) {
	key := ceremonyID + "/" + circuitID
	if c, ok := b.circuits[key]; ok {
		cp := *c
		return &cp, nil
	}
	return b.s.GetCircuit(ceremonyID, circuitID)
}

// PutCircuit stages a circuit write.
func (b *Batch) PutCircuit(c *types.Circuit) {
	cp := *c
	b.circuits[c.CeremonyID+"/"+c.ID] = &cp
}

// GetParticipant reads a participant, preferring a value already staged
// in this batch, and remembers the first-seen (pre-batch) image as the
// "before" snapshot for the eventual trigger dispatch.
func (b *Batch) GetParticipant(ceremonyID, userID string) (*types.Participant, error) {
	key := ceremonyID + "/" + userID
	if p, ok := b.participants[key]; ok {
		cp := *p
		return &cp, nil
	}
	p, err := b.s.GetParticipant(ceremonyID, userID)
	if err == nil && !b.partSeen[key] {
		before := *p
		b.partBefore[key] = &before
		b.partSeen[key] = true
	}
	return p, err
}

// PutParticipant stages a participant write.
func (b *Batch) PutParticipant(p *types.Participant) {
	key := p.CeremonyID + "/" + p.UserID
	if !b.partSeen[key] {
		// Written without ever being read in this batch: treat as a
		// fresh document, so the fired hook sees before == nil.
		b.partSeen[key] = true
	}
	cp := *p
	b.participants[key] = &cp
}

// CreateContribution stages a new contribution document, assigning an id
// immediately so callers can reference it before the batch commits.
func (b *Batch) CreateContribution(c *types.Contribution) string {
	if c.ID == "" {
		c.ID = newContributionID()
	}
	cp := *c
	b.newContributions = append(b.newContributions, &cp)
	return c.ID
}

// PutContribution stages a mutation of an existing contribution document.
// Per invariant I7 this is only legitimate for the Finalizer.
func (b *Batch) PutContribution(c *types.Contribution) {
	cp := *c
	b.contribUpdates[c.CeremonyID+"/"+c.CircuitID+"/"+c.ID] = &cp
}

// Atomic runs fn against a fresh Batch under the store's write lock. If fn
// returns a non-nil error, no document is written and no hook fires. On
// success, every staged write is committed under the lock; then, after the
// lock is released, participant-update hooks fire (in no particular order),
// followed by contribution-create hooks in the order the contributions
// were staged.
//
// Hooks must not see s.mu held: a hook is expected to be able to call back
// into Atomic or PutParticipant itself (that is how the Coordinator and
// Refresher are wired in daemon.go), and sync.Mutex is not reentrant.
func (s *Store) Atomic(fn func(b *Batch) error) error {
	b, err := func() (*Batch, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		b := newBatch(s)
		if err := fn(b); err != nil {
			return nil, err
		}

		for _, c := range b.circuits {
			if err := putDoc(s.db, circuitPrefix, circuitKey(c.CeremonyID, c.ID), c); err != nil {
				return nil, err
			}
		}
		for _, p := range b.participants {
			p.LastUpdated = b.now
			if err := putDoc(s.db, participantPrefix, participantKey(p.CeremonyID, p.UserID), p); err != nil {
				return nil, err
			}
		}
		for _, c := range b.newContributions {
			c.LastUpdated = b.now
			if err := putDoc(s.db, contributionPrefix, contributionKey(c.CeremonyID, c.CircuitID, c.ID), c); err != nil {
				return nil, err
			}
		}
		for _, c := range b.contribUpdates {
			c.LastUpdated = b.now
			if err := putDoc(s.db, contributionPrefix, contributionKey(c.CeremonyID, c.CircuitID, c.ID), c); err != nil {
				return nil, err
			}
		}
		return b, nil
	}()
	if err != nil {
		return err
	}

	for key, p := range b.participants {
		s.fireParticipantUpdate(b.partBefore[key], p)
	}
	for _, c := range b.newContributions {
		s.fireContributionCreate(c)
	}
	return nil
}
