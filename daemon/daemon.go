// Package daemon wires the store, blob store, worker pool, ceremony
// handlers, and the HTTP API together into one running process,
// following the lifecycle-service pattern the teacher uses in its own
// service package (Start/Stop guarded by a mutex and a cancel func).
package daemon

import (
	"context"
	"fmt"
	"sync"

	"go.vocdoni.io/dvote/db/metadb"

	"github.com/zkceremony/coordinator/api"
	"github.com/zkceremony/coordinator/blobstore"
	"github.com/zkceremony/coordinator/ceremony"
	"github.com/zkceremony/coordinator/clock"
	"github.com/zkceremony/coordinator/config"
	"github.com/zkceremony/coordinator/log"
	"github.com/zkceremony/coordinator/store"
	"github.com/zkceremony/coordinator/workerpool"
)

// Daemon is the ceremony coordinator process: a Store, a BlobStore, a
// worker Pool, the Coordinator and Refresher wired to the store's document
// triggers, and an HTTP API server serving the Verifier and Finalizer.
type Daemon struct {
	mu     sync.Mutex
	cancel context.CancelFunc

	cfg *config.Config

	Store *store.Store
	Blobs blobstore.BlobStore
	Pool  workerpool.Pool
	API   *api.API
}

// New builds a Daemon from cfg but does not start it.
func New(cfg *config.Config) (*Daemon, error) {
	database, err := metadb.New("pebble", cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("daemon: opening store at %s: %w", cfg.Store.Path, err)
	}
	s := store.New(database, clock.NewSystem())

	blobs, err := blobstore.NewGCS(context.Background())
	if err != nil {
		return nil, fmt.Errorf("daemon: creating blob store client: %w", err)
	}

	pool, err := workerpool.NewSSHPool(cfg.Worker.SSHUser, cfg.Worker.SSHKeyPath, cfg.Worker.ProbeTimeout)
	if err != nil {
		return nil, fmt.Errorf("daemon: creating worker pool: %w", err)
	}

	return &Daemon{cfg: cfg, Store: s, Blobs: blobs, Pool: pool}, nil
}

// Start wires the ceremony handlers to the store's document triggers and
// starts the HTTP API server. It returns an error if the daemon is
// already running.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		return fmt.Errorf("daemon: already running")
	}
	_, d.cancel = context.WithCancel(ctx)

	coordinator := ceremony.NewCoordinator(d.Store)
	refresher := ceremony.NewRefresher(d.Store)
	verifier := ceremony.NewVerifier(d.Store, d.Blobs, d.Pool, d.Store.Clock(), d.cfg.VerificationSoftware, d.cfg.Worker)
	finalizer := ceremony.NewFinalizer(d.Store, d.Blobs)

	d.Store.OnParticipantUpdate(coordinator.OnParticipantUpdate)
	d.Store.OnContributionCreate(refresher.OnContributionCreate)

	a, err := api.New(&api.Config{
		ListenAddr: d.cfg.API.ListenAddr,
		JWTSecret:  []byte(d.cfg.API.JWTSecret),
		Store:      d.Store,
		Verifier:   verifier,
		Finalizer:  finalizer,
	})
	if err != nil {
		d.cancel = nil
		return fmt.Errorf("daemon: starting api: %w", err)
	}
	d.API = a

	log.Infow("daemon started", "listenAddr", d.cfg.API.ListenAddr)
	return nil
}

// Stop cancels the daemon's context and closes the store.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.Store.Close(); err != nil {
		log.Warnw("daemon: failed to close store", "error", err)
	}
}
