package market

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mohsinsiddi/w3market/internal/contract"
	"github.com/Mohsinsiddi/w3market/internal/errs"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchWorkers bounds concurrent item reads during a load.
const DefaultFetchWorkers = 4

// ItemReader is the read side of the marketplace contract.
type ItemReader interface {
	ItemCount(ctx context.Context) (uint64, error)
	Item(ctx context.Context, id uint64) (contract.Item, error)
	ItemsByOwner(ctx context.Context, owner common.Address) ([]uint64, error)
}

// View tells which load produced a snapshot.
type View int

const (
	ViewAll   View = iota // every item 1..itemCount
	ViewOwner             // items held by Snapshot.Owner
)

func (v View) String() string {
	if v == ViewOwner {
		return "owner"
	}
	return "all"
}

// Snapshot is an immutable catalog state.
type Snapshot struct {
	Items    []contract.Item
	View     View
	Owner    common.Address // set for ViewOwner
	Token    uint64         // request token of the load that produced it
	LoadedAt time.Time
}

// Catalog holds the last successfully loaded item list. Every load takes a
// request token; only the load holding the most recently issued token may
// replace the catalog, so a slow older load can never overwrite a newer one.
type Catalog struct {
	mu       sync.RWMutex
	snap     Snapshot
	latest   atomic.Uint64
	inflight atomic.Int32
	workers  int
	log      *slog.Logger
	onChange func(Snapshot)
	onStart  func(Snapshot)
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithWorkers sets how many items are fetched concurrently.
func WithWorkers(n int) CatalogOption {
	return func(c *Catalog) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithCatalogLogger sets the logger.
func WithCatalogLogger(log *slog.Logger) CatalogOption {
	return func(c *Catalog) {
		if log != nil {
			c.log = log
		}
	}
}

// WithOnChange registers a callback run after every committed load.
func WithOnChange(fn func(Snapshot)) CatalogOption {
	return func(c *Catalog) {
		c.onChange = fn
	}
}

// WithOnLoadStart registers a callback run when a load begins, with the
// catalog it may replace. Loading reports true while it runs.
func WithOnLoadStart(fn func(Snapshot)) CatalogOption {
	return func(c *Catalog) {
		c.onStart = fn
	}
}

// NewCatalog returns an empty catalog.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		workers: DefaultFetchWorkers,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadAll reads itemCount and every item 1..count, then replaces the catalog.
// On failure the previous catalog is kept and a CatalogLoadFailed error is
// returned. A load superseded by a newer one is dropped and returns nil.
func (c *Catalog) LoadAll(ctx context.Context, r ItemReader) error {
	return c.load(ctx, r, ViewAll, common.Address{}, func(ctx context.Context) ([]uint64, error) {
		count, err := r.ItemCount(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]uint64, count)
		for i := range ids {
			ids[i] = uint64(i) + 1
		}
		return ids, nil
	})
}

// LoadByOwner replaces the catalog with the items owned by owner, in the
// order the contract lists them. The result stays in place until the next
// LoadAll.
func (c *Catalog) LoadByOwner(ctx context.Context, r ItemReader, owner common.Address) error {
	return c.load(ctx, r, ViewOwner, owner, func(ctx context.Context) ([]uint64, error) {
		return r.ItemsByOwner(ctx, owner)
	})
}

// Snapshot returns the current catalog state.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// View reports which load produced the current catalog.
func (c *Catalog) View() View { return c.Snapshot().View }

// Items returns a copy of the current item list.
func (c *Catalog) Items() []contract.Item {
	snap := c.Snapshot()
	out := make([]contract.Item, len(snap.Items))
	copy(out, snap.Items)
	return out
}

// Find returns the item with id from the current catalog.
func (c *Catalog) Find(id uint64) (contract.Item, bool) {
	for _, it := range c.Snapshot().Items {
		if it.ID == id {
			return it, true
		}
	}
	return contract.Item{}, false
}

// Loading reports whether any load is in progress.
func (c *Catalog) Loading() bool {
	return c.inflight.Load() > 0
}

// --- internal ---

func (c *Catalog) load(
	ctx context.Context,
	r ItemReader,
	view View,
	owner common.Address,
	resolveIDs func(context.Context) ([]uint64, error),
) error {
	if r == nil {
		return errs.New(errs.KindNoBinding, "catalog load without a contract binding")
	}

	token := c.latest.Add(1)
	c.inflight.Add(1)
	defer c.inflight.Add(-1)
	if c.onStart != nil {
		c.onStart(c.Snapshot())
	}

	start := time.Now()
	items, err := c.fetch(ctx, r, resolveIDs)
	if err != nil {
		if token != c.latest.Load() {
			c.log.Debug("superseded catalog load failed", "token", token, "err", err)
			return nil
		}
		c.log.Warn("catalog load failed", "view", view, "token", token, "err", err)
		return errs.Wrap(errs.KindCatalogLoadFailed, "loading catalog", err)
	}

	snap := Snapshot{Items: items, View: view, Owner: owner, Token: token, LoadedAt: time.Now()}

	c.mu.Lock()
	if token != c.latest.Load() {
		c.mu.Unlock()
		c.log.Debug("discarding stale catalog load", "token", token, "latest", c.latest.Load())
		return nil
	}
	c.snap = snap
	c.mu.Unlock()

	c.log.Debug("catalog loaded", "view", view, "items", len(items), "token", token, "took", time.Since(start))
	if c.onChange != nil {
		c.onChange(snap)
	}
	return nil
}

// fetch reads every id with a bounded worker pool. Results keep id order
// regardless of completion order.
func (c *Catalog) fetch(
	ctx context.Context,
	r ItemReader,
	resolveIDs func(context.Context) ([]uint64, error),
) ([]contract.Item, error) {
	ids, err := resolveIDs(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]contract.Item, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, id := range ids {
		g.Go(func() error {
			it, err := r.Item(gctx, id)
			if err != nil {
				return err
			}
			items[i] = it
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
