package adorned

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/metadata"
	"github.com/erp/openadmin/internal/domain/sequence"
	"github.com/erp/openadmin/internal/infrastructure/persistence"
	"github.com/erp/openadmin/internal/infrastructure/persistence/models"
	"github.com/erp/openadmin/internal/infrastructure/persistence/rebalance"
	"github.com/erp/openadmin/tests/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	db       *testutil.CatalogDB
	o        *Orchestrator
	svc      *Service
	recorder *spyRecorder
}

type fixtureOption struct {
	rebalancer Rebalancer
	immutable  []string
}

func newFixture(t *testing.T, opts ...func(*fixtureOption)) *fixture {
	t.Helper()

	cfg := fixtureOption{}
	for _, opt := range opts {
		opt(&cfg)
	}

	db := testutil.NewCatalogDB(t)
	if cfg.rebalancer == nil {
		cfg.rebalancer = rebalance.New(db.DB, zap.NewNop())
	}
	recorder := &spyRecorder{}

	o := NewOrchestrator(db.Registry,
		metadata.NewRegistryProvider(db.Registry),
		persistence.NewDynamicEntityDao(db.DB, db.Registry),
		cfg.rebalancer,
		WithRecorder(recorder),
	)
	cols, err := NewCollections(db.Registry, models.CatalogCollections()...)
	require.NoError(t, err)
	svc := NewService(o, cols, persistence.NewTransactor(db.DB),
		WithImmutableCollections(cfg.immutable...),
		WithServiceRecorder(recorder),
	)
	return &fixture{db: db, o: o, svc: svc, recorder: recorder}
}

func withRebalancer(r Rebalancer) func(*fixtureOption) {
	return func(c *fixtureOption) { c.rebalancer = r }
}

func withImmutable(names ...string) func(*fixtureOption) {
	return func(c *fixtureOption) { c.immutable = names }
}

// pkg builds the persistence package of a catalog collection
func (f *fixture) pkg(t *testing.T, collection string, scope admin.Scope, values map[string]string) *admin.PersistencePackage {
	t.Helper()
	p, err := f.svc.Package(Request{
		Collection: collection,
		Scope:      scope,
		Entity:     admin.NewEntityFromMap(values),
	})
	require.NoError(t, err)
	return p
}

// link adds product to category through the categoryProducts collection
func (f *fixture) link(t *testing.T, categoryID, productID int64, seq string) *admin.Entity {
	t.Helper()
	values := map[string]string{"category.id": id(categoryID), "product.id": id(productID)}
	if seq != "" {
		values["sequence"] = seq
	}
	e, err := f.o.Add(context.Background(), f.pkg(t, "categoryProducts", admin.ProductionScope(), values))
	require.NoError(t, err)
	return e
}

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}

type spyRecorder struct {
	mu         sync.Mutex
	operations []string
	rebalanced int64
}

func (r *spyRecorder) RecordOperation(_ context.Context, collection, operation, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = append(r.operations, collection+"."+operation+":"+outcome)
}

func (r *spyRecorder) RecordRebalance(_ context.Context, _ string, rows int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rebalanced += rows
}

type failingRebalancer struct {
	err error
}

func (f failingRebalancer) Rebalance(context.Context, sequence.RebalanceWindow) (int64, error) {
	return 0, f.err
}
