package adorned

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/criteria"
	"github.com/erp/openadmin/internal/domain/metadata"
	"github.com/erp/openadmin/internal/domain/sequence"
	"github.com/erp/openadmin/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Orchestrator runs the adorned target list operations of a persistence
// package. It never opens transactions; callers wrap each operation in one.
type Orchestrator struct {
	registry   *metadata.Registry
	provider   metadata.Provider
	dao        DataAccess
	rebalancer Rebalancer
	increment  decimal.Decimal
	logger     *zap.Logger
	recorder   Recorder
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithIncrement sets the spacing a rebalance assigns between rows
func WithIncrement(increment decimal.Decimal) Option {
	return func(o *Orchestrator) {
		if increment.IsPositive() {
			o.increment = increment
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder sets the recorder notified of rebalances
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(reg *metadata.Registry, provider metadata.Provider, dao DataAccess, rebalancer Rebalancer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:   reg,
		provider:   provider,
		dao:        dao,
		rebalancer: rebalancer,
		increment:  sequence.DefaultIncrement,
		logger:     zap.NewNop(),
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Fetch returns the page of join rows selected by cto, each flattened with
// its target row, plus the unpaged total. Criteria keyed by ceiling entity
// properties filter and sort on the target row.
func (o *Orchestrator) Fetch(ctx context.Context, pkg *admin.PersistencePackage, cto *admin.CriteriaTransferObject) (*admin.DynamicResultSet, error) {
	b, err := o.bind(pkg)
	if err != nil {
		return nil, err
	}
	joinProps, err := o.joinProperties(ctx, pkg, b)
	if err != nil {
		return nil, err
	}
	targetProps, err := o.targetProperties(ctx, pkg, b)
	if err != nil {
		return nil, err
	}

	cto = cto.Clone()
	if b.sort != nil {
		cto.Get(b.list.SortField).SetSortAscending(b.list.SortAscending)
	}
	mappings, err := criteria.AdornedTargetFilterMappings(o.registry, cto, joinProps, b.list)
	if err != nil {
		return nil, err
	}
	targetCto := cto.Prefixed(b.target.ObjectPath, func(key string) bool {
		return b.sort != nil && key == b.list.SortField
	})
	targetMappings, err := criteria.BuildFilterMappings(o.registry, targetCto, b.join.Name, targetProps)
	if err != nil {
		return nil, err
	}
	mappings = append(mappings, targetMappings...)

	q := criteria.Query{
		Entity:   b.instance.Name,
		Mappings: mappings,
		Offset:   cto.FirstResult,
		Limit:    cto.MaxResults,
		Scope:    pkg.Scope,
	}
	rows, err := o.dao.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	total, err := o.dao.Count(ctx, q)
	if err != nil {
		return nil, err
	}

	conv := newConverter(o.registry, o.dao, b, metadata.WithoutID(joinProps), targetProps)
	records := make([]*admin.Entity, 0, len(rows))
	for _, row := range rows {
		e, err := conv.toEntity(ctx, row)
		if err != nil {
			return nil, err
		}
		records = append(records, e)
	}
	return &admin.DynamicResultSet{Records: records, TotalRecords: total}, nil
}

// Add links the payload's linked and target ids. Adding an existing pair
// returns the existing row unchanged. New rows are appended after every
// sibling and then moved to the requested sort value, if any.
//
// A *RebalanceError is returned together with the stored entity when the
// row was placed but the following rebalance failed.
func (o *Orchestrator) Add(ctx context.Context, pkg *admin.PersistencePackage) (*admin.Entity, error) {
	b, err := o.bindMutable(pkg)
	if err != nil {
		return nil, err
	}
	o.warnCustomCriteria(pkg, "add")

	linkedID, err := required(pkg.Entity, b.linked.Path())
	if err != nil {
		return nil, err
	}
	targetID, err := required(pkg.Entity, b.target.Path())
	if err != nil {
		return nil, err
	}
	log := o.logger.With(
		zap.String("collection", b.list.CollectionFieldName),
		zap.String("linked_id", linkedID),
		zap.String("target_id", targetID),
	)

	q, err := b.identityQuery(o.registry, []string{linkedID}, []string{targetID}, pkg.Scope)
	if err != nil {
		return nil, err
	}
	existing, err := o.dao.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		log.Debug("Adorned target already linked")
		return o.convert(ctx, pkg, b, existing[0])
	}

	row := b.instance.New()
	if err := o.assignReference(ctx, b.linkedRef, row, linkedID); err != nil {
		return nil, err
	}
	if err := o.assignReference(ctx, b.targetRef, row, targetID); err != nil {
		return nil, err
	}
	if b.sort != nil {
		siblings, err := b.identityQuery(o.registry, []string{linkedID}, nil, pkg.Scope)
		if err != nil {
			return nil, err
		}
		max, err := o.dao.Max(ctx, siblings, b.sortPath)
		if err != nil {
			return nil, err
		}
		if err := b.sort.Set(row, sequence.Append(max)); err != nil {
			return nil, err
		}
	}
	if err := o.populate(b, row, pkg.Entity); err != nil {
		return nil, err
	}
	if _, err := o.dao.Merge(ctx, b.instance.Name, row, pkg.Scope); err != nil {
		return nil, err
	}

	placeErr := o.applyRequestedSort(ctx, b, row, linkedID, pkg)
	if placeErr != nil && !isRebalanceError(placeErr) {
		return nil, placeErr
	}

	e, err := o.reload(ctx, pkg, b, row)
	if err != nil {
		return nil, err
	}
	log.Info("Adorned target added", zap.String("sort", sortValue(b, row)))
	return e, placeErr
}

// Update rewrites the join row linking the payload's linked and target ids.
// The row is looked up under the payload's original linked id as well, and
// its linked reference is re-pointed to the payload's linked id.
//
// A *RebalanceError is returned together with the stored entity when the
// row was moved but the following rebalance failed.
func (o *Orchestrator) Update(ctx context.Context, pkg *admin.PersistencePackage) (*admin.Entity, error) {
	b, err := o.bindMutable(pkg)
	if err != nil {
		return nil, err
	}

	linkedID, err := required(pkg.Entity, b.linked.Path())
	if err != nil {
		return nil, err
	}
	targetID, err := required(pkg.Entity, b.target.Path())
	if err != nil {
		return nil, err
	}

	row, err := o.resolve(ctx, b, pkg.Scope.ForUpdate(),
		withOriginal(pkg.Entity, linkedID, admin.OriginalLinkedIDProperty),
		[]string{targetID})
	if err != nil {
		return nil, err
	}

	if err := o.assignReference(ctx, b.linkedRef, row, linkedID); err != nil {
		return nil, err
	}
	if err := o.populate(b, row, pkg.Entity); err != nil {
		return nil, err
	}
	if _, err := o.dao.Merge(ctx, b.instance.Name, row, pkg.Scope); err != nil {
		return nil, err
	}

	placeErr := o.applyRequestedSort(ctx, b, row, linkedID, pkg)
	if placeErr != nil && !isRebalanceError(placeErr) {
		return nil, placeErr
	}

	e, err := o.reload(ctx, pkg, b, row)
	if err != nil {
		return nil, err
	}
	o.logger.Info("Adorned target updated",
		zap.String("collection", b.list.CollectionFieldName),
		zap.String("linked_id", linkedID),
		zap.String("target_id", targetID),
		zap.String("sort", sortValue(b, row)),
	)
	return e, placeErr
}

// Remove deletes the join row linking the payload's linked and target ids,
// also matching their original ids
func (o *Orchestrator) Remove(ctx context.Context, pkg *admin.PersistencePackage) error {
	b, err := o.bindMutable(pkg)
	if err != nil {
		return err
	}
	o.warnCustomCriteria(pkg, "remove")

	linkedID, err := required(pkg.Entity, b.linked.Path())
	if err != nil {
		return err
	}
	targetID, err := required(pkg.Entity, b.target.Path())
	if err != nil {
		return err
	}

	row, err := o.resolve(ctx, b, pkg.Scope,
		withOriginal(pkg.Entity, linkedID, admin.OriginalLinkedIDProperty),
		withOriginal(pkg.Entity, targetID, admin.OriginalTargetIDProperty))
	if err != nil {
		return err
	}
	if err := o.dao.Remove(ctx, b.instance.Name, row, pkg.Scope); err != nil {
		return err
	}

	o.logger.Info("Adorned target removed",
		zap.String("collection", b.list.CollectionFieldName),
		zap.String("linked_id", linkedID),
		zap.String("target_id", targetID),
	)
	return nil
}

// MergedProperties returns the join entity properties of the package's
// adorned target list, without the primary key
func (o *Orchestrator) MergedProperties(ctx context.Context, pkg *admin.PersistencePackage) (map[string]*metadata.FieldMetadata, error) {
	b, err := o.bind(pkg)
	if err != nil {
		return nil, err
	}
	props, err := o.joinProperties(ctx, pkg, b)
	if err != nil {
		return nil, err
	}
	return metadata.WithoutID(props), nil
}

func (o *Orchestrator) bind(pkg *admin.PersistencePackage) (*binding, error) {
	list, ok := pkg.Perspective.AdornedTargetList()
	if !ok {
		return nil, shared.Wrapf(shared.ErrInvalidInput, "persistence package for %s has no adorned target list", pkg.CeilingEntity)
	}
	return bind(o.registry, list)
}

func (o *Orchestrator) bindMutable(pkg *admin.PersistencePackage) (*binding, error) {
	b, err := o.bind(pkg)
	if err != nil {
		return nil, err
	}
	if !b.list.Mutable {
		return nil, shared.Wrapf(shared.ErrNotMutable, "collection %s is read-only", b.list.CollectionFieldName)
	}
	return b, nil
}

func (o *Orchestrator) joinProperties(ctx context.Context, pkg *admin.PersistencePackage, b *binding) (map[string]*metadata.FieldMetadata, error) {
	return o.provider.MergedProperties(ctx, metadata.MergedPropertiesRequest{
		EntityName: b.join.Name,
		Type:       metadata.MergedAdornedTargetList,
		ConfigKey:  pkg.Perspective.ConfigurationKey,
	})
}

// targetProperties merges the ceiling entity properties keyed under the
// target object path
func (o *Orchestrator) targetProperties(ctx context.Context, pkg *admin.PersistencePackage, b *binding) (map[string]*metadata.FieldMetadata, error) {
	p := pkg.Perspective
	return o.provider.MergedProperties(ctx, metadata.MergedPropertiesRequest{
		EntityName:          pkg.CeilingEntity,
		ForeignKeys:         p.AdditionalForeignKeys,
		IncludeFields:       p.IncludeFields,
		ExcludeFields:       p.ExcludeFields,
		Type:                metadata.MergedPrimary,
		PopulateToOneFields: p.PopulateToOneFields,
		ConfigKey:           p.ConfigurationKey,
		Prefix:              b.target.ObjectPath,
	})
}

func (o *Orchestrator) convert(ctx context.Context, pkg *admin.PersistencePackage, b *binding, row any) (*admin.Entity, error) {
	joinProps, err := o.joinProperties(ctx, pkg, b)
	if err != nil {
		return nil, err
	}
	targetProps, err := o.targetProperties(ctx, pkg, b)
	if err != nil {
		return nil, err
	}
	return newConverter(o.registry, o.dao, b, metadata.WithoutID(joinProps), targetProps).toEntity(ctx, row)
}

// reload re-reads a stored join row and converts it
func (o *Orchestrator) reload(ctx context.Context, pkg *admin.PersistencePackage, b *binding, row any) (*admin.Entity, error) {
	id, _ := b.instance.IDField().Get(row)
	stored, err := o.dao.Retrieve(ctx, b.instance.Name, id)
	if err != nil {
		return nil, err
	}
	return o.convert(ctx, pkg, b, stored)
}

// resolve loads the first join row matching the identity filters
func (o *Orchestrator) resolve(ctx context.Context, b *binding, scope admin.Scope, linkedIDs, targetIDs []string) (any, error) {
	q, err := b.identityQuery(o.registry, linkedIDs, targetIDs, scope)
	if err != nil {
		return nil, err
	}
	rows, err := o.dao.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.Wrapf(shared.ErrNotFound, "no %s row links %s to %s",
			b.list.CollectionFieldName, strings.Join(linkedIDs, ","), strings.Join(targetIDs, ","))
	}
	return rows[0], nil
}

// assignReference points ref of row at the entity with the wire id raw,
// which must exist
func (o *Orchestrator) assignReference(ctx context.Context, ref *metadata.Field, row any, raw string) error {
	id, err := ref.Parse(raw)
	if err != nil {
		return err
	}
	if _, err := o.dao.Retrieve(ctx, ref.Target, id); err != nil {
		return err
	}
	return ref.Set(row, id)
}

// populate copies the plain payload properties onto row
func (o *Orchestrator) populate(b *binding, row any, e *admin.Entity) error {
	if e == nil {
		return nil
	}
	for _, p := range e.Properties {
		if b.skipsPayload(p.Name) {
			continue
		}
		f, ok := b.instance.Field(p.Name)
		if !ok {
			continue
		}
		switch f.Kind {
		case metadata.KindID, metadata.KindReference, metadata.KindCollection:
			continue
		}
		v, err := f.Parse(p.Value)
		if err != nil {
			return err
		}
		if err := f.Set(row, v); err != nil {
			return err
		}
	}
	return nil
}

// applyRequestedSort places row at the sort value carried by the payload. A
// *RebalanceError leaves the placement stored.
func (o *Orchestrator) applyRequestedSort(ctx context.Context, b *binding, row any, linkedID string, pkg *admin.PersistencePackage) error {
	if b.sort == nil {
		return nil
	}
	raw, ok := pkg.Entity.Value(b.list.SortField)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil
	}
	requested, err := decimal.NewFromString(raw)
	if err != nil {
		return shared.Wrapf(shared.ErrFormat, "invalid %s %q", b.list.SortField, raw)
	}

	linkedIDs := withOriginal(pkg.Entity, linkedID, admin.OriginalLinkedIDProperty)
	err = o.place(ctx, b, row, linkedIDs, requested, pkg.Scope)
	if isRebalanceError(err) {
		o.logger.Warn("Sort rebalance failed, placement kept",
			zap.String("collection", b.list.CollectionFieldName),
			zap.Error(err),
		)
	}
	return err
}

func isRebalanceError(err error) bool {
	var re *RebalanceError
	return errors.As(err, &re)
}

func (o *Orchestrator) warnCustomCriteria(pkg *admin.PersistencePackage, op string) {
	if len(pkg.CustomCriteria) > 0 {
		o.logger.Warn("Custom criteria are not supported for adorned target lists",
			zap.String("operation", op),
			zap.Strings("custom_criteria", pkg.CustomCriteria),
		)
	}
}

func required(e *admin.Entity, name string) (string, error) {
	v, ok := e.Value(name)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", shared.Wrapf(shared.ErrFormat, "missing %s", name)
	}
	return v, nil
}

// withOriginal adds the original id recorded under property, when present
// and different
func withOriginal(e *admin.Entity, id, property string) []string {
	ids := []string{id}
	if orig, ok := e.Value(property); ok {
		orig = strings.TrimSpace(orig)
		if orig != "" && orig != id {
			ids = append(ids, orig)
		}
	}
	return ids
}

func sortValue(b *binding, row any) string {
	if b.sort == nil {
		return ""
	}
	v, _ := b.sort.Get(row)
	return b.sort.Format(v)
}
