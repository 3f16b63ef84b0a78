package adorned

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/metadata"
	"github.com/erp/openadmin/internal/domain/shared"
	"github.com/erp/openadmin/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Request addresses one write against a registered collection
type Request struct {
	Collection     string
	Scope          admin.Scope
	Entity         *admin.Entity
	CustomCriteria []string
}

// Service exposes the registered collections. Each operation runs in its own
// transaction and fails with a *shared.ServiceError.
type Service struct {
	orchestrator *Orchestrator
	collections  *Collections
	tx           Transactor
	immutable    []string
	recorder     Recorder
	logger       *zap.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithImmutableCollections serves the named collections read-only
func WithImmutableCollections(names ...string) ServiceOption {
	return func(s *Service) {
		s.immutable = append(s.immutable, names...)
	}
}

// WithServiceRecorder sets the recorder notified of finished operations
func WithServiceRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithServiceLogger sets the logger
func WithServiceLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service
func NewService(o *Orchestrator, cols *Collections, tx Transactor, opts ...ServiceOption) *Service {
	s := &Service{
		orchestrator: o,
		collections:  cols,
		tx:           tx,
		recorder:     nopRecorder{},
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collections returns the names of the served collections
func (s *Service) Collections() []string {
	return s.collections.Names()
}

// Collection returns the configuration of a served collection
func (s *Service) Collection(name string) (admin.Collection, error) {
	col, err := s.collections.Get(name)
	if err != nil {
		return admin.Collection{}, shared.NewServiceError("failed to resolve "+name, err)
	}
	return col, nil
}

// Fetch returns a page of the collection
func (s *Service) Fetch(ctx context.Context, collection string, scope admin.Scope, cto *admin.CriteriaTransferObject) (*admin.DynamicResultSet, error) {
	var result *admin.DynamicResultSet
	err := s.run(ctx, collection, "fetch", func(ctx context.Context) error {
		pkg, err := s.Package(Request{Collection: collection, Scope: scope})
		if err != nil {
			return err
		}
		result, err = s.orchestrator.Fetch(ctx, pkg, cto)
		return err
	})
	return result, err
}

// Add links the payload's linked and target ids. When the row was stored but
// the following rebalance failed, the entity is returned with the error.
func (s *Service) Add(ctx context.Context, req Request) (*admin.Entity, error) {
	var result *admin.Entity
	err := s.run(ctx, req.Collection, "add", func(ctx context.Context) error {
		pkg, err := s.Package(req)
		if err != nil {
			return err
		}
		result, err = s.orchestrator.Add(ctx, pkg)
		return err
	})
	return result, err
}

// Update rewrites a join row. When the row was stored but the following
// rebalance failed, the entity is returned with the error.
func (s *Service) Update(ctx context.Context, req Request) (*admin.Entity, error) {
	var result *admin.Entity
	err := s.run(ctx, req.Collection, "update", func(ctx context.Context) error {
		pkg, err := s.Package(req)
		if err != nil {
			return err
		}
		result, err = s.orchestrator.Update(ctx, pkg)
		return err
	})
	return result, err
}

// Remove unlinks the payload's linked and target ids
func (s *Service) Remove(ctx context.Context, req Request) error {
	return s.run(ctx, req.Collection, "remove", func(ctx context.Context) error {
		pkg, err := s.Package(req)
		if err != nil {
			return err
		}
		return s.orchestrator.Remove(ctx, pkg)
	})
}

// Metadata returns the join entity properties of the collection
func (s *Service) Metadata(ctx context.Context, collection string) (map[string]*metadata.FieldMetadata, error) {
	pkg, err := s.Package(Request{Collection: collection})
	if err != nil {
		return nil, shared.NewServiceError("failed to describe "+collection, err)
	}
	props, err := s.orchestrator.MergedProperties(ctx, pkg)
	if err != nil {
		return nil, shared.NewServiceError("failed to describe "+collection, err)
	}
	return props, nil
}

// Package builds the persistence package of req
func (s *Service) Package(req Request) (*admin.PersistencePackage, error) {
	col, err := s.collections.Get(req.Collection)
	if err != nil {
		return nil, err
	}
	if slices.Contains(s.immutable, col.Name) {
		col.List.Mutable = false
	}
	entity := req.Entity
	if entity == nil {
		entity = &admin.Entity{}
	}
	return &admin.PersistencePackage{
		CeilingEntity:  col.CeilingEntity,
		Perspective:    col.Perspective(),
		Entity:         entity,
		CustomCriteria: req.CustomCriteria,
		Scope:          req.Scope,
	}, nil
}

// run executes fn in a transaction. A rebalance failure commits the work
// done before it and is reported afterwards.
func (s *Service) run(ctx context.Context, collection, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "adorned", operation,
		telemetry.WithAttribute(string(telemetry.AttrCollection), collection),
	)
	defer span.End()

	var kept error
	err := s.tx.Within(ctx, func(ctx context.Context) error {
		err := fn(ctx)
		if isRebalanceError(err) {
			kept = err
			return nil
		}
		return err
	})
	if err == nil {
		err = kept
	}

	outcome := "ok"
	if err != nil {
		se := shared.NewServiceError(fmt.Sprintf("failed to %s %s", operation, collection), err)
		outcome = strings.ToLower(string(se.Kind))
		telemetry.RecordError(span, err)
		s.logger.Warn("Adorned target operation failed",
			zap.String("collection", collection),
			zap.String("operation", operation),
			zap.String("kind", string(se.Kind)),
			zap.Error(err),
		)
		err = se
	}
	s.recorder.RecordOperation(ctx, collection, operation, outcome, time.Since(start))
	return err
}
