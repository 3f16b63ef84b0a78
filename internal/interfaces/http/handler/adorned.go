package handler

import (
	"context"
	"strings"

	"github.com/erp/openadmin/internal/application/adorned"
	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/metadata"
	"github.com/erp/openadmin/internal/interfaces/http/dto"
	"github.com/erp/openadmin/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// AdornedService is the application service behind AdornedHandler
type AdornedService interface {
	Collections() []string
	Collection(name string) (admin.Collection, error)
	Fetch(ctx context.Context, collection string, scope admin.Scope, cto *admin.CriteriaTransferObject) (*admin.DynamicResultSet, error)
	Add(ctx context.Context, req adorned.Request) (*admin.Entity, error)
	Update(ctx context.Context, req adorned.Request) (*admin.Entity, error)
	Remove(ctx context.Context, req adorned.Request) error
	Metadata(ctx context.Context, collection string) (map[string]*metadata.FieldMetadata, error)
}

// AdornedHandler serves the adorned target list collections:
//
//	GET    /collections
//	GET    /collections/:collection/metadata
//	GET    /collections/:collection/linked/:linkedId/entries
//	POST   /collections/:collection/linked/:linkedId/entries
//	PUT    /collections/:collection/linked/:linkedId/entries/:targetId
//	DELETE /collections/:collection/linked/:linkedId/entries/:targetId
type AdornedHandler struct {
	BaseHandler
	service         AdornedService
	defaultPageSize int
	maxPageSize     int
}

// NewAdornedHandler creates the handler. Fetches without max_results get
// defaultPageSize rows; larger requests are capped at maxPageSize.
func NewAdornedHandler(service AdornedService, defaultPageSize, maxPageSize int) *AdornedHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = 25
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = defaultPageSize
	}
	return &AdornedHandler{service: service, defaultPageSize: defaultPageSize, maxPageSize: maxPageSize}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *AdornedHandler) RegisterRoutes(rg *gin.RouterGroup) {
	cols := rg.Group("/collections")
	cols.GET("", h.ListCollections)
	cols.GET("/:collection/metadata", h.Metadata)

	entries := cols.Group("/:collection/linked/:linkedId/entries")
	entries.GET("", h.Fetch)
	entries.POST("", h.Add)
	entries.PUT("/:targetId", h.Update)
	entries.DELETE("/:targetId", h.Remove)
}

// ListCollections returns the served collection names
func (h *AdornedHandler) ListCollections(c *gin.Context) {
	h.Success(c, h.service.Collections())
}

// Metadata returns the join entity properties of a collection
func (h *AdornedHandler) Metadata(c *gin.Context) {
	props, err := h.service.Metadata(c.Request.Context(), c.Param("collection"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToPropertyMetadataResponses(props))
}

// Fetch returns a page of the targets linked to :linkedId
func (h *AdornedHandler) Fetch(c *gin.Context) {
	var q dto.FetchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	col, err := h.service.Collection(c.Param("collection"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	cto := admin.NewCriteriaTransferObject()
	cto.FirstResult = q.FirstResult
	cto.MaxResults = h.pageSize(q.MaxResults)
	cto.Get(col.List.CollectionFieldName).SetFilterValue(c.Param("linkedId"))
	if q.Target != "" {
		cto.Get(col.List.TargetCriteriaKey()).SetFilterValue(q.Target)
	}
	for property, value := range c.QueryMap("filter") {
		cto.Get(property).SetFilterValues(strings.Split(value, ",")...)
	}
	for _, s := range q.Sort {
		property, descending := strings.CutPrefix(s, "-")
		if property == "" {
			h.BadRequest(c, "sort requires a property name")
			return
		}
		cto.Get(property).SetSortAscending(!descending)
	}

	scope := middleware.GetScope(c)
	if q.Archived {
		scope = scope.IncludingArchived()
	}

	rs, err := h.service.Fetch(c.Request.Context(), col.Name, scope, cto)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, rs.Records, rs.TotalRecords, cto.FirstResult, cto.MaxResults)
}

// Add links the body's target to :linkedId
func (h *AdornedHandler) Add(c *gin.Context) {
	var req dto.AddEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	col, err := h.service.Collection(c.Param("collection"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	entity := entryEntity(col, req.Values, c.Param("linkedId"), req.TargetID)
	result, err := h.service.Add(c.Request.Context(), adorned.Request{
		Collection:     col.Name,
		Scope:          middleware.GetScope(c),
		Entity:         entity,
		CustomCriteria: req.CustomCriteria,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Update rewrites the join row of :linkedId and :targetId
func (h *AdornedHandler) Update(c *gin.Context) {
	var req dto.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	col, err := h.service.Collection(c.Param("collection"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	entity := entryEntity(col, req.Values, c.Param("linkedId"), c.Param("targetId"))
	addOriginalIDs(entity, req.OriginalLinkedID, req.OriginalTargetID)
	result, err := h.service.Update(c.Request.Context(), adorned.Request{
		Collection:     col.Name,
		Scope:          middleware.GetScope(c),
		Entity:         entity,
		CustomCriteria: req.CustomCriteria,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Remove unlinks :targetId from :linkedId. original_linked_id and
// original_target_id query parameters address sandbox edit history.
func (h *AdornedHandler) Remove(c *gin.Context) {
	col, err := h.service.Collection(c.Param("collection"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	entity := entryEntity(col, nil, c.Param("linkedId"), c.Param("targetId"))
	addOriginalIDs(entity, c.Query("original_linked_id"), c.Query("original_target_id"))
	err = h.service.Remove(c.Request.Context(), adorned.Request{
		Collection: col.Name,
		Scope:      middleware.GetScope(c),
		Entity:     entity,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *AdornedHandler) pageSize(requested int) int {
	switch {
	case requested <= 0:
		return h.defaultPageSize
	case requested > h.maxPageSize:
		return h.maxPageSize
	default:
		return requested
	}
}

// entryEntity builds the join entity payload. The URL ids win over body
// values of the same property.
func entryEntity(col admin.Collection, values map[string]string, linkedID, targetID string) *admin.Entity {
	entity := admin.NewEntityFromMap(values)
	linked, target := col.List.Roles()
	entity.AddProperty(admin.Property{Name: linked.Path(), Value: linkedID, IsDirty: true})
	entity.AddProperty(admin.Property{Name: target.Path(), Value: targetID, IsDirty: true})
	return entity
}

func addOriginalIDs(entity *admin.Entity, linkedID, targetID string) {
	if linkedID != "" {
		entity.AddProperty(admin.Property{Name: admin.OriginalLinkedIDProperty, Value: linkedID})
	}
	if targetID != "" {
		entity.AddProperty(admin.Property{Name: admin.OriginalTargetIDProperty, Value: targetID})
	}
}
