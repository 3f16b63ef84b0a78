package adorned

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/shared"
	"github.com/erp/openadmin/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var production = admin.ProductionScope()

func TestAdd_AppendsInIncreasingOrder(t *testing.T) {
	f := newFixture(t)
	cat := f.db.Category(t, "shoes")
	a, b, c := f.db.Product(t, "a"), f.db.Product(t, "b"), f.db.Product(t, "c")

	f.link(t, cat.ID, a.ID, "")
	f.link(t, cat.ID, b.ID, "")
	e := f.link(t, cat.ID, c.ID, "")

	assert.Equal(t, []string{"1", "2", "3"}, f.db.Sequences(t, cat.ID, production))
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, f.db.ProductOrder(t, cat.ID, production))

	values := e.Values()
	assert.Equal(t, []string{models.EntityCategoryProduct}, e.Type)
	assert.Equal(t, "3", values["sequence"])
	assert.Equal(t, id(cat.ID), values["category.id"])
	assert.Equal(t, id(c.ID), values["product.id"])
	assert.Equal(t, "c", values["product.name"])
	assert.Equal(t, "SKU-c", values["product.sku"])
	assert.NotContains(t, values, "id")
}

func TestAdd_Idempotent(t *testing.T) {
	f := newFixture(t)
	cat := f.db.Category(t, "shoes")
	p := f.db.Product(t, "a")

	first := f.link(t, cat.ID, p.ID, "")
	second := f.link(t, cat.ID, p.ID, "5")

	assert.Equal(t, first.Values(), second.Values())
	assert.Equal(t, []string{"1"}, f.db.Sequences(t, cat.ID, production))
}

func TestAdd_Placement(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		wantOrder func(a, b, c int64) []int64
		wantSeqs  []string
		rebalance int64
	}{
		{
			name:      "position one goes below every sibling",
			requested: "1",
			wantOrder: func(a, b, c int64) []int64 { return []int64{c, a, b} },
			wantSeqs:  []string{"0", "1", "2"},
		},
		{
			name:      "middle position lands between neighbours and is rebalanced",
			requested: "2",
			wantOrder: func(a, b, c int64) []int64 { return []int64{a, c, b} },
			wantSeqs:  []string{"1", "1.00001", "2"},
			rebalance: 1,
		},
		{
			name:      "last position keeps the appended value",
			requested: "3",
			wantOrder: func(a, b, c int64) []int64 { return []int64{a, b, c} },
			wantSeqs:  []string{"1", "2", "3"},
		},
		{
			name:      "explicit decimal is stored verbatim",
			requested: "1.25",
			wantOrder: func(a, b, c int64) []int64 { return []int64{a, c, b} },
			wantSeqs:  []string{"1", "1.25", "2"},
		},
		{
			name:      "position past the end leaves the append",
			requested: "10",
			wantOrder: func(a, b, c int64) []int64 { return []int64{a, b, c} },
			wantSeqs:  []string{"1", "2", "3"},
		},
		{
			name:      "position beyond the integer range leaves the append",
			requested: "10000000000000000000",
			wantOrder: func(a, b, c int64) []int64 { return []int64{a, b, c} },
			wantSeqs:  []string{"1", "2", "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			cat := f.db.Category(t, "shoes")
			a, b, c := f.db.Product(t, "a"), f.db.Product(t, "b"), f.db.Product(t, "c")
			f.link(t, cat.ID, a.ID, "")
			f.link(t, cat.ID, b.ID, "")

			e := f.link(t, cat.ID, c.ID, tt.requested)

			assert.Equal(t, tt.wantOrder(a.ID, b.ID, c.ID), f.db.ProductOrder(t, cat.ID, production))
			assert.Equal(t, tt.wantSeqs, f.db.Sequences(t, cat.ID, production))
			assert.Equal(t, tt.rebalance, f.recorder.rebalanced)

			stored := f.db.Placements(t, cat.ID, production)
			for _, row := range stored {
				if row.ProductID == c.ID {
					assert.Equal(t, row.Sequence.String(), e.Values()["sequence"])
				}
			}
		})
	}
}

func TestAdd_RebalanceSpacesWindow(t *testing.T) {
	f := newFixture(t)
	cat := f.db.Category(t, "shoes")
	a, b := f.db.Product(t, "a"), f.db.Product(t, "b")
	c, d := f.db.Product(t, "c"), f.db.Product(t, "d")
	f.link(t, cat.ID, a.ID, "")
	f.link(t, cat.ID, b.ID, "")

	f.link(t, cat.ID, c.ID, "2")
	f.link(t, cat.ID, d.ID, "2")

	assert.Equal(t, []int64{a.ID, d.ID, c.ID, b.ID}, f.db.ProductOrder(t, cat.ID, production))
	assert.Equal(t, []string{"1", "1.00001", "1.00002", "2"}, f.db.Sequences(t, cat.ID, production))
}

func TestAdd_InvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cat := f.db.Category(t, "shoes")
	p := f.db.Product(t, "a")

	t.Run("missing target id", func(t *testing.T) {
		_, err := f.o.Add(ctx, f.pkg(t, "categoryProducts", production, map[string]string{"category.id": id(cat.ID)}))
		assert.ErrorIs(t, err, shared.ErrFormat)
	})

	t.Run("unknown target row", func(t *testing.T) {
		_, err := f.o.Add(ctx, f.pkg(t, "categoryProducts", production, map[string]string{
			"category.id": id(cat.ID),
			"product.id":  "999",
		}))
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Empty(t, f.db.Placements(t, cat.ID, production))
	})

	t.Run("unparseable position", func(t *testing.T) {
		_, err := f.o.Add(ctx, f.pkg(t, "categoryProducts", production, map[string]string{
			"category.id": id(cat.ID),
			"product.id":  id(p.ID),
			"sequence":    "first",
		}))
		assert.ErrorIs(t, err, shared.ErrFormat)
	})

	t.Run("position below one", func(t *testing.T) {
		other := f.db.Product(t, "b")
		_, err := f.o.Add(ctx, f.pkg(t, "categoryProducts", production, map[string]string{
			"category.id": id(cat.ID),
			"product.id":  id(other.ID),
			"sequence":    "0",
		}))
		assert.ErrorIs(t, err, shared.ErrFormat)
	})

	t.Run("explicit value finer than the sort column", func(t *testing.T) {
		other := f.db.Product(t, "c")
		_, err := f.o.Add(ctx, f.pkg(t, "categoryProducts", production, map[string]string{
			"category.id": id(cat.ID),
			"product.id":  id(other.ID),
			"sequence":    "1.00000000001",
		}))
		assert.ErrorIs(t, err, shared.ErrFormat)
	})
}

func TestAdd_PolymorphicJoinType(t *testing.T) {
	f := newFixture(t)
	cat := f.db.Category(t, "shoes")
	p := f.db.Product(t, "a")

	e, err := f.o.Add(context.Background(), f.pkg(t, "featuredProducts", production, map[string]string{
		"category.id":      id(cat.ID),
		"product.id":       id(p.ID),
		"promotionMessage": "Spring sale",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{models.EntityFeaturedCategoryProduct}, e.Type)
	assert.Equal(t, "Spring sale", e.Values()["promotionMessage"])

	var stored models.FeaturedCategoryProduct
	require.NoError(t, f.db.DB.First(&stored).Error)
	assert.Equal(t, "Spring sale", stored.PromotionMessage)
}

func TestAdd_StringTargetID(t *testing.T) {
	f := newFixture(t)
	p := f.db.Product(t, "a")
	front, back := f.db.Media(t, "front"), f.db.Media(t, "back")

	for _, m := range []*models.Media{front, back} {
		_, err := f.o.Add(context.Background(), f.pkg(t, "productMedia", production, map[string]string{
			"product.id": id(p.ID),
			"media.id":   m.ID,
			"mediaKey":   m.Title,
		}))
		require.NoError(t, err)
	}

	cto := admin.NewCriteriaTransferObject()
	cto.Get("productMedia").SetFilterValue(id(p.ID))
	rs, err := f.o.Fetch(context.Background(), f.pkg(t, "productMedia", production, nil), cto)
	require.NoError(t, err)

	require.Len(t, rs.Records, 2)
	first := rs.Records[0].Values()
	assert.Equal(t, front.ID, first["media.id"])
	assert.Equal(t, "1", first["displayOrder"])
	assert.Equal(t, "front", first["media.title"])
	assert.NotContains(t, first, "media.altText")
}

func TestAdd_Sandbox(t *testing.T) {
	f := newFixture(t)
	cat := f.db.Category(t, "shoes")
	a, b := f.db.Product(t, "a"), f.db.Product(t, "b")
	f.link(t, cat.ID, a.ID, "")

	sandbox := admin.SandboxScope(7)
	_, err := f.o.Add(context.Background(), f.pkg(t, "categoryProducts", sandbox, map[string]string{
		"category.id": id(cat.ID),
		"product.id":  id(b.ID),
	}))
	require.NoError(t, err)

	assert.Equal(t, []int64{a.ID}, f.db.ProductOrder(t, cat.ID, production))
	assert.Equal(t, []int64{b.ID}, f.db.ProductOrder(t, cat.ID, sandbox))
	assert.Equal(t, []string{"1"}, f.db.Sequences(t, cat.ID, sandbox))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("moves a row to the start", func(t *testing.T) {
		f := newFixture(t)
		cat := f.db.Category(t, "shoes")
		a, b, c := f.db.Product(t, "a"), f.db.Product(t, "b"), f.db.Product(t, "c")
		f.link(t, cat.ID, a.ID, "")
		f.link(t, cat.ID, b.ID, "")
		f.link(t, cat.ID, c.ID, "")

		e, err := f.o.Update(ctx, f.pkg(t, "categoryProducts", production, map[string]string{
			"category.id": id(cat.ID),
			"product.id":  id(c.ID),
			"sequence":    "1",
		}))
		require.NoError(t, err)

		assert.Equal(t, "0", e.Values()["sequence"])
		assert.Equal(t, []int64{c.ID, a.ID, b.ID}, f.db.ProductOrder(t, cat.ID, production))
	})

	t.Run("updates payload fields", func(t *testing.T) {
		f := newFixture(t)
		cat := f.db.Category(t, "shoes")
		p := f.db.Product(t, "a")
		_, err := f.o.Add(ctx, f.pkg(t, "featuredProducts", production, map[string]string{
			"category.id":      id(cat.ID),
			"product.id":       id(p.ID),
			"promotionMessage": "old",
		}))
		require.NoError(t, err)

		e, err := f.o.Update(ctx, f.pkg(t, "featuredProducts", production, map[string]string{
			"category.id":      id(cat.ID),
			"product.id":       id(p.ID),
			"promotionMessage": "new",
		}))
		require.NoError(t, err)
		assert.Equal(t, "new", e.Values()["promotionMessage"])
		assert.Equal(t, "1", e.Values()["sequence"])
	})

	t.Run("re-points the linked reference using the original linked id", func(t *testing.T) {
		f := newFixture(t)
		from, to := f.db.Category(t, "shoes"), f.db.Category(t, "boots")
		p := f.db.Product(t, "a")
		f.link(t, from.ID, p.ID, "")

		e, err := f.o.Update(ctx, f.pkg(t, "categoryProducts", production, map[string]string{
			"category.id":                  id(to.ID),
			"product.id":                   id(p.ID),
			admin.OriginalLinkedIDProperty: id(from.ID),
		}))
		require.NoError(t, err)

		assert.Equal(t, id(to.ID), e.Values()["category.id"])
		assert.Empty(t, f.db.Placements(t, from.ID, production))
		assert.Equal(t, []int64{p.ID}, f.db.ProductOrder(t, to.ID, production))
	})

	t.Run("positions among siblings still filed under the original linked id", func(t *testing.T) {
		f := newFixture(t)
		from, to := f.db.Category(t, "shoes"), f.db.Category(t, "boots")
		a, b, c := f.db.Product(t, "a"), f.db.Product(t, "b"), f.db.Product(t, "c")
		f.link(t, from.ID, a.ID, "")
		f.link(t, from.ID, b.ID, "")
		f.link(t, from.ID, c.ID, "")

		e, err := f.o.Update(ctx, f.pkg(t, "categoryProducts", production, map[string]string{
			"category.id":                  id(to.ID),
			"product.id":                   id(c.ID),
			admin.OriginalLinkedIDProperty: id(from.ID),
			"sequence":                     "2",
		}))
		require.NoError(t, err)

		assert.Equal(t, "1.00001", e.Values()["sequence"])
		assert.Equal(t, []string{"1", "2"}, f.db.Sequences(t, from.ID, production))
		assert.Equal(t, []string{"1.00001"}, f.db.Sequences(t, to.ID, production))
		assert.Equal(t, int64(1), f.recorder.rebalanced)
	})

	t.Run("promotion updates archived and deleted sandbox rows", func(t *testing.T) {
		f := newFixture(t)
		cat := f.db.Category(t, "shoes")
		p := f.db.Product(t, "a")
		sandbox := admin.SandboxScope(7)
		archive(t, f, f.db.Place(t, cat.ID, p.ID, "1", sandbox))

		promote := sandbox
		promote.Promote = true
		e, err := f.o.Update(ctx, f.pkg(t, "categoryProducts", promote, map[string]string{
			"category.id": id(cat.ID),
			"product.id":  id(p.ID),
			"sequence":    "1.5",
		}))
		require.NoError(t, err)

		assert.Equal(t, "1.5", e.Values()["sequence"])
		assert.Equal(t, []string{"1.5"}, f.db.Sequences(t, cat.ID, sandbox.IncludingArchived()))
		assert.Empty(t, f.db.Placements(t, cat.ID, sandbox))
	})

	t.Run("archived and deleted sandbox rows are not found without promotion", func(t *testing.T) {
		f := newFixture(t)
		cat := f.db.Category(t, "shoes")
		p := f.db.Product(t, "a")
		sandbox := admin.SandboxScope(7)
		archive(t, f, f.db.Place(t, cat.ID, p.ID, "1", sandbox))

		_, err := f.o.Update(ctx, f.pkg(t, "categoryProducts", sandbox, map[string]string{
			"category.id": id(cat.ID),
			"product.id":  id(p.ID),
			"sequence":    "1.5",
		}))
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, []string{"1"}, f.db.Sequences(t, cat.ID, sandbox.IncludingArchived()))
	})

	t.Run("missing row", func(t *testing.T) {
		f := newFixture(t)
		cat := f.db.Category(t, "shoes")
		p := f.db.Product(t, "a")

		_, err := f.o.Update(ctx, f.pkg(t, "categoryProducts", production, map[string]string{
			"category.id": id(cat.ID),
			"product.id":  id(p.ID),
		}))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

// archive flags a sandbox placement as both archived and deleted
func archive(t *testing.T, f *fixture, row *models.CategoryProduct) {
	t.Helper()
	require.NoError(t, f.db.DB.Model(&models.CategoryProduct{}).Where("id = ?", row.ID).Updates(map[string]any{
		models.SandboxArchivedColumn: true,
		models.SandboxDeletedColumn:  true,
	}).Error)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the join row", func(t *testing.T) {
		f := newFixture(t)
		cat := f.db.Category(t, "shoes")
		a, b := f.db.Product(t, "a"), f.db.Product(t, "b")
		f.link(t, cat.ID, a.ID, "")
		f.link(t, cat.ID, b.ID, "")

		err := f.o.Remove(ctx, f.pkg(t, "categoryProducts", production, map[string]string{
			"category.id": id(cat.ID),
			"product.id":  id(a.ID),
		}))
		require.NoError(t, err)
		assert.Equal(t, []int64{b.ID}, f.db.ProductOrder(t, cat.ID, production))
	})

	t.Run("absent pair is not found and changes nothing", func(t *testing.T) {
		f := newFixture(t)
		cat := f.db.Category(t, "shoes")
		a, b := f.db.Product(t, "a"), f.db.Product(t, "b")
		f.link(t, cat.ID, a.ID, "")

		err := f.o.Remove(ctx, f.pkg(t, "categoryProducts", production, map[string]string{
			"category.id": id(cat.ID),
			"product.id":  id(b.ID),
		}))
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, []string{"1"}, f.db.Sequences(t, cat.ID, production))
	})

	t.Run("matches the original target id", func(t *testing.T) {
		f := newFixture(t)
		cat := f.db.Category(t, "shoes")
		a, b := f.db.Product(t, "a"), f.db.Product(t, "b")
		f.link(t, cat.ID, a.ID, "")

		err := f.o.Remove(ctx, f.pkg(t, "categoryProducts", production, map[string]string{
			"category.id":                  id(cat.ID),
			"product.id":                   id(b.ID),
			admin.OriginalTargetIDProperty: id(a.ID),
		}))
		require.NoError(t, err)
		assert.Empty(t, f.db.Placements(t, cat.ID, production))
	})

	t.Run("sandbox removal flags the row", func(t *testing.T) {
		f := newFixture(t)
		cat := f.db.Category(t, "shoes")
		p := f.db.Product(t, "a")
		sandbox := admin.SandboxScope(7)
		f.db.Place(t, cat.ID, p.ID, "1", sandbox)

		err := f.o.Remove(ctx, f.pkg(t, "categoryProducts", sandbox, map[string]string{
			"category.id": id(cat.ID),
			"product.id":  id(p.ID),
		}))
		require.NoError(t, err)

		assert.Empty(t, f.db.Placements(t, cat.ID, sandbox))
		assert.Len(t, f.db.Placements(t, cat.ID, sandbox.IncludingArchived()), 1)
	})

	t.Run("immutable collection always fails", func(t *testing.T) {
		f := newFixture(t)
		cat := f.db.Category(t, "shoes")
		p := f.db.Product(t, "a")
		f.link(t, cat.ID, p.ID, "")

		for _, productID := range []int64{p.ID, 999} {
			err := f.o.Remove(ctx, f.pkg(t, "productCategories", production, map[string]string{
				"category.id": id(cat.ID),
				"product.id":  id(productID),
			}))
			assert.ErrorIs(t, err, shared.ErrNotMutable)
		}
		assert.Len(t, f.db.Placements(t, cat.ID, production), 1)
	})
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cat, other := f.db.Category(t, "shoes"), f.db.Category(t, "hats")
	a, b, c := f.db.Product(t, "a"), f.db.Product(t, "b"), f.db.Product(t, "c")
	f.link(t, cat.ID, b.ID, "")
	f.link(t, cat.ID, a.ID, "")
	f.link(t, cat.ID, c.ID, "")
	f.link(t, other.ID, a.ID, "")

	pkg := f.pkg(t, "categoryProducts", production, nil)
	linkedTo := func(categoryID int64) *admin.CriteriaTransferObject {
		cto := admin.NewCriteriaTransferObject()
		cto.Get("categoryProducts").SetFilterValue(id(categoryID))
		return cto
	}
	names := func(rs *admin.DynamicResultSet) []string {
		out := make([]string, len(rs.Records))
		for i, r := range rs.Records {
			out[i] = r.Values()["product.name"]
		}
		return out
	}

	t.Run("sorted by the sort field", func(t *testing.T) {
		rs, err := f.o.Fetch(ctx, pkg, linkedTo(cat.ID))
		require.NoError(t, err)
		assert.Equal(t, int64(3), rs.TotalRecords)
		assert.Equal(t, []string{"b", "a", "c"}, names(rs))
	})

	t.Run("paged with the unpaged total", func(t *testing.T) {
		cto := linkedTo(cat.ID)
		cto.FirstResult = 1
		cto.MaxResults = 1
		rs, err := f.o.Fetch(ctx, pkg, cto)
		require.NoError(t, err)
		assert.Equal(t, int64(3), rs.TotalRecords)
		assert.Equal(t, []string{"a"}, names(rs))
	})

	t.Run("ceiling entity filter applies to the target", func(t *testing.T) {
		cto := linkedTo(cat.ID)
		cto.Get("name").SetFilterValues("a", "c")
		rs, err := f.o.Fetch(ctx, pkg, cto)
		require.NoError(t, err)
		assert.Equal(t, int64(2), rs.TotalRecords)
		assert.Equal(t, []string{"a", "c"}, names(rs))
	})

	t.Run("target criteria key filters by target id", func(t *testing.T) {
		cto := linkedTo(cat.ID)
		cto.Get("categoryProductsTarget").SetFilterValue(id(c.ID))
		rs, err := f.o.Fetch(ctx, pkg, cto)
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, names(rs))
	})

	t.Run("inverse view lists the linked categories of a product", func(t *testing.T) {
		cto := admin.NewCriteriaTransferObject()
		cto.Get("productCategories").SetFilterValue(id(a.ID))
		rs, err := f.o.Fetch(ctx, f.pkg(t, "productCategories", production, nil), cto)
		require.NoError(t, err)

		require.Len(t, rs.Records, 2)
		got := []string{rs.Records[0].Values()["category.name"], rs.Records[1].Values()["category.name"]}
		assert.ElementsMatch(t, []string{"shoes", "hats"}, got)
	})

	t.Run("invalid identity value", func(t *testing.T) {
		cto := admin.NewCriteriaTransferObject()
		cto.Get("categoryProducts").SetFilterValue("abc")
		_, err := f.o.Fetch(ctx, pkg, cto)
		assert.ErrorIs(t, err, shared.ErrFormat)
	})
}

func TestMergedProperties(t *testing.T) {
	f := newFixture(t)

	props, err := f.o.MergedProperties(context.Background(), f.pkg(t, "featuredProducts", production, nil))
	require.NoError(t, err)

	assert.Contains(t, props, "sequence")
	assert.Contains(t, props, "category")
	assert.Contains(t, props, "product")
	assert.Contains(t, props, "promotionMessage")
	assert.NotContains(t, props, "id")
}

func TestOrchestrator_RequiresAdornedTargetList(t *testing.T) {
	f := newFixture(t)
	pkg := &admin.PersistencePackage{
		CeilingEntity: models.EntityProduct,
		Perspective:   admin.NewPersistencePerspective(),
		Entity:        &admin.Entity{},
	}

	_, err := f.o.Fetch(context.Background(), pkg, nil)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}
