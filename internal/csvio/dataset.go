package csvio

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/shopclean/internal/core"
)

// Paths locates the three tables of one dataset.
type Paths struct {
	Customers string
	Products  string
	Orders    string
}

// LoadDataset reads the three sources concurrently. The first failing source
// cancels the others and its error is returned.
func LoadDataset(ctx context.Context, paths Paths) (core.Dataset, error) {
	var ds core.Dataset

	g, gctx := errgroup.WithContext(ctx)
	load := func(path, key string, dst *[]core.RawRow) {
		g.Go(func() error {
			if path == "" {
				return fmt.Errorf("%s: no file provided", key)
			}
			t, err := ReadFile(gctx, path, key)
			if err != nil {
				return err
			}
			*dst = t.Rows
			return nil
		})
	}
	load(paths.Customers, core.TableCustomers, &ds.Customers)
	load(paths.Products, core.TableProducts, &ds.Products)
	load(paths.Orders, core.TableOrders, &ds.Orders)

	if err := g.Wait(); err != nil {
		return core.Dataset{}, err
	}
	return ds, nil
}

// WriteResult writes the cleaned tables of res to paths.
func WriteResult(res *core.Result, paths Paths) error {
	outputs := []struct {
		path string
		key  string
		rows []core.RawRow
	}{
		{paths.Customers, core.TableCustomers, CustomerRows(res.Customers)},
		{paths.Products, core.TableProducts, ProductRows(res.Products)},
		{paths.Orders, core.TableOrders, OrderRows(res.Orders)},
	}

	for _, out := range outputs {
		if out.path == "" {
			return fmt.Errorf("%s: no output path", out.key)
		}
		if err := WriteFile(out.path, out.key, out.rows); err != nil {
			return err
		}
	}
	return nil
}

// LoadReference reads cleaned customers and products and builds the
// reference the order reconciler checks against. The tables are cleaned
// again, which leaves already clean input unchanged.
func LoadReference(ctx context.Context, customersPath, productsPath, region string) (core.Reference, error) {
	var customers, products []core.RawRow

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := ReadFile(gctx, customersPath, core.TableCustomers)
		if err != nil {
			return err
		}
		customers = t.Rows
		return nil
	})
	g.Go(func() error {
		t, err := ReadFile(gctx, productsPath, core.TableProducts)
		if err != nil {
			return err
		}
		products = t.Rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Reference{}, err
	}

	c, _ := core.CleanCustomers(customers, region)
	p, _ := core.CleanProducts(products)
	return core.NewReference(c, p), nil
}
