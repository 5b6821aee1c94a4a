// Package catalog содержит read-only каталог товаров вместо внешнего контент-сервиса.
// Данные загружаются из YAML-документа с разделами categories и products.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

type document struct {
	Categories []domain.Category `yaml:"categories"`
	Products   []domain.Product  `yaml:"products"`
}

// Catalog хранит неизменяемый набор товаров и категорий.
type Catalog struct {
	categories []domain.Category
	products   []domain.Product
	byID       map[string]int
}

// Default возвращает встроенный демонстрационный каталог.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile читает каталог из YAML-файла.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load читает каталог из потока.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse разбирает YAML-документ каталога.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		categories: doc.Categories,
		products:   make([]domain.Product, 0, len(doc.Products)),
		byID:       make(map[string]int, len(doc.Products)),
	}
	for i, p := range doc.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog product #%d: %w", i, domain.ErrProductIDRequired)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog product %q is duplicated", p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Get возвращает товар по id.
func (c *Catalog) Get(id string) (domain.Product, error) {
	idx, ok := c.byID[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return c.products[idx].Clone(), nil
}

// Query фильтрует товары по категории, префиксу имени и типу.
// Результат упорядочен по имени.
func (c *Catalog) Query(q domain.ProductQuery) ([]domain.Product, error) {
	prefix := strings.ToLower(strings.TrimSpace(q.NamePrefix))

	out := make([]domain.Product, 0)
	for _, p := range c.products {
		if q.Category != "" && !p.HasCategory(q.Category) {
			continue
		}
		if q.Variant != "" && p.Variant != q.Variant {
			continue
		}
		if prefix != "" && !strings.HasPrefix(strings.ToLower(p.Name), prefix) {
			continue
		}
		out = append(out, p.Clone())
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Categories возвращает список категорий в порядке документа.
func (c *Catalog) Categories() ([]domain.Category, error) {
	return append([]domain.Category(nil), c.categories...), nil
}

var _ domain.ProductCatalog = (*Catalog)(nil)
