package domain

// Product описывает товар из контент-сервиса. Для корзины это неизменяемое значение.
type Product struct {
	ID          string   `json:"_id" yaml:"id"`
	Name        string   `json:"name,omitempty" yaml:"name"`
	Slug        string   `json:"slug,omitempty" yaml:"slug"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Intro       string   `json:"intro,omitempty" yaml:"intro"`
	Images      []string `json:"images,omitempty" yaml:"images"`
	Categories  []string `json:"categories,omitempty" yaml:"categories"`
	// Variant — тип товара (tshirt, jacket, pants, hoodie...).
	Variant string `json:"variant,omitempty" yaml:"variant"`
	Status  string `json:"status,omitempty" yaml:"status"`
	// Price — базовая цена; отсутствующее значение трактуется как 0.
	Price float64 `json:"price,omitempty" yaml:"price"`
	// Discount — процент скидки, не валидируется.
	Discount float64 `json:"discount,omitempty" yaml:"discount"`
	// Stock — остаток. nil означает, что остаток неизвестен и добавление
	// разрешено; явный 0 запрещает увеличивать количество.
	Stock *int `json:"stock,omitempty" yaml:"stock"`
}

// StockOf возвращает указатель на остаток n.
func StockOf(n int) *int {
	return &n
}

// InStock сообщает, доступен ли товар для добавления в корзину.
// Блокирует только явно заданный нулевой остаток.
func (p Product) InStock() bool {
	return p.Stock == nil || *p.Stock != 0
}

// ListPrice возвращает цену с учётом поля discount: price + discount% от price.
func (p Product) ListPrice() float64 {
	return p.Price + p.Discount*p.Price/100
}

// HasCategory проверяет принадлежность товара категории по slug.
func (p Product) HasCategory(slug string) bool {
	for _, c := range p.Categories {
		if c == slug {
			return true
		}
	}
	return false
}

// Clone возвращает копию товара без общих слайсов.
func (p Product) Clone() Product {
	out := p
	if p.Images != nil {
		out.Images = append([]string(nil), p.Images...)
	}
	if p.Categories != nil {
		out.Categories = append([]string(nil), p.Categories...)
	}
	if p.Stock != nil {
		out.Stock = StockOf(*p.Stock)
	}
	return out
}
