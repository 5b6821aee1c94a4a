package grpcsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/money"
	cartv1 "github.com/vladislavdragonenkov/storefront/proto/cart/v1"
)

const (
	opAddItem       = "add_item"
	opRemoveItem    = "remove_item"
	opDeleteProduct = "delete_product"
	opReset         = "reset"

	defaultSearchLimit = 50
)

// CartService реализует gRPC API поверх агрегата корзины.
// Все обращения к cart.Store сериализуются мьютексом.
type CartService struct {
	cartv1.UnimplementedCartServiceServer

	mu        sync.Mutex
	store     *cart.Store
	catalog   domain.ProductCatalog
	publisher domain.CartEventPublisher
	metrics   *metrics.CartMetrics
	cartKey   string
	logger    *log.Entry
	now       func() time.Time
}

// NewCartService конструирует сервис с зависимостями.
// publisher и cartMetrics могут быть nil.
func NewCartService(
	store *cart.Store,
	catalog domain.ProductCatalog,
	publisher domain.CartEventPublisher,
	cartMetrics *metrics.CartMetrics,
	cartKey string,
	logger *log.Entry,
) *CartService {
	if logger == nil {
		logger = log.New().WithField("component", "cart-service")
	}
	if cartKey == "" {
		cartKey = domain.DefaultCartStorageKey
	}
	s := &CartService{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
		metrics:   cartMetrics,
		cartKey:   cartKey,
		logger:    logger,
		now:       time.Now,
	}
	if store != nil {
		cartMetrics.SetCartSize(len(store.GroupedItems()), store.TotalUnits())
	}
	return s
}

// AddItem добавляет единицу товара. Товар передаётся целиком в поле product
// или разрешается через каталог по product_id.
func (s *CartService) AddItem(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	product, err := s.resolveProduct(req)
	if err != nil {
		return nil, err
	}
	if !product.InStock() {
		return nil, status.Errorf(codes.FailedPrecondition, "%s: %s", domain.ErrProductOutOfStock.Error(), product.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutate(opAddItem, func() error { return s.store.AddItem(product) }); err != nil {
		return nil, err
	}
	s.publish(domain.CartEventItemAdded, product.ID, &product)
	return s.cartView()
}

// RemoveItem уменьшает количество товара на 1.
func (s *CartService) RemoveItem(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	productID, err := requireProductID(req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	present := s.store.ItemCount(productID) > 0
	if err := s.mutate(opRemoveItem, func() error { return s.store.RemoveItem(productID) }); err != nil {
		return nil, err
	}
	if present {
		s.publish(domain.CartEventItemRemoved, productID, nil)
	}
	return s.cartView()
}

// DeleteProduct удаляет позицию целиком.
func (s *CartService) DeleteProduct(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	productID, err := requireProductID(req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	present := s.store.ItemCount(productID) > 0
	if err := s.mutate(opDeleteProduct, func() error { return s.store.DeleteCartProduct(productID) }); err != nil {
		return nil, err
	}
	if present {
		s.publish(domain.CartEventProductDeleted, productID, nil)
	}
	return s.cartView()
}

// ResetCart очищает корзину.
func (s *CartService) ResetCart(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutate(opReset, s.store.ResetCart); err != nil {
		return nil, err
	}
	s.publish(domain.CartEventReset, "", nil)
	return s.cartView()
}

// GetCart возвращает позиции и суммы корзины.
func (s *CartService) GetCart(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cartView()
}

// GetItemCount возвращает количество товара в корзине или 0.
func (s *CartService) GetItemCount(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	productID, err := requireProductID(req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return wrapperspb.Int64(int64(s.store.ItemCount(productID))), nil
}

// SearchProducts выполняет выборку из каталога.
func (s *CartService) SearchProducts(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.catalog == nil {
		return nil, status.Error(codes.Unavailable, "product catalog is not configured")
	}

	query := domain.ProductQuery{
		Category:   stringField(req, "category"),
		NamePrefix: stringField(req, "name_prefix"),
		Variant:    stringField(req, "variant"),
		Limit:      int(numberField(req, "limit")),
	}
	if query.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must be >= 0")
	}
	if query.Limit == 0 {
		query.Limit = defaultSearchLimit
	}

	products, err := s.catalog.Query(query)
	if err != nil {
		s.logger.WithError(err).Warn("catalog query failed")
		return nil, status.Error(codes.Internal, "failed to query catalog")
	}

	list := make([]any, 0, len(products))
	for _, p := range products {
		encoded, err := productToMap(p)
		if err != nil {
			return nil, status.Error(codes.Internal, "failed to encode product")
		}
		list = append(list, encoded)
	}
	return newStruct(map[string]any{
		"products": list,
		"count":    len(list),
	})
}

// ListCategories возвращает категории каталога.
func (s *CartService) ListCategories(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	if s.catalog == nil {
		return nil, status.Error(codes.Unavailable, "product catalog is not configured")
	}

	categories, err := s.catalog.Categories()
	if err != nil {
		s.logger.WithError(err).Warn("catalog categories failed")
		return nil, status.Error(codes.Internal, "failed to list categories")
	}

	list := make([]any, 0, len(categories))
	for _, c := range categories {
		list = append(list, map[string]any{"title": c.Title, "slug": c.Slug})
	}
	return newStruct(map[string]any{"categories": list})
}

func (s *CartService) resolveProduct(req *structpb.Struct) (domain.Product, error) {
	if req == nil {
		return domain.Product{}, status.Error(codes.InvalidArgument, "request is required")
	}

	if raw, ok := req.GetFields()["product"]; ok && raw.GetStructValue() != nil {
		product, err := productFromStruct(raw.GetStructValue())
		if err != nil {
			return domain.Product{}, status.Errorf(codes.InvalidArgument, "invalid product: %v", err)
		}
		product.ID = strings.TrimSpace(product.ID)
		if product.ID == "" {
			return domain.Product{}, status.Error(codes.InvalidArgument, domain.ErrProductIDRequired.Error())
		}
		return product, nil
	}

	productID := strings.TrimSpace(stringField(req, "product_id"))
	if productID == "" {
		return domain.Product{}, status.Error(codes.InvalidArgument, domain.ErrProductIDRequired.Error())
	}
	if s.catalog == nil {
		return domain.Product{}, status.Error(codes.Unavailable, "product catalog is not configured")
	}

	product, err := s.catalog.Get(productID)
	if err != nil {
		s.logger.WithError(err).WithField("product_id", productID).Warn("failed to resolve product")
		if domain.IsProductNotFound(err) {
			return domain.Product{}, status.Error(codes.NotFound, domain.ErrProductNotFound.Error())
		}
		return domain.Product{}, status.Error(codes.Internal, "failed to resolve product")
	}
	return product, nil
}

// mutate выполняет операцию агрегата, учитывает метрики и переводит ошибку в gRPC-статус.
func (s *CartService) mutate(op string, fn func() error) error {
	err := fn()
	s.metrics.RecordOperation(op, err)
	if err != nil {
		s.logger.WithError(err).WithField("operation", op).Error("cart operation failed")
		if domain.IsPersistError(err) {
			return status.Error(codes.Internal, "failed to persist cart")
		}
		return status.Error(codes.Internal, "cart operation failed")
	}
	s.metrics.SetCartSize(len(s.store.GroupedItems()), s.store.TotalUnits())
	return nil
}

// publish отправляет событие; ошибка публикации не влияет на ответ клиенту.
// Снимок товара прикладывается только к добавлению.
func (s *CartService) publish(eventType domain.CartEventType, productID string, product *domain.Product) {
	if s.publisher == nil {
		return
	}

	event := domain.CartEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		CartKey:    s.cartKey,
		ProductID:  productID,
		TotalUnits: s.store.TotalUnits(),
		OccurredAt: s.now().UTC(),
	}
	if productID != "" {
		event.Quantity = s.store.ItemCount(productID)
	}
	if product != nil {
		snapshot := product.Clone()
		event.Product = &snapshot
	}

	err := s.publisher.Publish(event)
	s.metrics.RecordEventPublished(err)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"product_id": productID,
		}).Warn("failed to publish cart event")
	}
}

// cartView собирает представление корзины. Вызывается под s.mu.
func (s *CartService) cartView() (*structpb.Struct, error) {
	items := s.store.GroupedItems()

	list := make([]any, 0, len(items))
	for _, item := range items {
		product, err := productToMap(item.Product)
		if err != nil {
			s.logger.WithError(err).WithField("product_id", item.Product.ID).Error("failed to encode cart item")
			return nil, status.Error(codes.Internal, "failed to encode cart")
		}
		list = append(list, map[string]any{
			"product":    product,
			"quantity":   item.Quantity,
			"line_total": money.RoundCents(item.LineTotal()),
			"list_price": money.RoundCents(item.Product.ListPrice()),
		})
	}

	total := money.RoundCents(s.store.TotalPrice())
	subtotal := money.RoundCents(s.store.SubTotalPrice())
	return newStruct(map[string]any{
		"items":                  list,
		"total_price":            total,
		"subtotal_price":         subtotal,
		"total_price_display":    money.FormatUSD(total),
		"subtotal_price_display": money.FormatUSD(subtotal),
		"distinct_items":         len(items),
		"total_units":            s.store.TotalUnits(),
	})
}

func requireProductID(req *wrapperspb.StringValue) (string, error) {
	productID := strings.TrimSpace(req.GetValue())
	if productID == "" {
		return "", status.Error(codes.InvalidArgument, domain.ErrProductIDRequired.Error())
	}
	return productID, nil
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// productToMap кодирует товар в JSON-представление (с полем _id).
func productToMap(p domain.Product) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal product: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return out, nil
}

// productFromStruct разбирает товар из Struct; допускается как _id, так и id.
func productFromStruct(in *structpb.Struct) (domain.Product, error) {
	raw, err := in.MarshalJSON()
	if err != nil {
		return domain.Product{}, fmt.Errorf("marshal struct: %w", err)
	}
	var product domain.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return domain.Product{}, err
	}
	if product.ID == "" {
		product.ID = stringField(in, "id")
	}
	return product, nil
}

func stringField(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

func numberField(in *structpb.Struct, key string) float64 {
	return in.GetFields()[key].GetNumberValue()
}
