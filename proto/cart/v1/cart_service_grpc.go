// Package cartv1 содержит gRPC-описание сервиса корзины storefront.cart.v1.
// Сервис использует well-known types, поэтому генерация сообщений не требуется.
package cartv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	CartService_AddItem_FullMethodName        = "/storefront.cart.v1.CartService/AddItem"
	CartService_RemoveItem_FullMethodName     = "/storefront.cart.v1.CartService/RemoveItem"
	CartService_DeleteProduct_FullMethodName  = "/storefront.cart.v1.CartService/DeleteProduct"
	CartService_ResetCart_FullMethodName      = "/storefront.cart.v1.CartService/ResetCart"
	CartService_GetCart_FullMethodName        = "/storefront.cart.v1.CartService/GetCart"
	CartService_GetItemCount_FullMethodName   = "/storefront.cart.v1.CartService/GetItemCount"
	CartService_SearchProducts_FullMethodName = "/storefront.cart.v1.CartService/SearchProducts"
	CartService_ListCategories_FullMethodName = "/storefront.cart.v1.CartService/ListCategories"
)

// CartServiceClient — клиентский API сервиса корзины.
type CartServiceClient interface {
	AddItem(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RemoveItem(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	DeleteProduct(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	ResetCart(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetCart(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetItemCount(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.Int64Value, error)
	SearchProducts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListCategories(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type cartServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCartServiceClient(cc grpc.ClientConnInterface) CartServiceClient {
	return &cartServiceClient{cc}
}

func (c *cartServiceClient) invokeStruct(ctx context.Context, method string, in any, opts []grpc.CallOption) (*structpb.Struct, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, cOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cartServiceClient) AddItem(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, CartService_AddItem_FullMethodName, in, opts)
}

func (c *cartServiceClient) RemoveItem(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, CartService_RemoveItem_FullMethodName, in, opts)
}

func (c *cartServiceClient) DeleteProduct(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, CartService_DeleteProduct_FullMethodName, in, opts)
}

func (c *cartServiceClient) ResetCart(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, CartService_ResetCart_FullMethodName, in, opts)
}

func (c *cartServiceClient) GetCart(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, CartService_GetCart_FullMethodName, in, opts)
}

func (c *cartServiceClient) GetItemCount(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.Int64Value, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, CartService_GetItemCount_FullMethodName, in, out, cOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cartServiceClient) SearchProducts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, CartService_SearchProducts_FullMethodName, in, opts)
}

func (c *cartServiceClient) ListCategories(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, CartService_ListCategories_FullMethodName, in, opts)
}

// CartServiceServer — серверный API сервиса корзины.
// Реализации должны встраивать UnimplementedCartServiceServer.
type CartServiceServer interface {
	AddItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveItem(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	DeleteProduct(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ResetCart(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetCart(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetItemCount(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int64Value, error)
	SearchProducts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCategories(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	mustEmbedUnimplementedCartServiceServer()
}

// UnimplementedCartServiceServer возвращает codes.Unimplemented на все методы.
type UnimplementedCartServiceServer struct{}

func (UnimplementedCartServiceServer) AddItem(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method AddItem not implemented")
}
func (UnimplementedCartServiceServer) RemoveItem(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveItem not implemented")
}
func (UnimplementedCartServiceServer) DeleteProduct(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteProduct not implemented")
}
func (UnimplementedCartServiceServer) ResetCart(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ResetCart not implemented")
}
func (UnimplementedCartServiceServer) GetCart(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCart not implemented")
}
func (UnimplementedCartServiceServer) GetItemCount(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	return nil, status.Error(codes.Unimplemented, "method GetItemCount not implemented")
}
func (UnimplementedCartServiceServer) SearchProducts(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SearchProducts not implemented")
}
func (UnimplementedCartServiceServer) ListCategories(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListCategories not implemented")
}
func (UnimplementedCartServiceServer) mustEmbedUnimplementedCartServiceServer() {}

// UnsafeCartServiceServer позволяет отказаться от forward-совместимости.
type UnsafeCartServiceServer interface {
	mustEmbedUnimplementedCartServiceServer()
}

func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&CartService_ServiceDesc, srv)
}

// unaryHandler собирает grpc.MethodHandler для метода с запросом типа Req.
func unaryHandler[Req any, Resp any](
	fullMethod string,
	call func(CartServiceServer, context.Context, *Req) (Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CartServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CartServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	_CartService_AddItem_Handler = unaryHandler(CartService_AddItem_FullMethodName,
		func(s CartServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return s.AddItem(ctx, in)
		})
	_CartService_RemoveItem_Handler = unaryHandler(CartService_RemoveItem_FullMethodName,
		func(s CartServiceServer, ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
			return s.RemoveItem(ctx, in)
		})
	_CartService_DeleteProduct_Handler = unaryHandler(CartService_DeleteProduct_FullMethodName,
		func(s CartServiceServer, ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
			return s.DeleteProduct(ctx, in)
		})
	_CartService_ResetCart_Handler = unaryHandler(CartService_ResetCart_FullMethodName,
		func(s CartServiceServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
			return s.ResetCart(ctx, in)
		})
	_CartService_GetCart_Handler = unaryHandler(CartService_GetCart_FullMethodName,
		func(s CartServiceServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
			return s.GetCart(ctx, in)
		})
	_CartService_GetItemCount_Handler = unaryHandler(CartService_GetItemCount_FullMethodName,
		func(s CartServiceServer, ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
			return s.GetItemCount(ctx, in)
		})
	_CartService_SearchProducts_Handler = unaryHandler(CartService_SearchProducts_FullMethodName,
		func(s CartServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return s.SearchProducts(ctx, in)
		})
	_CartService_ListCategories_Handler = unaryHandler(CartService_ListCategories_FullMethodName,
		func(s CartServiceServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
			return s.ListCategories(ctx, in)
		})
)

// CartService_ServiceDesc — grpc.ServiceDesc сервиса storefront.cart.v1.CartService.
var CartService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "storefront.cart.v1.CartService",
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddItem", Handler: _CartService_AddItem_Handler},
		{MethodName: "RemoveItem", Handler: _CartService_RemoveItem_Handler},
		{MethodName: "DeleteProduct", Handler: _CartService_DeleteProduct_Handler},
		{MethodName: "ResetCart", Handler: _CartService_ResetCart_Handler},
		{MethodName: "GetCart", Handler: _CartService_GetCart_Handler},
		{MethodName: "GetItemCount", Handler: _CartService_GetItemCount_Handler},
		{MethodName: "SearchProducts", Handler: _CartService_SearchProducts_Handler},
		{MethodName: "ListCategories", Handler: _CartService_ListCategories_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "proto/cart/v1/cart_service.proto",
}
