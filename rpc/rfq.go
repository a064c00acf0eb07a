package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	RFQ_Taker_FullMethodName = "/valorem.trade.v1.RFQ/Taker"
	RFQ_Maker_FullMethodName = "/valorem.trade.v1.RFQ/Maker"
)

// RFQClient opens the two role-specific bidirectional streams. A taker sends
// requests and receives responses; a maker does the reverse.
type RFQClient interface {
	Taker(ctx context.Context, opts ...grpc.CallOption) (RFQ_TakerClient, error)
	Maker(ctx context.Context, opts ...grpc.CallOption) (RFQ_MakerClient, error)
}

type rfqClient struct {
	cc grpc.ClientConnInterface
}

func NewRFQClient(cc grpc.ClientConnInterface) RFQClient {
	return &rfqClient{cc}
}

func (c *rfqClient) Taker(ctx context.Context, opts ...grpc.CallOption) (RFQ_TakerClient, error) {
	stream, err := c.cc.NewStream(ctx, &RFQ_ServiceDesc.Streams[0], RFQ_Taker_FullMethodName, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return &rfqTakerClient{stream}, nil
}

type RFQ_TakerClient interface {
	Send(*QuoteRequest) error
	Recv() (*QuoteResponse, error)
	grpc.ClientStream
}

type rfqTakerClient struct {
	grpc.ClientStream
}

func (x *rfqTakerClient) Send(m *QuoteRequest) error {
	return x.ClientStream.SendMsg(m)
}

func (x *rfqTakerClient) Recv() (*QuoteResponse, error) {
	m := new(QuoteResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *rfqClient) Maker(ctx context.Context, opts ...grpc.CallOption) (RFQ_MakerClient, error) {
	stream, err := c.cc.NewStream(ctx, &RFQ_ServiceDesc.Streams[1], RFQ_Maker_FullMethodName, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return &rfqMakerClient{stream}, nil
}

type RFQ_MakerClient interface {
	Send(*QuoteResponse) error
	Recv() (*QuoteRequest, error)
	grpc.ClientStream
}

type rfqMakerClient struct {
	grpc.ClientStream
}

func (x *rfqMakerClient) Send(m *QuoteResponse) error {
	return x.ClientStream.SendMsg(m)
}

func (x *rfqMakerClient) Recv() (*QuoteRequest, error) {
	m := new(QuoteRequest)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RFQServer is the server API for the RFQ service.
type RFQServer interface {
	Taker(RFQ_TakerServer) error
	Maker(RFQ_MakerServer) error
}

// RegisterRFQServer registers srv on s. The server must be created with ServerOption.
func RegisterRFQServer(s grpc.ServiceRegistrar, srv RFQServer) {
	s.RegisterService(&RFQ_ServiceDesc, srv)
}

func _RFQ_Taker_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(RFQServer).Taker(&rfqTakerServer{stream})
}

type RFQ_TakerServer interface {
	Send(*QuoteResponse) error
	Recv() (*QuoteRequest, error)
	grpc.ServerStream
}

type rfqTakerServer struct {
	grpc.ServerStream
}

func (x *rfqTakerServer) Send(m *QuoteResponse) error {
	return x.ServerStream.SendMsg(m)
}

func (x *rfqTakerServer) Recv() (*QuoteRequest, error) {
	m := new(QuoteRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _RFQ_Maker_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(RFQServer).Maker(&rfqMakerServer{stream})
}

type RFQ_MakerServer interface {
	Send(*QuoteRequest) error
	Recv() (*QuoteResponse, error)
	grpc.ServerStream
}

type rfqMakerServer struct {
	grpc.ServerStream
}

func (x *rfqMakerServer) Send(m *QuoteRequest) error {
	return x.ServerStream.SendMsg(m)
}

func (x *rfqMakerServer) Recv() (*QuoteResponse, error) {
	m := new(QuoteResponse)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RFQ_ServiceDesc is the grpc.ServiceDesc for the RFQ service.
var RFQ_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "valorem.trade.v1.RFQ",
	HandlerType: (*RFQServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Taker",
			Handler:       _RFQ_Taker_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
		{
			StreamName:    "Maker",
			Handler:       _RFQ_Maker_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "valorem/trade/v1/rfq.proto",
}
