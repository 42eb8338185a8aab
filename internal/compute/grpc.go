package compute

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/m3rciful/supportbot/core/logger"
)

const (
	DefaultService = "ai_service.AiGenerationService"
	DefaultMethod  = "GenerateText"
)

// Wire messages of the generation service, built at init from a static descriptor.
var (
	requestDesc  protoreflect.MessageDescriptor
	responseDesc protoreflect.MessageDescriptor
)

func init() {
	fd, err := protodesc.NewFile(serviceFile(), new(protoregistry.Files))
	if err != nil {
		panic(fmt.Sprintf("compute: build descriptor: %v", err))
	}
	requestDesc = fd.Messages().ByName("TextGenerationRequest")
	responseDesc = fd.Messages().ByName("TextGenerationResponse")
}

func serviceFile() *descriptorpb.FileDescriptorProto {
	field := func(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:   proto.String(name),
			Number: proto.Int32(num),
			Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			Type:   typ.Enum(),
		}
	}
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("ai_service.proto"),
		Package: proto.String("ai_service"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("TextGenerationRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("system_prompt", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					field("user_prompt", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					field("temperature", 3, descriptorpb.FieldDescriptorProto_TYPE_FLOAT),
					field("top_p", 4, descriptorpb.FieldDescriptorProto_TYPE_FLOAT),
				},
			},
			{
				Name: proto.String("TextGenerationResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("generated_text", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("AiGenerationService"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:       proto.String("GenerateText"),
				InputType:  proto.String(".ai_service.TextGenerationRequest"),
				OutputType: proto.String(".ai_service.TextGenerationResponse"),
			}},
		}},
	}
}

// GRPC calls the unary generation method over a client connection.
type GRPC struct {
	conn   grpc.ClientConnInterface
	method string
	closer func() error
}

// NewGRPC uses an existing connection. service and method default to the
// generation service names.
func NewGRPC(conn grpc.ClientConnInterface, service, method string) *GRPC {
	if strings.TrimSpace(service) == "" {
		service = DefaultService
	}
	if strings.TrimSpace(method) == "" {
		method = DefaultMethod
	}
	return &GRPC{conn: conn, method: "/" + service + "/" + method}
}

// DialGRPC opens a plaintext connection to addr. Close releases it.
func DialGRPC(addr, service, method string, opts ...grpc.DialOption) (*GRPC, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("compute: dial %s: %w", addr, err)
	}
	g := NewGRPC(conn, service, method)
	g.closer = conn.Close
	return g, nil
}

// Generate sends p and returns the generated text.
func (g *GRPC) Generate(ctx context.Context, p Prompt) (string, error) {
	req := dynamicpb.NewMessage(requestDesc)
	fields := requestDesc.Fields()
	req.Set(fields.ByName("system_prompt"), protoreflect.ValueOfString(p.System))
	req.Set(fields.ByName("user_prompt"), protoreflect.ValueOfString(p.User))
	req.Set(fields.ByName("temperature"), protoreflect.ValueOfFloat32(p.Temperature))
	req.Set(fields.ByName("top_p"), protoreflect.ValueOfFloat32(p.TopP))

	resp := dynamicpb.NewMessage(responseDesc)
	start := time.Now()
	if err := g.conn.Invoke(ctx, g.method, req, resp); err != nil {
		mapped := fromStatus(err)
		logger.Warn(ctx, logger.CompCompute, "generate",
			slog.String("status", "fail"),
			slog.String("target", g.method),
			slog.Duration("duration", logger.Took(start)),
			logger.Err(mapped),
		)
		return "", mapped
	}
	text := resp.Get(responseDesc.Fields().ByName("generated_text")).String()
	logger.Debug(ctx, logger.CompCompute, "generate",
		slog.String("status", "ok"),
		slog.String("target", g.method),
		slog.Duration("duration", logger.Took(start)),
	)
	return text, nil
}

// Close releases a connection opened by DialGRPC.
func (g *GRPC) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	default:
		return &Error{Status: st.Code().String(), Message: st.Message()}
	}
}
