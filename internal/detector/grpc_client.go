package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ashureev/assembly-coach/internal/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// DetectMethod is the unary RPC served by the detector process. The request
// is the encoded frame as a BytesValue; the response is a Struct of the form
// {"detections": [{"class_name": s, "bbox": [x1,y1,x2,y2], "score": f}]}.
const DetectMethod = "/assembly.detector.v1.Detector/Detect"

// Metadata keys sent with every Detect call.
const (
	FrameIndexKey  = "x-frame-index"
	ContentTypeKey = "x-frame-content-type"
)

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
	errMalformedResponse        = errors.New("malformed detector response")
)

// GrpcClient is a Backend talking to the out-of-process detector service.
type GrpcClient struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
	addr   string
	cfg    GrpcClientConfig
	logger *slog.Logger
}

// GrpcClientConfig holds configuration for the gRPC client.
type GrpcClientConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	MaxMessageBytes  int
}

// DefaultGrpcClientConfig returns default configuration.
func DefaultGrpcClientConfig() GrpcClientConfig {
	return GrpcClientConfig{
		Address:          "localhost:50051",
		ConnectTimeout:   5 * time.Second,
		RequestTimeout:   5 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
		MaxMessageBytes:  16 << 20,
	}
}

// NewGrpcClient connects to the detector and waits until the channel is
// ready or cfg.ConnectTimeout elapses.
func NewGrpcClient(cfg GrpcClientConfig, logger *slog.Logger) (*GrpcClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultGrpcClientConfig()
	if cfg.Address == "" {
		cfg.Address = def.Address
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.KeepaliveTime <= 0 {
		cfg.KeepaliveTime = def.KeepaliveTime
	}
	if cfg.KeepaliveTimeout <= 0 {
		cfg.KeepaliveTimeout = def.KeepaliveTimeout
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = def.MaxMessageBytes
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}

	// Build client connection (no network I/O yet).
	conn, err := grpc.NewClient(cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(cfg.MaxMessageBytes)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to detector at %s: %w", cfg.Address, err)
	}

	// Fail fast on a bad detector endpoint.
	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("detector at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("Connected to detector service", "address", cfg.Address)

	return &GrpcClient{
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
		addr:   cfg.Address,
		cfg:    cfg,
		logger: logger,
	}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Close closes the gRPC connection.
func (c *GrpcClient) Close() {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Warn("failed to close gRPC connection", "error", err)
		}
	}
}

// Health checks the standard gRPC health service of the detector.
func (c *GrpcClient) Health(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("detector not serving: %s", resp.GetStatus())
	}
	return nil
}

// Detect runs the model over one frame.
func (c *GrpcClient) Detect(ctx context.Context, frame domain.Frame, frameIndex int) ([]domain.DetectedObject, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	ctx = metadata.AppendToOutgoingContext(ctx,
		FrameIndexKey, strconv.Itoa(frameIndex),
		ContentTypeKey, frame.ContentType,
	)

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, DetectMethod, wrapperspb.Bytes(frame.Data), resp); err != nil {
		c.logger.Warn("Detect failed", "error", err, "frame", frameIndex, "address", c.addr)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	objects, err := decodeDetections(resp, frameIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	c.logger.Debug("Detect completed", "frame", frameIndex, "count", len(objects))
	return objects, nil
}

func decodeDetections(resp *structpb.Struct, frameIndex int) ([]domain.DetectedObject, error) {
	list := resp.GetFields()["detections"].GetListValue()
	if list == nil {
		// A frame with nothing in it may omit the field entirely.
		return nil, nil
	}

	objects := make([]domain.DetectedObject, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		fields := v.GetStructValue().GetFields()
		name := fields["class_name"].GetStringValue()
		if name == "" {
			return nil, fmt.Errorf("%w: detection %d has no class_name", errMalformedResponse, i)
		}
		coords := fields["bbox"].GetListValue().GetValues()
		if len(coords) != 4 {
			return nil, fmt.Errorf("%w: detection %d has %d bbox values", errMalformedResponse, i, len(coords))
		}
		obj := domain.DetectedObject{
			ClassName:  name,
			FrameIndex: frameIndex,
			Score:      fields["score"].GetNumberValue(),
		}
		for k, c := range coords {
			obj.Box[k] = c.GetNumberValue()
		}
		objects = append(objects, obj)
	}
	return objects, nil
}
