package classifier

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the gRPC service implemented by the model server. Every
// method takes and returns a google.protobuf.Struct.
const ServiceName = "landcover.v1.ClassifierService"

const (
	DefaultTimeout = 15 * time.Minute
	maxMessageSize = 64 * 1024 * 1024
)

// GRPCClient is a Model served by a remote process.
type GRPCClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewGRPCClient connects to the model server at addr. Extra dial options are
// appended to the defaults (insecure transport, 64 MiB messages).
func NewGRPCClient(addr string, timeout time.Duration, log logrus.FieldLogger, opts ...grpc.DialOption) (*GRPCClient, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dial := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMessageSize),
			grpc.MaxCallSendMsgSize(maxMessageSize),
		),
	}, opts...)

	conn, err := grpc.NewClient(addr, dial...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to classifier at %s: %v", errkind.ErrIO, addr, err)
	}
	return &GRPCClient{
		conn:    conn,
		timeout: timeout,
		log:     log.WithFields(logrus.Fields{"component": "classifier", "addr": addr}),
	}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) Train(ctx context.Context, table *raster.FeatureTable, labels []uint8) error {
	if len(labels) != table.Rows {
		return fmt.Errorf("%w: %d labels for %d samples", errkind.ErrConfig, len(labels), table.Rows)
	}
	req := tableStruct(table)
	req.Fields["labels"] = labelList(labels)

	if _, err := c.invoke(ctx, "Train", req); err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{"samples": table.Rows, "features": table.Cols}).Info("model trained")
	return nil
}

func (c *GRPCClient) Predict(ctx context.Context, table *raster.FeatureTable) ([]uint8, error) {
	resp, err := c.invoke(ctx, "Predict", tableStruct(table))
	if err != nil {
		return nil, err
	}

	values := resp.GetFields()["labels"].GetListValue().GetValues()
	if len(values) != table.Rows {
		return nil, fmt.Errorf("%w: classifier returned %d labels for %d samples", errkind.ErrIO, len(values), table.Rows)
	}
	labels := make([]uint8, len(values))
	for i, v := range values {
		n := v.GetNumberValue()
		if n < 0 || n > math.MaxUint8 || n != math.Trunc(n) {
			return nil, fmt.Errorf("%w: classifier returned invalid label %v at sample %d", errkind.ErrIO, n, i)
		}
		labels[i] = uint8(n)
	}
	return labels, nil
}

func (c *GRPCClient) Save(ctx context.Context, path string) error {
	_, err := c.invoke(ctx, "Save", pathStruct(path))
	return err
}

func (c *GRPCClient) Load(ctx context.Context, path string) error {
	_, err := c.invoke(ctx, "Load", pathStruct(path))
	return err
}

func (c *GRPCClient) invoke(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp); err != nil {
		return nil, fmt.Errorf("%w: error calling %s: %v", errkind.ErrIO, method, err)
	}
	c.log.WithFields(logrus.Fields{"method": method, "elapsed": time.Since(start)}).Debug("classifier call done")
	return resp, nil
}

func tableStruct(t *raster.FeatureTable) *structpb.Struct {
	columns := make([]*structpb.Value, len(t.Columns))
	for i, name := range t.Columns {
		columns[i] = structpb.NewStringValue(name)
	}
	features := make([]*structpb.Value, len(t.Values))
	for i, v := range t.Values {
		features[i] = structpb.NewNumberValue(v)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"rows":     structpb.NewNumberValue(float64(t.Rows)),
		"cols":     structpb.NewNumberValue(float64(t.Cols)),
		"columns":  structpb.NewListValue(&structpb.ListValue{Values: columns}),
		"features": structpb.NewListValue(&structpb.ListValue{Values: features}),
	}}
}

func labelList(labels []uint8) *structpb.Value {
	values := make([]*structpb.Value, len(labels))
	for i, l := range labels {
		values[i] = structpb.NewNumberValue(float64(l))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values})
}

func pathStruct(path string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"path": structpb.NewStringValue(path)}}
}
