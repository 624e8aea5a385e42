package classifier

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type classifierService interface {
	handle(method string, req *structpb.Struct) (*structpb.Struct, error)
}

// fakeServer predicts the first feature of each row and records requests.
type fakeServer struct {
	requests  map[string]*structpb.Struct
	shortBy   int
	failTrain bool
}

func (s *fakeServer) handle(method string, req *structpb.Struct) (*structpb.Struct, error) {
	s.requests[method] = req
	switch method {
	case "Train":
		if s.failTrain {
			return nil, status.Error(codes.Internal, "fit failed")
		}
	case "Predict":
		rows := int(req.Fields["rows"].GetNumberValue())
		cols := int(req.Fields["cols"].GetNumberValue())
		features := req.Fields["features"].GetListValue().GetValues()
		var labels []any
		for r := 0; r < rows-s.shortBy; r++ {
			labels = append(labels, features[r*cols].GetNumberValue())
		}
		return structpb.NewStruct(map[string]any{"labels": labels})
	}
	return &structpb.Struct{}, nil
}

func unary(method string) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			req := &structpb.Struct{}
			if err := dec(req); err != nil {
				return nil, err
			}
			return srv.(classifierService).handle(method, req)
		},
	}
}

func startServer(t *testing.T, srv *fakeServer) *GRPCClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*classifierService)(nil),
		Methods:     []grpc.MethodDesc{unary("Train"), unary("Predict"), unary("Save"), unary("Load")},
	}, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	log, _ := test.NewNullLogger()
	client, err := NewGRPCClient("passthrough:///bufnet", 5*time.Second, log,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func table() *raster.FeatureTable {
	return &raster.FeatureTable{
		Rows:    3,
		Cols:    2,
		Columns: []string{"B04", "B08"},
		Values:  []float64{0, 10, 1, 11, 2, 12},
	}
}

func TestGRPCTrain(t *testing.T) {
	srv := &fakeServer{requests: map[string]*structpb.Struct{}}
	client := startServer(t, srv)

	require.NoError(t, client.Train(context.Background(), table(), []uint8{2, 1, 0}))

	req := srv.requests["Train"]
	require.NotNil(t, req)
	assert.Equal(t, 3.0, req.Fields["rows"].GetNumberValue())
	assert.Equal(t, 2.0, req.Fields["cols"].GetNumberValue())
	assert.Equal(t, []any{"B04", "B08"}, req.Fields["columns"].GetListValue().AsSlice())
	assert.Equal(t, []any{0.0, 10.0, 1.0, 11.0, 2.0, 12.0}, req.Fields["features"].GetListValue().AsSlice())
	assert.Equal(t, []any{2.0, 1.0, 0.0}, req.Fields["labels"].GetListValue().AsSlice())
}

func TestGRPCTrainErrors(t *testing.T) {
	srv := &fakeServer{requests: map[string]*structpb.Struct{}, failTrain: true}
	client := startServer(t, srv)

	err := client.Train(context.Background(), table(), []uint8{1})
	assert.ErrorIs(t, err, errkind.ErrConfig)
	assert.Nil(t, srv.requests["Train"], "invalid input is not sent")

	err = client.Train(context.Background(), table(), []uint8{0, 1, 2})
	require.ErrorIs(t, err, errkind.ErrIO)
	assert.Contains(t, err.Error(), "fit failed")
}

func TestGRPCPredict(t *testing.T) {
	srv := &fakeServer{requests: map[string]*structpb.Struct{}}
	client := startServer(t, srv)

	labels, err := client.Predict(context.Background(), table())
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 1, 2}, labels)
	_, sent := srv.requests["Predict"].Fields["labels"]
	assert.False(t, sent)
}

func TestGRPCPredictLengthMismatch(t *testing.T) {
	srv := &fakeServer{requests: map[string]*structpb.Struct{}, shortBy: 1}
	client := startServer(t, srv)

	_, err := client.Predict(context.Background(), table())
	assert.ErrorIs(t, err, errkind.ErrIO)
}

func TestGRPCSaveLoad(t *testing.T) {
	srv := &fakeServer{requests: map[string]*structpb.Struct{}}
	client := startServer(t, srv)

	require.NoError(t, client.Save(context.Background(), "/models/rf.joblib"))
	require.NoError(t, client.Load(context.Background(), "/models/rf.joblib"))
	assert.Equal(t, "/models/rf.joblib", srv.requests["Save"].Fields["path"].GetStringValue())
	assert.Equal(t, "/models/rf.joblib", srv.requests["Load"].Fields["path"].GetStringValue())
}
