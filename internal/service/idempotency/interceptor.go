package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	// MetadataKey задаёт заголовок gRPC с ключом идемпотентности.
	MetadataKey  = "idempotency-key"
	maxKeyLength = 128
)

// Interceptor повторно отдаёт результат мутации, если клиент прислал уже
// использованный idempotency-key. Запросы без ключа проходят без изменений.
type Interceptor struct {
	repo    domain.IdempotencyRepository
	methods map[string]struct{}
	ttl     time.Duration
	logger  *log.Entry
	metrics *metrics.IdempotencyMetrics
	now     func() time.Time
}

// NewInterceptor создаёт интерсептор для перечисленных полных имён методов.
func NewInterceptor(repo domain.IdempotencyRepository, methods []string, options ...Option) *Interceptor {
	opts := buildOptions("idempotency-interceptor", options)

	set := make(map[string]struct{}, len(methods))
	for _, method := range methods {
		set[method] = struct{}{}
	}

	return &Interceptor{
		repo:    repo,
		methods: set,
		ttl:     opts.TTL,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Unary возвращает grpc.UnaryServerInterceptor.
func (i *Interceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if i.repo == nil {
			return handler(ctx, req)
		}
		if _, ok := i.methods[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		key, err := readKey(ctx)
		if err != nil {
			return nil, err
		}
		msg, ok := req.(proto.Message)
		if key == "" || !ok {
			return handler(ctx, req)
		}

		hash, err := requestHash(info.FullMethod, msg)
		if err != nil {
			i.logger.WithError(err).WithField("method", info.FullMethod).Warn("failed to build idempotency request hash")
			return nil, status.Error(codes.Internal, "failed to initialize idempotency request")
		}

		record, err := i.repo.CreateProcessing(key, hash, i.now().Add(i.ttl))
		if err != nil {
			return i.replay(err, record)
		}
		i.metrics.RecordRequest(metrics.IdempotencyOutcomeFresh)

		resp, runErr := handler(ctx, req)
		if runErr != nil {
			i.storeFailure(key, runErr)
			return resp, runErr
		}
		i.storeSuccess(key, resp)
		return resp, nil
	}
}

func (i *Interceptor) replay(createErr error, record domain.IdempotencyRecord) (any, error) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		i.metrics.RecordRequest(metrics.IdempotencyOutcomeConflict)
		return nil, status.Error(codes.AlreadyExists, "idempotency key is already used with different request payload")
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
	default:
		i.logger.WithError(createErr).Warn("failed to create idempotency record")
		return nil, status.Error(codes.Internal, "failed to initialize idempotency request")
	}

	switch record.Status {
	case domain.IdempotencyStatusDone:
		resp, err := decodeResponse(record.Response)
		if err != nil {
			i.logger.WithError(err).WithField("idempotency_key", record.Key).Warn("failed to decode cached idempotency response")
			return nil, status.Error(codes.Internal, "failed to decode cached idempotency response")
		}
		i.metrics.RecordRequest(metrics.IdempotencyOutcomeReplayed)
		return resp, nil
	case domain.IdempotencyStatusFailed:
		i.metrics.RecordRequest(metrics.IdempotencyOutcomeReplayed)
		return nil, decodeFailure(record)
	case domain.IdempotencyStatusProcessing:
		i.metrics.RecordRequest(metrics.IdempotencyOutcomeInFlight)
		return nil, status.Error(codes.Aborted, "request with the same idempotency key is already processing")
	default:
		return nil, status.Error(codes.Internal, "unknown idempotency record status")
	}
}

func (i *Interceptor) storeSuccess(key string, resp any) {
	var data []byte
	if msg, ok := resp.(proto.Message); ok && msg != nil {
		packed, err := anypb.New(msg)
		if err == nil {
			data, err = proto.Marshal(packed)
		}
		if err != nil {
			i.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to encode idempotent response")
			i.release(key)
			return
		}
	}

	if err := i.repo.MarkDone(key, data); err != nil {
		i.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotent success response")
	}
}

// storeFailure запоминает окончательные ошибки; после временных ключ
// освобождается, чтобы клиент мог повторить запрос.
func (i *Interceptor) storeFailure(key string, runErr error) {
	st := status.Convert(runErr)
	if retryable(st.Code()) {
		i.release(key)
		return
	}

	if err := i.repo.MarkFailed(key, []byte(st.Message()), uint32(st.Code())); err != nil {
		i.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotency failure response")
	}
}

func (i *Interceptor) release(key string) {
	if err := i.repo.Delete(key); err != nil && !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		i.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to release idempotency key")
	}
}

func retryable(code codes.Code) bool {
	switch code {
	case codes.Unknown, codes.Internal, codes.Unavailable, codes.Aborted,
		codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func decodeResponse(data []byte) (proto.Message, error) {
	if len(data) == 0 {
		return nil, errors.New("idempotency cache is empty")
	}
	var packed anypb.Any
	if err := proto.Unmarshal(data, &packed); err != nil {
		return nil, err
	}
	return packed.UnmarshalNew()
}

func decodeFailure(record domain.IdempotencyRecord) error {
	code := codes.Code(record.Code)
	if code == codes.OK || code > codes.Unauthenticated {
		code = codes.Internal
	}
	message := string(record.Response)
	if message == "" {
		message = "previous request with the same idempotency key failed"
	}
	return status.Error(code, message)
}

func readKey(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}
	for _, value := range md.Get(MetadataKey) {
		key := strings.TrimSpace(value)
		if key == "" {
			continue
		}
		if len(key) > maxKeyLength {
			return "", status.Errorf(codes.InvalidArgument, "idempotency-key must be at most %d characters", maxKeyLength)
		}
		return key, nil
	}
	return "", nil
}

func requestHash(method string, req proto.Message) (string, error) {
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	payload := make([]byte, 0, len(method)+1+len(data))
	payload = append(payload, method...)
	payload = append(payload, ':')
	payload = append(payload, data...)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
