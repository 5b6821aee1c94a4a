package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	cartv1 "github.com/vladislavdragonenkov/storefront/proto/cart/v1"
)

type loadMode string

const (
	modeAdd       loadMode = "add"
	modeAddRemove loadMode = "add-remove"
	modeBrowse    loadMode = "browse"
)

const idempotencyHeader = "idempotency-key"

type config struct {
	addr        string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	productID   string
	searchLimit int
	reset       bool
	outputPath  string
	// duplicate повторяет каждую мутацию с тем же idempotency-key.
	duplicate bool
}

func parseConfig() (config, error) {
	var (
		cfg           config
		modeValue     string
		timeoutValue  string
		durationValue string
	)

	flag.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	flag.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	flag.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 1m, 10m)")
	flag.IntVar(&cfg.concurrency, "concurrency", 20, "number of concurrent workers")
	flag.IntVar(&cfg.connections, "connections", 4, "number of gRPC client connections")
	flag.StringVar(&timeoutValue, "timeout", "5s", "per-RPC timeout")
	flag.StringVar(&modeValue, "mode", string(modeAdd), "load mode: add | add-remove | browse")
	flag.StringVar(&cfg.productID, "product", "prod-canvas-tote", "catalog product id used by add scenarios")
	flag.IntVar(&cfg.searchLimit, "search-limit", 10, "limit passed to SearchProducts in browse mode")
	flag.BoolVar(&cfg.reset, "reset", true, "reset the cart before the run")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.BoolVar(&cfg.duplicate, "duplicate", false, "send every mutating call twice with the same idempotency-key")
	flag.Parse()

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode
	cfg.productID = strings.TrimSpace(cfg.productID)

	return cfg, cfg.validate()
}

func (c config) validate() error {
	switch {
	case c.duration < 0:
		return errors.New("duration must be >= 0")
	case c.duration == 0 && c.total <= 0:
		return errors.New("total must be > 0 when duration is not set")
	case c.duration > 0 && c.totalSet && c.total <= 0:
		return errors.New("total must be > 0 when explicitly set with duration")
	case c.concurrency <= 0:
		return errors.New("concurrency must be > 0")
	case c.connections <= 0:
		return errors.New("connections must be > 0")
	case c.timeout <= 0:
		return errors.New("timeout must be > 0")
	case c.mode != modeBrowse && c.productID == "":
		return errors.New("product is required for add scenarios")
	case c.searchLimit < 0:
		return errors.New("search-limit must be >= 0")
	}
	return nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeAdd, modeAddRemove, modeBrowse:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := parseConfig()
	if err != nil {
		log.WithError(err).Fatal("некорректная конфигурация нагрузочного теста")
	}

	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	clients := make([]cartv1.CartServiceClient, 0, cfg.connections)
	for i := 0; i < cfg.connections; i++ {
		conn, dialErr := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			log.WithError(dialErr).Fatal("не удалось создать gRPC-подключение")
		}
		conns = append(conns, conn)
		clients = append(clients, cartv1.NewCartServiceClient(conn))
	}
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()

	result, err := runLoad(context.Background(), clients, cfg)
	if err != nil {
		log.WithError(err).Fatal("нагрузочный тест прерван")
	}

	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			log.WithError(err).Fatal("не удалось записать отчёт")
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// runLoad прогоняет сценарии на пуле воркеров и собирает итоговый отчёт.
func runLoad(ctx context.Context, clients []cartv1.CartServiceClient, cfg config) (report, error) {
	if len(clients) == 0 {
		return report{}, errors.New("no cart clients configured")
	}

	col := newCollector()
	if cfg.reset {
		if err := callResetCart(ctx, clients[0], cfg.timeout, col); err != nil {
			return report{}, fmt.Errorf("reset cart: %w", err)
		}
	}

	startedAt := time.Now()
	jobs := make(chan int, cfg.concurrency*2)
	var (
		failures int64
		wg       sync.WaitGroup
	)

	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		go func(cli cartv1.CartServiceClient) {
			defer wg.Done()
			for id := range jobs {
				if runErr := runScenario(ctx, cli, cfg, id, col); runErr != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}(clients[workerID%len(clients)])
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	result := col.buildReport(startedAt, time.Since(startedAt))
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}

	if cfg.productID != "" {
		quantity, err := callGetItemCount(ctx, clients[0], cfg.timeout, cfg.productID, col)
		if err != nil {
			log.WithError(err).Warn("не удалось получить итоговое количество товара")
		}
		result.FinalQuantity = quantity
	}

	return result, nil
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

func runScenario(ctx context.Context, client cartv1.CartServiceClient, cfg config, index int, col *collector) error {
	scenarioStart := time.Now()
	scenarioCode := codes.OK
	defer func() {
		col.record(scenarioMethod, time.Since(scenarioStart), scenarioCode)
	}()

	var err error
	switch cfg.mode {
	case modeAdd:
		err = callAddItem(ctx, client, cfg, col)
	case modeAddRemove:
		if err = callAddItem(ctx, client, cfg, col); err == nil {
			err = callRemoveItem(ctx, client, cfg, col)
		}
	case modeBrowse:
		if err = callSearchProducts(ctx, client, cfg.timeout, cfg.searchLimit, col); err == nil {
			err = callGetCart(ctx, client, cfg.timeout, col)
		}
	default:
		err = fmt.Errorf("scenario %d: unsupported mode %s", index, cfg.mode)
	}

	if err != nil {
		scenarioCode = grpcCode(err)
		if scenarioCode == codes.Unknown {
			scenarioCode = codes.Internal
		}
	}
	return err
}

// timed выполняет вызов с таймаутом и записывает его длительность и код.
func timed(ctx context.Context, timeout time.Duration, method string, col *collector, call func(context.Context) error) error {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := call(callCtx)
	col.record(method, time.Since(start), grpcCode(err))
	return err
}

// mutate выполняет мутацию; при duplicate вызов повторяется с тем же
// idempotency-key и учитывается как <method>Retry.
func mutate(ctx context.Context, cfg config, method string, col *collector, call func(context.Context) error) error {
	if !cfg.duplicate {
		return timed(ctx, cfg.timeout, method, col, call)
	}

	ctx = metadata.AppendToOutgoingContext(ctx, idempotencyHeader, uuid.NewString())
	if err := timed(ctx, cfg.timeout, method, col, call); err != nil {
		return err
	}
	return timed(ctx, cfg.timeout, method+"Retry", col, call)
}

func callAddItem(ctx context.Context, client cartv1.CartServiceClient, cfg config, col *collector) error {
	productID := cfg.productID
	return mutate(ctx, cfg, "AddItem", col, func(ctx context.Context) error {
		req, err := structpb.NewStruct(map[string]any{"product_id": productID})
		if err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		_, err = client.AddItem(ctx, req)
		return err
	})
}

func callRemoveItem(ctx context.Context, client cartv1.CartServiceClient, cfg config, col *collector) error {
	productID := cfg.productID
	return mutate(ctx, cfg, "RemoveItem", col, func(ctx context.Context) error {
		_, err := client.RemoveItem(ctx, wrapperspb.String(productID))
		return err
	})
}

func callSearchProducts(ctx context.Context, client cartv1.CartServiceClient, timeout time.Duration, limit int, col *collector) error {
	return timed(ctx, timeout, "SearchProducts", col, func(ctx context.Context) error {
		req, err := structpb.NewStruct(map[string]any{"limit": float64(limit)})
		if err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		_, err = client.SearchProducts(ctx, req)
		return err
	})
}

func callGetCart(ctx context.Context, client cartv1.CartServiceClient, timeout time.Duration, col *collector) error {
	return timed(ctx, timeout, "GetCart", col, func(ctx context.Context) error {
		_, err := client.GetCart(ctx, &emptypb.Empty{})
		return err
	})
}

func callResetCart(ctx context.Context, client cartv1.CartServiceClient, timeout time.Duration, col *collector) error {
	return timed(ctx, timeout, "ResetCart", col, func(ctx context.Context) error {
		_, err := client.ResetCart(ctx, &emptypb.Empty{})
		return err
	})
}

func callGetItemCount(ctx context.Context, client cartv1.CartServiceClient, timeout time.Duration, productID string, col *collector) (int64, error) {
	var quantity int64
	err := timed(ctx, timeout, "GetItemCount", col, func(ctx context.Context) error {
		resp, err := client.GetItemCount(ctx, wrapperspb.String(productID))
		if err != nil {
			return err
		}
		quantity = resp.GetValue()
		return nil
	})
	return quantity, err
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- путь задаётся явно флагом -output.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(w io.Writer, result report, cfg config) {
	_, _ = fmt.Fprintln(w, "Cart load test summary")
	_, _ = fmt.Fprintf(w, "mode=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.mode,
		runTarget(cfg),
		result.TotalScenarios,
		result.SuccessScenarios,
		result.FailedScenarios,
		result.ErrorRate,
	)
	_, _ = fmt.Fprintf(w, "duration=%.2fs rps=%.2f final_quantity=%d\n", result.DurationSeconds, result.RPS, result.FinalQuantity)
	_, _ = fmt.Fprintf(w, "scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)

	methodNames := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		if name == scenarioMethod {
			continue
		}
		methodNames = append(methodNames, name)
	}
	sort.Strings(methodNames)
	for _, name := range methodNames {
		stats := result.Methods[name]
		_, _ = fmt.Fprintf(w,
			"%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name,
			stats.Calls,
			stats.Success,
			stats.Failed,
			stats.ErrorRate,
			stats.LatencyMs.P95,
		)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}
