package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/storefront/internal/service/grpc"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	cartv1 "github.com/vladislavdragonenkov/storefront/proto/cart/v1"
)

func withCLIArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"loadtest"}, args...)
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flag.CommandLine = fs

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

// startCartServer поднимает настоящий CartService поверх bufconn.
func startCartServer(t *testing.T) cartv1.CartServiceClient {
	t.Helper()

	logger := log.New()
	logger.SetOutput(io.Discard)
	entry := log.NewEntry(logger)

	cartMetrics := metrics.NewCartMetricsWithRegisterer(prometheus.NewRegistry())
	store, err := cart.Open(memory.NewCartRepository(""), entry)
	require.NoError(t, err)
	products, err := catalog.Default()
	require.NoError(t, err)

	listener := bufconn.Listen(1024 * 1024)
	interceptor := idempotency.NewInterceptor(
		memory.NewIdempotencyRepository(),
		[]string{cartv1.CartService_AddItem_FullMethodName, cartv1.CartService_RemoveItem_FullMethodName},
		idempotency.WithLogger(entry),
		idempotency.WithMetrics(metrics.NewIdempotencyMetricsWithRegisterer(prometheus.NewRegistry())),
	)
	server := grpc.NewServer(grpc.UnaryInterceptor(interceptor.Unary()))
	cartv1.RegisterCartServiceServer(server, grpcsvc.NewCartService(store, products, nil, cartMetrics, "", entry))
	go func() {
		_ = server.Serve(listener)
	}()

	dialer := func(context.Context, string) (net.Conn, error) {
		return listener.Dial()
	}
	//nolint:staticcheck // grpc.Dial is required for bufconn testing
	conn, err := grpc.Dial("bufnet", grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
	})
	return cartv1.NewCartServiceClient(conn)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    loadMode
		wantErr string
	}{
		{name: "add", input: "add", want: modeAdd},
		{name: "add-remove", input: " add-remove ", want: modeAddRemove},
		{name: "browse", input: "browse", want: modeBrowse},
		{name: "unsupported", input: "checkout", wantErr: "unsupported mode"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseMode(tc.input)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected mode: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestParseConfig(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		withCLIArgs(t, []string{
			"-addr=127.0.0.1:50051",
			"-mode=add-remove",
			"-total=12",
			"-concurrency=3",
			"-connections=2",
			"-timeout=2s",
			"-product= prod-classic-tee ",
			"-reset=false",
			"-output=report.json",
			"-duplicate",
		}, func() {
			cfg, err := parseConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !cfg.totalSet {
				t.Fatalf("expected totalSet=true")
			}
			if cfg.mode != modeAddRemove {
				t.Fatalf("unexpected mode: %s", cfg.mode)
			}
			if cfg.total != 12 || cfg.concurrency != 3 || cfg.connections != 2 {
				t.Fatalf("unexpected numeric config: %+v", cfg)
			}
			if cfg.timeout != 2*time.Second {
				t.Fatalf("unexpected timeout: %s", cfg.timeout)
			}
			if cfg.productID != "prod-classic-tee" {
				t.Fatalf("expected trimmed product id, got %q", cfg.productID)
			}
			if cfg.reset {
				t.Fatalf("expected reset=false")
			}
			if !cfg.duplicate {
				t.Fatalf("expected duplicate=true")
			}
		})
	})

	t.Run("duration mode", func(t *testing.T) {
		withCLIArgs(t, []string{"-duration=3s", "-mode=browse"}, func() {
			cfg, err := parseConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.duration != 3*time.Second {
				t.Fatalf("unexpected duration: %s", cfg.duration)
			}
			if cfg.totalSet {
				t.Fatalf("expected totalSet=false when -total was not provided")
			}
		})
	})

	t.Run("validation errors", func(t *testing.T) {
		tests := []struct {
			name    string
			args    []string
			wantErr string
		}{
			{name: "invalid duration", args: []string{"-duration=bad"}, wantErr: "parse duration"},
			{name: "invalid timeout", args: []string{"-timeout=soon"}, wantErr: "parse timeout"},
			{name: "negative duration", args: []string{"-duration=-1s"}, wantErr: "duration must be >= 0"},
			{name: "empty total", args: []string{"-duration=0s", "-total=0"}, wantErr: "total must be > 0"},
			{name: "no workers", args: []string{"-concurrency=0"}, wantErr: "concurrency must be > 0"},
			{name: "empty product", args: []string{"-product= "}, wantErr: "product is required"},
			{name: "negative limit", args: []string{"-mode=browse", "-search-limit=-1"}, wantErr: "search-limit"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				withCLIArgs(t, tc.args, func() {
					_, err := parseConfig()
					if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
						t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
					}
				})
			})
		}
	})
}

func TestDispatchJobs(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{total: 5})

		var got []int
		for v := range jobs {
			got = append(got, v)
		}
		if !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
			t.Fatalf("unexpected jobs sequence: %v", got)
		}
	})

	t.Run("duration with explicit max total", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{duration: time.Second, total: 3, totalSet: true})
		count := 0
		for range jobs {
			count++
		}
		if count != 3 {
			t.Fatalf("expected 3 jobs, got %d", count)
		}
	})
}

func TestRunLoad_AddMode(t *testing.T) {
	client := startCartServer(t)

	cfg := config{
		total:       30,
		concurrency: 5,
		connections: 1,
		timeout:     2 * time.Second,
		mode:        modeAdd,
		productID:   "prod-canvas-tote",
		reset:       true,
	}
	result, err := runLoad(context.Background(), []cartv1.CartServiceClient{client}, cfg)
	require.NoError(t, err)

	require.EqualValues(t, 30, result.TotalScenarios)
	require.Zero(t, result.FailedScenarios)
	require.EqualValues(t, 30, result.FinalQuantity)
	require.EqualValues(t, 30, result.Methods["AddItem"].Success)
	require.EqualValues(t, 1, result.Methods["ResetCart"].Calls)
}

func TestRunLoad_DuplicateCallsAreReplayed(t *testing.T) {
	client := startCartServer(t)

	cfg := config{
		total:       20,
		concurrency: 4,
		connections: 1,
		timeout:     2 * time.Second,
		mode:        modeAdd,
		productID:   "prod-canvas-tote",
		reset:       true,
		duplicate:   true,
	}
	result, err := runLoad(context.Background(), []cartv1.CartServiceClient{client}, cfg)
	require.NoError(t, err)

	require.Zero(t, result.FailedScenarios)
	require.EqualValues(t, 20, result.Methods["AddItem"].Success)
	require.EqualValues(t, 20, result.Methods["AddItemRetry"].Success)
	require.EqualValues(t, 20, result.FinalQuantity)
}

func TestRunLoad_AddRemoveLeavesCartEmpty(t *testing.T) {
	client := startCartServer(t)

	cfg := config{
		total:       20,
		concurrency: 4,
		connections: 1,
		timeout:     2 * time.Second,
		mode:        modeAddRemove,
		productID:   "prod-classic-tee",
	}
	result, err := runLoad(context.Background(), []cartv1.CartServiceClient{client}, cfg)
	require.NoError(t, err)

	require.Zero(t, result.FailedScenarios)
	require.Zero(t, result.FinalQuantity)
	require.EqualValues(t, 20, result.Methods["RemoveItem"].Success)
}

func TestRunLoad_FailuresAreCounted(t *testing.T) {
	client := startCartServer(t)

	cfg := config{
		total:       4,
		concurrency: 2,
		connections: 1,
		timeout:     2 * time.Second,
		mode:        modeAdd,
		productID:   "prod-puffer-jacket",
	}
	result, err := runLoad(context.Background(), []cartv1.CartServiceClient{client}, cfg)
	require.NoError(t, err)

	require.EqualValues(t, 4, result.FailedScenarios)
	require.Equal(t, 1.0, result.ErrorRate)
	require.EqualValues(t, 4, result.Methods["AddItem"].Codes["FailedPrecondition"])
}

func TestRunLoad_BrowseMode(t *testing.T) {
	client := startCartServer(t)

	cfg := config{
		total:       6,
		concurrency: 2,
		connections: 1,
		timeout:     2 * time.Second,
		mode:        modeBrowse,
		searchLimit: 3,
	}
	result, err := runLoad(context.Background(), []cartv1.CartServiceClient{client}, cfg)
	require.NoError(t, err)

	require.Zero(t, result.FailedScenarios)
	require.EqualValues(t, 6, result.Methods["SearchProducts"].Calls)
	require.EqualValues(t, 6, result.Methods["GetCart"].Calls)
	_, ok := result.Methods["GetItemCount"]
	require.False(t, ok)
}

func TestRunLoad_RequiresClients(t *testing.T) {
	_, err := runLoad(context.Background(), nil, config{total: 1, concurrency: 1})
	require.Error(t, err)
}

func TestWriteJSONReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	sample := report{TotalScenarios: 2, SuccessScenarios: 2, FinalQuantity: 5}
	require.NoError(t, writeJSONReport(path, sample))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded report
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.EqualValues(t, 2, decoded.TotalScenarios)
	require.EqualValues(t, 5, decoded.FinalQuantity)

	require.Error(t, writeJSONReport("../escape.json", sample))
	require.Error(t, writeJSONReport(".", sample))
}

func TestPrintReport(t *testing.T) {
	c := newCollector()
	c.record(scenarioMethod, 5*time.Millisecond, 0)
	c.record("AddItem", 4*time.Millisecond, 0)
	result := c.buildReport(time.Now(), time.Second)
	result.FinalQuantity = 1

	var buf bytes.Buffer
	printReport(&buf, result, config{mode: modeAdd, total: 1})

	out := buf.String()
	require.Contains(t, out, "Cart load test summary")
	require.Contains(t, out, "mode=add run=count:1 total=1 success=1 failed=0")
	require.Contains(t, out, "final_quantity=1")
	require.Contains(t, out, "AddItem: calls=1")
	require.NotContains(t, out, "scenario: calls")
}

func TestRunTarget(t *testing.T) {
	require.Equal(t, "count:50", runTarget(config{total: 50}))
	require.Equal(t, "duration:2s", runTarget(config{duration: 2 * time.Second}))
	require.Equal(t, "duration:2s,max-total:10", runTarget(config{duration: 2 * time.Second, total: 10, totalSet: true}))
}
