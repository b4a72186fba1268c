package speedtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/showwin/speedtest-go/speedtest"
	"go.uber.org/zap"

	"speed-monitor/internal/models"
)

// errNoThroughput marks a transfer step that finished without measuring any data.
// The library reports dead transfers through the rate instead of an error.
var errNoThroughput = errors.New("no throughput measured")

// Measurer runs speedtest.net measurements
type Measurer struct {
	serverIDs   []int
	timeout     time.Duration
	captureTime time.Duration
	clientOpts  []speedtest.Option
	logger      *zap.Logger
}

// Option configures a Measurer
type Option func(*Measurer)

// WithClientOptions passes options to every speedtest client the Measurer creates
func WithClientOptions(opts ...speedtest.Option) Option {
	return func(m *Measurer) {
		m.clientOpts = append(m.clientOpts, opts...)
	}
}

// WithCaptureTime limits how long each transfer direction is sampled
func WithCaptureTime(d time.Duration) Option {
	return func(m *Measurer) {
		m.captureTime = d
	}
}

// New creates a new Measurer. serverIDs restricts server selection, an empty
// list picks the nearest server. A timeout of zero means no per-attempt limit.
func New(serverIDs []int, timeout time.Duration, logger *zap.Logger, opts ...Option) *Measurer {
	m := &Measurer{
		serverIDs: serverIDs,
		timeout:   timeout,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Measure selects a server and measures latency, download and upload.
// Failing before a server is selected and pinged returns an error; failing
// afterwards returns a Result carrying the server identity and Error.
// Cancelling ctx always returns ctx.Err(), never a Result.
func (m *Measurer) Measure(ctx context.Context) (models.Result, error) {
	attemptCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	client := speedtest.New(m.clientOpts...)
	if m.captureTime > 0 {
		client.SetCaptureTime(m.captureTime)
	}

	servers, err := client.FetchServerListContext(attemptCtx)
	if err != nil {
		return models.Result{}, fmt.Errorf("fetch server list: %w", err)
	}
	targets, err := servers.FindServer(m.serverIDs)
	if err != nil {
		return models.Result{}, fmt.Errorf("find server: %w", err)
	}
	if len(targets) == 0 {
		return models.Result{}, errors.New("no speedtest server available")
	}
	server := targets[0]

	if err := server.PingTestContext(attemptCtx, func(time.Duration) {}); err != nil {
		return models.Result{}, fmt.Errorf("ping %s: %w", server.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return models.Result{}, err
	}
	if server.Latency <= 0 {
		return models.Result{}, fmt.Errorf("ping %s: no latency measured", server.Name)
	}
	m.logger.Debug("selected speedtest server",
		zap.String("id", server.ID),
		zap.String("name", server.Name),
		zap.String("sponsor", server.Sponsor),
		zap.Duration("latency", server.Latency))

	res := identity(server)
	err = server.DownloadTestContext(attemptCtx)
	if err := stepError(attemptCtx, err, server.DLSpeed); err != nil {
		return m.partial(ctx, res, "download", err)
	}
	err = server.UploadTestContext(attemptCtx)
	if err := stepError(attemptCtx, err, server.ULSpeed); err != nil {
		return m.partial(ctx, res, "upload", err)
	}
	if err := ctx.Err(); err != nil {
		return models.Result{}, err
	}

	return complete(res, server, client.GetTotalDownload(), client.GetTotalUpload()), nil
}

// stepError reports why a transfer step produced no usable rate.
// A step cut short by the attempt deadline is not usable either.
func stepError(ctx context.Context, err error, rate speedtest.ByteRate) error {
	if err != nil {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if math.IsNaN(float64(rate)) || rate <= 0 {
		return errNoThroughput
	}
	return nil
}

// partial reports a failure after server selection. If the caller's context
// was cancelled the measurement was interrupted rather than partial.
func (m *Measurer) partial(ctx context.Context, res models.Result, step string, err error) (models.Result, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return models.Result{}, ctxErr
	}
	m.logger.Warn("speedtest step failed",
		zap.String("step", step),
		zap.String("server", res.ServerName),
		zap.Error(err))
	res.Error = fmt.Sprintf("%s: %v", step, err)
	return res, nil
}

func identity(server *speedtest.Server) models.Result {
	return models.Result{
		ServerID:      server.ID,
		ServerName:    server.Name,
		ServerCountry: server.Country,
		ServerSponsor: server.Sponsor,
	}
}

func complete(res models.Result, server *speedtest.Server, received, sent int64) models.Result {
	ping := float64(server.Latency) / float64(time.Millisecond)
	down := bytesPerSecondToMbps(float64(server.DLSpeed))
	up := bytesPerSecondToMbps(float64(server.ULSpeed))

	res.PingMs = &ping
	res.DownloadMbps = &down
	res.UploadMbps = &up
	res.BytesReceived = &received
	res.BytesSent = &sent
	return res
}

func bytesPerSecondToMbps(v float64) float64 {
	return v * 8 / 1e6
}
