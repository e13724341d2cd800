package forecaster

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"PriceCast/internal/domain"
	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/repository"
	"PriceCast/internal/services/nn"
	"PriceCast/pkg/logger"
)

// State is the lifecycle position of a model.
type State int

const (
	Uninitialized State = iota
	Built
	Trained
	Loaded
)

func (s State) String() string {
	switch s {
	case Built:
		return "built"
	case Trained:
		return "trained"
	case Loaded:
		return "loaded"
	}
	return "uninitialized"
}

// Ready reports whether the model may be used for prediction.
func (s State) Ready() bool { return s == Trained || s == Loaded }

// Topology describes a built network.
type Topology struct {
	Architecture string
	Input        nn.Shape
	Layers       []nn.LayerSummary
	ParamCount   int
}

// TrainingSet is a batch of scaled windows and their scaled labels.
type TrainingSet struct {
	X [][]float64
	Y []float64
}

// Model is the capability set the orchestrator drives.
type Model interface {
	Build() (Topology, error)
	Train(ctx context.Context, set TrainingSet, epochs int) (*models.TrainingReport, error)
	Save(ctx context.Context, location string) error
	Load(ctx context.Context, location string) error
	Predict(window []float64) (float64, error)
	PredictBatch(windows [][]float64) ([]float64, error)
	State() State
	Topology() Topology
	WindowSize() int
}

var _ Model = (*Forecaster)(nil)

// Forecaster owns one network's parameters for its whole life. A new Forecaster
// is created per run.
type Forecaster struct {
	arch       Architecture
	windowSize int
	store      repository.ModelStore
	log        *logger.Logger
	cfg        config

	mu    sync.RWMutex
	net   *nn.Network
	state State
	rng   *nn.Rand
}

type config struct {
	batchSize    int
	learningRate float64
	seed         uint64
}

// Option configures a Forecaster.
type Option func(*config)

// WithBatchSize sets the mini-batch size used by Train.
func WithBatchSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithLearningRate sets the Adam learning rate.
func WithLearningRate(lr float64) Option {
	return func(c *config) {
		if lr > 0 {
			c.learningRate = lr
		}
	}
}

// WithSeed makes initialisation and shuffling deterministic.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.seed = seed }
}

// New creates a model for arch and builds it immediately.
func New(arch Architecture, windowSize int, store repository.ModelStore, log *logger.Logger, opts ...Option) (*Forecaster, error) {
	if arch == nil {
		return nil, errors.New("architecture is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	cfg := config{batchSize: nn.DefaultBatchSize, learningRate: nn.DefaultLearningRate, seed: uint64(time.Now().UnixNano())}
	for _, opt := range opts {
		opt(&cfg)
	}
	f := &Forecaster{
		arch:       arch,
		windowSize: windowSize,
		store:      store,
		log:        log.With(logger.String("model", arch.Name())),
		cfg:        cfg,
		rng:        nn.NewRand(cfg.seed),
	}
	if _, err := f.Build(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Forecaster) inputShape() nn.Shape { return nn.Shape{Steps: f.windowSize, Channels: 1} }

// Build (re)creates the network with freshly initialised parameters.
func (f *Forecaster) Build() (Topology, error) {
	specs, err := f.arch.Layers(f.windowSize)
	if err != nil {
		return Topology{}, fmt.Errorf("build %s: %w: %w", f.arch.Name(), domain.ErrShape, err)
	}
	net, err := nn.NewNetwork(f.inputShape(), specs, f.rng)
	if err != nil {
		return Topology{}, fmt.Errorf("build %s: %w", f.arch.Name(), err)
	}

	f.mu.Lock()
	f.net = net
	f.state = Built
	f.mu.Unlock()
	return f.Topology(), nil
}

// Train fits the parameters in place and moves the model to Trained. On failure
// the model keeps the parameters and state it had before the call.
func (f *Forecaster) Train(ctx context.Context, set TrainingSet, epochs int) (*models.TrainingReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.net == nil {
		return nil, fmt.Errorf("train in state %s: %w", f.state, domain.ErrModelState)
	}
	if len(set.X) != len(set.Y) {
		return nil, fmt.Errorf("training set has %d windows and %d labels: %w", len(set.X), len(set.Y), domain.ErrShape)
	}
	for i, x := range set.X {
		if len(x) != f.windowSize {
			return nil, fmt.Errorf("training window %d has length %d, want %d: %w", i, len(x), f.windowSize, domain.ErrShape)
		}
	}

	f.log.Info("model summary\n" + f.net.SummaryTable())

	prior := snapshotParams(f.net)
	start := time.Now()
	losses, err := f.net.Fit(ctx, set.X, set.Y, nn.NewAdam(f.cfg.learningRate), nn.FitConfig{
		Epochs:    epochs,
		BatchSize: f.cfg.batchSize,
		Rng:       f.rng,
		OnEpoch: func(epoch int, loss float64) {
			f.log.Debug("epoch finished", logger.Int("epoch", epoch+1), logger.Float64("loss", loss))
		},
	})
	if err != nil {
		// a failed fit leaves the parameters and state it started from
		restoreParams(f.net, prior)
		return nil, fmt.Errorf("train %s: %w", f.arch.Name(), err)
	}

	report := &models.TrainingReport{
		Epochs:    len(losses),
		Examples:  len(set.X),
		Losses:    losses,
		FinalLoss: losses[len(losses)-1],
		Duration:  time.Since(start),
	}
	f.state = Trained
	f.log.Info("loss after last epoch",
		logger.Int("epochs", report.Epochs),
		logger.Float64("loss", report.FinalLoss),
		logger.Duration("took_ms", report.Duration),
	)
	return report, nil
}

// Save persists topology and parameters at location.
func (f *Forecaster) Save(ctx context.Context, location string) error {
	if f.store == nil {
		return fmt.Errorf("no model store configured: %w", domain.ErrPersistence)
	}
	f.mu.RLock()
	if !f.state.Ready() {
		state := f.state
		f.mu.RUnlock()
		return fmt.Errorf("save in state %s: %w", state, domain.ErrModelState)
	}
	manifest, weights, err := nn.Encode(f.net, f.arch.Name(), map[string]string{
		"window_size": strconv.Itoa(f.windowSize),
	})
	f.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode model: %w: %w", domain.ErrPersistence, err)
	}

	if err := f.store.Save(ctx, location, &repository.Artifact{Manifest: manifest, Weights: weights}); err != nil {
		return persistenceError("save model", err)
	}
	f.log.Info("model saved", logger.String("location", location))
	return nil
}

// Load replaces the parameters with those stored at location. The swap happens
// only after the artifact fully decodes and matches this model's topology.
func (f *Forecaster) Load(ctx context.Context, location string) error {
	if f.store == nil {
		return fmt.Errorf("no model store configured: %w", domain.ErrPersistence)
	}
	a, err := f.store.Load(ctx, location)
	if err != nil {
		return persistenceError("load model", err)
	}
	net, m, err := nn.Decode(a.Manifest, a.Weights)
	if err != nil {
		return fmt.Errorf("decode model from %s: %w", location, err)
	}
	if m.Architecture != f.arch.Name() {
		return fmt.Errorf("artifact holds a %q model, want %q: %w", m.Architecture, f.arch.Name(), domain.ErrPersistence)
	}
	if net.InputShape() != f.inputShape() || net.OutputShape().Size() != 1 {
		return fmt.Errorf("artifact input %s does not match window %d: %w", net.InputShape(), f.windowSize, domain.ErrPersistence)
	}

	f.mu.Lock()
	f.net = net
	f.state = Loaded
	f.mu.Unlock()
	f.log.Info("model loaded", logger.String("location", location), logger.Int("params", net.ParamCount()))
	return nil
}

// Predict returns the scaled forecast for one scaled window.
func (f *Forecaster) Predict(window []float64) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.predict(window)
}

// PredictBatch predicts every window; it fails without partial output.
func (f *Forecaster) PredictBatch(windows [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]float64, len(windows))
	for i, w := range windows {
		y, err := f.predict(w)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", i, err)
		}
		out[i] = y
	}
	return out, nil
}

func (f *Forecaster) predict(window []float64) (float64, error) {
	if !f.state.Ready() {
		return 0, fmt.Errorf("predict in state %s: %w", f.state, domain.ErrModelState)
	}
	if len(window) != f.windowSize {
		return 0, fmt.Errorf("window has length %d, model expects %d: %w", len(window), f.windowSize, domain.ErrShape)
	}
	y, err := f.net.Predict(window)
	if err != nil {
		return 0, err
	}
	return y[0], nil
}

func (f *Forecaster) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

func (f *Forecaster) Topology() Topology {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.net == nil {
		return Topology{Architecture: f.arch.Name()}
	}
	return Topology{
		Architecture: f.arch.Name(),
		Input:        f.net.InputShape(),
		Layers:       f.net.Summary(),
		ParamCount:   f.net.ParamCount(),
	}
}

func (f *Forecaster) WindowSize() int { return f.windowSize }

func persistenceError(op string, err error) error {
	if errors.Is(err, domain.ErrPersistence) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}

func snapshotParams(net *nn.Network) [][]float64 {
	params := net.Params()
	out := make([][]float64, len(params))
	for i, p := range params {
		out[i] = append([]float64(nil), p.Value...)
	}
	return out
}

func restoreParams(net *nn.Network, values [][]float64) {
	for i, p := range net.Params() {
		copy(p.Value, values[i])
	}
}
