package bgcut

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// Session is a loaded, ready-to-run model bound to one provider. It is
// read-only after creation and safe for concurrent Run calls; switching
// provider or model means a new cache entry, never reconfiguration.
type Session struct {
	ModelPath string
	Provider  Provider

	spec ModelSpec
	sess *ort.DynamicAdvancedSession
}

func (s *Session) Run(inputs, outputs []ort.Value) error {
	if s.sess == nil {
		return fmt.Errorf("%w: session not initialized", ErrInferenceFailed)
	}
	if err := s.sess.Run(inputs, outputs); err != nil {
		return fmt.Errorf("%w: %v", ErrInferenceFailed, err)
	}
	return nil
}

func (s *Session) close() {
	if s.sess != nil {
		_ = s.sess.Destroy()
		s.sess = nil
	}
}

type sessionKey struct {
	modelPath string
	provider  Provider
}

type cacheEntry struct {
	once sync.Once
	sess *Session
	err  error
}

// SessionCache owns session lifecycle, keyed by (model path, provider).
// Creation is exclusive per key: concurrent requests for the same key block
// on the first creator and share its result; distinct keys proceed
// independently.
type SessionCache struct {
	mu      sync.Mutex
	entries map[sessionKey]*cacheEntry
	log     *logrus.Entry

	// create is swapped in tests.
	create func(spec ModelSpec, modelPath string, provider Provider) (*Session, error)
}

func NewSessionCache() *SessionCache {
	return &SessionCache{
		entries: make(map[sessionKey]*cacheEntry),
		log:     logrus.WithField("component", "session-cache"),
		create:  createSession,
	}
}

// GetOrCreate returns the cached session for (modelPath, provider), building
// and warming it up on first use.
func (c *SessionCache) GetOrCreate(spec ModelSpec, modelPath string, provider Provider) (*Session, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
	}

	key := sessionKey{modelPath: modelPath, provider: provider}
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		start := time.Now()
		e.sess, e.err = c.create(spec, modelPath, provider)
		if e.err == nil {
			c.log.WithFields(logrus.Fields{
				"model":    spec.Name,
				"provider": provider,
				"elapsed":  time.Since(start),
			}).Info("session created")
		}
	})

	if e.err != nil {
		// Failed creations are not cached; the next caller retries.
		c.mu.Lock()
		if c.entries[key] == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, e.err
	}
	return e.sess, nil
}

// Clear releases every cached session. Subsequent GetOrCreate calls recreate
// from scratch. Used for memory reclamation or after a model change.
func (c *SessionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.sess != nil {
			e.sess.close()
		}
	}
	c.entries = make(map[sessionKey]*cacheEntry)
}

func createSession(spec ModelSpec, modelPath string, provider Provider) (*Session, error) {
	if err := ensureRuntime(); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}

	options, err := newSessionOptions(provider)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	sess, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{spec.InputName},
		[]string{spec.OutputName},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrInferenceFailed, modelPath, err)
	}

	s := &Session{
		ModelPath: modelPath,
		Provider:  provider,
		spec:      spec,
		sess:      sess,
	}

	// Warm-up amortizes first-call latency by forcing backend kernel
	// initialization. A failure here is logged, not fatal.
	if err := warmUp(s, spec); err != nil {
		logrus.WithField("component", "session-cache").
			WithError(err).Warn("warm-up run failed")
	}

	return s, nil
}

func newSessionOptions(provider Provider) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}

	// Full graph optimization, thread counts left to ORT auto-detection.
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll)
	options.SetIntraOpNumThreads(0)
	options.SetInterOpNumThreads(0)
	options.SetCpuMemArena(true)
	options.SetMemPattern(true)

	if err := appendProvider(options, provider); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}

func appendProvider(options *ort.SessionOptions, provider Provider) error {
	switch provider {
	case ProviderCUDA:
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return fmt.Errorf("%w: CUDA: %v", ErrProviderUnavailable, err)
		}
		defer cudaOpts.Destroy()
		if err := options.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			return fmt.Errorf("%w: CUDA: %v", ErrProviderUnavailable, err)
		}
	case ProviderTensorRT:
		trtOpts, err := ort.NewTensorRTProviderOptions()
		if err != nil {
			return fmt.Errorf("%w: TensorRT: %v", ErrProviderUnavailable, err)
		}
		defer trtOpts.Destroy()
		if err := options.AppendExecutionProviderTensorRT(trtOpts); err != nil {
			return fmt.Errorf("%w: TensorRT: %v", ErrProviderUnavailable, err)
		}
	case ProviderDirectML:
		if err := options.AppendExecutionProviderDirectML(0); err != nil {
			return fmt.Errorf("%w: DirectML: %v", ErrProviderUnavailable, err)
		}
	case ProviderCoreML:
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			return fmt.Errorf("%w: CoreML: %v", ErrProviderUnavailable, err)
		}
	}
	// CPU needs no explicit registration.
	return nil
}

// warmUp runs one synthetic zero input of the declared shape through the
// session so backend kernels are built before the first real request.
func warmUp(s *Session, spec ModelSpec) error {
	input, err := ort.NewEmptyTensor[float32](spec.inputShape())
	if err != nil {
		return fmt.Errorf("create warm-up input: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](spec.outputShape())
	if err != nil {
		return fmt.Errorf("create warm-up output: %w", err)
	}
	defer output.Destroy()

	return s.Run([]ort.Value{input}, []ort.Value{output})
}
