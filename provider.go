package bgcut

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// Provider identifies an ONNX Runtime execution backend.
type Provider string

const (
	ProviderCPU      Provider = "CPU"
	ProviderCUDA     Provider = "CUDA"
	ProviderTensorRT Provider = "TensorRT"
	ProviderDirectML Provider = "DirectML"
	ProviderCoreML   Provider = "CoreML"
)

// ortName maps the friendly name to the ONNX Runtime provider identifier.
func (p Provider) ortName() string {
	switch p {
	case ProviderCUDA:
		return "CUDAExecutionProvider"
	case ProviderTensorRT:
		return "TensorrtExecutionProvider"
	case ProviderDirectML:
		return "DmlExecutionProvider"
	case ProviderCoreML:
		return "CoreMLExecutionProvider"
	default:
		return "CPUExecutionProvider"
	}
}

// providerPreference orders backends fastest first. CPU closes the list and
// is always available.
var providerPreference = []Provider{
	ProviderCUDA,
	ProviderTensorRT,
	ProviderDirectML,
	ProviderCoreML,
	ProviderCPU,
}

// ProviderInfo describes one backend for display purposes.
type ProviderInfo struct {
	Provider    Provider `json:"provider"`
	Description string   `json:"description"`
	Available   bool     `json:"available"`
}

var providerDescriptions = map[Provider]string{
	ProviderCPU:      "Run on CPU (always available)",
	ProviderCUDA:     "Run on NVIDIA GPU with CUDA",
	ProviderTensorRT: "Run on NVIDIA GPU with TensorRT optimization",
	ProviderDirectML: "Run on GPU using DirectML (Windows)",
	ProviderCoreML:   "Run on Apple Neural Engine / GPU (macOS)",
}

var ortEnvOnce sync.Once
var ortEnvErr error

// ensureRuntime initializes the ONNX Runtime environment exactly once for
// the process.
func ensureRuntime() error {
	ortEnvOnce.Do(func() {
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// Registry probes the machine for usable execution providers.
type Registry struct {
	log *logrus.Entry

	// probe is swapped in tests to avoid a runtime dependency.
	probe func() ([]string, error)
}

func NewRegistry() *Registry {
	return &Registry{
		log: logrus.WithField("component", "providers"),
		probe: func() ([]string, error) {
			if err := ensureRuntime(); err != nil {
				return nil, err
			}
			return ort.GetAvailableProviders()
		},
	}
}

// Available returns the providers actually usable on this machine, probed at
// runtime. CPU is reported even if probing fails.
func (r *Registry) Available() []Provider {
	names, err := r.probe()
	if err != nil {
		r.log.WithError(err).Warn("provider probe failed, assuming CPU only")
		return []Provider{ProviderCPU}
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	var out []Provider
	for _, p := range providerPreference {
		if present[p.ortName()] {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []Provider{ProviderCPU}
	}
	return out
}

// Recommend returns the fastest available provider.
func (r *Registry) Recommend() Provider {
	avail := r.Available()
	for _, p := range providerPreference {
		for _, a := range avail {
			if p == a {
				return p
			}
		}
	}
	return ProviderCPU
}

// Validate returns ErrProviderUnavailable when the requested backend is not
// in the available set.
func (r *Registry) Validate(requested Provider) error {
	for _, p := range r.Available() {
		if p == requested {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrProviderUnavailable, requested)
}

// ResolveProvider turns a preference into a concrete provider. Empty means
// "pick the best". An unavailable request falls back to CPU with a warning;
// fallback only ever happens here, never after an inference failure.
func (r *Registry) ResolveProvider(requested Provider) Provider {
	if requested == "" {
		return r.Recommend()
	}
	if err := r.Validate(requested); err != nil {
		r.log.WithField("requested", requested).Warn("provider unavailable, falling back to CPU")
		return ProviderCPU
	}
	return requested
}

// Describe reports every known backend with its availability, for UIs and
// the HTTP surface.
func (r *Registry) Describe() []ProviderInfo {
	avail := make(map[Provider]bool)
	for _, p := range r.Available() {
		avail[p] = true
	}
	infos := make([]ProviderInfo, 0, len(providerPreference))
	for _, p := range providerPreference {
		infos = append(infos, ProviderInfo{
			Provider:    p,
			Description: providerDescriptions[p],
			Available:   avail[p],
		})
	}
	return infos
}
