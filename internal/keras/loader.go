package keras

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/layers"
	"github.com/born-ml/infer/internal/parallel"
	"github.com/born-ml/infer/internal/tensor"
	"github.com/born-ml/infer/internal/verify"
	"github.com/born-ml/infer/internal/weights"
	"github.com/tidwall/gjson"
)

// LoadOptions configures model loading behavior.
type LoadOptions struct {
	// Weights overrides the parameters embedded in the document
	// (trainable_params), e.g. with a SafeTensorsSource.
	Weights weights.Source

	// Config replaces the padding flags embedded in the document.
	Config GlobalConfig

	// FlagOverrides takes precedence over Config (or the document) for
	// the flags it names.
	FlagOverrides map[string]bool

	// Parallel controls concurrent construction of sibling layers.
	Parallel parallel.Config

	// Logger receives construction records. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultLoadOptions returns default loading options.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Parallel: parallel.DefaultConfig(),
	}
}

// Model is a loaded model: the root graph plus the document's recorded
// test cases and metadata.
type Model struct {
	graph    *layers.Model
	tests    []verify.TestCase
	metadata map[string]string
}

// LoadFile loads a model document from path.
func LoadFile(path string, opts ...LoadOptions) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return Load(data, opts...)
}

// Load builds a model from a JSON document. On any error no model is
// returned.
func Load(data []byte, opts ...LoadOptions) (*Model, error) {
	opt := DefaultLoadOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := weights.CheckPrecision(); err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, errdefs.Formatf("document", "invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errdefs.Formatf("document", "expected object, got %s", root.Type)
	}
	if v := root.Get("image_data_format"); v.Exists() && v.String() != "channels_last" {
		return nil, errdefs.Unsupported("image_data_format", v.String())
	}

	source := opt.Weights
	if source == nil {
		doc, err := weights.NewDocumentSource(root.Get("trainable_params"))
		if err != nil {
			return nil, err
		}
		source = doc
	}
	cfg := opt.Config
	if cfg == nil {
		cfg = NewDocumentConfig(root)
	}
	if len(opt.FlagOverrides) > 0 {
		cfg = Overlay{Override: opt.FlagOverrides, Base: cfg}
	}

	arch := root.Get("architecture")
	if !arch.IsObject() {
		return nil, errdefs.Formatf("architecture", "missing model architecture")
	}
	if kind := arch.Get("class_name"); kind.Exists() && kind.String() != "Model" {
		return nil, errdefs.Unsupported("architecture class", kind.String())
	}

	ctx := &Context{
		Weights:  source,
		Config:   cfg,
		Registry: NewRegistry(),
		Parallel: opt.Parallel,
		Logger:   logger,
	}
	built, err := buildModel(ctx, arch)
	if err != nil {
		return nil, err
	}
	graph := built.(*layers.Model)

	// Fail at load time rather than at the first prediction when the
	// graph cannot produce outputs for its declared inputs.
	if shapes := graph.InputShapes(); concrete(shapes) {
		if _, err := graph.OutputShapes(shapes); err != nil {
			return nil, fmt.Errorf("model %q: %w", graph.Name(), err)
		}
	}

	m := &Model{graph: graph, metadata: make(map[string]string)}
	if tests := root.Get("tests"); tests.Exists() {
		if m.tests, err = verify.LoadTestCases(tests); err != nil {
			return nil, err
		}
	}
	for _, key := range []string{"keras_version", "backend", "generated_by", "image_data_format"} {
		if v := root.Get(key); v.Exists() {
			m.metadata[key] = v.String()
		}
	}

	logger.Info("model loaded",
		"model", graph.Name(),
		"layers", len(graph.Layers()),
		"params", graph.ParamCount(),
		"tests", len(m.tests))
	return m, nil
}

// concrete reports whether every shape is fully specified.
func concrete(shapes []tensor.Shape3) bool {
	for _, s := range shapes {
		if s.Volume() == 0 {
			return false
		}
	}
	return true
}

// Name returns the root model's name.
func (m *Model) Name() string { return m.graph.Name() }

// Graph returns the root composite layer.
func (m *Model) Graph() *layers.Model { return m.graph }

// Tests returns the recorded test cases of the document.
func (m *Model) Tests() []verify.TestCase { return m.tests }

// Metadata returns descriptive top-level fields of the document.
func (m *Model) Metadata() map[string]string { return m.metadata }

// InputShapes returns the declared input shapes; zero dimensions accept
// any extent.
func (m *Model) InputShapes() []tensor.Shape3 { return m.graph.InputShapes() }

// OutputShapes returns the output shapes for the given input shapes.
func (m *Model) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	return m.graph.OutputShapes(inputs)
}

// ParamCount returns the total number of parameters.
func (m *Model) ParamCount() int { return m.graph.ParamCount() }

// Predict evaluates the model.
func (m *Model) Predict(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	return m.graph.Apply(inputs)
}

// Summary returns a table of the root model's layers with their kind,
// parameter count and inbound connections, followed by totals.
func (m *Model) Summary() string {
	var b strings.Builder
	m.WriteSummary(&b)
	return b.String()
}

// WriteSummary writes Summary to w.
func (m *Model) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "Model: %q\n", m.graph.Name())
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Layer (type)\tParams\tConnected to")
	for _, l := range m.graph.Layers() {
		var inbound []string
		for _, n := range l.Nodes() {
			for _, c := range n.Inbound {
				inbound = append(inbound, c.String())
			}
		}
		kind := l.Kind()
		if a := l.Activation(); a != nil {
			if al, ok := a.(*layers.ActivationLayer); ok {
				kind += "+" + al.Function()
			}
		}
		fmt.Fprintf(tw, "%s (%s)\t%d\t%s\n", l.Name(), kind, l.ParamCount(), strings.Join(inbound, ", "))
	}
	tw.Flush()
	fmt.Fprintf(w, "Total params: %d\n", m.graph.ParamCount())
}

// ListSupportedLayers returns the supported Keras class names.
func ListSupportedLayers() []string {
	return NewRegistry().SupportedLayers()
}

// ListSupportedActivations returns the supported activation function names.
func ListSupportedActivations() []string {
	return layers.ListActivations()
}
