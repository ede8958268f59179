package keras

import (
	"strconv"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/layers"
	"github.com/born-ml/infer/internal/tensor"
	"github.com/tidwall/gjson"
)

// registerWeighted adds the layer kinds that carry trained parameters.
func (r *Registry) registerWeighted() {
	r.Register("Dense", buildDense)
	r.Register("Conv2D", buildConv2D)
	r.Register("SeparableConv2D", buildSeparableConv2D)
	r.Register("BatchNormalization", buildBatchNormalization)
}

// bias returns the n biases of layer name, or zeros when the layer was
// built with use_bias false.
func bias(ctx *Context, data gjson.Result, name string, n int) ([]float32, error) {
	useBias, err := getBool(data, "config.use_bias")
	if err != nil {
		return nil, err
	}
	if !useBias {
		return make([]float32, n), nil
	}
	b, err := ctx.source().Floats(name, "bias")
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, errdefs.Formatf("bias", "size of bias %d does not match %d", len(b), n)
	}
	return b, nil
}

// kernelGeometry reads and checks the parts shared by both convolutions.
func kernelGeometry(data gjson.Result) (kernel, strides tensor.Shape2, padding layers.Padding, err error) {
	if err = checkDataFormat(data); err != nil {
		return
	}
	paddingName, err := getString(data, "config.padding")
	if err != nil {
		return
	}
	if padding, err = layers.ParsePadding(paddingName); err != nil {
		return
	}
	if strides, err = getShape2(data, "config.strides"); err != nil {
		return
	}
	if kernel, err = getShape2(data, "config.kernel_size"); err != nil {
		return
	}
	if kernel.Height%2 == 0 || kernel.Width%2 == 0 {
		err = errdefs.Unsupported("kernel_size", kernel.String())
		return
	}
	if dilation := data.Get("config.dilation_rate"); dilation.Exists() {
		var d tensor.Shape2
		if d, err = getShape2(data, "config.dilation_rate"); err != nil {
			return
		}
		if d != tensor.NewShape2(1, 1) && d != tensor.NewShape2(0, 1) {
			err = errdefs.Unsupported("dilation_rate", d.String())
		}
	}
	return
}

func positive(data gjson.Result, path string) (int, error) {
	n, err := getInt(data, path)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errdefs.Formatf(path, "must be positive, got %d", n)
	}
	return n, nil
}

func buildConv2D(ctx *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	kernel, strides, padding, err := kernelGeometry(data)
	if err != nil {
		return nil, err
	}
	count, err := positive(data, "config.filters")
	if err != nil {
		return nil, err
	}

	w, err := ctx.source().Floats(name, "weights")
	if err != nil {
		return nil, err
	}
	per := kernel.Area() * count
	if len(w) == 0 || len(w)%per != 0 {
		return nil, errdefs.Formatf("weights",
			"weight count %d is not divisible by filters*kernel_area %d", len(w), per)
	}
	depth := len(w) / per

	b, err := bias(ctx, data, name, count)
	if err != nil {
		return nil, err
	}
	off, err := offsets(ctx.config(), "conv2d")
	if err != nil {
		return nil, err
	}
	filters := layers.FiltersFromKernel(w, kernel, depth, count, b)
	return wrap(layers.NewConv2D(name, filters, strides, padding, off))
}

func buildSeparableConv2D(ctx *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	multiplier, err := getInt(data, "config.depth_multiplier")
	if err != nil {
		return nil, err
	}
	if multiplier != 1 {
		return nil, errdefs.Unsupported("depth_multiplier", strconv.Itoa(multiplier))
	}
	kernel, strides, padding, err := kernelGeometry(data)
	if err != nil {
		return nil, err
	}
	count, err := positive(data, "config.filters")
	if err != nil {
		return nil, err
	}

	slice, err := ctx.source().Floats(name, "slice_weights")
	if err != nil {
		return nil, err
	}
	stack, err := ctx.source().Floats(name, "stack_weights")
	if err != nil {
		return nil, err
	}
	area := kernel.Area()
	if len(slice) == 0 || len(slice)%area != 0 {
		return nil, errdefs.Formatf("slice_weights",
			"weight count %d is not divisible by kernel_area %d", len(slice), area)
	}
	depth := len(slice) / area
	if len(stack)%depth != 0 || len(stack)/depth != count {
		return nil, errdefs.Formatf("stack_weights",
			"weight count %d over depth %d does not give %d filters", len(stack), depth, count)
	}

	b, err := bias(ctx, data, name, count)
	if err != nil {
		return nil, err
	}
	off, err := offsets(ctx.config(), "separable_conv2d")
	if err != nil {
		return nil, err
	}
	depthwise := layers.FiltersFromKernel(slice, kernel, 1, depth, make([]float32, depth))
	pointwise := layers.FiltersFromKernel(stack, tensor.NewShape2(1, 1), depth, count, b)
	return wrap(layers.NewSeparableConv2D(name, depthwise, pointwise, strides, padding, off))
}

func buildDense(ctx *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	units, err := positive(data, "config.units")
	if err != nil {
		return nil, err
	}
	w, err := ctx.source().Floats(name, "weights")
	if err != nil {
		return nil, err
	}
	b, err := bias(ctx, data, name, units)
	if err != nil {
		return nil, err
	}
	return wrap(layers.NewDense(name, units, w, b))
}

func buildBatchNormalization(ctx *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	center, err := getBool(data, "config.center")
	if err != nil {
		return nil, err
	}
	scale, err := getBool(data, "config.scale")
	if err != nil {
		return nil, err
	}
	epsilon, err := getFloat(data, "config.epsilon")
	if err != nil {
		return nil, err
	}

	mean, err := ctx.source().Floats(name, "moving_mean")
	if err != nil {
		return nil, err
	}
	variance, err := ctx.source().Floats(name, "moving_variance")
	if err != nil {
		return nil, err
	}
	var beta, gamma []float32
	if center {
		if beta, err = ctx.source().Floats(name, "beta"); err != nil {
			return nil, err
		}
	}
	if scale {
		if gamma, err = ctx.source().Floats(name, "gamma"); err != nil {
			return nil, err
		}
	}
	return wrap(layers.NewBatchNormalization(name, mean, variance, beta, gamma, epsilon))
}
