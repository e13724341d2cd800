package nn

import "fmt"

// Layer type names as they appear in persisted manifests.
const (
	TypeConv1D    = "conv1d"
	TypeAvgPool1D = "avgpool1d"
	TypeFlatten   = "flatten"
	TypeReshape   = "reshape"
	TypeDense     = "dense"
	TypeLSTM      = "lstm"
)

// LayerSpec is the serialisable description of a layer's hyperparameters.
type LayerSpec struct {
	Type            string     `json:"type"`
	Filters         int        `json:"filters,omitempty"`
	Kernel          int        `json:"kernel,omitempty"`
	Pool            int        `json:"pool,omitempty"`
	Stride          int        `json:"stride,omitempty"`
	Units           int        `json:"units,omitempty"`
	Activation      Activation `json:"activation,omitempty"`
	Target          *Shape     `json:"target,omitempty"`
	ReturnSequences bool       `json:"return_sequences,omitempty"`
}

func Conv1DSpec(filters, kernel int, act Activation) LayerSpec {
	return LayerSpec{Type: TypeConv1D, Filters: filters, Kernel: kernel, Activation: act}
}

func AvgPool1DSpec(pool, stride int) LayerSpec {
	return LayerSpec{Type: TypeAvgPool1D, Pool: pool, Stride: stride}
}

func FlattenSpec() LayerSpec { return LayerSpec{Type: TypeFlatten} }

func ReshapeSpec(steps, channels int) LayerSpec {
	return LayerSpec{Type: TypeReshape, Target: &Shape{Steps: steps, Channels: channels}}
}

func DenseSpec(units int, act Activation) LayerSpec {
	return LayerSpec{Type: TypeDense, Units: units, Activation: act}
}

func LSTMSpec(units int, returnSequences bool) LayerSpec {
	return LayerSpec{Type: TypeLSTM, Units: units, ReturnSequences: returnSequences}
}

// Build returns an uninitialised layer for the spec.
func (s LayerSpec) Build() (Layer, error) {
	switch s.Type {
	case TypeConv1D:
		if s.Filters < 1 || s.Kernel < 1 {
			return nil, fmt.Errorf("conv1d needs filters and kernel >= 1, got %d/%d", s.Filters, s.Kernel)
		}
		if err := s.activation().validate(); err != nil {
			return nil, err
		}
		return &Conv1D{Filters: s.Filters, Kernel: s.Kernel, Act: s.activation()}, nil
	case TypeAvgPool1D:
		stride := s.Stride
		if stride == 0 {
			stride = s.Pool
		}
		if s.Pool < 1 || stride < 1 {
			return nil, fmt.Errorf("avgpool1d needs pool and stride >= 1, got %d/%d", s.Pool, stride)
		}
		return &AvgPool1D{Pool: s.Pool, Stride: stride}, nil
	case TypeFlatten:
		return &Flatten{}, nil
	case TypeReshape:
		if s.Target == nil || !s.Target.valid() {
			return nil, fmt.Errorf("reshape needs a positive target shape")
		}
		return &Reshape{Target: *s.Target}, nil
	case TypeDense:
		if s.Units < 1 {
			return nil, fmt.Errorf("dense needs units >= 1, got %d", s.Units)
		}
		if err := s.activation().validate(); err != nil {
			return nil, err
		}
		return &Dense{Units: s.Units, Act: s.activation()}, nil
	case TypeLSTM:
		if s.Units < 1 {
			return nil, fmt.Errorf("lstm needs units >= 1, got %d", s.Units)
		}
		return &LSTM{Units: s.Units, ReturnSequences: s.ReturnSequences}, nil
	}
	return nil, fmt.Errorf("unknown layer type %q", s.Type)
}

func (s LayerSpec) activation() Activation {
	if s.Activation == "" {
		return Linear
	}
	return s.Activation
}
