package nn

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"PriceCast/internal/domain"
)

// FormatVersion is the artifact layout written by Encode.
const FormatVersion = 1

// Manifest describes a persisted network: topology, weight table and checksum.
type Manifest struct {
	Format       int               `json:"format"`
	Architecture string            `json:"architecture"`
	Input        Shape             `json:"input"`
	Layers       []LayerSpec       `json:"layers"`
	Weights      []WeightRef       `json:"weights"`
	ParamCount   int               `json:"param_count"`
	SHA256       string            `json:"sha256"`
	CreatedAt    time.Time         `json:"created_at"`
	Meta         map[string]string `json:"meta,omitempty"`
}

// WeightRef locates one parameter tensor inside the weights blob, in float64 units.
type WeightRef struct {
	Layer  int    `json:"layer"`
	Name   string `json:"name"`
	Dims   []int  `json:"dims"`
	Offset int    `json:"offset"`
	Count  int    `json:"count"`
}

// Encode serialises n as a JSON manifest plus little-endian float64 weights.
func Encode(n *Network, architecture string, meta map[string]string) (manifest, weights []byte, err error) {
	m := Manifest{
		Format:       FormatVersion,
		Architecture: architecture,
		Input:        n.input,
		Layers:       n.Specs(),
		ParamCount:   n.ParamCount(),
		CreatedAt:    time.Now().UTC(),
		Meta:         meta,
	}
	weights = make([]byte, 0, 8*m.ParamCount)
	offset := 0
	for li, l := range n.layers {
		for _, p := range l.Params() {
			m.Weights = append(m.Weights, WeightRef{Layer: li, Name: p.Name, Dims: p.Dims, Offset: offset, Count: len(p.Value)})
			for _, v := range p.Value {
				weights = binary.LittleEndian.AppendUint64(weights, math.Float64bits(v))
			}
			offset += len(p.Value)
		}
	}
	sum := sha256.Sum256(weights)
	m.SHA256 = hex.EncodeToString(sum[:])

	manifest, err = json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return manifest, weights, nil
}

// Decode rebuilds a network from an artifact. Every check runs before the network
// is returned, so a failed decode never yields a partially loaded model.
func Decode(manifest, weights []byte) (*Network, *Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(manifest, &m); err != nil {
		return nil, nil, fmt.Errorf("parse manifest: %w: %w", domain.ErrPersistence, err)
	}
	if m.Format != FormatVersion {
		return nil, nil, fmt.Errorf("unsupported artifact format %d: %w", m.Format, domain.ErrPersistence)
	}
	sum := sha256.Sum256(weights)
	if hex.EncodeToString(sum[:]) != m.SHA256 {
		return nil, nil, fmt.Errorf("weights checksum mismatch: %w", domain.ErrPersistence)
	}
	if len(weights)%8 != 0 {
		return nil, nil, fmt.Errorf("weights blob has %d bytes: %w", len(weights), domain.ErrPersistence)
	}

	n, err := NewNetwork(m.Input, m.Layers, NewRand(0))
	if err != nil {
		return nil, nil, fmt.Errorf("rebuild topology: %w: %w", domain.ErrPersistence, err)
	}
	if n.ParamCount()*8 != len(weights) {
		return nil, nil, fmt.Errorf("topology needs %d weights, blob has %d: %w", n.ParamCount(), len(weights)/8, domain.ErrPersistence)
	}

	idx := 0
	for li, l := range n.layers {
		for _, p := range l.Params() {
			if idx >= len(m.Weights) {
				return nil, nil, fmt.Errorf("weight table is missing %s of layer %d: %w", p.Name, li, domain.ErrPersistence)
			}
			ref := m.Weights[idx]
			idx++
			if ref.Layer != li || ref.Name != p.Name || ref.Count != len(p.Value) {
				return nil, nil, fmt.Errorf("weight table entry %d (%d/%s/%d) does not match layer %d %s: %w",
					idx-1, ref.Layer, ref.Name, ref.Count, li, p.Name, domain.ErrPersistence)
			}
			if ref.Offset < 0 || (ref.Offset+ref.Count)*8 > len(weights) {
				return nil, nil, fmt.Errorf("weight %s of layer %d out of range: %w", p.Name, li, domain.ErrPersistence)
			}
			for k := range p.Value {
				v := math.Float64frombits(binary.LittleEndian.Uint64(weights[(ref.Offset+k)*8:]))
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, nil, fmt.Errorf("weight %s of layer %d is not finite: %w", p.Name, li, domain.ErrPersistence)
				}
				p.Value[k] = v
			}
		}
	}
	if idx != len(m.Weights) {
		return nil, nil, fmt.Errorf("weight table has %d extra entries: %w", len(m.Weights)-idx, domain.ErrPersistence)
	}
	return n, &m, nil
}
