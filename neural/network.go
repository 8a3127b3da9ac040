package neural

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Network is a single hidden layer ReLU regressor with a linear output and
// no bias terms of its own; the bias feature plays that role.
type Network struct {
	W1 [][]float64 `json:"w1"` // [input][hidden]
	W2 []float64   `json:"w2"` // [hidden]
}

// NewNetwork initialises weights uniformly in [-0.1, 0.1).
func NewNetwork(inputs, hidden int, rng *rand.Rand) *Network {
	n := &Network{
		W1: make([][]float64, inputs),
		W2: make([]float64, hidden),
	}
	for i := range n.W1 {
		n.W1[i] = make([]float64, hidden)
		for j := range n.W1[i] {
			n.W1[i][j] = rng.Float64()*0.2 - 0.1
		}
	}
	for j := range n.W2 {
		n.W2[j] = rng.Float64()*0.2 - 0.1
	}
	return n
}

func (n *Network) Inputs() int { return len(n.W1) }
func (n *Network) Hidden() int { return len(n.W2) }

func (n *Network) validate() error {
	if n.Hidden() == 0 {
		return errors.New("network has no hidden units")
	}
	for i, row := range n.W1 {
		if len(row) != n.Hidden() {
			return errors.Errorf("w1 row %d has %d weights, want %d", i, len(row), n.Hidden())
		}
	}
	return nil
}

func (n *Network) forward(x []float64) (pre, act []float64, out float64) {
	hidden := n.Hidden()
	pre = make([]float64, hidden)
	act = make([]float64, hidden)
	for i, xi := range x {
		row := n.W1[i]
		for j := 0; j < hidden; j++ {
			pre[j] += xi * row[j]
		}
	}
	for j, v := range pre {
		if v > 0 {
			act[j] = v
		}
		out += act[j] * n.W2[j]
	}
	return pre, act, out
}

// Predict runs the forward pass on an already scaled input.
func (n *Network) Predict(x []float64) float64 {
	_, _, out := n.forward(x)
	return out
}

// Step applies one stochastic gradient descent update for a squared-error
// loss on (x, y) and returns the squared error before the update.
func (n *Network) Step(x []float64, y, lr float64) float64 {
	pre, act, out := n.forward(x)
	e := out - y
	for j := range n.W2 {
		// inactive units pass no gradient
		if pre[j] <= 0 {
			continue
		}
		delta := n.W2[j] * e
		n.W2[j] -= lr * act[j] * e
		for i, xi := range x {
			n.W1[i][j] -= lr * xi * delta
		}
	}
	return e * e
}
