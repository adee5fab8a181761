package dataset

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/crease-analytics/faceoff/internal/models"
)

// Classifier is the opaque downstream model contract: fit on a feature
// matrix plus label vector, then score single rows.
type Classifier interface {
	Train(ds *models.Dataset) error
	PredictProba(row []float64) (float64, error)
}

// ErrNotTrained is returned when PredictProba is called before Train.
var ErrNotTrained = errors.New("dataset: classifier has not been trained")

// logisticRidge keeps the loss surface strictly convex so L-BFGS converges
// to finite weights even on linearly separable training sets.
const logisticRidge = 1e-4

// LogisticClassifier is the built-in baseline: logistic regression over the
// assembled differentials, fit by minimizing the ridge-regularized log-loss
// with L-BFGS. It keeps the system runnable end to end without an external
// model plugged in.
type LogisticClassifier struct {
	weights []float64 // weights[0] is the intercept
	columns []string
}

// NewLogisticClassifier creates an untrained baseline classifier.
func NewLogisticClassifier() *LogisticClassifier {
	return &LogisticClassifier{}
}

// Train fits the weights on the dataset.
func (c *LogisticClassifier) Train(ds *models.Dataset) error {
	if ds == nil || ds.Len() == 0 {
		return errors.New("dataset: cannot train on an empty dataset")
	}
	if len(ds.Rows) != len(ds.Labels) {
		return fmt.Errorf("dataset: %d rows but %d labels", len(ds.Rows), len(ds.Labels))
	}

	rows := ds.Len()
	dims := len(ds.Columns) + 1
	samples := float64(rows)

	// Design matrix with a leading intercept column.
	x := mat.NewDense(rows, dims, nil)
	y := make([]float64, rows)
	for i, row := range ds.Rows {
		x.Set(i, 0, 1)
		for k, v := range row {
			x.Set(i, k+1, v)
		}
		if ds.Labels[i] {
			y[i] = 1
		}
	}

	probs := func(w []float64) *mat.VecDense {
		z := mat.NewVecDense(rows, nil)
		z.MulVec(x, mat.NewVecDense(dims, w))
		for i := 0; i < rows; i++ {
			z.SetVec(i, sigmoid(z.AtVec(i)))
		}
		return z
	}

	problem := optimize.Problem{
		Func: func(w []float64) float64 {
			p := probs(w)
			loss := 0.0
			for i := 0; i < rows; i++ {
				loss += sampleLogLoss(p.AtVec(i), ds.Labels[i])
			}
			loss /= samples
			// The intercept stays unpenalized.
			for _, wk := range w[1:] {
				loss += 0.5 * logisticRidge * wk * wk
			}
			return loss
		},
		Grad: func(grad, w []float64) {
			p := probs(w)
			resid := mat.NewVecDense(rows, nil)
			for i := 0; i < rows; i++ {
				resid.SetVec(i, p.AtVec(i)-y[i])
			}
			g := mat.NewVecDense(dims, nil)
			g.MulVec(x.T(), resid)
			for k := range grad {
				grad[k] = g.AtVec(k) / samples
				if k > 0 {
					grad[k] += logisticRidge * w[k]
				}
			}
		},
	}

	settings := optimize.Settings{
		FuncEvaluations:   1000,
		GradientThreshold: 1e-6,
	}
	result, err := optimize.Minimize(problem, make([]float64, dims), &settings, &optimize.LBFGS{})
	if err != nil {
		return fmt.Errorf("dataset: logistic fit failed: %w", err)
	}

	c.weights = append([]float64(nil), result.X...)
	c.columns = append([]string(nil), ds.Columns...)
	return nil
}

// PredictProba scores one assembled feature row.
func (c *LogisticClassifier) PredictProba(row []float64) (float64, error) {
	if c.weights == nil {
		return 0, ErrNotTrained
	}
	if len(row) != len(c.weights)-1 {
		return 0, fmt.Errorf("dataset: row has %d features, model expects %d", len(row), len(c.weights)-1)
	}
	z := c.weights[0]
	for k, x := range row {
		z += c.weights[k+1] * x
	}
	return sigmoid(z), nil
}

func sigmoid(z float64) float64 {
	if z > 20 {
		return 1.0
	}
	if z < -20 {
		return 0.0
	}
	return 1.0 / (1.0 + math.Exp(-z))
}
