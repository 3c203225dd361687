package record

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/handeye/spatialmath"
)

// AxisSummary describes the spread of one pose component across a data file. A calibration
// needs enough spread in every component to be well conditioned.
type AxisSummary struct {
	Component spatialmath.Component
	Min       float64
	Max       float64
	Mean      float64
	StdDev    float64
}

// Span is Max - Min.
func (a AxisSummary) Span() float64 {
	return a.Max - a.Min
}

// Summarize returns one AxisSummary per pose component, in X..RZ order.
func Summarize(records []Record) ([]AxisSummary, error) {
	if len(records) == 0 {
		return nil, errors.New("no records to summarize")
	}
	out := make([]AxisSummary, 0, len(spatialmath.Pose{}))
	for c := spatialmath.X; c <= spatialmath.RZ; c++ {
		data := make(stats.Float64Data, 0, len(records))
		for _, r := range records {
			data = append(data, r.Measured[c])
		}
		minV, err := data.Min()
		if err != nil {
			return nil, err
		}
		maxV, err := data.Max()
		if err != nil {
			return nil, err
		}
		mean, err := data.Mean()
		if err != nil {
			return nil, err
		}
		sd, err := data.StandardDeviation()
		if err != nil {
			return nil, err
		}
		out = append(out, AxisSummary{Component: c, Min: minV, Max: maxV, Mean: mean, StdDev: sd})
	}
	return out, nil
}
