// Package evaluator - Distributed VOC detection evaluation.
//
// The evaluator drives a predictor over a dataset, reconciles per-process
// shards into one globally ordered result set, scores it with per-class AP
// and mAP, and renders the scores into a named key/value report. Metric
// computation is centralized on the root process so floating-point results
// cannot diverge across ranks; every other rank returns an empty report.
package evaluator

import (
	"math"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-eval/comm"
	"github.com/nvr-ai/go-eval/dataset"
	"github.com/nvr-ai/go-eval/eval"
	"github.com/nvr-ai/go-eval/labels"
	"github.com/nvr-ai/go-eval/predictor"
	"github.com/nvr-ai/go-eval/report"
)

// DefaultTargetName keys the model under evaluation when the caller assigns
// no other identifier.
const DefaultTargetName = "main"

// Config assembles an Evaluator.
type Config struct {
	// Iterator drives the dataset. Required on the root (or only) process,
	// ignored on workers.
	Iterator dataset.Iterator
	// Target is the predictor under evaluation.
	Target predictor.Predictor
	// LabelNames maps class indices to report key names in order. Empty
	// falls back to numeric indices.
	LabelNames []string
	// Comm is the process group for a distributed run. Nil or a group of
	// size 1 means single-process.
	Comm comm.Communicator
	// Name, when set, prefixes every key produced by Run.
	Name string
	// TargetName keys the model in the report. Defaults to "main".
	TargetName string
	// BatchSize chunks shard prediction in distributed mode. Zero or less
	// predicts a rank's whole shard in one call.
	BatchSize int
	// IoUThreshold is the matching overlap; zero selects the VOC 0.5.
	IoUThreshold float32
	// Use07Metric selects 11-point interpolated AP.
	Use07Metric bool
}

// Evaluator composes prediction collection, cross-process aggregation, AP
// computation and report formatting.
type Evaluator struct {
	Config
	labels *labels.Set
}

// New validates the configuration and builds an evaluator.
func New(config Config) (*Evaluator, error) {
	if config.Target == nil {
		return nil, errors.New("a predictor is required")
	}
	if comm.RoleOf(config.Comm) == comm.RoleRoot && config.Iterator == nil {
		return nil, errors.New("the root process requires a dataset iterator")
	}
	if config.TargetName == "" {
		config.TargetName = DefaultTargetName
	}
	return &Evaluator{Config: config, labels: labels.NewSet(config.LabelNames)}, nil
}

// Evaluate computes the metrics silently and returns the raw report keyed by
// target name ("<target>/map", "<target>/ap/<label>"). The mapping is
// populated on the root (or only) process; worker ranks contribute their
// shard to the gather and successfully return an empty mapping. Nothing is
// published to any sink.
func (e *Evaluator) Evaluate() (report.Observation, error) {
	res, err := e.aggregate()
	if err != nil {
		return nil, err
	}
	if res == nil {
		return report.Observation{}, nil
	}

	result, err := eval.Evaluate(res.Preds, res.Truths, eval.Options{
		IoUThreshold: e.IoUThreshold,
		Use07Metric:  e.Use07Metric,
	})
	if err != nil {
		return nil, err
	}
	return e.format(result)
}

// Run performs the same computation as Evaluate and routes the result
// through the reporting path: every key gains the evaluator name prefix
// (when one is assigned) and the mapping is published into sink as a side
// effect. Worker ranks return an empty mapping and publish nothing.
func (e *Evaluator) Run(sink *report.Reporter) (report.Observation, error) {
	obs, err := e.Evaluate()
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return obs, nil
	}

	prefix := ""
	if e.Name != "" {
		prefix = e.Name + "/"
	}
	out := make(report.Observation, len(obs))
	for k, v := range obs {
		out[prefix+k] = v
	}

	if sink != nil {
		sink.Write(out)
	}
	return out, nil
}

// format renders an AP result into report keys. Every configured label gets
// an entry; classes the dataset never mentioned come out as NaN. Evaluated
// classes beyond the configured label list mean a label index was out of
// range somewhere upstream, which is fatal.
func (e *Evaluator) format(result *eval.Result) (report.Observation, error) {
	classes := e.labels.Len()
	if classes == 0 {
		classes = len(result.AP)
	}
	if len(result.AP) > classes {
		return nil, errors.Errorf("evaluated %d classes but only %d label names are configured", len(result.AP), classes)
	}

	obs := report.Observation{e.TargetName + "/map": result.MAP}
	for l := 0; l < classes; l++ {
		name, err := e.labels.Name(l)
		if err != nil {
			return nil, err
		}
		v := math.NaN()
		if l < len(result.AP) {
			v = result.AP[l]
		}
		obs[e.TargetName+"/ap/"+name] = v
	}
	return obs, nil
}
