package predictor

import (
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-eval/dataset"
	"github.com/nvr-ai/go-eval/detection"
)

// ONNXConfig configures an ONNX Runtime backed predictor.
type ONNXConfig struct {
	// ModelPath is the path to the .onnx model file.
	ModelPath string
	// LibraryPath points at the ONNX Runtime shared library. Empty leaves the
	// runtime's default lookup in place.
	LibraryPath string
	// InputWidth and InputHeight are the model input shape. Images handed to
	// Predict must already be CHW tensors of this shape.
	InputWidth, InputHeight int
	// NumClasses the model scores per candidate box.
	NumClasses int
	// Candidates is the number of candidate rows the model emits.
	Candidates int
	// ConfidenceThreshold drops candidates scored below it.
	ConfidenceThreshold float32
	// NMSThreshold is the IoU above which overlapping same-class boxes are
	// suppressed.
	NMSThreshold float32
	// InputName and OutputName are the graph tensor names.
	InputName  string
	OutputName string
}

// ONNXPredictor implements Predictor on top of an ONNX Runtime session. The
// session holds a single batch-1 input tensor, so Predict serializes access
// and runs the model once per image.
type ONNXPredictor struct {
	config  ONNXConfig
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	mu      sync.Mutex
}

// NewONNX creates an ONNX-backed predictor.
//
// Arguments:
//   - config: The session and postprocessing configuration.
//
// Returns:
//   - *ONNXPredictor: The predictor, ready to serve Predict calls.
//   - error: An error if the session creation fails.
func NewONNX(config ONNXConfig) (*ONNXPredictor, error) {
	if config.LibraryPath != "" {
		if _, err := os.Stat(config.LibraryPath); os.IsNotExist(err) {
			return nil, errors.Errorf("ONNX Runtime library not found at %s", config.LibraryPath)
		}
		ort.SetSharedLibraryPath(config.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "error initializing ORT environment")
		}
	}

	inputShape := ort.NewShape(1, 3, int64(config.InputHeight), int64(config.InputWidth))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}

	outputShape := ort.NewShape(1, int64(config.Candidates), int64(5+config.NumClasses))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session options")
	}
	defer options.Destroy()

	// A value of 0 uses the runtime's default thread counts.
	options.SetIntraOpNumThreads(4)
	options.SetInterOpNumThreads(2)
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(
		config.ModelPath,
		[]string{config.InputName},
		[]string{config.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	return &ONNXPredictor{
		config:  config,
		session: session,
		input:   inputTensor,
		output:  outputTensor,
	}, nil
}

// Predict implements Predictor.
func (p *ONNXPredictor) Predict(images []dataset.Image) ([]detection.Detections, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]detection.Detections, 0, len(images))
	for _, img := range images {
		data, ok := img.Data().([]float32)
		if !ok {
			return nil, errors.New("image tensor backing is not float32")
		}
		in := p.input.GetData()
		if len(data) != len(in) {
			return nil, errors.Errorf("image tensor has %d values, model input expects %d", len(data), len(in))
		}
		copy(in, data)

		if err := p.session.Run(); err != nil {
			return nil, errors.Wrap(err, "failed to run inference")
		}
		out = append(out, p.postprocess(p.output.GetData()))
	}
	return out, nil
}

// postprocess extracts detections from the raw model output. Each candidate
// row is [cx, cy, w, h, objectness, class scores...]; box coordinates come
// back in model input pixel space.
func (p *ONNXPredictor) postprocess(raw []float32) detection.Detections {
	cols := 5 + p.config.NumClasses
	var detections detection.Detections

	for i := 0; i < p.config.Candidates; i++ {
		row := raw[i*cols : (i+1)*cols]
		confidence := row[4]
		if confidence < p.config.ConfidenceThreshold {
			continue
		}

		// Find the class with highest confidence.
		classID := 0
		maxScore := float32(0)
		for j := 5; j < cols; j++ {
			if row[j] > maxScore {
				maxScore = row[j]
				classID = j - 5
			}
		}

		finalConfidence := confidence * maxScore
		if finalConfidence < p.config.ConfidenceThreshold {
			continue
		}

		centerX, centerY := row[0], row[1]
		width, height := row[2], row[3]
		detections = append(detections, detection.Detection{
			Box: detection.Box{
				X1: centerX - width/2,
				Y1: centerY - height/2,
				X2: centerX + width/2,
				Y2: centerY + height/2,
			},
			Label: classID,
			Score: finalConfidence,
		})
	}

	return applyNMS(detections, p.config.NMSThreshold)
}

// applyNMS filters overlapping same-class detections with greedy
// Non-Maximum Suppression.
func applyNMS(detections detection.Detections, threshold float32) detection.Detections {
	if len(detections) == 0 {
		return detections
	}

	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Score > detections[j].Score
	})

	var result detection.Detections
	used := make([]bool, len(detections))

	for i := 0; i < len(detections); i++ {
		if used[i] {
			continue
		}
		result = append(result, detections[i])
		used[i] = true

		for j := i + 1; j < len(detections); j++ {
			if used[j] || detections[i].Label != detections[j].Label {
				continue
			}
			if detection.IoU(detections[i].Box, detections[j].Box) > threshold {
				used[j] = true
			}
		}
	}

	return result
}

// Close releases the session and its tensors.
func (p *ONNXPredictor) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		p.session.Destroy()
		p.session = nil
	}
	if p.input != nil {
		p.input.Destroy()
		p.input = nil
	}
	if p.output != nil {
		p.output.Destroy()
		p.output = nil
	}
}
