// Command voc-eval scores an ONNX detection model against a PASCAL VOC
// dataset and prints per-class AP and mAP.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-eval/dataset"
	"github.com/nvr-ai/go-eval/evaluator"
	"github.com/nvr-ai/go-eval/labels"
	"github.com/nvr-ai/go-eval/predictor"
	"github.com/nvr-ai/go-eval/report"
)

type modelConfig struct {
	Path        string  `yaml:"path"`
	Library     string  `yaml:"library" envconfig:"ONNXRUNTIME_LIB"`
	InputWidth  int     `yaml:"input_width"`
	InputHeight int     `yaml:"input_height"`
	Candidates  int     `yaml:"candidates"`
	Confidence  float32 `yaml:"confidence"`
	NMS         float32 `yaml:"nms"`
	InputName   string  `yaml:"input_name"`
	OutputName  string  `yaml:"output_name"`
}

type config struct {
	Annotations  string      `yaml:"annotations"`
	Images       string      `yaml:"images"`
	Classes      []string    `yaml:"classes"`
	BatchSize    int         `yaml:"batch_size"`
	Name         string      `yaml:"name"`
	IoUThreshold float32     `yaml:"iou_threshold"`
	Use07Metric  bool        `yaml:"use_07_metric" envconfig:"USE_07_METRIC"`
	Model        modelConfig `yaml:"model"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("evaluation failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "voc-eval",
		Short:         "Evaluate an ONNX detection model with VOC average precision",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "voc-eval.yaml", "path to the evaluation config")
	return cmd
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	slog.Info("loading dataset", "annotations", cfg.Annotations, "images", cfg.Images)
	classes := labels.NewSet(cfg.Classes)
	ds, err := dataset.LoadVOC(cfg.Annotations, cfg.Images, classes, cfg.Model.InputWidth, cfg.Model.InputHeight)
	if err != nil {
		return err
	}
	slog.Info("dataset loaded", "examples", ds.Len(), "classes", classes.Len())

	pred, err := predictor.NewONNX(predictor.ONNXConfig{
		ModelPath:           cfg.Model.Path,
		LibraryPath:         cfg.Model.Library,
		InputWidth:          cfg.Model.InputWidth,
		InputHeight:         cfg.Model.InputHeight,
		NumClasses:          len(cfg.Classes),
		Candidates:          cfg.Model.Candidates,
		ConfidenceThreshold: cfg.Model.Confidence,
		NMSThreshold:        cfg.Model.NMS,
		InputName:           cfg.Model.InputName,
		OutputName:          cfg.Model.OutputName,
	})
	if err != nil {
		return err
	}
	defer pred.Close()

	e, err := evaluator.New(evaluator.Config{
		Iterator:     ds.Iterator(cfg.BatchSize),
		Target:       pred,
		LabelNames:   cfg.Classes,
		Name:         cfg.Name,
		IoUThreshold: cfg.IoUThreshold,
		Use07Metric:  cfg.Use07Metric,
	})
	if err != nil {
		return err
	}

	sink := report.NewReporter()
	obs, err := e.Run(sink)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(obs))
	for k := range obs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%-40s %.4f\n", k, obs[k])
	}
	return nil
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	cfg := &config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	if err := envconfig.Process("voc_eval", cfg); err != nil {
		return nil, errors.Wrap(err, "applying environment overrides")
	}
	applyDefaults(cfg)

	if cfg.Annotations == "" || cfg.Images == "" {
		return nil, errors.New("annotations and images directories are required")
	}
	if cfg.Model.Path == "" {
		return nil, errors.New("model path is required")
	}
	if len(cfg.Classes) == 0 {
		return nil, errors.New("at least one class name is required")
	}
	return cfg, nil
}

func applyDefaults(cfg *config) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 8
	}
	if cfg.Model.InputWidth <= 0 {
		cfg.Model.InputWidth = 640
	}
	if cfg.Model.InputHeight <= 0 {
		cfg.Model.InputHeight = 640
	}
	if cfg.Model.Candidates <= 0 {
		cfg.Model.Candidates = 25200
	}
	if cfg.Model.Confidence <= 0 {
		cfg.Model.Confidence = 0.25
	}
	if cfg.Model.NMS <= 0 {
		cfg.Model.NMS = 0.45
	}
	if cfg.Model.InputName == "" {
		cfg.Model.InputName = "images"
	}
	if cfg.Model.OutputName == "" {
		cfg.Model.OutputName = "output0"
	}
}
