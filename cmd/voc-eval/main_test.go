package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `annotations: testdata/annotations
images: testdata/images
classes: [person, car]
batch_size: 4
name: eval
model:
  path: model.onnx
  input_width: 416
  input_height: 416
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voc-eval.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "testdata/annotations", cfg.Annotations)
	assert.Equal(t, []string{"person", "car"}, cfg.Classes)
	assert.Equal(t, 4, cfg.BatchSize)
	assert.Equal(t, "eval", cfg.Name)
	assert.Equal(t, 416, cfg.Model.InputWidth)

	// Unset knobs fall back to defaults.
	assert.Equal(t, 25200, cfg.Model.Candidates)
	assert.Equal(t, float32(0.25), cfg.Model.Confidence)
	assert.Equal(t, "images", cfg.Model.InputName)
	assert.Equal(t, "output0", cfg.Model.OutputName)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("VOC_EVAL_ONNXRUNTIME_LIB", "/opt/ort/libonnxruntime.so")

	cfg, err := loadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "/opt/ort/libonnxruntime.so", cfg.Model.Library)
}

func TestLoadConfigValidation(t *testing.T) {
	_, err := loadConfig(writeConfig(t, "classes: [a]\nmodel:\n  path: m.onnx\n"))
	assert.Error(t, err, "missing dataset directories")

	_, err = loadConfig(writeConfig(t, "annotations: a\nimages: b\nclasses: [a]\n"))
	assert.Error(t, err, "missing model path")

	_, err = loadConfig(writeConfig(t, "annotations: a\nimages: b\nmodel:\n  path: m.onnx\n"))
	assert.Error(t, err, "missing classes")

	_, err = loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
