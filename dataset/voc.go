package dataset

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-eval/detection"
	"github.com/nvr-ai/go-eval/labels"
)

// vocAnnotation mirrors one PASCAL VOC annotation XML file.
type vocAnnotation struct {
	XMLName  xml.Name    `xml:"annotation"`
	Filename string      `xml:"filename"`
	Objects  []vocObject `xml:"object"`
}

type vocObject struct {
	Name      string `xml:"name"`
	Difficult int    `xml:"difficult"`
	Bndbox    struct {
		Xmin float32 `xml:"xmin"`
		Ymin float32 `xml:"ymin"`
		Xmax float32 `xml:"xmax"`
		Ymax float32 `xml:"ymax"`
	} `xml:"bndbox"`
}

// LoadVOC reads a directory of VOC annotation XML files and their referenced
// images into an in-memory dataset. Examples are ordered by annotation file
// name so repeated loads iterate identically. Images are decoded to CHW
// float32 tensors of the given shape; class names are resolved against the
// configured set and unknown names are an error.
func LoadVOC(annDir, imgDir string, classes *labels.Set, width, height int) (*SliceDataset, error) {
	entries, err := os.ReadDir(annDir)
	if err != nil {
		return nil, errors.Wrap(err, "reading annotation directory")
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := &SliceDataset{}
	for _, name := range names {
		file, truth, err := ReadAnnotation(filepath.Join(annDir, name), classes)
		if err != nil {
			return nil, err
		}

		img, err := ReadImageFile(filepath.Join(imgDir, file), width, height)
		if err != nil {
			return nil, err
		}

		out.Images = append(out.Images, img)
		out.Truth = append(out.Truth, truth)
	}
	return out, nil
}

// ReadAnnotation parses one VOC annotation XML file into ground truth,
// returning the image file name it references.
func ReadAnnotation(path string, classes *labels.Set) (string, detection.GroundTruth, error) {
	ann, err := readAnnotation(path)
	if err != nil {
		return "", detection.GroundTruth{}, err
	}

	truth := detection.GroundTruth{}
	difficult := false
	for _, obj := range ann.Objects {
		idx, err := classes.Index(obj.Name)
		if err != nil {
			return "", detection.GroundTruth{}, errors.Wrapf(err, "annotation %s", path)
		}
		// VOC pixel coordinates start at 1.
		truth.Boxes = append(truth.Boxes, detection.Box{
			X1: obj.Bndbox.Xmin - 1,
			Y1: obj.Bndbox.Ymin - 1,
			X2: obj.Bndbox.Xmax - 1,
			Y2: obj.Bndbox.Ymax - 1,
		})
		truth.Labels = append(truth.Labels, idx)
		truth.Difficult = append(truth.Difficult, obj.Difficult != 0)
		difficult = difficult || obj.Difficult != 0
	}
	if !difficult {
		truth.Difficult = nil
	}
	return ann.Filename, truth, nil
}

func readAnnotation(path string) (*vocAnnotation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading annotation")
	}
	var ann vocAnnotation
	if err := xml.Unmarshal(data, &ann); err != nil {
		return nil, errors.Wrapf(err, "parsing annotation %s", path)
	}
	return &ann, nil
}
