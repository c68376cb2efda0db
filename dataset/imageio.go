package dataset

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"
)

// ReadImageFile decodes an image from disk with OpenCV and returns it as a
// CHW float32 tensor at the requested shape.
func ReadImageFile(path string, width, height int) (Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		return nil, errors.Errorf("could not read image %s", path)
	}
	defer mat.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(resized, &rgb, gocv.ColorBGRToRGB)

	img, err := rgb.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "mat conversion failed")
	}
	return FromImage(img, width, height)
}

// FromImage converts a decoded image to a CHW float32 tensor with pixel
// values scaled to [0, 1], resizing with Lanczos when the source shape
// differs from the target. This is the pure-Go path for callers that already
// hold an image.Image.
func FromImage(img image.Image, width, height int) (Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid target shape %dx%d", width, height)
	}
	if img.Bounds().Dx() != width || img.Bounds().Dy() != height {
		img = resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	}

	data := make([]float32, 3*height*width)
	idx := 0
	for c := 0; c < 3; c++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(x, y).RGBA()
				switch c {
				case 0:
					data[idx] = float32(r>>8) / 255.0
				case 1:
					data[idx] = float32(g>>8) / 255.0
				case 2:
					data[idx] = float32(b>>8) / 255.0
				}
				idx++
			}
		}
	}

	return tensor.New(tensor.WithShape(3, height, width), tensor.WithBacking(data)), nil
}
