package render

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/liamjwang/xreg/pkg/volume"
)

// Remap8bpp windows a float image to 8 bits: the minimum maps to 0 and
// the maximum to 255. A constant image maps to all zeros.
func Remap8bpp(im *volume.Image) *image.Gray {
	min := float32(math.Inf(1))
	max := float32(math.Inf(-1))
	for _, v := range im.Data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	out := image.NewGray(image.Rect(0, 0, im.Cols, im.Rows))
	span := max - min
	if span <= 0 {
		return out
	}
	for r := 0; r < im.Rows; r++ {
		for c := 0; c < im.Cols; c++ {
			v := (im.At(r, c) - min) / span
			out.SetGray(c, r, color.Gray{Y: uint8(v*255 + 0.5)})
		}
	}
	return out
}

// ExtractEdges computes a binary edge map from a float image using
// Sobel gradient magnitudes: a pixel is an edge when its magnitude
// exceeds threshold times the maximum magnitude over the image. Border
// pixels are never edges.
func ExtractEdges(im *volume.Image, threshold float64) *image.Gray {
	rows, cols := im.Rows, im.Cols
	mag := make([]float64, rows*cols)
	maxMag := 0.0

	for r := 1; r < rows-1; r++ {
		for c := 1; c < cols-1; c++ {
			gx := -float64(im.At(r-1, c-1)) + float64(im.At(r-1, c+1)) +
				-2*float64(im.At(r, c-1)) + 2*float64(im.At(r, c+1)) +
				-float64(im.At(r+1, c-1)) + float64(im.At(r+1, c+1))
			gy := -float64(im.At(r-1, c-1)) - 2*float64(im.At(r-1, c)) - float64(im.At(r-1, c+1)) +
				float64(im.At(r+1, c-1)) + 2*float64(im.At(r+1, c)) + float64(im.At(r+1, c+1))

			m := math.Sqrt(gx*gx + gy*gy)
			mag[r*cols+c] = m
			if m > maxMag {
				maxMag = m
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, cols, rows))
	if maxMag == 0 {
		return out
	}
	cut := threshold * maxMag
	for r := 1; r < rows-1; r++ {
		for c := 1; c < cols-1; c++ {
			if mag[r*cols+c] > cut {
				out.SetGray(c, r, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// OverlayEdges draws the edge map in red over a grayscale base image.
// The two images must share dimensions.
func OverlayEdges(base *image.Gray, edges *image.Gray) (*image.RGBA, error) {
	if !base.Rect.Eq(edges.Rect) {
		return nil, fmt.Errorf("base %v and edge %v dimensions differ", base.Rect, edges.Rect)
	}

	out := image.NewRGBA(base.Rect)
	for y := base.Rect.Min.Y; y < base.Rect.Max.Y; y++ {
		for x := base.Rect.Min.X; x < base.Rect.Max.X; x++ {
			if edges.GrayAt(x, y).Y > 0 {
				out.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
			} else {
				g := base.GrayAt(x, y).Y
				out.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: 255})
			}
		}
	}
	return out, nil
}

// Rotate180 returns the image rotated by half a turn, used to put
// projections patient-up for display.
func Rotate180(im *image.Gray) *image.Gray {
	b := im.Rect
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.SetGray(b.Max.X-1-x+b.Min.X, b.Max.Y-1-y+b.Min.Y, im.GrayAt(x, y))
		}
	}
	return out
}

// SavePNG writes an image as PNG.
func SavePNG(im image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, im)
}

// SaveMetaImage writes a float image as a single-file MetaImage (.mha):
// a text header followed by raw little-endian float32 pixels. The
// format keeps the unremapped line-integral values available to
// downstream tools.
func SaveMetaImage(im *volume.Image, rowSpacing, colSpacing float64, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "ObjectType = Image\n")
	fmt.Fprintf(w, "NDims = 2\n")
	fmt.Fprintf(w, "DimSize = %d %d\n", im.Cols, im.Rows)
	fmt.Fprintf(w, "ElementSpacing = %g %g\n", colSpacing, rowSpacing)
	fmt.Fprintf(w, "ElementByteOrderMSB = False\n")
	fmt.Fprintf(w, "ElementType = MET_FLOAT\n")
	fmt.Fprintf(w, "ElementDataFile = LOCAL\n")

	if err := binary.Write(w, binary.LittleEndian, im.Data); err != nil {
		return err
	}
	return w.Flush()
}
