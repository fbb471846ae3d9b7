package screenshot

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/draw"
)

// Comparison thresholds. SSIM constants per the standard definition with
// L=1 (normalized luminance).
const (
	blankStdDev = 3.0 / 255.0

	ssimC1 = 0.01 * 0.01
	ssimC2 = 0.03 * 0.03

	ssimWindow = 8
)

// Verify checks that a captured screenshot looks like a rendered page:
// readable and not a single flat color (blank/failed render).
func Verify(path string) error {
	img, err := loadGray(path)
	if err != nil {
		return fmt.Errorf("cannot read screenshot: %w", err)
	}
	if img.stdDev() < blankStdDev {
		return fmt.Errorf("screenshot is blank (failed render)")
	}
	return nil
}

// Compare returns the mean structural similarity between a captured
// screenshot and a baseline, in [0, 1]. The baseline is resized to the
// capture's dimensions when they differ.
func (e *Engine) Compare(capturedPath, baselinePath string) (float64, error) {
	captured, err := loadGray(capturedPath)
	if err != nil {
		return 0, fmt.Errorf("cannot read screenshot: %w", err)
	}
	baseline, err := loadGray(baselinePath)
	if err != nil {
		return 0, fmt.Errorf("cannot read baseline: %w", err)
	}
	if baseline.w != captured.w || baseline.h != captured.h {
		baseline = baseline.resize(captured.w, captured.h)
	}
	return ssim(captured, baseline), nil
}

// Matches reports whether score clears the engine threshold.
func (e *Engine) Matches(score float64) bool {
	return score >= e.Threshold
}

// grayImage is a normalized grayscale raster ([0,1] per pixel).
type grayImage struct {
	pix  []float64
	w, h int
}

func loadGray(path string) (*grayImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := png.Decode(f)
	if err != nil {
		return nil, err
	}
	return toGray(src), nil
}

func toGray(src image.Image) *grayImage {
	b := src.Bounds()
	g := &grayImage{
		pix: make([]float64, b.Dx()*b.Dy()),
		w:   b.Dx(),
		h:   b.Dy(),
	}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, gg, bb, _ := src.At(x, y).RGBA()
			// ITU-R BT.601 luma, 16-bit channels normalized to [0,1].
			g.pix[i] = (0.299*float64(r) + 0.587*float64(gg) + 0.114*float64(bb)) / 65535.0
			i++
		}
	}
	return g
}

func (g *grayImage) resize(w, h int) *grayImage {
	src := image.NewGray16(image.Rect(0, 0, g.w, g.h))
	for i, v := range g.pix {
		src.Pix[i*2] = uint8(uint16(v*65535) >> 8)
		src.Pix[i*2+1] = uint8(uint16(v * 65535))
	}
	dst := image.NewGray16(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return toGray(dst)
}

func (g *grayImage) stdDev() float64 {
	if len(g.pix) == 0 {
		return 0
	}
	var sum float64
	for _, v := range g.pix {
		sum += v
	}
	mean := sum / float64(len(g.pix))
	var sq float64
	for _, v := range g.pix {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(g.pix)))
}

// ssim computes the mean SSIM over non-overlapping windows.
func ssim(a, b *grayImage) float64 {
	var total float64
	var windows int

	for y := 0; y+ssimWindow <= a.h; y += ssimWindow {
		for x := 0; x+ssimWindow <= a.w; x += ssimWindow {
			total += windowSSIM(a, b, x, y)
			windows++
		}
	}
	if windows == 0 {
		// Image smaller than one window: fall back to a single window
		// covering everything.
		return windowSSIMRect(a, b, 0, 0, a.w, a.h)
	}
	return total / float64(windows)
}

func windowSSIM(a, b *grayImage, x, y int) float64 {
	return windowSSIMRect(a, b, x, y, ssimWindow, ssimWindow)
}

func windowSSIMRect(a, b *grayImage, x, y, w, h int) float64 {
	n := float64(w * h)
	if n <= 1 {
		return 1
	}

	var sumA, sumB float64
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			sumA += a.pix[j*a.w+i]
			sumB += b.pix[j*b.w+i]
		}
	}
	muA, muB := sumA/n, sumB/n

	var varA, varB, cov float64
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			da := a.pix[j*a.w+i] - muA
			db := b.pix[j*b.w+i] - muB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	varA /= n - 1
	varB /= n - 1
	cov /= n - 1

	num := (2*muA*muB + ssimC1) * (2*cov + ssimC2)
	den := (muA*muA + muB*muB + ssimC1) * (varA + varB + ssimC2)
	return num / den
}
