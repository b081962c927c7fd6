// Package imaging decodes camera frames, cuts profile thumbnails out of them and
// fingerprints them so near-identical registration samples can be skipped.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const jpegQuality = 85

// Decode decodes a JPEG, PNG or BMP frame.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// EncodeJPEG encodes img as a JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ToJPEG re-encodes a PNG or BMP frame as JPEG; JPEG input is returned unchanged.
func ToJPEG(data []byte) ([]byte, error) {
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return data, nil
	}
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(img)
}

// Thumbnail crops the frame to the face box, widened by a quarter on every side,
// and scales it to fit within maxSize. A nil or malformed box keeps the whole frame.
func Thumbnail(frame []byte, bbox []float64, maxSize int) ([]byte, error) {
	img, err := Decode(frame)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if crop, ok := faceCrop(bounds, bbox); ok {
		bounds = crop
	}

	width := bounds.Dx()
	height := bounds.Dy()
	newWidth, newHeight := width, height
	if width > maxSize || height > maxSize {
		if width > height {
			newWidth = maxSize
			newHeight = max(1, int(float64(height)*float64(maxSize)/float64(width)))
		} else {
			newHeight = maxSize
			newWidth = max(1, int(float64(width)*float64(maxSize)/float64(height)))
		}
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return EncodeJPEG(resized)
}

func faceCrop(frame image.Rectangle, bbox []float64) (image.Rectangle, bool) {
	if len(bbox) != 4 || bbox[2] <= bbox[0] || bbox[3] <= bbox[1] {
		return image.Rectangle{}, false
	}
	marginX := (bbox[2] - bbox[0]) / 4
	marginY := (bbox[3] - bbox[1]) / 4
	r := image.Rect(
		int(bbox[0]-marginX), int(bbox[1]-marginY),
		int(bbox[2]+marginX), int(bbox[3]+marginY),
	).Intersect(frame)
	if r.Empty() {
		return image.Rectangle{}, false
	}
	return r, true
}

// DHash computes a 64-bit difference hash of an image.
func DHash(data []byte) (uint64, error) {
	img, err := Decode(data)
	if err != nil {
		return 0, err
	}

	// 9 columns give 8 horizontal differences per row
	small := image.NewRGBA(image.Rect(0, 0, 9, 8))
	draw.BiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Over, nil)
	gray := toGrayscale(small)

	var hash uint64
	bit := 63
	for y := range 8 {
		for x := range 8 {
			if gray[x][y] > gray[x+1][y] {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash, nil
}

// HammingDistance computes the Hamming distance between two 64-bit hashes.
func HammingDistance(hash1, hash2 uint64) int {
	xor := hash1 ^ hash2
	distance := 0
	for xor != 0 {
		distance++
		xor &= xor - 1 // Clear lowest set bit
	}
	return distance
}

// NearDuplicate reports whether two hashes are within threshold bits of each other.
func NearDuplicate(hash1, hash2 uint64, threshold int) bool {
	return HammingDistance(hash1, hash2) <= threshold
}

// toGrayscale converts an image to a 2D array of grayscale values (0-255).
func toGrayscale(img *image.RGBA) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, width)
	for x := range width {
		gray[x] = make([]float64, height)
		for y := range height {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			gray[x][y] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return gray
}
