// Package fake implements a fake camera which always returns the same image with a user specified
// resolution: a yellow to blue gradient with a checkerboard target in the middle.
package fake

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const (
	initialWidth  = 1280
	initialHeight = 720
	boardSquares  = 8
)

// Config are the attributes of the fake camera config.
type Config struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// Validate checks that the config attributes are valid for a fake camera.
func (conf *Config) Validate(path string) error {
	if conf.Height%2 != 0 {
		return errors.Errorf("odd-number resolutions cannot be rendered, cannot use a height of %d", conf.Height)
	}
	if conf.Width%2 != 0 {
		return errors.Errorf("odd-number resolutions cannot be rendered, cannot use a width of %d", conf.Width)
	}
	if conf.Width < 0 || conf.Height < 0 {
		return errors.Errorf("%s: resolution must not be negative", path)
	}
	return nil
}

// NewCamera returns a new fake camera.
func NewCamera(conf *Config) (*Camera, error) {
	if err := conf.Validate("camera"); err != nil {
		return nil, err
	}
	width, height := fakeSize(conf.Width, conf.Height)
	return &Camera{Width: width, Height: height}, nil
}

// fakeSize fills in an unspecified side keeping the 16:9 aspect ratio.
func fakeSize(width, height int) (int, int) {
	switch {
	case width > 0 && height > 0:
		return width, height
	case width > 0 && height <= 0:
		ratio := float64(width) / float64(initialWidth)
		newHeight := int(float64(initialHeight) * ratio)
		if newHeight%2 != 0 {
			newHeight++
		}
		return width, newHeight
	case width <= 0 && height > 0:
		ratio := float64(height) / float64(initialHeight)
		newWidth := int(float64(initialWidth) * ratio)
		if newWidth%2 != 0 {
			newWidth++
		}
		return newWidth, height
	default:
		return initialWidth, initialHeight
	}
}

// Camera is a fake camera that always returns the same image.
type Camera struct {
	Width  int
	Height int

	mu         sync.Mutex
	cacheImage image.Image
	reads      int
}

// Read always returns the same image.
func (c *Camera) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.cacheImage != nil {
		return c.cacheImage, nil
	}

	width := float64(c.Width)
	height := float64(c.Height)
	img := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))

	totalDist := math.Sqrt(math.Pow(0-width, 2) + math.Pow(0-height, 2))

	var x, y float64
	for x = 0; x < width; x++ {
		for y = 0; y < height; y++ {
			dist := math.Sqrt(math.Pow(0-x, 2) + math.Pow(0-y, 2))
			dist /= totalDist
			thisColor := color.RGBA{uint8(255 - (255 * dist)), uint8(255 - (255 * dist)), uint8(0 + (255 * dist)), 255}
			img.Set(int(x), int(y), thisColor)
		}
	}

	board := checkerboard(min(c.Width, c.Height) / 2)
	offset := image.Pt((c.Width-board.Bounds().Dx())/2, (c.Height-board.Bounds().Dy())/2)
	c.cacheImage = imaging.Overlay(img, board, offset, 1.0)
	return c.cacheImage, nil
}

// Reads returns how many frames were served.
func (c *Camera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

func checkerboard(size int) image.Image {
	square := size / boardSquares
	if square < 1 {
		square = 1
	}
	board := imaging.New(square*boardSquares, square*boardSquares, color.White)
	black := imaging.New(square, square, color.Black)
	for row := 0; row < boardSquares; row++ {
		for col := 0; col < boardSquares; col++ {
			if (row+col)%2 == 0 {
				board = imaging.Paste(board, black, image.Pt(col*square, row*square))
			}
		}
	}
	return board
}

// Close does nothing.
func (c *Camera) Close(ctx context.Context) error {
	return nil
}
