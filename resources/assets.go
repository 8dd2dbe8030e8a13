package resources

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"fyne.io/fyne/v2"
)

// IconVariant selects the tray icon artwork.
type IconVariant string

const (
	IconActive IconVariant = "active"
	IconPaused IconVariant = "paused"
)

const iconSize = 64

var iconCache sync.Map

// Icon returns the eye icon for variant as a PNG resource.
func Icon(variant IconVariant) (fyne.Resource, error) {
	name := fmt.Sprintf("eyenav-%s.png", variant)
	if cached, ok := iconCache.Load(name); ok {
		return cached.(fyne.Resource), nil
	}

	iris, ok := irisColors[variant]
	if !ok {
		return nil, fmt.Errorf("load icon %s: unknown variant", variant)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, drawEye(iconSize, iris)); err != nil {
		return nil, fmt.Errorf("encode icon %s: %w", name, err)
	}

	resource := fyne.NewStaticResource(name, buf.Bytes())
	iconCache.Store(name, resource)
	return resource, nil
}

// MustIcon returns the icon or panics on error.
func MustIcon(variant IconVariant) fyne.Resource {
	resource, err := Icon(variant)
	if err != nil {
		panic(err)
	}
	return resource
}

var irisColors = map[IconVariant]color.NRGBA{
	IconActive: {R: 66, G: 160, B: 232, A: 255},
	IconPaused: {R: 140, G: 140, B: 140, A: 255},
}

// drawEye renders an almond outline with an iris and pupil.
func drawEye(size int, iris color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	white := color.NRGBA{R: 250, G: 250, B: 250, A: 255}
	outline := color.NRGBA{R: 40, G: 40, B: 40, A: 255}
	pupil := color.NRGBA{R: 10, G: 10, B: 10, A: 255}

	center := float64(size) / 2
	halfWidth := float64(size) * 0.46
	halfHeight := float64(size) * 0.28
	irisRadius := float64(size) * 0.17
	pupilRadius := float64(size) * 0.07

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := (float64(x) + 0.5 - center) / halfWidth
			dy := (float64(y) + 0.5 - center) / halfHeight
			eye := dx*dx + dy*dy
			if eye > 1 {
				continue
			}
			px := float64(x) + 0.5 - center
			py := float64(y) + 0.5 - center
			distance := px*px + py*py
			switch {
			case eye > 0.8:
				img.SetNRGBA(x, y, outline)
			case distance <= pupilRadius*pupilRadius:
				img.SetNRGBA(x, y, pupil)
			case distance <= irisRadius*irisRadius:
				img.SetNRGBA(x, y, iris)
			default:
				img.SetNRGBA(x, y, white)
			}
		}
	}
	return img
}
