// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

// The placeholder is what a camera tile shows when not one byte of real
// image has ever been obtained for it. A flat dark rectangle is visually
// distinguishable from any real feed, and generating it in-process means
// the fallback of last resort has no asset or network dependency.

const (
	placeholderWidth  = 320
	placeholderHeight = 180
)

// placeholderGray is the flat fill color.
var placeholderGray = color.NRGBA{R: 0x2b, G: 0x2b, B: 0x2b, A: 0xff}

var (
	placeholderOnce  sync.Once
	placeholderBytes []byte

	pixelOnce  sync.Once
	pixelBytes []byte
)

// Placeholder returns the PNG served when no image has ever loaded for a
// camera. Computed once per process and reused byte-identically.
func Placeholder() []byte {
	placeholderOnce.Do(func() {
		img := image.NewNRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i] = placeholderGray.R
			img.Pix[i+1] = placeholderGray.G
			img.Pix[i+2] = placeholderGray.B
			img.Pix[i+3] = placeholderGray.A
		}

		var buf bytes.Buffer
		// Encoding a flat in-memory image cannot fail; a panic here means
		// the process cannot produce its fallback of last resort anyway.
		if err := png.Encode(&buf, img); err != nil {
			panic("placeholder encode: " + err.Error())
		}
		placeholderBytes = buf.Bytes()
	})
	return placeholderBytes
}

// TransparentPixel returns a 1x1 fully transparent PNG, used by the
// redirect endpoint when resolution fails and a visible placeholder would
// be wrong for the embedding page.
func TransparentPixel() []byte {
	pixelOnce.Do(func() {
		img := image.NewNRGBA(image.Rect(0, 0, 1, 1))

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			panic("pixel encode: " + err.Error())
		}
		pixelBytes = buf.Bytes()
	})
	return pixelBytes
}
