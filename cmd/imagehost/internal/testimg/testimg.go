// Package testimg builds small valid images for tests.
package testimg

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func pattern(seed int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x*16 + seed), G: uint8(y * 16), B: uint8(seed * 7), A: 255})
		}
	}
	return img
}

// JPEG returns a JPEG padded with trailing zero bytes up to padTo bytes.
// Decoders stop at the end-of-image marker, so the padding keeps it valid.
func JPEG(t testing.TB, seed, padTo int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, pattern(seed), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	if padTo > buf.Len() {
		buf.Write(make([]byte, padTo-buf.Len()))
	}
	return buf.Bytes()
}

// PNG returns a PNG whose pixels depend on seed
func PNG(t testing.TB, seed int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, pattern(seed)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// GIF returns a paletted GIF
func GIF(t testing.TB, seed int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := gif.Encode(&buf, pattern(seed), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

// AnimatedGIF returns a GIF with the given number of frames
func AnimatedGIF(t testing.TB, frames int) []byte {
	t.Helper()

	anim := &gif.GIF{}
	for i := 0; i < frames; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, 16, 16), palette.Plan9)
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				frame.SetColorIndex(x, y, uint8((x*y+i*37)%len(palette.Plan9)))
			}
		}
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 10)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

// PNGHeader returns a tiny PNG whose header declares width x height RGBA
// pixels but which carries no pixel data.
func PNGHeader(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], width)
	binary.BigEndian.PutUint32(ihdr[4:], height)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	writeChunk(&buf, "IHDR", ihdr)
	writeChunk(&buf, "IDAT", nil)
	writeChunk(&buf, "IEND", nil)
	return buf.Bytes()
}

func writeChunk(buf *bytes.Buffer, typ string, data []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(data)))
	buf.Write(n[:])

	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	buf.WriteString(typ)
	buf.Write(data)

	binary.BigEndian.PutUint32(n[:], crc.Sum32())
	buf.Write(n[:])
}
