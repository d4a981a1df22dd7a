// Package avatar renders the default profile picture: a solid square with
// the account holder's initial centered on it.
package avatar

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

const (
	Size        = 200
	ContentType = "image/png"
	Background  = "#28A745"
	Foreground  = "#F5F5F5"

	fontSize = 100
)

var (
	faceOnce sync.Once
	face     font.Face
	faceErr  error
)

func loadFace() (font.Face, error) {
	faceOnce.Do(func() {
		var f *opentype.Font
		f, faceErr = opentype.Parse(gobold.TTF)
		if faceErr != nil {
			return
		}
		face, faceErr = opentype.NewFace(f, &opentype.FaceOptions{
			Size:    fontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	})
	return face, faceErr
}

// Generate returns a PNG with the upper-cased first letter of initial.
// An empty initial renders "?".
func Generate(initial string) ([]byte, error) {
	letter := "?"
	if r := []rune(strings.TrimSpace(initial)); len(r) > 0 {
		letter = strings.ToUpper(string(r[0]))
	}

	ff, err := loadFace()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}

	dc := gg.NewContext(Size, Size)
	dc.SetHexColor(Background)
	dc.Clear()
	dc.SetHexColor(Foreground)
	dc.SetFontFace(ff)
	dc.DrawStringAnchored(letter, Size/2, Size/2, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
