package pdfrender

import (
	"image"
	"testing"
)

func TestPagePartEffectiveWidth(t *testing.T) {
	if got := FullPage.EffectiveWidth(800); got != 800 {
		t.Errorf("FullPage.EffectiveWidth(800) = %v, want 800", got)
	}
	if got := LeftHalf.EffectiveWidth(800); got != 400 {
		t.Errorf("LeftHalf.EffectiveWidth(800) = %v, want 400", got)
	}
	if got := RightHalf.EffectiveWidth(800); got != 400 {
		t.Errorf("RightHalf.EffectiveWidth(800) = %v, want 400", got)
	}
}

func TestCropToPart(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 60))

	full := cropToPart(img, FullPage)
	if full.Bounds().Dx() != 100 {
		t.Errorf("FullPage crop width = %d, want 100", full.Bounds().Dx())
	}

	left := cropToPart(img, LeftHalf)
	if left.Bounds().Dx() != 50 || left.Bounds().Dy() != 60 {
		t.Errorf("LeftHalf crop = %v, want 50x60", left.Bounds())
	}

	right := cropToPart(img, RightHalf)
	if right.Bounds().Dx() != 50 || right.Bounds().Dy() != 60 {
		t.Errorf("RightHalf crop = %v, want 50x60", right.Bounds())
	}
}

func TestNewRendererUnknownEngine(t *testing.T) {
	if _, err := NewRenderer("ghostscript", "missing.pdf", FullPage); err == nil {
		t.Error("expected error for unknown engine")
	}
}
