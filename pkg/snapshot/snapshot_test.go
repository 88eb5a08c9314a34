package snapshot

import (
	"testing"

	"gocv.io/x/gocv"
)

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	defer img.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out
}

func decodeSize(t *testing.T, jpeg []byte) (w, h int) {
	t.Helper()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	defer img.Close()
	return img.Cols(), img.Rows()
}

func TestValidate(t *testing.T) {
	if err := Validate(makeJPEG(t, 100, 80)); err != nil {
		t.Errorf("valid JPEG rejected: %v", err)
	}
	if err := Validate([]byte("not a jpeg")); err == nil {
		t.Error("garbage accepted")
	}
}

func TestNormalizeDownscales(t *testing.T) {
	out, err := Normalize(makeJPEG(t, 1280, 720), 640)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	w, h := decodeSize(t, out)
	if w != 640 {
		t.Errorf("width = %d, want 640", w)
	}
	if h != 360 {
		t.Errorf("height = %d, want 360 (aspect preserved)", h)
	}
}

func TestNormalizeKeepsSmallImages(t *testing.T) {
	out, err := Normalize(makeJPEG(t, 320, 240), 640)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	w, h := decodeSize(t, out)
	if w != 320 || h != 240 {
		t.Errorf("size = %dx%d, want 320x240", w, h)
	}
}

func TestNormalizeDefaultsMaxWidth(t *testing.T) {
	out, err := Normalize(makeJPEG(t, 1280, 720), 0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if w, _ := decodeSize(t, out); w != DefaultMaxWidth {
		t.Errorf("width = %d, want %d", w, DefaultMaxWidth)
	}
}
