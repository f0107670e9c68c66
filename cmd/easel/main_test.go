package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/easel/internal/config"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 64, 48))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestWriteExport(t *testing.T) {
	dir := t.TempDir()
	data := testPNG(t)

	pngPath := filepath.Join(dir, "out.png")
	if err := writeExport(pngPath, data); err != nil {
		t.Fatalf("writeExport(png) error = %v", err)
	}
	got, _ := os.ReadFile(pngPath)
	if !bytes.Equal(got, data) {
		t.Error("PNG export should copy the stored image")
	}

	pdfPath := filepath.Join(dir, "out.PDF")
	if err := writeExport(pdfPath, data); err != nil {
		t.Fatalf("writeExport(pdf) error = %v", err)
	}
	got, _ = os.ReadFile(pdfPath)
	if !strings.HasPrefix(string(got), "%PDF-") {
		t.Error("PDF export should write a PDF")
	}

	if err := writeExport(filepath.Join(dir, "out.gif"), data); err == nil {
		t.Error("unsupported extension should fail")
	}
	if err := writeExport(filepath.Join(dir, "bad.pdf"), []byte("junk")); err == nil {
		t.Error("non-PNG data should fail PDF export")
	}
}

func TestBrowserURL(t *testing.T) {
	tests := map[string]string{
		":8080":          "http://localhost:8080",
		"127.0.0.1:9000": "http://127.0.0.1:9000",
	}
	for addr, want := range tests {
		if got := browserURL(addr); got != want {
			t.Errorf("browserURL(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestApplyServeFlags(t *testing.T) {
	cfg := &config.Config{Addr: ":8080", WebDir: "/srv/web"}

	if err := serveCmd.Flags().Set("addr", ":9999"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := serveCmd.Flags().Set("mdns", "true"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	applyServeFlags(serveCmd, cfg)

	if cfg.Addr != ":9999" {
		t.Errorf("Addr = %q, want :9999", cfg.Addr)
	}
	if !cfg.MDNS {
		t.Error("MDNS should be enabled by flag")
	}
	if cfg.Tray {
		t.Error("Tray should keep its configured value")
	}
	if cfg.WebDir != "/srv/web" {
		t.Errorf("WebDir = %q, want the configured value", cfg.WebDir)
	}
}

func TestAppConfig(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{"EASEL_DATA_DIR": t.TempDir()})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	ac := appConfig(cfg, nil)
	if ac.Session.Width != 640 || ac.Session.Height != 480 {
		t.Errorf("session size = %dx%d", ac.Session.Width, ac.Session.Height)
	}
	if ac.Session.MouthThreshold != 0.045 || ac.Session.SmoothingAlpha != 0.22 {
		t.Errorf("session tuning = %+v", ac.Session)
	}
	if ac.DetectorConf.MinDetectionConf != 0.6 {
		t.Errorf("detector confidence = %v", ac.DetectorConf.MinDetectionConf)
	}
}
