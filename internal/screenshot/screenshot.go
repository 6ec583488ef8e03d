// Package screenshot captures full-page screenshots of web pages in one
// shot, sized to the page instead of scroll-and-stitch.
package screenshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Extremely tall pages get clipped rather than producing huge images.
const maxHeight = 10000

const pageMetricsJS = `() => ({
	width: Math.max(document.body.scrollWidth, document.documentElement.scrollWidth,
		document.body.offsetWidth, document.documentElement.offsetWidth,
		document.body.clientWidth, document.documentElement.clientWidth),
	height: Math.max(document.body.scrollHeight, document.documentElement.scrollHeight,
		document.body.offsetHeight, document.documentElement.offsetHeight,
		document.body.clientHeight, document.documentElement.clientHeight),
})`

// Capture loads url in a headless browser, resizes the viewport to the full
// page dimensions and writes a PNG to outPath.
func Capture(ctx context.Context, url, outPath string, wait time.Duration) error {
	// Leakless disabled to avoid AV false positives on Windows.
	l := launcher.New().Leakless(false).Headless(true)
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	time.Sleep(wait)

	metrics, err := page.Eval(pageMetricsJS)
	if err != nil {
		return fmt.Errorf("read page metrics: %w", err)
	}
	width := metrics.Value.Get("width").Int()
	height := metrics.Value.Get("height").Int()
	if height > maxHeight {
		height = maxHeight
	}
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	time.Sleep(500 * time.Millisecond)

	data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}
