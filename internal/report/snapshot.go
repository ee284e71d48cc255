package report

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// CaptureDashboard 用无头浏览器打开仪表盘并整页截图到 outPath。
// 需要本机可用的 Chrome/Chromium，失败不影响主流程，由调用方降级为告警。
func CaptureDashboard(ctx context.Context, url, outPath string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	var buf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		// 等前端把图表画完再截
		chromedp.Sleep(2*time.Second),
		chromedp.FullScreenshot(&buf, 90),
	)
	if err != nil {
		return fmt.Errorf("capture dashboard %s: %w", url, err)
	}
	if err := os.WriteFile(outPath, buf, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", outPath, err)
	}
	return nil
}
