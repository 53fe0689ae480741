package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/common"
)

func popupTestPage() *Page {
	return &Page{tabCtx: context.Background(), logger: common.GetLogger()}
}

func TestConsumePopup_WaitsForLateTargetEvent(t *testing.T) {
	p := popupTestPage()

	go func() {
		time.Sleep(120 * time.Millisecond)
		p.popupMu.Lock()
		p.popups = append(p.popups, target.ID("late-window"))
		p.popupMu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	opened, err := p.ConsumePopup(ctx)
	require.NoError(t, err)
	assert.True(t, opened, "a window registered after the call started must still be consumed")

	p.popupMu.Lock()
	defer p.popupMu.Unlock()
	assert.Empty(t, p.popups)
}

func TestConsumePopup_NoPopupWaitsOutTheBudget(t *testing.T) {
	p := popupTestPage()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	opened, err := p.ConsumePopup(ctx)
	require.NoError(t, err)
	assert.False(t, opened)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond,
		"absence is only decided once the context expires")
}
