package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
)

// Page is the chromedp-backed implementation of interfaces.Page. All
// operations serialise through a mutex so only one agent acts on the tab at
// a time, which also keeps the activity log ordering faithful.
type Page struct {
	tabCtx    context.Context
	tabCancel context.CancelFunc
	logger    arbor.ILogger

	mu        sync.Mutex
	frameNode *cdp.Node

	popupMu sync.Mutex
	popups  []target.ID
}

func newPage(browserCtx context.Context, logger arbor.ILogger) (*Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(browserCtx)

	p := &Page{
		tabCtx:    tabCtx,
		tabCancel: tabCancel,
		logger:    logger,
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		created, ok := ev.(*target.EventTargetCreated)
		if !ok {
			return
		}
		if created.TargetInfo.Type != "page" || created.TargetInfo.OpenerID == "" {
			return
		}
		p.popupMu.Lock()
		p.popups = append(p.popups, created.TargetInfo.TargetID)
		p.popupMu.Unlock()
	})

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	return p, nil
}

// run executes actions on the tab under the page lock, honouring the caller
// context. Cancelling the derived context aborts the actions without closing
// the tab.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// queryOpts routes selector queries into the active frame when one is set.
func (p *Page) queryOpts(extra ...chromedp.QueryOption) []chromedp.QueryOption {
	opts := []chromedp.QueryOption{chromedp.ByQuery}
	if p.frameNode != nil {
		opts = append(opts, chromedp.FromNode(p.frameNode))
	}
	return append(opts, extra...)
}

// Navigate loads the URL. Timeouts surface as net.timeout errors.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Debug().Str("url", url).Msg("Navigating")
	err := p.run(ctx, chromedp.Navigate(url))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", common.ErrNavigationTimeout, url)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrNavigationFailed, url, err)
	}
	return nil
}

func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (p *Page) GoBack(ctx context.Context) error {
	return p.run(ctx, chromedp.NavigateBack())
}

func (p *Page) Reload(ctx context.Context) error {
	return p.run(ctx, chromedp.Reload())
}

func (p *Page) Click(ctx context.Context, selector string) error {
	err := p.run(ctx, chromedp.Click(selector, p.queryOpts()...))
	return p.elementErr(err, selector)
}

// Fill clears the control then types the value, mirroring human entry.
func (p *Page) Fill(ctx context.Context, selector, value string) error {
	err := p.run(ctx,
		chromedp.Clear(selector, p.queryOpts()...),
		chromedp.SendKeys(selector, value, p.queryOpts()...),
	)
	return p.elementErr(err, selector)
}

func (p *Page) Type(ctx context.Context, selector, text string) error {
	err := p.run(ctx, chromedp.SendKeys(selector, text, p.queryOpts()...))
	return p.elementErr(err, selector)
}

func (p *Page) SelectOption(ctx context.Context, selector, value string) error {
	err := p.run(ctx, chromedp.SetValue(selector, value, p.queryOpts()...))
	return p.elementErr(err, selector)
}

func (p *Page) SetUploadFile(ctx context.Context, selector, path string) error {
	err := p.run(ctx, chromedp.SetUploadFiles(selector, []string{path}, p.queryOpts()...))
	return p.elementErr(err, selector)
}

func (p *Page) PressEnter(ctx context.Context, selector string) error {
	err := p.run(ctx, chromedp.SendKeys(selector, kb.Enter, p.queryOpts()...))
	return p.elementErr(err, selector)
}

// Hover dispatches mouse-over events; there is no native hover action.
func (p *Page) Hover(ctx context.Context, selector string) error {
	js := fmt.Sprintf(`(function() {
		const el = document.querySelector(%q);
		if (!el) return false;
		for (const type of ["mouseover", "mouseenter", "mousemove"]) {
			el.dispatchEvent(new MouseEvent(type, {bubbles: true, cancelable: true, view: window}));
		}
		return true;
	})()`, selector)

	var found bool
	if err := p.run(ctx, chromedp.Evaluate(js, &found)); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}
	return nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.run(waitCtx, chromedp.WaitVisible(selector, p.queryOpts()...))
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s not visible within %s", common.ErrElementNotFound, selector, timeout)
	}
	return err
}

// Exists reports presence in the DOM within the timeout. Absence is not an
// error.
func (p *Page) Exists(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.run(waitCtx, chromedp.WaitReady(selector, p.queryOpts()...))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return false, nil
	}
	return false, err
}

func (p *Page) Text(ctx context.Context, selector string) (string, error) {
	var out string
	err := p.run(ctx, chromedp.Text(selector, &out, p.queryOpts()...))
	if err != nil {
		return "", p.elementErr(err, selector)
	}
	return out, nil
}

func (p *Page) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	var value string
	var ok bool
	err := p.run(ctx, chromedp.AttributeValue(selector, name, &value, &ok, p.queryOpts()...))
	if err != nil {
		return "", false, p.elementErr(err, selector)
	}
	return value, ok, nil
}

func (p *Page) OuterHTML(ctx context.Context, selector string) (string, error) {
	var out string
	err := p.run(ctx, chromedp.OuterHTML(selector, &out, p.queryOpts()...))
	if err != nil {
		return "", p.elementErr(err, selector)
	}
	return out, nil
}

func (p *Page) Checked(ctx context.Context, selector string) (bool, error) {
	js := fmt.Sprintf(`(function() {
		const el = document.querySelector(%q);
		return el ? !!el.checked : null;
	})()`, selector)

	var checked *bool
	if err := p.run(ctx, chromedp.Evaluate(js, &checked)); err != nil {
		return false, err
	}
	if checked == nil {
		return false, fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}
	return *checked, nil
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	js := fmt.Sprintf(`document.querySelectorAll(%q).length`, selector)
	var count int
	if err := p.run(ctx, chromedp.Evaluate(js, &count)); err != nil {
		return 0, err
	}
	return count, nil
}

// Evaluate runs JS in the main frame. Pass a nil result to discard the value.
func (p *Page) Evaluate(ctx context.Context, js string, result any) error {
	return p.run(ctx, chromedp.Evaluate(js, result))
}

func (p *Page) ScrollIntoView(ctx context.Context, selector string) error {
	err := p.run(ctx, chromedp.ScrollIntoView(selector, p.queryOpts()...))
	return p.elementErr(err, selector)
}

func (p *Page) ScrollBy(ctx context.Context, pixels int) error {
	js := fmt.Sprintf(`window.scrollBy(0, %d)`, pixels)
	return p.run(ctx, chromedp.Evaluate(js, nil))
}

func (p *Page) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := p.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

func (p *Page) ScreenshotElement(ctx context.Context, selector, path string) error {
	var buf []byte
	err := p.run(ctx, chromedp.Screenshot(selector, &buf, p.queryOpts(chromedp.NodeVisible)...))
	if err != nil {
		return p.elementErr(err, selector)
	}
	return os.WriteFile(path, buf, 0644)
}

func (p *Page) ViewportWidth(ctx context.Context) (int, error) {
	var width int
	if err := p.run(ctx, chromedp.Evaluate(`window.innerWidth`, &width)); err != nil {
		return 0, err
	}
	return width, nil
}

// SwitchToFrame points subsequent selector queries at the iframe's content.
func (p *Page) SwitchToFrame(ctx context.Context, selector string) error {
	var nodes []*cdp.Node
	err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery))
	if err != nil {
		return p.elementErr(err, selector)
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}

	p.mu.Lock()
	p.frameNode = nodes[0]
	p.mu.Unlock()
	return nil
}

// SwitchToMainFrame restores root-document queries.
func (p *Page) SwitchToMainFrame() {
	p.mu.Lock()
	p.frameNode = nil
	p.mu.Unlock()
}

// DragAndDrop moves content between two elements via synthetic drag events.
func (p *Page) DragAndDrop(ctx context.Context, sourceSelector, targetSelector string) error {
	js := fmt.Sprintf(`(function() {
		const src = document.querySelector(%q);
		const dst = document.querySelector(%q);
		if (!src || !dst) return false;
		const dt = new DataTransfer();
		const fire = (el, type) => el.dispatchEvent(
			new DragEvent(type, {bubbles: true, cancelable: true, dataTransfer: dt}));
		fire(src, "dragstart");
		fire(dst, "dragenter");
		fire(dst, "dragover");
		fire(dst, "drop");
		fire(src, "dragend");
		return true;
	})()`, sourceSelector, targetSelector)

	var found bool
	if err := p.run(ctx, chromedp.Evaluate(js, &found)); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s or %s", common.ErrElementNotFound, sourceSelector, targetSelector)
	}
	return nil
}

// popupPollInterval paces the wait for target-created events, which arrive
// asynchronously after the click that spawned the window.
const popupPollInterval = 50 * time.Millisecond

// ConsumePopup closes any window opened since the last call and reports
// whether one existed. With no popup registered yet it keeps polling until
// one arrives or the context expires; expiry means no popup, not an error.
func (p *Page) ConsumePopup(ctx context.Context) (bool, error) {
	for {
		p.popupMu.Lock()
		pending := p.popups
		p.popups = nil
		p.popupMu.Unlock()

		if len(pending) > 0 {
			for _, id := range pending {
				targetID := id
				err := p.run(ctx, chromedp.ActionFunc(func(actionCtx context.Context) error {
					return target.CloseTarget(targetID).Do(actionCtx)
				}))
				if err != nil {
					p.logger.Warn().Err(err).Str("target_id", string(targetID)).Msg("Failed to close popup")
				}
			}
			p.logger.Debug().Int("count", len(pending)).Msg("Closed popup windows")
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, nil
		case <-time.After(popupPollInterval):
		}
	}
}

// Close shuts the tab down.
func (p *Page) Close() error {
	p.tabCancel()
	return nil
}

// elementErr normalises missing-element failures into the dom.not_found kind.
func (p *Page) elementErr(err error, selector string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", common.ErrElementNotFound, selector, err)
	}
	return err
}
