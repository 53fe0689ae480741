package agents

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/peto/internal/common"
)

// fakePage is a scriptable in-memory Page used by the agent tests. Selector
// presence, text, counts and JS results are configured up front; every
// interaction is recorded.
type fakePage struct {
	mu sync.Mutex

	url        string
	urlHistory []string

	existing map[string]bool
	texts    map[string]string
	htmls    map[string]string
	checked  map[string]bool
	counts   map[string]int
	attrs    map[string]string
	viewport int

	// evalFn answers Evaluate calls; nil means every script yields false.
	evalFn func(js string, out any) error

	// clickHook observes successful clicks. It runs under the page lock and
	// must mutate fields directly.
	clickHook func(selector string)

	navErrs      map[string][]error // Consumed per navigation attempt
	clickErrs    map[string]error
	popupPending bool

	clicks      []string
	fills       map[string]string
	uploads     map[string]string
	screenshots []string
	navigations []string
	enters      []string
	reloads     int
	backs       int
}

func newFakePage() *fakePage {
	return &fakePage{
		existing:  make(map[string]bool),
		texts:     make(map[string]string),
		htmls:     make(map[string]string),
		checked:   make(map[string]bool),
		counts:    make(map[string]int),
		attrs:     make(map[string]string),
		navErrs:   make(map[string][]error),
		clickErrs: make(map[string]error),
		fills:     make(map[string]string),
		uploads:   make(map[string]string),
		viewport:  1280,
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	if errs := p.navErrs[url]; len(errs) > 0 {
		err := errs[0]
		p.navErrs[url] = errs[1:]
		if err != nil {
			return err
		}
	}
	p.urlHistory = append(p.urlHistory, p.url)
	p.url = url
	return nil
}

func (p *fakePage) CurrentURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *fakePage) GoBack(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backs++
	if n := len(p.urlHistory); n > 0 {
		p.url = p.urlHistory[n-1]
		p.urlHistory = p.urlHistory[:n-1]
	}
	return nil
}

func (p *fakePage) Reload(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reloads++
	return nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.clickErrs[selector]; ok {
		return err
	}
	if !p.existing[selector] {
		return fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}
	p.clicks = append(p.clicks, selector)
	if p.clickHook != nil {
		p.clickHook(selector)
	}
	return nil
}

func (p *fakePage) Fill(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.existing[selector] {
		return fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}
	p.fills[selector] = value
	return nil
}

func (p *fakePage) Type(ctx context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.existing[selector] {
		return fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}
	p.fills[selector] += text
	return nil
}

func (p *fakePage) SelectOption(ctx context.Context, selector, value string) error {
	return p.Fill(ctx, selector, value)
}

func (p *fakePage) SetUploadFile(ctx context.Context, selector, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.existing[selector] {
		return fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}
	p.uploads[selector] = path
	return nil
}

func (p *fakePage) PressEnter(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.existing[selector] {
		return fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}
	p.enters = append(p.enters, selector)
	return nil
}

func (p *fakePage) Hover(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.existing[selector] {
		return fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}
	return nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.existing[selector] && !p.anyCommaAlternative(selector) {
		return fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}
	return nil
}

// anyCommaAlternative resolves grouped selectors like "a, b".
func (p *fakePage) anyCommaAlternative(selector string) bool {
	for _, alt := range strings.Split(selector, ",") {
		if p.existing[strings.TrimSpace(alt)] {
			return true
		}
	}
	return false
}

func (p *fakePage) Exists(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.existing[selector] || p.anyCommaAlternative(selector), nil
}

func (p *fakePage) Text(ctx context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.texts[selector]
	if !ok {
		return "", fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}
	return text, nil
}

func (p *fakePage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	value, ok := p.attrs[selector+"@"+name]
	return value, ok, nil
}

func (p *fakePage) OuterHTML(ctx context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if html, ok := p.htmls[selector]; ok {
		return html, nil
	}
	for _, alt := range strings.Split(selector, ",") {
		if html, ok := p.htmls[strings.TrimSpace(alt)]; ok {
			return html, nil
		}
	}
	return "", fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
}

func (p *fakePage) Checked(ctx context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.existing[selector] {
		return false, fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}
	return p.checked[selector], nil
}

func (p *fakePage) Count(ctx context.Context, selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[selector], nil
}

func (p *fakePage) Evaluate(ctx context.Context, js string, result any) error {
	p.mu.Lock()
	fn := p.evalFn
	p.mu.Unlock()
	if fn != nil {
		return fn(js, result)
	}
	if out, ok := result.(*bool); ok && out != nil {
		*out = false
	}
	return nil
}

func (p *fakePage) ScrollIntoView(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.existing[selector] {
		return fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}
	return nil
}

func (p *fakePage) ScrollBy(ctx context.Context, pixels int) error { return nil }

func (p *fakePage) Screenshot(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screenshots = append(p.screenshots, path)
	return nil
}

func (p *fakePage) ScreenshotElement(ctx context.Context, selector, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.existing[selector] {
		return fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}
	p.screenshots = append(p.screenshots, path)
	return os.WriteFile(path, []byte("png-bytes:"+selector), 0644)
}

func (p *fakePage) ViewportWidth(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewport, nil
}

func (p *fakePage) SwitchToFrame(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.existing[selector] {
		return fmt.Errorf("%w: %s", common.ErrElementNotFound, selector)
	}
	return nil
}

func (p *fakePage) SwitchToMainFrame() {}

func (p *fakePage) DragAndDrop(ctx context.Context, sourceSelector, targetSelector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.existing[sourceSelector] || !p.existing[targetSelector] {
		return fmt.Errorf("%w: %s or %s", common.ErrElementNotFound, sourceSelector, targetSelector)
	}
	return nil
}

func (p *fakePage) ConsumePopup(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	opened := p.popupPending
	p.popupPending = false
	return opened, nil
}

func (p *fakePage) Close() error { return nil }
