package backend

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"sjsage522/pagescope/helpers"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

type rodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	// disconnect drops the DevTools connection without closing the browser
	disconnect context.CancelFunc
}

// NewRodDriver returns a Driver backed by Chrome through the DevTools protocol
func NewRodDriver() Driver {
	return &rodDriver{}
}

func (d *rodDriver) Launch(ctx context.Context, o LaunchOptions) error {
	controlURL := o.RemoteURL
	if controlURL == "" {
		l := launcher.New().
			Headless(o.Headless).
			Set(flags.NoSandbox).
			Set("disable-dev-shm-usage").
			Set("disable-gpu").
			Set("window-size", fmt.Sprintf("%d,%d", o.Width, o.Height))
		if o.Locale != "" {
			l = l.Set(flags.Flag("lang"), o.Locale)
		}
		if o.Bin != "" {
			l = l.Bin(o.Bin)
		}
		d.launcher = l

		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		controlURL = u
	}

	connCtx, disconnect := context.WithCancel(context.Background())
	d.disconnect = disconnect
	b := rod.New().ControlURL(controlURL).Context(connCtx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("browser: connect: %w", err)
	}
	d.browser = b

	var (
		page *rod.Page
		err  error
	)
	if o.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return fmt.Errorf("browser: create tab: %w", err)
	}
	d.page = page

	if err := page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             o.Width,
		Height:            o.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("browser: set viewport: %w", err)
	}
	ua := o.UserAgent
	if ua == "" {
		ua = helpers.DefaultUserAgent
	}
	if err := page.Context(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: o.Locale,
	}); err != nil {
		return fmt.Errorf("browser: set user agent: %w", err)
	}
	return nil
}

func (d *rodDriver) Navigate(ctx context.Context, url string) error {
	if d.page == nil {
		return fmt.Errorf("browser: no page")
	}
	return d.page.Context(ctx).Navigate(url)
}

func (d *rodDriver) WaitLoad(ctx context.Context) error {
	if d.page == nil {
		return fmt.Errorf("browser: no page")
	}
	return d.page.Context(ctx).WaitLoad()
}

func (d *rodDriver) Content(ctx context.Context) (string, string, error) {
	if d.page == nil {
		return "", "", fmt.Errorf("browser: no page")
	}
	p := d.page.Context(ctx)
	html, err := p.HTML()
	if err != nil {
		return "", "", fmt.Errorf("browser: get DOM: %w", err)
	}
	info, err := p.Info()
	if err != nil {
		return html, "", nil
	}
	return html, info.URL, nil
}

func (d *rodDriver) Screenshot(ctx context.Context) ([]byte, error) {
	if d.page == nil {
		return nil, fmt.Errorf("browser: no page")
	}
	return d.page.Context(ctx).Screenshot(false, nil)
}

// Close closes the tab this driver opened. A browser launched here is
// closed and its process cleaned up; a remote browser is only disconnected.
func (d *rodDriver) Close() error {
	var page, browser io.Closer
	if d.page != nil {
		page = d.page
	}
	if d.browser != nil && d.launcher != nil {
		browser = d.browser
	}
	err := shutdown(page, browser, d.disconnect)
	if d.launcher != nil {
		d.launcher.Cleanup()
	}

	d.page = nil
	d.browser = nil
	d.launcher = nil
	d.disconnect = nil
	return err
}

// shutdown closes the tab, then the browser if it is owned, then drops the connection
func shutdown(page, browser io.Closer, disconnect func()) error {
	var errs []error
	if page != nil {
		if err := page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("browser: close tab: %w", err))
		}
	}
	if browser != nil {
		if err := browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("browser: close: %w", err))
		}
	}
	if disconnect != nil {
		disconnect()
	}
	return stderrors.Join(errs...)
}
