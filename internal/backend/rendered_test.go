package backend

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"sjsage522/pagescope/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDriver implements Driver for testing
type fakeDriver struct {
	launchErr   error
	navigateErr error
	blockNav    bool
	html        string
	currentURL  string
	png         []byte

	launched   LaunchOptions
	navigated  []string
	waitLoads  int
	closeCalls int
}

var _ Driver = (*fakeDriver)(nil)

func (f *fakeDriver) Launch(ctx context.Context, opts LaunchOptions) error {
	f.launched = opts
	return f.launchErr
}

func (f *fakeDriver) Navigate(ctx context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	if f.blockNav {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.navigateErr
}

func (f *fakeDriver) WaitLoad(ctx context.Context) error {
	f.waitLoads++
	return nil
}

func (f *fakeDriver) Content(ctx context.Context) (string, string, error) {
	return f.html, f.currentURL, nil
}

func (f *fakeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	return f.png, nil
}

func (f *fakeDriver) Close() error {
	f.closeCalls++
	return nil
}

func TestRenderedAcquire(t *testing.T) {
	d := &fakeDriver{html: "<html><p>live</p></html>", currentURL: "https://example.com/redirected"}
	r := NewRendered(d, RenderedOptions{
		Launch:      LaunchOptions{Headless: true, Locale: "ja", Width: 1920, Height: 1080},
		SettleDelay: 10 * time.Millisecond,
		WaitLoad:    true,
	}, nil)

	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, "ja", d.launched.Locale)
	assert.Equal(t, 1920, d.launched.Width)

	start := time.Now()
	doc, err := r.Acquire(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	assert.Equal(t, "https://example.com/redirected", doc.Source())
	assert.Equal(t, "<html><p>live</p></html>", doc.Content())
	assert.Equal(t, "utf-8", doc.Encoding())
	assert.Equal(t, []string{"https://example.com"}, d.navigated)
	assert.Equal(t, 1, d.waitLoads)
}

func TestRenderedAcquireKeepsSourceWithoutURL(t *testing.T) {
	d := &fakeDriver{html: "<p/>"}
	r := NewRendered(d, RenderedOptions{}, nil)
	require.NoError(t, r.Start(context.Background()))

	doc, err := r.Acquire(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", doc.Source())
	assert.Equal(t, 0, d.waitLoads)
}

func TestRenderedStartupFailure(t *testing.T) {
	d := &fakeDriver{launchErr: stderrors.New("chrome not found")}
	r := NewRendered(d, RenderedOptions{}, nil)

	err := r.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.KindBackendStartup, errors.KindOf(err))
	assert.Equal(t, 1, d.closeCalls)

	_, err = r.Acquire(context.Background(), "https://example.com")
	assert.Equal(t, errors.KindBackendStartup, errors.KindOf(err))
}

func TestRenderedNavigationErrors(t *testing.T) {
	d := &fakeDriver{navigateErr: stderrors.New("net::ERR_NAME_NOT_RESOLVED")}
	r := NewRendered(d, RenderedOptions{}, nil)
	require.NoError(t, r.Start(context.Background()))

	_, err := r.Acquire(context.Background(), "https://nope.invalid")
	assert.Equal(t, errors.KindTransport, errors.KindOf(err))
}

func TestRenderedNavigationTimeout(t *testing.T) {
	d := &fakeDriver{blockNav: true}
	r := NewRendered(d, RenderedOptions{NavigationTimeout: 20 * time.Millisecond}, nil)
	require.NoError(t, r.Start(context.Background()))

	_, err := r.Acquire(context.Background(), "https://slow.example.com")
	assert.Equal(t, errors.KindTimeout, errors.KindOf(err))
}

func TestRenderedSnapshot(t *testing.T) {
	d := &fakeDriver{png: []byte{0x89, 'P', 'N', 'G'}}
	r := NewRendered(d, RenderedOptions{}, nil)

	_, err := r.Snapshot(context.Background())
	assert.Equal(t, errors.KindBackendStartup, errors.KindOf(err))

	require.NoError(t, r.Start(context.Background()))
	png, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, d.png, png)
}

func TestRenderedCloseIsIdempotent(t *testing.T) {
	d := &fakeDriver{}
	r := NewRendered(d, RenderedOptions{}, nil)

	// before start
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
	assert.Equal(t, 1, d.closeCalls)

	err := r.Start(context.Background())
	assert.Equal(t, errors.KindBackendStartup, errors.KindOf(err))
}
