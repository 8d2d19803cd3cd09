package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quyse/coil-core-sub001/backend"
	"github.com/quyse/coil-core-sub001/backend/recorder"
	"github.com/quyse/coil-core-sub001/book"
	"github.com/quyse/coil-core-sub001/surface"
)

func recorderConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = backend.NameRecorder
	return cfg
}

// newTestDevice opens a recording device freed at the end of the test,
// after which no violations must have been recorded.
func newTestDevice(t *testing.T) (*Device, *recorder.Device, *book.Book) {
	t.Helper()
	bk := book.New()
	d, err := NewDevice(bk, recorderConfig())
	require.NoError(t, err)
	rec := d.Backend().(*recorder.Device)
	t.Cleanup(func() {
		bk.Free()
		require.Empty(t, rec.Violations())
	})
	return d, rec, bk
}

// newWindowTestDevice opens a recording device presenting to a headless
// window.
func newWindowTestDevice(t *testing.T, cfg Config, width, height int) (*Device, *recorder.Device, *book.Book, *surface.Headless) {
	t.Helper()
	w := surface.NewHeadless(width, height)
	bk := book.New()
	d, err := NewWindowDevice(bk, w, cfg)
	require.NoError(t, err)
	rec := d.Backend().(*recorder.Device)
	t.Cleanup(func() {
		bk.Free()
		require.Empty(t, rec.Violations())
	})
	return d, rec, bk, w
}

// submissions returns the recorded queue submissions in order.
func submissions(rec *recorder.Device) []*recorder.Submission {
	var subs []*recorder.Submission
	for _, e := range rec.EventsOf(recorder.EvSubmit) {
		subs = append(subs, e.Submit)
	}
	return subs
}

func commandsOfType[T recorder.Command](cmds []recorder.Command) []T {
	var r []T
	for _, c := range cmds {
		if v, ok := c.(T); ok {
			r = append(r, v)
		}
	}
	return r
}
