package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/utils"
)

const testID = models.VideoID("dQw4w9WgXcQ")

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	lookups  []bool
	download []error
}

func (o *recordingObserver) ObserveResolution(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) ObserveCacheLookup(hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lookups = append(o.lookups, hit)
}

func (o *recordingObserver) ObserveDownload(err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.download = append(o.download, err)
}

func newTestResolver(backend Backend, opts ...ResolverOption) (*Resolver, *countingFactory) {
	factory := &countingFactory{backend: backend}
	session := NewSession(factory.New, utils.NewNopLogger())
	return NewResolver(session, utils.NewNopLogger(), opts...), factory
}

func TestResolveHighestBitrateAudio(t *testing.T) {
	backend := &fakeBackend{formats: []models.StreamFormat{
		{MimeType: "video/mp4", Bitrate: 1000},
		{MimeType: "audio/webm", Bitrate: 160, URL: "U1"},
		{MimeType: "audio/mp4", Bitrate: 128, URL: "U2"},
	}}
	observer := &recordingObserver{}
	resolver, _ := newTestResolver(backend, WithObserver(observer))

	res, err := resolver.ResolveAudioURL(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "U1", res.URL)
	assert.Equal(t, testID, res.VideoID)
	assert.Equal(t, 160, res.Bitrate)
	assert.Equal(t, []string{OutcomeOK}, observer.outcomes)
	assert.EqualValues(t, 0, backend.deciphers.Load())
}

func TestResolveFirstOfEqualAudioAfterVideoFormats(t *testing.T) {
	backend := &fakeBackend{formats: []models.StreamFormat{
		{MimeType: "video/mp4", Bitrate: 2000, URL: "V1"},
		{MimeType: "audio/mp4", Bitrate: 128, URL: "A1"},
		{MimeType: "video/webm", Bitrate: 900, URL: "V2"},
		{MimeType: "audio/webm", Bitrate: 128, URL: "A2"},
	}}
	resolver, _ := newTestResolver(backend)

	res, err := resolver.ResolveAudioURL(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "A1", res.URL)
	assert.Equal(t, "audio/mp4", res.MimeType)
}

func TestResolveRejectsInvalidIDWithoutBackend(t *testing.T) {
	for _, id := range []models.VideoID{"short", "", "dQw4w9WgXcQx"} {
		backend := &fakeBackend{}
		resolver, factory := newTestResolver(backend)

		_, err := resolver.ResolveAudioURL(context.Background(), id)
		assert.ErrorIs(t, err, ErrInvalidID)
		assert.Equal(t, OutcomeInvalidID, Outcome(err))
		assert.EqualValues(t, 0, factory.calls.Load())
		assert.EqualValues(t, 0, backend.fetches.Load())
		assert.False(t, resolver.Session().Ready())
	}
}

func TestResolveNoAudioFormat(t *testing.T) {
	backend := &fakeBackend{formats: []models.StreamFormat{
		{MimeType: "video/mp4", Bitrate: 1000, URL: "V1"},
		{MimeType: "video/webm", Bitrate: 800, URL: "V2"},
	}}
	resolver, _ := newTestResolver(backend)

	_, err := resolver.ResolveAudioURL(context.Background(), testID)
	assert.ErrorIs(t, err, ErrNoAudioFormat)
}

func TestResolveDeciphersWithSameBackend(t *testing.T) {
	backend := &fakeBackend{
		formats: []models.StreamFormat{
			{Itag: 251, MimeType: "audio/webm", Bitrate: 160, Cipher: "s=abc&sp=sig&url=x"},
		},
		decipherURL: "final-url",
	}
	resolver, _ := newTestResolver(backend)

	res, err := resolver.ResolveAudioURL(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "final-url", res.URL)
	assert.EqualValues(t, 1, backend.deciphers.Load())
}

func TestResolveUnresolvable(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
	}{
		{"no url and no cipher", &fakeBackend{formats: []models.StreamFormat{{MimeType: "audio/mp4", Bitrate: 128}}}},
		{"decipher fails", &fakeBackend{
			formats:     []models.StreamFormat{{MimeType: "audio/mp4", Cipher: "s=1"}},
			decipherErr: errors.New("signature function not found"),
		}},
		{"decipher empty", &fakeBackend{
			formats: []models.StreamFormat{{MimeType: "audio/mp4", Cipher: "s=1"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver, _ := newTestResolver(tt.backend)
			_, err := resolver.ResolveAudioURL(context.Background(), testID)
			assert.ErrorIs(t, err, ErrUrlUnresolvable)
		})
	}
}

func TestResolveBackendUnavailable(t *testing.T) {
	factory := &countingFactory{err: errors.New("dial tcp: timeout")}
	resolver := NewResolver(NewSession(factory.New, utils.NewNopLogger()), utils.NewNopLogger())

	_, err := resolver.ResolveAudioURL(context.Background(), testID)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, 500, utils.StatusCode(err))
}

func TestResolveConcurrentFirstCallsInitOnce(t *testing.T) {
	backend := &fakeBackend{formats: []models.StreamFormat{{MimeType: "audio/mp4", Bitrate: 128, URL: "U"}}}
	factory := &countingFactory{backend: backend, gate: make(chan struct{})}
	resolver := NewResolver(NewSession(factory.New, utils.NewNopLogger()), utils.NewNopLogger())

	const callers = 10
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := resolver.ResolveAudioURL(context.Background(), testID)
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return factory.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(factory.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, factory.calls.Load())
	assert.EqualValues(t, callers, backend.fetches.Load())
}

func TestResolveTimeout(t *testing.T) {
	factory := &countingFactory{backend: &fakeBackend{}, gate: make(chan struct{})}
	defer close(factory.gate)
	resolver := NewResolver(
		NewSession(factory.New, utils.NewNopLogger()),
		utils.NewNopLogger(),
		WithResolveTimeout(30*time.Millisecond),
	)

	start := time.Now()
	_, err := resolver.ResolveAudioURL(context.Background(), testID)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestStatusCodeMapping(t *testing.T) {
	resolver, _ := newTestResolver(&fakeBackend{})

	_, err := resolver.ResolveAudioURL(context.Background(), "short")
	assert.Equal(t, 400, utils.StatusCode(err))

	_, err = resolver.ResolveAudioURL(context.Background(), testID)
	assert.Equal(t, 500, utils.StatusCode(err))
}
