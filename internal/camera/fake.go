package camera

import (
	"context"
	"image"
	"sync"

	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
)

// Fake is an in-memory Source. Every opened stream is kept so callers can
// assert that its tracks were released.
type Fake struct {
	// Still is returned by Capture. Nil captures a small grey frame.
	Still   []byte
	OpenErr error

	mu      sync.Mutex
	streams []*FakeStream
}

func (f *Fake) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}

	still := f.Still
	if still == nil {
		frame := image.NewGray(image.Rect(0, 0, 64, 48))
		for i := range frame.Pix {
			frame.Pix[i] = 128
		}
		var err error
		if still, err = imagesrc.EncodeStill(frame); err != nil {
			return nil, err
		}
	}

	s := &FakeStream{still: still, tracks: 1}
	f.mu.Lock()
	f.streams = append(f.streams, s)
	f.mu.Unlock()
	return s, nil
}

// Streams returns every stream opened so far.
func (f *Fake) Streams() []*FakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeStream(nil), f.streams...)
}

// ActiveTracks sums the live tracks of every opened stream.
func (f *Fake) ActiveTracks() int {
	n := 0
	for _, s := range f.Streams() {
		n += s.ActiveTracks()
	}
	return n
}

type FakeStream struct {
	mu       sync.Mutex
	still    []byte
	tracks   int
	captures int
}

func (s *FakeStream) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracks == 0 {
		return nil, ErrStreamStopped
	}
	s.captures++
	return s.still, nil
}

func (s *FakeStream) ActiveTracks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks
}

func (s *FakeStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = 0
}

func (s *FakeStream) Captures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captures
}
