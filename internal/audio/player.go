package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

var (
	ctxOnce sync.Once
	ctx     *oto.Context
	ctxErr  error
)

func audioContext() (*oto.Context, error) {
	ctxOnce.Do(func() {
		var ready chan struct{}
		ctx, ready, ctxErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
		})
		if ctxErr == nil {
			<-ready
		}
	})
	return ctx, ctxErr
}

// Play renders the named chime at volume (0-100) and blocks until
// playback ends.
func Play(name string, volume int) error {
	c, err := Lookup(name)
	if err != nil {
		return err
	}
	pcm := Render(c)
	scale(pcm, volume)
	return play(pcm)
}

// scale applies a 0-100 volume to 16-bit LE samples in place.
func scale(pcm []byte, volume int) {
	if volume >= 100 {
		return
	}
	if volume < 0 {
		volume = 0
	}
	f := float64(volume) / 100
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(pcm[i]) | int16(pcm[i+1])<<8
		s = int16(float64(s) * f)
		pcm[i], pcm[i+1] = byte(s), byte(s>>8)
	}
}

func play(pcm []byte) error {
	c, err := audioContext()
	if err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	p := c.NewPlayer(bytes.NewReader(pcm))
	p.Play()
	for p.IsPlaying() {
		time.Sleep(5 * time.Millisecond)
	}
	return p.Close()
}
