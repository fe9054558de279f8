package audio

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// SampleRate is the output rate of every chime.
const SampleRate = 44100

// Tone is one burst of a chime. A zero frequency is a rest.
type Tone struct {
	Hz     float64
	Length time.Duration
	Gain   float64 // 0.0 to 1.0
}

// Chime is a named reminder sound.
type Chime struct {
	Name  string
	About string
	Tones []Tone
}

// Chimes holds the built-in reminder sounds, keyed by name.
var Chimes = map[string]Chime{
	"notification": {
		Name:  "notification",
		About: "Two-note doorbell, the default reminder",
		Tones: []Tone{
			{Hz: 659.25, Length: 200 * time.Millisecond, Gain: 0.5}, // E5
			{Hz: 523.25, Length: 300 * time.Millisecond, Gain: 0.4}, // C5
		},
	},
	"reminder": {
		Name:  "reminder",
		About: "Rising three-note arpeggio",
		Tones: []Tone{
			{Hz: 523.25, Length: 120 * time.Millisecond, Gain: 0.6}, // C5
			{Hz: 659.25, Length: 120 * time.Millisecond, Gain: 0.6}, // E5
			{Hz: 783.99, Length: 250 * time.Millisecond, Gain: 0.7}, // G5
		},
	},
	"urgent": {
		Name:  "urgent",
		About: "Three quick high beeps for events starting now",
		Tones: []Tone{
			{Hz: 1200, Length: 80 * time.Millisecond, Gain: 0.7},
			{Length: 40 * time.Millisecond},
			{Hz: 1200, Length: 80 * time.Millisecond, Gain: 0.7},
			{Length: 40 * time.Millisecond},
			{Hz: 1200, Length: 80 * time.Millisecond, Gain: 0.7},
		},
	},
	"soft": {
		Name:  "soft",
		About: "Single quiet beep",
		Tones: []Tone{
			{Hz: 880, Length: 200 * time.Millisecond, Gain: 0.4},
		},
	},
}

// Names lists the built-in chimes in alphabetical order.
func Names() []string {
	out := make([]string, 0, len(Chimes))
	for name := range Chimes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the chime registered under name.
func Lookup(name string) (Chime, error) {
	c, ok := Chimes[name]
	if !ok {
		return Chime{}, fmt.Errorf("unknown sound %q", name)
	}
	return c, nil
}

// Render produces stereo 16-bit signed little-endian PCM for c.
func Render(c Chime) []byte {
	frames := 0
	for _, t := range c.Tones {
		frames += int(float64(SampleRate) * t.Length.Seconds())
	}
	buf := make([]byte, 0, frames*4)

	fade := SampleRate * 5 / 1000 // 5ms ramps, no clicks
	for _, t := range c.Tones {
		n := int(float64(SampleRate) * t.Length.Seconds())
		for i := 0; i < n; i++ {
			env := 1.0
			switch {
			case i < fade:
				env = float64(i) / float64(fade)
			case i > n-fade:
				env = float64(n-i) / float64(fade)
			}
			var v float64
			if t.Hz > 0 {
				v = math.Sin(2*math.Pi*t.Hz*float64(i)/SampleRate) * t.Gain * env
			}
			s := int16(v * 32767)
			buf = append(buf, byte(s), byte(s>>8), byte(s), byte(s>>8))
		}
	}
	return buf
}
