package sensor

import (
	"math"
	"math/rand"
	"sync"
)

// Simulated produces slowly drifting values with a little noise. It stands in
// for hardware when the daemon runs with the "simulated" driver.
type Simulated struct {
	Center    float64
	Amplitude float64
	Noise     float64
	// Period is the number of reads per full swing.
	Period int

	mu  sync.Mutex
	n   int
	rnd *rand.Rand
}

// NewSimulated returns a deterministic simulator for the given seed.
func NewSimulated(center, amplitude, noise float64, seed int64) *Simulated {
	return &Simulated{
		Center:    center,
		Amplitude: amplitude,
		Noise:     noise,
		Period:    96,
		rnd:       rand.New(rand.NewSource(seed)),
	}
}

func (s *Simulated) next() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	period := s.Period
	if period <= 0 {
		period = 1
	}
	phase := 2 * math.Pi * float64(s.n%period) / float64(period)
	s.n++
	return s.Center + s.Amplitude*math.Sin(phase) + s.Noise*(s.rnd.Float64()*2-1)
}

func (s *Simulated) Read() (float64, error) {
	return s.next(), nil
}

// ReadRaw rounds the simulated value to a converter count.
func (s *Simulated) ReadRaw() (int32, error) {
	return int32(math.Round(s.next())), nil
}
