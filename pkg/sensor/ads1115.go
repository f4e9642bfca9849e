package sensor

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

var hostInit = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// ADS1115 is an open converter on an I2C bus. Probes read single-ended
// channels through ChannelReader.
type ADS1115 struct {
	bus i2c.BusCloser
	dev *ads1x15.Dev

	mu   sync.Mutex
	pins map[int]ads1x15.PinADC
}

// OpenADS1115 initializes the host drivers and opens the converter at addr
// on the named bus (empty for the first available bus).
func OpenADS1115(busName string, addr uint16) (*ADS1115, error) {
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	dev, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: addr})
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("open ads1115 at %#x: %w", addr, err)
	}

	logrus.WithFields(logrus.Fields{
		"bus":     bus.String(),
		"address": fmt.Sprintf("%#x", addr),
	}).Info("ads1115 opened")

	return &ADS1115{bus: bus, dev: dev, pins: make(map[int]ads1x15.PinADC)}, nil
}

func singleEnded(channel int) (ads1x15.Channel, error) {
	switch channel {
	case 0:
		return ads1x15.Channel0, nil
	case 1:
		return ads1x15.Channel1, nil
	case 2:
		return ads1x15.Channel2, nil
	case 3:
		return ads1x15.Channel3, nil
	default:
		return 0, fmt.Errorf("invalid channel %d", channel)
	}
}

// Channel returns a RawReader for a single-ended input.
func (a *ADS1115) Channel(channel int) (RawReader, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.pins[channel]; ok {
		return &adcChannel{pin: p}, nil
	}
	c, err := singleEnded(channel)
	if err != nil {
		return nil, err
	}
	p, err := a.dev.PinForChannel(c, 4096*physic.MilliVolt, 8*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		return nil, fmt.Errorf("configure channel %d: %w", channel, err)
	}
	a.pins[channel] = p
	return &adcChannel{pin: p}, nil
}

func (a *ADS1115) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for ch, p := range a.pins {
		if err := p.Halt(); err != nil {
			logrus.WithError(err).Warnf("failed to halt ads1115 channel %d", ch)
		}
	}
	a.pins = map[int]ads1x15.PinADC{}
	return a.bus.Close()
}

type adcChannel struct {
	pin ads1x15.PinADC
}

func (c *adcChannel) ReadRaw() (int32, error) {
	s, err := c.pin.Read()
	if err != nil {
		return 0, err
	}
	return s.Raw, nil
}
