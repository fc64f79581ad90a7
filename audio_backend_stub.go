//go:build headless

package i2s

type OtoOutput struct {
	started bool
}

func NewOtoOutput(sampleRate int) (*OtoOutput, error) {
	return &OtoOutput{}, nil
}

func (o *OtoOutput) WriteBlock(block []uint32) error { return nil }

func (o *OtoOutput) Start() error {
	o.started = true
	return nil
}

func (o *OtoOutput) Stop() error {
	o.started = false
	return nil
}

func (o *OtoOutput) Close() error {
	o.started = false
	return nil
}

func (o *OtoOutput) IsStarted() bool {
	return o.started
}

type ALSAOutput struct {
	started bool
}

func NewALSAOutput(sampleRate int) (*ALSAOutput, error) {
	return &ALSAOutput{}, nil
}

func (a *ALSAOutput) WriteBlock(block []uint32) error { return nil }

func (a *ALSAOutput) Start() error {
	a.started = true
	return nil
}

func (a *ALSAOutput) Stop() error {
	a.started = false
	return nil
}

func (a *ALSAOutput) Close() error {
	a.started = false
	return nil
}

func (a *ALSAOutput) IsStarted() bool {
	return a.started
}
