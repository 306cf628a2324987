package metrics

type Counter interface {
	Inc()

	Add(v float64)
}

type Factory interface {
	CreateCounter(name string, description string) (Counter, error)

	Start() error

	Stop() error
}

// NoopFactory is used when metrics are disabled.
type NoopFactory struct {
}

func (n *NoopFactory) CreateCounter(string, string) (Counter, error) {
	return &noopCounter{}, nil
}

func (n *NoopFactory) Start() error {
	return nil
}

func (n *NoopFactory) Stop() error {
	return nil
}

type noopCounter struct {
}

func (c *noopCounter) Inc() {
}

func (c *noopCounter) Add(float64) {
}
