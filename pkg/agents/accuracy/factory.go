package accuracy

import "github.com/arbiterhq/arbiter/pkg/protocol"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return "accuracy"
}

func (f *Factory) Create(config map[string]any) (protocol.Agent, error) {
	return NewAgent(config), nil
}
