package endpoint

// Publisher receives every decoded value. Change detection and external
// notification are the publisher's concern.
type Publisher interface {
	Publish(d Descriptor, v Value)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(d Descriptor, v Value)

// Publish calls f.
func (f PublisherFunc) Publish(d Descriptor, v Value) { f(d, v) }

// Publishers fans a value out to several publishers in order.
type Publishers []Publisher

// Publish forwards to every publisher.
func (ps Publishers) Publish(d Descriptor, v Value) {
	for _, p := range ps {
		if p != nil {
			p.Publish(d, v)
		}
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(Descriptor, Value) {}
