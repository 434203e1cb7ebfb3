package realtime

import "github.com/terraincognita07/telecare/internal/models"

type Publisher interface {
	Publish(room string, event models.Event)
}

// MultiPublisher fans one event out to several publishers in order.
type MultiPublisher []Publisher

func (publishers MultiPublisher) Publish(room string, event models.Event) {
	for _, publisher := range publishers {
		publisher.Publish(room, event)
	}
}
