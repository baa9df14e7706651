package postgres

import (
	"time"
)

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time { return c.at }

type stubIDGen struct {
	id string
}

func (g stubIDGen) NewID() (string, error) { return g.id, nil }
