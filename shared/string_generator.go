package shared

import (
	"time"

	"github.com/satori/go.uuid"
)

type StringGenerator struct {
}

func (n *StringGenerator) GenerateUuid() string {
	return uuid.NewV4().String()
}

type Clock struct {
}

func (c *Clock) Now() time.Time {
	return time.Now().UTC()
}
