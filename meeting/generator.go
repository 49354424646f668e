package meeting

import (
	"fmt"
	"time"

	"github.com/Vinubaba/TOUCH-API/shared"
)

const (
	DefaultDomain = "meet.jit.si"
	DefaultPrefix = "TOUCH"
)

// Generator builds video-call room URLs of the form https://<domain>/<prefix>_<appointmentId>_<unixMillis>.
type Generator struct {
	Config *shared.AppConfig `inject:""`
	Clock  interface {
		Now() time.Time
	} `inject:""`
}

func (g *Generator) Generate(appointmentId string) string {
	domain, prefix := DefaultDomain, DefaultPrefix
	if g.Config != nil {
		if g.Config.MeetingDomain != "" {
			domain = g.Config.MeetingDomain
		}
		if g.Config.MeetingPrefix != "" {
			prefix = g.Config.MeetingPrefix
		}
	}
	millis := g.Clock.Now().UnixNano() / int64(time.Millisecond)
	return fmt.Sprintf("https://%s/%s_%s_%d", domain, prefix, appointmentId, millis)
}
