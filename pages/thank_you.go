package pages

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"donations-service/countdown"
	"donations-service/logging"
)

// CountdownStreamPath serves the thank-you page's countdown events.
const CountdownStreamPath = "/thank-you/countdown"

type sseEvent struct {
	name string
	data string
}

// ThankYouPage shows a countdown and sends the visitor back to target
type ThankYouPage struct {
	renderer *Renderer
	target   string
	seconds  int
	opts     []countdown.Option
}

// NewThankYouPage creates the thank-you page handler. opts are passed to every
// countdown the page starts. Negative seconds redirect immediately.
func NewThankYouPage(renderer *Renderer, target string, seconds int, opts ...countdown.Option) *ThankYouPage {
	if seconds < 0 {
		seconds = 0
	}
	return &ThankYouPage{
		renderer: renderer,
		target:   target,
		seconds:  seconds,
		opts:     opts,
	}
}

// Show handles GET /thank-you
func (p *ThankYouPage) Show(c *gin.Context) {
	body, err := p.renderer.render("thank_you.html", thankYouView{
		Seconds:   p.seconds,
		Target:    p.target,
		StreamURL: CountdownStreamPath,
	})
	if err != nil {
		logging.FromContext(c.Request.Context()).Error("Failed to render thank-you page", zap.Error(err))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}

// Stream handles GET /thank-you/countdown. The countdown lives as long as the
// request: a disconnecting client stops it.
func (p *ThankYouPage) Stream(c *gin.Context) {
	// Room for every tick plus the redirect, so callbacks never block.
	events := make(chan sseEvent, p.seconds+2)

	opts := append([]countdown.Option{
		countdown.OnTick(func(remaining int) {
			events <- sseEvent{name: "tick", data: strconv.Itoa(remaining)}
		}),
	}, p.opts...)
	cd := countdown.New(p.target, p.seconds, func(target string) {
		events <- sseEvent{name: "redirect", data: target}
	}, opts...)
	defer cd.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("tick", strconv.Itoa(cd.Remaining()))
	c.Writer.Flush()

	cd.Start()

	ctx := c.Request.Context()
	for {
		select {
		case ev := <-events:
			c.SSEvent(ev.name, ev.data)
			c.Writer.Flush()
			if ev.name == "redirect" {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
