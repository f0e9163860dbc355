package pages

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"donations-service/logging"
	"donations-service/models"
)

const genericCheckoutError = "Something went wrong, please try again."

// SiteAPI is the JSON API the landing page is built on
type SiteAPI interface {
	Donations(ctx context.Context, origin string) ([]models.DonationRecord, error)
	Checkout(ctx context.Context, origin, clientIP string, req models.CheckoutRequest) (models.CheckoutResponse, error)
}

// LandingPage renders the donation list and form and drives checkout submission
type LandingPage struct {
	api         SiteAPI
	renderer    *Renderer
	unitCents   int64
	maxQuantity int
}

// NewLandingPage creates the landing page handler
func NewLandingPage(api SiteAPI, renderer *Renderer, unitCents int64, maxQuantity int) *LandingPage {
	return &LandingPage{
		api:         api,
		renderer:    renderer,
		unitCents:   unitCents,
		maxQuantity: maxQuantity,
	}
}

// Show handles GET /
func (p *LandingPage) Show(c *gin.Context) {
	p.render(c, NewDonationForm(p.maxQuantity))
}

// Submit handles POST /. A preset button only updates the form; any other
// submission starts a checkout.
func (p *LandingPage) Submit(c *gin.Context) {
	form := NewDonationForm(p.maxQuantity)
	form.SetName(c.PostForm("name"))
	form.SetMessage(c.PostForm("message"))
	form.SetQuantity(c.PostForm("quantity"))

	if preset := c.PostForm("preset"); preset != "" {
		if n, err := strconv.Atoi(preset); err == nil {
			form.SelectPreset(n)
		}
		p.render(c, form)
		return
	}

	form.BeginSubmit()

	ctx := c.Request.Context()
	resp, err := p.api.Checkout(ctx, Origin(c.Request), c.ClientIP(), form.CheckoutRequest())
	if err != nil {
		logging.FromContext(ctx).Error("Checkout request failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if url := form.ApplyResult(resp); url != "" {
		c.Redirect(http.StatusSeeOther, url)
		return
	}
	if form.Error == "" {
		form.Error = genericCheckoutError
	}
	p.render(c, form)
}

func (p *LandingPage) render(c *gin.Context, form DonationForm) {
	ctx := c.Request.Context()

	donations, err := p.api.Donations(ctx, Origin(c.Request))
	if err != nil {
		logging.FromContext(ctx).Error("Failed to load donations", zap.Error(err))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	body, err := p.renderer.render("index.html", landingView{
		Donations: donations,
		Form:      form,
		Presets:   Presets,
		Total:     formatCents(int64(form.Quantity) * p.unitCents),
	})
	if err != nil {
		logging.FromContext(ctx).Error("Failed to render landing page", zap.Error(err))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}
