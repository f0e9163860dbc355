package pages

import (
	"math"
	"strconv"
	"strings"

	"donations-service/models"
)

// Presets are the quick-pick quantities offered next to the quantity input.
var Presets = []int{1, 3, 5}

// DonationForm is the landing page form state. Each request rebuilds it from
// the submitted values, applies one update and renders the result.
type DonationForm struct {
	Quantity    int
	Name        string
	Message     string
	Error       string
	MaxQuantity int
}

// NewDonationForm returns the initial form state.
func NewDonationForm(maxQuantity int) DonationForm {
	if maxQuantity < 1 {
		maxQuantity = 1
	}
	return DonationForm{Quantity: 1, MaxQuantity: maxQuantity}
}

// SelectPreset sets the quantity to one of the presets.
func (f *DonationForm) SelectPreset(preset int) {
	f.Quantity = f.clamp(preset)
}

// SetQuantity parses free numeric input and clamps it to [1, MaxQuantity].
// Input that is not a number resets the quantity to 1.
func (f *DonationForm) SetQuantity(raw string) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) {
		f.Quantity = 1
		return
	}
	if v < 1 {
		f.Quantity = 1
		return
	}
	if v > float64(f.MaxQuantity) {
		f.Quantity = f.MaxQuantity
		return
	}
	f.Quantity = f.clamp(int(v))
}

// SetName sets the optional donor name.
func (f *DonationForm) SetName(name string) {
	f.Name = name
}

// SetMessage sets the optional donor message.
func (f *DonationForm) SetMessage(message string) {
	f.Message = message
}

// BeginSubmit clears the previous error before a new checkout attempt.
func (f *DonationForm) BeginSubmit() {
	f.Error = ""
}

// CheckoutRequest is the body sent to the checkout endpoint.
func (f DonationForm) CheckoutRequest() models.CheckoutRequest {
	return models.CheckoutRequest{
		Name:     f.Name,
		Message:  f.Message,
		Quantity: f.Quantity,
	}
}

// ApplyResult records a checkout response. It returns the URL to navigate to,
// or "" when the form should be shown again.
func (f *DonationForm) ApplyResult(resp models.CheckoutResponse) string {
	if resp.URL != "" {
		return resp.URL
	}
	if resp.Error != "" {
		f.Error = resp.Error
	}
	return ""
}

func (f DonationForm) clamp(q int) int {
	if q < 1 {
		return 1
	}
	if q > f.MaxQuantity {
		return f.MaxQuantity
	}
	return q
}
