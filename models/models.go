package models

import (
	"encoding/json"
	"errors"
)

// DonationRecord is a donation entry as stored in the records store. Records
// decoded from the store keep their original bytes and encode back to them
// unchanged; Fields is a typed view for rendering.
type DonationRecord struct {
	ID          string         `json:"id"`
	Fields      DonationFields `json:"fields"`
	CreatedTime string         `json:"createdTime,omitempty"`

	raw json.RawMessage
}

// DonationFields are the user-visible columns of a donation record
type DonationFields struct {
	Name    string  `json:"name,omitempty"`
	Amount  float64 `json:"amount"`
	Message string  `json:"message,omitempty"`
	Created string  `json:"Created,omitempty"`
}

type donationRecordView DonationRecord

// UnmarshalJSON keeps the record bytes. Columns whose type does not match the
// typed view are left zero rather than failing the record.
func (r *DonationRecord) UnmarshalJSON(data []byte) error {
	var view donationRecordView
	if err := json.Unmarshal(data, &view); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return err
		}
	}
	*r = DonationRecord(view)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the stored bytes when the record came from the store.
func (r DonationRecord) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return json.Marshal(donationRecordView(r))
}

// RecordList is the records store's list response envelope
type RecordList struct {
	Records []DonationRecord `json:"records"`
	Offset  string           `json:"offset,omitempty"`
}

// CheckoutRequest represents a donation checkout request
type CheckoutRequest struct {
	Name     string `json:"name"`
	Message  string `json:"message"`
	Quantity int    `json:"quantity"`
}

// CheckoutResponse carries either the hosted checkout URL or an error message
type CheckoutResponse struct {
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}
