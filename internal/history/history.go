// Package history models the append-only audit log embedded in an order row.
// The log mixes plain status transitions with snapshot entries; on disk a
// transition carries a "status" key while a snapshot carries a "type" key,
// and both shapes must survive a round trip unchanged.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type Kind string

const (
	KindStatusChange       Kind = "STATUS_CHANGE"
	KindAddressSnapshot    Kind = "ADDRESS_SNAPSHOT"
	KindContractAcceptance Kind = "CONTRACT_ACCEPTANCE"
)

type StatusChange struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	PaymentID string    `json:"payment_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type AddressData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Line1     string `json:"line1,omitempty"`
	Line2     string `json:"line2,omitempty"`
	City      string `json:"city,omitempty"`
	District  string `json:"district,omitempty"`
	PostCode  string `json:"post_code,omitempty"`
	Country   string `json:"country,omitempty"`
}

type AddressSnapshot struct {
	Billing               AddressData `json:"billing"`
	Shipping              AddressData `json:"shipping"`
	ShippingSameAsBilling bool        `json:"shippingSameAsBilling"`
	Timestamp             time.Time   `json:"timestamp"`
}

type ContractAcceptance struct {
	TermsHTML             string    `json:"terms_html"`
	DistanceSalesHTML     string    `json:"distance_sales_html"`
	TermsAccepted         bool      `json:"terms_accepted"`
	DistanceSalesAccepted bool      `json:"distance_sales_accepted"`
	NewsletterOptIn       bool      `json:"newsletter_opt_in"`
	Timestamp             time.Time `json:"timestamp"`
}

// Entry is a tagged union: exactly one of the variant pointers is set.
type Entry struct {
	Change   *StatusChange
	Address  *AddressSnapshot
	Contract *ContractAcceptance
}

func (e Entry) Kind() Kind {
	switch {
	case e.Address != nil:
		return KindAddressSnapshot
	case e.Contract != nil:
		return KindContractAcceptance
	default:
		return KindStatusChange
	}
}

func (e Entry) MarshalJSON() ([]byte, error) {
	switch {
	case e.Change != nil:
		return json.Marshal(e.Change)
	case e.Address != nil:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			AddressSnapshot
		}{KindAddressSnapshot, *e.Address})
	case e.Contract != nil:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			ContractAcceptance
		}{KindContractAcceptance, *e.Contract})
	}
	return nil, fmt.Errorf("history: empty entry")
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type   Kind   `json:"type"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch {
	case probe.Type == KindAddressSnapshot:
		e.Address = new(AddressSnapshot)
		return json.Unmarshal(data, e.Address)
	case probe.Type == KindContractAcceptance:
		e.Contract = new(ContractAcceptance)
		return json.Unmarshal(data, e.Contract)
	case probe.Status != "":
		e.Change = new(StatusChange)
		return json.Unmarshal(data, e.Change)
	}
	return fmt.Errorf("history: unrecognized entry shape: %s", data)
}

type Log []Entry

func Parse(raw datatypes.JSON) (Log, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var l Log
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	return l, nil
}

func (l Log) Raw() (datatypes.JSON, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// Append parses raw, appends entries and re-serializes. Used for the
// read-modify-write updates the callback handler does on existing orders.
func Append(raw datatypes.JSON, entries ...Entry) (datatypes.JSON, error) {
	l, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	l = append(l, entries...)
	return l.Raw()
}
