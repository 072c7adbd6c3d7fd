package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"shiptrack/internal/services"
	"shiptrack/internal/stage"
)

// Payload is the typed data record for a single stage. Every field is optional;
// a nil pointer means the field was never supplied.
type Payload interface {
	Stage() stage.Stage
	Validate() error
}

// Document references a file held by an external file store.
type Document struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	ContentType *string `json:"content_type,omitempty"`
	SizeBytes   *int64  `json:"size_bytes,omitempty"`
	UploadedAt  *string `json:"uploaded_at,omitempty"`
}

// Stage1Data holds shipment particulars captured at job creation.
type Stage1Data struct {
	JobDate         *string    `json:"job_date,omitempty"`
	ShipmentType    *string    `json:"shipment_type,omitempty"`
	TransportMode   *string    `json:"transport_mode,omitempty"`
	Consignee       *string    `json:"consignee,omitempty"`
	Shipper         *string    `json:"shipper,omitempty"`
	PortOfLoading   *string    `json:"port_of_loading,omitempty"`
	PortOfDischarge *string    `json:"port_of_discharge,omitempty"`
	InvoiceNo       *string    `json:"invoice_no,omitempty"`
	InvoiceDate     *string    `json:"invoice_date,omitempty"`
	Commodity       *string    `json:"commodity,omitempty"`
	Packages        *int64     `json:"packages,omitempty"`
	GrossWeightKg   *float64   `json:"gross_weight_kg,omitempty"`
	NetWeightKg     *float64   `json:"net_weight_kg,omitempty"`
	BLAWBNo         *string    `json:"bl_awb_no,omitempty"`
	BLAWBDate       *string    `json:"bl_awb_date,omitempty"`
	ETA             *string    `json:"eta,omitempty"`
	Remarks         *string    `json:"remarks,omitempty"`
	Documents       []Document `json:"documents,omitempty"`
}

func (*Stage1Data) Stage() stage.Stage { return stage.Stage1 }

// Stage2Data holds customs and documentation fields.
type Stage2Data struct {
	HSNCode         *string    `json:"hsn_code,omitempty"`
	BENo            *string    `json:"be_no,omitempty"`
	BEDate          *string    `json:"be_date,omitempty"`
	IGMNo           *string    `json:"igm_no,omitempty"`
	IGMDate         *string    `json:"igm_date,omitempty"`
	AssessableValue *float64   `json:"assessable_value,omitempty"`
	ExchangeRate    *float64   `json:"exchange_rate,omitempty"`
	DutyAmount      *float64   `json:"duty_amount,omitempty"`
	IGSTAmount      *float64   `json:"igst_amount,omitempty"`
	ShippingLine    *string    `json:"shipping_line,omitempty"`
	Remarks         *string    `json:"remarks,omitempty"`
	Documents       []Document `json:"documents,omitempty"`
}

func (*Stage2Data) Stage() stage.Stage { return stage.Stage2 }

// Container is one entry in the stage3 container list.
type Container struct {
	ContainerNo string  `json:"container_no"`
	Size        *string `json:"size,omitempty"`
	VehicleNo   *string `json:"vehicle_no,omitempty"`
	OffloadDate *string `json:"offload_date,omitempty"`
	ReturnDate  *string `json:"return_date,omitempty"`
}

// Stage3Data holds clearance and logistics fields. Containers are persisted in
// their own table and replaced wholesale whenever a payload carries the key.
type Stage3Data struct {
	ClearanceDate    *string     `json:"clearance_date,omitempty"`
	OOCDate          *string     `json:"ooc_date,omitempty"`
	DeliveryLocation *string     `json:"delivery_location,omitempty"`
	Transporter      *string     `json:"transporter,omitempty"`
	Remarks          *string     `json:"remarks,omitempty"`
	Containers       []Container `json:"containers,omitempty"`
	Documents        []Document  `json:"documents,omitempty"`
}

func (*Stage3Data) Stage() stage.Stage { return stage.Stage3 }

// Stage4Data holds billing fields. An acknowledge_date marks the job ready to close.
type Stage4Data struct {
	BillNo          *string    `json:"bill_no,omitempty"`
	BillDate        *string    `json:"bill_date,omitempty"`
	BillAmount      *float64   `json:"bill_amount,omitempty"`
	GSTAmount       *float64   `json:"gst_amount,omitempty"`
	TotalAmount     *float64   `json:"total_amount,omitempty"`
	PaymentStatus   *string    `json:"payment_status,omitempty"`
	SentDate        *string    `json:"sent_date,omitempty"`
	AcknowledgeDate *string    `json:"acknowledge_date,omitempty"`
	Remarks         *string    `json:"remarks,omitempty"`
	Documents       []Document `json:"documents,omitempty"`
}

func (*Stage4Data) Stage() stage.Stage { return stage.Stage4 }

// Acknowledged reports whether the billing record carries an acknowledge date.
func (d *Stage4Data) Acknowledged() bool {
	return d != nil && d.AcknowledgeDate != nil && *d.AcknowledgeDate != ""
}

// NewPayload returns an empty payload for the given data stage.
func NewPayload(s stage.Stage) (Payload, error) {
	switch s {
	case stage.Stage1:
		return &Stage1Data{}, nil
	case stage.Stage2:
		return &Stage2Data{}, nil
	case stage.Stage3:
		return &Stage3Data{}, nil
	case stage.Stage4:
		return &Stage4Data{}, nil
	default:
		return nil, services.Wrap(services.ErrValidation, "jobs", "new payload",
			fmt.Sprintf("stage %q has no data record", s), nil)
	}
}

// DecodePayload parses raw JSON into the typed payload for s without validating it.
func DecodePayload(s stage.Stage, raw []byte) (Payload, error) {
	return MergePayload(s, nil, raw)
}

// MergePayload overlays patch onto a copy of base. Keys present in patch
// overwrite, absent keys keep their prior value, and an explicit null clears
// the field. Unknown keys are rejected. base is never mutated.
func MergePayload(s stage.Stage, base Payload, patch []byte) (Payload, error) {
	target, err := NewPayload(s)
	if err != nil {
		return nil, err
	}
	if base != nil {
		if base.Stage() != s {
			return nil, services.Wrap(services.ErrValidation, "jobs", "merge payload",
				fmt.Sprintf("existing record belongs to %s, not %s", base.Stage(), s), nil)
		}
		existing, err := json.Marshal(base)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "jobs", "merge payload", "encode existing record", err)
		}
		if err := json.Unmarshal(existing, target); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "jobs", "merge payload", "decode existing record", err)
		}
	}

	trimmed := bytes.TrimSpace(patch)
	if len(trimmed) == 0 {
		return target, nil
	}
	if trimmed[0] != '{' {
		return nil, services.Wrap(services.ErrValidation, "jobs", "decode payload", "payload must be a JSON object", nil)
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return nil, services.Wrap(services.ErrValidation, "jobs", "decode payload", err.Error(), nil)
	}
	resetCollections(target, keys)

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return nil, services.Wrap(services.ErrValidation, "jobs", "decode payload", err.Error(), nil)
	}
	if decoder.More() {
		return nil, services.Wrap(services.ErrValidation, "jobs", "decode payload", "unexpected data after payload object", nil)
	}
	if p, ok := target.(*Stage3Data); ok {
		for i := range p.Containers {
			p.Containers[i].ContainerNo = strings.TrimSpace(p.Containers[i].ContainerNo)
		}
	}
	return target, nil
}

// resetCollections drops list fields the patch is about to replace so decoding
// never blends new entries with old ones.
func resetCollections(target Payload, keys map[string]json.RawMessage) {
	_, docs := keys["documents"]
	switch p := target.(type) {
	case *Stage1Data:
		if docs {
			p.Documents = nil
		}
	case *Stage2Data:
		if docs {
			p.Documents = nil
		}
	case *Stage3Data:
		if docs {
			p.Documents = nil
		}
		if _, ok := keys["containers"]; ok {
			p.Containers = nil
		}
	case *Stage4Data:
		if docs {
			p.Documents = nil
		}
	}
}
