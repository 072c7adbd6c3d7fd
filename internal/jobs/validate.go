package jobs

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"shiptrack/internal/services"
)

const dateLayout = "2006-01-02"

var hsnPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

// fieldErrors accumulates validation problems so callers see every bad field at once.
type fieldErrors []string

func (f *fieldErrors) add(field, format string, args ...any) {
	*f = append(*f, field+": "+fmt.Sprintf(format, args...))
}

func (f *fieldErrors) date(field string, value *string) {
	if value == nil {
		return
	}
	if _, err := time.Parse(dateLayout, *value); err != nil {
		f.add(field, "must be a YYYY-MM-DD date, got %q", *value)
	}
}

func (f *fieldErrors) amount(field string, value *float64) {
	if value != nil && *value < 0 {
		f.add(field, "must not be negative")
	}
}

func (f *fieldErrors) count(field string, value *int64) {
	if value != nil && *value < 0 {
		f.add(field, "must not be negative")
	}
}

func (f *fieldErrors) oneOf(field string, value *string, allowed ...string) {
	if value == nil {
		return
	}
	for _, candidate := range allowed {
		if *value == candidate {
			return
		}
	}
	f.add(field, "must be one of %s, got %q", strings.Join(allowed, "|"), *value)
}

func (f *fieldErrors) documents(docs []Document) {
	for i, doc := range docs {
		prefix := fmt.Sprintf("documents[%d]", i)
		if strings.TrimSpace(doc.Name) == "" {
			f.add(prefix+".name", "is required")
		}
		if strings.TrimSpace(doc.Path) == "" {
			f.add(prefix+".path", "is required")
		}
		f.count(prefix+".size_bytes", doc.SizeBytes)
		if doc.UploadedAt != nil {
			if _, err := time.Parse(time.RFC3339, *doc.UploadedAt); err != nil {
				f.date(prefix+".uploaded_at", doc.UploadedAt)
			}
		}
	}
}

func (f fieldErrors) err(operation string) error {
	if len(f) == 0 {
		return nil
	}
	return services.Wrap(services.ErrValidation, "jobs", operation, strings.Join(f, "; "), nil)
}

// Validate checks stage1 field formats.
func (d *Stage1Data) Validate() error {
	var errs fieldErrors
	errs.date("job_date", d.JobDate)
	errs.oneOf("shipment_type", d.ShipmentType, "import", "export")
	errs.oneOf("transport_mode", d.TransportMode, "sea", "air", "road")
	errs.date("invoice_date", d.InvoiceDate)
	errs.count("packages", d.Packages)
	errs.amount("gross_weight_kg", d.GrossWeightKg)
	errs.amount("net_weight_kg", d.NetWeightKg)
	if d.GrossWeightKg != nil && d.NetWeightKg != nil && *d.NetWeightKg > *d.GrossWeightKg {
		errs.add("net_weight_kg", "must not exceed gross_weight_kg")
	}
	errs.date("bl_awb_date", d.BLAWBDate)
	errs.date("eta", d.ETA)
	errs.documents(d.Documents)
	return errs.err("validate stage1")
}

// Validate checks stage2 field formats.
func (d *Stage2Data) Validate() error {
	var errs fieldErrors
	if d.HSNCode != nil && !hsnPattern.MatchString(*d.HSNCode) {
		errs.add("hsn_code", "must be 4 to 8 digits, got %q", *d.HSNCode)
	}
	errs.date("be_date", d.BEDate)
	errs.date("igm_date", d.IGMDate)
	errs.amount("assessable_value", d.AssessableValue)
	errs.amount("exchange_rate", d.ExchangeRate)
	errs.amount("duty_amount", d.DutyAmount)
	errs.amount("igst_amount", d.IGSTAmount)
	errs.documents(d.Documents)
	return errs.err("validate stage2")
}

// Validate checks stage3 field formats and the container list.
func (d *Stage3Data) Validate() error {
	var errs fieldErrors
	errs.date("clearance_date", d.ClearanceDate)
	errs.date("ooc_date", d.OOCDate)
	seen := make(map[string]struct{}, len(d.Containers))
	for i, c := range d.Containers {
		prefix := fmt.Sprintf("containers[%d]", i)
		no := strings.TrimSpace(c.ContainerNo)
		if no == "" {
			errs.add(prefix+".container_no", "is required")
		} else if _, dup := seen[no]; dup {
			errs.add(prefix+".container_no", "duplicates %q", no)
		}
		seen[no] = struct{}{}
		errs.date(prefix+".offload_date", c.OffloadDate)
		errs.date(prefix+".return_date", c.ReturnDate)
	}
	errs.documents(d.Documents)
	return errs.err("validate stage3")
}

// Validate checks stage4 field formats.
func (d *Stage4Data) Validate() error {
	var errs fieldErrors
	errs.date("bill_date", d.BillDate)
	errs.amount("bill_amount", d.BillAmount)
	errs.amount("gst_amount", d.GSTAmount)
	errs.amount("total_amount", d.TotalAmount)
	errs.oneOf("payment_status", d.PaymentStatus, "pending", "partial", "paid")
	errs.date("sent_date", d.SentDate)
	errs.date("acknowledge_date", d.AcknowledgeDate)
	errs.documents(d.Documents)
	return errs.err("validate stage4")
}

// ValidateJobNo checks a job number before it is stored.
func ValidateJobNo(jobNo string) (string, error) {
	trimmed := strings.TrimSpace(jobNo)
	switch {
	case trimmed == "":
		return "", services.Wrap(services.ErrValidation, "jobs", "validate job", "job_no is required", nil)
	case len(trimmed) > 64:
		return "", services.Wrap(services.ErrValidation, "jobs", "validate job", "job_no must be at most 64 characters", nil)
	}
	return trimmed, nil
}
