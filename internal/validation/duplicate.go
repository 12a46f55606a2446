package validation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
	"github.com/abhay1maurya/receipt-digitizer/internal/repository"
)

// Verdict is the outcome of duplicate detection. Duplicate blocks the save;
// SoftDuplicate only warns, because without an invoice number two similar
// bills may be legitimate repeat purchases.
type Verdict struct {
	Duplicate     bool   `json:"duplicate"`
	SoftDuplicate bool   `json:"soft_duplicate"`
	Reason        string `json:"reason,omitempty"`
}

// Detector checks new bills against already-stored ones.
type Detector struct {
	bills     repository.BillRepository
	tolerance float64
	logger    *slog.Logger
}

func NewDetector(bills repository.BillRepository, tolerance float64, logger *slog.Logger) *Detector {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{bills: bills, tolerance: tolerance, logger: logger}
}

// Detect classifies the bill against the profile's stored bills. A match on
// vendor, date, total, and invoice number is a hard duplicate. A match
// without an invoice number on either side is soft. Bills missing vendor or
// date fail open; there is not enough signal to block on.
func (d *Detector) Detect(ctx context.Context, bill *entity.Bill, profileID uuid.UUID) (Verdict, error) {
	if bill.VendorName == "" || bill.VendorName == "UNKNOWN" || bill.PurchaseDate == "" {
		return Verdict{Reason: "insufficient data for comparison"}, nil
	}

	q := repository.SimilarQuery{
		ProfileID:     profileID,
		VendorName:    bill.VendorName,
		PurchaseDate:  bill.PurchaseDate,
		TotalAmount:   bill.TotalAmount,
		Tolerance:     d.tolerance,
		InvoiceNumber: bill.InvoiceNumber,
	}
	matches, err := d.bills.FindSimilar(ctx, q)
	if err != nil {
		d.logger.Error("duplicate.lookup_failed", "profile_id", profileID, "error", err)
		return Verdict{}, err
	}
	if len(matches) == 0 {
		return Verdict{}, nil
	}

	if bill.InvoiceNumber != "" {
		d.logger.Info("duplicate.hard_match",
			"invoice_number", bill.InvoiceNumber, "vendor", bill.VendorName, "matches", len(matches))
		return Verdict{
			Duplicate: true,
			Reason:    "invoice number already recorded for this vendor, date, and total",
		}, nil
	}

	d.logger.Info("duplicate.soft_match", "vendor", bill.VendorName, "matches", len(matches))
	return Verdict{
		SoftDuplicate: true,
		Reason:        "a bill with the same vendor, date, and total already exists",
	}, nil
}
