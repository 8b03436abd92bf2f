package replenishment

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/rlqty/internal/domain"
)

const day = 24 * time.Hour

var weekdaysByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Schedule is the resolved order calendar for one vendor entry
type Schedule struct {
	OrderDate       time.Time
	InboundDate     time.Time
	NextInboundDate time.Time
	CoverageDays    time.Duration
}

// ParseWeekday maps a weekday name (case-insensitive) to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdaysByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, &domain.InvalidScheduleError{
			Field:  "ideal_submission_day",
			Value:  name,
			Reason: "not a weekday name",
		}
	}
	return wd, nil
}

// Resolve computes the order calendar for a vendor's submission weekday.
// The order date always falls in the week after the reference week: 7 to 13 days
// after referenceDate, so a Monday reference with a Monday vendor orders in 7 days.
func Resolve(weekday string, leadTimeDays int, referenceDate time.Time) (Schedule, error) {
	target, err := ParseWeekday(weekday)
	if err != nil {
		return Schedule{}, err
	}
	if leadTimeDays < 0 {
		return Schedule{}, &domain.InvalidScheduleError{
			Field:  "lead_time_days",
			Value:  strconv.Itoa(leadTimeDays),
			Reason: "lead time cannot be negative",
		}
	}

	ref := truncateToDate(referenceDate)
	daysAhead := (int(target) - int(ref.Weekday()) + 7) % 7

	orderDate := ref.AddDate(0, 0, daysAhead+7)
	inboundDate := orderDate.AddDate(0, 0, leadTimeDays)
	nextInboundDate := inboundDate.AddDate(0, 0, leadTimeDays)

	return Schedule{
		OrderDate:       orderDate,
		InboundDate:     inboundDate,
		NextInboundDate: nextInboundDate,
		// calendar days, independent of DST in ref's location
		CoverageDays: time.Duration(2*leadTimeDays) * day,
	}, nil
}

// ResolveSchedule resolves every vendor row against the reference date.
// It fails on the first invalid row or duplicate product id.
func ResolveSchedule(rows []domain.VendorScheduleRow, referenceDate time.Time) ([]domain.VendorScheduleRecord, error) {
	records := make([]domain.VendorScheduleRecord, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		productID := strings.TrimSpace(row.ProductID)
		if productID == "" {
			return nil, &domain.MissingFieldError{Field: "product_id", Reason: "vendor schedule row without product_id"}
		}
		if _, dup := seen[productID]; dup {
			return nil, &domain.DuplicateKeyError{Dataset: DatasetVendorSchedule, ProductID: productID}
		}
		seen[productID] = struct{}{}

		if row.LeadTimeDays == nil {
			return nil, &domain.InvalidScheduleError{
				ProductID: productID,
				Field:     "lead_time_days",
				Reason:    "lead time is missing",
			}
		}

		sched, err := Resolve(row.SubmissionDay, *row.LeadTimeDays, referenceDate)
		if err != nil {
			return nil, withProduct(err, productID)
		}

		records = append(records, domain.VendorScheduleRecord{
			ProductID:       productID,
			SubmissionDay:   strings.TrimSpace(row.SubmissionDay),
			LeadTimeDays:    *row.LeadTimeDays,
			OrderDate:       sched.OrderDate,
			InboundDate:     sched.InboundDate,
			NextInboundDate: sched.NextInboundDate,
			CoverageDays:    sched.CoverageDays,
		})
	}

	return records, nil
}

func withProduct(err error, productID string) error {
	if se, ok := err.(*domain.InvalidScheduleError); ok {
		cp := *se
		cp.ProductID = productID
		return &cp
	}
	return fmt.Errorf("product %s: %w", productID, err)
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
