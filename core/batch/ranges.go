package batch

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
)

var (
	errEndBeforeStart     = errors.New("end date must not be before start date")
	errOutsideBatch       = errors.New("dates must lie within the batch dates")
	errOutsideQuarter     = errors.New("dates must lie within the quarter dates")
	errQuarterOverlap     = errors.New("quarter overlaps another quarter of this batch")
	errQuarterNumberTaken = errors.New("this batch already has a quarter with this number")
	errOrphanQuarters     = errors.New("batch dates must contain all of its quarters")
	errOrphanSchedules    = errors.New("quarter dates must contain all of its curriculum entries")
	errQuartersExist      = errors.New("this batch already has quarters")
	errRangeTooShort      = errors.New("the batch is too short to be split in this many quarters")
	errModuleScheduled    = errors.New("this module is already scheduled for this batch")
	errNotBatchTrainer    = errors.New("trainer must be a trainer member of the batch")
	errWrongQuarter       = errors.New("quarter does not belong to this batch")
)

func rangeErr(field string, err error) error {
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

// checkRange checks that start <= end.
func checkRange(start, end core.Date) error {
	if end.Before(start) {
		return rangeErr("end_date", errEndBeforeStart)
	}
	return nil
}

// checkInside checks that [start, end] lies within [outerStart, outerEnd], reporting the first offending bound.
func checkInside(start, end, outerStart, outerEnd core.Date, err error) error {
	if start.Before(outerStart) || start.After(outerEnd) {
		return rangeErr("start_date", err)
	}
	if end.After(outerEnd) || end.Before(outerStart) {
		return rangeErr("end_date", err)
	}
	return nil
}

func overlaps(aStart, aEnd, bStart, bEnd core.Date) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// checkQuarter checks q against its batch and the other quarters of the batch.
func checkQuarter(q Quarter, b Batch, others []Quarter) error {
	if err := checkRange(q.StartDate, q.EndDate); err != nil {
		return err
	}
	if err := checkInside(q.StartDate, q.EndDate, b.StartDate, b.EndDate, errOutsideBatch); err != nil {
		return err
	}
	for _, o := range others {
		if o.ID == q.ID {
			continue
		}
		if o.Number == q.Number {
			return rangeErr("number", errQuarterNumberTaken)
		}
		if overlaps(q.StartDate, q.EndDate, o.StartDate, o.EndDate) {
			return rangeErr("start_date", errQuarterOverlap)
		}
	}
	return nil
}

// splitRange splits [start, end] in n consecutive near-equal ranges. The last range absorbs the remainder.
func splitRange(start, end core.Date, n int) ([][2]core.Date, error) {
	days := start.DaysUntil(end) + 1
	if n < 1 || days < n {
		return nil, rangeErr("count", errRangeTooShort)
	}
	size := days / n
	ranges := make([][2]core.Date, 0, n)
	for i := 0; i < n; i++ {
		rStart := start.AddDays(i * size)
		rEnd := rStart.AddDays(size - 1)
		if i == n-1 {
			rEnd = end
		}
		ranges = append(ranges, [2]core.Date{rStart, rEnd})
	}
	return ranges, nil
}

func cleanCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), "_"))
}

func memberErr(userID string, err error) error {
	msg := fmt.Sprintf("user %s: %v", userID, err)
	return core.NewValidationError(errors.New(msg), core.FieldError{Field: "user_ids", Error: msg})
}
