// Package stats buckets an owner's transactions into weekly, monthly or
// yearly income and expense totals.
package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ledgerly/internal/core"
	"ledgerly/internal/log"
)

type Period string

const (
	Week  Period = "week"
	Month Period = "month"
	Year  Period = "year"
)

// Periods lists the supported periods in display order.
var Periods = []Period{Week, Month, Year}

func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case Week, Month, Year:
		return p, nil
	}
	return "", core.Validation("parse period", fmt.Sprintf("unknown period %q, use week, month or year", s))
}

// Bucket holds the totals of transactions dated within [Start, End).
type Bucket struct {
	Label   string     `json:"label"`
	Start   time.Time  `json:"start"`
	End     time.Time  `json:"end"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
}

type Report struct {
	Period       Period             `json:"period"`
	Buckets      []Bucket           `json:"buckets"`
	Transactions []core.Transaction `json:"transactions"`
}

// Source is the slice of the transaction store the aggregator reads.
type Source interface {
	ListTransactionsByOwner(ctx context.Context, ownerID string, from, to time.Time) ([]core.Transaction, error)
}

type Aggregator struct {
	src    Source
	now    func() time.Time
	loc    *time.Location
	logger *log.Logger
}

func NewAggregator(src Source, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.Discard()
	}
	return &Aggregator{
		src:    src,
		now:    time.Now,
		loc:    time.Local,
		logger: logger.WithComponent(log.ComponentStats),
	}
}

// WithClock sets the clock and the location calendar days are cut in.
func (a *Aggregator) WithClock(now func() time.Time, loc *time.Location) *Aggregator {
	a.now = now
	if loc != nil {
		a.loc = loc
	}
	return a
}

// Aggregate builds the report for one owner and period. Week and month only
// read transactions inside their window; year covers everything the owner
// has recorded.
func (a *Aggregator) Aggregate(ctx context.Context, ownerID string, period Period) (Report, error) {
	const op = "aggregate stats"
	now := a.now().In(a.loc)
	today := startOfDay(now)

	var (
		buckets []Bucket
		from    time.Time
		to      time.Time
	)
	switch period {
	case Week:
		buckets = weekBuckets(today)
		from, to = buckets[0].Start, buckets[len(buckets)-1].End.Add(-time.Nanosecond)
	case Month:
		buckets = monthBuckets(today)
		from, to = buckets[0].Start, buckets[len(buckets)-1].End.Add(-time.Nanosecond)
	case Year:
	default:
		return Report{}, core.Validation(op, fmt.Sprintf("unknown period %q", period))
	}

	txs, err := a.src.ListTransactionsByOwner(ctx, ownerID, from, to)
	if err != nil {
		return Report{}, core.Persistence(op, fmt.Errorf("list transactions: %w", err))
	}
	if period == Year {
		buckets = yearBuckets(now, earliest(txs, now))
	}

	for _, tx := range txs {
		i := bucketFor(buckets, tx.Date.In(a.loc))
		if i < 0 {
			continue
		}
		switch tx.Type {
		case core.Income:
			buckets[i].Income = buckets[i].Income.Add(tx.Amount)
		case core.Expense:
			buckets[i].Expense = buckets[i].Expense.Add(tx.Amount)
		}
	}

	a.logger.DebugContext(ctx, "Stats aggregated",
		log.FieldOwnerID, ownerID, log.FieldPeriod, string(period), log.FieldCount, len(txs))
	return Report{Period: period, Buckets: buckets, Transactions: txs}, nil
}

func weekBuckets(today time.Time) []Bucket {
	out := make([]Bucket, 0, 7)
	for i := 6; i >= 0; i-- {
		start := today.AddDate(0, 0, -i)
		out = append(out, Bucket{Label: start.Format("Mon"), Start: start, End: start.AddDate(0, 0, 1)})
	}
	return out
}

func monthBuckets(today time.Time) []Bucket {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	out := make([]Bucket, 0, 12)
	for i := 11; i >= 0; i-- {
		start := first.AddDate(0, -i, 0)
		out = append(out, Bucket{Label: start.Format("Jan 06"), Start: start, End: start.AddDate(0, 1, 0)})
	}
	return out
}

func yearBuckets(now, first time.Time) []Bucket {
	out := make([]Bucket, 0, now.Year()-first.Year()+1)
	for y := first.Year(); y <= now.Year(); y++ {
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location())
		out = append(out, Bucket{Label: fmt.Sprintf("%d", y), Start: start, End: start.AddDate(1, 0, 0)})
	}
	return out
}

func earliest(txs []core.Transaction, now time.Time) time.Time {
	first := now
	for _, tx := range txs {
		if d := tx.Date.In(now.Location()); d.Before(first) {
			first = d
		}
	}
	return first
}

func bucketFor(buckets []Bucket, t time.Time) int {
	for i, b := range buckets {
		if !t.Before(b.Start) && t.Before(b.End) {
			return i
		}
	}
	return -1
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
