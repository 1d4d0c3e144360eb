package finance

import "schoolsync/internal/record"

// Summary is the derived bookkeeping view over fee and donation rows.
type Summary struct {
	Total   float64            `json:"total"`
	ByType  map[string]float64 `json:"byType"`
	ByMonth map[string]float64 `json:"byMonth"`
	Count   int                `json:"count"`
}

// Summarize sums transactions grouped by type and by month. Rows with a
// missing type bucket under "other"; rows whose amount failed to parse were
// normalized to 0 upstream and simply contribute nothing to the sums.
func Summarize(txs []record.Transaction) Summary {
	s := Summary{
		ByType:  map[string]float64{},
		ByMonth: map[string]float64{},
		Count:   len(txs),
	}
	for _, tx := range txs {
		s.Total += tx.Amount

		kind := tx.Type
		if kind == "" {
			kind = "other"
		}
		s.ByType[kind] += tx.Amount

		if !tx.PaidAt.IsZero() {
			s.ByMonth[tx.PaidAt.Format("2006-01")] += tx.Amount
		}
	}
	return s
}
